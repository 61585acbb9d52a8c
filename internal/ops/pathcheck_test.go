package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hpungsan/slicerbridge/internal/config"
	"github.com/hpungsan/slicerbridge/internal/errors"
	"github.com/hpungsan/slicerbridge/internal/profile"
)

func wantInvalidRequest(t *testing.T, err error) {
	t.Helper()
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got: %v", err)
	}
}

func TestValidateOutputDir_DefaultProfilesDir(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := config.DefaultConfig()

	dir, err := DefaultProfilesDir()
	if err != nil {
		t.Fatalf("DefaultProfilesDir: %v", err)
	}
	if filepath.Base(dir) != "profiles" {
		t.Errorf("DefaultProfilesDir = %q, want a profiles directory", dir)
	}

	// Not created yet: the writer creates it after the check.
	if err := ValidateOutputDir(dir, cfg); err != nil {
		t.Errorf("default profiles dir rejected: %v", err)
	}
	if err := ValidateOutputDir(dir+string(filepath.Separator), cfg); err != nil {
		t.Errorf("trailing separator rejected: %v", err)
	}

	// The exports directory holds ledger files, not profiles.
	exports, err := DefaultExportsDir()
	if err != nil {
		t.Fatalf("DefaultExportsDir: %v", err)
	}
	wantInvalidRequest(t, ValidateOutputDir(exports, cfg))
}

func TestValidateOutputDir_AllowedPaths(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	printerDir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{printerDir, "relative/profiles"}

	if err := ValidateOutputDir(printerDir, cfg); err != nil {
		t.Errorf("allowed_paths entry rejected: %v", err)
	}

	tests := []struct {
		name string
		dir  string
	}{
		{"empty", ""},
		{"subdirectory of allowed path", filepath.Join(printerDir, "Prusa MK4")},
		{"unlisted directory", t.TempDir()},
		{"relative entries are ignored", "relative/profiles"},
		{"traversal back into allowed path", printerDir + "/sub/.."},
		{"traversal with trailing slash", printerDir + "/../" + filepath.Base(printerDir) + "/"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			wantInvalidRequest(t, ValidateOutputDir(tc.dir, cfg))
		})
	}
}

func TestValidateOutputDir_SymlinkedAllowedPathResolves(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := t.TempDir()
	link := filepath.Join(t.TempDir(), "orca-profiles")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{link}

	resolved, err := filepath.EvalSymlinks(target)
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}
	if err := ValidateOutputDir(resolved, cfg); err != nil {
		t.Errorf("target of symlinked allowed path rejected: %v", err)
	}
	// Writing through the link itself is refused.
	wantInvalidRequest(t, ValidateOutputDir(link, cfg))
}

func TestValidateOutputDir_UnsafePaths(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true

	if err := ValidateOutputDir(filepath.Join(tmpDir, "anywhere", "nested"), cfg); err != nil {
		t.Errorf("expected any directory with AllowUnsafePaths, got: %v", err)
	}
	wantInvalidRequest(t, ValidateOutputDir(tmpDir+"/../x", cfg))

	link := filepath.Join(tmpDir, "link")
	if err := os.Symlink(t.TempDir(), link); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}
	wantInvalidRequest(t, ValidateOutputDir(link, cfg))
}

func TestWriteProfiles_RefusesDisallowedDir(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := config.DefaultConfig()
	target := filepath.Join(t.TempDir(), "out")

	profiles := []NamedProfile{{
		Name:    "Generic PLA",
		Type:    profile.TypeFilament,
		Profile: profile.Profile{"type": "filament"},
	}}
	_, err := writeProfiles(target, cfg, profiles)
	wantInvalidRequest(t, err)
	if _, statErr := os.Stat(target); !os.IsNotExist(statErr) {
		t.Errorf("refused directory was created: %v", statErr)
	}
}

func TestValidatePath_LedgerFiles(t *testing.T) {
	exportsDir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{exportsDir}

	existing := filepath.Join(exportsDir, "batches.jsonl")
	if err := os.WriteFile(existing, []byte("{}\n"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ValidatePath(existing, PathCheckRead, cfg); err != nil {
		t.Errorf("read of existing ledger file rejected: %v", err)
	}
	if err := ValidatePath(filepath.Join(exportsDir, "new.jsonl"), PathCheckWrite, cfg); err != nil {
		t.Errorf("write of new ledger file rejected: %v", err)
	}

	missing := ValidatePath(filepath.Join(exportsDir, "missing.jsonl"), PathCheckRead, cfg)
	if !errors.Is(missing, errors.ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound, got: %v", missing)
	}

	tests := []struct {
		name string
		path string
	}{
		{"empty", ""},
		{"profile extension", filepath.Join(exportsDir, "batches.json")},
		{"traversal", exportsDir + "/x/../batches.jsonl"},
		{"nested", filepath.Join(exportsDir, "2026", "batches.jsonl")},
		{"outside allowed dirs", filepath.Join(t.TempDir(), "batches.jsonl")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			wantInvalidRequest(t, ValidatePath(tc.path, PathCheckWrite, cfg))
		})
	}
}

func TestValidatePath_SymlinkFileRejectedEvenWhenUnsafe(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(t.TempDir(), "elsewhere.jsonl")
	if err := os.WriteFile(target, []byte("{}\n"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	link := filepath.Join(dir, "batches.jsonl")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}

	for _, unsafe := range []bool{false, true} {
		cfg := config.DefaultConfig()
		cfg.AllowedPaths = []string{dir}
		cfg.AllowUnsafePaths = unsafe
		wantInvalidRequest(t, ValidatePath(link, PathCheckRead, cfg))
		wantInvalidRequest(t, ValidatePath(link, PathCheckWrite, cfg))
	}
}

func TestContainsTraversal(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/home/user/.slicerbridge/profiles", false},
		{"..", true},
		{"../profiles", true},
		{"/home/../etc", true},
		{"profiles/..", true},
		{"./profiles", false},
		{"Generic..PLA", false},
		{"a//..//b", true},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			if got := containsTraversal(tc.path); got != tc.want {
				t.Errorf("containsTraversal(%q) = %v, want %v", tc.path, got, tc.want)
			}
		})
	}
}

func TestSanitizeForFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"mcp", "mcp"},
		{"web upload", "web upload"},
		{"cli/convert", "cli-convert"},
		{`C:\profiles\pla`, "C:-profiles-pla"},
		{"../../../etc/passwd", "etc-passwd"},
		{"prusa..orca", "prusa-orca"},
		{"tab\there\x00", "tabhere"},
		{"--edge--", "edge"},
		{"../..", "unnamed"},
		{"", "unnamed"},
		{"\u30d7\u30ea\u30f3\u30bf", "\u30d7\u30ea\u30f3\u30bf"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			if got := SanitizeForFilename(tc.in); got != tc.want {
				t.Errorf("SanitizeForFilename(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
