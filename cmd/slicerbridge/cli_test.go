package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chzyer/readline"

	"github.com/hpungsan/slicerbridge/internal/config"
	"github.com/hpungsan/slicerbridge/internal/db"
	"github.com/hpungsan/slicerbridge/internal/ops"
	"github.com/hpungsan/slicerbridge/internal/profile"
)

const printINI = "layer_height = 0.2\nperimeters = 3\n"

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	cleanup := func() {
		database.Close()
	}
	return database, cleanup
}

// testConfig returns a default config that lets tests write into temp dirs.
func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true
	return cfg
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// runCLI runs the app with args and returns what it wrote to stdout.
func runCLI(t *testing.T, database *sql.DB, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	app := newCLIApp(database, cfg)
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(append([]string{"slicerbridge"}, args...))
	return out.String(), err
}

// convertRecorded converts one print profile and returns the batch ID.
func convertRecorded(t *testing.T, database *sql.DB, cfg *config.Config) string {
	t.Helper()
	path := writeTestFile(t, t.TempDir(), "print.ini", printINI)
	stdout, err := runCLI(t, database, cfg, "convert", path)
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	var output ops.ConvertOutput
	if err := json.Unmarshal([]byte(stdout), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, stdout)
	}
	if output.BatchID == "" {
		t.Fatal("expected a recorded batch ID")
	}
	return output.BatchID
}

// TestParseDuration tests the parseDuration helper function.
func TestParseDuration(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    int
		expectError bool
	}{
		{name: "valid days", input: "7d", expected: 7},
		{name: "zero days", input: "0d", expected: 0},
		{name: "large number", input: "365d", expected: 365},
		{name: "missing suffix", input: "7", expectError: true},
		{name: "wrong suffix", input: "7h", expectError: true},
		{name: "negative", input: "-1d", expectError: true},
		{name: "not a number", input: "xd", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseDuration(tt.input)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error for %q, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

// TestCLIConvert tests the convert command with file inputs.
func TestCLIConvert(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	cfg := testConfig()

	tmpDir := t.TempDir()
	path := writeTestFile(t, tmpDir, "print.ini", printINI)
	outDir := filepath.Join(tmpDir, "out")
	if err := os.Mkdir(outDir, 0700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	stdout, err := runCLI(t, database, cfg, "convert", "--out", outDir, "--nozzle", "0.6", path)
	if err != nil {
		t.Fatalf("convert command failed: %v", err)
	}

	var output ops.ConvertOutput
	if err := json.Unmarshal([]byte(stdout), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, stdout)
	}
	if output.Summary != "Converted 1 profile." {
		t.Errorf("Summary = %q", output.Summary)
	}
	if output.BatchID == "" {
		t.Error("expected the batch to be recorded by default")
	}
	if len(output.Profiles) != 1 || output.Profiles[0].Type != profile.TypePrint {
		t.Fatalf("profiles = %+v", output.Profiles)
	}
	if got := output.Profiles[0].Profile[profile.KeyNozzleSize]; got != "0.6" {
		t.Errorf("nozzle_size = %v, want 0.6", got)
	}
	if len(output.Written) != 1 {
		t.Fatalf("written = %v, want one file", output.Written)
	}
	if _, err := os.Stat(output.Written[0]); err != nil {
		t.Errorf("written profile missing: %v", err)
	}
}

func TestCLIConvert_NoRecordAndTable(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	cfg := testConfig()

	path := writeTestFile(t, t.TempDir(), "print.ini", printINI)
	stdout, err := runCLI(t, database, cfg, "convert", "--record=false", "--format", "table", path)
	if err != nil {
		t.Fatalf("convert command failed: %v", err)
	}
	if !strings.Contains(stdout, "Converted 1 profile.") {
		t.Errorf("table output missing summary:\n%s", stdout)
	}
	if strings.Contains(stdout, "batch ") {
		t.Errorf("unrecorded batch should not print an ID:\n%s", stdout)
	}

	list, err := ops.List(t.Context(), database, ops.ListInput{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list.Items) != 0 {
		t.Errorf("expected no recorded batches, got %d", len(list.Items))
	}
}

func TestCLIConvert_Stdin(t *testing.T) {
	cfg := testConfig()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	go func() {
		_, _ = w.WriteString("filament_type = PETG\ntemperature = 240\n")
		w.Close()
	}()
	oldStdin := os.Stdin
	os.Stdin = r
	defer func() { os.Stdin = oldStdin }()

	// No database: the batch cannot be recorded
	stdout, err := runCLI(t, nil, cfg, "convert", "--name", "petg.ini", "-")
	if err != nil {
		t.Fatalf("convert command failed: %v", err)
	}

	var output ops.ConvertOutput
	if err := json.Unmarshal([]byte(stdout), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, stdout)
	}
	if len(output.Profiles) != 1 || output.Profiles[0].Type != profile.TypeFilament {
		t.Fatalf("profiles = %+v", output.Profiles)
	}
	if output.BatchID != "" {
		t.Errorf("BatchID = %q, want empty", output.BatchID)
	}
}

func TestCLIConvert_Errors(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	cfg := testConfig()

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"bad format", []string{"convert", "--format", "xml", "x.ini"}, "[INVALID_REQUEST]"},
		{"bad policy", []string{"convert", "--policy", "replace", writeTestFile(t, t.TempDir(), "p.ini", printINI)}, "[INVALID_REQUEST]"},
		{"bad support style", []string{"convert", "--support-style", "zigzag", writeTestFile(t, t.TempDir(), "p.ini", printINI)}, "[INVALID_REQUEST]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, database, cfg, tt.args...)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.code) {
				t.Errorf("error = %q, want code %s", err.Error(), tt.code)
			}
		})
	}
}

func TestCLIClassify(t *testing.T) {
	cfg := testConfig()
	path := writeTestFile(t, t.TempDir(), "pla.ini", "filament_type = PLA\ntemperature = 210\n")

	stdout, err := runCLI(t, nil, cfg, "classify", path)
	if err != nil {
		t.Fatalf("classify command failed: %v", err)
	}
	var output ops.ClassifyOutput
	if err := json.Unmarshal([]byte(stdout), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, stdout)
	}
	if len(output.Profiles) != 1 || output.Profiles[0].Type != profile.TypeFilament {
		t.Errorf("profiles = %+v", output.Profiles)
	}

	stdout, err = runCLI(t, nil, cfg, "classify", "--format", "table", path)
	if err != nil {
		t.Fatalf("classify table failed: %v", err)
	}
	if !strings.Contains(stdout, "filament") {
		t.Errorf("table output missing type:\n%s", stdout)
	}

	if _, err := runCLI(t, nil, cfg, "classify"); err == nil {
		t.Error("expected error without a file")
	}
}

func TestCLIHistory(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	cfg := testConfig()

	id := convertRecorded(t, database, cfg)

	t.Run("list json", func(t *testing.T) {
		stdout, err := runCLI(t, database, cfg, "history", "list", "--origin", "cli")
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		var output ops.ListOutput
		if err := json.Unmarshal([]byte(stdout), &output); err != nil {
			t.Fatalf("failed to parse output: %v\nOutput: %s", err, stdout)
		}
		if len(output.Items) != 1 || output.Items[0].ID != id {
			t.Errorf("items = %+v", output.Items)
		}
		if output.Items[0].Origin != ops.OriginCLI {
			t.Errorf("origin = %q, want cli", output.Items[0].Origin)
		}
	})

	t.Run("list table", func(t *testing.T) {
		stdout, err := runCLI(t, database, cfg, "history", "list", "-f", "table")
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if !strings.Contains(stdout, id) {
			t.Errorf("table missing batch ID:\n%s", stdout)
		}
	})

	t.Run("fetch", func(t *testing.T) {
		stdout, err := runCLI(t, database, cfg, "history", "fetch", "--no-profiles", id)
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		var output ops.FetchOutput
		if err := json.Unmarshal([]byte(stdout), &output); err != nil {
			t.Fatalf("failed to parse output: %v\nOutput: %s", err, stdout)
		}
		if output.ID != id {
			t.Errorf("id = %q, want %q", output.ID, id)
		}
		if len(output.Profiles) != 0 {
			t.Errorf("expected profiles to be omitted, got %d", len(output.Profiles))
		}
		if !strings.Contains(output.Report, "## Profiles") {
			t.Errorf("report missing profiles section:\n%s", output.Report)
		}
	})

	t.Run("fetch section", func(t *testing.T) {
		stdout, err := runCLI(t, database, cfg, "history", "fetch", "--section", "Failures", id)
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		if strings.TrimSpace(stdout) != "(none)" {
			t.Errorf("section = %q, want (none)", stdout)
		}
	})

	t.Run("delete and purge", func(t *testing.T) {
		if _, err := runCLI(t, database, cfg, "history", "delete", id); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if _, err := runCLI(t, database, cfg, "history", "fetch", id); err == nil {
			t.Error("expected deleted batch to be hidden")
		}

		stdout, err := runCLI(t, database, cfg, "history", "purge")
		if err != nil {
			t.Fatalf("purge failed: %v", err)
		}
		var output ops.PurgeOutput
		if err := json.Unmarshal([]byte(stdout), &output); err != nil {
			t.Fatalf("failed to parse output: %v\nOutput: %s", err, stdout)
		}
		if output.Purged != 1 {
			t.Errorf("purged = %d, want 1", output.Purged)
		}
	})
}

func TestCLIExportImport(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	cfg := testConfig()

	id := convertRecorded(t, database, cfg)
	exportPath := filepath.Join(t.TempDir(), "history.jsonl")

	stdout, err := runCLI(t, database, cfg, "history", "export", "--path", exportPath)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	var exported ops.ExportOutput
	if err := json.Unmarshal([]byte(stdout), &exported); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, stdout)
	}
	if exported.Count != 1 {
		t.Errorf("count = %d, want 1", exported.Count)
	}

	// Same IDs collide in error mode and nothing is imported
	stdout, err = runCLI(t, database, cfg, "history", "import", "--path", exportPath)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	var collided ops.ImportOutput
	if err := json.Unmarshal([]byte(stdout), &collided); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, stdout)
	}
	if collided.Imported != 0 || len(collided.Errors) != 1 || collided.Errors[0].Code != "ID_COLLISION" {
		t.Errorf("error mode output = %+v", collided)
	}

	stdout, err = runCLI(t, database, cfg, "history", "import", "--path", exportPath, "--mode", "rename")
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	var imported ops.ImportOutput
	if err := json.Unmarshal([]byte(stdout), &imported); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, stdout)
	}
	if imported.Imported != 1 {
		t.Errorf("imported = %d, want 1", imported.Imported)
	}

	list, err := ops.List(t.Context(), database, ops.ListInput{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list.Items) != 2 {
		t.Fatalf("expected 2 batches after rename import, got %d", len(list.Items))
	}
	if list.Items[0].ID == list.Items[1].ID {
		t.Errorf("renamed import should get a new ID, both are %s", id)
	}
}

// TestCLIErrorHandling tests error handling in CLI commands.
func TestCLIErrorHandling(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	cfg := testConfig()

	t.Run("fetch not found returns error", func(t *testing.T) {
		_, err := runCLI(t, database, cfg, "history", "fetch", "01ARZ3NDEKTSV4RRFFQ69G5FAV")
		if err == nil || !strings.Contains(err.Error(), "[NOT_FOUND]") {
			t.Errorf("expected NOT_FOUND, got %v", err)
		}
	})

	t.Run("delete without id returns error", func(t *testing.T) {
		if _, err := runCLI(t, database, cfg, "history", "delete"); err == nil {
			t.Error("expected error, got nil")
		}
	})

	t.Run("invalid duration format returns error", func(t *testing.T) {
		if _, err := runCLI(t, database, cfg, "history", "purge", "--older-than=invalid"); err == nil {
			t.Error("expected error, got nil")
		}
	})

	t.Run("inherit missing file returns error", func(t *testing.T) {
		_, err := runCLI(t, database, cfg, "inherit", filepath.Join(t.TempDir(), "missing.json"))
		if err == nil || !strings.Contains(err.Error(), "[FILE_NOT_FOUND]") {
			t.Errorf("expected FILE_NOT_FOUND, got %v", err)
		}
	})
}

// TestIsCLIMode tests the isCLIMode function.
func TestIsCLIMode(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{"no args", []string{"slicerbridge"}, false},
		{"convert", []string{"slicerbridge", "convert"}, true},
		{"history", []string{"slicerbridge", "history", "list"}, true},
		{"serve", []string{"slicerbridge", "serve"}, true},
		{"help flag", []string{"slicerbridge", "--help"}, true},
		{"version flag", []string{"slicerbridge", "-v"}, true},
		{"unknown", []string{"slicerbridge", "bogus"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isCLIMode(tt.args); got != tt.expected {
				t.Errorf("isCLIMode(%v) = %v, want %v", tt.args, got, tt.expected)
			}
		})
	}
}

// TestIsHelpOrVersion tests the isHelpOrVersion function.
func TestIsHelpOrVersion(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{"no args", []string{"slicerbridge"}, false},
		{"help", []string{"slicerbridge", "help"}, true},
		{"-h", []string{"slicerbridge", "-h"}, true},
		{"--version", []string{"slicerbridge", "--version"}, true},
		{"subcommand", []string{"slicerbridge", "convert", "--help"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isHelpOrVersion(tt.args); got != tt.expected {
				t.Errorf("isHelpOrVersion(%v) = %v, want %v", tt.args, got, tt.expected)
			}
		})
	}
}

// TestReadStdinWithLimit tests the readStdin function respects size limits.
func TestReadStdinWithLimit(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		limit     int64
		expectErr bool
	}{
		{"within limit", "small content", 1000, false},
		{"exceeds limit", strings.Repeat("x", 100), 50, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, w, err := os.Pipe()
			if err != nil {
				t.Fatalf("Failed to create pipe: %v", err)
			}
			go func() {
				_, _ = w.WriteString(tt.content)
				w.Close()
			}()

			oldStdin := os.Stdin
			os.Stdin = r
			defer func() { os.Stdin = oldStdin }()

			result, err := readStdin(tt.limit)
			if tt.expectErr {
				if err == nil {
					t.Error("expected error for content exceeding limit, got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if result != tt.content {
				t.Errorf("expected %q, got %q", tt.content, result)
			}
		})
	}
}

// fakeLines feeds scripted answers to a promptDecider.
type fakeLines struct {
	lines   []string
	err     error
	prompts []string
}

func (f *fakeLines) Readline() (string, error) {
	if len(f.lines) == 0 {
		if f.err != nil {
			return "", f.err
		}
		return "", io.EOF
	}
	line := f.lines[0]
	f.lines = f.lines[1:]
	return line, nil
}

func (f *fakeLines) SetPrompt(p string) { f.prompts = append(f.prompts, p) }

func TestPromptDecider(t *testing.T) {
	grid, _ := profile.LookupSupportStyle("grid")
	organic, _ := profile.LookupSupportStyle("organic")
	supportAmb := profile.Ambiguity{
		Kind:     profile.AmbiguitySupportStyle,
		Field:    "support_material_style",
		Value:    "grid",
		Proposed: grid,
	}
	compatAmb := profile.Ambiguity{
		Kind:  profile.AmbiguityCompatibility,
		Field: "compatible_printers_condition",
		Value: "nozzle_diameter[0]==0.4",
	}

	tests := []struct {
		name     string
		lines    []string
		err      error
		fallback profile.StaticDecider
		amb      profile.Ambiguity
		want     profile.Decision
	}{
		{"support explicit", []string{"organic"}, nil, profile.StaticDecider{}, supportAmb, profile.Decision{Keep: true, Support: organic}},
		{"support default", []string{""}, nil, profile.StaticDecider{}, supportAmb, profile.Decision{Keep: true, Support: grid}},
		{"support reprompts", []string{"zigzag", " Organic "}, nil, profile.StaticDecider{}, supportAmb, profile.Decision{Keep: true, Support: organic}},
		{"compat no", []string{"n"}, nil, profile.StaticDecider{}, compatAmb, profile.Decision{Keep: false}},
		{"compat default yes", []string{""}, nil, profile.StaticDecider{DiscardCompatibility: true}, compatAmb, profile.Decision{Keep: true}},
		{"compat eof falls back", nil, nil, profile.StaticDecider{DiscardCompatibility: true}, compatAmb, profile.Decision{Keep: false}},
		{"interrupt falls back", nil, readline.ErrInterrupt, profile.StaticDecider{}, supportAmb, profile.Decision{Keep: true, Support: grid}},
		{"too many bad answers", []string{"maybe", "perhaps", "later"}, nil, profile.StaticDecider{}, compatAmb, profile.Decision{Keep: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			in := &fakeLines{lines: tt.lines, err: tt.err}
			d := &promptDecider{in: in, out: &out, fallback: tt.fallback}

			got := d.Decide(tt.amb)
			if got != tt.want {
				t.Errorf("Decide = %+v, want %+v", got, tt.want)
			}
			if len(in.prompts) == 0 {
				t.Error("expected a prompt to be set")
			}
			if !strings.Contains(out.String(), tt.amb.Field) {
				t.Errorf("context line missing field:\n%s", out.String())
			}
		})
	}
}

func TestStyleName(t *testing.T) {
	tree, _ := profile.LookupSupportStyle("tree")
	if got := styleName(tree); got != "tree" {
		t.Errorf("styleName(tree) = %q", got)
	}
	custom := profile.SupportStyle{SupportType: "x", SupportStyle: "y"}
	if got := styleName(custom); got != "y" {
		t.Errorf("styleName(custom) = %q, want y", got)
	}
}

func TestOutputError(t *testing.T) {
	err := outputError(errors.New("plain failure"))
	if err.Error() != "plain failure" {
		t.Errorf("plain error = %q", err.Error())
	}
}
