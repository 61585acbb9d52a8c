package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hpungsan/slicerbridge/internal/config"
	"github.com/hpungsan/slicerbridge/internal/errors"
)

// PathCheckMode says whether a checked file is about to be read or written.
type PathCheckMode int

const (
	PathCheckRead PathCheckMode = iota
	PathCheckWrite
)

const (
	exportsSubdir  = "exports"
	profilesSubdir = "profiles"
	ledgerExt      = ".jsonl"
)

// ValidateOutputDir checks a directory that converted or generated profiles
// are written into. The directory must be ~/.slicerbridge/profiles or an
// allowed_paths entry itself, not something below it; AllowUnsafePaths lifts
// that rule. It must never be a symlink. The directory may not exist yet.
func ValidateOutputDir(dir string, cfg *config.Config) error {
	if dir == "" {
		return errors.NewInvalidRequest("output directory is required")
	}
	abs, err := absNoParentRef(dir)
	if err != nil {
		return err
	}
	if err := requireManagedDir(abs, profilesSubdir, cfg); err != nil {
		return err
	}
	return rejectSymlink(abs, "output directory")
}

// ValidatePath checks a ledger file for export (write) or import (read).
// The file needs the .jsonl extension and must sit directly in
// ~/.slicerbridge/exports or an allowed_paths entry. AllowUnsafePaths lifts
// the directory rule only: neither the file nor its directory may be a
// symlink, because files are opened with O_NOFOLLOW anyway.
func ValidatePath(path string, mode PathCheckMode, cfg *config.Config) error {
	if path == "" {
		return errors.NewInvalidRequest("path is required")
	}
	abs, err := absNoParentRef(path)
	if err != nil {
		return err
	}
	if filepath.Ext(abs) != ledgerExt {
		return errors.NewInvalidRequest("path must have " + ledgerExt + " extension")
	}

	dir := filepath.Dir(abs)
	if err := requireManagedDir(dir, exportsSubdir, cfg); err != nil {
		return err
	}
	if err := rejectSymlink(dir, "parent directory"); err != nil {
		return err
	}

	info, err := os.Lstat(abs)
	switch {
	case err == nil && info.Mode()&os.ModeSymlink != 0:
		return errors.NewInvalidRequest("path must not be a symlink")
	case mode == PathCheckRead && os.IsNotExist(err):
		return errors.NewFileNotFound(path)
	}
	return nil
}

// absNoParentRef refuses any ".." component, then makes p absolute.
func absNoParentRef(p string) (string, error) {
	if containsTraversal(p) {
		return "", errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}
	return abs, nil
}

// requireManagedDir accepts dir only when it equals one of the allowed
// directories for sub. Nested directories are refused so that no
// intermediate component can turn into a symlink between check and open.
func requireManagedDir(dir, sub string, cfg *config.Config) error {
	if cfg != nil && cfg.AllowUnsafePaths {
		return nil
	}
	allowed, err := allowedDirs(cfg, sub)
	if err != nil {
		return err
	}
	if !slices.Contains(allowed, filepath.Clean(dir)) {
		return errors.NewInvalidRequest(fmt.Sprintf(
			"%s is not an allowed directory (subdirectories are not allowed); allowed: %s",
			dir, strings.Join(allowed, ", ")))
	}
	return nil
}

func rejectSymlink(p, what string) error {
	if info, err := os.Lstat(p); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest(what + " must not be a symlink")
	}
	return nil
}

// allowedDirs lists ~/.slicerbridge/<sub> and every absolute allowed_paths
// entry, cleaned. Entries that are symlinks are resolved to their targets.
func allowedDirs(cfg *config.Config, sub string) ([]string, error) {
	home, err := managedDir(sub)
	if err != nil {
		return nil, err
	}
	candidates := []string{home}
	if cfg != nil {
		for _, p := range cfg.AllowedPaths {
			if filepath.IsAbs(p) {
				candidates = append(candidates, p)
			}
		}
	}

	dirs := make([]string, 0, len(candidates))
	for _, d := range candidates {
		d = filepath.Clean(d)
		if info, err := os.Lstat(d); err == nil && info.Mode()&os.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(d)
			if err != nil {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve allowed path %s: %v", d, err))
			}
			d = resolved
		}
		dirs = append(dirs, d)
	}
	return dirs, nil
}

func managedDir(sub string) (string, error) {
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, sub), nil
}

// DefaultExportsDir returns the directory ledger exports go to by default.
func DefaultExportsDir() (string, error) {
	return managedDir(exportsSubdir)
}

// DefaultProfilesDir returns the directory written profiles go to by default.
func DefaultProfilesDir() (string, error) {
	return managedDir(profilesSubdir)
}

// containsTraversal reports whether any component of p, split on either
// slash, is "..".
func containsTraversal(p string) bool {
	parts := strings.FieldsFunc(p, func(r rune) bool {
		return r == '/' || r == filepath.Separator
	})
	return slices.Contains(parts, "..")
}

var filenameUnsafe = strings.NewReplacer("/", "-", `\`, "-", "..", "-")

// SanitizeForFilename makes s usable as one file name component, such as the
// origin label in a default export name. Separators and ".." become dashes,
// control characters are dropped, dash runs collapse and edge dashes go.
func SanitizeForFilename(s string) string {
	s = filenameUnsafe.Replace(s)
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	s = strings.Join(strings.FieldsFunc(s, func(r rune) bool { return r == '-' }), "-")
	if s == "" {
		return "unnamed"
	}
	return s
}
