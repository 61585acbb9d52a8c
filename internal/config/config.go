package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirName is the name of both the global (~/.slicerbridge) and the repo
// (.slicerbridge) configuration directory.
const DirName = ".slicerbridge"

// Config holds application configuration.
type Config struct {
	// DefaultNozzleSize is the nozzle diameter in millimeters used when a
	// conversion does not name one. It is the comparator for percent values.
	DefaultNozzleSize string `json:"default_nozzle_size,omitempty"`

	// CollisionPolicy decides what happens when two conversions in one batch
	// produce the same output name: "skip", "overwrite" or "merge".
	CollisionPolicy string `json:"collision_policy,omitempty"`

	// BaseProfileDir holds the OrcaSlicer system filament profiles
	// (fdm_filament_pla.json, ...) used by inherit.
	BaseProfileDir string `json:"base_profile_dir,omitempty"`

	// PhysicalPrinterPath is an INI or JSON file whose network_ fields are
	// merged into every converted printer profile.
	PhysicalPrinterPath string `json:"physical_printer_path,omitempty"`

	// SupportStyleChoice forces a support style for headless conversions
	// ("grid", "snug", "tree", "organic"). Empty keeps the detected style.
	SupportStyleChoice string `json:"support_style_choice,omitempty"`

	// CompatibilityChoice is "keep" or "discard" for compatible_*_condition
	// fields in headless conversions.
	CompatibilityChoice string `json:"compatibility_choice,omitempty"`

	// ReadConcurrency bounds how many input files are read at once.
	ReadConcurrency int `json:"read_concurrency,omitempty"`

	// MaxInputBytes is the largest accepted input file.
	MaxInputBytes int64 `json:"max_input_bytes,omitempty"`

	// AllowedPaths is an allowlist of directories for reading inputs and writing outputs.
	// Paths outside ~/.slicerbridge/exports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for output files.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DefaultNozzleSize:   "0.4",
		CollisionPolicy:     "skip",
		CompatibilityChoice: "keep",
		ReadConcurrency:     4,
		MaxInputBytes:       10 * 1024 * 1024,
	}
}

// Validate checks the enumerated fields.
func (c *Config) Validate() error {
	switch c.CollisionPolicy {
	case "", "skip", "overwrite", "merge":
	default:
		return fmt.Errorf("collision_policy must be skip, overwrite or merge, got %q", c.CollisionPolicy)
	}
	switch c.CompatibilityChoice {
	case "", "keep", "discard":
	default:
		return fmt.Errorf("compatibility_choice must be keep or discard, got %q", c.CompatibilityChoice)
	}
	switch c.SupportStyleChoice {
	case "", "grid", "snug", "tree", "organic":
	default:
		return fmt.Errorf("support_style_choice must be grid, snug, tree or organic, got %q", c.SupportStyleChoice)
	}
	if c.ReadConcurrency < 0 {
		return fmt.Errorf("read_concurrency must not be negative")
	}
	return nil
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.slicerbridge.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.slicerbridge) and repo (.slicerbridge) directories.
// Repo config is found by walking upward from startDir to find the nearest .slicerbridge/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	cfg := Merge(Merge(DefaultConfig(), global), repo)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindRepoConfig walks upward from startDir to find the nearest .slicerbridge/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, DirName, "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	merged := Merge(DefaultConfig(), cfg)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		DefaultNozzleSize:   pick(overlay.DefaultNozzleSize, base.DefaultNozzleSize),
		CollisionPolicy:     pick(overlay.CollisionPolicy, base.CollisionPolicy),
		BaseProfileDir:      pick(overlay.BaseProfileDir, base.BaseProfileDir),
		PhysicalPrinterPath: pick(overlay.PhysicalPrinterPath, base.PhysicalPrinterPath),
		SupportStyleChoice:  pick(overlay.SupportStyleChoice, base.SupportStyleChoice),
		CompatibilityChoice: pick(overlay.CompatibilityChoice, base.CompatibilityChoice),
		ReadConcurrency:     pick(overlay.ReadConcurrency, base.ReadConcurrency),
		MaxInputBytes:       pick(overlay.MaxInputBytes, base.MaxInputBytes),
		DBMaxOpenConns:      pick(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:      pick(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
	}

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// pick returns overlay unless it is the zero value.
func pick[T comparable](overlay, base T) T {
	var zero T
	if overlay != zero {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, list := range [][]string{a, b} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if s != "" && !seen[s] {
				seen[s] = true
				result = append(result, s)
			}
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
