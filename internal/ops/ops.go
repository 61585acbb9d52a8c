package ops

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/slicerbridge/internal/config"
	"github.com/hpungsan/slicerbridge/internal/convert"
	"github.com/hpungsan/slicerbridge/internal/errors"
	"github.com/hpungsan/slicerbridge/internal/profile"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Origins recorded with each batch.
const (
	OriginCLI = "cli"
	OriginMCP = "mcp"
	OriginWeb = "web"
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// NamedProfile is one output profile with its output name.
type NamedProfile struct {
	Name    string          `json:"name"`
	Type    profile.Type    `json:"type"`
	Profile profile.Profile `json:"profile"`
}

// DeciderFromConfig builds the headless ambiguity decider from config.
func DeciderFromConfig(cfg *config.Config) (profile.StaticDecider, error) {
	var d profile.StaticDecider
	if cfg == nil {
		return d, nil
	}

	switch strings.ToLower(strings.TrimSpace(cfg.CompatibilityChoice)) {
	case "", "keep":
	case "discard":
		d.DiscardCompatibility = true
	default:
		return d, errors.NewInvalidRequest("compatibility_choice must be one of: keep, discard")
	}

	if choice := strings.TrimSpace(cfg.SupportStyleChoice); choice != "" {
		style, ok := profile.LookupSupportStyle(choice)
		if !ok {
			return d, errors.NewInvalidRequest(fmt.Sprintf("unknown support_style_choice %q", choice))
		}
		d.SupportStyle = &style
	}
	return d, nil
}

// readInputFile reads a conversion input without following a symlink in the
// final path component.
func readInputFile(path string) ([]byte, error) {
	f, err := openFileNoFollowRead(path)
	if err != nil {
		if errors.Is(err, errors.ErrFileNotFound) || errors.Is(err, errors.ErrInvalidRequest) {
			return nil, err
		}
		return nil, errors.NewReadFailed(path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.NewReadFailed(path, err)
	}
	return data, nil
}

// readLimitedFile reads a referenced file (physical printer, converted
// profile) that must not exceed limit bytes.
func readLimitedFile(path string, limit int64) ([]byte, error) {
	if info, err := os.Stat(path); err == nil && limit > 0 && info.Size() > limit {
		return nil, errors.NewInputTooLarge(limit, info.Size())
	}
	return readInputFile(path)
}

// marshalProfile encodes a profile the way OrcaSlicer user profiles are laid
// out on disk.
func marshalProfile(p profile.Profile) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return append(data, '\n'), nil
}

// namedProfiles lists the store in output order with the type of the
// conversion that produced each stored profile.
func namedProfiles(batch *convert.Batch) []NamedProfile {
	types := make(map[string]profile.Type, len(batch.Results))
	for _, r := range batch.Results {
		if _, seen := types[r.Name]; !seen || r.Outcome != convert.OutcomeSkipped {
			types[r.Name] = r.Type
		}
	}

	out := make([]NamedProfile, 0, batch.Store.Len())
	for name, p := range batch.Store.All() {
		out = append(out, NamedProfile{Name: name, Type: types[name], Profile: p})
	}
	return out
}

// newBatchID generates a new ULID.
func newBatchID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// BaseDir returns ~/.slicerbridge.
func BaseDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to get home directory: %w", err))
	}
	return filepath.Join(homeDir, config.DirName), nil
}
