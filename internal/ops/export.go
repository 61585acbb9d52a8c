package ops

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hpungsan/slicerbridge/internal/config"
	"github.com/hpungsan/slicerbridge/internal/db"
	"github.com/hpungsan/slicerbridge/internal/errors"
)

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path           string // optional, default: ~/.slicerbridge/exports/<origin|all>-<timestamp>.jsonl
	Origin         string // optional filter by origin
	IncludeDeleted bool
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportHeader represents the header line in a JSONL export file.
type ExportHeader struct {
	SlicerbridgeExport bool   `json:"_slicerbridge_export"`
	SchemaVersion      string `json:"schema_version"`
	ExportedAt         int64  `json:"exported_at"`
}

// ExportRecord is one batch line of a JSONL export file.
type ExportRecord struct {
	SlicerbridgeExport bool `json:"_slicerbridge_export,omitempty"`

	ID           string          `json:"id"`
	Origin       string          `json:"origin"`
	NozzleSize   string          `json:"nozzle_size"`
	Policy       string          `json:"policy"`
	PlasticType  string          `json:"plastic_type,omitempty"`
	Summary      string          `json:"summary"`
	Report       string          `json:"report"`
	Results      json.RawMessage `json:"results"`
	Failures     json.RawMessage `json:"failures,omitempty"`
	Decisions    json.RawMessage `json:"decisions,omitempty"`
	Profiles     []db.Profile    `json:"profiles"`
	ProfileCount int             `json:"profile_count"`
	FailureCount int             `json:"failure_count"`
	CreatedAt    int64           `json:"created_at"`
	DeletedAt    *int64          `json:"deleted_at,omitempty"`
}

func toExportRecord(b *db.Batch) ExportRecord {
	profiles := b.Profiles
	if profiles == nil {
		profiles = []db.Profile{}
	}
	return ExportRecord{
		ID:           b.ID,
		Origin:       b.Origin,
		NozzleSize:   b.NozzleSize,
		Policy:       b.Policy,
		PlasticType:  b.PlasticType,
		Summary:      b.Summary,
		Report:       b.ReportMD,
		Results:      rawColumn(b.ResultsJSON),
		Failures:     rawColumn(b.FailuresJSON),
		Decisions:    rawColumn(b.DecisionsJSON),
		Profiles:     profiles,
		ProfileCount: b.ProfileCount,
		FailureCount: b.FailureCount,
		CreatedAt:    b.CreatedAt,
		DeletedAt:    b.DeletedAt,
	}
}

// ToBatch converts an export record back into a ledger row.
func (r ExportRecord) ToBatch() *db.Batch {
	return &db.Batch{
		ID:            r.ID,
		Origin:        r.Origin,
		NozzleSize:    r.NozzleSize,
		Policy:        r.Policy,
		PlasticType:   r.PlasticType,
		Summary:       r.Summary,
		ReportMD:      r.Report,
		ResultsJSON:   columnOrDefault(r.Results, "[]"),
		FailuresJSON:  columnOrDefault(r.Failures, ""),
		DecisionsJSON: columnOrDefault(r.Decisions, ""),
		Profiles:      r.Profiles,
		ProfileCount:  r.ProfileCount,
		FailureCount:  r.FailureCount,
		CreatedAt:     r.CreatedAt,
		DeletedAt:     r.DeletedAt,
	}
}

func rawColumn(s string) json.RawMessage {
	if s == "" {
		return nil
	}
	return json.RawMessage(s)
}

func columnOrDefault(raw json.RawMessage, def string) string {
	if len(raw) == 0 || string(raw) == "null" {
		return def
	}
	return string(raw)
}

// Export exports recorded batches to a JSONL file.
func Export(ctx context.Context, database *sql.DB, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	now := time.Now()
	exportedAt := now.Unix()
	origin := strings.ToLower(strings.TrimSpace(input.Origin))

	// Determine export path
	exportPath := input.Path
	if exportPath == "" {
		var err error
		exportPath, err = defaultExportPath(origin, now)
		if err != nil {
			return nil, err
		}
	}

	// Validate ALL paths (both user-provided and default) for security
	if err := ValidatePath(exportPath, PathCheckWrite, cfg); err != nil {
		return nil, err
	}

	// Ensure parent directory exists
	dir := filepath.Dir(exportPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	filters := db.ListFilters{IncludeDeleted: input.IncludeDeleted}
	if origin != "" {
		filters.Origin = &origin
	}
	batches, err := db.AllBatches(ctx, database, filters)
	if err != nil {
		return nil, err
	}

	err = writeFileAtomic(exportPath, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		header := ExportHeader{
			SlicerbridgeExport: true,
			SchemaVersion:      "1.0",
			ExportedAt:         exportedAt,
		}
		if err := enc.Encode(header); err != nil {
			return err
		}
		for _, b := range batches {
			if ctx.Err() != nil {
				return errors.NewCancelled("export")
			}
			if err := enc.Encode(toExportRecord(b)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ExportOutput{
		Path:       exportPath,
		Count:      len(batches),
		ExportedAt: exportedAt,
	}, nil
}

// defaultExportPath generates the default export path.
// Format: ~/.slicerbridge/exports/<origin>-<timestamp>.jsonl or all-<timestamp>.jsonl
func defaultExportPath(origin string, now time.Time) (string, error) {
	dir, err := DefaultExportsDir()
	if err != nil {
		return "", err
	}

	timestamp := now.Format("2006-01-02T150405")
	name := "all"
	if origin != "" {
		// Sanitize to prevent path traversal/injection via the origin filter
		name = SanitizeForFilename(origin)
	}

	return filepath.Join(dir, fmt.Sprintf("%s-%s.jsonl", name, timestamp)), nil
}
