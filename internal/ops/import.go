package ops

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hpungsan/slicerbridge/internal/config"
	"github.com/hpungsan/slicerbridge/internal/db"
	"github.com/hpungsan/slicerbridge/internal/errors"
)

// ImportMode controls collision behavior during import.
type ImportMode string

const (
	ImportModeError   ImportMode = "error"   // fail on collision (atomic)
	ImportModeReplace ImportMode = "replace" // overwrite on collision
	ImportModeRename  ImportMode = "rename"  // assign a new ID on collision
)

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: error
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError represents an error that occurred during import.
type ImportError struct {
	Line    int    `json:"line,omitempty"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Import imports batches from a JSONL export file.
func Import(ctx context.Context, database *sql.DB, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	if input.Mode != ImportModeError && input.Mode != ImportModeReplace && input.Mode != ImportModeRename {
		return nil, errors.NewInvalidRequest("mode must be one of: error, replace, rename")
	}
	if err := ValidatePath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		if _, ok := err.(*errors.BridgeError); ok {
			return nil, err
		}
		return nil, errors.NewReadFailed(input.Path, err)
	}
	defer file.Close()

	records, parseErrors := parseExportFile(file)

	// For mode:error, fail on any parse errors
	if input.Mode == ImportModeError && len(parseErrors) > 0 {
		return &ImportOutput{Errors: parseErrors}, nil
	}

	switch input.Mode {
	case ImportModeReplace:
		return importModeReplace(ctx, database, records, parseErrors)
	case ImportModeRename:
		return importModeRename(ctx, database, records, parseErrors)
	default:
		return importModeError(ctx, database, records)
	}
}

// parseExportFile parses a JSONL export file into records.
func parseExportFile(r io.Reader) ([]ExportRecord, []ImportError) {
	var records []ExportRecord
	var parseErrors []ImportError

	scanner := bufio.NewScanner(r)
	// Reports and profiles make lines far longer than the default token size
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var record ExportRecord
		if err := json.Unmarshal(line, &record); err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}

		// Skip header line
		if record.SlicerbridgeExport {
			continue
		}

		if record.ID == "" {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "INVALID_RECORD",
				Message: "missing id field",
			})
			continue
		}

		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		parseErrors = append(parseErrors, ImportError{
			Line:    lineNum,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}

	return records, parseErrors
}

// importModeError imports all records atomically, aborting on any collision.
func importModeError(ctx context.Context, database *sql.DB, records []ExportRecord) (*ImportOutput, error) {
	batches := make([]*db.Batch, 0, len(records))
	for _, record := range records {
		exists, err := db.BatchExists(ctx, database, record.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			return &ImportOutput{Errors: []ImportError{{
				ID:      record.ID,
				Code:    "ID_COLLISION",
				Message: fmt.Sprintf("batch with id %q already exists", record.ID),
			}}}, nil
		}
		batches = append(batches, record.ToBatch())
	}

	if err := db.InsertBatches(ctx, database, batches); err != nil {
		if err == db.ErrUniqueConstraint {
			return &ImportOutput{Errors: []ImportError{{
				Code:    "ID_COLLISION",
				Message: "import file contains duplicate batch ids",
			}}}, nil
		}
		return nil, err
	}

	return &ImportOutput{Imported: len(batches), Errors: []ImportError{}}, nil
}

// importModeReplace imports records, replacing existing batches on collision.
func importModeReplace(ctx context.Context, database *sql.DB, records []ExportRecord, parseErrors []ImportError) (*ImportOutput, error) {
	out := &ImportOutput{Skipped: len(parseErrors), Errors: append([]ImportError{}, parseErrors...)}
	for _, record := range records {
		if err := db.ReplaceBatch(ctx, database, record.ToBatch()); err != nil {
			return nil, err
		}
		out.Imported++
	}
	return out, nil
}

// importModeRename imports records, giving colliding batches a new ID.
func importModeRename(ctx context.Context, database *sql.DB, records []ExportRecord, parseErrors []ImportError) (*ImportOutput, error) {
	out := &ImportOutput{Skipped: len(parseErrors), Errors: append([]ImportError{}, parseErrors...)}
	for _, record := range records {
		b := record.ToBatch()

		exists, err := db.BatchExists(ctx, database, b.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			newID := newBatchID()
			b.ReportMD = strings.Replace(b.ReportMD, "# Conversion batch "+b.ID, "# Conversion batch "+newID, 1)
			b.ID = newID
		}

		if err := db.InsertBatch(ctx, database, b); err != nil {
			out.Errors = append(out.Errors, ImportError{
				ID:      record.ID,
				Code:    "INSERT_FAILED",
				Message: fmt.Sprintf("failed to insert: %v", err),
			})
			out.Skipped++
			continue
		}
		out.Imported++
	}
	return out, nil
}
