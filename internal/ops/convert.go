package ops

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/hpungsan/slicerbridge/internal/config"
	"github.com/hpungsan/slicerbridge/internal/convert"
	"github.com/hpungsan/slicerbridge/internal/db"
	"github.com/hpungsan/slicerbridge/internal/errors"
	"github.com/hpungsan/slicerbridge/internal/profile"
	"github.com/hpungsan/slicerbridge/internal/report"
)

// ConvertFile is one input of a Convert call: a path, or inline content with
// a display name.
type ConvertFile struct {
	Name        string `json:"name,omitempty"`
	Path        string `json:"path,omitempty"`
	Content     string `json:"content,omitempty"`
	NozzleSize  string `json:"nozzle_size,omitempty"`
	PlasticType string `json:"plastic_type,omitempty"`
}

// ConvertInput contains parameters for the Convert operation.
type ConvertInput struct {
	Files       []ConvertFile // required
	NozzleSize  string        // default: cfg.DefaultNozzleSize
	Policy      string        // default: cfg.CollisionPolicy
	PlasticType string

	// PhysicalPrinter is inline INI or JSON text. It takes precedence over
	// PhysicalPrinterPath, which defaults to cfg.PhysicalPrinterPath.
	PhysicalPrinter     string
	PhysicalPrinterPath string

	// Decider resolves ambiguities; nil builds one from config.
	Decider profile.Decider

	OutDir string // optional: write each profile as JSON into this directory
	Record bool   // store the batch in the history ledger
	Origin string // default: cli

	Logger *slog.Logger
}

// ConvertOutput contains the result of the Convert operation.
type ConvertOutput struct {
	BatchID   string                     `json:"batch_id,omitempty"`
	Summary   string                     `json:"summary"`
	Results   []convert.Result           `json:"results"`
	Failures  []convert.Failure          `json:"failures,omitempty"`
	Decisions []profile.RecordedDecision `json:"decisions,omitempty"`
	Profiles  []NamedProfile             `json:"profiles"`
	Written   []string                   `json:"written,omitempty"`
	Report    string                     `json:"-"`
}

// Convert runs one conversion batch, optionally writing the profiles to disk
// and recording the batch in the ledger. database may be nil unless Record is set.
func Convert(ctx context.Context, database *sql.DB, cfg *config.Config, input ConvertInput) (*ConvertOutput, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if len(input.Files) == 0 {
		return nil, errors.NewInvalidRequest("at least one file is required")
	}
	if input.Record && database == nil {
		return nil, errors.NewInternal(fmt.Errorf("history database is not open"))
	}

	inputs := make([]convert.Input, len(input.Files))
	for i, f := range input.Files {
		in, err := toInput(f)
		if err != nil {
			return nil, err
		}
		inputs[i] = in
	}

	nozzle := strings.TrimSpace(input.NozzleSize)
	if nozzle == "" {
		nozzle = cfg.DefaultNozzleSize
	}
	policy, err := convert.ParsePolicy(pickString(input.Policy, cfg.CollisionPolicy))
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	origin := pickString(input.Origin, OriginCLI)

	physical, err := loadPhysicalPrinter(input, cfg)
	if err != nil {
		return nil, err
	}

	decider := input.Decider
	if decider == nil {
		d, err := DeciderFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		decider = d
	}

	batch, err := convert.Run(ctx, inputs, convert.Options{
		NozzleSize:      nozzle,
		PlasticType:     strings.TrimSpace(input.PlasticType),
		Policy:          policy,
		HostOS:          runtime.GOOS,
		PhysicalPrinter: physical,
		Decisions:       profile.NewDecisions(decider),
		ReadConcurrency: cfg.ReadConcurrency,
		MaxInputBytes:   cfg.MaxInputBytes,
		ReadFile:        readInputFile,
		Logger:          input.Logger,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	out := &ConvertOutput{
		Summary:   batch.Summary(),
		Results:   batch.Results,
		Failures:  batch.Failures,
		Decisions: batch.Decisions,
		Profiles:  namedProfiles(batch),
	}
	if out.Results == nil {
		out.Results = []convert.Result{}
	}
	if input.Record {
		out.BatchID = newBatchID()
	}
	out.Report = report.Markdown(batch, report.Meta{
		ID:          out.BatchID,
		Origin:      origin,
		NozzleSize:  nozzle,
		Policy:      string(policy),
		PlasticType: input.PlasticType,
		CreatedAt:   now,
	})

	if input.OutDir != "" {
		out.Written, err = writeProfiles(input.OutDir, cfg, out.Profiles)
		if err != nil {
			return nil, err
		}
	}

	if input.Record {
		record, err := batchRecord(out, origin, nozzle, string(policy), input.PlasticType, now)
		if err != nil {
			return nil, err
		}
		if err := db.InsertBatch(ctx, database, record); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func toInput(f ConvertFile) (convert.Input, error) {
	if f.Path == "" && f.Name == "" {
		return convert.Input{}, errors.NewInvalidRequest("each file needs a path or a name with content")
	}
	if f.Path != "" && f.Content != "" {
		return convert.Input{}, errors.NewInvalidRequest("file must specify either path or content, not both")
	}
	in := convert.Input{
		Name:        f.Name,
		Path:        f.Path,
		NozzleSize:  strings.TrimSpace(f.NozzleSize),
		PlasticType: strings.TrimSpace(f.PlasticType),
	}
	if f.Path == "" {
		in.Content = []byte(f.Content)
	}
	return in, nil
}

// loadPhysicalPrinter reads the batch's physical printer. A referenced file
// that cannot be read fails the whole batch.
func loadPhysicalPrinter(input ConvertInput, cfg *config.Config) (convert.PhysicalPrinter, error) {
	text := input.PhysicalPrinter
	if text == "" {
		path := pickString(input.PhysicalPrinterPath, cfg.PhysicalPrinterPath)
		if path == "" {
			return nil, nil
		}
		data, err := readLimitedFile(path, cfg.MaxInputBytes)
		if err != nil {
			return nil, err
		}
		if text, err = convert.Decode(data); err != nil {
			return nil, errors.NewReadFailed(path, err)
		}
	}

	p, err := convert.ParsePhysicalPrinter(text)
	if err != nil {
		return nil, errors.NewInvalidRequest("invalid physical printer: " + err.Error())
	}
	return p, nil
}

// writeProfiles writes each profile as <output name>.json into dir.
func writeProfiles(dir string, cfg *config.Config, profiles []NamedProfile) ([]string, error) {
	if err := ValidateOutputDir(dir, cfg); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.NewInternal(err)
	}

	written := make([]string, 0, len(profiles))
	for _, np := range profiles {
		data, err := marshalProfile(np.Profile)
		if err != nil {
			return written, err
		}
		path := filepath.Join(dir, convert.JSONFileName(np.Name))
		err = writeFileAtomic(path, func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		})
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func batchRecord(out *ConvertOutput, origin, nozzle, policy, plastic string, now time.Time) (*db.Batch, error) {
	results, err := json.Marshal(out.Results)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	b := &db.Batch{
		ID:           out.BatchID,
		Origin:       origin,
		NozzleSize:   nozzle,
		Policy:       policy,
		PlasticType:  plastic,
		Summary:      out.Summary,
		ReportMD:     out.Report,
		ResultsJSON:  string(results),
		ProfileCount: len(out.Profiles),
		FailureCount: len(out.Failures),
		CreatedAt:    now.Unix(),
	}
	if len(out.Failures) > 0 {
		if b.FailuresJSON, err = marshalString(out.Failures); err != nil {
			return nil, err
		}
	}
	if len(out.Decisions) > 0 {
		if b.DecisionsJSON, err = marshalString(out.Decisions); err != nil {
			return nil, err
		}
	}
	for _, np := range out.Profiles {
		data, err := marshalString(np.Profile)
		if err != nil {
			return nil, err
		}
		b.Profiles = append(b.Profiles, db.Profile{Name: np.Name, Type: string(np.Type), JSON: data})
	}
	return b, nil
}

func marshalString(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return string(data), nil
}

func pickString(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
