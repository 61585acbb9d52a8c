package ops

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hpungsan/slicerbridge/internal/convert"
	"github.com/hpungsan/slicerbridge/internal/db"
	"github.com/hpungsan/slicerbridge/internal/errors"
	"github.com/hpungsan/slicerbridge/internal/profile"
	"github.com/hpungsan/slicerbridge/internal/report"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	ID              string // required
	IncludeDeleted  bool
	IncludeProfiles *bool  // default: true (nil means default)
	Section         string // optional: return only this report section
}

// FetchOutput contains the result of the Fetch operation.
type FetchOutput struct {
	db.BatchSummary
	Report    string                     `json:"report"`
	Results   []convert.Result           `json:"results"`
	Failures  []convert.Failure          `json:"failures,omitempty"`
	Decisions []profile.RecordedDecision `json:"decisions,omitempty"`
	Profiles  []NamedProfile             `json:"profiles,omitempty"`
}

// Fetch retrieves one recorded batch by ID.
func Fetch(ctx context.Context, database *sql.DB, input FetchInput) (*FetchOutput, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}

	b, err := db.GetBatch(ctx, database, id, input.IncludeDeleted)
	if err != nil {
		return nil, err
	}

	out := &FetchOutput{
		BatchSummary: summaryOf(b),
		Report:       b.ReportMD,
	}
	if err := unmarshalColumn(b.ResultsJSON, &out.Results); err != nil {
		return nil, err
	}
	if err := unmarshalColumn(b.FailuresJSON, &out.Failures); err != nil {
		return nil, err
	}
	if err := unmarshalColumn(b.DecisionsJSON, &out.Decisions); err != nil {
		return nil, err
	}

	if input.Section != "" {
		sections := report.ParseSections(b.ReportMD)
		s := report.FindSection(sections, input.Section)
		if s == nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("section %q not found; available: %v",
				input.Section, report.SectionNames(sections)))
		}
		out.Report = s.Content(b.ReportMD)
	}

	if input.IncludeProfiles == nil || *input.IncludeProfiles {
		out.Profiles, err = decodeProfiles(b.Profiles)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func summaryOf(b *db.Batch) db.BatchSummary {
	return db.BatchSummary{
		ID:           b.ID,
		Origin:       b.Origin,
		NozzleSize:   b.NozzleSize,
		Policy:       b.Policy,
		PlasticType:  b.PlasticType,
		Summary:      b.Summary,
		ProfileCount: b.ProfileCount,
		FailureCount: b.FailureCount,
		CreatedAt:    b.CreatedAt,
		DeletedAt:    b.DeletedAt,
	}
}

func decodeProfiles(stored []db.Profile) ([]NamedProfile, error) {
	out := make([]NamedProfile, 0, len(stored))
	for _, p := range stored {
		var body profile.Profile
		if err := json.Unmarshal([]byte(p.JSON), &body); err != nil {
			return nil, errors.NewInternal(fmt.Errorf("decode profile %q: %w", p.Name, err))
		}
		out = append(out, NamedProfile{Name: p.Name, Type: profile.Type(p.Type), Profile: body})
	}
	return out, nil
}

// unmarshalColumn decodes a JSON column; an empty column leaves v untouched.
func unmarshalColumn(data string, v any) error {
	if data == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}
