package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/slicerbridge/internal/db"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Origin         string // optional filter: cli, mcp, web
	Limit          int    // default: 20, max: 100
	Offset         int    // default: 0
	IncludeDeleted bool
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []db.BatchSummary `json:"items"`
	Pagination Pagination        `json:"pagination"`
	Sort       string            `json:"sort"`
}

// List retrieves recorded batch summaries, newest first, with pagination.
func List(ctx context.Context, database *sql.DB, input ListInput) (*ListOutput, error) {
	// Apply limit defaults and bounds
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	// Ensure offset is non-negative
	offset := max(input.Offset, 0)

	filters := db.ListFilters{IncludeDeleted: input.IncludeDeleted}
	if origin := strings.ToLower(strings.TrimSpace(input.Origin)); origin != "" {
		filters.Origin = &origin
	}

	summaries, total, err := db.ListBatches(ctx, database, filters, limit, offset)
	if err != nil {
		return nil, err
	}

	// Ensure we return an empty array rather than nil
	if summaries == nil {
		summaries = []db.BatchSummary{}
	}

	return &ListOutput{
		Items: summaries,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(summaries) < total,
			Total:   total,
		},
		Sort: "created_at_desc",
	}, nil
}
