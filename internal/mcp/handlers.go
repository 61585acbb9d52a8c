package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/slicerbridge/internal/config"
	"github.com/hpungsan/slicerbridge/internal/errors"
	"github.com/hpungsan/slicerbridge/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db     *sql.DB
	cfg    *config.Config
	logger *slog.Logger
}

// NewHandlers creates a new Handlers instance. A nil logger discards output.
func NewHandlers(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{db: db, cfg: cfg, logger: logger.With("surface", ops.OriginMCP)}
}

// Request types for each tool

// ConvertRequest represents the arguments for profile_convert.
type ConvertRequest struct {
	Files               []ops.ConvertFile `json:"files"`
	NozzleSize          string            `json:"nozzle_size,omitempty"`
	Policy              string            `json:"policy,omitempty"`
	PlasticType         string            `json:"plastic_type,omitempty"`
	PhysicalPrinter     string            `json:"physical_printer,omitempty"`
	PhysicalPrinterPath string            `json:"physical_printer_path,omitempty"`
	SupportStyle        string            `json:"support_style,omitempty"`
	Compatibility       string            `json:"compatibility,omitempty"`
	OutDir              string            `json:"out_dir,omitempty"`
	Record              *bool             `json:"record,omitempty"`
	IncludeReport       bool              `json:"include_report,omitempty"`
}

// ClassifyRequest represents the arguments for profile_classify.
type ClassifyRequest struct {
	Path    string `json:"path,omitempty"`
	Name    string `json:"name,omitempty"`
	Content string `json:"content,omitempty"`
}

// InheritRequest represents the arguments for profile_inherit.
type InheritRequest struct {
	SourcePath string         `json:"source_path,omitempty"`
	Source     map[string]any `json:"source,omitempty"`
	Plastic    string         `json:"plastic,omitempty"`
	Name       string         `json:"name,omitempty"`
	BaseDir    string         `json:"base_dir,omitempty"`
	OutDir     string         `json:"out_dir,omitempty"`
}

// ListRequest represents the arguments for history_list.
type ListRequest struct {
	Origin         string `json:"origin,omitempty"`
	Limit          int    `json:"limit,omitempty"`
	Offset         int    `json:"offset,omitempty"`
	IncludeDeleted bool   `json:"include_deleted,omitempty"`
}

// FetchRequest represents the arguments for history_fetch.
type FetchRequest struct {
	ID              string `json:"id"`
	IncludeDeleted  bool   `json:"include_deleted,omitempty"`
	IncludeProfiles *bool  `json:"include_profiles,omitempty"`
	Section         string `json:"section,omitempty"`
}

// DeleteRequest represents the arguments for history_delete.
type DeleteRequest struct {
	ID string `json:"id"`
}

// ExportRequest represents the arguments for history_export.
type ExportRequest struct {
	Path           string `json:"path,omitempty"`
	Origin         string `json:"origin,omitempty"`
	IncludeDeleted bool   `json:"include_deleted,omitempty"`
}

// ImportRequest represents the arguments for history_import.
type ImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// PurgeRequest represents the arguments for history_purge.
type PurgeRequest struct {
	OlderThanDays *int `json:"older_than_days,omitempty"`
}

// convertResult adds the Markdown report, which ops.ConvertOutput keeps out
// of its JSON form.
type convertResult struct {
	*ops.ConvertOutput
	Report string `json:"report,omitempty"`
}

// Handler implementations

// HandleConvert handles the profile_convert tool call.
func (h *Handlers) HandleConvert(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ConvertRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	// Tool arguments override the configured headless choices for this call
	cfg := *h.cfg
	if input.SupportStyle != "" {
		cfg.SupportStyleChoice = input.SupportStyle
	}
	if input.Compatibility != "" {
		cfg.CompatibilityChoice = input.Compatibility
	}

	record := input.Record == nil || *input.Record
	result, err := ops.Convert(ctx, h.db, &cfg, ops.ConvertInput{
		Files:               input.Files,
		NozzleSize:          input.NozzleSize,
		Policy:              input.Policy,
		PlasticType:         input.PlasticType,
		PhysicalPrinter:     input.PhysicalPrinter,
		PhysicalPrinterPath: input.PhysicalPrinterPath,
		OutDir:              input.OutDir,
		Record:              record,
		Origin:              ops.OriginMCP,
		Logger:              h.logger,
	})
	if err != nil {
		return errorResult(err), nil
	}

	out := convertResult{ConvertOutput: result}
	if input.IncludeReport {
		out.Report = result.Report
	}
	return successResult(out)
}

// HandleClassify handles the profile_classify tool call.
func (h *Handlers) HandleClassify(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ClassifyRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Classify(h.cfg, ops.ClassifyInput{
		Path:    input.Path,
		Name:    input.Name,
		Content: input.Content,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleInherit handles the profile_inherit tool call.
func (h *Handlers) HandleInherit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[InheritRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Inherit(h.cfg, ops.InheritInput{
		SourcePath: input.SourcePath,
		Source:     input.Source,
		Plastic:    input.Plastic,
		Name:       input.Name,
		BaseDir:    input.BaseDir,
		OutDir:     input.OutDir,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleList handles the history_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(ctx, h.db, ops.ListInput{
		Origin:         input.Origin,
		Limit:          input.Limit,
		Offset:         input.Offset,
		IncludeDeleted: input.IncludeDeleted,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFetch handles the history_fetch tool call.
func (h *Handlers) HandleFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FetchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Fetch(ctx, h.db, ops.FetchInput{
		ID:              input.ID,
		IncludeDeleted:  input.IncludeDeleted,
		IncludeProfiles: input.IncludeProfiles,
		Section:         input.Section,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDelete handles the history_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DeleteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Delete(ctx, h.db, ops.DeleteInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleExport handles the history_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(ctx, h.db, h.cfg, ops.ExportInput{
		Path:           input.Path,
		Origin:         input.Origin,
		IncludeDeleted: input.IncludeDeleted,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleImport handles the history_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Import(ctx, h.db, h.cfg, ops.ImportInput{
		Path: input.Path,
		Mode: ops.ImportMode(input.Mode),
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePurge handles the history_purge tool call.
func (h *Handlers) HandlePurge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PurgeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Purge(ctx, h.db, ops.PurgeInput{OlderThanDays: input.OlderThanDays})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var bErr *errors.BridgeError
	if stderrors.As(err, &bErr) {
		// A wrapping error carries context the bare code message lacks
		message := bErr.Message
		if err != error(bErr) && bErr.Code != errors.ErrInternal {
			message = err.Error()
		}
		errorObj := map[string]any{
			"code":    bErr.Code,
			"message": message,
			"status":  bErr.Status,
		}
		if bErr.Code != errors.ErrInternal && bErr.Details != nil {
			errorObj["details"] = bErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
