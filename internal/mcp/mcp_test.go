package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/slicerbridge/internal/config"
	"github.com/hpungsan/slicerbridge/internal/db"
	"github.com/hpungsan/slicerbridge/internal/errors"
)

// testSetup creates a temporary database and config for testing.
func testSetup(t *testing.T) (*sql.DB, *config.Config, func()) {
	t.Helper()

	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true // Allow temp dirs in tests

	cleanup := func() {
		database.Close()
	}

	return database, cfg, cleanup
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func inlineFile(name, content string) map[string]any {
	return map[string]any{"name": name, "content": content}
}

// convertOne records a single-file batch and returns its ID.
func convertOne(t *testing.T, h *Handlers, name, content string) string {
	t.Helper()
	result, err := h.HandleConvert(context.Background(), makeRequest(map[string]any{
		"files": []any{inlineFile(name, content)},
	}))
	if err != nil {
		t.Fatalf("HandleConvert returned error: %v", err)
	}
	output := parseOutput(t, result)
	id, _ := output["batch_id"].(string)
	if id == "" {
		t.Fatalf("expected batch_id, got %v", output)
	}
	return id
}

func TestHandleConvert(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	h := NewHandlers(database, cfg, nil)
	ctx := context.Background()

	tests := []struct {
		name      string
		args      map[string]any
		wantError string
	}{
		{
			name: "inline bundle",
			args: map[string]any{
				"files": []any{inlineFile("bundle.ini", "[filament: PLA]\ntemperature = 210\n[print: 0.2mm]\nlayer_height = 0.2")},
			},
		},
		{
			name: "no record",
			args: map[string]any{
				"files":  []any{inlineFile("a.ini", "layer_height = 0.2")},
				"record": false,
			},
		},
		{
			name:      "missing files",
			args:      map[string]any{},
			wantError: "INVALID_REQUEST",
		},
		{
			name: "bad policy",
			args: map[string]any{
				"files":  []any{inlineFile("a.ini", "layer_height = 0.2")},
				"policy": "replace",
			},
			wantError: "INVALID_REQUEST",
		},
		{
			name: "bad support style",
			args: map[string]any{
				"files":         []any{inlineFile("a.ini", "layer_height = 0.2")},
				"support_style": "spiral",
			},
			wantError: "INVALID_REQUEST",
		},
		{
			name: "unknown argument",
			args: map[string]any{
				"files":  []any{inlineFile("a.ini", "layer_height = 0.2")},
				"nozzle": "0.6",
			},
			wantError: "INVALID_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleConvert(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantError != "" {
				if !result.IsError {
					t.Fatal("expected error result")
				}
				assertErrorCode(t, result, tt.wantError)
				return
			}
			output := parseOutput(t, result)
			record := tt.args["record"] != false
			if _, ok := output["batch_id"]; ok != record {
				t.Errorf("batch_id present = %v, want %v", ok, record)
			}
			if _, ok := output["report"]; ok {
				t.Error("report should be omitted unless requested")
			}
		})
	}
}

func TestHandleConvert_DecisionsAndReport(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	h := NewHandlers(database, cfg, nil)
	result, err := h.HandleConvert(context.Background(), makeRequest(map[string]any{
		"files": []any{inlineFile("p.ini",
			"layer_height = 0.2\nsupport_material_style = grid\ncompatible_printers_condition = nozzle_diameter[0]==0.4")},
		"support_style":  "organic",
		"compatibility":  "discard",
		"record":         false,
		"include_report": true,
	}))
	if err != nil {
		t.Fatalf("HandleConvert returned error: %v", err)
	}
	output := parseOutput(t, result)

	decisions, _ := output["decisions"].([]any)
	if len(decisions) != 2 {
		t.Errorf("decisions = %v, want 2", output["decisions"])
	}
	report, _ := output["report"].(string)
	if !strings.Contains(report, "## Decisions") {
		t.Errorf("report missing decisions section: %q", report)
	}

	profiles := output["profiles"].([]any)
	p := profiles[0].(map[string]any)["profile"].(map[string]any)
	if got, ok := p["compatible_printers_condition"]; !ok || got != "" {
		t.Errorf("compatible_printers_condition = %v (present=%v), want discarded to \"\"", got, ok)
	}

	// The handler's config is not modified by per-call choices
	if cfg.SupportStyleChoice != "" || cfg.CompatibilityChoice != "keep" {
		t.Errorf("config mutated: %+v", cfg)
	}
}

func TestHandleClassify(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	h := NewHandlers(database, cfg, nil)
	result, err := h.HandleClassify(context.Background(), makeRequest(map[string]any{
		"name":    "x.ini",
		"content": "filament_type = PETG\ntemperature = 240\nbed_temperature = 80",
	}))
	if err != nil {
		t.Fatalf("HandleClassify returned error: %v", err)
	}
	output := parseOutput(t, result)
	profiles := output["profiles"].([]any)
	if len(profiles) != 1 || profiles[0].(map[string]any)["type"] != "filament" {
		t.Errorf("profiles = %v", profiles)
	}

	result, _ = h.HandleClassify(context.Background(), makeRequest(map[string]any{}))
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestHandleInherit(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	baseDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(baseDir, "fdm_filament_abs.json"),
		[]byte(`{"filament_diameter": "1.75", "filament_density": "1.04"}`), 0600); err != nil {
		t.Fatalf("write base: %v", err)
	}

	h := NewHandlers(database, cfg, nil)
	result, err := h.HandleInherit(context.Background(), makeRequest(map[string]any{
		"source":   map[string]any{"filament_type": "ABS", "nozzle_temperature": "250"},
		"name":     "My ABS",
		"base_dir": baseDir,
	}))
	if err != nil {
		t.Fatalf("HandleInherit returned error: %v", err)
	}
	output := parseOutput(t, result)
	if output["plastic"] != "ABS" || output["inherits"] != "fdm_filament_abs" {
		t.Errorf("output = %v", output)
	}

	result, _ = h.HandleInherit(context.Background(), makeRequest(map[string]any{
		"source":   map[string]any{},
		"name":     "x",
		"plastic":  "PVA",
		"base_dir": baseDir,
	}))
	assertErrorCode(t, result, "UNKNOWN_PLASTIC_TYPE")
}

func TestHandleListAndFetch(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	h := NewHandlers(database, cfg, nil)
	ctx := context.Background()
	id := convertOne(t, h, "a.ini", "layer_height = 0.2")
	convertOne(t, h, "b.ini", "layer_height = 0.3")

	result, err := h.HandleList(ctx, makeRequest(map[string]any{"origin": "mcp", "limit": 1}))
	if err != nil {
		t.Fatalf("HandleList returned error: %v", err)
	}
	output := parseOutput(t, result)
	items := output["items"].([]any)
	if len(items) != 1 {
		t.Errorf("items = %d, want 1", len(items))
	}
	pagination := output["pagination"].(map[string]any)
	if pagination["total"] != float64(2) || pagination["has_more"] != true {
		t.Errorf("pagination = %v", pagination)
	}

	result, err = h.HandleFetch(ctx, makeRequest(map[string]any{
		"id":               id,
		"include_profiles": false,
		"section":          "profiles",
	}))
	if err != nil {
		t.Fatalf("HandleFetch returned error: %v", err)
	}
	output = parseOutput(t, result)
	if output["origin"] != "mcp" {
		t.Errorf("origin = %v", output["origin"])
	}
	if _, ok := output["profiles"]; ok {
		t.Error("profiles should be omitted")
	}
	if !strings.Contains(output["report"].(string), "| a.ini |") {
		t.Errorf("report section = %q", output["report"])
	}

	result, _ = h.HandleFetch(ctx, makeRequest(map[string]any{"id": "missing"}))
	assertErrorCode(t, result, "NOT_FOUND")
}

func TestHandleDeleteExportImportPurge(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	h := NewHandlers(database, cfg, nil)
	ctx := context.Background()
	id := convertOne(t, h, "a.ini", "filament_type = PLA")

	exportPath := filepath.Join(t.TempDir(), "history.jsonl")
	result, err := h.HandleExport(ctx, makeRequest(map[string]any{"path": exportPath}))
	if err != nil {
		t.Fatalf("HandleExport returned error: %v", err)
	}
	if output := parseOutput(t, result); output["count"] != float64(1) {
		t.Errorf("export count = %v", output["count"])
	}

	result, _ = h.HandleDelete(ctx, makeRequest(map[string]any{"id": id}))
	parseOutput(t, result)

	result, _ = h.HandlePurge(ctx, makeRequest(map[string]any{"older_than_days": 1}))
	if output := parseOutput(t, result); output["purged"] != float64(0) {
		t.Errorf("purged = %v, want 0 (deleted just now)", output["purged"])
	}
	result, _ = h.HandlePurge(ctx, makeRequest(map[string]any{}))
	if output := parseOutput(t, result); output["purged"] != float64(1) {
		t.Errorf("purged = %v, want 1", output["purged"])
	}

	result, _ = h.HandleImport(ctx, makeRequest(map[string]any{"path": exportPath}))
	if output := parseOutput(t, result); output["imported"] != float64(1) {
		t.Errorf("imported = %v", output["imported"])
	}

	// Importing again collides with the restored batch
	result, _ = h.HandleImport(ctx, makeRequest(map[string]any{"path": exportPath}))
	output := parseOutput(t, result)
	errs := output["errors"].([]any)
	if len(errs) != 1 || errs[0].(map[string]any)["code"] != "ID_COLLISION" {
		t.Errorf("errors = %v", errs)
	}

	result, _ = h.HandleImport(ctx, makeRequest(map[string]any{"path": exportPath, "mode": "merge"}))
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestServerRegistration(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	s := NewServer(database, cfg, "test", nil)
	tools := s.ListTools()
	if tools == nil {
		t.Fatal("expected tools to be registered, got nil")
	}

	expectedTools := []string{
		"profile_convert",
		"profile_classify",
		"profile_inherit",
		"history_list",
		"history_fetch",
		"history_delete",
		"history_export",
		"history_import",
		"history_purge",
	}

	if len(tools) != len(expectedTools) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(expectedTools))
	}

	for _, name := range expectedTools {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	cfg.DisabledTools = []string{"history_purge", "history_delete", "history_purge", "no_such_tool"}
	s := NewServer(database, cfg, "test", nil)
	tools := s.ListTools()

	if len(tools) != 7 {
		t.Errorf("registered tool count = %d, want 7", len(tools))
	}
	for _, name := range []string{"history_purge", "history_delete"} {
		if _, ok := tools[name]; ok {
			t.Errorf("disabled tool %q should not be registered", name)
		}
	}
	if _, ok := tools["profile_convert"]; !ok {
		t.Error("profile_convert should be registered")
	}
}

func TestServerRegistration_AllToolsDisabled(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	cfg.DisabledTools = AllToolNames()
	s := NewServer(database, cfg, "test", nil)

	if tools := s.ListTools(); len(tools) != 0 {
		t.Errorf("registered tool count = %d, want 0 (all disabled)", len(tools))
	}
}

func TestValidateDisabledTools(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		wantLen int
	}{
		{"all valid", []string{"history_purge", "profile_inherit"}, 0},
		{"one unknown", []string{"history_purge", "profile_upload"}, 1},
		{"all unknown", []string{"foo", "bar", "baz"}, 3},
		{"empty list", []string{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unknown := ValidateDisabledTools(tt.input)
			if len(unknown) != tt.wantLen {
				t.Errorf("ValidateDisabledTools() returned %d unknown, want %d", len(unknown), tt.wantLen)
			}
		})
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()
	if len(names) != len(toolRegistry) {
		t.Errorf("AllToolNames() returned %d names, want %d", len(names), len(toolRegistry))
	}
	if names[0] != "history_delete" {
		t.Errorf("names should be sorted, first = %q", names[0])
	}
	if unknown := ValidateDisabledTools(names); len(unknown) != 0 {
		t.Errorf("AllToolNames() returned invalid names: %v", unknown)
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(errors.NewInternal(fmt.Errorf("sql error: open /tmp/secret.db: permission denied")))
	if !r.IsError {
		t.Fatal("expected IsError=true")
	}

	errObj := errorObject(t, r)
	if errObj["code"] != string(errors.ErrInternal) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrInternal)
	}
	if _, ok := errObj["details"]; ok {
		t.Fatal("expected INTERNAL errors to omit details")
	}
	if strings.Contains(errObj["message"].(string), "secret") {
		t.Fatal("internal message leaked")
	}
}

func TestErrorResult_WrappedErrorPreservesContext(t *testing.T) {
	wrapped := fmt.Errorf("files[2]: %w", errors.NewFileNotFound("/tmp/x.ini"))

	errObj := errorObject(t, errorResult(wrapped))
	if errObj["code"] != string(errors.ErrFileNotFound) {
		t.Errorf("code=%v, want %v", errObj["code"], errors.ErrFileNotFound)
	}
	if msg := errObj["message"].(string); !strings.Contains(msg, "files[2]") {
		t.Errorf("message should contain wrapper context, got: %s", msg)
	}
}

func TestErrorResult_PlainError(t *testing.T) {
	errObj := errorObject(t, errorResult(fmt.Errorf("boom")))
	if errObj["code"] != string(errors.ErrInternal) || errObj["message"] != "an internal error occurred" {
		t.Errorf("error = %v", errObj)
	}
}

// Helper functions

func errorObject(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	return payload["error"].(map[string]any)
}

// parseOutput extracts and unmarshals the JSON output from an MCP result.
func parseOutput(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %v", extractErrorMessage(result))
	}
	var output map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &output); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return output
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()

	if !result.IsError {
		t.Errorf("expected error result with code %q", expectedCode)
		return
	}
	if code, _ := errorObject(t, result)["code"].(string); code != expectedCode {
		t.Errorf("got error code %q, want %q", code, expectedCode)
	}
}

func extractErrorMessage(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return "<no content>"
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}

	return text.Text
}
