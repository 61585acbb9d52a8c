package mcp

import "github.com/mark3labs/mcp-go/mcp"

var fileItemSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"name":         map[string]any{"type": "string", "description": "Display name for inline content (e.g. \"PLA.ini\")"},
		"path":         map[string]any{"type": "string", "description": "Path of a PrusaSlicer .ini file or bundle"},
		"content":      map[string]any{"type": "string", "description": "Inline INI text; requires name"},
		"nozzle_size":  map[string]any{"type": "string", "description": "Overrides the batch nozzle size for this file"},
		"plastic_type": map[string]any{"type": "string", "description": "Overrides the batch plastic type for this file"},
	},
}

var convertToolDef = mcp.NewTool("profile_convert",
	mcp.WithDescription("Convert PrusaSlicer INI profiles or config bundles into OrcaSlicer JSON profiles. "+
		"Returns the converted profiles, per-profile results, failures and any ambiguity decisions. "+
		"The batch is recorded in the conversion history unless record is false."),
	mcp.WithArray("files",
		mcp.Required(),
		mcp.Description("Input files, each given by path or by name plus inline content"),
		mcp.Items(fileItemSchema),
	),
	mcp.WithString("nozzle_size", mcp.Description("Nozzle diameter written into every profile (default from config, 0.4)")),
	mcp.WithString("policy",
		mcp.Description("What to do when two inputs produce the same output name"),
		mcp.Enum("skip", "overwrite", "merge"),
	),
	mcp.WithString("plastic_type", mcp.Description("Plastic type recorded on filament profiles (e.g. PLA, PETG)")),
	mcp.WithString("physical_printer", mcp.Description("Inline physical printer INI or JSON merged into printer profiles")),
	mcp.WithString("physical_printer_path", mcp.Description("Path of a physical printer .ini or .json file")),
	mcp.WithString("support_style",
		mcp.Description("Support style used when a print profile is ambiguous"),
		mcp.Enum("grid", "snug", "tree", "organic"),
	),
	mcp.WithString("compatibility",
		mcp.Description("Keep or discard compatible_printers_condition style fields"),
		mcp.Enum("keep", "discard"),
	),
	mcp.WithString("out_dir", mcp.Description("Write each profile as <name>.json into this directory (must be ~/.slicerbridge/profiles or an allowed path)")),
	mcp.WithBoolean("record", mcp.Description("Record the batch in the conversion history (default true)")),
	mcp.WithBoolean("include_report", mcp.Description("Include the Markdown batch report (default false)")),
)

var classifyToolDef = mcp.NewTool("profile_classify",
	mcp.WithDescription("Detect whether each profile in a PrusaSlicer INI file or bundle is a print, filament or printer profile, without converting it."),
	mcp.WithString("path", mcp.Description("Path of the INI file")),
	mcp.WithString("name", mcp.Description("Display name for inline content")),
	mcp.WithString("content", mcp.Description("Inline INI text")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var inheritToolDef = mcp.NewTool("profile_inherit",
	mcp.WithDescription("Turn a converted filament profile into an OrcaSlicer user profile that inherits from the matching system profile, keeping only fields that differ from the base."),
	mcp.WithString("source_path", mcp.Description("Path of a converted filament profile (.json)")),
	mcp.WithObject("source", mcp.Description("Inline converted filament profile; used when source_path is empty")),
	mcp.WithString("plastic", mcp.Description("Plastic type (PLA, PETG, ABS, NYLON); detected when omitted")),
	mcp.WithString("name", mcp.Description("Profile name; defaults to profile_name or the file name")),
	mcp.WithString("base_dir", mcp.Description("Directory holding the OrcaSlicer system filament profiles (default from config)")),
	mcp.WithString("out_dir", mcp.Description("Write <name>.json into this directory")),
)

var listToolDef = mcp.NewTool("history_list",
	mcp.WithDescription("List recorded conversion batches, newest first."),
	mcp.WithString("origin",
		mcp.Description("Only batches started from this surface"),
		mcp.Enum("cli", "mcp", "web"),
	),
	mcp.WithNumber("limit", mcp.Description("Maximum results (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Results to skip")),
	mcp.WithBoolean("include_deleted", mcp.Description("Include soft-deleted batches")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var fetchToolDef = mcp.NewTool("history_fetch",
	mcp.WithDescription("Fetch one recorded conversion batch with its report and profiles."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Batch ID")),
	mcp.WithBoolean("include_deleted", mcp.Description("Allow fetching a soft-deleted batch")),
	mcp.WithBoolean("include_profiles", mcp.Description("Include the converted profiles (default true)")),
	mcp.WithString("section", mcp.Description("Return only this report section (Settings, Profiles, Failures, Decisions)")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var deleteToolDef = mcp.NewTool("history_delete",
	mcp.WithDescription("Soft-delete a recorded conversion batch. history_purge removes it permanently."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Batch ID")),
	mcp.WithDestructiveHintAnnotation(true),
)

var exportToolDef = mcp.NewTool("history_export",
	mcp.WithDescription("Export recorded conversion batches to a JSONL file."),
	mcp.WithString("path", mcp.Description("Output .jsonl path (default ~/.slicerbridge/exports/<origin|all>-<timestamp>.jsonl)")),
	mcp.WithString("origin", mcp.Description("Only export batches from this surface")),
	mcp.WithBoolean("include_deleted", mcp.Description("Include soft-deleted batches")),
)

var importToolDef = mcp.NewTool("history_import",
	mcp.WithDescription("Import conversion batches from a JSONL export file."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Path of the .jsonl file")),
	mcp.WithString("mode",
		mcp.Description("ID collision handling (default error)"),
		mcp.Enum("error", "replace", "rename"),
	),
)

var purgeToolDef = mcp.NewTool("history_purge",
	mcp.WithDescription("Permanently delete soft-deleted conversion batches."),
	mcp.WithNumber("older_than_days", mcp.Description("Only purge batches deleted more than N days ago")),
	mcp.WithDestructiveHintAnnotation(true),
)
