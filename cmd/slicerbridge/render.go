package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/hpungsan/slicerbridge/internal/errors"
	"github.com/hpungsan/slicerbridge/internal/ops"
)

// Output formats accepted by --format.
const (
	formatJSON  = "json"
	formatTable = "table"
)

func validateFormat(format string) error {
	if format != formatJSON && format != formatTable {
		return errors.NewInvalidRequest(fmt.Sprintf("format must be json or table, got %q", format))
	}
	return nil
}

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

// renderConvert prints the per-profile results, failures and decisions of a batch.
func renderConvert(w io.Writer, out *ops.ConvertOutput) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Name", "Type", "Source", "Keys", "Converted", "Outcome"})
	for _, r := range out.Results {
		t.AppendRow(table.Row{r.Name, r.Type, r.Source, r.SourceKeys, r.Converted, r.Outcome})
	}
	t.Render()

	if len(out.Failures) > 0 {
		f := newTable(w)
		f.AppendHeader(table.Row{"Source", "Code", "Message"})
		for _, fail := range out.Failures {
			f.AppendRow(table.Row{fail.Source, fail.Code, fail.Message})
		}
		f.Render()
	}

	for _, d := range out.Decisions {
		_, _ = fmt.Fprintf(w, "decision: %s on %s -> keep=%t", d.Ambiguity.Kind, d.Ambiguity.Field, d.Decision.Keep)
		if !d.Decision.Support.IsZero() {
			_, _ = fmt.Fprintf(w, " support=%s", styleName(d.Decision.Support))
		}
		_, _ = fmt.Fprintln(w)
	}
	for _, path := range out.Written {
		_, _ = fmt.Fprintf(w, "wrote %s\n", displayPath(path))
	}

	_, _ = fmt.Fprintln(w, out.Summary)
	if out.BatchID != "" {
		_, _ = fmt.Fprintf(w, "batch %s\n", out.BatchID)
	}
}

func renderClassify(w io.Writer, out *ops.ClassifyOutput) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Name", "Block", "Type", "Keys"})
	for _, c := range out.Profiles {
		block := c.BlockType
		if c.BlockName != "" {
			block = c.BlockType + ":" + c.BlockName
		}
		t.AppendRow(table.Row{c.Name, block, c.Type, c.Keys})
	}
	t.Render()
}

func renderHistory(w io.Writer, out *ops.ListOutput) {
	if len(out.Items) == 0 {
		_, _ = fmt.Fprintln(w, "(no batches)")
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Origin", "Created", "Profiles", "Failures", "Summary", "Deleted"})
	for _, b := range out.Items {
		deleted := ""
		if b.DeletedAt != nil {
			deleted = formatUnix(*b.DeletedAt)
		}
		t.AppendRow(table.Row{b.ID, b.Origin, formatUnix(b.CreatedAt), b.ProfileCount, b.FailureCount, b.Summary, deleted})
	}
	t.Render()

	p := out.Pagination
	_, _ = fmt.Fprintf(w, "(%d-%d of %d)\n", p.Offset+1, p.Offset+len(out.Items), p.Total)
}

func formatUnix(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}
