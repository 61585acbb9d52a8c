// Package report renders a conversion batch as a Markdown document. The
// ledger stores the rendered report so history views need no batch types.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/hpungsan/slicerbridge/internal/convert"
	"github.com/hpungsan/slicerbridge/internal/profile"
)

// Meta describes the batch settings shown in the report header.
type Meta struct {
	ID          string
	Origin      string
	NozzleSize  string
	Policy      string
	PlasticType string
	CreatedAt   time.Time
}

// Markdown renders b as a report with Settings, Profiles, Failures and
// Decisions sections.
func Markdown(b *convert.Batch, meta Meta) string {
	var sb strings.Builder

	title := "Conversion batch"
	if meta.ID != "" {
		title += " " + meta.ID
	}
	fmt.Fprintf(&sb, "# %s\n\n%s\n\n", title, b.Summary())

	sb.WriteString("## Settings\n\n")
	writeSetting(&sb, "Nozzle size", meta.NozzleSize)
	writeSetting(&sb, "Collision policy", meta.Policy)
	writeSetting(&sb, "Plastic type", meta.PlasticType)
	writeSetting(&sb, "Origin", meta.Origin)
	if !meta.CreatedAt.IsZero() {
		writeSetting(&sb, "Created", meta.CreatedAt.UTC().Format(time.RFC3339))
	}
	sb.WriteString("\n")

	sb.WriteString("## Profiles\n\n")
	if len(b.Results) == 0 {
		sb.WriteString("(none)\n\n")
	} else {
		sb.WriteString("| Output | Type | Source keys | Converted keys | Outcome |\n")
		sb.WriteString("|---|---|---:|---:|---|\n")
		for _, r := range b.Results {
			fmt.Fprintf(&sb, "| %s | %s | %d | %d | %s |\n",
				cell(r.Name), r.Type, r.SourceKeys, r.Converted, r.Outcome)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Failures\n\n")
	if len(b.Failures) == 0 {
		sb.WriteString("(none)\n\n")
	} else {
		for _, f := range b.Failures {
			fmt.Fprintf(&sb, "- `%s`: [%s] %s\n", f.Source, f.Code, f.Message)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Decisions\n\n")
	if len(b.Decisions) == 0 {
		sb.WriteString("(none)\n")
	} else {
		for _, d := range b.Decisions {
			fmt.Fprintf(&sb, "- %s\n", describeDecision(d))
		}
	}

	return sb.String()
}

func writeSetting(sb *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(sb, "- %s: %s\n", label, value)
}

// cell escapes pipes so a value cannot break the table row.
func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func describeDecision(d profile.RecordedDecision) string {
	a := d.Ambiguity
	switch a.Kind {
	case profile.AmbiguitySupportStyle:
		s := d.Decision.Support
		if s.IsZero() {
			s = a.Proposed
		}
		return fmt.Sprintf("Support style `%s` mapped to %s / %s", a.Value, s.SupportType, s.SupportStyle)
	case profile.AmbiguityCompatibility:
		verb := "kept"
		if !d.Decision.Keep {
			verb = "discarded"
		}
		return fmt.Sprintf("Compatibility condition `%s` %s", a.Field, verb)
	default:
		return fmt.Sprintf("%s `%s`", a.Kind, a.Field)
	}
}
