package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/slicerbridge/internal/convert"
	"github.com/hpungsan/slicerbridge/internal/profile"
)

func runBatch(t *testing.T, inputs ...convert.Input) *convert.Batch {
	t.Helper()
	b, err := convert.Run(context.Background(), inputs, convert.Options{NozzleSize: "0.4"})
	require.NoError(t, err)
	return b
}

func TestMarkdown(t *testing.T) {
	b := runBatch(t,
		convert.Input{Name: "a|b.ini", Content: []byte("layer_height = 0.2\nsupport_material_style = organic")},
		convert.Input{Path: "/does/not/exist.ini"},
	)

	md := Markdown(b, Meta{
		ID:         "01HX",
		Origin:     "cli",
		NozzleSize: "0.4",
		Policy:     "skip",
		CreatedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})

	assert.Contains(t, md, "# Conversion batch 01HX\n\nConverted 1 profile.")
	assert.Contains(t, md, "- Nozzle size: 0.4\n")
	assert.Contains(t, md, "- Created: 2026-03-01T12:00:00Z\n")
	assert.NotContains(t, md, "Plastic type")
	assert.Contains(t, md, `| a\|b.ini | print | 2 | 3 | stored |`)
	assert.Contains(t, md, "- `exist.ini`: [FILE_NOT_FOUND]")
	assert.Contains(t, md, "- Support style `organic` mapped to tree(auto) / organic")

	sections := ParseSections(md)
	assert.Equal(t, []string{"Settings", "Profiles", "Failures", "Decisions"}, SectionNames(sections))
}

func TestMarkdown_Empty(t *testing.T) {
	md := Markdown(&convert.Batch{}, Meta{})
	assert.Contains(t, md, "# Conversion batch\n\nConverted 0 profiles.")

	failures := FindSection(ParseSections(md), "failures")
	require.NotNil(t, failures)
	assert.Equal(t, "(none)", failures.Content(md))
}

func TestDescribeDecision_Compatibility(t *testing.T) {
	d := profile.RecordedDecision{
		Ambiguity: profile.Ambiguity{Kind: profile.AmbiguityCompatibility, Field: "compatible_printers_condition"},
		Decision:  profile.Decision{Keep: false},
	}
	assert.Equal(t, "Compatibility condition `compatible_printers_condition` discarded", describeDecision(d))
}

func TestParseSections_IgnoresFencesAndOtherLevels(t *testing.T) {
	text := "# Title\n\n## Profiles\nrow\n```\n## Not a section\n```\n### Detail\nmore\n## Errors\nboom\n"

	sections := ParseSections(text)
	require.Len(t, sections, 2)
	assert.Equal(t, "Profiles", sections[0].Name)
	assert.Equal(t, "row\n```\n## Not a section\n```\n### Detail\nmore", sections[0].Content(text))

	s := FindSection(sections, "FAILURES")
	require.NotNil(t, s)
	assert.Equal(t, "Errors", s.Name)
	assert.Equal(t, "boom", s.Content(text))
}

func TestFindSection(t *testing.T) {
	sections := ParseSections("## Custom Notes\nx\n## Results\ny")

	require.NotNil(t, FindSection(sections, "custom notes"))
	assert.Equal(t, "Results", FindSection(sections, "profiles").Name)
	assert.Nil(t, FindSection(sections, "decisions"))
	assert.Nil(t, FindSection(nil, "profiles"))
}
