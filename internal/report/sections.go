package report

import (
	"regexp"
	"strings"
)

// Section is one "##"-level part of a report.
type Section struct {
	Name         string // header text, e.g. "Profiles"
	Canonical    string // canonical name if matched, empty for custom
	HeaderStart  int    // byte offset of the header line
	ContentStart int    // byte offset after the header line
	ContentEnd   int    // byte offset of the next header or EOF
}

// Content returns the section body from text, trimmed.
func (s Section) Content(text string) string {
	return strings.TrimSpace(text[s.ContentStart:s.ContentEnd])
}

// headerPattern matches markdown headers (h1-h6) at the start of a line.
// Groups: full match, hash symbols, header text
var headerPattern = regexp.MustCompile(`(?m)^(#{1,6})\s+([^\n]+?)[ \t]*$`)

// fencePattern matches fenced code block delimiters at the start of a line.
var fencePattern = regexp.MustCompile("(?m)^[ ]{0,3}(`{3,}|~{3,})")

// canonicalSections maps accepted section names to their canonical form.
var canonicalSections = map[string]string{
	"settings":    "settings",
	"options":     "settings",
	"profiles":    "profiles",
	"results":     "profiles",
	"outputs":     "profiles",
	"failures":    "failures",
	"errors":      "failures",
	"decisions":   "decisions",
	"ambiguities": "decisions",
}

// MatchCanonical returns the canonical section name for name, or "".
func MatchCanonical(name string) string {
	return canonicalSections[strings.ToLower(strings.TrimSpace(name))]
}

// fencedRanges returns byte offset ranges [start, end) for fenced code blocks.
// A closing fence must use the opening character and be at least as long.
func fencedRanges(text string) [][2]int {
	matches := fencePattern.FindAllStringSubmatchIndex(text, -1)
	var ranges [][2]int
	var openChar byte
	var openLen, openStart int
	inFence := false

	for _, m := range matches {
		chars := text[m[2]:m[3]]
		switch {
		case !inFence:
			openChar, openLen, openStart = chars[0], len(chars), m[0]
			inFence = true
		case chars[0] == openChar && len(chars) >= openLen:
			ranges = append(ranges, [2]int{openStart, m[1]})
			inFence = false
		}
	}
	return ranges
}

func insideFence(pos int, ranges [][2]int) bool {
	for _, r := range ranges {
		if pos >= r[0] && pos < r[1] {
			return true
		}
	}
	return false
}

// ParseSections finds the level-2 sections of a report. Headers inside
// fenced code blocks are ignored. Returns nil when there are none.
func ParseSections(text string) []Section {
	fences := fencedRanges(text)
	var matches [][]int
	for _, m := range headerPattern.FindAllStringSubmatchIndex(text, -1) {
		if m[3]-m[2] != 2 || insideFence(m[0], fences) {
			continue
		}
		matches = append(matches, m)
	}
	if len(matches) == 0 {
		return nil
	}

	sections := make([]Section, len(matches))
	for i, m := range matches {
		contentStart := m[1]
		if contentStart < len(text) && text[contentStart] == '\n' {
			contentStart++
		}
		contentEnd := len(text)
		if i+1 < len(matches) {
			contentEnd = matches[i+1][0]
		}
		name := text[m[4]:m[5]]
		sections[i] = Section{
			Name:         name,
			Canonical:    MatchCanonical(name),
			HeaderStart:  m[0],
			ContentStart: contentStart,
			ContentEnd:   contentEnd,
		}
	}
	return sections
}

// FindSection finds a section by name, synonym-aware and case-insensitive.
func FindSection(sections []Section, name string) *Section {
	if canonical := MatchCanonical(name); canonical != "" {
		for i := range sections {
			if sections[i].Canonical == canonical {
				return &sections[i]
			}
		}
	}
	for i := range sections {
		if strings.EqualFold(sections[i].Name, strings.TrimSpace(name)) {
			return &sections[i]
		}
	}
	return nil
}

// SectionNames returns the header names of sections, for error messages.
func SectionNames(sections []Section) []string {
	names := make([]string, len(sections))
	for i, s := range sections {
		names[i] = s.Name
	}
	return names
}
