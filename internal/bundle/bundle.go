// Package bundle splits a slicer config bundle ("[print: 0.20mm QUALITY]"
// sections) into independently parseable blocks.
package bundle

import (
	"iter"
	"regexp"
	"strings"
)

// Block is one profile extracted from a bundle.
type Block struct {
	ProfileType string `json:"profile_type"`
	ProfileName string `json:"profile_name"`
	Content     string `json:"content"`
}

// headerPattern matches "[Type Words: Profile Name]" on its own line.
// Groups: type, name.
var headerPattern = regexp.MustCompile(`(?m)^\[([\w \t+\-]+):([^\]\n]+)\][ \t]*\r?$`)

// sectionPattern matches any bracketed section line. A block ends at the
// next section line even when that section is not a profile header
// (e.g. "[presets]").
var sectionPattern = regexp.MustCompile(`(?m)^\[[^\n]*$`)

// Split lazily yields the profile blocks of text in order. Text without any
// header yields nothing; callers treat it as a single profile.
func Split(text string) iter.Seq[Block] {
	return func(yield func(Block) bool) {
		pos := 0
		for pos < len(text) {
			loc := headerPattern.FindStringSubmatchIndex(text[pos:])
			if loc == nil {
				return
			}

			// The header match stops before its newline, so the section
			// search cannot land on the header itself.
			bodyStart := pos + loc[1]
			bodyEnd := len(text)
			if next := sectionPattern.FindStringIndex(text[bodyStart:]); next != nil {
				bodyEnd = bodyStart + next[0]
			}

			block := Block{
				ProfileType: strings.TrimSpace(text[pos+loc[2] : pos+loc[3]]),
				ProfileName: strings.TrimSpace(text[pos+loc[4] : pos+loc[5]]),
				Content:     strings.TrimSpace(text[bodyStart:bodyEnd]),
			}
			if !yield(block) {
				return
			}
			pos = bodyEnd
		}
	}
}

// Blocks collects Split into a slice.
func Blocks(text string) []Block {
	var blocks []Block
	for b := range Split(text) {
		blocks = append(blocks, b)
	}
	return blocks
}

// IsBundle reports whether text contains at least one profile header.
func IsBundle(text string) bool {
	return headerPattern.MatchString(text)
}
