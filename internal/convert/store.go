// Package convert runs batches of slicer profiles through the translation
// engine and resolves output name collisions.
package convert

import (
	"fmt"
	"iter"
	"maps"
	"strings"

	"github.com/hpungsan/slicerbridge/internal/profile"
)

// Policy decides what happens when two conversions in one batch produce the
// same output name.
type Policy string

const (
	PolicySkip      Policy = "skip"      // default: keep the first conversion
	PolicyOverwrite Policy = "overwrite" // keep the latest conversion
	PolicyMerge     Policy = "merge"     // shallow merge, latest wins per key
)

// ParsePolicy validates a policy name. Empty means PolicySkip.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicySkip, nil
	case PolicySkip, PolicyOverwrite, PolicyMerge:
		return p, nil
	default:
		return "", fmt.Errorf("policy must be one of: skip, overwrite, merge (got %q)", s)
	}
}

// Outcome records how Resolve treated a conversion.
type Outcome string

const (
	OutcomeStored      Outcome = "stored"
	OutcomeSkipped     Outcome = "skipped"
	OutcomeOverwritten Outcome = "overwritten"
	OutcomeMerged      Outcome = "merged"
)

// Store maps composite output names to converted profiles in insertion order.
// It is scoped to one batch and only Resolve writes to it.
type Store struct {
	names []string
	items map[string]profile.Profile
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{items: make(map[string]profile.Profile)}
}

// Get returns the profile stored under name.
func (s *Store) Get(name string) (profile.Profile, bool) {
	p, ok := s.items[name]
	return p, ok
}

// Len returns the number of stored names.
func (s *Store) Len() int { return len(s.names) }

// Names returns the stored names in first-insertion order.
func (s *Store) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// All iterates over the store in first-insertion order.
func (s *Store) All() iter.Seq2[string, profile.Profile] {
	return func(yield func(string, profile.Profile) bool) {
		for _, name := range s.names {
			if !yield(name, s.items[name]) {
				return
			}
		}
	}
}

// Resolve stores next under name according to policy and returns the profile
// now stored there. The first conversion under a name is always stored.
func Resolve(name string, next profile.Profile, store *Store, policy Policy) (profile.Profile, Outcome) {
	existing, ok := store.items[name]
	if !ok {
		store.names = append(store.names, name)
		store.items[name] = next
		return next, OutcomeStored
	}

	switch policy {
	case PolicyOverwrite:
		store.items[name] = next
		return next, OutcomeOverwritten
	case PolicyMerge:
		merged := existing.Clone()
		maps.Copy(merged, next)
		store.items[name] = merged
		return merged, OutcomeMerged
	default:
		return existing, OutcomeSkipped
	}
}

// OutputName is the composite store key of a converted profile: the input
// file name, followed by the bundle header for bundle blocks.
func OutputName(fileName, profileType, profileName string) string {
	if profileType == "" && profileName == "" {
		return fileName
	}
	return fmt.Sprintf("%s [%s: %s]", fileName, profileType, profileName)
}

// JSONFileName turns an output name into a file name: a trailing .ini
// becomes .json, and characters that are unsafe in file names are replaced.
func JSONFileName(outputName string) string {
	name := outputName
	if strings.HasSuffix(strings.ToLower(name), ".ini") {
		name = name[:len(name)-len(".ini")]
	}
	name = unsafeFileChars.Replace(name)
	name = strings.TrimSpace(name)
	if name == "" {
		name = "profile"
	}
	return name + ".json"
}

var unsafeFileChars = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_", "\x00", "",
)
