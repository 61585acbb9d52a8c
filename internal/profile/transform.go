package profile

import (
	"slices"

	"github.com/hpungsan/slicerbridge/internal/ini"
)

// Transform converts fields of type typ into an OrcaSlicer profile. Fields
// without a mapping for typ are skipped; TypeUnknown yields an empty profile.
// A nil decisions gets a fresh cache, which means every call decides anew.
func Transform(fields *ini.Fields, typ Type, opts Options, decisions *Decisions) Profile {
	out := Profile{}
	table := tableFor(typ)
	if table == nil || fields == nil {
		return out
	}
	if decisions == nil {
		decisions = NewDecisions(nil)
	}

	c := &Context{Source: fields, Type: typ, Options: opts, Decisions: decisions}
	for key, v := range fields.All() {
		dests, ok := table[key]
		if !ok {
			continue
		}
		value, _, ok := c.Convert(key, v)
		if !ok || value == nil {
			continue
		}
		for _, dest := range dests {
			out[dest] = copyValue(value)
		}
	}

	if opts.NozzleSize != "" {
		out[KeyNozzleSize] = opts.NozzleSize
	}
	if opts.ProfileType != "" {
		out[KeyProfileType] = opts.ProfileType
	}
	if opts.ProfileName != "" {
		out[KeyProfileName] = opts.ProfileName
	}
	if opts.PlasticType != "" {
		out[KeyPlasticType] = opts.PlasticType
	}
	return out
}

func tableFor(typ Type) map[string][]string {
	for _, t := range mappingTables {
		if t.Type == typ {
			return t.Fields
		}
	}
	return nil
}

// copyValue gives each fan-out destination its own slice.
func copyValue(v any) any {
	if s, ok := v.([]string); ok {
		return slices.Clone(s)
	}
	return v
}
