package profile

import (
	"runtime"
	"strings"

	"github.com/hpungsan/slicerbridge/internal/ini"
	"github.com/hpungsan/slicerbridge/internal/units"
)

// Context is the state a rule can read while converting one field.
type Context struct {
	// Source is the untransformed field set of the profile being converted.
	Source    *ini.Fields
	Type      Type
	Options   Options
	Decisions *Decisions
}

// Rule converts the value of a source field. Apply returns false when the
// destination keys must not be written.
type Rule struct {
	Name  string
	Match func(key string, v ini.Value) bool
	Apply func(c *Context, key string, v ini.Value) (any, bool)
}

// Rules returns the conversion rules in evaluation order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Convert runs the first matching rule for key. It reports the rule name so
// callers can trace conversions.
func (c *Context) Convert(key string, v ini.Value) (value any, rule string, ok bool) {
	if c.Decisions == nil {
		c.Decisions = NewDecisions(nil)
	}
	for _, r := range rules {
		if !r.Match(key, v) {
			continue
		}
		value, ok = r.Apply(c, key, v)
		return value, r.Name, ok
	}
	return v.String(), "", true
}

var rules = []Rule{
	{
		Name:  "drop-null",
		Match: func(_ string, v ini.Value) bool { return v.IsNull() },
		Apply: drop,
	},
	{
		Name: "quoted-empty",
		Match: func(key string, v ini.Value) bool {
			return key == "filament_settings_id" && (v.String() == `""` || v.String() == "")
		},
		Apply: func(*Context, string, ini.Value) (any, bool) { return "", true },
	},
	{
		Name:  "percent-to-fraction",
		Match: keyIn("bridge_flow_ratio", "fill_top_flow_ratio", "first_layer_flow_ratio"),
		Apply: func(_ *Context, _ string, v ini.Value) (any, bool) {
			return stringResult(units.PercentToFraction(v.String()))
		},
	},
	{
		Name: "percent-to-millimeter",
		Match: keyIn("max_layer_height", "min_layer_height", "fuzzy_skin_point_dist",
			"fuzzy_skin_thickness", "small_perimeter_min_length"),
		Apply: func(c *Context, _ string, v ini.Value) (any, bool) {
			return stringResult(units.PercentToMillimeter(c.Options.NozzleSize, v.String()))
		},
	},
	{
		Name:  "millimeter-to-percent",
		Match: keyIn("wall_transition_length"),
		Apply: func(c *Context, _ string, v ini.Value) (any, bool) {
			return stringResult(units.MillimeterToPercent(c.Options.NozzleSize, v.String()))
		},
	},
	{
		Name:  "boolean",
		Match: keyIn("infill_every_layers", "support_material_layer_height"),
		Apply: func(_ *Context, _ string, v ini.Value) (any, bool) {
			if f, ok := units.ParseNumber(v.String()); ok && f > 0 {
				return "1", true
			}
			return "0", true
		},
	},
	enumRule("filament-type", filamentTypes, "", "filament_type"),
	enumRule("seam-position", seamPositions, "", "seam_position"),
	enumRule("infill-pattern", infillPatterns, "",
		"fill_pattern", "top_fill_pattern", "bottom_fill_pattern", "solid_fill_pattern"),
	enumRule("gcode-flavor", gcodeFlavors, "", "gcode_flavor"),
	enumRule("host-type", hostTypes, "", "host_type"),
	enumRule("thumbnail-format", thumbnailFormats, "", "thumbnails_format"),
	enumRule("support-pattern", supportPatterns, "default", "support_material_pattern"),
	enumRule("interface-pattern", interfacePatterns, "auto", "support_material_interface_pattern"),
	{
		Name:  "volumetric-speed",
		Match: keyIn("filament_max_volumetric_speed"),
		Apply: applyVolumetricSpeed,
	},
	{
		Name:  "filename-format",
		Match: keyIn("output_filename_format"),
		Apply: func(_ *Context, _ string, v ini.Value) (any, bool) {
			return bracketReplacer.Replace(v.String()), true
		},
	},
	{
		Name: "multi-value",
		Match: func(key string, _ ini.Value) bool {
			_, ok := multiValueFields[key]
			return ok || key == "default_filament_profile"
		},
		Apply: applyMultiValue,
	},
	{
		Name: "gcode",
		Match: func(key string, _ ini.Value) bool {
			switch strings.ToLower(key) {
			case "start_filament_gcode", "end_filament_gcode", "filament_notes":
				return true
			}
			return false
		},
		Apply: applyUnescape,
	},
	{
		Name: "gcode-fallback",
		Match: func(key string, _ ini.Value) bool {
			k := strings.ToLower(key)
			return strings.Contains(k, "gcode") || strings.Contains(k, "notes")
		},
		Apply: applyUnescape,
	},
	{
		Name:  "support-style",
		Match: keyIn("support_material_style"),
		Apply: applySupportStyle,
	},
	{
		Name:  "compatibility-condition",
		Match: keyIn("compatible_printers_condition", "compatible_prints_condition"),
		Apply: func(c *Context, key string, v ini.Value) (any, bool) {
			dec := c.Decisions.Resolve(Ambiguity{
				Kind:  AmbiguityCompatibility,
				Field: key,
				Value: v.String(),
			})
			if dec.Keep {
				return v.String(), true
			}
			return "", true
		},
	},
	enumRule("zhop-enforcement", zhopEnforcement, "", "retract_lift_top"),
	{
		Name:  "profile-name",
		Match: keyIn("profile_name"),
		Apply: func(c *Context, _ string, v ini.Value) (any, bool) {
			return StripIllegalChars(v.String(), c.Options.HostOS), true
		},
	},
	{
		Name:  "passthrough",
		Match: func(string, ini.Value) bool { return true },
		Apply: func(_ *Context, _ string, v ini.Value) (any, bool) {
			if v.IsNull() {
				return nil, false
			}
			return v.String(), true
		},
	},
}

var (
	bracketReplacer  = strings.NewReplacer("[", "{", "]", "}")
	unescapeReplacer = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\"`, `"`)
)

func drop(*Context, string, ini.Value) (any, bool) { return nil, false }

func keyIn(keys ...string) func(string, ini.Value) bool {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return func(key string, _ ini.Value) bool {
		_, ok := set[key]
		return ok
	}
}

func stringResult(s string, ok bool) (any, bool) {
	if !ok {
		return nil, false
	}
	return s, true
}

// enumRule looks values up in table. Unmapped values become fallback, or are
// dropped when fallback is empty.
func enumRule(name string, table map[string]string, fallback string, keys ...string) Rule {
	return Rule{
		Name:  name,
		Match: keyIn(keys...),
		Apply: func(_ *Context, _ string, v ini.Value) (any, bool) {
			if out, ok := table[v.String()]; ok {
				return out, true
			}
			if fallback != "" {
				return fallback, true
			}
			return nil, false
		},
	}
}

func applyVolumetricSpeed(c *Context, _ string, v ini.Value) (any, bool) {
	raw := strings.TrimSpace(v.String())
	if f, ok := units.ParseNumber(raw); raw != "" && (!ok || f > 0) {
		return v.String(), true
	}
	if c.Source != nil {
		if ft, ok := c.Source.Get("filament_type"); ok && !ft.IsNull() {
			if def, ok := defaultVolumetricSpeed[ft.String()]; ok {
				return def, true
			}
		}
	}
	return v.String(), true
}

// SplitValues splits a multi-value field on commas and semicolons, dropping
// empty tokens.
func SplitValues(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func applyMultiValue(_ *Context, key string, v ini.Value) (any, bool) {
	tokens := SplitValues(v.String())
	if key == "default_filament_profile" {
		if len(tokens) == 1 {
			return tokens[0], true
		}
		return tokens, true
	}
	if multiValueFields[key] == aritySingle {
		if len(tokens) == 0 {
			return nil, false
		}
		return tokens[0], true
	}
	return tokens, true
}

// Unescape strips one layer of surrounding double quotes and expands \n, \t
// and \" escapes.
func Unescape(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return unescapeReplacer.Replace(s)
}

func applyUnescape(_ *Context, _ string, v ini.Value) (any, bool) {
	return Unescape(v.String()), true
}

func applySupportStyle(c *Context, key string, v ini.Value) (any, bool) {
	proposed, mapped := supportStyles[v.String()]

	dec, cached := c.Decisions.Lookup(AmbiguitySupportStyle)
	if !cached {
		if !mapped {
			return v.String(), true
		}
		dec = c.Decisions.Resolve(Ambiguity{
			Kind:     AmbiguitySupportStyle,
			Field:    key,
			Value:    v.String(),
			Proposed: proposed,
		})
	}
	if !dec.Support.IsZero() {
		return dec.Support, true
	}
	if mapped {
		return proposed, true
	}
	return v.String(), true
}

// StripIllegalChars removes characters that cannot appear in a file name on
// goos. An empty goos means the running system.
func StripIllegalChars(name, goos string) string {
	if goos == "" {
		goos = runtime.GOOS
	}
	re, ok := illegalNameChars[goos]
	if !ok {
		re = illegalNameChars["linux"]
	}
	return re.ReplaceAllString(name, "")
}
