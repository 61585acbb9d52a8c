package convert

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/hpungsan/slicerbridge/internal/bundle"
	"github.com/hpungsan/slicerbridge/internal/ini"
	"github.com/hpungsan/slicerbridge/internal/profile"
)

// NetworkPrefix marks the physical printer fields copied into printer profiles.
const NetworkPrefix = "network_"

// PhysicalPrinter holds the network fields of a physical printer definition.
type PhysicalPrinter map[string]any

// ParsePhysicalPrinter reads a physical printer definition given as a JSON
// object, a PrusaSlicer INI file, or a bundle with [physical_printer: ...]
// sections. Only network_ fields are kept.
func ParsePhysicalPrinter(text string) (PhysicalPrinter, error) {
	trimmed := strings.TrimSpace(text)
	out := PhysicalPrinter{}

	if strings.HasPrefix(trimmed, "{") {
		var obj map[string]any
		if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
			return nil, fmt.Errorf("invalid physical printer JSON: %w", err)
		}
		for k, v := range obj {
			if strings.HasPrefix(k, NetworkPrefix) {
				out[k] = v
			}
		}
		return out, nil
	}

	if bundle.IsBundle(trimmed) {
		for b := range bundle.Split(trimmed) {
			if b.ProfileType == "physical_printer" {
				out.addINI(ini.Parse(b.Content))
			}
		}
		return out, nil
	}

	out.addINI(ini.Parse(trimmed))
	return out, nil
}

func (p PhysicalPrinter) addINI(fields *ini.Fields) {
	for k, v := range fields.All() {
		if strings.HasPrefix(k, NetworkPrefix) && !v.IsNull() {
			p[k] = v.String()
		}
	}
}

// MergeInto copies the network fields into a converted printer profile and
// returns how many were copied.
func (p PhysicalPrinter) MergeInto(dst profile.Profile) int {
	maps.Copy(dst, p)
	return len(p)
}

// Keys returns the field names in sorted order.
func (p PhysicalPrinter) Keys() []string {
	return slices.Sorted(maps.Keys(p))
}
