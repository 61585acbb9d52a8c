// Package profile classifies parsed slicer fields and transforms them into
// OrcaSlicer profile fields.
//
// The transformation is table driven: a per-type mapping table resolves the
// destination keys of each source field, and an ordered rule table decides
// how the value is converted. Decisions that need an operator (which support
// style convention to use, whether to keep compatibility conditions) are made
// once per batch through a Decisions value supplied by the caller.
package profile

// Type is the detected profile kind.
type Type string

const (
	TypePrinter  Type = "printer"
	TypePrint    Type = "print"
	TypeFilament Type = "filament"
	TypeUnknown  Type = "unknown"
)

// Metadata keys written after all source fields.
const (
	KeyNozzleSize  = "nozzle_size"
	KeyProfileType = "profile_type"
	KeyProfileName = "profile_name"
	KeyPlasticType = "_selectedPlasticType"
)

// Profile is a transformed profile. Values are string, []string or
// SupportStyle.
type Profile map[string]any

// Clone returns a shallow copy of p.
func (p Profile) Clone() Profile {
	out := make(Profile, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// SupportStyle is the nested value produced for the support style field.
type SupportStyle struct {
	SupportType  string `json:"support_type"`
	SupportStyle string `json:"support_style"`
}

// IsZero reports whether s carries no style.
func (s SupportStyle) IsZero() bool {
	return s == SupportStyle{}
}

// Options carries the per-conversion parameters of a transformation.
type Options struct {
	// NozzleSize is the nozzle diameter in millimeters, used as comparator
	// for percent/millimeter conversions and written as nozzle_size.
	NozzleSize string

	// ProfileType and ProfileName come from a bundle header; both are empty
	// for a standalone profile.
	ProfileType string
	ProfileName string

	// PlasticType selects a base profile for inheritance later on.
	PlasticType string

	// HostOS selects the illegal-character set for profile names
	// ("windows", "darwin", anything else is treated as linux).
	// Empty means runtime.GOOS.
	HostOS string
}
