package profile

import "regexp"

var filamentTypes = map[string]string{
	"PLA":   "PLA",
	"PET":   "PETG",
	"PETG":  "PETG",
	"ABS":   "ABS",
	"ASA":   "ASA",
	"FLEX":  "TPU",
	"TPU":   "TPU",
	"NYLON": "PA",
	"PA":    "PA",
	"PC":    "PC",
	"PP":    "PP",
	"PVA":   "PVA",
	"HIPS":  "HIPS",
	"EDGE":  "PETG",
	"NGEN":  "PETG",
	"PVB":   "PVB",
}

// defaultVolumetricSpeed is keyed by the untransformed filament_type value.
var defaultVolumetricSpeed = map[string]string{
	"PLA":   "15",
	"PET":   "10",
	"PETG":  "10",
	"ABS":   "12",
	"ASA":   "12",
	"FLEX":  "3.2",
	"TPU":   "3.2",
	"NYLON": "12",
	"PA":    "12",
	"PC":    "12",
	"PP":    "8",
	"PVA":   "10",
	"HIPS":  "8",
	"EDGE":  "10",
	"NGEN":  "10",
	"PVB":   "10",
}

var seamPositions = map[string]string{
	"rear":    "back",
	"random":  "random",
	"nearest": "nearest",
	"aligned": "aligned",
}

// infillPatterns has no entry for hilbertcurve: OrcaSlicer has no equivalent.
var infillPatterns = map[string]string{
	"rectilinear":        "zig-zag",
	"alignedrectilinear": "alignedrectilinear",
	"grid":               "grid",
	"triangles":          "triangles",
	"stars":              "tri-hexagon",
	"cubic":              "cubic",
	"line":               "line",
	"concentric":         "concentric",
	"honeycomb":          "honeycomb",
	"3dhoneycomb":        "3dhoneycomb",
	"gyroid":             "gyroid",
	"archimedeanchords":  "archimedeanchords",
	"octagramspiral":     "octagramspiral",
	"adaptivecubic":      "adaptivecubic",
	"supportcubic":       "supportcubic",
	"lightning":          "lightning",
	"monotonic":          "monotonic",
	"monotoniclines":     "monotonicline",
}

var gcodeFlavors = map[string]string{
	"reprap":         "reprapfirmware",
	"reprapfirmware": "reprapfirmware",
	"repetier":       "repetier",
	"teacup":         "teacup",
	"makerware":      "makerware",
	"marlin":         "marlin",
	"marlin2":        "marlin2",
	"klipper":        "klipper",
	"sailfish":       "sailfish",
	"mach3":          "mach3",
	"machinekit":     "machinekit",
	"smoothie":       "smoothie",
	"no-extrusion":   "no-extrusion",
}

var hostTypes = map[string]string{
	"prusalink":    "prusalink",
	"prusaconnect": "prusaconnect",
	"octoprint":    "octoprint",
	"duet":         "duet",
	"flashair":     "flashair",
	"astrobox":     "astrobox",
	"repetier":     "repetier",
	"mks":          "mks",
	"moonraker":    "octoprint",
	"klipper":      "octoprint",
}

var thumbnailFormats = map[string]string{
	"PNG":     "PNG",
	"JPG":     "JPG",
	"QOI":     "QOI",
	"BTT_TFT": "BTT_TFT",
}

var supportPatterns = map[string]string{
	"rectilinear":      "rectilinear",
	"rectilinear-grid": "rectilinear-grid",
	"honeycomb":        "honeycomb",
	"lightning":        "lightning",
}

var interfacePatterns = map[string]string{
	"auto":        "auto",
	"rectilinear": "rectilinear",
	"concentric":  "concentric",
}

var zhopEnforcement = map[string]string{
	"All surfaces": "All Surfaces",
	"Not on top":   "Bottom Only",
	"Only on top":  "Top Only",
}

var supportStyles = map[string]SupportStyle{
	"grid":    {SupportType: "normal(auto)", SupportStyle: "grid"},
	"snug":    {SupportType: "normal(auto)", SupportStyle: "snug"},
	"tree":    {SupportType: "tree(auto)", SupportStyle: "default"},
	"organic": {SupportType: "tree(auto)", SupportStyle: "organic"},
}

// LookupSupportStyle returns the destination tuple for a source support
// style name.
func LookupSupportStyle(raw string) (SupportStyle, bool) {
	s, ok := supportStyles[raw]
	return s, ok
}

type valueArity int

const (
	arityMulti valueArity = iota
	aritySingle
)

var multiValueFields = map[string]valueArity{
	"bed_shape":                           arityMulti,
	"compatible_printers":                 arityMulti,
	"compatible_prints":                   arityMulti,
	"extruder_colour":                     arityMulti,
	"extruder_offset":                     arityMulti,
	"nozzle_diameter":                     arityMulti,
	"thumbnails":                          arityMulti,
	"machine_max_acceleration_e":          arityMulti,
	"machine_max_acceleration_extruding":  arityMulti,
	"machine_max_acceleration_retracting": arityMulti,
	"machine_max_acceleration_travel":     arityMulti,
	"machine_max_acceleration_x":          arityMulti,
	"machine_max_acceleration_y":          arityMulti,
	"machine_max_acceleration_z":          arityMulti,
	"machine_max_feedrate_e":              arityMulti,
	"machine_max_feedrate_x":              arityMulti,
	"machine_max_feedrate_y":              arityMulti,
	"machine_max_feedrate_z":              arityMulti,
	"machine_max_jerk_e":                  arityMulti,
	"machine_max_jerk_x":                  arityMulti,
	"machine_max_jerk_y":                  arityMulti,
	"machine_max_jerk_z":                  arityMulti,
	"retract_before_travel":               aritySingle,
	"retract_before_wipe":                 aritySingle,
	"retract_layer_change":                aritySingle,
	"retract_length":                      aritySingle,
	"retract_length_toolchange":           aritySingle,
	"retract_lift":                        aritySingle,
	"retract_lift_above":                  aritySingle,
	"retract_lift_below":                  aritySingle,
	"retract_restart_extra":               aritySingle,
	"retract_restart_extra_toolchange":    aritySingle,
	"retract_speed":                       aritySingle,
	"deretract_speed":                     aritySingle,
	"wipe":                                aritySingle,
	"filament_colour":                     aritySingle,
	"filament_diameter":                   aritySingle,
}

// illegalNameChars holds the characters stripped from profile names, keyed by
// GOOS. Unlisted systems use the linux set.
var illegalNameChars = map[string]*regexp.Regexp{
	"windows": regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`),
	"darwin":  regexp.MustCompile(`[:/\x00]`),
	"linux":   regexp.MustCompile(`[/\x00]`),
}
