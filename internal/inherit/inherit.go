// Package inherit turns a converted filament profile into an OrcaSlicer user
// profile that inherits from one of the bundled system filament profiles.
package inherit

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hpungsan/slicerbridge/internal/errors"
	"github.com/hpungsan/slicerbridge/internal/ini"
)

// baseProfiles maps plastic types to OrcaSlicer system profile file names.
var baseProfiles = map[string]string{
	"PLA":   "fdm_filament_pla.json",
	"PETG":  "fdm_filament_petg.json",
	"ABS":   "fdm_filament_abs.json",
	"NYLON": "fdm_filament_nylon.json",
}

// RequiredFields must be present in either the generated profile or its base.
var RequiredFields = []string{"type", "name", "inherits", "filament_diameter", "filament_density"}

var defaultFieldValues = map[string]string{
	"type":              "filament",
	"filament_diameter": "1.75",
	"filament_density":  "1.24",
}

// PlasticTypes lists the plastic types offered for selection, in display order.
var PlasticTypes = []string{"PLA", "PETG", "ABS", "NYLON", "TPU", "PC", "ASA", "HIPS", "PVA", "PP"}

// BaseFileName returns the system profile file for plastic.
func BaseFileName(plastic string) (string, error) {
	file, ok := baseProfiles[strings.ToUpper(strings.TrimSpace(plastic))]
	if !ok {
		return "", errors.NewUnknownPlasticType(plastic)
	}
	return file, nil
}

// LoadBase reads the system profile for plastic from dir.
func LoadBase(dir, plastic string) (map[string]any, error) {
	file, err := BaseFileName(plastic)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, file)

	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewBaseProfileNotFound(path)
		}
		return nil, errors.NewReadFailed(path, err)
	}

	var base map[string]any
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, errors.NewReadFailed(path, err)
	}
	return base, nil
}

// Generate builds a profile named name that inherits from the system profile
// of plastic. Source fields are kept when the base lacks them or holds a
// different value; required fields missing from both get defaults.
func Generate(source, base map[string]any, plastic, name string) (map[string]any, error) {
	file, err := BaseFileName(plastic)
	if err != nil {
		return nil, err
	}

	result := map[string]any{
		"type":     "filament",
		"name":     name,
		"inherits": strings.TrimSuffix(file, ".json"),
	}

	for key, v := range source {
		switch key {
		case "type", "name", "inherits":
			continue
		}
		if bv, ok := base[key]; !ok || !jsonEqual(v, bv) {
			result[key] = v
		}
	}

	for _, field := range RequiredFields {
		if _, ok := result[field]; ok {
			continue
		}
		if _, ok := base[field]; ok {
			continue
		}
		result[field] = defaultFieldValues[field]
	}
	return result, nil
}

// jsonEqual compares values by their JSON encoding, so "1.75" in a converted
// profile and "1.75" decoded from a base file match regardless of Go type.
func jsonEqual(a, b any) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}

var filamentTypeWord = regexp.MustCompile(`^\w+`)

// plasticAliases maps converted filament_type values back to plastic types.
var plasticAliases = map[string]string{
	"PA": "NYLON",
}

// fileNameHints are checked in order against the lowercased file name.
var fileNameHints = []struct{ substr, plastic string }{
	{"petg", "PETG"},
	{"abs", "ABS"},
	{"nylon", "NYLON"},
	{"tpu", "TPU"},
	{"pc", "PC"},
	{"asa", "ASA"},
	{"hips", "HIPS"},
	{"pva", "PVA"},
	{"pp", "PP"},
}

// DetectPlasticType guesses the plastic of a filament profile: first from its
// filament_type field (source or converted vocabulary), then from the file
// name, defaulting to PLA.
func DetectPlasticType(fields *ini.Fields, fileName string) string {
	if fields != nil {
		if v, ok := fields.Get("filament_type"); ok && !v.IsNull() {
			word := strings.ToUpper(filamentTypeWord.FindString(strings.TrimSpace(v.String())))
			if alias, ok := plasticAliases[word]; ok {
				return alias
			}
			for _, p := range PlasticTypes {
				if word == p {
					return p
				}
			}
		}
	}

	lower := strings.ToLower(fileName)
	for _, h := range fileNameHints {
		if strings.Contains(lower, h.substr) {
			return h.plastic
		}
	}
	return "PLA"
}
