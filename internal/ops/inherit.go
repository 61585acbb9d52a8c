package ops

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/hpungsan/slicerbridge/internal/config"
	"github.com/hpungsan/slicerbridge/internal/convert"
	"github.com/hpungsan/slicerbridge/internal/errors"
	"github.com/hpungsan/slicerbridge/internal/inherit"
	"github.com/hpungsan/slicerbridge/internal/ini"
	"github.com/hpungsan/slicerbridge/internal/profile"
)

// InheritInput contains parameters for the Inherit operation.
type InheritInput struct {
	SourcePath string         // converted filament profile (JSON) to read
	Source     map[string]any // inline profile; used when SourcePath is empty
	Plastic    string         // default: detected from the profile
	Name       string         // default: profile_name or the source file stem
	BaseDir    string         // default: cfg.BaseProfileDir
	OutDir     string         // optional: write <name>.json into this directory
}

// InheritOutput contains the result of the Inherit operation.
type InheritOutput struct {
	Name     string         `json:"name"`
	Plastic  string         `json:"plastic"`
	Inherits string         `json:"inherits"`
	Profile  map[string]any `json:"profile"`
	Written  string         `json:"written,omitempty"`
}

// Inherit turns a converted filament profile into an OrcaSlicer user profile
// inheriting from the system profile for its plastic.
func Inherit(cfg *config.Config, input InheritInput) (*InheritOutput, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	source := input.Source
	if input.SourcePath != "" {
		data, err := readLimitedFile(input.SourcePath, cfg.MaxInputBytes)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &source); err != nil {
			return nil, errors.NewReadFailed(input.SourcePath, err)
		}
	}
	if source == nil {
		return nil, errors.NewInvalidRequest("a source profile is required")
	}

	baseDir := pickString(input.BaseDir, cfg.BaseProfileDir)
	if baseDir == "" {
		return nil, errors.NewInvalidRequest("base profile directory is not configured (set base_profile_dir)")
	}

	fileName := filepath.Base(input.SourcePath)
	plastic := strings.ToUpper(pickString(input.Plastic, stringField(source, profile.KeyPlasticType)))
	if plastic == "" {
		plastic = inherit.DetectPlasticType(profileFields(source), fileName)
	}

	name := pickString(input.Name, stringField(source, profile.KeyProfileName))
	if name == "" && input.SourcePath != "" {
		name = strings.TrimSuffix(fileName, filepath.Ext(fileName))
	}
	if name == "" {
		return nil, errors.NewInvalidRequest("name is required")
	}

	base, err := inherit.LoadBase(baseDir, plastic)
	if err != nil {
		return nil, err
	}

	// Batch metadata is not part of an OrcaSlicer profile
	body := make(map[string]any, len(source))
	for k, v := range source {
		switch k {
		case profile.KeyNozzleSize, profile.KeyProfileType, profile.KeyProfileName, profile.KeyPlasticType:
			continue
		}
		body[k] = v
	}

	generated, err := inherit.Generate(body, base, plastic, name)
	if err != nil {
		return nil, err
	}

	out := &InheritOutput{
		Name:     name,
		Plastic:  plastic,
		Inherits: fmt.Sprint(generated["inherits"]),
		Profile:  generated,
	}

	if input.OutDir != "" {
		if err := ValidateOutputDir(input.OutDir, cfg); err != nil {
			return nil, err
		}
		data, err := json.MarshalIndent(generated, "", "  ")
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		path := filepath.Join(input.OutDir, convert.JSONFileName(name))
		err = writeFileAtomic(path, func(w io.Writer) error {
			_, err := w.Write(append(data, '\n'))
			return err
		})
		if err != nil {
			return nil, err
		}
		out.Written = path
	}
	return out, nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// profileFields exposes the string fields of a converted profile for plastic
// detection.
func profileFields(p map[string]any) *ini.Fields {
	fields := ini.NewFields()
	for k, v := range p {
		if s, ok := v.(string); ok {
			fields.Set(k, ini.String(s))
		}
	}
	return fields
}
