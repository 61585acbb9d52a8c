package ops

import (
	"github.com/hpungsan/slicerbridge/internal/config"
	"github.com/hpungsan/slicerbridge/internal/convert"
	"github.com/hpungsan/slicerbridge/internal/errors"
)

// ClassifyInput contains parameters for the Classify operation.
type ClassifyInput struct {
	Path    string
	Name    string // display name for inline content
	Content string
}

// ClassifyOutput contains the result of the Classify operation.
type ClassifyOutput struct {
	Profiles []convert.Classification `json:"profiles"`
}

// Classify detects the type of every profile in one file without converting.
func Classify(cfg *config.Config, input ClassifyInput) (*ClassifyOutput, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	in, err := toInput(ConvertFile{Name: input.Name, Path: input.Path, Content: input.Content})
	if err != nil {
		return nil, err
	}

	text := string(in.Content)
	if in.Path != "" {
		data, err := readLimitedFile(in.Path, cfg.MaxInputBytes)
		if err != nil {
			return nil, err
		}
		if text, err = convert.Decode(data); err != nil {
			return nil, errors.NewReadFailed(in.Path, err)
		}
	}

	return &ClassifyOutput{Profiles: convert.Classify(in.DisplayName(), text)}, nil
}
