package convert

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/hpungsan/slicerbridge/internal/errors"
)

// DefaultReadConcurrency bounds concurrent file reads when Options leaves it unset.
const DefaultReadConcurrency = 4

// Input is one file of a batch. Content, when non-nil, is used instead of
// reading Path.
type Input struct {
	Name    string
	Path    string
	Content []byte

	// NozzleSize and PlasticType override the batch options for this file.
	NozzleSize  string
	PlasticType string
}

// DisplayName is Name, or the base name of Path.
func (in Input) DisplayName() string {
	if in.Name != "" {
		return in.Name
	}
	if in.Path != "" {
		return filepath.Base(in.Path)
	}
	return "input"
}

// ReadFunc reads the raw bytes of a file.
type ReadFunc func(path string) ([]byte, error)

// Decode converts raw file bytes to text. A UTF-8 or UTF-16 byte order mark
// selects the encoding and is removed; without one the bytes are UTF-8.
func Decode(b []byte) (string, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

type readResult struct {
	text string
	err  error
}

// readAll reads every input concurrently. A failed read is recorded for that
// input only and never stops the others.
func readAll(ctx context.Context, inputs []Input, opts Options) []readResult {
	limit := opts.ReadConcurrency
	if limit <= 0 {
		limit = DefaultReadConcurrency
	}

	results := make([]readResult, len(inputs))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, in := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].err = errors.NewCancelled("read")
				return nil
			}
			text, err := readInput(in, opts)
			results[i] = readResult{text: text, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func readInput(in Input, opts Options) (string, error) {
	data := in.Content
	if data == nil {
		if in.Path == "" {
			return "", errors.NewInvalidRequest("input has neither content nor path")
		}
		read := opts.ReadFile
		if read == nil {
			read = os.ReadFile
		}
		if opts.MaxInputBytes > 0 {
			if info, err := os.Stat(in.Path); err == nil && info.Size() > opts.MaxInputBytes {
				return "", errors.NewInputTooLarge(opts.MaxInputBytes, info.Size())
			}
		}
		var err error
		data, err = read(in.Path)
		if err != nil {
			var bErr *errors.BridgeError
			if stderrors.As(err, &bErr) {
				return "", err
			}
			if stderrors.Is(err, fs.ErrNotExist) {
				return "", errors.NewFileNotFound(in.Path)
			}
			return "", errors.NewReadFailed(in.Path, err)
		}
	}
	if opts.MaxInputBytes > 0 && int64(len(data)) > opts.MaxInputBytes {
		return "", errors.NewInputTooLarge(opts.MaxInputBytes, int64(len(data)))
	}

	text, err := Decode(data)
	if err != nil {
		return "", errors.NewReadFailed(in.DisplayName(), err)
	}
	return text, nil
}
