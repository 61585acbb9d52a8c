package convert

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hpungsan/slicerbridge/internal/bundle"
	"github.com/hpungsan/slicerbridge/internal/errors"
	"github.com/hpungsan/slicerbridge/internal/inherit"
	"github.com/hpungsan/slicerbridge/internal/ini"
	"github.com/hpungsan/slicerbridge/internal/profile"
)

// Options configures one batch.
type Options struct {
	// NozzleSize and PlasticType apply to inputs that do not override them.
	// Filament profiles without a plastic type get one detected.
	NozzleSize  string
	PlasticType string

	Policy Policy
	HostOS string

	// PhysicalPrinter fields are merged into every printer profile.
	PhysicalPrinter PhysicalPrinter

	// Decisions is the batch's ambiguity cache. Nil uses a fresh cache with
	// the default StaticDecider.
	Decisions *profile.Decisions

	ReadConcurrency int
	MaxInputBytes   int64
	ReadFile        ReadFunc

	Logger *slog.Logger
}

// Result describes one converted profile.
type Result struct {
	Name        string       `json:"name"`
	Source      string       `json:"source"`
	BlockType   string       `json:"block_type,omitempty"`
	BlockName   string       `json:"block_name,omitempty"`
	Type        profile.Type `json:"type"`
	SourceKeys  int          `json:"source_keys"`
	Converted   int          `json:"converted_keys"`
	NetworkKeys int          `json:"network_keys,omitempty"`
	Outcome     Outcome      `json:"outcome"`
}

// Failure records an input that could not be read.
type Failure struct {
	Source  string `json:"source"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Batch is the outcome of Run.
type Batch struct {
	Store     *Store                     `json:"-"`
	Results   []Result                   `json:"results"`
	Failures  []Failure                  `json:"failures,omitempty"`
	Decisions []profile.RecordedDecision `json:"decisions,omitempty"`
}

// Summary is the one-line batch summary shown to users.
func (b *Batch) Summary() string {
	n := len(b.Results)
	if n == 1 {
		return "Converted 1 profile."
	}
	return fmt.Sprintf("Converted %d profiles.", n)
}

// Run converts inputs as one batch. Files are read concurrently, then
// converted one after another in input order, so the first file to hit an
// ambiguity or an output name decides for the rest of the batch. Unreadable
// inputs are reported in Failures and do not stop the batch. Run returns an
// error only for invalid options or cancellation; the partial batch is
// returned along with a cancellation error.
func Run(ctx context.Context, inputs []Input, opts Options) (*Batch, error) {
	policy, err := ParsePolicy(string(opts.Policy))
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	decisions := opts.Decisions
	if decisions == nil {
		decisions = profile.NewDecisions(nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := &runner{
		opts:      opts,
		policy:    policy,
		decisions: decisions,
		logger:    logger,
		batch:     &Batch{Store: NewStore()},
	}

	reads := readAll(ctx, inputs, opts)
	for i, in := range inputs {
		if ctx.Err() != nil {
			r.batch.Decisions = decisions.Recorded()
			return r.batch, errors.NewCancelled("convert")
		}
		name := in.DisplayName()
		if err := reads[i].err; err != nil {
			r.fail(name, err)
			continue
		}
		r.convertFile(name, in, reads[i].text)
	}

	r.batch.Decisions = decisions.Recorded()
	logger.Debug("batch done",
		"results", len(r.batch.Results),
		"failures", len(r.batch.Failures),
		"outputs", r.batch.Store.Len())
	return r.batch, nil
}

type runner struct {
	opts      Options
	policy    Policy
	decisions *profile.Decisions
	logger    *slog.Logger
	batch     *Batch
}

func (r *runner) fail(name string, err error) {
	f := Failure{Source: name, Code: string(errors.ErrInternal), Message: err.Error()}
	if bErr, ok := err.(*errors.BridgeError); ok {
		f.Code = string(bErr.Code)
		f.Message = bErr.Message
	}
	r.logger.Warn("input skipped", "file", name, "code", f.Code, "error", f.Message)
	r.batch.Failures = append(r.batch.Failures, f)
}

func (r *runner) convertFile(name string, in Input, text string) {
	nozzle := firstNonEmpty(in.NozzleSize, r.opts.NozzleSize)
	plastic := firstNonEmpty(in.PlasticType, r.opts.PlasticType)
	log := r.logger.With("file", name)
	log.Debug("converting", "plastic_type", plastic, "nozzle_size", nozzle)

	blocks := bundle.Blocks(text)
	if len(blocks) == 0 {
		log.Debug("single profile")
		r.convertBlock(log, name, text, bundle.Block{}, nozzle, plastic)
		return
	}

	log.Debug("config bundle", "blocks", len(blocks))
	for _, b := range blocks {
		r.convertBlock(log, name, b.Content, b, nozzle, plastic)
	}
}

func (r *runner) convertBlock(log *slog.Logger, file, content string, b bundle.Block, nozzle, plastic string) {
	fields := ini.Parse(content)
	typ := profile.Classify(fields)
	// Detect from the source fields: the enum remap renames some plastics.
	if plastic == "" && typ == profile.TypeFilament {
		plastic = inherit.DetectPlasticType(fields, file)
		log.Debug("plastic type detected", "plastic_type", plastic)
	}
	out := profile.Transform(fields, typ, profile.Options{
		NozzleSize:  nozzle,
		ProfileType: b.ProfileType,
		ProfileName: b.ProfileName,
		PlasticType: plastic,
		HostOS:      r.opts.HostOS,
	}, r.decisions)

	res := Result{
		Name:       OutputName(file, b.ProfileType, b.ProfileName),
		Source:     file,
		BlockType:  b.ProfileType,
		BlockName:  b.ProfileName,
		Type:       typ,
		SourceKeys: fields.Len(),
		Converted:  len(out),
	}
	if typ == profile.TypePrinter && len(r.opts.PhysicalPrinter) > 0 {
		res.NetworkKeys = r.opts.PhysicalPrinter.MergeInto(out)
	}
	_, res.Outcome = Resolve(res.Name, out, r.batch.Store, r.policy)

	log.Debug("block converted",
		"block_type", b.ProfileType,
		"block_name", b.ProfileName,
		"ini_keys", res.SourceKeys,
		"detected_type", typ,
		"converted_keys", res.Converted,
		"network_keys", res.NetworkKeys,
		"outcome", res.Outcome)
	r.batch.Results = append(r.batch.Results, res)
}

// Classification is the detected type of one profile in a text.
type Classification struct {
	Name      string               `json:"name"`
	BlockType string               `json:"block_type,omitempty"`
	BlockName string               `json:"block_name,omitempty"`
	Type      profile.Type         `json:"type"`
	Keys      int                  `json:"keys"`
	Scores    map[profile.Type]int `json:"scores"`
}

// Classify detects the type of every profile in text without converting.
func Classify(fileName, text string) []Classification {
	one := func(content string, b bundle.Block) Classification {
		fields := ini.Parse(content)
		return Classification{
			Name:      OutputName(fileName, b.ProfileType, b.ProfileName),
			BlockType: b.ProfileType,
			BlockName: b.ProfileName,
			Type:      profile.Classify(fields),
			Keys:      fields.Len(),
			Scores:    profile.Score(fields),
		}
	}

	blocks := bundle.Blocks(text)
	if len(blocks) == 0 {
		return []Classification{one(text, bundle.Block{})}
	}
	out := make([]Classification, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, one(b.Content, b))
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
