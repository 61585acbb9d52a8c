package profile

import "sync"

// AmbiguityKind names a class of decisions that is made once per batch.
type AmbiguityKind string

const (
	AmbiguitySupportStyle  AmbiguityKind = "support_style"
	AmbiguityCompatibility AmbiguityKind = "compatibility_condition"
)

// Ambiguity describes a field whose conversion needs an operator's choice.
type Ambiguity struct {
	Kind  AmbiguityKind `json:"kind"`
	Field string        `json:"field"`
	Value string        `json:"value"`

	// Proposed is the detected support style; set for AmbiguitySupportStyle.
	Proposed SupportStyle `json:"proposed,omitzero"`
}

// Decision is the answer to an Ambiguity. Keep applies to compatibility
// conditions, Support to support styles.
type Decision struct {
	Keep    bool         `json:"keep"`
	Support SupportStyle `json:"support,omitzero"`
}

// Decider answers ambiguities. Implementations may block on user input.
type Decider interface {
	Decide(a Ambiguity) Decision
}

// DeciderFunc adapts a function to Decider.
type DeciderFunc func(a Ambiguity) Decision

func (f DeciderFunc) Decide(a Ambiguity) Decision { return f(a) }

// StaticDecider answers every ambiguity without asking anyone. The zero value
// keeps compatibility conditions and accepts the detected support style.
type StaticDecider struct {
	DiscardCompatibility bool

	// SupportStyle, if set, replaces the detected style.
	SupportStyle *SupportStyle
}

func (s StaticDecider) Decide(a Ambiguity) Decision {
	switch a.Kind {
	case AmbiguitySupportStyle:
		if s.SupportStyle != nil {
			return Decision{Keep: true, Support: *s.SupportStyle}
		}
		return Decision{Keep: true, Support: a.Proposed}
	case AmbiguityCompatibility:
		return Decision{Keep: !s.DiscardCompatibility}
	default:
		return Decision{Keep: true}
	}
}

// RecordedDecision pairs the first ambiguity of a kind with its decision.
type RecordedDecision struct {
	Ambiguity Ambiguity `json:"ambiguity"`
	Decision  Decision  `json:"decision"`
}

// Decisions is the ambiguity cache of one batch. The first decision made for
// a kind is reused for every later occurrence of that kind. Create one per
// batch and drop it afterwards.
type Decisions struct {
	mu      sync.Mutex
	decider Decider
	made    map[AmbiguityKind]Decision
	order   []RecordedDecision
}

// NewDecisions returns an empty cache backed by d. A nil d uses the zero
// StaticDecider.
func NewDecisions(d Decider) *Decisions {
	if d == nil {
		d = StaticDecider{}
	}
	return &Decisions{
		decider: d,
		made:    make(map[AmbiguityKind]Decision),
	}
}

// Resolve returns the cached decision for a.Kind, asking the decider on the
// first occurrence.
func (d *Decisions) Resolve(a Ambiguity) Decision {
	d.mu.Lock()
	defer d.mu.Unlock()

	if dec, ok := d.made[a.Kind]; ok {
		return dec
	}
	dec := d.decider.Decide(a)
	d.made[a.Kind] = dec
	d.order = append(d.order, RecordedDecision{Ambiguity: a, Decision: dec})
	return dec
}

// Lookup returns the cached decision for kind without asking.
func (d *Decisions) Lookup(kind AmbiguityKind) (Decision, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dec, ok := d.made[kind]
	return dec, ok
}

// Recorded returns the decisions made so far, in the order they were made.
func (d *Decisions) Recorded() []RecordedDecision {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]RecordedDecision, len(d.order))
	copy(out, d.order)
	return out
}
