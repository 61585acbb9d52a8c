package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"github.com/hpungsan/slicerbridge/internal/profile"
)

// supportStyleNames lists the accepted answers in the order they are offered.
var supportStyleNames = []string{"grid", "snug", "tree", "organic"}

// maxPromptAttempts bounds re-prompting on unrecognized answers.
const maxPromptAttempts = 3

// lineReader is the subset of *readline.Instance the prompt needs.
type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// promptDecider asks the operator to resolve each ambiguity kind once.
// Interrupts and EOF fall back to the headless answer.
type promptDecider struct {
	mu       sync.Mutex
	in       lineReader
	out      io.Writer
	fallback profile.StaticDecider
}

// newPromptDecider opens a readline prompt on the terminal. Prompts and
// context go to out so stdout stays machine-readable.
func newPromptDecider(out io.Writer, fallback profile.StaticDecider) (*promptDecider, func(), error) {
	items := make([]readline.PrefixCompleterInterface, 0, len(supportStyleNames)+2)
	for _, name := range supportStyleNames {
		items = append(items, readline.PcItem(name))
	}
	items = append(items, readline.PcItem("yes"), readline.PcItem("no"))

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		AutoComplete:    readline.NewPrefixCompleter(items...),
		InterruptPrompt: "^C",
		EOFPrompt:       "",
		Stdout:          out,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize prompt: %w", err)
	}

	d := &promptDecider{in: rl, out: out, fallback: fallback}
	return d, func() { _ = rl.Close() }, nil
}

// Decide implements profile.Decider.
func (d *promptDecider) Decide(a profile.Ambiguity) profile.Decision {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch a.Kind {
	case profile.AmbiguitySupportStyle:
		return d.decideSupport(a)
	case profile.AmbiguityCompatibility:
		return d.decideCompatibility(a)
	default:
		return d.fallback.Decide(a)
	}
}

func (d *promptDecider) decideSupport(a profile.Ambiguity) profile.Decision {
	detected := styleName(a.Proposed)
	_, _ = fmt.Fprintf(d.out, "%s = %s maps to support style %q.\n", a.Field, a.Value, detected)
	d.in.SetPrompt(fmt.Sprintf("support style [%s] (default %s): ", strings.Join(supportStyleNames, "/"), detected))

	for range maxPromptAttempts {
		line, err := d.in.Readline()
		if err != nil {
			return d.giveUp(a, err)
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		if answer == "" {
			return profile.Decision{Keep: true, Support: a.Proposed}
		}
		if s, ok := profile.LookupSupportStyle(answer); ok {
			return profile.Decision{Keep: true, Support: s}
		}
		_, _ = fmt.Fprintf(d.out, "unknown support style %q\n", answer)
	}
	return d.fallback.Decide(a)
}

func (d *promptDecider) decideCompatibility(a profile.Ambiguity) profile.Decision {
	_, _ = fmt.Fprintf(d.out, "%s has a compatibility condition: %s\n", a.Field, a.Value)
	d.in.SetPrompt("keep compatibility conditions? [Y/n]: ")

	for range maxPromptAttempts {
		line, err := d.in.Readline()
		if err != nil {
			return d.giveUp(a, err)
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "", "y", "yes":
			return profile.Decision{Keep: true}
		case "n", "no":
			return profile.Decision{Keep: false}
		}
		_, _ = fmt.Fprintln(d.out, "please answer yes or no")
	}
	return d.fallback.Decide(a)
}

func (d *promptDecider) giveUp(a profile.Ambiguity, err error) profile.Decision {
	if stderrors.Is(err, readline.ErrInterrupt) || stderrors.Is(err, io.EOF) {
		_, _ = fmt.Fprintln(d.out, "no answer, using the configured default")
	}
	return d.fallback.Decide(a)
}

// styleName returns the short name of a destination support style.
func styleName(s profile.SupportStyle) string {
	for _, name := range supportStyleNames {
		if known, _ := profile.LookupSupportStyle(name); known == s {
			return name
		}
	}
	return s.SupportStyle
}
