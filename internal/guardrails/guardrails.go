// Package guardrails screens free text supplied by users before it is
// interpolated into a model prompt.
package guardrails

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrRejected wraps every blocking verdict so callers can map it to a client error.
var ErrRejected = errors.New("prompt rejected")

// Result holds the outcome of a check.
type Result struct {
	Allowed bool
	Flags   []string
	Reason  string
}

// Guardrail inspects a piece of text.
type Guardrail interface {
	Check(ctx context.Context, text string) Result
	Name() string
}

// Pipeline runs guardrails in order and stops at the first block.
type Pipeline struct {
	guards []Guardrail
}

func NewPipeline(guards ...Guardrail) *Pipeline {
	return &Pipeline{guards: guards}
}

// Default screens story guidance: bounded length, injection phrases and
// blocked content categories.
func Default(maxChars int) *Pipeline {
	return NewPipeline(
		NewLengthGuard(maxChars),
		NewInjectionDetector(),
		NewContentFilter(),
	)
}

// Screen returns nil when text passes every guardrail, or an error wrapping
// ErrRejected naming the guardrail that blocked it.
func (p *Pipeline) Screen(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	for _, g := range p.guards {
		res := g.Check(ctx, text)
		if !res.Allowed {
			return fmt.Errorf("%w by %s: %s", ErrRejected, g.Name(), res.Reason)
		}
	}
	return nil
}

// LengthGuard rejects text longer than a rune budget.
type LengthGuard struct {
	limit int
}

func NewLengthGuard(limit int) *LengthGuard {
	return &LengthGuard{limit: limit}
}

func (g *LengthGuard) Name() string { return "length" }

func (g *LengthGuard) Check(_ context.Context, text string) Result {
	if g.limit > 0 && utf8.RuneCountInString(text) > g.limit {
		return Result{
			Reason: fmt.Sprintf("text exceeds %d characters", g.limit),
			Flags:  []string{"too_long"},
		}
	}
	return Result{Allowed: true}
}

type pattern struct {
	text   string
	weight float64
	flag   string
}

// InjectionDetector flags phrases that try to override the system prompt.
type InjectionDetector struct {
	patterns  []pattern
	threshold float64
}

func NewInjectionDetector() *InjectionDetector {
	return &InjectionDetector{
		threshold: 0.7,
		patterns: []pattern{
			{"ignore previous instructions", 0.9, "override_attempt"},
			{"ignore all previous", 0.9, "override_attempt"},
			{"disregard your instructions", 0.9, "override_attempt"},
			{"forget your instructions", 0.85, "override_attempt"},
			{"you are now", 0.7, "role_hijack"},
			{"pretend you are", 0.7, "role_hijack"},
			{"system prompt:", 0.8, "system_leak"},
			{"reveal your system", 0.8, "system_leak"},
			{"show me your prompt", 0.8, "system_leak"},
			{"jailbreak", 0.9, "jailbreak"},
			{"do anything now", 0.85, "jailbreak"},
			{"</system>", 0.8, "tag_injection"},
			{"<system>", 0.8, "tag_injection"},
			{"```system", 0.7, "format_injection"},
		},
	}
}

func (d *InjectionDetector) Name() string { return "prompt_injection" }

func (d *InjectionDetector) Check(_ context.Context, text string) Result {
	lower := strings.ToLower(text)
	var flags []string
	score := 0.0
	for _, p := range d.patterns {
		if strings.Contains(lower, p.text) {
			score = max(score, p.weight)
			flags = append(flags, p.flag)
		}
	}
	if score >= d.threshold {
		return Result{Reason: "instruction override detected", Flags: flags}
	}
	return Result{Allowed: true, Flags: flags}
}

// ContentFilter blocks requests in a few harmful categories.
type ContentFilter struct {
	blocked map[string][]string
}

func NewContentFilter() *ContentFilter {
	return &ContentFilter{
		blocked: map[string][]string{
			"violence": {"how to make a bomb", "how to make explosives", "how to kill"},
			"illegal":  {"how to hack into", "how to steal", "how to counterfeit"},
			"malware":  {"write malware", "create a virus", "write ransomware"},
		},
	}
}

func (f *ContentFilter) Name() string { return "content_filter" }

func (f *ContentFilter) Check(_ context.Context, text string) Result {
	lower := strings.ToLower(text)
	for category, phrases := range f.blocked {
		for _, p := range phrases {
			if strings.Contains(lower, p) {
				return Result{
					Reason: "content policy violation: " + category,
					Flags:  []string{"blocked_" + category},
				}
			}
		}
	}
	return Result{Allowed: true}
}
