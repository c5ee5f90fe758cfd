package policy

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/agentgate/internal/model"
)

// Input is what a matcher sees for one call.
type Input struct {
	Tool string
	Args model.Args
	Flat string
}

// Matcher is a predicate over a call. Implementations are the fixed set of
// variants in this file; rules are built from MatcherSpec, never from code.
type Matcher interface {
	Match(in Input) bool
}

// ToolsMatcher matches an exact tool name (case-insensitive).
type ToolsMatcher struct{ Tools []string }

func (m ToolsMatcher) Match(in Input) bool {
	for _, t := range m.Tools {
		if strings.EqualFold(t, in.Tool) {
			return true
		}
	}
	return false
}

// PrefixMatcher matches a tool-name prefix (case-insensitive).
type PrefixMatcher struct{ Prefix string }

func (m PrefixMatcher) Match(in Input) bool {
	return m.Prefix != "" && strings.HasPrefix(strings.ToLower(in.Tool), strings.ToLower(m.Prefix))
}

// PatternMatcher runs a regular expression over the flattened call.
type PatternMatcher struct{ Re *regexp.Regexp }

func (m PatternMatcher) Match(in Input) bool {
	return m.Re != nil && m.Re.MatchString(in.Flat)
}

// ArgMatcher tests one top-level argument rendered as text.
// The argument must be present. With Negate set the pattern must not match.
type ArgMatcher struct {
	Arg    string
	Re     *regexp.Regexp
	Negate bool
}

func (m ArgMatcher) Match(in Input) bool {
	v, ok := in.Args[m.Arg]
	if !ok || m.Re == nil {
		return false
	}
	hit := m.Re.MatchString(v.Text())
	if m.Negate {
		return !hit
	}
	return hit
}

// MinItemsMatcher matches when an argument holds at least Min items. Lists and
// maps count their elements; strings count comma- or semicolon-separated parts.
type MinItemsMatcher struct {
	Arg string
	Min int
}

func (m MinItemsMatcher) Match(in Input) bool {
	v, ok := in.Args[m.Arg]
	if !ok {
		return false
	}
	return ItemCount(v) >= m.Min
}

// ItemCount counts the entries carried by v.
func ItemCount(v model.Value) int {
	if s, ok := v.Str(); ok {
		n := 0
		for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
			if strings.TrimSpace(part) != "" {
				n++
			}
		}
		return n
	}
	return v.Len()
}

// AllMatcher matches when every child matches. Empty never matches.
type AllMatcher struct{ Of []Matcher }

func (m AllMatcher) Match(in Input) bool {
	if len(m.Of) == 0 {
		return false
	}
	for _, c := range m.Of {
		if !c.Match(in) {
			return false
		}
	}
	return true
}

// AnyMatcher matches when at least one child matches.
type AnyMatcher struct{ Of []Matcher }

func (m AnyMatcher) Match(in Input) bool {
	for _, c := range m.Of {
		if c.Match(in) {
			return true
		}
	}
	return false
}

// NotMatcher inverts its child.
type NotMatcher struct{ Of Matcher }

func (m NotMatcher) Match(in Input) bool {
	return m.Of != nil && !m.Of.Match(in)
}

// Never matches nothing. Broken or empty specs compile to it.
type Never struct{}

func (Never) Match(Input) bool { return false }

// MatcherSpec is the YAML form of a matcher. Every field that is set must
// hold; an entirely empty spec never matches.
type MatcherSpec struct {
	Tools         []string      `yaml:"tools,omitempty" json:"tools,omitempty"`
	ToolPrefix    string        `yaml:"tool_prefix,omitempty" json:"tool_prefix,omitempty"`
	Pattern       string        `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Arg           string        `yaml:"arg,omitempty" json:"arg,omitempty"`
	ArgPattern    string        `yaml:"arg_pattern,omitempty" json:"arg_pattern,omitempty"`
	ArgNotPattern string        `yaml:"arg_not_pattern,omitempty" json:"arg_not_pattern,omitempty"`
	MinItems      int           `yaml:"min_items,omitempty" json:"min_items,omitempty"`
	All           []MatcherSpec `yaml:"all,omitempty" json:"all,omitempty"`
	Any           []MatcherSpec `yaml:"any,omitempty" json:"any,omitempty"`
	Not           *MatcherSpec  `yaml:"not,omitempty" json:"not,omitempty"`
}

// Compile turns a spec into a Matcher. Invalid regular expressions yield
// Never in their place and are returned as errors; compilation itself
// always succeeds.
func (s MatcherSpec) Compile() (Matcher, []error) {
	var parts []Matcher
	var errs []error

	if len(s.Tools) > 0 {
		parts = append(parts, ToolsMatcher{Tools: s.Tools})
	}
	if s.ToolPrefix != "" {
		parts = append(parts, PrefixMatcher{Prefix: s.ToolPrefix})
	}
	if s.Pattern != "" {
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			errs = append(errs, fmt.Errorf("pattern %q: %w", s.Pattern, err))
			parts = append(parts, Never{})
		} else {
			parts = append(parts, PatternMatcher{Re: re})
		}
	}
	if s.Arg != "" {
		argParts := 0
		if s.ArgPattern != "" {
			parts = append(parts, compileArg(s.Arg, s.ArgPattern, false, &errs))
			argParts++
		}
		if s.ArgNotPattern != "" {
			parts = append(parts, compileArg(s.Arg, s.ArgNotPattern, true, &errs))
			argParts++
		}
		if s.MinItems > 0 {
			parts = append(parts, MinItemsMatcher{Arg: s.Arg, Min: s.MinItems})
			argParts++
		}
		if argParts == 0 {
			errs = append(errs, fmt.Errorf("arg %q needs arg_pattern, arg_not_pattern or min_items", s.Arg))
			parts = append(parts, Never{})
		}
	}
	if len(s.All) > 0 {
		var all []Matcher
		for _, c := range s.All {
			m, e := c.Compile()
			all = append(all, m)
			errs = append(errs, e...)
		}
		parts = append(parts, AllMatcher{Of: all})
	}
	if len(s.Any) > 0 {
		var anyOf []Matcher
		for _, c := range s.Any {
			m, e := c.Compile()
			anyOf = append(anyOf, m)
			errs = append(errs, e...)
		}
		parts = append(parts, AnyMatcher{Of: anyOf})
	}
	if s.Not != nil {
		m, e := s.Not.Compile()
		errs = append(errs, e...)
		parts = append(parts, NotMatcher{Of: m})
	}

	switch len(parts) {
	case 0:
		return Never{}, errs
	case 1:
		return parts[0], errs
	default:
		return AllMatcher{Of: parts}, errs
	}
}

// Empty reports whether no matcher field is set.
func (s MatcherSpec) Empty() bool {
	return len(s.Tools) == 0 && s.ToolPrefix == "" && s.Pattern == "" && s.Arg == "" &&
		len(s.All) == 0 && len(s.Any) == 0 && s.Not == nil
}

func compileArg(arg, pattern string, negate bool, errs *[]error) Matcher {
	re, err := regexp.Compile(pattern)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("arg %q pattern %q: %w", arg, pattern, err))
		return Never{}
	}
	return ArgMatcher{Arg: arg, Re: re, Negate: negate}
}
