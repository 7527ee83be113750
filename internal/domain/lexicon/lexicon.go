// Package lexicon loads the per-language phrase tables used by commitment detection,
// case resolution and ticket commands.
package lexicon

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var dataFS embed.FS

// Rule names how a time-tier pattern turns into a deadline.
type Rule string

const (
	RuleFixedMinutes    Rule = "fixed_minutes"
	RuleFixedHours      Rule = "fixed_hours"
	RuleCapturedMinutes Rule = "captured_minutes"
	RuleCapturedHours   Rule = "captured_hours"
	RuleTomorrowMorning Rule = "tomorrow_morning"
	RuleThisMorning     Rule = "this_morning"
	RuleTomorrow        Rule = "tomorrow"
	RuleEndOfDay        Rule = "end_of_day"
)

func (r Rule) valid() bool {
	switch r {
	case RuleFixedMinutes, RuleFixedHours, RuleCapturedMinutes, RuleCapturedHours,
		RuleTomorrowMorning, RuleThisMorning, RuleTomorrow, RuleEndOfDay:
		return true
	}
	return false
}

// Captures reports whether the rule reads its amount from the named group "n".
func (r Rule) Captures() bool {
	return r == RuleCapturedMinutes || r == RuleCapturedHours
}

// Pattern is a regular expression fragment; time patterns also carry a deadline rule.
type Pattern struct {
	Expr  string `yaml:"expr"`
	Rule  Rule   `yaml:"rule,omitempty"`
	Value int    `yaml:"value,omitempty"`
}

type Language struct {
	Code               string    `yaml:"code"`
	Time               []Pattern `yaml:"time"`
	Action             []Pattern `yaml:"action"`
	Vague              []Pattern `yaml:"vague"`
	ResolutionKeywords []string  `yaml:"resolution_keywords"`
	TicketCommands     []string  `yaml:"ticket_commands"`
}

// Lexicon is the merged set of languages, in file-name order.
type Lexicon struct {
	Languages []Language
}

var (
	defaultOnce sync.Once
	defaultLex  *Lexicon
)

// Default returns the embedded lexicon. It panics if the embedded tables are invalid,
// which the package tests guard against.
func Default() *Lexicon {
	defaultOnce.Do(func() {
		lex, err := Load(dataFS)
		if err != nil {
			panic(fmt.Sprintf("lexicon: embedded tables are invalid: %v", err))
		}
		defaultLex = lex
	})
	return defaultLex
}

// Load parses every data/*.yaml file of fsys.
func Load(fsys fs.FS) (*Lexicon, error) {
	files, err := fs.Glob(fsys, "data/*.yaml")
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	lex := &Lexicon{}
	for _, file := range files {
		raw, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		var lang Language
		if err := yaml.Unmarshal(raw, &lang); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		if lang.Code == "" {
			lang.Code = strings.TrimSuffix(path.Base(file), path.Ext(file))
		}
		if err := lang.validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		lex.Languages = append(lex.Languages, lang)
	}
	if len(lex.Languages) == 0 {
		return nil, fmt.Errorf("no language tables found")
	}
	return lex, nil
}

func (l Language) validate() error {
	for i, p := range l.Time {
		if p.Expr == "" {
			return fmt.Errorf("time pattern %d has no expr", i)
		}
		if !p.Rule.valid() {
			return fmt.Errorf("time pattern %q has unknown rule %q", p.Expr, p.Rule)
		}
		if p.Rule.Captures() && !strings.Contains(p.Expr, "(?P<n>") {
			return fmt.Errorf("time pattern %q must capture the amount as (?P<n>...)", p.Expr)
		}
	}
	for _, group := range [][]Pattern{l.Action, l.Vague} {
		for i, p := range group {
			if p.Expr == "" {
				return fmt.Errorf("pattern %d has no expr", i)
			}
		}
	}
	return nil
}

// ResolutionKeywords returns the resolution words of all languages, lowercased.
func (l *Lexicon) ResolutionKeywords() []string {
	var out []string
	for _, lang := range l.Languages {
		for _, kw := range lang.ResolutionKeywords {
			out = append(out, strings.ToLower(kw))
		}
	}
	return out
}

// TicketCommands returns the plain-text ticket command phrases of all languages, lowercased.
func (l *Lexicon) TicketCommands() []string {
	var out []string
	for _, lang := range l.Languages {
		for _, phrase := range lang.TicketCommands {
			out = append(out, strings.ToLower(phrase))
		}
	}
	return out
}
