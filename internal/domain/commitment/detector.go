package commitment

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"jan-server/services/helpdesk-api/internal/domain/lexicon"
)

const (
	// Texts of this many characters or fewer are never scanned.
	minTextRunes = 3

	actionWindow   = 4 * time.Hour
	vagueWindow    = 30 * time.Minute
	urgentWindow   = 2 * time.Hour
	reminderLead   = time.Hour
	vagueLead      = 30 * time.Minute
	morningHour    = 9
	middayHour     = 12
	endOfDayHour   = 18
	eveningCutover = 18
)

// tierOrder is the precedence between tiers: the first tier with a match wins.
var tierOrder = []Type{TypeTime, TypeAction, TypeVague}

type compiledPattern struct {
	re       *regexp.Regexp
	rule     lexicon.Rule
	value    int
	amount   int
	language string
}

// Detector finds commitments in free text. It is safe for concurrent use.
type Detector struct {
	tiers map[Type][]compiledPattern
	loc   *time.Location
}

// Detection is the outcome of scanning one text.
type Detection struct {
	HasCommitment bool      `yaml:"has_commitment"`
	IsVague       bool      `yaml:"is_vague"`
	Type          Type      `yaml:"type,omitempty"`
	MatchedSpan   string    `yaml:"matched_span,omitempty"`
	Language      string    `yaml:"language,omitempty"`
	Deadline      time.Time `yaml:"deadline,omitempty"`
}

// NewDetector compiles the lexicon's patterns. Deadlines are computed in loc.
func NewDetector(lex *lexicon.Lexicon, loc *time.Location) (*Detector, error) {
	if loc == nil {
		loc = time.UTC
	}
	d := &Detector{tiers: make(map[Type][]compiledPattern), loc: loc}

	for _, lang := range lex.Languages {
		groups := map[Type][]lexicon.Pattern{
			TypeTime:   lang.Time,
			TypeAction: lang.Action,
			TypeVague:  lang.Vague,
		}
		for _, tier := range tierOrder {
			for _, p := range groups[tier] {
				re, err := regexp.Compile(`(?i)(?:^|[^\p{L}\p{N}_])(` + p.Expr + `)(?:$|[^\p{L}\p{N}_])`)
				if err != nil {
					return nil, fmt.Errorf("%s %s pattern %q: %w", lang.Code, tier, p.Expr, err)
				}
				d.tiers[tier] = append(d.tiers[tier], compiledPattern{
					re:       re,
					rule:     p.Rule,
					value:    p.Value,
					amount:   re.SubexpIndex("n"),
					language: lang.Code,
				})
			}
		}
	}
	return d, nil
}

// Location is the zone deadlines are computed in.
func (d *Detector) Location() *time.Location {
	return d.loc
}

// Detect scans text. now is the reference point for every relative deadline.
func (d *Detector) Detect(text string, now time.Time) Detection {
	if len([]rune(text)) <= minTextRunes {
		return Detection{}
	}
	now = now.In(d.loc)

	for _, tier := range tierOrder {
		for _, p := range d.tiers[tier] {
			m := p.re.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			det := Detection{
				HasCommitment: true,
				IsVague:       tier == TypeVague,
				Type:          tier,
				MatchedSpan:   m[1],
				Language:      p.language,
			}
			switch tier {
			case TypeTime:
				deadline, ok := d.deadline(p, m, now)
				if !ok {
					continue
				}
				det.Deadline = deadline
			case TypeAction:
				det.Deadline = now.Add(actionWindow)
			case TypeVague:
				det.Deadline = now.Add(vagueWindow)
			}
			return det
		}
	}
	return Detection{}
}

func (d *Detector) deadline(p compiledPattern, m []string, now time.Time) (time.Time, bool) {
	amount := p.value
	if p.rule.Captures() {
		if p.amount < 0 || p.amount >= len(m) {
			return time.Time{}, false
		}
		n, err := strconv.Atoi(m[p.amount])
		if err != nil {
			return time.Time{}, false
		}
		amount = n
	}

	switch p.rule {
	case lexicon.RuleFixedMinutes, lexicon.RuleCapturedMinutes:
		return now.Add(time.Duration(amount) * time.Minute), true
	case lexicon.RuleFixedHours, lexicon.RuleCapturedHours:
		return now.Add(time.Duration(amount) * time.Hour), true
	case lexicon.RuleTomorrowMorning:
		return d.at(now, 1, morningHour), true
	case lexicon.RuleThisMorning:
		// Said in the evening, "in the morning" means the next one.
		if now.Hour() >= eveningCutover {
			return d.at(now, 1, morningHour), true
		}
		return d.at(now, 0, middayHour), true
	case lexicon.RuleTomorrow:
		return d.at(now, 1, middayHour), true
	case lexicon.RuleEndOfDay:
		eod := d.at(now, 0, endOfDayHour)
		if !eod.After(now) {
			return now.Add(time.Hour), true
		}
		return eod, true
	}
	return time.Time{}, false
}

func (d *Detector) at(now time.Time, addDays, hour int) time.Time {
	y, mo, day := now.AddDate(0, 0, addDays).Date()
	return time.Date(y, mo, day, hour, 0, 0, 0, d.loc)
}

// ReminderAt is one hour before the deadline, or thirty minutes for vague promises.
// It may already be in the past.
func (det Detection) ReminderAt() time.Time {
	if det.IsVague {
		return det.Deadline.Add(-vagueLead)
	}
	return det.Deadline.Add(-reminderLead)
}

// PriorityAt ranks a detection: concrete promises due within two hours are high, vague
// ones low, everything else medium.
func (det Detection) PriorityAt(now time.Time) Priority {
	switch {
	case det.IsVague:
		return PriorityLow
	case det.Type == TypeTime && det.Deadline.Sub(now) <= urgentWindow:
		return PriorityHigh
	default:
		return PriorityMedium
	}
}
