package engine

import (
	"errors"
	"fmt"
	"math"

	"example.com/researchdesk/internal/domain"
)

// ErrEmptyRoster signals that a team composite is undefined.
var ErrEmptyRoster = errors.New("team composite undefined for empty roster")

// LowestThreshold is the composite below which the cohort minimum is flagged.
const LowestThreshold = 50

// Pair is a current value against its target.
type Pair struct {
	Current int `json:"current"`
	Target  int `json:"target"`
}

// Rate is current/target capped at 1. A zero target counts as complete.
func (p Pair) Rate() float64 {
	if p.Target <= 0 {
		return 1
	}
	return math.Min(float64(p.Current)/float64(p.Target), 1)
}

// Standing classifies a composite against the pacing baseline.
type Standing string

const (
	StandingSeverelyLagging Standing = "severely_lagging"
	StandingLagging         Standing = "lagging"
	StandingOnPace          Standing = "on_pace"
)

// Classify compares composite with the pacing baseline.
func Classify(composite, baseline int) Standing {
	switch {
	case composite < baseline-20:
		return StandingSeverelyLagging
	case composite < baseline-10:
		return StandingLagging
	default:
		return StandingOnPace
	}
}

// Composite averages the capped rates of the subset categories and returns a
// whole percentage. A subset category without a pair is an error rather than
// a silent zero.
func Composite(pairs map[domain.Category]Pair, subset []domain.Category) (int, error) {
	if len(subset) == 0 {
		return 0, fmt.Errorf("%w: no composite categories", ErrInvalidQuota)
	}
	var sum float64
	for _, c := range subset {
		p, ok := pairs[c]
		if !ok {
			return 0, fmt.Errorf("%w: category %s", ErrMissingTarget, c)
		}
		sum += p.Rate()
	}
	return int(math.Round(100 * sum / float64(len(subset)))), nil
}

// MemberProgress is one member's derived progress. It is never persisted.
type MemberProgress struct {
	Member     string                    `json:"member"`
	Categories map[domain.Category]Pair  `json:"categories"`
	Composite  int                       `json:"composite"`
	Standing   Standing                  `json:"standing"`
	Lowest     bool                      `json:"lowest_in_cohort"`
	Reports    map[domain.ReportKind]int `json:"report_kinds"`
}

// Progress pairs each member's counts with their targets and computes the
// composite. Categories without a configured target are left out of
// Categories; composite categories always have one.
func (t *QuotaTable) Progress(tally Tally) ([]MemberProgress, error) {
	out := make([]MemberProgress, 0, len(tally.Members))
	for _, m := range tally.Members {
		pairs := make(map[domain.Category]Pair, len(m.Counts))
		for _, c := range domain.Categories() {
			target, ok := t.Target(m.Member, c)
			if !ok {
				continue
			}
			pairs[c] = Pair{Current: m.Counts[c], Target: target}
		}

		composite, err := Composite(pairs, t.composite)
		if err != nil {
			return nil, fmt.Errorf("member %s: %w", m.Member, err)
		}

		out = append(out, MemberProgress{
			Member:     m.Member,
			Categories: pairs,
			Composite:  composite,
			Reports:    m.ReportKinds,
		})
	}
	return out, nil
}

// TeamComposite is the rounded mean of the member composites.
func TeamComposite(members []MemberProgress) (int, error) {
	if len(members) == 0 {
		return 0, ErrEmptyRoster
	}
	var sum int
	for _, m := range members {
		sum += m.Composite
	}
	return int(math.Round(float64(sum) / float64(len(members)))), nil
}

// ApplyStandings sets every member's Standing against baseline.
func ApplyStandings(members []MemberProgress, baseline int) {
	for i := range members {
		members[i].Standing = Classify(members[i].Composite, baseline)
	}
}

// FlagLowest marks every member sharing the cohort minimum composite when
// that minimum is below LowestThreshold. Flags from a previous pass are reset.
func FlagLowest(members []MemberProgress) {
	if len(members) == 0 {
		return
	}
	lowest := members[0].Composite
	for _, m := range members[1:] {
		lowest = min(lowest, m.Composite)
	}
	for i := range members {
		members[i].Lowest = lowest < LowestThreshold && members[i].Composite == lowest
	}
}
