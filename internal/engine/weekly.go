package engine

import (
	"time"

	"cloud.google.com/go/civil"

	"example.com/researchdesk/internal/domain"
)

// Window is a Monday to Saturday work week, both days inclusive. Sundays
// belong to no window.
type Window struct {
	Start civil.Date `json:"start"`
	End   civil.Date `json:"end"`
}

// WeekContaining returns the window of the week d falls in. A Sunday maps to
// the week that started the Monday before it, which does not contain it.
func WeekContaining(d civil.Date) Window {
	offset := (int(d.In(time.UTC).Weekday()) + 6) % 7
	start := d.AddDays(-offset)
	return Window{Start: start, End: start.AddDays(5)}
}

// Contains compares at day granularity.
func (w Window) Contains(d civil.Date) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}

// Delta is a before/after pair with its signed difference.
type Delta struct {
	Current  int `json:"current_week"`
	Previous int `json:"previous_week"`
	Delta    int `json:"delta"`
}

// MemberDeltas is one member's weekly comparison.
type MemberDeltas struct {
	Member     string                    `json:"member"`
	Categories map[domain.Category]Delta `json:"categories"`
}

// WeeklyComparison compares the week holding the reference date with the week
// before it.
type WeeklyComparison struct {
	Reference civil.Date                `json:"reference"`
	Current   Window                    `json:"current_window"`
	Previous  Window                    `json:"previous_window"`
	Totals    map[domain.Category]Delta `json:"totals"`
	Members   []MemberDeltas            `json:"members"`
	Orphaned  int                       `json:"orphaned_records"`
}

// CompareWeeks buckets records by their date into the current and previous
// windows. Every roster member and category is present in the output, zero
// when nothing matched. Records of members outside the roster are counted only
// in Orphaned.
func CompareWeeks(records []domain.Record, reference civil.Date, roster []string) WeeklyComparison {
	current := WeekContaining(reference)
	previous := WeekContaining(reference.AddDays(-7))

	curTotals, prevTotals := newCounts(), newCounts()
	curMembers := make(map[string]Counts, len(roster))
	prevMembers := make(map[string]Counts, len(roster))
	for _, m := range roster {
		curMembers[m] = newCounts()
		prevMembers[m] = newCounts()
	}

	orphaned := 0
	for _, r := range records {
		var totals Counts
		var members map[string]Counts
		switch {
		case current.Contains(r.Date):
			totals, members = curTotals, curMembers
		case previous.Contains(r.Date):
			totals, members = prevTotals, prevMembers
		default:
			continue
		}

		counts, ok := members[r.Member]
		if !ok {
			orphaned++
			continue
		}
		c := r.Category()
		if c == "" {
			continue
		}
		counts[c]++
		totals[c]++
	}

	out := WeeklyComparison{
		Reference: reference,
		Current:   current,
		Previous:  previous,
		Totals:    diff(curTotals, prevTotals),
		Members:   make([]MemberDeltas, 0, len(roster)),
		Orphaned:  orphaned,
	}
	for _, m := range roster {
		out.Members = append(out.Members, MemberDeltas{
			Member:     m,
			Categories: diff(curMembers[m], prevMembers[m]),
		})
	}
	return out
}

func diff(cur, prev Counts) map[domain.Category]Delta {
	out := make(map[domain.Category]Delta, len(cur))
	for _, c := range domain.Categories() {
		out[c] = Delta{Current: cur[c], Previous: prev[c], Delta: cur[c] - prev[c]}
	}
	return out
}
