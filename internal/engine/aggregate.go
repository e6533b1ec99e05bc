// Package engine turns a snapshot of activity records into quota progress,
// pacing and week-over-week statistics. Every function here is pure: callers
// pass the snapshot and "today" explicitly.
package engine

import "example.com/researchdesk/internal/domain"

// Counts holds one count per category. Maps produced by this package always
// carry every category, zero-filled.
type Counts map[domain.Category]int

func newCounts() Counts {
	c := make(Counts, len(domain.Categories()))
	for _, cat := range domain.Categories() {
		c[cat] = 0
	}
	return c
}

// MemberCounts is one roster member's tally.
type MemberCounts struct {
	Member      string
	Counts      Counts
	ReportKinds map[domain.ReportKind]int
}

// Tally is the Aggregator output for one snapshot.
type Tally struct {
	Members []MemberCounts
	// Orphaned counts in-quarter records whose member is not on the roster.
	// They are excluded from every aggregate.
	Orphaned int
}

// Member returns the tally of one member.
func (t Tally) Member(member string) (MemberCounts, bool) {
	for _, m := range t.Members {
		if m.Member == member {
			return m, true
		}
	}
	return MemberCounts{}, false
}

// Aggregate counts each roster member's records per category, restricted to
// records dated inside the quarter. Members appear in roster order. The input
// slice is only read.
func Aggregate(records []domain.Record, roster []string, q Quarter) Tally {
	tally := Tally{Members: make([]MemberCounts, len(roster))}
	index := make(map[string]int, len(roster))
	for i, member := range roster {
		tally.Members[i] = MemberCounts{
			Member:      member,
			Counts:      newCounts(),
			ReportKinds: map[domain.ReportKind]int{domain.ReportDeep: 0, domain.ReportTopic: 0},
		}
		index[member] = i
	}

	for _, r := range records {
		if !q.Contains(r.Date) {
			continue
		}
		i, ok := index[r.Member]
		if !ok {
			tally.Orphaned++
			continue
		}
		m := &tally.Members[i]

		switch d := r.Details.(type) {
		case domain.Roadshow:
			m.Counts[domain.CategoryRoadshow]++
		case domain.Call:
			m.Counts[domain.CategoryCall]++
		case domain.Report:
			m.Counts[domain.CategoryReport]++
			switch d.Kind {
			case domain.ReportDeep, domain.ReportTopic:
				m.ReportKinds[d.Kind]++
			}
		case domain.HighFrequency:
			m.Counts[domain.CategoryService]++
		case domain.Internal:
			m.Counts[domain.CategoryInternal]++
		}
	}

	return tally
}
