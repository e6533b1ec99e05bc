package engine

import (
	"errors"
	"fmt"

	"example.com/researchdesk/internal/domain"
)

var (
	// ErrMissingTarget is returned when a composite category has no target for a member.
	ErrMissingTarget = errors.New("missing quota target")
	// ErrInvalidQuota wraps malformed roster or quota configuration.
	ErrInvalidQuota = errors.New("invalid quota configuration")
)

// Targets maps a category to its quarterly target.
type Targets map[domain.Category]int

// QuotaTable is the static roster and per-member targets, plus the explicit
// list of categories that feed the composite.
type QuotaTable struct {
	roster    []string
	targets   map[string]Targets
	composite []domain.Category
}

// NewQuotaTable validates and freezes the quota configuration. Every roster
// member needs a non-negative target for every composite category.
func NewQuotaTable(roster []string, targets map[string]Targets, composite []domain.Category) (*QuotaTable, error) {
	if len(roster) == 0 {
		return nil, fmt.Errorf("%w: roster is empty", ErrInvalidQuota)
	}
	if len(composite) == 0 {
		return nil, fmt.Errorf("%w: composite category list is empty", ErrInvalidQuota)
	}

	seenCat := make(map[domain.Category]struct{}, len(composite))
	for _, c := range composite {
		if !c.Valid() {
			return nil, fmt.Errorf("%w: unknown composite category %q", ErrInvalidQuota, c)
		}
		if _, dup := seenCat[c]; dup {
			return nil, fmt.Errorf("%w: composite category %q listed twice", ErrInvalidQuota, c)
		}
		seenCat[c] = struct{}{}
	}

	table := &QuotaTable{
		roster:    append([]string(nil), roster...),
		targets:   make(map[string]Targets, len(roster)),
		composite: append([]domain.Category(nil), composite...),
	}

	for _, member := range roster {
		if member == "" {
			return nil, fmt.Errorf("%w: blank roster member", ErrInvalidQuota)
		}
		if _, dup := table.targets[member]; dup {
			return nil, fmt.Errorf("%w: member %q listed twice", ErrInvalidQuota, member)
		}
		own := make(Targets, len(targets[member]))
		for c, target := range targets[member] {
			if !c.Valid() {
				return nil, fmt.Errorf("%w: member %q has target for unknown category %q", ErrInvalidQuota, member, c)
			}
			if target < 0 {
				return nil, fmt.Errorf("%w: member %q has negative %s target", ErrInvalidQuota, member, c)
			}
			own[c] = target
		}
		for _, c := range composite {
			if _, ok := own[c]; !ok {
				return nil, fmt.Errorf("%w: member %q category %s", ErrMissingTarget, member, c)
			}
		}
		table.targets[member] = own
	}

	for member := range targets {
		if _, ok := table.targets[member]; !ok {
			return nil, fmt.Errorf("%w: targets given for %q who is not on the roster", ErrInvalidQuota, member)
		}
	}

	return table, nil
}

// Roster returns the members in configured order.
func (t *QuotaTable) Roster() []string {
	return append([]string(nil), t.roster...)
}

// Composite returns the categories that feed the composite percentage.
func (t *QuotaTable) Composite() []domain.Category {
	return append([]domain.Category(nil), t.composite...)
}

// Target returns a member's target for a category.
func (t *QuotaTable) Target(member string, c domain.Category) (int, bool) {
	target, ok := t.targets[member][c]
	return target, ok
}
