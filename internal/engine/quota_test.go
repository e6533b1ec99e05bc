package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/researchdesk/internal/domain"
)

func fullTargets(n int) Targets {
	return Targets{
		domain.CategoryRoadshow: n,
		domain.CategoryCall:     n,
		domain.CategoryReport:   n,
		domain.CategoryService:  n,
	}
}

func TestNewQuotaTable(t *testing.T) {
	cases := []struct {
		name      string
		roster    []string
		targets   map[string]Targets
		composite []domain.Category
		wantErr   error
	}{
		{
			name:      "valid",
			roster:    []string{"a", "b"},
			targets:   map[string]Targets{"a": fullTargets(1), "b": fullTargets(0)},
			composite: fourCategories,
		},
		{
			name:      "empty roster",
			targets:   map[string]Targets{},
			composite: fourCategories,
			wantErr:   ErrInvalidQuota,
		},
		{
			name:      "missing composite target",
			roster:    []string{"a"},
			targets:   map[string]Targets{"a": {domain.CategoryRoadshow: 3}},
			composite: fourCategories,
			wantErr:   ErrMissingTarget,
		},
		{
			name:      "negative target",
			roster:    []string{"a"},
			targets:   map[string]Targets{"a": {domain.CategoryRoadshow: -1, domain.CategoryCall: 1, domain.CategoryReport: 1, domain.CategoryService: 1}},
			composite: fourCategories,
			wantErr:   ErrInvalidQuota,
		},
		{
			name:      "duplicate member",
			roster:    []string{"a", "a"},
			targets:   map[string]Targets{"a": fullTargets(1)},
			composite: fourCategories,
			wantErr:   ErrInvalidQuota,
		},
		{
			name:      "targets for stranger",
			roster:    []string{"a"},
			targets:   map[string]Targets{"a": fullTargets(1), "z": fullTargets(1)},
			composite: fourCategories,
			wantErr:   ErrInvalidQuota,
		},
		{
			name:      "unknown composite category",
			roster:    []string{"a"},
			targets:   map[string]Targets{"a": fullTargets(1)},
			composite: []domain.Category{"lunch"},
			wantErr:   ErrInvalidQuota,
		},
		{
			name:      "empty composite list",
			roster:    []string{"a"},
			targets:   map[string]Targets{"a": fullTargets(1)},
			composite: nil,
			wantErr:   ErrInvalidQuota,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			table, err := NewQuotaTable(tc.roster, tc.targets, tc.composite)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.roster, table.Roster())
			target, ok := table.Target("b", domain.CategoryCall)
			require.True(t, ok)
			require.Zero(t, target)
		})
	}
}

func TestThreeCategoryComposite(t *testing.T) {
	three := []domain.Category{domain.CategoryRoadshow, domain.CategoryCall, domain.CategoryReport}
	quotas, err := NewQuotaTable([]string{"peidong"}, map[string]Targets{
		"peidong": {domain.CategoryRoadshow: 25, domain.CategoryCall: 3, domain.CategoryReport: 2},
	}, three)
	require.NoError(t, err)

	pairs := map[domain.Category]Pair{
		domain.CategoryRoadshow: {Current: 18, Target: 25},
		domain.CategoryCall:     {Current: 2, Target: 3},
		domain.CategoryReport:   {Current: 1, Target: 2},
	}
	composite, err := Composite(pairs, quotas.Composite())
	require.NoError(t, err)
	// (0.72 + 0.6667 + 0.5) / 3
	require.Equal(t, 63, composite)
}
