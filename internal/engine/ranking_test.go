package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/researchdesk/internal/domain"
)

func entryRank(e domain.RankEntry) int { return e.Rank }

func TestSortByRankIsStable(t *testing.T) {
	in := []domain.RankEntry{
		{ID: "1", Rank: 2},
		{ID: "2", Rank: 1},
		{ID: "3", Rank: 1},
	}

	out := SortByRank(in, entryRank)

	require.Equal(t, []string{"2", "3", "1"}, entryIDs(out))
	require.Equal(t, []string{"1", "2", "3"}, entryIDs(in))
}

func TestTopN(t *testing.T) {
	in := []domain.RankEntry{
		{ID: "g1", Name: "Financials", Rank: 6, Share: 5.2},
		{ID: "g2", Rank: 2},
		{ID: "g3", Rank: 3},
		{ID: "g4", Rank: 2},
		{ID: "g5", Rank: 9},
		{ID: "g6", Rank: 1},
	}

	require.Equal(t, []string{"g6", "g2", "g4"}, entryIDs(TopN(in, entryRank, 3)))
	require.Len(t, TopN(in, entryRank, 50), len(in))
	require.Empty(t, TopN(in, entryRank, 0))
	require.Empty(t, TopN[domain.RankEntry](nil, entryRank, 5))
}

func entryIDs(entries []domain.RankEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}
