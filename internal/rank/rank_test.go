package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankFor(t *testing.T) {
	tests := []struct {
		points int64
		want   string
	}{
		{0, "Believer"},
		{499, "Believer"},
		{500, "Committed"},
		{999, "Committed"},
		{1000, "Signal Giver"},
		{2499, "Signal Giver"},
		{2500, "Curator"},
		{5000, "Scout"},
		{9999, "Scout"},
		{10000, "Super Scout"},
		{15000, "Cult Starter"},
		{25000, "Cult Leader"},
		{49999, "Cult Leader"},
		{50000, "Inner Circle"},
		{99999, "Inner Circle"},
		{100000, "The Belief Engine"},
		{10_000_000, "The Belief Engine"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RankFor(tt.points).Name, "points=%d", tt.points)
	}
}

func TestNextRank(t *testing.T) {
	next, ok := NextRank(0)
	require.True(t, ok)
	assert.Equal(t, "Committed", next.Rank.Name)
	assert.Equal(t, int64(500), next.PointsNeeded)

	next, ok = NextRank(499)
	require.True(t, ok)
	assert.Equal(t, "Committed", next.Rank.Name)
	assert.Equal(t, int64(1), next.PointsNeeded)

	next, ok = NextRank(99999)
	require.True(t, ok)
	assert.Equal(t, "The Belief Engine", next.Rank.Name)
	assert.Equal(t, int64(1), next.PointsNeeded)

	// 最高等级没有下一级
	next, ok = NextRank(100000)
	assert.False(t, ok)
	assert.Nil(t, next)
}

func TestAllReturnsCopy(t *testing.T) {
	all := All()
	require.Len(t, all, 10)

	all[0].Name = "mutated"
	assert.Equal(t, "Believer", RankFor(0).Name)
}
