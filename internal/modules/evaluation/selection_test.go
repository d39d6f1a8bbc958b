package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/factorlab/internal/modules/redundancy"
	"github.com/aristath/factorlab/internal/modules/scoring"
)

func rankingFixture() []RankingRow {
	return []RankingRow{
		{Rank: 1, FactorID: "alpha", Grade: scoring.GradeA, TotalScore: 0.85},
		{Rank: 2, FactorID: "beta", Grade: scoring.GradeB, TotalScore: 0.70},
		{Rank: 3, FactorID: "gamma", Grade: scoring.GradeB, TotalScore: 0.68},
		{Rank: 4, FactorID: "delta", Grade: scoring.GradeC, TotalScore: 0.55},
		{Rank: 5, FactorID: "epsilon", Grade: scoring.GradeD, TotalScore: 0.40},
		{Rank: 6, FactorID: "zeta", Grade: scoring.GradeF, TotalScore: 0.10},
	}
}

func TestBuildSuggestions_Sets(t *testing.T) {
	groups := []redundancy.Group{
		{ID: 0, Members: []string{"alpha", "gamma"}, Representative: "alpha"},
		{ID: 1, Members: []string{"beta"}, Representative: "beta"},
	}

	s := BuildSuggestions(rankingFixture(), groups, 0)

	assert.Equal(t, []string{"alpha", "beta", "gamma"}, s.HighQuality)
	assert.Equal(t, []string{"epsilon", "zeta"}, s.LowPerformance)
	assert.Equal(t, []string{"gamma"}, s.Redundant)
	// gamma is high quality but redundant, so it drops out.
	assert.Equal(t, []string{"alpha", "beta"}, s.Recommended)
}

func TestBuildSuggestions_TopsUpToFloor(t *testing.T) {
	s := BuildSuggestions(rankingFixture(), nil, 4)

	// alpha/beta/gamma qualify outright; delta (grade C) tops up the set.
	assert.Contains(t, s.Recommended, "delta")
	assert.Len(t, s.Recommended, 4)
	assert.NotContains(t, s.Recommended, "epsilon", "D/F factors never top up")
}

func TestBuildSuggestions_RedundantNeverRecommended(t *testing.T) {
	groups := []redundancy.Group{
		{ID: 0, Members: []string{"alpha", "beta", "gamma", "delta"}, Representative: "alpha"},
	}
	s := BuildSuggestions(rankingFixture(), groups, 10)

	for _, id := range []string{"beta", "gamma", "delta"} {
		assert.NotContains(t, s.Recommended, id)
	}
	assert.Contains(t, s.Recommended, "alpha")
}

func TestBuildSuggestions_Empty(t *testing.T) {
	s := BuildSuggestions(nil, nil, 5)
	assert.Empty(t, s.HighQuality)
	assert.Empty(t, s.Recommended)
}
