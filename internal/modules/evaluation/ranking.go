package evaluation

import (
	"fmt"
	"sort"

	"github.com/aristath/factorlab/internal/modules/scoring"
)

// RankingRow is one line of the factor ranking.
type RankingRow struct {
	Rank              int           `json:"rank"`
	FactorID          string        `json:"factor_id"`
	TotalScore        float64       `json:"total_score"`
	Grade             scoring.Grade `json:"grade"`
	ICScore           float64       `json:"ic_score"`
	StabilityScore    float64       `json:"stability_score"`
	DataQualityScore  float64       `json:"data_quality_score"`
	DistributionScore float64       `json:"distribution_score"`
	ConsistencyScore  float64       `json:"consistency_score"`
	PrimaryHorizon    int           `json:"primary_horizon"`
	SampleCount       int           `json:"sample_size"`
	MissingRatio      float64       `json:"missing_ratio"`
}

// BuildRanking orders evaluations by total score, best first. The input
// arrives in panel order, and the sort is stable, so equal scores keep
// insertion order and the ranking is deterministic.
func BuildRanking(evals []FactorEvaluation) []RankingRow {
	rows := make([]RankingRow, 0, len(evals))
	for _, ev := range evals {
		st := ev.HorizonStats[ev.PrimaryHorizon]
		rows = append(rows, RankingRow{
			FactorID:          ev.FactorID,
			TotalScore:        ev.Score.TotalScore,
			Grade:             ev.Score.Grade,
			ICScore:           ev.Score.ICScore,
			StabilityScore:    ev.Score.StabilityScore,
			DataQualityScore:  ev.Score.DataQualityScore,
			DistributionScore: ev.Score.DistributionScore,
			ConsistencyScore:  ev.Score.ConsistencyScore,
			PrimaryHorizon:    ev.PrimaryHorizon,
			SampleCount:       st.SampleCount,
			MissingRatio:      ev.Sample.MissingRatio,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].TotalScore > rows[j].TotalScore })
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

// SortRanking re-orders ranking rows by a named sub-metric, best first,
// and renumbers ranks. Unknown metrics are rejected.
func SortRanking(rows []RankingRow, metric string) error {
	key, ok := map[string]func(RankingRow) float64{
		"total_score":        func(r RankingRow) float64 { return r.TotalScore },
		"ic_score":           func(r RankingRow) float64 { return r.ICScore },
		"stability_score":    func(r RankingRow) float64 { return r.StabilityScore },
		"data_quality_score": func(r RankingRow) float64 { return r.DataQualityScore },
		"distribution_score": func(r RankingRow) float64 { return r.DistributionScore },
		"consistency_score":  func(r RankingRow) float64 { return r.ConsistencyScore },
	}[metric]
	if !ok {
		return fmt.Errorf("unknown ranking metric %q", metric)
	}
	sort.SliceStable(rows, func(i, j int) bool { return key(rows[i]) > key(rows[j]) })
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return nil
}
