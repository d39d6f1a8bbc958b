package evaluation

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/factorlab/internal/events"
	"github.com/aristath/factorlab/internal/modules/ic"
	"github.com/aristath/factorlab/internal/modules/scoring"
	"github.com/aristath/factorlab/internal/timeseries"
)

var testLog = zerolog.New(nil).Level(zerolog.Disabled)

const testStrategy = "short_term" // windows {10,20,30}, horizons {1,3,5,10}

func testOptions() Options {
	return Options{
		Strategy: testStrategy,
		Scoring:  scoring.DefaultConfig(),
		Method:   ic.Pearson,
		Workers:  4,
	}
}

func start() time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

// testReturns builds deterministic pseudo-random return series for every
// horizon the strategy needs.
func testReturns(n int, horizons []int, seed int64) map[int]timeseries.Series {
	rng := rand.New(rand.NewSource(seed))
	base := make([]float64, n)
	for i := range base {
		base[i] = rng.NormFloat64() * 0.01
	}
	out := make(map[int]timeseries.Series, len(horizons))
	for _, h := range horizons {
		values := make([]float64, n)
		for i := range values {
			if i < h {
				values[i] = math.NaN()
				continue
			}
			sum := 0.0
			for k := i - h + 1; k <= i; k++ {
				sum += base[k]
			}
			values[i] = sum
		}
		out[h] = timeseries.FromValues(start(), values)
	}
	return out
}

func noiseSeries(n int, seed int64) timeseries.Series {
	rng := rand.New(rand.NewSource(seed))
	values := make([]float64, n)
	for i := range values {
		values[i] = rng.NormFloat64()
	}
	return timeseries.FromValues(start(), values)
}

func TestNewEvaluator_RejectsBadConfig(t *testing.T) {
	opts := testOptions()
	opts.Strategy = "nonsense"
	_, err := NewEvaluator(opts, nil, testLog)
	assert.Error(t, err)

	opts = testOptions()
	opts.Scoring.Weights.IC = 0.9
	_, err = NewEvaluator(opts, nil, testLog)
	assert.Error(t, err)
}

func TestEvaluateFactor_MissingHorizonIsError(t *testing.T) {
	e, err := NewEvaluator(testOptions(), nil, testLog)
	require.NoError(t, err)

	const n = 200
	returns := testReturns(n, []int{1, 3, 5}, 1) // horizon 10 missing
	_, err = e.EvaluateFactor("f", noiseSeries(n, 2), returns)
	assert.Error(t, err)
}

func TestEvaluateFactor_NoOverlap(t *testing.T) {
	e, err := NewEvaluator(testOptions(), nil, testLog)
	require.NoError(t, err)

	const n = 200
	returns := testReturns(n, []int{1, 3, 5, 10}, 1)
	// Factor indexed years away from the return series.
	far := timeseries.FromValues(start().AddDate(10, 0, 0), []float64{1, 2, 3, 4, 5})
	_, err = e.EvaluateFactor("far", far, returns)
	assert.ErrorIs(t, err, ErrNoOverlap)
}

func TestEvaluateFactor_ProducesFullStats(t *testing.T) {
	e, err := NewEvaluator(testOptions(), nil, testLog)
	require.NoError(t, err)

	const n = 400
	returns := testReturns(n, []int{1, 3, 5, 10}, 1)
	res, err := e.EvaluateFactor("noise", noiseSeries(n, 7), returns)
	require.NoError(t, err)

	assert.Equal(t, "noise", res.FactorID)
	assert.False(t, res.Insufficient)
	assert.Len(t, res.HorizonStats, 4)
	assert.Len(t, res.WindowStats, 3)
	for w, byHorizon := range res.WindowStats {
		assert.Len(t, byHorizon, 4, "window %d", w)
	}
	assert.Contains(t, []int{1, 3, 5, 10}, res.PrimaryHorizon)
	assert.Equal(t, 20, res.PrimaryRecord.Window, "primary record comes from the primary window")
	assert.NotZero(t, res.Score.TotalScore)
}

func TestEvaluateFactor_PureNoiseHasWeakIC(t *testing.T) {
	e, err := NewEvaluator(testOptions(), nil, testLog)
	require.NoError(t, err)

	const n = 600
	returns := testReturns(n, []int{1, 3, 5, 10}, 11)
	res, err := e.EvaluateFactor("noise", noiseSeries(n, 99), returns)
	require.NoError(t, err)

	st := res.HorizonStats[res.PrimaryHorizon]
	assert.Less(t, st.AbsMean, 0.5, "noise cannot carry strong mean IC")
	assert.GreaterOrEqual(t, st.PositiveRatio, 0.0)
	assert.LessOrEqual(t, st.PositiveRatio, 1.0)
}

func TestEvaluateFactor_InsufficientIsOutcomeNotError(t *testing.T) {
	opts := testOptions()
	opts.MinICSamples = 10_000 // unreachable
	e, err := NewEvaluator(opts, nil, testLog)
	require.NoError(t, err)

	const n = 200
	returns := testReturns(n, []int{1, 3, 5, 10}, 1)
	res, err := e.EvaluateFactor("thin", noiseSeries(n, 3), returns)
	require.NoError(t, err)

	assert.True(t, res.Insufficient)
	assert.Zero(t, res.Score.ICScore)
	assert.Equal(t, scoring.GradeF, res.Score.Grade)
}

func TestEvaluateBatch_EmptyPanel(t *testing.T) {
	e, err := NewEvaluator(testOptions(), nil, testLog)
	require.NoError(t, err)

	_, err = e.EvaluateBatch(timeseries.NewPanel(), nil)
	assert.ErrorIs(t, err, ErrEmptyPanel)
	_, err = e.EvaluateBatch(nil, nil)
	assert.ErrorIs(t, err, ErrEmptyPanel)
}

func batchFixture(t *testing.T, n int) (*timeseries.Panel, map[int]timeseries.Series) {
	t.Helper()
	panel := timeseries.NewPanel()
	for i, id := range []string{"f1", "f2", "f3", "f4"} {
		require.NoError(t, panel.Add(id, noiseSeries(n, int64(100+i))))
	}
	return panel, testReturns(n, []int{1, 3, 5, 10}, 55)
}

func TestEvaluateBatch_IsDeterministic(t *testing.T) {
	e, err := NewEvaluator(testOptions(), nil, testLog)
	require.NoError(t, err)

	panel, returns := batchFixture(t, 400)
	first, err := e.EvaluateBatch(panel, returns)
	require.NoError(t, err)
	second, err := e.EvaluateBatch(panel, returns)
	require.NoError(t, err)

	// Everything except the run id and timestamps must be identical.
	assert.Equal(t, first.Ranking, second.Ranking)
	assert.Equal(t, first.Groups, second.Groups)
	assert.Equal(t, first.Suggestions, second.Suggestions)
	assert.Equal(t, first.Evaluations, second.Evaluations)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestEvaluateBatch_IsolatesPerFactorFailures(t *testing.T) {
	e, err := NewEvaluator(testOptions(), nil, testLog)
	require.NoError(t, err)

	const n = 400
	panel := timeseries.NewPanel()
	require.NoError(t, panel.Add("good", noiseSeries(n, 1)))
	require.NoError(t, panel.Add("broken", timeseries.FromValues(start().AddDate(10, 0, 0), []float64{1, 2, 3})))
	require.NoError(t, panel.Add("also_good", noiseSeries(n, 2)))

	run, err := e.EvaluateBatch(panel, testReturns(n, []int{1, 3, 5, 10}, 5))
	require.NoError(t, err)

	require.Len(t, run.Failures, 1)
	assert.Equal(t, "broken", run.Failures[0].FactorID)
	require.Len(t, run.Evaluations, 2)
	assert.Equal(t, "good", run.Evaluations[0].FactorID)
	assert.Equal(t, "also_good", run.Evaluations[1].FactorID)
	assert.Len(t, run.Ranking, 2)
}

func TestEvaluateBatch_PublishesProgressEvents(t *testing.T) {
	bus := events.NewBus()
	ch, cancel := bus.Subscribe()
	defer cancel()

	e, err := NewEvaluator(testOptions(), bus, testLog)
	require.NoError(t, err)

	panel, returns := batchFixture(t, 300)
	run, err := e.EvaluateBatch(panel, returns)
	require.NoError(t, err)

	var started, completed, perFactor int
	timeout := time.After(5 * time.Second)
	for started == 0 || completed == 0 || perFactor < panel.Len() {
		select {
		case ev := <-ch:
			assert.Equal(t, run.RunID, ev.RunID)
			switch ev.Type {
			case events.RunStarted:
				started++
			case events.RunCompleted:
				completed++
			case events.FactorEvaluated, events.FactorFailed:
				perFactor++
			}
		case <-timeout:
			t.Fatalf("missing events: started=%d completed=%d factors=%d", started, completed, perFactor)
		}
	}
}

func TestBuildRanking_OrdersByScore(t *testing.T) {
	evals := []FactorEvaluation{
		{FactorID: "low", Score: scoring.Result{TotalScore: 0.2}},
		{FactorID: "high", Score: scoring.Result{TotalScore: 0.9}},
		{FactorID: "mid", Score: scoring.Result{TotalScore: 0.5}},
	}
	rows := BuildRanking(evals)
	require.Len(t, rows, 3)
	assert.Equal(t, "high", rows[0].FactorID)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, "mid", rows[1].FactorID)
	assert.Equal(t, "low", rows[2].FactorID)
	assert.Equal(t, 3, rows[2].Rank)
}

func TestBuildRanking_StableOnTies(t *testing.T) {
	evals := []FactorEvaluation{
		{FactorID: "first", Score: scoring.Result{TotalScore: 0.5}},
		{FactorID: "second", Score: scoring.Result{TotalScore: 0.5}},
	}
	rows := BuildRanking(evals)
	assert.Equal(t, "first", rows[0].FactorID, "insertion order breaks score ties")
}

func TestSortRanking(t *testing.T) {
	rows := []RankingRow{
		{FactorID: "a", TotalScore: 0.9, StabilityScore: 0.1},
		{FactorID: "b", TotalScore: 0.5, StabilityScore: 0.8},
	}
	require.NoError(t, SortRanking(rows, "stability_score"))
	assert.Equal(t, "b", rows[0].FactorID)
	assert.Equal(t, 1, rows[0].Rank)

	assert.Error(t, SortRanking(rows, "vibes"))
}
