// Package reports persists evaluation runs to SQLite so rankings and
// redundancy groupings survive restarts and can be compared over time.
package reports

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/factorlab/internal/database"
	"github.com/aristath/factorlab/internal/modules/evaluation"
	"github.com/aristath/factorlab/internal/modules/ic"
	"github.com/aristath/factorlab/internal/modules/redundancy"
	"github.com/aristath/factorlab/internal/modules/scoring"
)

// ErrRunNotFound is returned when a run id does not exist in the store.
var ErrRunNotFound = errors.New("run not found")

// RunSummary is the lightweight run listing row.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Strategy   string    `json:"strategy"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Evaluated  int       `json:"evaluated"`
	Failed     int       `json:"failed"`
}

// Repository handles run persistence.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a reports repository on an open database.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{db: db, log: log.With().Str("repo", "reports").Logger()}
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	strategy    TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	evaluated   INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	suggestions BLOB,
	created_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS factor_results (
	run_id             TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	factor_id          TEXT NOT NULL,
	rank               INTEGER NOT NULL,
	total_score        REAL NOT NULL,
	grade              TEXT NOT NULL,
	ic_score           REAL NOT NULL,
	stability_score    REAL NOT NULL,
	data_quality_score REAL NOT NULL,
	distribution_score REAL NOT NULL,
	consistency_score  REAL NOT NULL,
	primary_horizon    INTEGER NOT NULL,
	sample_count       INTEGER NOT NULL,
	missing_ratio      REAL NOT NULL,
	insufficient       INTEGER NOT NULL,
	record             BLOB,
	PRIMARY KEY (run_id, factor_id)
);

CREATE TABLE IF NOT EXISTS run_failures (
	run_id    TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	factor_id TEXT NOT NULL,
	reason    TEXT NOT NULL,
	PRIMARY KEY (run_id, factor_id)
);

CREATE TABLE IF NOT EXISTS redundancy_members (
	run_id            TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	group_id          INTEGER NOT NULL,
	factor_id         TEXT NOT NULL,
	is_representative INTEGER NOT NULL,
	member_order      INTEGER NOT NULL,
	PRIMARY KEY (run_id, group_id, factor_id)
);

CREATE INDEX IF NOT EXISTS idx_factor_results_rank ON factor_results(run_id, rank);
`

// Migrate creates the reports schema if it does not exist.
func (r *Repository) Migrate() error {
	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to migrate reports schema: %w", err)
	}
	return nil
}

// recordSnapshot is the msgpack shape stored for the primary IC record.
// Times are stored as unix seconds to keep the blob compact.
type recordSnapshot struct {
	FactorID string    `msgpack:"factor_id"`
	Window   int       `msgpack:"window"`
	Horizon  int       `msgpack:"horizon"`
	Method   string    `msgpack:"method"`
	Times    []int64   `msgpack:"times"`
	Values   []float64 `msgpack:"values"`
}

func encodeRecord(rec ic.Record) ([]byte, error) {
	snap := recordSnapshot{
		FactorID: rec.FactorID,
		Window:   rec.Window,
		Horizon:  rec.Horizon,
		Method:   string(rec.Method),
		Values:   rec.Values,
		Times:    make([]int64, len(rec.Times)),
	}
	for i, t := range rec.Times {
		snap.Times[i] = t.Unix()
	}
	return msgpack.Marshal(snap)
}

func decodeRecord(blob []byte) (ic.Record, error) {
	var snap recordSnapshot
	if err := msgpack.Unmarshal(blob, &snap); err != nil {
		return ic.Record{}, fmt.Errorf("failed to decode IC record snapshot: %w", err)
	}
	rec := ic.Record{
		FactorID: snap.FactorID,
		Window:   snap.Window,
		Horizon:  snap.Horizon,
		Method:   ic.Method(snap.Method),
		Values:   snap.Values,
		Times:    make([]time.Time, len(snap.Times)),
	}
	for i, ts := range snap.Times {
		rec.Times[i] = time.Unix(ts, 0).UTC()
	}
	return rec, nil
}

// SaveRun persists a full run atomically.
func (r *Repository) SaveRun(run *evaluation.RunResult) error {
	if run == nil {
		return fmt.Errorf("nil run")
	}

	suggestions, err := msgpack.Marshal(run.Suggestions)
	if err != nil {
		return fmt.Errorf("failed to encode suggestions: %w", err)
	}

	rankOf := make(map[string]int, len(run.Ranking))
	for _, row := range run.Ranking {
		rankOf[row.FactorID] = row.Rank
	}

	err = database.WithTransaction(r.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO runs (run_id, strategy, started_at, finished_at, evaluated, failed, suggestions, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, run.RunID, run.Strategy, run.StartedAt.Unix(), run.FinishedAt.Unix(),
			len(run.Evaluations), len(run.Failures), suggestions, time.Now().Unix())
		if err != nil {
			return err
		}

		for _, ev := range run.Evaluations {
			blob, err := encodeRecord(ev.PrimaryRecord)
			if err != nil {
				return err
			}
			st := ev.HorizonStats[ev.PrimaryHorizon]
			_, err = tx.Exec(`
				INSERT INTO factor_results
				(run_id, factor_id, rank, total_score, grade, ic_score, stability_score,
				 data_quality_score, distribution_score, consistency_score,
				 primary_horizon, sample_count, missing_ratio, insufficient, record)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, run.RunID, ev.FactorID, rankOf[ev.FactorID],
				ev.Score.TotalScore, string(ev.Score.Grade),
				ev.Score.ICScore, ev.Score.StabilityScore,
				ev.Score.DataQualityScore, ev.Score.DistributionScore, ev.Score.ConsistencyScore,
				ev.PrimaryHorizon, st.SampleCount, ev.Sample.MissingRatio,
				boolToInt(ev.Insufficient), blob)
			if err != nil {
				return err
			}
		}

		for _, f := range run.Failures {
			if _, err := tx.Exec(`
				INSERT INTO run_failures (run_id, factor_id, reason) VALUES (?, ?, ?)
			`, run.RunID, f.FactorID, f.Reason); err != nil {
				return err
			}
		}

		for _, g := range run.Groups {
			for order, member := range g.Members {
				if _, err := tx.Exec(`
					INSERT INTO redundancy_members (run_id, group_id, factor_id, is_representative, member_order)
					VALUES (?, ?, ?, ?, ?)
				`, run.RunID, g.ID, member, boolToInt(member == g.Representative), order); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.RunID, err)
	}

	r.log.Info().Str("run_id", run.RunID).Int("factors", len(run.Evaluations)).Msg("run persisted")
	return nil
}

// LatestRun returns the most recently finished run summary.
func (r *Repository) LatestRun() (*RunSummary, error) {
	row := r.db.QueryRow(`
		SELECT run_id, strategy, started_at, finished_at, evaluated, failed
		FROM runs ORDER BY finished_at DESC, created_at DESC LIMIT 1
	`)
	summary, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return summary, nil
}

// GetRun returns one run summary by id.
func (r *Repository) GetRun(runID string) (*RunSummary, error) {
	row := r.db.QueryRow(`
		SELECT run_id, strategy, started_at, finished_at, evaluated, failed
		FROM runs WHERE run_id = ?
	`, runID)
	summary, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	return summary, nil
}

// ListRuns returns recent run summaries, newest first.
func (r *Repository) ListRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(`
		SELECT run_id, strategy, started_at, finished_at, evaluated, failed
		FROM runs ORDER BY finished_at DESC, created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// GetRanking returns a run's ranking rows ordered by rank.
func (r *Repository) GetRanking(runID string) ([]evaluation.RankingRow, error) {
	if _, err := r.GetRun(runID); err != nil {
		return nil, err
	}
	rows, err := r.db.Query(`
		SELECT factor_id, rank, total_score, grade, ic_score, stability_score,
		       data_quality_score, distribution_score, consistency_score,
		       primary_horizon, sample_count, missing_ratio
		FROM factor_results WHERE run_id = ? ORDER BY rank ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranking for run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []evaluation.RankingRow
	for rows.Next() {
		var row evaluation.RankingRow
		var grade string
		if err := rows.Scan(&row.FactorID, &row.Rank, &row.TotalScore, &grade,
			&row.ICScore, &row.StabilityScore, &row.DataQualityScore,
			&row.DistributionScore, &row.ConsistencyScore,
			&row.PrimaryHorizon, &row.SampleCount, &row.MissingRatio); err != nil {
			return nil, fmt.Errorf("failed to scan ranking row: %w", err)
		}
		row.Grade = scoring.Grade(grade)
		out = append(out, row)
	}
	return out, rows.Err()
}

// GetGroups returns a run's redundancy groups with members in stored order.
func (r *Repository) GetGroups(runID string) ([]redundancy.Group, error) {
	if _, err := r.GetRun(runID); err != nil {
		return nil, err
	}
	rows, err := r.db.Query(`
		SELECT group_id, factor_id, is_representative
		FROM redundancy_members WHERE run_id = ?
		ORDER BY group_id ASC, member_order ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups for run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []redundancy.Group
	for rows.Next() {
		var groupID int
		var factorID string
		var isRep int
		if err := rows.Scan(&groupID, &factorID, &isRep); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		if len(out) == 0 || out[len(out)-1].ID != groupID {
			out = append(out, redundancy.Group{ID: groupID})
		}
		g := &out[len(out)-1]
		g.Members = append(g.Members, factorID)
		if isRep == 1 {
			g.Representative = factorID
		}
	}
	return out, rows.Err()
}

// GetSuggestions returns a run's stored selection suggestions.
func (r *Repository) GetSuggestions(runID string) (*evaluation.Suggestions, error) {
	var blob []byte
	err := r.db.QueryRow(`SELECT suggestions FROM runs WHERE run_id = ?`, runID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get suggestions for run %s: %w", runID, err)
	}
	var s evaluation.Suggestions
	if err := msgpack.Unmarshal(blob, &s); err != nil {
		return nil, fmt.Errorf("failed to decode suggestions: %w", err)
	}
	return &s, nil
}

// GetRecord returns the stored primary IC record for one factor in a run.
func (r *Repository) GetRecord(runID, factorID string) (*ic.Record, error) {
	var blob []byte
	err := r.db.QueryRow(`
		SELECT record FROM factor_results WHERE run_id = ? AND factor_id = ?
	`, runID, factorID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record for %s/%s: %w", runID, factorID, err)
	}
	rec, err := decodeRecord(blob)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// PruneRuns deletes all but the newest keep runs.
func (r *Repository) PruneRuns(keep int) (int64, error) {
	if keep < 1 {
		keep = 1
	}
	res, err := r.db.Exec(`
		DELETE FROM runs WHERE run_id NOT IN (
			SELECT run_id FROM runs ORDER BY finished_at DESC, created_at DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		r.log.Info().Int64("deleted", n).Msg("old runs pruned")
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSummary(row rowScanner) (*RunSummary, error) {
	var s RunSummary
	var started, finished int64
	if err := row.Scan(&s.RunID, &s.Strategy, &started, &finished, &s.Evaluated, &s.Failed); err != nil {
		return nil, err
	}
	s.StartedAt = time.Unix(started, 0).UTC()
	s.FinishedAt = time.Unix(finished, 0).UTC()
	return &s, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
