package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/soyeahso/relay/internal/domain"
)

// RunMeta is the listing row for a recorded run.
type RunMeta struct {
	RunID         string    `json:"runId"`
	SequenceTitle string    `json:"sequenceTitle"`
	FinalOutcome  string    `json:"finalOutcome"`
	Passes        int       `json:"passes"`
	Agents        int       `json:"agents"`
	StartedAt     time.Time `json:"startedAt"`
	FinishedAt    time.Time `json:"finishedAt"`
}

// RunStore records completed run summaries for later inspection.
type RunStore struct {
	db *DB
}

// NewRunStore creates a run store using the given database.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// Save persists a run summary and its per-agent results in one transaction.
func (r *RunStore) Save(summary *domain.RunSummary) error {
	tx, err := r.db.sql.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (id, sequence_title, final_outcome, passes, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		summary.RunID, summary.SequenceTitle, string(summary.FinalOutcome), summary.Passes,
		summary.StartedAt.Format(time.DateTime), summary.FinishedAt.Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", summary.RunID, err)
	}

	for _, res := range summary.Results {
		files, err := json.Marshal(res.FilesWritten)
		if err != nil {
			return fmt.Errorf("encoding file writes: %w", err)
		}
		_, err = tx.Exec(
			`INSERT INTO run_agents (run_id, agent_index, pass, outcome, raw_response, files_written, started_at, finished_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			summary.RunID, res.Index, res.Pass, string(res.Outcome), res.RawResponse, string(files),
			res.StartedAt.Format(time.DateTime), res.FinishedAt.Format(time.DateTime),
		)
		if err != nil {
			return fmt.Errorf("saving run agent %d: %w", res.Index, err)
		}
	}

	return tx.Commit()
}

// Get loads a full run summary by ID.
func (r *RunStore) Get(runID string) (*domain.RunSummary, error) {
	var summary domain.RunSummary
	var outcome, startedAt, finishedAt string
	err := r.db.sql.QueryRow(
		`SELECT id, sequence_title, final_outcome, passes, started_at, finished_at
		 FROM runs WHERE id = ?`, runID,
	).Scan(&summary.RunID, &summary.SequenceTitle, &outcome, &summary.Passes, &startedAt, &finishedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %q not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading run %q: %w", runID, err)
	}
	summary.FinalOutcome = domain.RunOutcome(outcome)
	summary.StartedAt, _ = time.Parse(time.DateTime, startedAt)
	summary.FinishedAt, _ = time.Parse(time.DateTime, finishedAt)

	rows, err := r.db.sql.Query(
		`SELECT agent_index, pass, outcome, raw_response, files_written, started_at, finished_at
		 FROM run_agents WHERE run_id = ? ORDER BY id`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var res domain.AgentRunResult
		var resOutcome, files, resStarted, resFinished string
		if err := rows.Scan(&res.Index, &res.Pass, &resOutcome, &res.RawResponse, &files, &resStarted, &resFinished); err != nil {
			return nil, err
		}
		res.Outcome = domain.Outcome(resOutcome)
		if err := json.Unmarshal([]byte(files), &res.FilesWritten); err != nil {
			return nil, fmt.Errorf("decoding file writes for run %q: %w", runID, err)
		}
		res.StartedAt, _ = time.Parse(time.DateTime, resStarted)
		res.FinishedAt, _ = time.Parse(time.DateTime, resFinished)
		summary.Results = append(summary.Results, res)
	}
	return &summary, rows.Err()
}

// List returns run metadata, newest first. Limit of 0 defaults to 20.
func (r *RunStore) List(limit int) ([]RunMeta, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.sql.Query(
		`SELECT r.id, r.sequence_title, r.final_outcome, r.passes,
		        (SELECT COUNT(*) FROM run_agents ra WHERE ra.run_id = r.id),
		        r.started_at, r.finished_at
		 FROM runs r ORDER BY r.started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metas []RunMeta
	for rows.Next() {
		var m RunMeta
		var startedAt, finishedAt string
		if err := rows.Scan(&m.RunID, &m.SequenceTitle, &m.FinalOutcome, &m.Passes, &m.Agents, &startedAt, &finishedAt); err != nil {
			return nil, err
		}
		m.StartedAt, _ = time.Parse(time.DateTime, startedAt)
		m.FinishedAt, _ = time.Parse(time.DateTime, finishedAt)
		metas = append(metas, m)
	}
	return metas, rows.Err()
}
