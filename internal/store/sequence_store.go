package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/soyeahso/relay/internal/domain"
)

// SequenceMeta is the listing row for a saved sequence.
type SequenceMeta struct {
	Name      string    `json:"name"`
	Title     string    `json:"title"`
	Agents    int       `json:"agents"`
	LoopLimit int       `json:"loopLimit"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SequenceStore persists locked agent sequences. Sequences are keyed by the
// sanitized form of their title; saving under an existing name replaces it.
type SequenceStore struct {
	db *DB
}

// NewSequenceStore creates a sequence store using the given database.
func NewSequenceStore(db *DB) *SequenceStore {
	return &SequenceStore{db: db}
}

// Save stores a sequence and returns the name it was saved under.
func (s *SequenceStore) Save(seq domain.AgentSequence) (string, error) {
	if err := seq.Validate(); err != nil {
		return "", err
	}
	name := domain.SanitizeTitle(seq.Title)
	agents, err := json.Marshal(seq.Agents)
	if err != nil {
		return "", fmt.Errorf("encoding agents: %w", err)
	}

	now := time.Now().Format(time.DateTime)
	_, err = s.db.sql.Exec(
		`INSERT INTO sequences (name, title, agents, loop_limit, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   title = excluded.title,
		   agents = excluded.agents,
		   loop_limit = excluded.loop_limit,
		   updated_at = excluded.updated_at`,
		name, seq.Title, string(agents), seq.LoopLimit, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("saving sequence %q: %w", name, err)
	}
	return name, nil
}

// Get loads a saved sequence by name.
func (s *SequenceStore) Get(name string) (*domain.AgentSequence, error) {
	var title, agentsJSON string
	var loopLimit int
	err := s.db.sql.QueryRow(
		`SELECT title, agents, loop_limit FROM sequences WHERE name = ?`, name,
	).Scan(&title, &agentsJSON, &loopLimit)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sequence %q not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("loading sequence %q: %w", name, err)
	}

	seq := domain.AgentSequence{Title: title, LoopLimit: loopLimit}
	if err := json.Unmarshal([]byte(agentsJSON), &seq.Agents); err != nil {
		return nil, fmt.Errorf("decoding sequence %q: %w", name, err)
	}
	return &seq, nil
}

// List returns metadata for all saved sequences, newest first.
func (s *SequenceStore) List() ([]SequenceMeta, error) {
	rows, err := s.db.sql.Query(
		`SELECT name, title, agents, loop_limit, created_at, updated_at
		 FROM sequences ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metas []SequenceMeta
	for rows.Next() {
		var m SequenceMeta
		var agentsJSON, createdAt, updatedAt string
		if err := rows.Scan(&m.Name, &m.Title, &agentsJSON, &m.LoopLimit, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		var agents []domain.AgentDefinition
		if err := json.Unmarshal([]byte(agentsJSON), &agents); err == nil {
			m.Agents = len(agents)
		}
		m.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
		m.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// Delete removes a saved sequence.
func (s *SequenceStore) Delete(name string) error {
	res, err := s.db.sql.Exec(`DELETE FROM sequences WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("deleting sequence %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sequence %q not found", name)
	}
	return nil
}

// Export writes a saved sequence to a JSON file.
func (s *SequenceStore) Export(name, path string) error {
	seq, err := s.Get(name)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(seq, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding sequence %q: %w", name, err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// LoadFile reads a sequence from a JSON file, validating it before returning.
func LoadFile(path string) (*domain.AgentSequence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sequence file: %w", err)
	}
	var seq domain.AgentSequence
	if err := json.Unmarshal(data, &seq); err != nil {
		return nil, fmt.Errorf("parsing sequence file %s: %w", path, err)
	}
	if err := seq.Validate(); err != nil {
		return nil, err
	}
	return &seq, nil
}
