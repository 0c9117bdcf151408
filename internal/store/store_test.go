package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/relay/internal/domain"
	"github.com/soyeahso/relay/internal/logging"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	log := logging.New(nil, "silent")
	db, err := Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testSequence(title string) domain.AgentSequence {
	return domain.AgentSequence{
		Title: title,
		Agents: []domain.AgentDefinition{
			{
				Index:          1,
				Provider:       "claude",
				ModelID:        "claude-sonnet-4-20250514",
				Temperature:    0.7,
				PromptTemplate: "summarize {{Agent-1}}",
				Tools:          domain.ToolSet{WriteFile: true},
			},
		},
		LoopLimit: 1,
	}
}

// --- DB/Migration tests ---

func TestOpen_InMemory(t *testing.T) {
	db := testDB(t)
	assert.NotNil(t, db)
	assert.NotNil(t, db.SQL())
}

func TestMigrations_Applied(t *testing.T) {
	db := testDB(t)

	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestMigrations_Idempotent(t *testing.T) {
	db := testDB(t)

	// Running migrate again should be a no-op
	err := db.migrate()
	require.NoError(t, err)

	var count int
	err = db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestSchema_TablesExist(t *testing.T) {
	db := testDB(t)

	for _, table := range []string{"sequences", "runs", "run_agents"} {
		var name string
		err := db.sql.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}
}

// --- SequenceStore tests ---

func TestSequenceStore_SaveAndGet(t *testing.T) {
	s := NewSequenceStore(testDB(t))

	name, err := s.Save(testSequence("My Pipeline"))
	require.NoError(t, err)
	assert.Equal(t, "My Pipeline", name)

	got, err := s.Get(name)
	require.NoError(t, err)
	assert.Equal(t, "My Pipeline", got.Title)
	assert.Equal(t, 1, got.LoopLimit)
	require.Len(t, got.Agents, 1)
	assert.Equal(t, "claude", got.Agents[0].Provider)
	assert.True(t, got.Agents[0].Tools.WriteFile)
}

func TestSequenceStore_SaveSanitizesName(t *testing.T) {
	s := NewSequenceStore(testDB(t))

	name, err := s.Save(testSequence(`bad/title?`))
	require.NoError(t, err)
	assert.Equal(t, "bad_title_", name)
}

func TestSequenceStore_SaveReplacesExisting(t *testing.T) {
	s := NewSequenceStore(testDB(t))

	seq := testSequence("dup")
	_, err := s.Save(seq)
	require.NoError(t, err)

	seq.LoopLimit = 5
	_, err = s.Save(seq)
	require.NoError(t, err)

	got, err := s.Get("dup")
	require.NoError(t, err)
	assert.Equal(t, 5, got.LoopLimit)

	metas, err := s.List()
	require.NoError(t, err)
	assert.Len(t, metas, 1)
}

func TestSequenceStore_SaveRejectsInvalid(t *testing.T) {
	s := NewSequenceStore(testDB(t))

	_, err := s.Save(domain.AgentSequence{Title: "empty"})
	assert.Error(t, err)
}

func TestSequenceStore_List(t *testing.T) {
	s := NewSequenceStore(testDB(t))

	_, err := s.Save(testSequence("one"))
	require.NoError(t, err)
	_, err = s.Save(testSequence("two"))
	require.NoError(t, err)

	metas, err := s.List()
	require.NoError(t, err)
	require.Len(t, metas, 2)
	for _, m := range metas {
		assert.Equal(t, 1, m.Agents)
		assert.Equal(t, 1, m.LoopLimit)
	}
}

func TestSequenceStore_Delete(t *testing.T) {
	s := NewSequenceStore(testDB(t))

	_, err := s.Save(testSequence("gone"))
	require.NoError(t, err)
	require.NoError(t, s.Delete("gone"))

	_, err = s.Get("gone")
	assert.Error(t, err)
	assert.Error(t, s.Delete("gone"))
}

func TestSequenceStore_ExportAndLoadFile(t *testing.T) {
	s := NewSequenceStore(testDB(t))

	_, err := s.Save(testSequence("exported"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "exported.agent.json")
	require.NoError(t, s.Export("exported", path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "exported", loaded.Title)
	require.Len(t, loaded.Agents, 1)

	// File is valid standalone JSON too
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
}

func TestLoadFile_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"title":"x","agents":[]}`), 0o644))

	_, err := LoadFile(path)
	assert.Error(t, err)
}

// --- RunStore tests ---

func testSummary() *domain.RunSummary {
	now := time.Now()
	return &domain.RunSummary{
		RunID:         "run-1234",
		SequenceTitle: "pipeline",
		FinalOutcome:  domain.RunCompleted,
		Passes:        2,
		StartedAt:     now.Add(-time.Minute),
		FinishedAt:    now,
		Results: []domain.AgentRunResult{
			{
				Index:       1,
				Pass:        1,
				RawResponse: "first output",
				Outcome:     domain.OutcomeSuccess,
				FilesWritten: []domain.FileWrite{
					{Path: "out.txt", BytesWritten: 42},
					{Path: "bad.txt", Error: "permission denied"},
				},
				StartedAt:  now.Add(-time.Minute),
				FinishedAt: now.Add(-30 * time.Second),
			},
			{
				Index:      1,
				Pass:       2,
				Outcome:    domain.OutcomeFailed,
				StartedAt:  now.Add(-30 * time.Second),
				FinishedAt: now,
			},
		},
	}
}

func TestRunStore_SaveAndGet(t *testing.T) {
	r := NewRunStore(testDB(t))

	require.NoError(t, r.Save(testSummary()))

	got, err := r.Get("run-1234")
	require.NoError(t, err)
	assert.Equal(t, "pipeline", got.SequenceTitle)
	assert.Equal(t, domain.RunCompleted, got.FinalOutcome)
	assert.Equal(t, 2, got.Passes)
	require.Len(t, got.Results, 2)
	assert.Equal(t, "first output", got.Results[0].RawResponse)
	require.Len(t, got.Results[0].FilesWritten, 2)
	assert.Equal(t, 42, got.Results[0].FilesWritten[0].BytesWritten)
	assert.Equal(t, "permission denied", got.Results[0].FilesWritten[1].Error)
	assert.Equal(t, domain.OutcomeFailed, got.Results[1].Outcome)
}

func TestRunStore_GetMissing(t *testing.T) {
	r := NewRunStore(testDB(t))
	_, err := r.Get("nope")
	assert.Error(t, err)
}

func TestRunStore_List(t *testing.T) {
	r := NewRunStore(testDB(t))

	first := testSummary()
	require.NoError(t, r.Save(first))

	second := testSummary()
	second.RunID = "run-5678"
	second.StartedAt = time.Now().Add(time.Hour)
	require.NoError(t, r.Save(second))

	metas, err := r.List(0)
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, "run-5678", metas[0].RunID) // newest first
	assert.Equal(t, 2, metas[0].Agents)

	limited, err := r.List(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
