package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create sequences",
		SQL: `
			CREATE TABLE sequences (
				name        TEXT PRIMARY KEY,
				title       TEXT NOT NULL,
				agents      TEXT NOT NULL,
				loop_limit  INTEGER NOT NULL DEFAULT 0,
				created_at  TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);
		`,
	},
	{
		Version: 2,
		Name:    "create runs and run_agents",
		SQL: `
			CREATE TABLE runs (
				id             TEXT PRIMARY KEY,
				sequence_title TEXT NOT NULL,
				final_outcome  TEXT NOT NULL,
				passes         INTEGER NOT NULL DEFAULT 1,
				started_at     TEXT NOT NULL,
				finished_at    TEXT NOT NULL
			);

			CREATE INDEX idx_runs_started ON runs (started_at);

			CREATE TABLE run_agents (
				id             INTEGER PRIMARY KEY AUTOINCREMENT,
				run_id         TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
				agent_index    INTEGER NOT NULL,
				pass           INTEGER NOT NULL,
				outcome        TEXT NOT NULL,
				raw_response   TEXT NOT NULL DEFAULT '',
				files_written  TEXT NOT NULL DEFAULT '[]',
				started_at     TEXT NOT NULL,
				finished_at    TEXT NOT NULL
			);

			CREATE INDEX idx_run_agents_run ON run_agents (run_id);
		`,
	},
}
