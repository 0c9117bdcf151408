package domain

import "time"

// Phase identifies where an agent is in its execution lifecycle.
type Phase string

const (
	PhaseStarting     Phase = "starting"
	PhaseReadingFiles Phase = "reading_files"
	PhaseSearching    Phase = "searching"
	PhaseInvoking     Phase = "invoking"
	PhaseWritingFiles Phase = "writing_files"
	PhaseCompleted    Phase = "completed"
	PhaseFailed       Phase = "failed"
)

// StatusEvent is an observational record of a phase transition or warning.
// The engine only ever emits these; it never reads them back.
type StatusEvent struct {
	AgentIndex int       `json:"agentIndex"`
	Phase      Phase     `json:"phase"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

// Outcome is the per-agent result classification.
type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomePartialFailure Outcome = "partial_failure"
	OutcomeFailed         Outcome = "failed"
)

// RunOutcome is the final classification of a whole run.
type RunOutcome string

const (
	RunCompleted RunOutcome = "completed"
	RunAborted   RunOutcome = "aborted"
	RunCancelled RunOutcome = "cancelled"
)

// FileWrite records one disk write attempted by the Write-File Extractor.
type FileWrite struct {
	Path         string `json:"path"`
	BytesWritten int    `json:"bytesWritten"`
	Error        string `json:"error,omitempty"`
}

// AgentRunResult is the per-agent record appended to the run summary.
type AgentRunResult struct {
	Index          int         `json:"index"`
	Pass           int         `json:"pass"` // 1-based pass number
	ResolvedPrompt string      `json:"resolvedPrompt"`
	RawResponse    string      `json:"rawResponse"`
	FilesWritten   []FileWrite `json:"filesWritten,omitempty"`
	Outcome        Outcome     `json:"outcome"`
	StartedAt      time.Time   `json:"startedAt"`
	FinishedAt     time.Time   `json:"finishedAt"`
}

// RunSummary is returned to the caller when a run ends, however it ends.
type RunSummary struct {
	RunID         string           `json:"runId"`
	SequenceTitle string           `json:"sequenceTitle"`
	Results       []AgentRunResult `json:"results"`
	FinalOutcome  RunOutcome       `json:"finalOutcome"`
	Passes        int              `json:"passes"` // passes fully or partially executed
	StartedAt     time.Time        `json:"startedAt"`
	FinishedAt    time.Time        `json:"finishedAt"`
}
