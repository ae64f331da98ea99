package domain

import "time"

// SyncRequest configures one sync run.
type SyncRequest struct {
	// File restricts the run to one corpus file. Empty means every file.
	File string

	// Interactive selects the small interactive batch size.
	Interactive bool

	// BatchSize overrides the configured batch size when positive.
	BatchSize int
}

// SyncPhase is a state in a sync run.
type SyncPhase string

// Sync phases in run order.
const (
	SyncIdle      SyncPhase = "idle"
	SyncLoading   SyncPhase = "loading"
	SyncChunking  SyncPhase = "chunking"
	SyncBatching  SyncPhase = "batching"
	SyncUploading SyncPhase = "uploading"
	SyncRetrying  SyncPhase = "retrying"
	SyncDone      SyncPhase = "done"
	SyncFatal     SyncPhase = "fatal"
)

// SyncProgress is emitted at every batch boundary and retry attempt.
type SyncProgress struct {
	// Phase is the run state when the report was produced.
	Phase SyncPhase

	// BatchNumber is the 1-based batch this report refers to.
	BatchNumber int

	// TotalBatches is the number of batches in the run.
	TotalBatches int

	// ChunksIndexed is how many chunks have been committed so far.
	ChunksIndexed int

	// TotalChunks is the number of chunks in the run.
	TotalChunks int

	// Attempt is the retry attempt for Phase == SyncRetrying.
	Attempt int

	// Elapsed is the time since the run started.
	Elapsed time.Duration

	// Message is an optional human-readable status.
	Message string
}

// Percent returns the completion percentage.
func (p SyncProgress) Percent() float64 {
	if p.TotalChunks == 0 {
		return 100
	}
	return float64(p.ChunksIndexed) * 100 / float64(p.TotalChunks)
}

// Remaining estimates time left from the indexing rate so far.
// Returns zero when nothing has been indexed yet.
func (p SyncProgress) Remaining() time.Duration {
	if p.ChunksIndexed == 0 || p.ChunksIndexed >= p.TotalChunks {
		return 0
	}
	perChunk := p.Elapsed / time.Duration(p.ChunksIndexed)
	return perChunk * time.Duration(p.TotalChunks-p.ChunksIndexed)
}

// SkippedFile records a corpus file that could not be ingested.
type SkippedFile struct {
	Name   string
	Reason string
}

// SyncResult summarises a completed run.
type SyncResult struct {
	// TotalChunks is the number of chunks indexed.
	TotalChunks int

	// FileCount is the number of files that produced chunks.
	FileCount int

	// Batches is the number of batches uploaded.
	Batches int

	// Skipped lists files that were unsupported or failed extraction.
	Skipped []SkippedFile

	// Duration is the wall time of the run.
	Duration time.Duration
}

// SyncRunStatus is the terminal state of a recorded run.
type SyncRunStatus string

// Recorded run states.
const (
	SyncRunRunning   SyncRunStatus = "running"
	SyncRunSucceeded SyncRunStatus = "succeeded"
	SyncRunFailed    SyncRunStatus = "failed"
)

// SyncRun is the persisted history record of one sync run.
type SyncRun struct {
	ID          string
	File        string
	Status      SyncRunStatus
	TotalChunks int
	FileCount   int
	Batches     int
	Error       string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// SyncStatus is the live state reported by the orchestrator.
type SyncStatus struct {
	// Running indicates if a sync is currently in progress.
	Running bool

	// RunID identifies the running run.
	RunID string

	// Last is the most recent progress report of the running run.
	Last SyncProgress
}
