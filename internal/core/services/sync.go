package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driven"
	"github.com/custodia-labs/nephra/internal/core/ports/driving"
	"github.com/custodia-labs/nephra/internal/logger"
)

// Ensure SyncOrchestrator implements the interface.
var _ driving.SyncOrchestrator = (*SyncOrchestrator)(nil)

const (
	defaultBatchSize            = 100
	defaultInteractiveBatchSize = 5
	defaultHistoryLimit         = 20
)

// SyncConfig tunes batching and retries.
type SyncConfig struct {
	BatchSize            int
	InteractiveBatchSize int

	// MaxRetries is the number of retries after the first failed upload.
	MaxRetries int

	// BackoffBase is the first retry delay; each later retry doubles it.
	BackoffBase time.Duration

	// BatchDelay is the pause after each batch before the next one starts.
	BatchDelay time.Duration
}

// SyncOption customises a SyncOrchestrator.
type SyncOption func(*SyncOrchestrator)

// WithSyncSleep replaces the context-aware sleep used for backoff and pacing.
func WithSyncSleep(sleep func(ctx context.Context, d time.Duration) error) SyncOption {
	return func(o *SyncOrchestrator) {
		o.sleep = sleep
	}
}

// WithSyncClock replaces the clock.
func WithSyncClock(now func() time.Time) SyncOption {
	return func(o *SyncOrchestrator) {
		o.now = now
	}
}

// SyncOrchestrator loads the corpus and uploads its chunks batch by batch.
type SyncOrchestrator struct {
	corpus driven.CorpusStore
	ingest driving.IngestService
	runs   driven.SyncRunStore
	cfg    SyncConfig
	sleep  func(ctx context.Context, d time.Duration) error
	now    func() time.Time

	mu     sync.RWMutex
	status domain.SyncStatus
}

// NewSyncOrchestrator creates a new sync orchestrator.
// The run store is optional (can be nil); without it no history is kept.
func NewSyncOrchestrator(
	corpus driven.CorpusStore,
	ingest driving.IngestService,
	runs driven.SyncRunStore,
	cfg SyncConfig,
	opts ...SyncOption,
) *SyncOrchestrator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.InteractiveBatchSize <= 0 {
		cfg.InteractiveBatchSize = defaultInteractiveBatchSize
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	o := &SyncOrchestrator{
		corpus: corpus,
		ingest: ingest,
		runs:   runs,
		cfg:    cfg,
		sleep:  sleepContext,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// syncRun is the state of one Sync call.
type syncRun struct {
	record   domain.SyncRun
	progress chan<- domain.SyncProgress
	started  time.Time
}

// Sync loads, chunks and uploads the corpus (or one file of it).
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (o *SyncOrchestrator) Sync(
	ctx context.Context, req domain.SyncRequest, progress chan<- domain.SyncProgress,
) (*domain.SyncResult, error) {
	// 1. One run at a time
	run, err := o.begin(ctx, req, progress)
	if err != nil {
		return nil, err
	}
	defer o.end()

	result, err := o.execute(ctx, run, req)
	o.finish(ctx, run, result, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (o *SyncOrchestrator) execute(ctx context.Context, run *syncRun, req domain.SyncRequest) (*domain.SyncResult, error) {
	result := &domain.SyncResult{}

	// 2. Load and chunk
	o.emit(ctx, run, domain.SyncProgress{Phase: domain.SyncLoading, Message: scopeMessage(req.File)})
	chunks, err := o.load(ctx, run, req.File, result)
	if err != nil {
		return nil, err
	}

	// 3. Batch
	size := o.batchSize(req)
	batches := splitBatches(chunks, size)
	result.TotalChunks = len(chunks)
	o.emit(ctx, run, domain.SyncProgress{
		Phase:        domain.SyncBatching,
		TotalBatches: len(batches),
		TotalChunks:  len(chunks),
		Message:      fmt.Sprintf("%d chunks in %d batches of up to %d", len(chunks), len(batches), size),
	})

	// 4. Upload in strict order
	committed := 0
	for i, batch := range batches {
		if i > 0 && o.cfg.BatchDelay > 0 {
			if err := o.sleep(ctx, o.cfg.BatchDelay); err != nil {
				return nil, err
			}
		}

		if err := o.upload(ctx, run, batch, i+1, len(batches), committed, len(chunks)); err != nil {
			return nil, err
		}
		committed += len(batch)
		result.Batches++

		o.emit(ctx, run, domain.SyncProgress{
			Phase:         domain.SyncUploading,
			BatchNumber:   i + 1,
			TotalBatches:  len(batches),
			ChunksIndexed: committed,
			TotalChunks:   len(chunks),
			Message:       fmt.Sprintf("batch %d/%d indexed", i+1, len(batches)),
		})
	}

	result.Duration = o.now().Sub(run.started)
	o.emit(ctx, run, domain.SyncProgress{
		Phase:         domain.SyncDone,
		BatchNumber:   len(batches),
		TotalBatches:  len(batches),
		ChunksIndexed: committed,
		TotalChunks:   len(chunks),
		Message:       fmt.Sprintf("indexed %d chunks from %d files", committed, result.FileCount),
	})
	return result, nil
}

// load reads and chunks the requested files. In a full run a failing
// file is skipped; a single-file run fails with the file's error.
func (o *SyncOrchestrator) load(
	ctx context.Context, run *syncRun, file string, result *domain.SyncResult,
) ([]domain.Chunk, error) {
	var names []string
	if file != "" {
		names = []string{file}
	} else {
		files, err := o.corpus.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list corpus: %w", err)
		}
		for _, f := range files {
			names = append(names, f.Name)
		}
	}

	o.emit(ctx, run, domain.SyncProgress{
		Phase:   domain.SyncChunking,
		Message: fmt.Sprintf("chunking %d files", len(names)),
	})

	var (
		chunks []domain.Chunk
		errs   []error
	)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fileChunks, err := o.loadFile(ctx, name)
		if err != nil {
			if file != "" || isContextErr(err) {
				return nil, err
			}
			errs = append(errs, err)
			result.Skipped = append(result.Skipped, domain.SkippedFile{Name: name, Reason: err.Error()})
			continue
		}
		if len(fileChunks) == 0 {
			result.Skipped = append(result.Skipped, domain.SkippedFile{Name: name, Reason: "no ingestible content"})
			continue
		}
		chunks = append(chunks, fileChunks...)
		result.FileCount++
	}

	if len(errs) > 0 {
		logger.Warn("Skipped %d files: %v", len(errs), errors.Join(errs...))
	}
	logger.Info("Loaded %d chunks from %d files", len(chunks), result.FileCount)
	return chunks, nil
}

func (o *SyncOrchestrator) loadFile(ctx context.Context, name string) ([]domain.Chunk, error) {
	content, err := o.corpus.Read(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return o.ingest.IngestFile(ctx, content, name)
}

// upload sends one batch, retrying transient failures with exponential backoff.
func (o *SyncOrchestrator) upload(
	ctx context.Context, run *syncRun, batch []domain.Chunk, number, total, committed, totalChunks int,
) error {
	attempts := 1 + o.cfg.MaxRetries

	for attempt := 1; ; attempt++ {
		err := o.ingest.AddToIndex(ctx, batch)
		if err == nil {
			return nil
		}
		if isContextErr(err) {
			return err
		}
		if isPermanent(err) {
			return fmt.Errorf("upload batch %d/%d: %w", number, total, err)
		}
		if attempt >= attempts {
			return &domain.BatchUploadExhaustedError{
				Batch:           number,
				TotalBatches:    total,
				Attempts:        attempt,
				ChunksCommitted: committed,
				Cause:           err,
			}
		}

		delay := o.cfg.BackoffBase << (attempt - 1)
		logger.Warn("Batch %d/%d failed (attempt %d/%d), retrying in %s: %v",
			number, total, attempt, attempts, delay, err)
		o.emit(ctx, run, domain.SyncProgress{
			Phase:         domain.SyncRetrying,
			BatchNumber:   number,
			TotalBatches:  total,
			ChunksIndexed: committed,
			TotalChunks:   totalChunks,
			Attempt:       attempt,
			Message:       err.Error(),
		})
		if err := o.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// Status returns the live state of the current run.
func (o *SyncOrchestrator) Status() domain.SyncStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status
}

// History returns recent runs, newest first.
func (o *SyncOrchestrator) History(ctx context.Context, limit int) ([]domain.SyncRun, error) {
	if o.runs == nil {
		return []domain.SyncRun{}, nil
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	runs, err := o.runs.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list sync runs: %w", err)
	}
	return runs, nil
}

func (o *SyncOrchestrator) begin(
	ctx context.Context, req domain.SyncRequest, progress chan<- domain.SyncProgress,
) (*syncRun, error) {
	o.mu.Lock()
	if o.status.Running {
		o.mu.Unlock()
		return nil, domain.ErrSyncInProgress
	}
	run := &syncRun{
		record: domain.SyncRun{
			ID:     uuid.New().String(),
			File:   req.File,
			Status: domain.SyncRunRunning,
		},
		progress: progress,
		started:  o.now(),
	}
	run.record.StartedAt = run.started
	o.status = domain.SyncStatus{Running: true, RunID: run.record.ID, Last: domain.SyncProgress{Phase: domain.SyncIdle}}
	o.mu.Unlock()

	logger.Section("Sync")
	logger.Info("Starting sync run %s (%s)", run.record.ID, scopeMessage(req.File))
	o.saveRun(ctx, run.record)
	return run, nil
}

func (o *SyncOrchestrator) end() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status.Running = false
	o.status.RunID = ""
}

func (o *SyncOrchestrator) finish(ctx context.Context, run *syncRun, result *domain.SyncResult, err error) {
	run.record.FinishedAt = o.now()
	if err != nil {
		run.record.Status = domain.SyncRunFailed
		run.record.Error = err.Error()
		logger.Error("Sync run %s failed: %v", run.record.ID, err)

		last := o.Status().Last
		last.Phase = domain.SyncFatal
		last.Message = err.Error()
		o.emit(ctx, run, last)
	} else {
		run.record.Status = domain.SyncRunSucceeded
		run.record.TotalChunks = result.TotalChunks
		run.record.FileCount = result.FileCount
		run.record.Batches = result.Batches
		logger.Info("Sync run %s complete: %d chunks, %d files, %d batches in %s",
			run.record.ID, result.TotalChunks, result.FileCount, result.Batches, result.Duration)
	}
	o.saveRun(context.WithoutCancel(ctx), run.record)
}

// emit records p as the last progress and sends it if a channel is set.
// The send gives up when ctx is done.
func (o *SyncOrchestrator) emit(ctx context.Context, run *syncRun, p domain.SyncProgress) {
	p.Elapsed = o.now().Sub(run.started)

	o.mu.Lock()
	o.status.Last = p
	o.mu.Unlock()

	if run.progress == nil {
		return
	}
	select {
	case run.progress <- p:
	case <-ctx.Done():
	}
}

func (o *SyncOrchestrator) saveRun(ctx context.Context, record domain.SyncRun) {
	if o.runs == nil {
		return
	}
	if err := o.runs.Save(ctx, record); err != nil {
		logger.Warn("Save sync run %s: %v", record.ID, err)
	}
}

func (o *SyncOrchestrator) batchSize(req domain.SyncRequest) int {
	switch {
	case req.BatchSize > 0:
		return req.BatchSize
	case req.Interactive:
		return o.cfg.InteractiveBatchSize
	default:
		return o.cfg.BatchSize
	}
}

func splitBatches(chunks []domain.Chunk, size int) [][]domain.Chunk {
	var batches [][]domain.Chunk
	for start := 0; start < len(chunks); start += size {
		batches = append(batches, chunks[start:min(start+size, len(chunks))])
	}
	return batches
}

// isPermanent reports errors that another attempt cannot fix.
// Provider rate limits and server errors stay retryable.
func isPermanent(err error) bool {
	var reqErr *domain.EmbeddingRequestError
	if errors.As(err, &reqErr) {
		return !reqErr.Retryable()
	}
	var mismatch *domain.DimensionMismatchError
	return errors.As(err, &mismatch) ||
		errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrIndexNotConfigured) ||
		errors.Is(err, domain.ErrEmbeddingUnavailable)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func scopeMessage(file string) string {
	if file == "" {
		return "all corpus files"
	}
	return file
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
