package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/logger"
)

type searchRequest struct {
	Query     string `json:"query" binding:"required"`
	Limit     int    `json:"limit"`
	SkipCache bool   `json:"skip_cache"`
}

type chunkBody struct {
	ID      string  `json:"id"`
	Source  string  `json:"source"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type textRequest struct {
	Text  string `json:"text" binding:"required"`
	Label string `json:"label" binding:"required"`
}

type progressBody struct {
	Phase         string  `json:"phase"`
	BatchNumber   int     `json:"batch"`
	TotalBatches  int     `json:"total_batches"`
	ChunksIndexed int     `json:"chunks_indexed"`
	TotalChunks   int     `json:"total_chunks"`
	Attempt       int     `json:"attempt,omitempty"`
	Percent       float64 `json:"percent"`
	ElapsedMS     int64   `json:"elapsed_ms"`
	RemainingMS   int64   `json:"remaining_ms,omitempty"`
	Message       string  `json:"message,omitempty"`
}

type skippedBody struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type resultBody struct {
	TotalChunks int           `json:"total_chunks"`
	FileCount   int           `json:"file_count"`
	Batches     int           `json:"batches"`
	Skipped     []skippedBody `json:"skipped"`
	DurationMS  int64         `json:"duration_ms"`
}

type syncOutcome struct {
	result *domain.SyncResult
	err    error
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_input", err)
		return
	}

	chunks := s.ports.Search.Search(c.Request.Context(), req.Query,
		domain.SearchOptions{Limit: req.Limit, SkipCache: req.SkipCache})

	out := make([]chunkBody, len(chunks))
	for i := range chunks {
		out[i] = chunkBody{
			ID:      chunks[i].ID,
			Source:  chunks[i].Source,
			Content: chunks[i].Content,
			Score:   chunks[i].Score,
		}
	}
	c.JSON(http.StatusOK, gin.H{"chunks": out, "count": len(out)})
}

func (s *Server) formatContext(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_input", err)
		return
	}

	chunks := s.ports.Search.Search(c.Request.Context(), req.Query,
		domain.SearchOptions{Limit: req.Limit, SkipCache: req.SkipCache})
	c.JSON(http.StatusOK, gin.H{
		"context": s.ports.Search.FormatContext(chunks),
		"count":   len(chunks),
	})
}

// upload stores one multipart file in the corpus and indexes it.
// The optional "name" field sets the corpus-relative path.
func (s *Server) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)

	header, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_input", fmt.Errorf("file field: %w", err))
		return
	}
	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		name = path.Base(strings.ReplaceAll(header.Filename, `\`, "/"))
	}

	f, err := header.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_input", err)
		return
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_input", err)
		return
	}

	result, err := s.ports.Corpus.Upload(c.Request.Context(), name, content, nil)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "result": toResultBody(result)})
}

// ingestText chunks pasted text and indexes it.
func (s *Server) ingestText(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_input", err)
		return
	}

	ctx := c.Request.Context()
	chunks, err := s.ports.Ingest.IngestText(ctx, req.Text, req.Label)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if err := s.ports.Ingest.AddToIndex(ctx, chunks); err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"label": req.Label, "chunks": len(chunks)})
}

// runSync streams a sync run as Server-Sent Events: "progress" events, then
// one final "done" or "error" event. A client disconnect cancels the run.
func (s *Server) runSync(c *gin.Context) {
	req := domain.SyncRequest{File: c.Query("file")}
	req.Interactive = req.File != ""
	if raw := c.Query("batch_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(c, http.StatusBadRequest, "invalid_input",
				fmt.Errorf("%w: batch_size must be a positive integer", domain.ErrInvalidInput))
			return
		}
		req.BatchSize = n
	}
	if s.ports.Sync.Status().Running {
		respondDomainError(c, domain.ErrSyncInProgress)
		return
	}

	ctx := c.Request.Context()
	progress := make(chan domain.SyncProgress, 16)
	done := make(chan syncOutcome, 1)
	go func() {
		result, err := s.ports.Sync.Sync(ctx, req, progress)
		done <- syncOutcome{result: result, err: err}
	}()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(_ io.Writer) bool {
		select {
		case p := <-progress:
			c.SSEvent("progress", toProgressBody(p))
			return true
		case out := <-done:
			for drained := false; !drained; {
				select {
				case p := <-progress:
					c.SSEvent("progress", toProgressBody(p))
				default:
					drained = true
				}
			}
			if out.err != nil {
				_, code := classify(out.err)
				c.SSEvent("error", APIError{Message: out.err.Error(), Code: code})
			} else {
				c.SSEvent("done", toResultBody(out.result))
			}
			return false
		}
	})
}

func (s *Server) syncStatus(c *gin.Context) {
	st := s.ports.Sync.Status()
	c.JSON(http.StatusOK, gin.H{
		"running": st.Running,
		"run_id":  st.RunID,
		"last":    toProgressBody(st.Last),
	})
}

func (s *Server) syncHistory(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_input", fmt.Errorf("limit: %w", err))
		return
	}
	runs, err := s.ports.Sync.History(c.Request.Context(), limit)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	out := make([]gin.H, len(runs))
	for i, r := range runs {
		out[i] = gin.H{
			"id":           r.ID,
			"file":         r.File,
			"status":       r.Status,
			"total_chunks": r.TotalChunks,
			"file_count":   r.FileCount,
			"batches":      r.Batches,
			"error":        r.Error,
			"started_at":   r.StartedAt,
			"finished_at":  r.FinishedAt,
		}
	}
	c.JSON(http.StatusOK, gin.H{"runs": out})
}

func (s *Server) stats(c *gin.Context) {
	stats, err := s.ports.Ingest.IndexStats(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"index":         stats.IndexIdentifier,
		"provider":      stats.Provider,
		"total_records": stats.TotalRecords,
		"dimension":     stats.Dimension,
		"namespaces":    stats.Namespaces,
	})
}

func (s *Server) listFiles(c *gin.Context) {
	files, err := s.ports.Corpus.List(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}

	out := make([]gin.H, len(files))
	for i, f := range files {
		out[i] = gin.H{"name": f.Name, "size": f.Size, "mod_time": f.ModTime}
	}
	c.JSON(http.StatusOK, gin.H{"files": out})
}

func (s *Server) deleteFile(c *gin.Context) {
	name := strings.TrimPrefix(c.Param("name"), "/")
	if err := s.ports.Corpus.Delete(c.Request.Context(), name); err != nil {
		respondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// reset destroys the durable index. It requires ?confirm=true.
func (s *Server) reset(c *gin.Context) {
	if c.Query("confirm") != "true" {
		respondError(c, http.StatusBadRequest, "confirmation_required",
			fmt.Errorf("%w: pass confirm=true to destroy the index", domain.ErrInvalidInput))
		return
	}
	if err := s.ports.Ingest.ResetIndex(c.Request.Context()); err != nil {
		respondDomainError(c, err)
		return
	}
	logger.Info("Durable index reset over HTTP from %s", c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"reset": true})
}

func toProgressBody(p domain.SyncProgress) progressBody {
	return progressBody{
		Phase:         string(p.Phase),
		BatchNumber:   p.BatchNumber,
		TotalBatches:  p.TotalBatches,
		ChunksIndexed: p.ChunksIndexed,
		TotalChunks:   p.TotalChunks,
		Attempt:       p.Attempt,
		Percent:       p.Percent(),
		ElapsedMS:     p.Elapsed.Milliseconds(),
		RemainingMS:   p.Remaining().Milliseconds(),
		Message:       p.Message,
	}
}

func toResultBody(r *domain.SyncResult) resultBody {
	out := resultBody{Skipped: []skippedBody{}}
	if r == nil {
		return out
	}
	out.TotalChunks = r.TotalChunks
	out.FileCount = r.FileCount
	out.Batches = r.Batches
	out.DurationMS = r.Duration.Milliseconds()
	for _, sk := range r.Skipped {
		out.Skipped = append(out.Skipped, skippedBody{Name: sk.Name, Reason: sk.Reason})
	}
	return out
}
