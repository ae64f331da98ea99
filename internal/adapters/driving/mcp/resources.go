package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const uriScheme = "nephra://"

const (
	filesURI   = uriScheme + "corpus/files"
	historyURI = uriScheme + "sync/history"
)

// historyLimit is the number of runs the history resource returns.
const historyLimit = 20

// registerResources registers the optional read-only resources.
func (s *Server) registerResources() {
	if s.ports.Corpus != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         filesURI,
			Name:        "corpus-files",
			Description: "Files in the knowledge base corpus directory",
			MIMEType:    "application/json",
		}, s.handleFilesResource)
	}

	if s.ports.Sync != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         historyURI,
			Name:        "sync-history",
			Description: "Recent knowledge base sync runs, newest first",
			MIMEType:    "application/json",
		}, s.handleHistoryResource)
	}
}

type fileInfo struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

type runInfo struct {
	ID          string    `json:"id"`
	File        string    `json:"file,omitempty"`
	Status      string    `json:"status"`
	TotalChunks int       `json:"total_chunks"`
	FileCount   int       `json:"file_count"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

func (s *Server) handleFilesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	files, err := s.ports.Corpus.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing corpus: %w", err)
	}

	infos := make([]fileInfo, len(files))
	for i, f := range files {
		infos[i] = fileInfo{Name: f.Name, Size: f.Size, ModTime: f.ModTime}
	}
	return jsonResult(req.Params.URI, infos)
}

func (s *Server) handleHistoryResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	runs, err := s.ports.Sync.History(ctx, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("listing sync runs: %w", err)
	}

	infos := make([]runInfo, len(runs))
	for i := range runs {
		infos[i] = runInfo{
			ID:          runs[i].ID,
			File:        runs[i].File,
			Status:      string(runs[i].Status),
			TotalChunks: runs[i].TotalChunks,
			FileCount:   runs[i].FileCount,
			Error:       runs[i].Error,
			StartedAt:   runs[i].StartedAt,
			FinishedAt:  runs[i].FinishedAt,
		}
	}
	return jsonResult(req.Params.URI, infos)
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
