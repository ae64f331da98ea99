// Package pinecone implements the durable vector index on Pinecone's REST
// control and data planes.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/nephra/internal/adapters/driven/vector"
)

const provider = "pinecone"

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.pinecone.io"
	DefaultAPIVersion = "2025-10"
	DefaultTimeout    = 30 * time.Second
)

// ClientConfig configures the REST client.
type ClientConfig struct {
	APIKey     string
	APIVersion string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client is a minimal Pinecone REST client.
type Client struct {
	cfg  ClientConfig
	http *http.Client
}

// NewClient creates a REST client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, vector.OpErr(provider, "configure", vector.OperationErrorValidation, "missing Pinecone API key", nil)
	}
	if strings.TrimSpace(cfg.APIVersion) == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: httpClient}, nil
}

// -------------------- Control plane --------------------

// IndexDescription is the describe_index response.
type IndexDescription struct {
	Name      string `json:"name"`
	Host      string `json:"host"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Status    struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
}

// CreateIndexRequest creates a serverless index.
type CreateIndexRequest struct {
	Name      string    `json:"name"`
	Dimension int       `json:"dimension"`
	Metric    string    `json:"metric"`
	Spec      IndexSpec `json:"spec"`
}

// IndexSpec selects the deployment.
type IndexSpec struct {
	Serverless ServerlessSpec `json:"serverless"`
}

// ServerlessSpec is the cloud and region of a serverless index.
type ServerlessSpec struct {
	Cloud  string `json:"cloud"`
	Region string `json:"region"`
}

// DescribeIndex returns the index description. A missing index yields an
// OperationError with code not_found.
func (c *Client) DescribeIndex(ctx context.Context, name string) (*IndexDescription, error) {
	const op = "describe_index"
	if strings.TrimSpace(name) == "" {
		return nil, vector.OpErr(provider, op, vector.OperationErrorValidation, "index name required", nil)
	}
	var out IndexDescription
	if err := c.do(ctx, op, http.MethodGet, c.controlURL("/indexes/"+name), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateIndex creates an index.
func (c *Client) CreateIndex(ctx context.Context, req CreateIndexRequest) (*IndexDescription, error) {
	var out IndexDescription
	if err := c.do(ctx, "create_index", http.MethodPost, c.controlURL("/indexes"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteIndex deletes an index. Deletion completes asynchronously.
func (c *Client) DeleteIndex(ctx context.Context, name string) error {
	return c.do(ctx, "delete_index", http.MethodDelete, c.controlURL("/indexes/"+name), nil, nil)
}

// -------------------- Data plane --------------------

// Vector is one record.
type Vector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// UpsertRequest writes vectors into a namespace.
type UpsertRequest struct {
	Vectors   []Vector `json:"vectors"`
	Namespace string   `json:"namespace,omitempty"`
}

// UpsertResponse reports written records.
type UpsertResponse struct {
	UpsertedCount int64 `json:"upsertedCount"`
}

// QueryRequest is a nearest-neighbour query.
type QueryRequest struct {
	Namespace       string    `json:"namespace,omitempty"`
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

// QueryMatch is a single result.
type QueryMatch struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// QueryResponse holds matches ordered by descending score.
type QueryResponse struct {
	Matches []QueryMatch `json:"matches"`
}

// IndexStats is the describe_index_stats response.
type IndexStats struct {
	Namespaces map[string]struct {
		VectorCount int64 `json:"vectorCount"`
	} `json:"namespaces"`
	Dimension        int   `json:"dimension"`
	TotalVectorCount int64 `json:"totalVectorCount"`
}

// Upsert writes vectors to the index at host.
func (c *Client) Upsert(ctx context.Context, host string, req UpsertRequest) (*UpsertResponse, error) {
	if len(req.Vectors) == 0 {
		return &UpsertResponse{}, nil
	}
	var out UpsertResponse
	if err := c.do(ctx, "upsert", http.MethodPost, dataURL(host, "/vectors/upsert"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Query searches the index at host.
func (c *Client) Query(ctx context.Context, host string, req QueryRequest) (*QueryResponse, error) {
	const op = "query"
	if len(req.Vector) == 0 {
		return nil, vector.OpErr(provider, op, vector.OperationErrorValidation, "query vector required", nil)
	}
	if req.TopK <= 0 {
		req.TopK = 10
	}
	var out QueryResponse
	if err := c.do(ctx, op, http.MethodPost, dataURL(host, "/query"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DescribeIndexStats returns record counts for the index at host.
func (c *Client) DescribeIndexStats(ctx context.Context, host string) (*IndexStats, error) {
	var out IndexStats
	if err := c.do(ctx, "describe_index_stats", http.MethodPost, dataURL(host, "/describe_index_stats"), map[string]any{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// -------------------- helpers --------------------

func (c *Client) controlURL(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + path
}

// dataURL accepts a bare host (as describe_index returns it) or a full URL.
func dataURL(host, path string) string {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	return host + path
}

func (c *Client) do(ctx context.Context, op, method, url string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return vector.OpErr(provider, op, vector.OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return vector.OpErr(provider, op, vector.OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Api-Key", c.cfg.APIKey)
	req.Header.Set("X-Pinecone-Api-Version", c.cfg.APIVersion)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return vector.OpErr(provider, op, vector.OperationErrorTransportFailed, "", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return vector.OpErr(provider, op, vector.OperationErrorDecodeFailed, "read response failed", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		code := vector.OperationErrorRequestFailed
		if resp.StatusCode == http.StatusNotFound {
			code = vector.OperationErrorNotFound
		}
		return &vector.OperationError{
			Provider:   provider,
			Code:       code,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("http %d: %s", resp.StatusCode, vector.TruncateBody(raw)),
		}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return vector.OpErr(provider, op, vector.OperationErrorDecodeFailed, "decode response failed", err)
	}
	return nil
}
