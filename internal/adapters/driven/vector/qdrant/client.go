// Package qdrant implements the durable vector index on a Qdrant
// collection over its REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/custodia-labs/nephra/internal/adapters/driven/vector"
)

const provider = "qdrant"

// envelope wraps every Qdrant REST response.
type envelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
}

type searchItem struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

type collectionInfo struct {
	PointsCount int64 `json:"points_count"`
	Config      struct {
		Params struct {
			Vectors struct {
				Size     int    `json:"size"`
				Distance string `json:"distance"`
			} `json:"vectors"`
		} `json:"params"`
	} `json:"config"`
}

func (ix *Index) collectionPath(suffix string) string {
	return ix.baseURL + "/collections/" + ix.cfg.Collection + suffix
}

func (ix *Index) doJSON(ctx context.Context, op, method, url string, in, out any) error {
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
	req.Header.Set("Content-Type", "application/json")
	if ix.cfg.APIKey != "" {
		req.Header.Set("api-key", ix.cfg.APIKey)
	}

	resp, err := ix.http.Do(req)
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

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return vector.OpErr(provider, op, vector.OperationErrorDecodeFailed, "decode envelope failed", err)
	}
	if msg := envelopeStatus(env.Status); msg != "" {
		return &vector.OperationError{
			Provider:   provider,
			Code:       vector.OperationErrorRequestFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    msg,
		}
	}

	if out == nil || len(env.Result) == 0 || string(env.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return vector.OpErr(provider, op, vector.OperationErrorDecodeFailed, "decode result failed", err)
	}
	return nil
}

// envelopeStatus returns "" for an ok status, otherwise a message.
func envelopeStatus(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.EqualFold(s, "ok") {
			return ""
		}
		return fmt.Sprintf("status=%q", s)
	}

	var obj struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && strings.TrimSpace(obj.Error) != "" {
		return strings.TrimSpace(obj.Error)
	}
	return "status=" + status
}
