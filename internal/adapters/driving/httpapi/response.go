package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/nephra/internal/core/domain"
)

// APIError is the body of every error response.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrorEnvelope wraps APIError.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func respondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// respondDomainError maps a core error onto a status and code.
func respondDomainError(c *gin.Context, err error) {
	status, code := classify(err)
	respondError(c, status, code, err)
}

func classify(err error) (int, string) {
	var (
		mismatch  *domain.DimensionMismatchError
		extract   *domain.ContentExtractionError
		exhausted *domain.BatchUploadExhaustedError
		embedReq  *domain.EmbeddingRequestError
	)
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, "unsupported_format"
	case errors.Is(err, domain.ErrSyncInProgress):
		return http.StatusConflict, "sync_in_progress"
	case errors.As(err, &mismatch):
		return http.StatusConflict, "dimension_mismatch"
	case errors.As(err, &extract):
		return http.StatusUnprocessableEntity, "extraction_failed"
	case errors.As(err, &exhausted):
		return http.StatusBadGateway, "batch_upload_exhausted"
	case errors.As(err, &embedReq):
		return http.StatusBadGateway, "embedding_request_failed"
	case errors.Is(err, domain.ErrIndexNotConfigured):
		return http.StatusServiceUnavailable, "index_not_configured"
	case errors.Is(err, domain.ErrVectorIndexUnavailable), errors.Is(err, domain.ErrEmbeddingUnavailable):
		return http.StatusServiceUnavailable, "backend_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
