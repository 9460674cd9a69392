package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docchat/internal/domain"
)

// ErrorCode is the machine-readable code of an error response.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest      ErrorCode = "bad_request"
	CodeValidation      ErrorCode = "validation_failed"
	CodeUnauthorized    ErrorCode = "unauthorized"
	CodeSessionNotFound ErrorCode = "session_not_found"
	CodeRateLimited     ErrorCode = "rate_limited"
	CodeUpstream        ErrorCode = "upstream_error"
	CodeInternal        ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		rateLimitHandler,
		upstreamHandler,
		sentinelHandler(domain.ErrSessionNotFound, http.StatusNotFound, CodeSessionNotFound),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, CodeValidation),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

// rateLimitHandler surfaces the upstream quota message as-is.
func rateLimitHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrUpstreamRateLimited) {
		return false
	}
	msg := domain.QuotaExceededMessage
	var rl *domain.RateLimitError
	if errors.As(err, &rl) && rl.Message != "" {
		msg = rl.Message
	}
	writeError(w, http.StatusTooManyRequests, CodeRateLimited, msg)
	return true
}

// upstreamHandler relays the upstream status when it is an HTTP error status.
func upstreamHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrUpstreamService) {
		return false
	}
	status := http.StatusInternalServerError
	msg := domain.ErrUpstreamService.Error()
	var ue *domain.UpstreamError
	if errors.As(err, &ue) {
		if ue.Code >= 400 && ue.Code <= 599 {
			status = ue.Code
		}
		if ue.Message != "" {
			msg = ue.Message
		}
	}
	writeError(w, status, CodeUpstream, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	l := s.requestLogger(r)
	for _, h := range s.errorHandlers {
		if h(w, err) {
			l.Warn("domain error", zap.Error(err))
			return
		}
	}
	l.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
}
