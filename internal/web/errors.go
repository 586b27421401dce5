package web

// errors.go turns handler errors into responses.
//
// The technical error is logged with the request id; the client gets the
// core.MapError message. Ingestion errors keep their text verbatim and add
// the offending row when there is one.

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/pima/internal/core"
	"github.com/JonMunkholm/pima/internal/ingest"
	"github.com/JonMunkholm/pima/internal/logging"
	"github.com/JonMunkholm/pima/internal/web/templates"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error  string `json:"error"`
	Action string `json:"action,omitempty"`
	Code   string `json:"code"`
	Row    int    `json:"row,omitempty"`
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var ie *ingest.Error
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &ie):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrDuplicateRecord):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrTooManyUploads):
		return http.StatusServiceUnavailable
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the mapped message. Status 0 means
// derive it from err.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	if status == 0 {
		status = statusFor(err)
	}
	msg := core.MapError(err)

	logger := logging.With(s.logger, r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", msg.Code,
		"error", err.Error(),
	}
	if status >= http.StatusInternalServerError && !core.IsUserFacing(err) {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}

	if wantsJSON(r) {
		resp := ErrorResponse{Error: msg.Message, Action: msg.Action, Code: msg.Code}
		var ie *ingest.Error
		if errors.As(err, &ie) {
			resp.Row = ie.Row
		}
		writeJSON(w, status, resp)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w); err != nil {
		logger.Warn("render error alert", "error", err)
	}
}

// wantsJSON reports whether the client expects a JSON body. API routes
// default to JSON.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}
