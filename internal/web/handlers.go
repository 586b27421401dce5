package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/pima/internal/core"
	"github.com/JonMunkholm/pima/internal/web/templates"
)

// multipartMemory is how much of an upload is buffered in memory before
// the multipart reader spills to a temp file.
const multipartMemory = 8 << 20

// handleImport stores every record of the uploaded "file" part or none.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadRequest
		}
		s.respondError(w, r, err, status)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	result, err := s.service.Import(ctx, header.Filename, file)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleList serves one page of inventory.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	page, err := s.service.List(r.Context(), parsePageRequest(r))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleSummary serves the inventory totals.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.Summary(r.Context())
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleDashboard renders the HTML overview.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summary, err := s.service.Summary(ctx)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	page, err := s.service.List(ctx, parsePageRequest(r))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = templates.Dashboard(templates.DashboardData{
		Summary:     *summary,
		Page:        *page,
		Imports:     s.service.Limiter().Status(),
		MaxFileSize: s.cfg.Upload.MaxFileSize,
	}).Render(ctx, w)
	if err != nil {
		s.logger.Warn("render dashboard", "error", err)
	}
}

type healthResponse struct {
	Status  string                   `json:"status"`
	Imports core.UploadLimiterStatus `json:"imports"`
}

// handleHealth reports database reachability and import slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Imports: s.service.Limiter().Status()}
	if err := s.service.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", "error", err)
		resp.Status = "unavailable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// parsePageRequest reads page, size, sort and direction. Missing or
// malformed numbers are left at zero for PageRequest.Normalize to default.
func parsePageRequest(r *http.Request) core.PageRequest {
	q := r.URL.Query()
	return core.PageRequest{
		Page:      intParam(q.Get("page")),
		Size:      intParam(q.Get("size")),
		Sort:      q.Get("sort"),
		Direction: q.Get("direction"),
	}
}

func intParam(v string) int {
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return i
}
