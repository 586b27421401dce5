package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/pima/internal/config"
	"github.com/JonMunkholm/pima/internal/core"
	"github.com/JonMunkholm/pima/internal/ingest"
)

type fakeService struct {
	mu sync.Mutex

	importErr error
	imported  []byte
	fileName  string
	clientIP  string

	page     core.Page
	summary  core.Summary
	lastPage core.PageRequest
	listErr  error
	pingErr  error
	limiter  *core.UploadLimiter
}

func newFakeService() *fakeService {
	return &fakeService{
		page:    core.Page{Content: []core.InventoryItem{}, Size: core.DefaultPageSize},
		limiter: core.NewUploadLimiter(2, time.Second),
	}
}

func (f *fakeService) Import(ctx context.Context, name string, r io.ReadCloser) (*core.ImportResult, error) {
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.imported = data
	f.fileName = name
	f.clientIP = core.GetIPAddressFromContext(ctx)
	if f.importErr != nil {
		return nil, f.importErr
	}
	return &core.ImportResult{FileName: name, Imported: bytes.Count(data, []byte("\n"))}, nil
}

func (f *fakeService) List(ctx context.Context, req core.PageRequest) (*core.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPage = req
	if f.listErr != nil {
		return nil, f.listErr
	}
	p := f.page
	return &p, nil
}

func (f *fakeService) Summary(ctx context.Context) (*core.Summary, error) {
	s := f.summary
	return &s, nil
}

func (f *fakeService) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeService) Limiter() *core.UploadLimiter { return f.limiter }

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080, RequestTimeout: 5 * time.Second},
		Upload: config.UploadConfig{MaxFileSize: 1 << 20},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"*"}, MaxAge: time.Minute},
		Security: config.SecurityConfig{
			EnableCSP: true,
		},
	}
}

func newTestServer(svc *fakeService, cfg *config.Config) http.Handler {
	logger := slog.New(slog.DiscardHandler)
	return NewServer(svc, cfg, logger).Router()
}

func multipartBody(t *testing.T, field, name, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func postImport(t *testing.T, h http.Handler, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/inventory/import", body)
	req.Header.Set("Content-Type", contentType)
	req.RemoteAddr = "192.0.2.10:51000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestImport_Success(t *testing.T) {
	svc := newFakeService()
	h := newTestServer(svc, testConfig())

	content := "Product SKU,Purchase Date\nA,2024-03-01\nB,2024-03-02\n"
	body, ct := multipartBody(t, "file", "stock.csv", content)
	rec := postImport(t, h, body, ct)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"fileName":"stock.csv","imported":3}`, rec.Body.String())
	assert.Equal(t, content, string(svc.imported))
	assert.Equal(t, "stock.csv", svc.fileName)
	assert.Equal(t, "192.0.2.10", svc.clientIP)
}

func TestImport_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
		wantCode   string
		wantRow    int
	}{
		{
			name:       "missing sku",
			err:        &ingest.Error{Kind: ingest.KindMissingSKU, Row: 3},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Product SKU is mandatory (row 3)",
			wantCode:   "ING005",
			wantRow:    3,
		},
		{
			name:       "invalid date",
			err:        &ingest.Error{Kind: ingest.KindInvalidDateFormat, Text: "not-a-date", Row: 2},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Invalid date format: 'not-a-date' (row 2)",
			wantCode:   "ING004",
			wantRow:    2,
		},
		{
			name:       "missing header",
			err:        &ingest.Error{Kind: ingest.KindMissingHeaderRow},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Excel file has no header row",
			wantCode:   "ING002",
		},
		{
			name:       "duplicate",
			err:        fmt.Errorf("%w: Key (product_sku, purchase_date)=(A, 2024-03-01) already exists.", core.ErrDuplicateRecord),
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Duplicate Product SKU + Purchase Date",
			wantCode:   "DB001",
		},
		{
			name:       "busy",
			err:        core.ErrTooManyUploads,
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "UPL002",
		},
		{
			name:       "deadline while parsing",
			err:        fmt.Errorf("import: %w", context.DeadlineExceeded),
			wantStatus: http.StatusGatewayTimeout,
			wantMsg:    "Request timed out",
			wantCode:   "UPL005",
		},
		{
			name:       "unexpected",
			err:        errors.New("insert inventory: boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "ERR000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			svc.importErr = tt.err
			h := newTestServer(svc, testConfig())

			body, ct := multipartBody(t, "file", "stock.xlsx", "data\n")
			rec := postImport(t, h, body, ct)

			require.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, tt.wantRow, resp.Row)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, resp.Error)
			}
			if tt.wantStatus == http.StatusServiceUnavailable {
				assert.NotEmpty(t, rec.Header().Get("Retry-After"))
			}
		})
	}
}

func TestImport_BadRequests(t *testing.T) {
	t.Run("missing file field", func(t *testing.T) {
		body, ct := multipartBody(t, "upload", "stock.csv", "x")
		rec := postImport(t, newTestServer(newFakeService(), testConfig()), body, ct)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "FILE004", decodeError(t, rec).Code)
	})

	t.Run("not multipart", func(t *testing.T) {
		rec := postImport(t, newTestServer(newFakeService(), testConfig()), strings.NewReader("{}"), "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "FILE002", decodeError(t, rec).Code)
	})

	t.Run("too large", func(t *testing.T) {
		cfg := testConfig()
		cfg.Upload.MaxFileSize = 512
		body, ct := multipartBody(t, "file", "stock.csv", strings.Repeat("A,2024-03-01\n", 200))
		rec := postImport(t, newTestServer(newFakeService(), cfg), body, ct)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Equal(t, "FILE001", decodeError(t, rec).Code)
	})
}

func TestList(t *testing.T) {
	svc := newFakeService()
	svc.page = core.Page{
		Content:       []core.InventoryItem{{Record: ingest.Record{ProductSKU: "A", UnitPrice: decimal.RequireFromString("2.5"), Quantity: 4}}},
		TotalElements: 11,
		TotalPages:    2,
		Page:          1,
		Size:          10,
	}
	h := newTestServer(svc, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/inventory?page=1&size=10&sort=unitPrice&direction=asc", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.PageRequest{Page: 1, Size: 10, Sort: "unitPrice", Direction: "asc"}, svc.lastPage)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, float64(11), got["totalElements"])
	assert.Equal(t, float64(2), got["totalPages"])
	content := got["content"].([]any)
	require.Len(t, content, 1)
	assert.Equal(t, "A", content[0].(map[string]any)["productSku"])
}

func TestList_MalformedParams(t *testing.T) {
	svc := newFakeService()
	h := newTestServer(svc, testConfig())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/inventory?page=x&size=", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.PageRequest{}, svc.lastPage)
}

func TestList_Error(t *testing.T) {
	svc := newFakeService()
	svc.listErr = errors.New("dial tcp: connection refused")
	h := newTestServer(svc, testConfig())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/inventory", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "DB004", decodeError(t, rec).Code)
}

func TestSummary(t *testing.T) {
	svc := newFakeService()
	svc.summary = core.Summary{
		TotalProducts:       7,
		TotalInventoryValue: decimal.RequireFromString("150.5"),
		AverageStockAge:     12.5,
	}
	h := newTestServer(svc, testConfig())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/inventory/summary", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"totalProducts":7,"totalInventoryValue":"150.5","averageStockAge":12.5}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	svc := newFakeService()
	h := newTestServer(svc, testConfig())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","imports":{"active":0,"available":2,"maxConcurrent":2}}`, rec.Body.String())

	svc.pingErr = errors.New("connection refused")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"unavailable"`)
}

func TestDashboard(t *testing.T) {
	h := newTestServer(newFakeService(), testConfig())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Product Inventory")
	assert.Contains(t, rec.Body.String(), "No inventory imported yet.")
}

func TestDashboard_ErrorRendersHTML(t *testing.T) {
	svc := newFakeService()
	svc.listErr = errors.New("boom")
	h := newTestServer(svc, testConfig())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Code: ERR000")
}

func TestSecurityHeaders(t *testing.T) {
	h := newTestServer(newFakeService(), testConfig())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'self'")
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"secret"}
	h := newTestServer(newFakeService(), cfg)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/inventory", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/inventory", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "health stays public")
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(newFakeService(), testConfig())

	req := httptest.NewRequest(http.MethodOptions, "/api/inventory/import", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, UploadLimit: 1, Burst: 1}
	h := newTestServer(newFakeService(), cfg)

	get := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/inventory/summary", nil)
		req.RemoteAddr = "198.51.100.4:1000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, get())
	assert.Equal(t, http.StatusTooManyRequests, get())
}

func TestImport_ErrorLogLevel(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantLevel string
	}{
		{"busy is expected", core.ErrTooManyUploads, "WARN"},
		{"timeout is expected", context.DeadlineExceeded, "WARN"},
		{"ingestion is expected", &ingest.Error{Kind: ingest.KindMissingSKU, Row: 2}, "WARN"},
		{"unknown failure", errors.New("insert inventory: boom"), "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			svc := newFakeService()
			svc.importErr = tt.err
			h := NewServer(svc, testConfig(), slog.New(slog.NewJSONHandler(&buf, nil))).Router()

			body, ct := multipartBody(t, "file", "stock.csv", "data\n")
			postImport(t, h, body, ct)

			var levels []string
			for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
				var entry map[string]any
				require.NoError(t, json.Unmarshal(line, &entry))
				if entry["msg"] == "request error" {
					levels = append(levels, entry["level"].(string))
				}
			}
			assert.Equal(t, []string{tt.wantLevel}, levels)
		})
	}
}
