package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5/pgxpool"

	db "github.com/JonMunkholm/pima/internal/database"
	"github.com/JonMunkholm/pima/internal/ingest"
)

// DefaultImportTimeout bounds a single import, parse and insert together.
const DefaultImportTimeout = 2 * time.Minute

// Options configures a Service.
type Options struct {
	MaxConcurrentImports int
	ImportWait           time.Duration
	ImportTimeout        time.Duration
	Logger               *slog.Logger
}

// Service provides the inventory operations.
type Service struct {
	pool       *pgxpool.Pool
	normalizer *ingest.Normalizer
	limiter    *UploadLimiter
	logger     *slog.Logger
	timeout    time.Duration

	// today returns the reference date for stock age.
	today func() civil.Date
}

// NewService creates a Service backed by pool.
func NewService(pool *pgxpool.Pool, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.ImportTimeout
	if timeout <= 0 {
		timeout = DefaultImportTimeout
	}
	return &Service{
		pool:       pool,
		normalizer: ingest.NewNormalizer(logger.With("component", "ingest")),
		limiter:    NewUploadLimiter(opts.MaxConcurrentImports, opts.ImportWait),
		logger:     logger,
		timeout:    timeout,
		today:      func() civil.Date { return civil.DateOf(time.Now()) },
	}
}

// Limiter exposes the import limiter for shutdown draining and status.
func (s *Service) Limiter() *UploadLimiter {
	return s.limiter
}

// Import parses an uploaded file and stores all of its records. The reader
// is always closed. Ingestion failures are returned as *ingest.Error; a
// uniqueness violation wraps ErrDuplicateRecord.
func (s *Service) Import(ctx context.Context, name string, r io.ReadCloser) (*ImportResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		r.Close()
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	logger := s.logger.With("file", name)
	if ip := GetIPAddressFromContext(ctx); ip != "" {
		logger = logger.With("ip", ip)
	}
	if ua := GetUserAgentFromContext(ctx); ua != "" {
		logger = logger.With("user_agent", ua)
	}

	records, err := s.normalizer.Parse(ctx, name, r)
	if err != nil {
		return nil, err
	}

	n, err := s.insertAll(ctx, records)
	if err != nil {
		logger.WarnContext(ctx, "import rejected", "records", len(records), "error", err)
		return nil, err
	}

	result := &ImportResult{
		FileName: name,
		Imported: int(n),
		Duration: time.Since(start),
	}
	logger.InfoContext(ctx, "import complete",
		"imported", result.Imported,
		"duration", result.Duration,
	)
	return result, nil
}

// List returns one page of the inventory.
func (s *Service) List(ctx context.Context, req PageRequest) (*Page, error) {
	req = req.Normalize()
	q := db.New(s.pool)

	total, err := q.CountProductInventory(ctx)
	if err != nil {
		return nil, fmt.Errorf("count inventory: %w", err)
	}

	page := &Page{
		Content:       []InventoryItem{},
		TotalElements: total,
		TotalPages:    totalPages(total, req.Size),
		Page:          req.Page,
		Size:          req.Size,
	}
	if int64(req.Offset()) >= total {
		return page, nil
	}

	rows, err := q.ListProductInventoryPage(ctx, db.ListProductInventoryPageParams{
		Sort:       req.Sort,
		Descending: req.Direction == "desc",
		Limit:      int32(req.Size),
		Offset:     int32(req.Offset()),
	})
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	page.Content = toInventoryItems(rows)
	return page, nil
}

// Summary aggregates the full inventory as of today.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	rows, err := db.New(s.pool).ListAllProductInventory(ctx)
	if err != nil {
		return nil, fmt.Errorf("load inventory: %w", err)
	}

	records := make([]ingest.Record, len(rows))
	for i, row := range rows {
		records[i] = toInventoryItem(row).Record
	}
	sum := Summarize(records, s.today())
	return &sum, nil
}

// Ping checks database connectivity.
func (s *Service) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
