package dashboard

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"
)

const (
	cacheKeySummary     = "production_summary"
	cacheKeyUtilization = "area_utilization"
	cacheKeyProgress    = "order_progress"
)

// Service serves dashboard aggregates with a short TTL cache in front of the
// read repository.
type Service struct {
	repo   Repository
	cache  *Cache
	logger *zap.Logger
}

// NewService creates a dashboard service
func NewService(repo Repository, cacheTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  NewCache(cacheTTL),
		logger: logger,
	}
}

// Summary returns the cached production summary
func (s *Service) Summary(ctx context.Context) (*ProductionSummary, error) {
	if cached, ok := s.cache.Get(cacheKeySummary); ok {
		return cached.(*ProductionSummary), nil
	}

	summary, err := s.repo.ProductionSummary(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(cacheKeySummary, summary)
	return summary, nil
}

// Utilization returns the cached per-area utilization
func (s *Service) Utilization(ctx context.Context) ([]*AreaUtilizationRow, error) {
	if cached, ok := s.cache.Get(cacheKeyUtilization); ok {
		return cached.([]*AreaUtilizationRow), nil
	}

	rows, err := s.repo.AreaUtilization(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(cacheKeyUtilization, rows)
	return rows, nil
}

// UpcomingActivities returns pending and overdue activities due within the
// given number of days. Not cached: the operator acts on this list.
func (s *Service) UpcomingActivities(ctx context.Context, days, limit int) ([]*UpcomingActivityRow, error) {
	if days < 1 || days > 90 {
		days = 7
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	return s.repo.UpcomingActivities(ctx, time.Now(), days, limit)
}

// OrderProgress returns the cached active order progress
func (s *Service) OrderProgress(ctx context.Context) ([]*OrderProgressRow, error) {
	if cached, ok := s.cache.Get(cacheKeyProgress); ok {
		return cached.([]*OrderProgressRow), nil
	}

	rows, err := s.repo.ActiveOrderProgress(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(cacheKeyProgress, rows)
	return rows, nil
}

// ExportExcel writes the full dashboard snapshot as a spreadsheet
func (s *Service) ExportExcel(ctx context.Context, w io.Writer) error {
	summary, err := s.Summary(ctx)
	if err != nil {
		return err
	}
	areas, err := s.Utilization(ctx)
	if err != nil {
		return err
	}
	progress, err := s.OrderProgress(ctx)
	if err != nil {
		return err
	}

	s.logger.Info("Exporting dashboard spreadsheet",
		zap.Int("areas", len(areas)),
		zap.Int("orders", len(progress)))
	return ExportSummaryExcel(w, summary, areas, progress)
}

// ExportPDF writes the dashboard snapshot as a PDF
func (s *Service) ExportPDF(ctx context.Context, w io.Writer) error {
	summary, err := s.Summary(ctx)
	if err != nil {
		return err
	}
	areas, err := s.Utilization(ctx)
	if err != nil {
		return err
	}

	s.logger.Info("Exporting dashboard PDF", zap.Int("areas", len(areas)))
	return ExportSummaryPDF(w, summary, areas)
}
