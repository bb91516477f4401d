package services

import (
	"context"
	"time"

	"github.com/studyon/course-market/internal/model"
)

// ExpiryNoticeWindow is how far ahead the expiring-soon report looks.
const ExpiryNoticeWindow = 24 * time.Hour

type ReportRepository interface {
	FindExpiring(ctx context.Context, from, to time.Time) ([]*model.ExpiringRental, error)
	RevenueSummary(ctx context.Context, start, end time.Time) ([]*model.RevenueSummaryRow, error)
}

// ReportService answers the read-only aggregate queries the reporting jobs
// run against the ledger.
type ReportService struct {
	transactionRepo ReportRepository
}

func NewReportService(transactionRepo ReportRepository) *ReportService {
	return &ReportService{
		transactionRepo: transactionRepo,
	}
}

// ExpiringSoon lists paid rentals lapsing within the next day.
func (s *ReportService) ExpiringSoon(ctx context.Context) ([]*model.ExpiringRental, error) {
	now := time.Now()
	return s.transactionRepo.FindExpiring(ctx, now, now.Add(ExpiryNoticeWindow))
}

// MonthlyRevenue aggregates the trailing month ending at end, returning the
// per-course rows and the grand total.
func (s *ReportService) MonthlyRevenue(ctx context.Context, end time.Time) ([]*model.RevenueSummaryRow, float64, error) {
	start := end.AddDate(0, -1, 0)

	rows, err := s.transactionRepo.RevenueSummary(ctx, start, end)
	if err != nil {
		return nil, 0, err
	}

	var total float64
	for _, row := range rows {
		total += row.Total
	}
	return rows, total, nil
}
