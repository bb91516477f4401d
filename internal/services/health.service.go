package services

import (
	"context"
	"time"

	"github.com/studyon/course-market/pkg/pg"
)

type HealthService struct {
	db *pg.DB
}

func NewHealthService(db *pg.DB) *HealthService {
	return &HealthService{db: db}
}

// Get pings the read connection. A nil db (e.g. partial wiring in tests)
// reports healthy.
func (s *HealthService) Get() error {
	if s.db == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	return s.db.Ping(ctx)
}
