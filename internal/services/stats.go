package services

import (
	"context"
	"time"

	"loxodon/internal/store"
)

type StatsService struct {
	store store.Store
}

func NewStatsService(st store.Store) *StatsService {
	return &StatsService{store: st}
}

func (s *StatsService) Overview(ctx context.Context) (*store.Overview, error) {
	return s.store.Overview(ctx, time.Now())
}
