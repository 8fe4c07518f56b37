package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mansoorceksport/liftlog/internal/domain"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const personalRecordsTTL = 30 * time.Minute

// ProgressService is the read side: history, personal records and the
// progress overview.
type ProgressService struct {
	history    domain.SessionHistoryRepository
	aggregator *MetricsAggregator
	cache      domain.CacheRepository // optional
	clock      domain.Clock
}

func NewProgressService(
	history domain.SessionHistoryRepository,
	aggregator *MetricsAggregator,
	cache domain.CacheRepository,
	clock domain.Clock,
) *ProgressService {
	return &ProgressService{
		history:    history,
		aggregator: aggregator,
		cache:      cache,
		clock:      clock,
	}
}

func (s *ProgressService) History(ctx context.Context, userID string) ([]*domain.SessionRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required: %w", domain.ErrInvalidInput)
	}
	records, err := s.history.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session history: %w", err)
	}
	return records, nil
}

// PersonalRecords serves cached records when present, otherwise derives and
// caches them.
func (s *ProgressService) PersonalRecords(ctx context.Context, userID string) ([]domain.PersonalRecord, error) {
	key := domain.PersonalRecordsCacheKey(userID)
	if s.cache != nil {
		var cached []domain.PersonalRecord
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	records, err := s.History(ctx, userID)
	if err != nil {
		return nil, err
	}
	prs := PersonalRecords(records)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, prs, personalRecordsTTL); err != nil {
			log.WithField("user_id", userID).Warnf("failed to cache personal records: %v", err)
		}
	}
	return prs, nil
}

// Frequency counts sessions per day over the trailing window ending today.
func (s *ProgressService) Frequency(ctx context.Context, userID string, windowDays int) ([]domain.FrequencyBucket, error) {
	records, err := s.History(ctx, userID)
	if err != nil {
		return nil, err
	}
	return WeeklyFrequency(records, s.clock.Now(), windowDays), nil
}

// Overview loads history and today's activity concurrently and derives the
// whole progress screen from them. Missing activity is not an error.
func (s *ProgressService) Overview(ctx context.Context, userID string) (*domain.ProgressOverview, error) {
	var (
		records []*domain.SessionRecord
		today   *domain.DailyActivity
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = s.History(gctx, userID)
		return err
	})
	g.Go(func() error {
		activity, err := s.aggregator.Today(gctx, userID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load today's activity: %w", err)
		}
		today = activity
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &domain.ProgressOverview{
		Summary:         Summary(records),
		PersonalRecords: PersonalRecords(records),
		Frequency:       WeeklyFrequency(records, s.clock.Now(), DefaultFrequencyWindowDays),
		Today:           today,
	}, nil
}
