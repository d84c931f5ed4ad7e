package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/courtside/academy-api/internal/models"
	appErrors "github.com/courtside/academy-api/pkg/errors"
)

type courtReader interface {
	FindByID(ctx context.Context, id int64) (*models.Court, error)
}

type jsonCache interface {
	Enabled() bool
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CourtLocationService resolves court coordinates for geofence checks,
// keeping a redis-side cache in front of the database. Court locations change
// rarely but get read on every check-in.
type CourtLocationService struct {
	courts courtReader
	cache  jsonCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCourtLocationService constructs CourtLocationService. cache may be nil.
func NewCourtLocationService(courts courtReader, cache jsonCache, ttl time.Duration, logger *zap.Logger) *CourtLocationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CourtLocationService{courts: courts, cache: cache, ttl: ttl, logger: logger}
}

func courtCacheKey(id int64) string {
	return fmt.Sprintf("court:%d", id)
}

// Locate returns the court, from cache when possible.
func (s *CourtLocationService) Locate(ctx context.Context, courtID int64) (*models.Court, error) {
	if s.cache != nil && s.cache.Enabled() {
		var cached models.Court
		err := s.cache.Get(ctx, courtCacheKey(courtID), &cached)
		if err == nil {
			return &cached, nil
		}
		if err != appErrors.ErrCacheMiss {
			s.logger.Warn("court cache read failed", zap.Int64("court_id", courtID), zap.Error(err))
		}
	}

	court, err := s.courts.FindByID(ctx, courtID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.cache.Enabled() {
		if err := s.cache.Set(ctx, courtCacheKey(courtID), court, s.ttl); err != nil {
			s.logger.Warn("court cache write failed", zap.Int64("court_id", courtID), zap.Error(err))
		}
	}
	return court, nil
}

// Invalidate drops every cached court after an admin edit.
func (s *CourtLocationService) Invalidate(ctx context.Context) error {
	if s.cache == nil || !s.cache.Enabled() {
		return nil
	}
	return s.cache.DeleteByPattern(ctx, "court:*")
}
