package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"codejudge/internal/common/cache"
	"codejudge/internal/judge/model"
)

const (
	reportKeyPrefix  = "judge:execution:"
	defaultReportTTL = 24 * time.Hour
)

var ErrReportNotFound = errors.New("execution report not found")

// ReportRepository keeps execution reports for a limited time.
type ReportRepository interface {
	Save(ctx context.Context, report model.ExecutionReport) error
	Get(ctx context.Context, executionID string) (model.ExecutionReport, error)
}

// CacheReportRepository stores reports as JSON strings with a TTL.
type CacheReportRepository struct {
	cache cache.Cache
	ttl   time.Duration
}

func NewReportRepository(cacheClient cache.Cache, ttl time.Duration) *CacheReportRepository {
	if ttl <= 0 {
		ttl = defaultReportTTL
	}
	return &CacheReportRepository{cache: cacheClient, ttl: ttl}
}

func (r *CacheReportRepository) Save(ctx context.Context, report model.ExecutionReport) error {
	if report.ExecutionID == "" {
		return errors.New("execution id is required")
	}
	if r.cache == nil {
		return errors.New("cache is not configured")
	}
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report failed: %w", err)
	}
	return r.cache.Set(ctx, reportKeyPrefix+report.ExecutionID, string(data), r.ttl)
}

func (r *CacheReportRepository) Get(ctx context.Context, executionID string) (model.ExecutionReport, error) {
	if executionID == "" {
		return model.ExecutionReport{}, ErrReportNotFound
	}
	if r.cache == nil {
		return model.ExecutionReport{}, errors.New("cache is not configured")
	}
	val, err := r.cache.Get(ctx, reportKeyPrefix+executionID)
	if err != nil {
		return model.ExecutionReport{}, err
	}
	if val == "" {
		return model.ExecutionReport{}, ErrReportNotFound
	}
	var report model.ExecutionReport
	if err := json.Unmarshal([]byte(val), &report); err != nil {
		return model.ExecutionReport{}, fmt.Errorf("decode report failed: %w", err)
	}
	return report, nil
}
