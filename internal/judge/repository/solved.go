package repository

import (
	"context"
	"errors"
	"time"

	"codejudge/internal/common/cache"
	"codejudge/internal/common/db"
	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	leaderboardKey        = "judge:leaderboard:solved"
	defaultLeaderboardMax = 100
)

// LeaderboardEntry is one ranked user.
type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	UserID string `json:"userId"`
	Solved int    `json:"solved"`
}

// SolvedRepository records first solves and ranks users by solve count.
type SolvedRepository interface {
	// MarkSolved inserts the (user, problem) pair if absent and reports
	// whether this call created it.
	MarkSolved(ctx context.Context, userID, problemID string) (bool, error)
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)
}

// MySQLSolvedRepository relies on a unique (user_id, problem_id) key for
// idempotence and mirrors solve counts into a redis sorted set.
type MySQLSolvedRepository struct {
	db    db.Database
	cache cache.Cache
	now   func() time.Time
}

func NewSolvedRepository(database db.Database, cacheClient cache.Cache) *MySQLSolvedRepository {
	return &MySQLSolvedRepository{db: database, cache: cacheClient, now: time.Now}
}

func (r *MySQLSolvedRepository) MarkSolved(ctx context.Context, userID, problemID string) (bool, error) {
	if userID == "" || problemID == "" {
		return false, errors.New("user id and problem id are required")
	}
	if r.db == nil {
		return false, errors.New("database is not configured")
	}
	query := "INSERT INTO problem_solved (user_id, problem_id, created_at) VALUES (?, ?, ?)"
	if _, err := r.db.Exec(ctx, query, userID, problemID, r.now().UTC()); err != nil {
		if _, dup := db.UniqueViolation(err); dup {
			return false, nil
		}
		return false, err
	}
	if r.cache != nil {
		if _, err := r.cache.ZIncrBy(ctx, leaderboardKey, 1, userID); err != nil {
			logger.Warn(ctx, "leaderboard update failed", zap.String("problem_id", problemID), zap.Error(err))
		}
	}
	return true, nil
}

func (r *MySQLSolvedRepository) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if r.cache == nil {
		return nil, errors.New("cache is not configured")
	}
	if limit <= 0 || limit > defaultLeaderboardMax {
		limit = defaultLeaderboardMax
	}
	members, err := r.cache.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1))
	if err != nil {
		return nil, err
	}
	entries := make([]LeaderboardEntry, 0, len(members))
	for i, m := range members {
		entries = append(entries, LeaderboardEntry{Rank: i + 1, UserID: m.Member, Solved: int(m.Score)})
	}
	return entries, nil
}
