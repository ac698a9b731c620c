package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"codejudge/internal/common/cache"
	"codejudge/internal/common/db"
	"codejudge/internal/judge/model"

	"golang.org/x/sync/singleflight"
)

const (
	defaultProblemTTL      = 30 * time.Minute
	defaultProblemEmptyTTL = 5 * time.Minute
	problemLoadTimeout     = 5 * time.Second
	problemKeyPrefix       = "judge:problem:"
)

var ErrProblemNotFound = errors.New("problem not found")

// ProblemRepository loads problems with their ordered test cases.
type ProblemRepository interface {
	GetProblem(ctx context.Context, problemID string) (*model.Problem, error)
}

// MySQLProblemRepository reads the problems table through a redis cache.
// Concurrent misses for the same problem share one database load. The shared
// load is detached from any single caller's cancellation.
type MySQLProblemRepository struct {
	db          db.Database
	cache       cache.Cache
	ttl         time.Duration
	emptyTTL    time.Duration
	loadTimeout time.Duration
	group       singleflight.Group
}

func NewProblemRepository(database db.Database, cacheClient cache.Cache) *MySQLProblemRepository {
	return NewProblemRepositoryWithTTL(database, cacheClient, defaultProblemTTL, defaultProblemEmptyTTL)
}

func NewProblemRepositoryWithTTL(database db.Database, cacheClient cache.Cache, ttl, emptyTTL time.Duration) *MySQLProblemRepository {
	if ttl <= 0 {
		ttl = defaultProblemTTL
	}
	if emptyTTL <= 0 {
		emptyTTL = defaultProblemEmptyTTL
	}
	return &MySQLProblemRepository{
		db:          database,
		cache:       cacheClient,
		ttl:         ttl,
		emptyTTL:    emptyTTL,
		loadTimeout: problemLoadTimeout,
	}
}

func (r *MySQLProblemRepository) GetProblem(ctx context.Context, problemID string) (*model.Problem, error) {
	if problemID == "" {
		return nil, ErrProblemNotFound
	}
	ch := r.group.DoChan(problemID, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.loadTimeout)
		defer cancel()
		return r.load(loadCtx, problemID)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	problem := res.Val.(model.Problem)
	if problem.ID == "" {
		return nil, ErrProblemNotFound
	}
	return &problem, nil
}

func (r *MySQLProblemRepository) load(ctx context.Context, problemID string) (model.Problem, error) {
	if r.cache == nil {
		problem, err := r.getFromDB(ctx, problemID)
		if errors.Is(err, ErrProblemNotFound) {
			return model.Problem{}, nil
		}
		return problem, err
	}
	return cache.GetWithCached[model.Problem](
		ctx,
		r.cache,
		problemKey(problemID),
		r.ttl,
		r.emptyTTL,
		func(p model.Problem) bool { return p.ID == "" },
		marshalProblem,
		unmarshalProblem,
		func(ctx context.Context) (model.Problem, error) {
			problem, err := r.getFromDB(ctx, problemID)
			if errors.Is(err, ErrProblemNotFound) {
				return model.Problem{}, nil
			}
			return problem, err
		},
	)
}

func (r *MySQLProblemRepository) getFromDB(ctx context.Context, problemID string) (model.Problem, error) {
	if r.db == nil {
		return model.Problem{}, errors.New("database is not configured")
	}
	query := `
		SELECT id, title, test_cases, code_snippets, UNIX_TIMESTAMP(updated_at)
		FROM problems
		WHERE id = ?`
	var (
		problem  model.Problem
		cases    []byte
		snippets []byte
	)
	err := r.db.QueryRow(ctx, query, problemID).Scan(&problem.ID, &problem.Title, &cases, &snippets, &problem.UpdatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return model.Problem{}, ErrProblemNotFound
		}
		return model.Problem{}, err
	}
	if len(cases) > 0 {
		if err := json.Unmarshal(cases, &problem.TestCases); err != nil {
			return model.Problem{}, fmt.Errorf("decode test cases of %s failed: %w", problemID, err)
		}
	}
	if len(snippets) > 0 {
		if err := json.Unmarshal(snippets, &problem.CodeSnippets); err != nil {
			return model.Problem{}, fmt.Errorf("decode code snippets of %s failed: %w", problemID, err)
		}
	}
	return problem, nil
}

func problemKey(problemID string) string {
	return problemKeyPrefix + problemID
}

func marshalProblem(p model.Problem) string {
	payload, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(payload)
}

func unmarshalProblem(data string) (model.Problem, error) {
	var p model.Problem
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return model.Problem{}, err
	}
	return p, nil
}
