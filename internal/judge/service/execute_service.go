package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"codejudge/internal/common/cache"
	"codejudge/internal/judge/engine"
	"codejudge/internal/judge/harness"
	"codejudge/internal/judge/model"
	"codejudge/internal/judge/repository"
	"codejudge/internal/judge/verdict"
	appErr "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	rateUserKeyPrefix = "judge:rate:user:"
	rateIPKeyPrefix   = "judge:rate:ip:"

	defaultMaxCodeBytes        = 64 * 1024
	defaultMaxCustomInputs     = 10
	defaultMaxCustomInputBytes = 64 * 1024
)

// Engine submits a batch of units and waits for their terminal results.
type Engine interface {
	SubmitBatch(ctx context.Context, units []engine.SubmissionUnit) ([]engine.Token, error)
	Await(ctx context.Context, tokens []engine.Token) ([]engine.ExecutionResult, error)
}

// SourceStore archives submitted source code.
type SourceStore interface {
	Put(ctx context.Context, problemID, userID, executionID, source string) (string, error)
	Get(ctx context.Context, key string) (string, error)
}

// RateLimitConfig holds throttling configuration.
type RateLimitConfig struct {
	UserMax int           `yaml:"userMax"`
	IPMax   int           `yaml:"ipMax"`
	Window  time.Duration `yaml:"window"`
}

// TimeoutConfig holds timeout settings for collaborator calls.
type TimeoutConfig struct {
	Problem time.Duration `yaml:"problem"`
	Engine  time.Duration `yaml:"engine"`
	Cache   time.Duration `yaml:"cache"`
	DB      time.Duration `yaml:"db"`
	Storage time.Duration `yaml:"storage"`
	MQ      time.Duration `yaml:"mq"`
}

// Config holds execute service dependencies and settings.
type Config struct {
	Problems repository.ProblemRepository
	Solved   repository.SolvedRepository
	Reports  repository.ReportRepository
	Events   repository.SolvedEventPublisher
	Archive  SourceStore
	Engine   Engine
	Cache    cache.Cache

	Limits              model.ModeLimits
	MaxCodeBytes        int
	MaxCustomInputs     int
	MaxCustomInputBytes int
	RateLimit           RateLimitConfig
	Timeouts            TimeoutConfig
}

// ExecuteService judges one piece of user code against a problem.
type ExecuteService struct {
	problems repository.ProblemRepository
	solved   repository.SolvedRepository
	reports  repository.ReportRepository
	events   repository.SolvedEventPublisher
	archive  SourceStore
	engine   Engine
	cache    cache.Cache

	limits              model.ModeLimits
	maxCodeBytes        int
	maxCustomInputs     int
	maxCustomInputBytes int
	rateLimit           RateLimitConfig
	timeouts            TimeoutConfig
	now                 func() time.Time
}

// ExecuteInput describes one execute call.
type ExecuteInput struct {
	UserID    string
	ClientIP  string
	ProblemID string
	Language  string
	Mode      string
	Code      string
	Inputs    []model.TestCase
}

// ExecuteResult is either a compile failure ({Error, Details}) or per-case
// results with Success set.
type ExecuteResult = model.ExecutionReport

// NewExecuteService creates an execute service. Events, Archive and Cache are optional.
func NewExecuteService(cfg Config) (*ExecuteService, error) {
	if cfg.Problems == nil {
		return nil, fmt.Errorf("problem repository is required")
	}
	if cfg.Solved == nil {
		return nil, fmt.Errorf("solved repository is required")
	}
	if cfg.Reports == nil {
		return nil, fmt.Errorf("report repository is required")
	}
	if cfg.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if cfg.MaxCodeBytes <= 0 {
		cfg.MaxCodeBytes = defaultMaxCodeBytes
	}
	if cfg.MaxCustomInputs <= 0 {
		cfg.MaxCustomInputs = defaultMaxCustomInputs
	}
	if cfg.MaxCustomInputBytes <= 0 {
		cfg.MaxCustomInputBytes = defaultMaxCustomInputBytes
	}
	cfg.Limits.ApplyDefaults()
	return &ExecuteService{
		problems:            cfg.Problems,
		solved:              cfg.Solved,
		reports:             cfg.Reports,
		events:              cfg.Events,
		archive:             cfg.Archive,
		engine:              cfg.Engine,
		cache:               cfg.Cache,
		limits:              cfg.Limits,
		maxCodeBytes:        cfg.MaxCodeBytes,
		maxCustomInputs:     cfg.MaxCustomInputs,
		maxCustomInputBytes: cfg.MaxCustomInputBytes,
		rateLimit:           cfg.RateLimit,
		timeouts:            cfg.Timeouts,
		now:                 time.Now,
	}, nil
}

// Execute validates the request, judges the selected cases on the engine and
// returns the report. A compile failure is a report, not an error. Engine
// failures, including results still pending after the poll budget, are errors.
func (s *ExecuteService) Execute(ctx context.Context, input ExecuteInput) (*ExecuteResult, error) {
	lang, mode, err := s.validateInput(input)
	if err != nil {
		return nil, err
	}
	if err := s.checkRateLimit(ctx, input.UserID, input.ClientIP); err != nil {
		return nil, err
	}

	problem, err := s.loadProblem(ctx, input.ProblemID)
	if err != nil {
		return nil, err
	}
	cases, err := selectCases(problem, mode, input.Inputs)
	if err != nil {
		return nil, err
	}

	program, err := harness.Synthesize(lang, input.Code, harness.DetectValueHint(problem.Snippet(string(lang))))
	if err != nil {
		return nil, err
	}

	report := &ExecuteResult{
		ExecutionID: uuid.NewString(),
		UserID:      input.UserID,
		ProblemID:   problem.ID,
		Language:    string(lang),
		Mode:        mode,
		CreatedAt:   s.now().Unix(),
	}
	logger.Info(ctx, "execution started",
		zap.String("execution_id", report.ExecutionID),
		zap.String("problem_id", problem.ID),
		zap.String("mode", string(mode)),
		zap.String("language", string(lang)),
		zap.String("function", program.Context.FunctionName),
		zap.Int("cases", len(cases)),
	)

	results, err := s.judge(ctx, report.ExecutionID, buildUnits(program, cases, s.limits.For(mode)))
	if err != nil {
		s.recordFailure(ctx, report, err)
		return nil, err
	}

	judged := verdict.Normalize(cases, results)
	if judged.Compile != nil {
		report.Error = appErr.CompilationError.Message()
		report.Details = judged.Compile.Details
	} else {
		report.Success = true
		report.Results = judged.Verdicts
		report.AllPassed = judged.AllPassed
	}

	if mode == model.ModeSubmit {
		report.SourceKey = s.archiveSource(ctx, report, input.Code)
		if report.AllPassed {
			s.markSolved(ctx, report)
		}
	}
	s.persistReport(ctx, *report)

	logger.Info(ctx, "execution finished",
		zap.String("execution_id", report.ExecutionID),
		zap.Bool("success", report.Success),
		zap.Bool("all_passed", report.AllPassed),
	)
	return report, nil
}

// GetReport returns a stored execution report.
func (s *ExecuteService) GetReport(ctx context.Context, executionID string) (*ExecuteResult, error) {
	if strings.TrimSpace(executionID) == "" {
		return nil, appErr.ValidationError("execution_id", "required")
	}
	ctxCache := withTimeout(ctx, s.timeouts.Cache)
	defer ctxCache.cancel()
	report, err := s.reports.Get(ctxCache.ctx, executionID)
	if err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return nil, appErr.New(appErr.ExecutionNotFound).WithMessage("execution not found")
		}
		return nil, appErr.Wrapf(err, appErr.CacheError, "get execution report failed")
	}
	return &report, nil
}

// GetSource returns the archived source of a SUBMIT execution.
func (s *ExecuteService) GetSource(ctx context.Context, executionID string) (string, error) {
	report, err := s.GetReport(ctx, executionID)
	if err != nil {
		return "", err
	}
	if s.archive == nil || report.SourceKey == "" {
		return "", appErr.New(appErr.NotFound).WithMessage("source is not archived")
	}
	ctxStorage := withTimeout(ctx, s.timeouts.Storage)
	defer ctxStorage.cancel()
	source, err := s.archive.Get(ctxStorage.ctx, report.SourceKey)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.StorageError, "read archived source failed")
	}
	return source, nil
}

// Leaderboard returns users ranked by solved problem count.
func (s *ExecuteService) Leaderboard(ctx context.Context, limit int) ([]repository.LeaderboardEntry, error) {
	ctxCache := withTimeout(ctx, s.timeouts.Cache)
	defer ctxCache.cancel()
	entries, err := s.solved.Leaderboard(ctxCache.ctx, limit)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.RankingNotAvailable, "load leaderboard failed")
	}
	return entries, nil
}

func (s *ExecuteService) validateInput(input ExecuteInput) (harness.Language, model.Mode, error) {
	if strings.TrimSpace(input.ProblemID) == "" {
		return "", "", appErr.ValidationError("problem_id", "required")
	}
	if strings.TrimSpace(input.Code) == "" {
		return "", "", appErr.ValidationError("code", "required")
	}
	if len(input.Code) > s.maxCodeBytes {
		return "", "", appErr.New(appErr.CodeTooLarge).WithMessage("source code too large")
	}
	lang, err := harness.ParseLanguage(input.Language)
	if err != nil {
		return "", "", err
	}
	mode, err := model.ParseMode(input.Mode)
	if err != nil {
		return "", "", err
	}
	if mode == model.ModeSubmit && strings.TrimSpace(input.UserID) == "" {
		return "", "", appErr.ValidationError("user_id", "required")
	}
	if mode == model.ModeRun {
		if len(input.Inputs) > s.maxCustomInputs {
			return "", "", appErr.New(appErr.TooManyCustomInputs).WithDetail("max", s.maxCustomInputs)
		}
		for _, in := range input.Inputs {
			if len(in.Input)+len(in.Output) > s.maxCustomInputBytes {
				return "", "", appErr.New(appErr.CustomInputTooLarge).WithDetail("max_bytes", s.maxCustomInputBytes)
			}
		}
	}
	return lang, mode, nil
}

func (s *ExecuteService) loadProblem(ctx context.Context, problemID string) (*model.Problem, error) {
	ctxProblem := withTimeout(ctx, s.timeouts.Problem)
	defer ctxProblem.cancel()
	problem, err := s.problems.GetProblem(ctxProblem.ctx, problemID)
	if err != nil {
		if errors.Is(err, repository.ErrProblemNotFound) {
			return nil, appErr.New(appErr.ProblemNotFound).WithDetail("problem_id", problemID)
		}
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "load problem failed")
	}
	return problem, nil
}

// selectCases picks caller inputs or the first stored case for RUN, and every
// stored case for SUBMIT.
func selectCases(problem *model.Problem, mode model.Mode, inputs []model.TestCase) ([]model.TestCase, error) {
	if mode == model.ModeRun && len(inputs) > 0 {
		return inputs, nil
	}
	if len(problem.TestCases) == 0 {
		return nil, appErr.New(appErr.TestCaseNotFound).WithDetail("problem_id", problem.ID)
	}
	if mode == model.ModeRun {
		return problem.TestCases[:1], nil
	}
	return problem.TestCases, nil
}

func buildUnits(program harness.Program, cases []model.TestCase, limit model.ResourceLimit) []engine.SubmissionUnit {
	units := make([]engine.SubmissionUnit, 0, len(cases))
	for _, tc := range cases {
		units = append(units, engine.SubmissionUnit{
			SourceCode:     program.Source,
			LanguageID:     program.Language.EngineID(),
			Stdin:          tc.Input,
			ExpectedOutput: tc.Output,
			CPUTimeLimit:   limit.CPUTimeSeconds,
			MemoryLimitKB:  limit.MemoryKB,
		})
	}
	return units
}

func (s *ExecuteService) judge(ctx context.Context, executionID string, units []engine.SubmissionUnit) ([]engine.ExecutionResult, error) {
	ctxEngine := withTimeout(ctx, s.timeouts.Engine)
	defer ctxEngine.cancel()
	tokens, err := s.engine.SubmitBatch(ctxEngine.ctx, units)
	if err != nil {
		logger.Error(ctx, "submit batch failed", zap.String("execution_id", executionID), zap.Int("units", len(units)), zap.Error(err))
		return nil, appErr.Wrap(err, appErr.JudgeSystemError)
	}
	results, err := s.engine.Await(ctxEngine.ctx, tokens)
	if err != nil {
		logger.Warn(ctx, "await batch failed", zap.String("execution_id", executionID), zap.Int("tokens", len(tokens)), zap.Error(err))
		return nil, appErr.Wrap(err, appErr.JudgeSystemError)
	}
	return results, nil
}

func (s *ExecuteService) checkRateLimit(ctx context.Context, userID, clientIP string) error {
	if s.cache == nil || s.rateLimit.Window <= 0 || (s.rateLimit.UserMax <= 0 && s.rateLimit.IPMax <= 0) {
		return nil
	}
	ctxCache := withTimeout(ctx, s.timeouts.Cache)
	defer ctxCache.cancel()

	if s.rateLimit.UserMax > 0 && userID != "" {
		if err := s.checkRateCounter(ctxCache.ctx, rateUserKeyPrefix+userID, s.rateLimit.UserMax); err != nil {
			return err
		}
	}
	if s.rateLimit.IPMax > 0 && clientIP != "" {
		if err := s.checkRateCounter(ctxCache.ctx, rateIPKeyPrefix+clientIP, s.rateLimit.IPMax); err != nil {
			return err
		}
	}
	return nil
}

func (s *ExecuteService) checkRateCounter(ctx context.Context, key string, max int) error {
	count, err := s.cache.Incr(ctx, key)
	if err != nil {
		return appErr.Wrapf(err, appErr.CacheError, "rate limit check failed")
	}
	if count == 1 {
		_ = s.cache.Expire(ctx, key, s.rateLimit.Window)
	}
	if int(count) > max {
		return appErr.New(appErr.SubmitTooFrequently).WithMessage("submit too frequently")
	}
	return nil
}

type timeoutCtx struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func withTimeout(ctx context.Context, timeout time.Duration) timeoutCtx {
	if timeout <= 0 {
		return timeoutCtx{ctx: ctx, cancel: func() {}}
	}
	ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
	return timeoutCtx{ctx: ctxTimeout, cancel: cancel}
}
