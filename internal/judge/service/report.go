package service

import (
	"context"

	"codejudge/internal/judge/model"
	appErr "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

func (s *ExecuteService) persistReport(ctx context.Context, report model.ExecutionReport) {
	ctxCache := withTimeout(ctx, s.timeouts.Cache)
	defer ctxCache.cancel()
	if err := s.reports.Save(ctxCache.ctx, report); err != nil {
		logger.Warn(ctx, "save execution report failed", zap.String("execution_id", report.ExecutionID), zap.Error(err))
	}
}

// recordFailure keeps a failed report so the execution id stays resolvable.
func (s *ExecuteService) recordFailure(ctx context.Context, report *model.ExecutionReport, err error) {
	failed := *report
	failed.Success = false
	failed.Error = appErr.GetCode(err).Message()
	failed.Details = err.Error()
	s.persistReport(context.WithoutCancel(ctx), failed)
}

// archiveSource returns the object key, or "" when archiving is off or failed.
func (s *ExecuteService) archiveSource(ctx context.Context, report *model.ExecutionReport, source string) string {
	if s.archive == nil {
		return ""
	}
	ctxStorage := withTimeout(ctx, s.timeouts.Storage)
	defer ctxStorage.cancel()
	key, err := s.archive.Put(ctxStorage.ctx, report.ProblemID, report.UserID, report.ExecutionID, source)
	if err != nil {
		logger.Warn(ctx, "archive source failed", zap.String("execution_id", report.ExecutionID), zap.Error(err))
		return ""
	}
	return key
}

// markSolved records the first full pass of a user on a problem. Failures are
// logged and never change the judged report.
func (s *ExecuteService) markSolved(ctx context.Context, report *model.ExecutionReport) {
	ctxDB := withTimeout(ctx, s.timeouts.DB)
	created, err := s.solved.MarkSolved(ctxDB.ctx, report.UserID, report.ProblemID)
	ctxDB.cancel()
	if err != nil {
		logger.Error(ctx, "mark solved failed",
			zap.String("execution_id", report.ExecutionID),
			zap.String("problem_id", report.ProblemID),
			zap.Error(appErr.Wrap(err, appErr.SolvedRecordFailed)),
		)
		return
	}
	if !created {
		return
	}
	logger.Info(ctx, "problem marked as solved", zap.String("problem_id", report.ProblemID))
	if s.events == nil {
		return
	}
	event := model.SolvedEvent{
		UserID:      report.UserID,
		ProblemID:   report.ProblemID,
		Language:    report.Language,
		ExecutionID: report.ExecutionID,
		SolvedAt:    s.now().Unix(),
	}
	ctxMQ := withTimeout(ctx, s.timeouts.MQ)
	defer ctxMQ.cancel()
	if err := s.events.PublishSolved(ctxMQ.ctx, event); err != nil {
		logger.Warn(ctx, "publish solved event failed", zap.String("problem_id", report.ProblemID), zap.Error(err))
	}
}
