package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"codejudge/internal/judge/engine"
	"codejudge/internal/judge/model"
	"codejudge/internal/judge/repository"
)

type fakeProblems struct {
	problems map[string]*model.Problem
	err      error
}

func (f *fakeProblems) GetProblem(ctx context.Context, problemID string) (*model.Problem, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.problems[problemID]
	if !ok {
		return nil, repository.ErrProblemNotFound
	}
	copied := *p
	return &copied, nil
}

type fakeSolved struct {
	mu      sync.Mutex
	rows    map[string]bool
	calls   int
	created int
	err     error
}

func newFakeSolved() *fakeSolved {
	return &fakeSolved{rows: map[string]bool{}}
}

func (f *fakeSolved) MarkSolved(ctx context.Context, userID, problemID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	key := userID + "/" + problemID
	if f.rows[key] {
		return false, nil
	}
	f.rows[key] = true
	f.created++
	return true, nil
}

func (f *fakeSolved) Leaderboard(ctx context.Context, limit int) ([]repository.LeaderboardEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []repository.LeaderboardEntry{{Rank: 1, UserID: "u1", Solved: f.created}}, nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []model.SolvedEvent
}

func (f *fakeEvents) PublishSolved(ctx context.Context, event model.SolvedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

type fakeArchive struct {
	mu      sync.Mutex
	objects map[string]string
	err     error
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{objects: map[string]string{}}
}

func (f *fakeArchive) Put(ctx context.Context, problemID, userID, executionID, source string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	key := fmt.Sprintf("sources/%s/%s/%s.zst", problemID, userID, executionID)
	f.objects[key] = source
	return key, nil
}

func (f *fakeArchive) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	source, ok := f.objects[key]
	if !ok {
		return "", errors.New("no such key")
	}
	return source, nil
}

// fakeEngine answers every unit through respond. When poller is set, Await
// is delegated to it so real polling behavior is exercised.
type fakeEngine struct {
	mu      sync.Mutex
	units   []engine.SubmissionUnit
	byToken map[engine.Token]engine.ExecutionResult
	respond func(engine.SubmissionUnit) engine.ExecutionResult
	submits int
	poller  *engine.Poller
}

func newFakeEngine(respond func(engine.SubmissionUnit) engine.ExecutionResult) *fakeEngine {
	return &fakeEngine{byToken: map[engine.Token]engine.ExecutionResult{}, respond: respond}
}

func (f *fakeEngine) SubmitBatch(ctx context.Context, units []engine.SubmissionUnit) ([]engine.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	tokens := make([]engine.Token, 0, len(units))
	for _, u := range units {
		token := engine.Token(fmt.Sprintf("t%d", len(f.units)))
		f.units = append(f.units, u)
		result := f.respond(u)
		result.Token = token
		f.byToken[token] = result
		tokens = append(tokens, token)
	}
	return tokens, nil
}

func (f *fakeEngine) FetchBatch(ctx context.Context, tokens []engine.Token) ([]engine.ExecutionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]engine.ExecutionResult, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, f.byToken[t])
	}
	return out, nil
}

func (f *fakeEngine) Await(ctx context.Context, tokens []engine.Token) ([]engine.ExecutionResult, error) {
	if f.poller != nil {
		return f.poller.Await(ctx, tokens)
	}
	return f.FetchBatch(ctx, tokens)
}

func (f *fakeEngine) submitted() []engine.SubmissionUnit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]engine.SubmissionUnit(nil), f.units...)
}

// echoExpected runs every unit cleanly and prints its expected output.
func echoExpected(u engine.SubmissionUnit) engine.ExecutionResult {
	return engine.ExecutionResult{Status: engine.NewStatus(engine.StatusAccepted), Stdout: u.ExpectedOutput + "\n"}
}

func printing(stdout string) func(engine.SubmissionUnit) engine.ExecutionResult {
	return func(engine.SubmissionUnit) engine.ExecutionResult {
		return engine.ExecutionResult{Status: engine.NewStatus(engine.StatusWrongAnswer), Stdout: stdout}
	}
}
