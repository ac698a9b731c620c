package engine

import (
	"context"
	"fmt"
	"time"

	appErr "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	defaultPollInterval    = time.Second
	defaultMaxPollAttempts = 30
)

// BatchFetcher reads the current state of a set of tokens.
type BatchFetcher interface {
	FetchBatch(ctx context.Context, tokens []Token) ([]ExecutionResult, error)
}

// PollConfig bounds the polling loop.
type PollConfig struct {
	Interval    time.Duration `yaml:"interval"`
	MaxAttempts int           `yaml:"maxAttempts"`
}

// ApplyDefaults fills zero-valued fields.
func (c *PollConfig) ApplyDefaults() {
	if c.Interval <= 0 {
		c.Interval = defaultPollInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxPollAttempts
	}
}

// Poller waits for a batch of tokens to reach terminal states.
type Poller struct {
	fetcher BatchFetcher
	cfg     PollConfig
}

func NewPoller(fetcher BatchFetcher, cfg PollConfig) *Poller {
	cfg.ApplyDefaults()
	return &Poller{fetcher: fetcher, cfg: cfg}
}

// Await polls until every token is terminal and returns results in token
// order. Exhausting the attempt budget returns a JudgePending error, never a
// partial result set. Repeated terminal results for a token are ignored.
func (p *Poller) Await(ctx context.Context, tokens []Token) ([]ExecutionResult, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	done := make(map[Token]ExecutionResult, len(tokens))
	pending := uniqueTokens(tokens)

	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		results, err := p.fetcher.FetchBatch(ctx, pending)
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			if _, seen := done[r.Token]; seen || !r.Status.Terminal() {
				continue
			}
			done[r.Token] = r
		}
		pending = pendingTokens(pending, done)
		if len(pending) == 0 {
			return orderResults(tokens, done), nil
		}
		if attempt == p.cfg.MaxAttempts {
			break
		}
		if err := sleepCtx(ctx, p.cfg.Interval); err != nil {
			return nil, appErr.Wrap(err, appErr.Timeout)
		}
	}

	logger.Warn(ctx, "engine results still pending",
		zap.Int("pending", len(pending)),
		zap.Int("attempts", p.cfg.MaxAttempts),
	)
	return nil, appErr.New(appErr.JudgePending).
		WithMessage(fmt.Sprintf("%d of %d runs still pending after %d polls", len(pending), len(uniqueTokens(tokens)), p.cfg.MaxAttempts)).
		WithDetail("pending", len(pending))
}

func uniqueTokens(tokens []Token) []Token {
	seen := make(map[Token]bool, len(tokens))
	out := make([]Token, 0, len(tokens))
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func pendingTokens(tokens []Token, done map[Token]ExecutionResult) []Token {
	out := tokens[:0:0]
	for _, t := range tokens {
		if _, ok := done[t]; !ok {
			out = append(out, t)
		}
	}
	return out
}

func orderResults(tokens []Token, done map[Token]ExecutionResult) []ExecutionResult {
	out := make([]ExecutionResult, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, done[t])
	}
	return out
}

// Judge runs a batch end to end: submit, then wait for every result.
type Judge struct {
	client *Client
	poller *Poller
}

func NewJudge(client *Client, poll PollConfig) *Judge {
	return &Judge{client: client, poller: NewPoller(client, poll)}
}

func (j *Judge) SubmitBatch(ctx context.Context, units []SubmissionUnit) ([]Token, error) {
	return j.client.SubmitBatch(ctx, units)
}

func (j *Judge) Await(ctx context.Context, tokens []Token) ([]ExecutionResult, error) {
	return j.poller.Await(ctx, tokens)
}
