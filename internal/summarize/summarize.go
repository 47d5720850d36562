// Package summarize turns a stored session into a narrative with an LLM.
// The reconciliation core never depends on it; every number the model sees
// comes from the session.
package summarize

import (
	"context"
	"errors"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/recon-cli/internal/config"
	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/resilience"
	"github.com/sells-group/recon-cli/pkg/anthropic"
)

// ErrDisabled is returned by New when no provider is configured.
var ErrDisabled = errors.New("summarizer disabled")

// Summarizer produces narrative text for a session.
type Summarizer interface {
	Summarize(ctx context.Context, in Input) (string, error)
	Answer(ctx context.Context, question string, in Input) (string, error)
}

// New builds the configured backend, rate limited and guarded by retries
// and a circuit breaker.
func New(ctx context.Context, cfg *config.Config) (Summarizer, error) {
	var (
		s   Summarizer
		err error
	)
	maxTokens := cfg.Summarizer.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	switch cfg.Summarizer.Provider {
	case "", "none":
		return nil, ErrDisabled
	case "anthropic":
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("summarize: anthropic.key is required")
		}
		// Retries happen in Guarded so they share the breaker and limiter.
		client := anthropic.NewClient(cfg.Anthropic.Key, option.WithMaxRetries(0))
		s = NewAnthropic(client, cfg.Anthropic.Model, maxTokens)
	case "gemini":
		if cfg.Gemini.Key == "" {
			return nil, eris.New("summarize: gemini.key is required")
		}
		s, err = NewGemini(ctx, cfg.Gemini.Key, cfg.Gemini.Model, maxTokens)
		if err != nil {
			return nil, err
		}
	default:
		return nil, eris.Errorf("summarize: unknown provider %q", cfg.Summarizer.Provider)
	}
	zap.L().Info("summarize: backend ready", zap.String("provider", cfg.Summarizer.Provider))

	policy := resilience.DefaultPolicy()
	if cfg.Summarizer.MaxAttempts > 0 {
		policy.Attempts = cfg.Summarizer.MaxAttempts
	}
	breaker := resilience.NewBreaker(cfg.Summarizer.Provider, cfg.Summarizer.BreakerThreshold,
		time.Duration(cfg.Summarizer.BreakerCooldownSeconds)*time.Second)
	return NewGuarded(NewLimited(s, cfg.Summarizer.RequestsPerMinute), policy, breaker), nil
}

// Limited throttles calls to the wrapped Summarizer.
type Limited struct {
	next    Summarizer
	limiter *rate.Limiter
}

// NewLimited allows perMinute calls per minute with a burst of one.
// A non-positive rate disables throttling.
func NewLimited(next Summarizer, perMinute int) *Limited {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	return &Limited{next: next, limiter: rate.NewLimiter(limit, 1)}
}

func (l *Limited) Summarize(ctx context.Context, in Input) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "summarize: rate limit")
	}
	return l.next.Summarize(ctx, in)
}

func (l *Limited) Answer(ctx context.Context, question string, in Input) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "summarize: rate limit")
	}
	return l.next.Answer(ctx, question, in)
}

// InsightCache stores one summary per session.
type InsightCache interface {
	GetInsight(ctx context.Context, id string) (string, error)
	SetInsight(ctx context.Context, id, text string) error
}

// Insight returns the cached summary for the session, generating and
// caching it on first use. refresh forces regeneration.
func Insight(ctx context.Context, cache InsightCache, s Summarizer, sess *model.Session, refresh bool) (string, error) {
	if !refresh {
		text, err := cache.GetInsight(ctx, sess.ID)
		if err != nil {
			return "", err
		}
		if text != "" {
			return text, nil
		}
	}
	text, err := s.Summarize(ctx, BuildInput(sess))
	if err != nil {
		return "", eris.Wrapf(err, "summarize: session %s", sess.ID)
	}
	if err := cache.SetInsight(ctx, sess.ID, text); err != nil {
		return "", err
	}
	return text, nil
}
