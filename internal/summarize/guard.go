package summarize

import (
	"context"

	"github.com/sells-group/recon-cli/internal/resilience"
)

// Guarded retries transient provider failures and stops calling a provider
// that keeps failing.
type Guarded struct {
	next    Summarizer
	policy  resilience.Policy
	breaker *resilience.Breaker
}

// NewGuarded wraps next with the given retry policy and breaker.
func NewGuarded(next Summarizer, policy resilience.Policy, breaker *resilience.Breaker) *Guarded {
	return &Guarded{next: next, policy: policy, breaker: breaker}
}

func (g *Guarded) Summarize(ctx context.Context, in Input) (string, error) {
	return resilience.Call(ctx, g.breaker, func(ctx context.Context) (string, error) {
		return resilience.Retry(ctx, g.policy, "summarize", func(ctx context.Context) (string, error) {
			return g.next.Summarize(ctx, in)
		})
	})
}

func (g *Guarded) Answer(ctx context.Context, question string, in Input) (string, error) {
	return resilience.Call(ctx, g.breaker, func(ctx context.Context) (string, error) {
		return resilience.Retry(ctx, g.policy, "answer", func(ctx context.Context) (string, error) {
			return g.next.Answer(ctx, question, in)
		})
	})
}
