package summarize

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/recon-cli/internal/resilience"
	"github.com/sells-group/recon-cli/pkg/anthropic"
)

// AnthropicSummarizer calls Claude through pkg/anthropic.
type AnthropicSummarizer struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropic wraps an Anthropic client.
func NewAnthropic(client anthropic.Client, model string, maxTokens int) *AnthropicSummarizer {
	return &AnthropicSummarizer{client: client, model: model, maxTokens: int64(maxTokens)}
}

func (a *AnthropicSummarizer) Summarize(ctx context.Context, in Input) (string, error) {
	return a.send(ctx, "summary", nil, Prompt(in))
}

// Answer puts the session digest in a cached system block so repeated
// questions about one session reuse it.
func (a *AnthropicSummarizer) Answer(ctx context.Context, question string, in Input) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", eris.New("summarize: empty question")
	}
	system := anthropic.BuildCachedSystemBlocks(Context(in))
	return a.send(ctx, "chat", system, "User question: "+strings.TrimSpace(question))
}

func (a *AnthropicSummarizer) send(ctx context.Context, purpose string, system []anthropic.SystemBlock, prompt string) (string, error) {
	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System:    system,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		wrapped := eris.Wrapf(err, "summarize: anthropic %s", purpose)
		var apiErr *anthropic.APIError
		if errors.As(err, &apiErr) {
			return "", &resilience.StatusError{Code: apiErr.StatusCode, Err: wrapped}
		}
		return "", wrapped
	}
	resp.Usage.LogCost(a.model, purpose)
	text := resp.Text()
	if text == "" {
		return "", eris.Errorf("summarize: anthropic %s returned no text", purpose)
	}
	return text, nil
}
