package summarize

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// generator is the slice of *genai.Models the summarizer uses.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiSummarizer calls Google Gemini through the genai SDK.
type GeminiSummarizer struct {
	models    generator
	model     string
	maxTokens int32
}

// NewGemini creates a Gemini API client.
func NewGemini(ctx context.Context, apiKey, model string, maxTokens int) (*GeminiSummarizer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, eris.Wrap(err, "summarize: create gemini client")
	}
	return &GeminiSummarizer{models: client.Models, model: model, maxTokens: int32(maxTokens)}, nil
}

func (g *GeminiSummarizer) Summarize(ctx context.Context, in Input) (string, error) {
	return g.generate(ctx, "summary", Prompt(in))
}

func (g *GeminiSummarizer) Answer(ctx context.Context, question string, in Input) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", eris.New("summarize: empty question")
	}
	return g.generate(ctx, "chat", QuestionPrompt(question, in))
}

func (g *GeminiSummarizer) generate(ctx context.Context, purpose, prompt string) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		MaxOutputTokens: g.maxTokens,
	})
	if err != nil {
		return "", eris.Wrapf(err, "summarize: gemini %s", purpose)
	}
	if resp.UsageMetadata != nil {
		zap.L().Info("summarize: gemini usage",
			zap.String("model", g.model),
			zap.String("purpose", purpose),
			zap.Int32("input_tokens", resp.UsageMetadata.PromptTokenCount),
			zap.Int32("output_tokens", resp.UsageMetadata.CandidatesTokenCount),
		)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", eris.Errorf("summarize: gemini %s returned no text", purpose)
	}
	return text, nil
}
