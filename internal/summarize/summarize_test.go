package summarize

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/sells-group/recon-cli/internal/config"
	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/resilience"
	"github.com/sells-group/recon-cli/pkg/anthropic"
)

type mockAnthropic struct {
	mock.Mock
}

func (m *mockAnthropic) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	args := m.Called(ctx, model, contents, cfg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*genai.GenerateContentResponse), args.Error(1)
}

type mockSummarizer struct {
	mock.Mock
}

func (m *mockSummarizer) Summarize(ctx context.Context, in Input) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

func (m *mockSummarizer) Answer(ctx context.Context, q string, in Input) (string, error) {
	args := m.Called(ctx, q, in)
	return args.String(0), args.Error(1)
}

type memCache struct {
	insights map[string]string
}

func (c *memCache) GetInsight(_ context.Context, id string) (string, error) {
	text, ok := c.insights[id]
	if !ok {
		return "", model.ErrSessionNotFound
	}
	return text, nil
}

func (c *memCache) SetInsight(_ context.Context, id, text string) error {
	c.insights[id] = text
	return nil
}

func sampleSession() *model.Session {
	segs := []model.SegmentResult{
		{Name: "overall", Summary: model.SegmentSummary{SegmentName: "overall", TotalRows: 1, PassingRows: 1, Percent: 100}},
		{Name: "by_campaign", Summary: model.SegmentSummary{SegmentName: "by_campaign", TotalRows: 3, PassingRows: 2, Percent: 200.0 / 3}},
	}
	return &model.Session{
		ID:              "s-1",
		GoldFile:        "gold.csv",
		GrowthFile:      "growth.csv",
		Threshold:       3,
		Segments:        segs,
		SkippedSegments: []string{"by_device"},
		Summary:         model.SessionSummary{OverallMatchRate: 75, PassingSegments: 1, TotalSegments: 2},
		Findings: []model.Finding{
			{Kind: model.KindMissingEntities, Confidence: 0.82, Description: "1 of 3 campaigns exist in growth only"},
		},
		Fixes: []model.FixSuggestion{
			{RootCauseKind: model.KindMissingEntities, Narrative: "Align campaign lists.", PreventionNote: "Enforce naming."},
		},
	}
}

func TestBuildInput(t *testing.T) {
	in := BuildInput(sampleSession())

	assert.Equal(t, "s-1", in.SessionID)
	assert.Equal(t, 75.0, in.OverallMatchRate)
	require.Len(t, in.Segments, 2)
	assert.Equal(t, 66.67, in.Segments[1].Percent)
	require.Len(t, in.Findings, 1)
	assert.Equal(t, "Align campaign lists.", in.Findings[0].Fix)
	assert.Equal(t, "Enforce naming.", in.Findings[0].Prevention)
	assert.Equal(t, []string{"by_device"}, in.Skipped)
}

func TestPrompt(t *testing.T) {
	in := BuildInput(sampleSession())
	p := Prompt(in)

	assert.Contains(t, p, "Overall match rate: 75.00%")
	assert.Contains(t, p, "Segments passing: 1/2")
	assert.Contains(t, p, "by_campaign: 66.67% (2/3 rows)")
	assert.Contains(t, p, "Not compared (unmapped dimensions): by_device")
	assert.Contains(t, p, "1. missing_entities (confidence 82%)")
	assert.Contains(t, p, "Suggested fix: Align campaign lists.")
	assert.Equal(t, p, Prompt(BuildInput(sampleSession())), "prompt is deterministic")

	empty := Prompt(Input{})
	assert.Contains(t, empty, "ROOT CAUSES IDENTIFIED:\n- none")
}

func TestQuestionPrompt(t *testing.T) {
	p := QuestionPrompt("  Which campaign is missing?  ", BuildInput(sampleSession()))
	assert.Contains(t, p, `"session_id": "s-1"`)
	assert.Contains(t, p, "User question: Which campaign is missing?\n")
}

func TestAnthropicSummarizer(t *testing.T) {
	client := new(mockAnthropic)
	s := NewAnthropic(client, "claude-sonnet-4-5-20250929", 512)
	in := BuildInput(sampleSession())

	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.MaxTokens == 512 && len(req.System) == 0 && req.Messages[0].Content == Prompt(in)
	})).Return(&anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: "All good."}},
	}, nil).Once()

	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return len(req.System) == 1 && req.System[0].CacheControl != nil &&
			req.Messages[0].Content == "User question: why?"
	})).Return(&anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: "Because."}},
	}, nil).Once()

	text, err := s.Summarize(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "All good.", text)

	text, err = s.Answer(context.Background(), "why?", in)
	require.NoError(t, err)
	assert.Equal(t, "Because.", text)

	_, err = s.Answer(context.Background(), "   ", in)
	assert.Error(t, err)
	client.AssertExpectations(t)
}

func TestAnthropicSummarizer_Errors(t *testing.T) {
	client := new(mockAnthropic)
	s := NewAnthropic(client, "m", 16)

	client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("overloaded")).Once()
	_, err := s.Summarize(context.Background(), Input{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded")

	client.On("CreateMessage", mock.Anything, mock.Anything).Return(&anthropic.MessageResponse{}, nil).Once()
	_, err = s.Summarize(context.Background(), Input{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no text")

	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, &anthropic.APIError{StatusCode: 529, Err: errors.New("overloaded_error")}).Once()
	_, err = s.Summarize(context.Background(), Input{})
	var se *resilience.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 529, se.Code)
	assert.True(t, resilience.Transient(err))
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}},
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{PromptTokenCount: 100, CandidatesTokenCount: 20},
	}
}

func TestGeminiSummarizer(t *testing.T) {
	gen := new(mockGenerator)
	g := &GeminiSummarizer{models: gen, model: "gemini-2.5-flash-lite", maxTokens: 256}
	in := BuildInput(sampleSession())

	gen.On("GenerateContent", mock.Anything, "gemini-2.5-flash-lite", genai.Text(Prompt(in)),
		&genai.GenerateContentConfig{MaxOutputTokens: 256}).
		Return(textResponse(" Summary text \n"), nil).Once()
	gen.On("GenerateContent", mock.Anything, "gemini-2.5-flash-lite", genai.Text(QuestionPrompt("why?", in)), mock.Anything).
		Return(textResponse("Answer text"), nil).Once()

	text, err := g.Summarize(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "Summary text", text)

	text, err = g.Answer(context.Background(), "why?", in)
	require.NoError(t, err)
	assert.Equal(t, "Answer text", text)
	gen.AssertExpectations(t)
}

func TestGeminiSummarizer_Error(t *testing.T) {
	gen := new(mockGenerator)
	g := &GeminiSummarizer{models: gen, model: "m"}

	gen.On("GenerateContent", mock.Anything, "m", mock.Anything, mock.Anything).Return(nil, errors.New("quota")).Once()
	_, err := g.Summarize(context.Background(), Input{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini summary")
}

func TestLimited(t *testing.T) {
	next := new(mockSummarizer)
	next.On("Summarize", mock.Anything, mock.Anything).Return("ok", nil)

	// One call per hour: the first passes on the burst, the second waits.
	l := NewLimited(next, 1)
	l.limiter.SetLimit(1.0 / 3600)

	text, err := l.Summarize(context.Background(), Input{})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Summarize(ctx, Input{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
	next.AssertNumberOfCalls(t, "Summarize", 1)
}

func TestLimited_Unlimited(t *testing.T) {
	next := new(mockSummarizer)
	next.On("Answer", mock.Anything, "q", mock.Anything).Return("a", nil)

	l := NewLimited(next, 0)
	for i := 0; i < 5; i++ {
		text, err := l.Answer(context.Background(), "q", Input{})
		require.NoError(t, err)
		assert.Equal(t, "a", text)
	}
}

func TestInsight_CachesFirstResult(t *testing.T) {
	next := new(mockSummarizer)
	next.On("Summarize", mock.Anything, mock.Anything).Return("fresh", nil).Once()
	cache := &memCache{insights: map[string]string{"s-1": ""}}
	sess := sampleSession()

	text, err := Insight(context.Background(), cache, next, sess, false)
	require.NoError(t, err)
	assert.Equal(t, "fresh", text)
	assert.Equal(t, "fresh", cache.insights["s-1"])

	text, err = Insight(context.Background(), cache, next, sess, false)
	require.NoError(t, err)
	assert.Equal(t, "fresh", text)
	next.AssertNumberOfCalls(t, "Summarize", 1)
}

func TestInsight_Refresh(t *testing.T) {
	next := new(mockSummarizer)
	next.On("Summarize", mock.Anything, mock.Anything).Return("second", nil).Once()
	cache := &memCache{insights: map[string]string{"s-1": "first"}}

	text, err := Insight(context.Background(), cache, next, sampleSession(), true)
	require.NoError(t, err)
	assert.Equal(t, "second", text)
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, &config.Config{Summarizer: config.SummarizerConfig{Provider: "none"}})
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = New(ctx, &config.Config{Summarizer: config.SummarizerConfig{Provider: "anthropic"}})
	assert.Error(t, err)

	_, err = New(ctx, &config.Config{Summarizer: config.SummarizerConfig{Provider: "openai"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")

	s, err := New(ctx, &config.Config{
		Summarizer: config.SummarizerConfig{Provider: "anthropic", RequestsPerMinute: 30},
		Anthropic:  config.AnthropicConfig{Key: "sk-test", Model: "claude-sonnet-4-5-20250929"},
	})
	require.NoError(t, err)
	require.IsType(t, &Guarded{}, s)
	assert.IsType(t, &Limited{}, s.(*Guarded).next)
}

func fastPolicy() resilience.Policy {
	return resilience.Policy{Attempts: 3, Base: time.Millisecond, Max: time.Millisecond}
}

func TestGuarded_RetriesTransient(t *testing.T) {
	next := new(mockSummarizer)
	next.On("Summarize", mock.Anything, mock.Anything).
		Return("", &resilience.StatusError{Code: 429, Err: errors.New("rate limited")}).Once()
	next.On("Summarize", mock.Anything, mock.Anything).Return("ok", nil).Once()

	g := NewGuarded(next, fastPolicy(), resilience.NewBreaker("test", 5, time.Minute))
	text, err := g.Summarize(context.Background(), Input{})

	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	next.AssertNumberOfCalls(t, "Summarize", 2)
}

func TestGuarded_PermanentNotRetried(t *testing.T) {
	next := new(mockSummarizer)
	next.On("Answer", mock.Anything, "q", mock.Anything).Return("", errors.New("invalid request")).Once()

	g := NewGuarded(next, fastPolicy(), resilience.NewBreaker("test", 1, time.Minute))
	_, err := g.Answer(context.Background(), "q", Input{})

	require.Error(t, err)
	next.AssertNumberOfCalls(t, "Answer", 1)
}

func TestGuarded_BreakerOpens(t *testing.T) {
	next := new(mockSummarizer)
	next.On("Summarize", mock.Anything, mock.Anything).
		Return("", &resilience.StatusError{Code: 503, Err: errors.New("unavailable")})

	g := NewGuarded(next, fastPolicy(), resilience.NewBreaker("test", 1, time.Minute))

	_, err := g.Summarize(context.Background(), Input{})
	require.Error(t, err)
	next.AssertNumberOfCalls(t, "Summarize", 3)

	_, err = g.Summarize(context.Background(), Input{})
	assert.ErrorIs(t, err, resilience.ErrOpen)
	next.AssertNumberOfCalls(t, "Summarize", 3)
}
