package server

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/store"
	"github.com/sells-group/recon-cli/internal/summarize"
)

const goldCSV = `date,campaign_name,spend,impressions,clicks
2024-01-01,Alpha,100,1000,10
2024-01-01,Beta,50,500,5
2024-01-02,Alpha,120,1200,12
`

const growthCSV = `Day,Campaign,Cost,Impr.,Clicks
2024-01-01,Alpha,100,1000,10
2024-01-01,Beta,50,500,5
2024-01-02,Alpha,120,1200,12
`

const mappingsJSON = `{
	"date":        {"gold_column": "date",          "growth_column": "Day"},
	"campaign":    {"gold_column": "campaign_name", "growth_column": "Campaign"},
	"cost":        {"gold_column": "spend",         "growth_column": "Cost"},
	"impressions": {"gold_column": "impressions",   "growth_column": "Impr."},
	"clicks":      {"gold_column": "clicks",        "growth_column": "Clicks"}
}`

type mockSummarizer struct {
	mock.Mock
}

func (m *mockSummarizer) Summarize(ctx context.Context, in summarize.Input) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

func (m *mockSummarizer) Answer(ctx context.Context, question string, in summarize.Input) (string, error) {
	args := m.Called(ctx, question, in)
	return args.String(0), args.Error(1)
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestServer(t *testing.T, sum summarize.Summarizer) (*Server, store.Store) {
	t.Helper()
	st := newTestStore(t)
	return New(st, sum, DefaultOptions()), st
}

type part struct {
	field    string
	filename string
	content  string
}

func multipartRequest(t *testing.T, path string, parts []part, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		fw, err := mw.CreateFormFile(p.field, p.filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(p.content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func bothFiles() []part {
	return []part{
		{field: goldField, filename: "gold.csv", content: goldCSV},
		{field: growthField, filename: "growth.csv", content: growthCSV},
	}
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

// validated posts the fixtures and returns the new session ID.
func validated(t *testing.T, h http.Handler) string {
	t.Helper()
	rr := serve(h, multipartRequest(t, "/validate", bothFiles(), map[string]string{"mappings": mappingsJSON}))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decode[validateResponse](t, rr)
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rr := serve(srv.Handler(), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, "ok", decode[map[string]string](t, rr)["status"])
}

func TestPreviewColumns(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rr := serve(srv.Handler(), multipartRequest(t, "/preview-columns", bothFiles(), nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var body struct {
		GoldColumns       []model.ColumnDescriptor `json:"gold_columns"`
		GrowthColumns     []model.ColumnDescriptor `json:"growth_columns"`
		SuggestedMappings []json.RawMessage        `json:"suggested_mappings"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Len(t, body.GoldColumns, 5)
	assert.Len(t, body.GrowthColumns, 5)
	assert.NotEmpty(t, body.SuggestedMappings)
}

func TestPreviewColumns_MissingFile(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rr := serve(srv.Handler(), multipartRequest(t, "/preview-columns", bothFiles()[:1], nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decode[errorBody](t, rr).Error, "growth_file is required")
}

func TestPreviewColumns_NotMultipart(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/preview-columns", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rr := serve(srv.Handler(), req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPreviewColumns_UnsupportedFormat(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	parts := bothFiles()
	parts[0].filename = "gold.pdf"
	rr := serve(srv.Handler(), multipartRequest(t, "/preview-columns", parts, nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "gold.pdf", decode[errorBody](t, rr).File)
}

func TestPreviewColumns_TooLarge(t *testing.T) {
	st := newTestStore(t)
	opts := DefaultOptions()
	opts.MaxUploadBytes = 64
	srv := New(st, nil, opts)

	rr := serve(srv.Handler(), multipartRequest(t, "/preview-columns", bothFiles(), nil))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestValidate_StoresSession(t *testing.T) {
	srv, st := newTestServer(t, nil)

	rr := serve(srv.Handler(), multipartRequest(t, "/validate", bothFiles(), map[string]string{
		"mappings":  mappingsJSON,
		"threshold": "1.5",
	}))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	resp := decode[validateResponse](t, rr)
	assert.Equal(t, 100.0, resp.Summary.OverallMatchRate)
	assert.Empty(t, resp.Findings)
	assert.NotEmpty(t, resp.SkippedSegments)

	sess, err := st.GetSession(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1.5, sess.Threshold)
	assert.Equal(t, "gold.csv", sess.GoldFile)
	assert.Equal(t, "growth.csv", sess.GrowthFile)
}

func TestValidate_AutoMapping(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rr := serve(srv.Handler(), multipartRequest(t, "/validate", bothFiles(), nil))

	// The matcher's suggestions either resolve the required fields or the
	// request fails as a mapping problem, never as a server error.
	assert.Contains(t, []int{http.StatusOK, http.StatusUnprocessableEntity}, rr.Code, rr.Body.String())
}

func TestValidate_MappingIncomplete(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rr := serve(srv.Handler(), multipartRequest(t, "/validate", bothFiles(), map[string]string{
		"mappings": `{
			"cost":        {"gold_column": "spend",       "growth_column": "Cost"},
			"impressions": {"gold_column": "impressions", "growth_column": "Impr."},
			"clicks":      {"gold_column": "clicks"}
		}`,
	}))

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	body := decode[errorBody](t, rr)
	assert.Equal(t, "clicks", body.Field)
	assert.Contains(t, body.Error, "growth")
}

func TestValidate_UnknownColumn(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rr := serve(srv.Handler(), multipartRequest(t, "/validate", bothFiles(), map[string]string{
		"mappings": `{"cost": {"gold_column": "nope", "growth_column": "Cost"}}`,
	}))

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "cost", decode[errorBody](t, rr).Field)
}

func TestValidate_BadInput(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		want   string
	}{
		{"negative threshold", map[string]string{"threshold": "-1"}, "threshold"},
		{"non-numeric threshold", map[string]string{"threshold": "abc"}, "threshold"},
		{"malformed mappings", map[string]string{"mappings": "{"}, "mappings"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, nil)
			rr := serve(srv.Handler(), multipartRequest(t, "/validate", bothFiles(), tt.fields))
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, decode[errorBody](t, rr).Error, tt.want)
		})
	}
}

func TestValidate_UploadsRemoved(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)
	srv, _ := newTestServer(t, nil)

	validated(t, srv.Handler())

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), "recon-upload-"), "upload dir %s left behind", e.Name())
	}
}

func TestResults_GetListDelete(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()
	id := validated(t, h)

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/results/"+id, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	sess := decode[model.Session](t, rr)
	assert.Equal(t, id, sess.ID)
	assert.NotEmpty(t, sess.Segments)

	rr = serve(h, httptest.NewRequest(http.MethodGet, "/results/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	infos := decode[[]model.SessionInfo](t, rr)
	require.Len(t, infos, 1)
	assert.Equal(t, id, infos[0].ID)

	rr = serve(h, httptest.NewRequest(http.MethodDelete, "/results/"+id, nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = serve(h, httptest.NewRequest(http.MethodGet, "/results/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestResults_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	for _, path := range []string{"/results/missing", "/results/missing/export/csv"} {
		rr := serve(srv.Handler(), httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rr.Code, path)
	}
}

func TestResults_ListBadLimit(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rr := serve(srv.Handler(), httptest.NewRequest(http.MethodGet, "/results/?limit=x", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExportCSV(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()
	id := validated(t, h)

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/results/"+id+"/export/csv", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rr.Header().Get("Content-Disposition"), id)

	records, err := csv.NewReader(rr.Body).ReadAll()
	require.NoError(t, err)
	require.Greater(t, len(records), 1)
	assert.Equal(t, "segment", records[0][0])
	assert.Equal(t, "overall", records[1][0])
}

func TestInsight_Disabled(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()
	id := validated(t, h)

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/results/"+id+"/insight", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	req := httptest.NewRequest(http.MethodPost, "/results/"+id+"/chat", strings.NewReader(`{"question":"why?"}`))
	rr = serve(h, req)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestInsight_GeneratedOnceThenCached(t *testing.T) {
	sum := new(mockSummarizer)
	srv, st := newTestServer(t, sum)
	h := srv.Handler()
	id := validated(t, h)

	sum.On("Summarize", mock.Anything, mock.MatchedBy(func(in summarize.Input) bool {
		return in.SessionID == id
	})).Return("Everything reconciles.", nil).Once()

	for range 2 {
		rr := serve(h, httptest.NewRequest(http.MethodGet, "/results/"+id+"/insight", nil))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, "Everything reconciles.", decode[insightResponse](t, rr).Insight)
	}
	sum.AssertExpectations(t)

	cached, err := st.GetInsight(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Everything reconciles.", cached)
}

func TestInsight_Refresh(t *testing.T) {
	sum := new(mockSummarizer)
	srv, st := newTestServer(t, sum)
	h := srv.Handler()
	id := validated(t, h)
	require.NoError(t, st.SetInsight(context.Background(), id, "stale"))

	sum.On("Summarize", mock.Anything, mock.Anything).Return("fresh", nil).Once()

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/results/"+id+"/insight?refresh=true", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "fresh", decode[insightResponse](t, rr).Insight)
	sum.AssertExpectations(t)
}

func TestInsight_SummarizerError(t *testing.T) {
	sum := new(mockSummarizer)
	srv, _ := newTestServer(t, sum)
	h := srv.Handler()
	id := validated(t, h)

	sum.On("Summarize", mock.Anything, mock.Anything).Return("", assert.AnError)

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/results/"+id+"/insight", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "internal error", decode[errorBody](t, rr).Error)
}

func TestChat(t *testing.T) {
	sum := new(mockSummarizer)
	srv, _ := newTestServer(t, sum)
	h := srv.Handler()
	id := validated(t, h)

	sum.On("Answer", mock.Anything, "Which campaign is off?", mock.Anything).
		Return("None; every campaign matches.", nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/results/"+id+"/chat",
		strings.NewReader(`{"question":"  Which campaign is off?  "}`))
	req.Header.Set("Content-Type", "application/json")
	rr := serve(h, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decode[chatResponse](t, rr)
	assert.Equal(t, id, resp.SessionID)
	assert.Equal(t, "None; every campaign matches.", resp.Answer)
	sum.AssertExpectations(t)
}

func TestChat_BadRequests(t *testing.T) {
	sum := new(mockSummarizer)
	srv, _ := newTestServer(t, sum)
	h := srv.Handler()

	rr := serve(h, httptest.NewRequest(http.MethodPost, "/results/x/chat", strings.NewReader(`not json`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(h, httptest.NewRequest(http.MethodPost, "/results/x/chat", strings.NewReader(`{"question":"  "}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decode[errorBody](t, rr).Error, "question is required")

	rr = serve(h, httptest.NewRequest(http.MethodPost, "/results/missing/chat", strings.NewReader(`{"question":"why"}`)))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	sum.AssertNotCalled(t, "Answer", mock.Anything, mock.Anything, mock.Anything)
}

func TestCORSPreflight(t *testing.T) {
	st := newTestStore(t)
	opts := DefaultOptions()
	opts.AllowedOrigins = []string{"https://dash.example.com"}
	srv := New(st, nil, opts)

	req := httptest.NewRequest(http.MethodOptions, "/validate", nil)
	req.Header.Set("Origin", "https://dash.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := serve(srv.Handler(), req)

	assert.Equal(t, "https://dash.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"request", badRequest("x"), http.StatusBadRequest},
		{"mapping", &model.MappingIncompleteError{Field: model.FieldCost, Sides: []model.Side{model.SideGold}}, http.StatusUnprocessableEntity},
		{"unknown field", &model.UnknownFieldError{Name: "spend"}, http.StatusUnprocessableEntity},
		{"file format", &model.FileFormatError{File: "a.csv", Reason: "empty"}, http.StatusBadRequest},
		{"not found", model.ErrSessionNotFound, http.StatusNotFound},
		{"disabled", summarize.ErrDisabled, http.StatusServiceUnavailable},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"other", assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
