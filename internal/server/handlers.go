package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/export"
	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/schema"
	"github.com/sells-group/recon-cli/internal/store"
	"github.com/sells-group/recon-cli/internal/summarize"
	"github.com/sells-group/recon-cli/internal/validate"
)

// validateResponse is the body returned by POST /validate.
type validateResponse struct {
	SessionID       string                `json:"session_id"`
	Summary         model.SessionSummary  `json:"summary"`
	Findings        []model.Finding       `json:"findings"`
	Fixes           []model.FixSuggestion `json:"fixes"`
	SkippedSegments []string              `json:"skipped_segments"`
}

type chatRequest struct {
	Question string `json:"question"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
}

type insightResponse struct {
	SessionID string `json:"session_id"`
	Insight   string `json:"insight"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	up, err := s.receive(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer up.cleanup()

	gold, growth, err := up.load(r.Context(), s.opts.Loader)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schema.PreviewColumns(gold, growth, s.opts.Schema))
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	up, err := s.receive(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer up.cleanup()

	threshold := s.opts.Threshold
	if raw := strings.TrimSpace(r.FormValue("threshold")); raw != "" {
		threshold, err = strconv.ParseFloat(raw, 64)
		if err != nil || threshold < 0 {
			writeError(w, r, badRequest("threshold must be a number >= 0"))
			return
		}
	}

	var raw map[string]model.ColumnPair
	if js := strings.TrimSpace(r.FormValue("mappings")); js != "" {
		if err := json.Unmarshal([]byte(js), &raw); err != nil {
			writeError(w, r, badRequest("mappings must be a JSON object of field to {gold_column, growth_column}"))
			return
		}
	}

	gold, growth, err := up.load(r.Context(), s.opts.Loader)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Without explicit mappings the matcher's suggestions are used as is.
	var mapping model.FieldMapping
	if raw != nil {
		if mapping, err = model.ParseMapping(raw); err != nil {
			writeError(w, r, err)
			return
		}
	} else {
		mapping = schema.PreviewColumns(gold, growth, s.opts.Schema).Mapping()
	}

	sess, err := validate.Run(r.Context(), validate.Request{
		Gold:        gold,
		Growth:      growth,
		Mapping:     mapping,
		Threshold:   threshold,
		Rules:       s.opts.Rules,
		MaxParallel: s.opts.MaxParallel,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.SaveSession(r.Context(), sess); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, validateResponse{
		SessionID:       sess.ID,
		Summary:         sess.Summary,
		Findings:        sess.Findings,
		Fixes:           sess.Fixes,
		SkippedSegments: sess.SkippedSegments,
	})
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	filter := store.SessionFilter{GoldFile: r.URL.Query().Get("gold_file")}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, r, badRequest("limit must be a non-negative integer"))
			return
		}
		filter.Limit = n
	}
	infos, err := s.store.ListSessions(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if infos == nil {
		infos = []model.SessionInfo{}
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteResult(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.ComparisonCSV(&buf, sess); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="recon-%s.csv"`, sess.ID))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		zap.L().Warn("server: write csv", zap.String("session_id", sess.ID), zap.Error(err))
	}
}

func (s *Server) handleInsight(w http.ResponseWriter, r *http.Request) {
	if s.summarizer == nil {
		writeError(w, r, summarize.ErrDisabled)
		return
	}
	sess, err := s.store.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	text, err := summarize.Insight(r.Context(), s.store, s.summarizer, sess, refresh)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, insightResponse{SessionID: sess.ID, Insight: text})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.summarizer == nil {
		writeError(w, r, summarize.ErrDisabled)
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, badRequest("invalid request body"))
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		writeError(w, r, badRequest("question is required"))
		return
	}
	sess, err := s.store.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	answer, err := s.summarizer.Answer(r.Context(), req.Question, summarize.BuildInput(sess))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{SessionID: sess.ID, Question: req.Question, Answer: answer})
}
