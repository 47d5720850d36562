package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/summarize"
)

// requestError is a client mistake in the request itself.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) error { return &requestError{msg: msg} }

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	File  string `json:"file,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func statusFor(err error) int {
	var reqErr *requestError
	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest
	case errors.As(err, &tooBig):
		return http.StatusRequestEntityTooLarge
	case model.IsMappingError(err):
		return http.StatusUnprocessableEntity
	case model.IsFileFormatError(err):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, summarize.ErrDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}

	var mi *model.MappingIncompleteError
	var cn *model.ColumnNotFoundError
	var ff *model.FileFormatError
	switch {
	case errors.As(err, &mi):
		body.Field = string(mi.Field)
	case errors.As(err, &cn):
		body.Field = string(cn.Field)
	case errors.As(err, &ff):
		body.File = ff.File
	}

	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		zap.L().Error("server: request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		if status == http.StatusInternalServerError {
			body.Error = "internal error"
		}
	}
	writeJSON(w, status, body)
}
