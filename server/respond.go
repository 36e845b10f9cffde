package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ericmichael/llm-deployment/agent"
	"github.com/ericmichael/llm-deployment/core"
	"github.com/ericmichael/llm-deployment/model"
	"github.com/ericmichael/llm-deployment/runner"
)

// AssistantUnavailable is the error message sent when the model could not
// produce an answer.
const AssistantUnavailable = "assistant unavailable"

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrThreadNotFound), errors.Is(err, core.ErrConversationClosed):
		return http.StatusNotFound
	case errors.Is(err, agent.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, agent.ErrNoTranscriber), errors.Is(err, runner.ErrListNotSupported):
		return http.StatusNotImplemented
	case errors.Is(err, runner.ErrNoActiveRun):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, model.ErrModelCall):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
