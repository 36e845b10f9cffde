package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ericmichael/llm-deployment/agent"
	"github.com/ericmichael/llm-deployment/model"
)

// CreateThreadRequest is the body of POST /threads.
type CreateThreadRequest struct {
	Name string `json:"name"`
}

// MessageRequest is the body of POST /threads/{id}/messages.
type MessageRequest struct {
	Message string `json:"message"`
}

// AnswerResponse is returned for every completed exchange.
type AnswerResponse struct {
	agent.Answer
	Warning string `json:"warning,omitempty"`
}

func (s *Server) handleCreateThread(w http.ResponseWriter, r *http.Request) {
	var req CreateThreadRequest
	if r.ContentLength != 0 {
		if !s.decode(w, r, &req) {
			return
		}
	}

	thread, err := s.runner.CreateThread(r.Context(), req.Name)
	if err != nil {
		s.fail(w, err)
		return
	}

	JSON(w, http.StatusCreated, thread)
}

func (s *Server) handleListThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := s.runner.Threads(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}

	JSON(w, http.StatusOK, threads)
}

func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	thread, err := s.runner.Thread(r.Context(), chi.URLParam(r, "threadID"))
	if err != nil {
		s.fail(w, err)
		return
	}

	JSON(w, http.StatusOK, thread)
}

func (s *Server) handleDeleteThread(w http.ResponseWriter, r *http.Request) {
	if err := s.runner.Delete(r.Context(), chi.URLParam(r, "threadID")); err != nil {
		s.fail(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	turns, err := s.runner.History(r.Context(), chi.URLParam(r, "threadID"))
	if err != nil {
		s.fail(w, err)
		return
	}

	JSON(w, http.StatusOK, turns)
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if !s.decode(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}

	answer, err := s.runner.Chat(r.Context(), chi.URLParam(r, "threadID"), req.Message)
	s.answer(w, answer, err)
}

func (s *Server) handlePostAudio(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxAudioBytes)

	file, header, err := r.FormFile("audio")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			Error(w, http.StatusRequestEntityTooLarge, "audio too large")
			return
		}

		Error(w, http.StatusBadRequest, "multipart field \"audio\" is required")

		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		Error(w, http.StatusRequestEntityTooLarge, "audio too large")
		return
	}

	if len(audio) == 0 {
		Error(w, http.StatusBadRequest, "audio is empty")
		return
	}

	answer, err := s.runner.ChatAudio(r.Context(), chi.URLParam(r, "threadID"), header.Filename, audio)
	s.answer(w, answer, err)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.runner.Cancel(chi.URLParam(r, "threadID")); err != nil {
		s.fail(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// answer writes the outcome of an exchange. A chain-limit abort is a
// successful, partial answer.
func (s *Server) answer(w http.ResponseWriter, answer agent.Answer, err error) {
	var limitErr *agent.ChainLimitError

	switch {
	case err == nil:
		JSON(w, http.StatusOK, AnswerResponse{Answer: answer})
	case errors.As(err, &limitErr):
		JSON(w, http.StatusOK, AnswerResponse{Answer: answer, Warning: limitErr.Error()})
	default:
		s.fail(w, err)
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}

		Error(w, http.StatusBadRequest, "invalid request body")

		return false
	}

	return true
}

// fail writes err as a JSON error. Model and internal failures are logged
// in full but reach the client only as a generic message.
func (s *Server) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("server.request.failed", "status", status, "error", err)
	}

	msg := err.Error()

	switch {
	case errors.Is(err, model.ErrModelCall):
		msg = AssistantUnavailable
	case status == http.StatusInternalServerError:
		msg = http.StatusText(status)
	}

	Error(w, status, msg)
}
