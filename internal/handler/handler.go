package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rsinha/examportal/internal/auth"
	"github.com/rsinha/examportal/internal/exam"
	appI18n "github.com/rsinha/examportal/internal/i18n"
	"github.com/rsinha/examportal/internal/llm"
	"github.com/rsinha/examportal/internal/model"
	"github.com/rsinha/examportal/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store  *store.Store
	svc    *exam.Service
	tokens *auth.Tokens
	llm    *llm.Client // nil when no LLM endpoint is configured
	config model.Config
}

// New creates a new Handler.
func New(s *store.Store, svc *exam.Service, tokens *auth.Tokens, llmClient *llm.Client, cfg model.Config) *Handler {
	return &Handler{store: s, svc: svc, tokens: tokens, llm: llmClient, config: cfg}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/auth/signup", h.handleSignup)
	r.Post("/api/auth/login", h.handleLogin)
	r.Post("/api/auth/logout", h.handleLogout)

	r.Group(func(pr chi.Router) {
		pr.Use(h.requireAuth)

		pr.Get("/api/auth/user", h.handleCurrentUser)

		pr.Post("/api/exams", h.handleCreateExam)
		pr.Get("/api/exams", h.handleListExams)
		pr.Delete("/api/exams/{examID}", h.handleDeleteExam)
		pr.Put("/api/exams/{examID}/questions/{questionID}", h.handleUpdateQuestion)
		pr.Delete("/api/exams/{examID}/questions/{questionID}", h.handleDeleteQuestion)

		pr.Post("/api/submissions", h.handleSubmitExam)
		pr.Get("/api/submissions", h.handleListAllSubmissions)
		pr.Get("/api/submissions/mine", h.handleListOwnSubmissions)
		pr.Get("/api/submissions/{submissionID}", h.handleExaminerResult)
		pr.Put("/api/submissions/{submissionID}/score", h.handleScoreSubmission)
		pr.Post("/api/submissions/{submissionID}/questions/{questionID}/suggest", h.handleSuggestFeedback)

		pr.Get("/api/results/{examID}", h.handleStudentResult)
	})
}

type submitRequest struct {
	ExamID  string            `json:"exam_id"`
	Answers map[string]string `json:"answers"`
}

func (h *Handler) handleSubmitExam(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := h.svc.SubmitExam(r.Context(), model.UserFromContext(r.Context()), req.ExamID, req.Answers)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

type scoreRequest struct {
	Scores   map[string]any    `json:"scores"`
	Feedback map[string]string `json:"feedback"`
}

func (h *Handler) handleScoreSubmission(w http.ResponseWriter, r *http.Request) {
	submissionID := chi.URLParam(r, "submissionID")

	var req scoreRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := h.svc.ScoreSubmission(r.Context(), model.UserFromContext(r.Context()), submissionID, req.Scores, req.Feedback)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleStudentResult(w http.ResponseWriter, r *http.Request) {
	examID := chi.URLParam(r, "examID")

	view, err := h.svc.ResultForStudent(r.Context(), model.UserFromContext(r.Context()), examID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *Handler) handleExaminerResult(w http.ResponseWriter, r *http.Request) {
	submissionID := chi.URLParam(r, "submissionID")

	view, err := h.svc.ResultForExaminer(r.Context(), model.UserFromContext(r.Context()), submissionID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *Handler) handleListAllSubmissions(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.svc.ListAllSubmissions(r.Context(), model.UserFromContext(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if summaries == nil {
		summaries = []model.SubmissionSummary{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"submissions": summaries})
}

func (h *Handler) handleListOwnSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.svc.ListOwnSubmissions(r.Context(), model.UserFromContext(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if subs == nil {
		subs = []model.Submission{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"submissions": subs})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return exam.ErrInvalidInput
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// respondError maps the service error taxonomy to HTTP statuses. Internal
// failures are logged and returned opaque.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, exam.ErrInvalidInput):
		respondJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
	case errors.Is(err, exam.ErrUnauthorized):
		respondJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
	case errors.Is(err, exam.ErrNotFound):
		respondJSON(w, http.StatusNotFound, map[string]string{"message": appI18n.T(r.Context(), "NotFound")})
	case errors.Is(err, exam.ErrConflict):
		respondJSON(w, http.StatusConflict, map[string]string{"message": appI18n.T(r.Context(), "AlreadySubmitted")})
	default:
		slog.Error("internal failure", "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
	}
}
