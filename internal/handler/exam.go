package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rsinha/examportal/internal/auth"
	"github.com/rsinha/examportal/internal/exam"
	appI18n "github.com/rsinha/examportal/internal/i18n"
	"github.com/rsinha/examportal/internal/model"
)

type createExamRequest struct {
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Subject     string                 `json:"subject"`
	ExamDate    time.Time              `json:"exam_date"`
	Duration    int                    `json:"duration"`
	Questions   []model.QuestionImport `json:"questions"`
}

func (h *Handler) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	var req createExamRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	ex := model.Exam{
		Title:       req.Title,
		Description: req.Description,
		Subject:     req.Subject,
		ExamDate:    req.ExamDate,
		Duration:    req.Duration,
	}
	for _, qi := range req.Questions {
		ex.Questions = append(ex.Questions, model.Question{
			Type:          qi.Type,
			Text:          qi.Text,
			Options:       qi.Options,
			CorrectOption: qi.CorrectOption,
		})
	}

	created, err := h.svc.CreateExam(r.Context(), model.UserFromContext(r.Context()), ex)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"exam": created})
}

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	exams, err := h.svc.ListExams(r.Context(), model.UserFromContext(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if exams == nil {
		exams = []model.Exam{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"exams": exams})
}

func (h *Handler) handleDeleteExam(w http.ResponseWriter, r *http.Request) {
	examID := chi.URLParam(r, "examID")

	if err := h.svc.DeleteExam(r.Context(), model.UserFromContext(r.Context()), examID); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Exam deleted"})
}

func (h *Handler) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	examID := chi.URLParam(r, "examID")
	questionID := chi.URLParam(r, "questionID")

	var req model.QuestionImport
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	updated, err := h.svc.UpdateQuestion(r.Context(), model.UserFromContext(r.Context()), examID, questionID, req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"question": updated})
}

func (h *Handler) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	examID := chi.URLParam(r, "examID")
	questionID := chi.URLParam(r, "questionID")

	if err := h.svc.DeleteQuestion(r.Context(), model.UserFromContext(r.Context()), examID, questionID); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Question deleted"})
}

type suggestRequest struct {
	MaxPoints float64 `json:"max_points"`
}

// handleSuggestFeedback returns an advisory score/feedback suggestion for one
// subjective answer. It never writes to the submission.
func (h *Handler) handleSuggestFeedback(w http.ResponseWriter, r *http.Request) {
	caller := model.UserFromContext(r.Context())
	if !auth.Allowed(caller, auth.OpSuggestFeedback) {
		respondError(w, r, exam.ErrUnauthorized)
		return
	}
	if h.llm == nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"message": appI18n.T(r.Context(), "SuggestUnavailable"),
		})
		return
	}

	submissionID := chi.URLParam(r, "submissionID")
	questionID := chi.URLParam(r, "questionID")

	var req suggestRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, r, err)
			return
		}
	}

	sub, err := h.store.GetSubmission(r.Context(), submissionID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if sub == nil {
		respondError(w, r, exam.ErrNotFound)
		return
	}

	q, err := h.store.GetQuestion(r.Context(), sub.ExamID, questionID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if q == nil {
		respondError(w, r, exam.ErrNotFound)
		return
	}
	if !q.Type.Subjective() {
		respondError(w, r, exam.ErrInvalidInput)
		return
	}

	answer, ok := sub.Answers[questionID]
	if !ok || answer == "" {
		respondError(w, r, exam.ErrNotFound)
		return
	}

	suggestion, err := h.llm.SuggestFeedback(r.Context(), *q, answer, req.MaxPoints)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"suggestion": suggestion})
}
