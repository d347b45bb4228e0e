// Package exam implements the submission and scoring pipeline: gatekeeping
// around submission creation, objective auto-grading, manual score
// accumulation, and result assembly. Handlers stay thin; every rule lives
// here and is checked through the auth policy.
package exam

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rsinha/examportal/internal/auth"
	"github.com/rsinha/examportal/internal/grading"
	appI18n "github.com/rsinha/examportal/internal/i18n"
	"github.com/rsinha/examportal/internal/model"
	"github.com/rsinha/examportal/internal/store"
)

// Caller-visible failure taxonomy. Handlers map these to HTTP statuses;
// anything else is an opaque internal failure.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// Service holds the scoring pipeline's dependencies.
type Service struct {
	store *store.Store
	mode  model.ScoringMode
}

// New creates a Service using the given store and rescore mode.
func New(s *store.Store, mode model.ScoringMode) *Service {
	if !mode.Valid() {
		mode = model.ScoringAdditive
	}
	return &Service{store: s, mode: mode}
}

// SubmitResult is the outcome of a successful exam submission.
type SubmitResult struct {
	SubmissionID string  `json:"submission_id"`
	Score        float64 `json:"score"`
}

// SubmitExam creates the caller's submission for an exam, auto-grading the
// MCQ portion. It is the only write path that creates a submission.
func (s *Service) SubmitExam(ctx context.Context, caller *model.User, examID string, answers map[string]string) (*SubmitResult, error) {
	if !auth.Allowed(caller, auth.OpSubmitExam) {
		return nil, ErrUnauthorized
	}
	if examID == "" {
		return nil, fmt.Errorf("%w: exam id is required", ErrInvalidInput)
	}
	if len(answers) == 0 {
		return nil, fmt.Errorf("%w: answers must not be empty", ErrInvalidInput)
	}

	existing, err := s.store.GetSubmissionByUserExam(ctx, caller.ID, examID)
	if err != nil {
		return nil, fmt.Errorf("check existing submission: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: already submitted", ErrConflict)
	}

	ex, err := s.store.GetExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if ex == nil {
		return nil, fmt.Errorf("%w: exam %s", ErrNotFound, examID)
	}

	score := grading.ObjectiveScore(ex.Questions, answers)

	id, err := s.store.CreateSubmission(ctx, model.Submission{
		UserID:  caller.ID,
		ExamID:  examID,
		Answers: answers,
		Score:   float64(score),
	})
	if err != nil {
		// The unique constraint catches the race where two requests pass the
		// existence check together; the loser sees a conflict, not an error.
		if errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("%w: already submitted", ErrConflict)
		}
		return nil, fmt.Errorf("create submission: %w", err)
	}

	slog.Info("exam submitted", "submission_id", id, "exam_id", examID, "user_id", caller.ID, "objective_score", score)
	return &SubmitResult{SubmissionID: id, Score: float64(score)}, nil
}

// ScoreResult is the outcome of a manual scoring batch.
type ScoreResult struct {
	Score      float64 `json:"score"`
	IsReviewed bool    `json:"is_reviewed"`
}

// ScoreSubmission applies an examiner's manual scoring batch. Non-numeric
// score entries are dropped without aborting the batch; feedback entries
// never affect the score; the submission is marked reviewed even when the
// batch carries no accepted scores. With the additive rescore mode the total
// accumulates every applied value, so an identical batch sent twice counts
// twice.
func (s *Service) ScoreSubmission(ctx context.Context, caller *model.User, submissionID string, rawScores map[string]any, feedback map[string]string) (*ScoreResult, error) {
	if !auth.Allowed(caller, auth.OpScoreSubmission) {
		return nil, ErrUnauthorized
	}
	if submissionID == "" {
		return nil, fmt.Errorf("%w: submission id is required", ErrInvalidInput)
	}
	if rawScores == nil {
		return nil, fmt.Errorf("%w: scores must be an object", ErrInvalidInput)
	}

	scores := grading.CoerceScores(rawScores)
	updated, err := s.store.ApplyManualScores(ctx, submissionID, scores, feedback, s.mode)
	if err != nil {
		return nil, fmt.Errorf("apply manual scores: %w", err)
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: submission %s", ErrNotFound, submissionID)
	}

	slog.Info("submission scored", "submission_id", submissionID, "examiner_id", caller.ID,
		"batch_size", len(scores), "score", updated.Score)
	return &ScoreResult{Score: updated.Score, IsReviewed: updated.IsReviewed}, nil
}

// ResultForStudent returns the caller's own result for an exam. A missing
// submission is NotFound; the caller can never learn about other students'
// submissions through this path.
func (s *Service) ResultForStudent(ctx context.Context, caller *model.User, examID string) (*model.ResultView, error) {
	if !auth.Allowed(caller, auth.OpViewOwnResult) {
		return nil, ErrUnauthorized
	}
	sub, err := s.store.GetSubmissionByUserExam(ctx, caller.ID, examID)
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	if sub == nil {
		return nil, fmt.Errorf("%w: result for exam %s", ErrNotFound, examID)
	}
	return s.assembleResult(ctx, sub, false)
}

// ResultForExaminer returns any submission's result, including the student's
// name and email.
func (s *Service) ResultForExaminer(ctx context.Context, caller *model.User, submissionID string) (*model.ResultView, error) {
	if !auth.Allowed(caller, auth.OpViewAnySubmission) {
		return nil, ErrUnauthorized
	}
	sub, err := s.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	if sub == nil {
		return nil, fmt.Errorf("%w: submission %s", ErrNotFound, submissionID)
	}
	return s.assembleResult(ctx, sub, true)
}

// ListAllSubmissions returns examiner-facing summaries of every submission.
func (s *Service) ListAllSubmissions(ctx context.Context, caller *model.User) ([]model.SubmissionSummary, error) {
	if !auth.Allowed(caller, auth.OpListAllSubmissions) {
		return nil, ErrUnauthorized
	}
	summaries, err := s.store.ListSubmissionSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return summaries, nil
}

// ListOwnSubmissions returns the caller's submissions.
func (s *Service) ListOwnSubmissions(ctx context.Context, caller *model.User) ([]model.Submission, error) {
	if !auth.Allowed(caller, auth.OpListOwnSubmissions) {
		return nil, ErrUnauthorized
	}
	subs, err := s.store.ListSubmissionsByUser(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return subs, nil
}

// assembleResult joins a submission with its exam (and student, for examiner
// views) into the denormalized result view. Subjective questions without a
// manual score or feedback get localized placeholder labels.
func (s *Service) assembleResult(ctx context.Context, sub *model.Submission, includeStudent bool) (*model.ResultView, error) {
	ex, err := s.store.GetExam(ctx, sub.ExamID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if ex == nil {
		return nil, fmt.Errorf("%w: exam %s", ErrNotFound, sub.ExamID)
	}

	view := &model.ResultView{
		SubmissionID:     sub.ID,
		Exam:             *ex,
		Answers:          sub.Answers,
		SubjectiveScores: sub.SubjectiveScores,
		Feedback:         sub.Feedback,
		Score:            sub.Score,
		IsReviewed:       sub.IsReviewed,
		SubmittedAt:      sub.SubmittedAt,
	}

	if includeStudent {
		student, err := s.store.GetUserByID(ctx, sub.UserID)
		if err != nil {
			return nil, fmt.Errorf("get student: %w", err)
		}
		if student != nil {
			pub := student.Public()
			view.Student = &pub
		}
	}

	for _, q := range ex.Questions {
		qr := model.QuestionReview{
			Question: q,
			Answer:   sub.Answers[q.ID],
		}
		if q.Type.Subjective() {
			if score, ok := sub.SubjectiveScores[q.ID]; ok {
				qr.Score = &score
			} else {
				qr.ScoreLabel = appI18n.T(ctx, "ScorePending")
			}
			if comment, ok := sub.Feedback[q.ID]; ok {
				qr.Feedback = comment
			} else {
				qr.FeedbackLabel = appI18n.T(ctx, "FeedbackNotGiven")
			}
		}
		view.Questions = append(view.Questions, qr)
	}

	return view, nil
}
