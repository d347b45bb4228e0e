package exam

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rsinha/examportal/internal/auth"
	"github.com/rsinha/examportal/internal/model"
)

const mcqOptionCount = 4

// CreateExam stores a new exam authored by the caller. MCQ questions must
// carry exactly four options and a correct option.
func (s *Service) CreateExam(ctx context.Context, caller *model.User, ex model.Exam) (*model.Exam, error) {
	if !auth.Allowed(caller, auth.OpManageExams) {
		return nil, ErrUnauthorized
	}
	if ex.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if len(ex.Questions) == 0 {
		return nil, fmt.Errorf("%w: at least one question is required", ErrInvalidInput)
	}
	for i, q := range ex.Questions {
		if err := validateQuestion(q); err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
	}

	ex.CreatedBy = caller.ID
	id, err := s.store.CreateExam(ctx, ex)
	if err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}

	created, err := s.store.GetExam(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload exam: %w", err)
	}
	slog.Info("exam created", "exam_id", id, "title", ex.Title, "questions", len(ex.Questions), "created_by", caller.ID)
	return created, nil
}

// ListExams returns all exams, newest first. Students use this to pick an
// exam to take; correct options are stripped from their view.
func (s *Service) ListExams(ctx context.Context, caller *model.User) ([]model.Exam, error) {
	if !auth.Allowed(caller, auth.OpListExams) {
		return nil, ErrUnauthorized
	}
	exams, err := s.store.ListExams(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	if caller.Role == model.RoleStudent {
		for i := range exams {
			for j := range exams[i].Questions {
				exams[i].Questions[j].CorrectOption = ""
			}
		}
	}
	return exams, nil
}

// DeleteExam removes an exam. Only the examiner who created it may delete it.
func (s *Service) DeleteExam(ctx context.Context, caller *model.User, examID string) error {
	ex, err := s.ownedExam(ctx, caller, examID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteExam(ctx, ex.ID); err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	slog.Info("exam deleted", "exam_id", examID, "deleted_by", caller.ID)
	return nil
}

// UpdateQuestion edits one question of an exam the caller created. For MCQ
// questions the options and correct option are replaced too.
func (s *Service) UpdateQuestion(ctx context.Context, caller *model.User, examID, questionID string, update model.QuestionImport) (*model.Question, error) {
	if _, err := s.ownedExam(ctx, caller, examID); err != nil {
		return nil, err
	}
	q, err := s.store.GetQuestion(ctx, examID, questionID)
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}
	if q == nil {
		return nil, fmt.Errorf("%w: question %s", ErrNotFound, questionID)
	}

	q.Text = update.Text
	if q.Type == model.QuestionMCQ {
		q.Options = update.Options
		q.CorrectOption = update.CorrectOption
	}
	if err := validateQuestion(*q); err != nil {
		return nil, err
	}
	if err := s.store.UpdateQuestion(ctx, *q); err != nil {
		return nil, fmt.Errorf("update question: %w", err)
	}
	return q, nil
}

// DeleteQuestion removes one question from an exam the caller created.
func (s *Service) DeleteQuestion(ctx context.Context, caller *model.User, examID, questionID string) error {
	if _, err := s.ownedExam(ctx, caller, examID); err != nil {
		return err
	}
	q, err := s.store.GetQuestion(ctx, examID, questionID)
	if err != nil {
		return fmt.Errorf("get question: %w", err)
	}
	if q == nil {
		return fmt.Errorf("%w: question %s", ErrNotFound, questionID)
	}
	if err := s.store.DeleteQuestion(ctx, examID, questionID); err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	return nil
}

// ownedExam loads an exam and checks the caller is the examiner who created
// it.
func (s *Service) ownedExam(ctx context.Context, caller *model.User, examID string) (*model.Exam, error) {
	if !auth.Allowed(caller, auth.OpManageExams) {
		return nil, ErrUnauthorized
	}
	ex, err := s.store.GetExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if ex == nil {
		return nil, fmt.Errorf("%w: exam %s", ErrNotFound, examID)
	}
	if ex.CreatedBy != caller.ID {
		return nil, fmt.Errorf("%w: not the exam owner", ErrUnauthorized)
	}
	return ex, nil
}

func validateQuestion(q model.Question) error {
	if !q.Type.Valid() {
		return fmt.Errorf("%w: unknown question type %q", ErrInvalidInput, q.Type)
	}
	if q.Text == "" {
		return fmt.Errorf("%w: question text is required", ErrInvalidInput)
	}
	if q.Type == model.QuestionMCQ {
		if len(q.Options) != mcqOptionCount {
			return fmt.Errorf("%w: mcq must have exactly %d options", ErrInvalidInput, mcqOptionCount)
		}
		if q.CorrectOption == "" {
			return fmt.Errorf("%w: mcq requires a correct option", ErrInvalidInput)
		}
	}
	return nil
}
