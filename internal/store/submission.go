package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rsinha/examportal/internal/grading"
	"github.com/rsinha/examportal/internal/model"
)

// ErrDuplicate is returned when an insert collides with a uniqueness
// constraint: a second submission for the same (user, exam) pair, or a second
// user with the same email.
var ErrDuplicate = errors.New("record already exists")

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateSubmission inserts a submission and its answers in one transaction.
// The (user_id, exam_id) uniqueness constraint makes a duplicate attempt fail
// with ErrDuplicate and no side effects. Returns the submission id.
func (s *Store) CreateSubmission(ctx context.Context, sub model.Submission) (string, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO submissions (id, user_id, exam_id, score, is_reviewed, submitted_at)
		 VALUES (?, ?, ?, ?, 0, ?)`,
		sub.ID, sub.UserID, sub.ExamID, sub.Score, sub.SubmittedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicate
		}
		return "", err
	}

	for questionID, answer := range sub.Answers {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO submission_answers (submission_id, question_id, answer) VALUES (?, ?, ?)`,
			sub.ID, questionID, answer,
		)
		if err != nil {
			return "", err
		}
	}

	return sub.ID, tx.Commit()
}

// GetSubmission returns a submission with its three per-question maps, or nil
// if it does not exist.
func (s *Store) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	return s.getSubmission(ctx, `WHERE id = ?`, id)
}

// GetSubmissionByUserExam returns the submission for a (user, exam) pair, or
// nil if the student has not submitted that exam.
func (s *Store) GetSubmissionByUserExam(ctx context.Context, userID, examID string) (*model.Submission, error) {
	return s.getSubmission(ctx, `WHERE user_id = ? AND exam_id = ?`, userID, examID)
}

func (s *Store) getSubmission(ctx context.Context, where string, args ...any) (*model.Submission, error) {
	var sub model.Submission
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, exam_id, score, is_reviewed, submitted_at FROM submissions `+where, args...,
	).Scan(&sub.ID, &sub.UserID, &sub.ExamID, &sub.Score, &sub.IsReviewed, &sub.SubmittedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if sub.Answers, err = s.answersFor(ctx, sub.ID); err != nil {
		return nil, err
	}
	if sub.SubjectiveScores, err = s.subjectiveScoresFor(ctx, sub.ID); err != nil {
		return nil, err
	}
	if sub.Feedback, err = s.feedbackFor(ctx, sub.ID); err != nil {
		return nil, err
	}
	return &sub, nil
}

// ApplyManualScores applies one manual grading batch to a submission inside a
// single transaction: per-question scores are overwritten, feedback is
// overwritten, the total score moves by the batch delta computed in SQL-side
// increment form, and the submission is marked reviewed regardless of batch
// content. Returns the updated submission, or nil if it does not exist.
func (s *Store) ApplyManualScores(ctx context.Context, submissionID string, scores map[string]float64, feedback map[string]string, mode model.ScoringMode) (*model.Submission, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions WHERE id = ?`, submissionID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, nil
	}

	// Previous per-question values are only needed to compute overwrite-mode
	// deltas, but reading them inside the transaction keeps both modes
	// race-free against concurrent batches.
	previous := make(map[string]float64, len(scores))
	for questionID := range scores {
		var prev float64
		err := tx.QueryRowContext(ctx,
			`SELECT score FROM subjective_scores WHERE submission_id = ? AND question_id = ?`,
			submissionID, questionID,
		).Scan(&prev)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, err
		}
		previous[questionID] = prev
	}

	for questionID, score := range scores {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO subjective_scores (submission_id, question_id, score)
			 VALUES (?, ?, ?)
			 ON CONFLICT(submission_id, question_id) DO UPDATE SET score = ?`,
			submissionID, questionID, score, score,
		)
		if err != nil {
			return nil, err
		}
	}

	for questionID, comment := range feedback {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO feedback (submission_id, question_id, comment)
			 VALUES (?, ?, ?)
			 ON CONFLICT(submission_id, question_id) DO UPDATE SET comment = ?`,
			submissionID, questionID, comment, comment,
		)
		if err != nil {
			return nil, err
		}
	}

	delta := grading.BatchDelta(mode, scores, previous)
	_, err = tx.ExecContext(ctx,
		`UPDATE submissions SET score = score + ?, is_reviewed = 1 WHERE id = ?`,
		delta, submissionID,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetSubmission(ctx, submissionID)
}

// ListSubmissionsByUser returns a student's submissions, newest first.
func (s *Store) ListSubmissionsByUser(ctx context.Context, userID string) ([]model.Submission, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, exam_id, score, is_reviewed, submitted_at
		 FROM submissions WHERE user_id = ? ORDER BY submitted_at DESC, id DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		var sub model.Submission
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.ExamID, &sub.Score, &sub.IsReviewed, &sub.SubmittedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// ListSubmissionSummaries returns all submissions joined with exam title and
// student identity, newest first.
func (s *Store) ListSubmissionSummaries(ctx context.Context) ([]model.SubmissionSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.exam_id, e.title, u.name, u.email, s.score, s.is_reviewed, s.submitted_at
		 FROM submissions s
		 JOIN exams e ON e.id = s.exam_id
		 JOIN users u ON u.id = s.user_id
		 ORDER BY s.submitted_at DESC, s.id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []model.SubmissionSummary
	for rows.Next() {
		var sm model.SubmissionSummary
		if err := rows.Scan(&sm.ID, &sm.ExamID, &sm.ExamTitle, &sm.StudentName, &sm.StudentEmail, &sm.Score, &sm.IsReviewed, &sm.SubmittedAt); err != nil {
			return nil, err
		}
		summaries = append(summaries, sm)
	}
	return summaries, rows.Err()
}

func (s *Store) answersFor(ctx context.Context, submissionID string) (map[string]string, error) {
	return s.stringMapFor(ctx, `SELECT question_id, answer FROM submission_answers WHERE submission_id = ?`, submissionID)
}

func (s *Store) feedbackFor(ctx context.Context, submissionID string) (map[string]string, error) {
	return s.stringMapFor(ctx, `SELECT question_id, comment FROM feedback WHERE submission_id = ?`, submissionID)
}

func (s *Store) stringMapFor(ctx context.Context, query, submissionID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, query, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	m := make(map[string]string)
	for rows.Next() {
		var questionID, value string
		if err := rows.Scan(&questionID, &value); err != nil {
			return nil, err
		}
		m[questionID] = value
	}
	return m, rows.Err()
}

func (s *Store) subjectiveScoresFor(ctx context.Context, submissionID string) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT question_id, score FROM subjective_scores WHERE submission_id = ?`, submissionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	m := make(map[string]float64)
	for rows.Next() {
		var questionID string
		var score float64
		if err := rows.Scan(&questionID, &score); err != nil {
			return nil, err
		}
		m[questionID] = score
	}
	return m, rows.Err()
}
