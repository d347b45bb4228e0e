package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rsinha/examportal/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'student',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS exams (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		subject TEXT NOT NULL DEFAULT '',
		exam_date DATETIME,
		duration_minutes INTEGER NOT NULL DEFAULT 0,
		created_by TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (created_by) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS questions (
		id TEXT PRIMARY KEY,
		exam_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		qtype TEXT NOT NULL,
		text TEXT NOT NULL,
		options TEXT NOT NULL DEFAULT '',
		correct_option TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (exam_id) REFERENCES exams(id)
	);

	CREATE TABLE IF NOT EXISTS submissions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		exam_id TEXT NOT NULL,
		score REAL NOT NULL DEFAULT 0,
		is_reviewed INTEGER NOT NULL DEFAULT 0,
		submitted_at DATETIME NOT NULL,
		UNIQUE (user_id, exam_id),
		FOREIGN KEY (user_id) REFERENCES users(id),
		FOREIGN KEY (exam_id) REFERENCES exams(id)
	);

	CREATE TABLE IF NOT EXISTS submission_answers (
		submission_id TEXT NOT NULL,
		question_id TEXT NOT NULL,
		answer TEXT NOT NULL,
		PRIMARY KEY (submission_id, question_id),
		FOREIGN KEY (submission_id) REFERENCES submissions(id)
	);

	CREATE TABLE IF NOT EXISTS subjective_scores (
		submission_id TEXT NOT NULL,
		question_id TEXT NOT NULL,
		score REAL NOT NULL,
		PRIMARY KEY (submission_id, question_id),
		FOREIGN KEY (submission_id) REFERENCES submissions(id)
	);

	CREATE TABLE IF NOT EXISTS feedback (
		submission_id TEXT NOT NULL,
		question_id TEXT NOT NULL,
		comment TEXT NOT NULL,
		PRIMARY KEY (submission_id, question_id),
		FOREIGN KEY (submission_id) REFERENCES submissions(id)
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateExam stores an exam and its questions in one transaction. Missing ids
// are generated. Returns the exam id.
func (s *Store) CreateExam(ctx context.Context, exam model.Exam) (string, error) {
	if exam.ID == "" {
		exam.ID = uuid.NewString()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO exams (id, title, description, subject, exam_date, duration_minutes, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		exam.ID, exam.Title, exam.Description, exam.Subject, exam.ExamDate, exam.Duration, exam.CreatedBy, time.Now(),
	)
	if err != nil {
		return "", err
	}

	for i, q := range exam.Questions {
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		options, err := encodeOptions(q.Options)
		if err != nil {
			return "", err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO questions (id, exam_id, position, qtype, text, options, correct_option)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			q.ID, exam.ID, i, q.Type, q.Text, options, q.CorrectOption,
		)
		if err != nil {
			return "", err
		}
	}

	return exam.ID, tx.Commit()
}

// GetExam returns an exam with its questions in position order, or nil if it
// does not exist.
func (s *Store) GetExam(ctx context.Context, id string) (*model.Exam, error) {
	var exam model.Exam
	var examDate sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, subject, exam_date, duration_minutes, created_by, created_at
		 FROM exams WHERE id = ?`, id,
	).Scan(&exam.ID, &exam.Title, &exam.Description, &exam.Subject, &examDate, &exam.Duration, &exam.CreatedBy, &exam.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if examDate.Valid {
		exam.ExamDate = examDate.Time
	}

	exam.Questions, err = s.questionsForExam(ctx, id)
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

// ListExams returns all exams with their questions, newest first.
func (s *Store) ListExams(ctx context.Context) ([]model.Exam, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, subject, exam_date, duration_minutes, created_by, created_at
		 FROM exams ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var exam model.Exam
		var examDate sql.NullTime
		if err := rows.Scan(&exam.ID, &exam.Title, &exam.Description, &exam.Subject, &examDate, &exam.Duration, &exam.CreatedBy, &exam.CreatedAt); err != nil {
			return nil, err
		}
		if examDate.Valid {
			exam.ExamDate = examDate.Time
		}
		exams = append(exams, exam)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range exams {
		exams[i].Questions, err = s.questionsForExam(ctx, exams[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return exams, nil
}

// DeleteExam removes an exam and its questions.
func (s *Store) DeleteExam(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE exam_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM exams WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// GetQuestion returns a question by exam and question id, or nil.
func (s *Store) GetQuestion(ctx context.Context, examID, questionID string) (*model.Question, error) {
	var q model.Question
	var options string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, exam_id, position, qtype, text, options, correct_option
		 FROM questions WHERE exam_id = ? AND id = ?`, examID, questionID,
	).Scan(&q.ID, &q.ExamID, &q.Position, &q.Type, &q.Text, &options, &q.CorrectOption)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if q.Options, err = decodeOptions(options); err != nil {
		return nil, err
	}
	return &q, nil
}

// UpdateQuestion replaces the text, options, and correct option of a question.
func (s *Store) UpdateQuestion(ctx context.Context, q model.Question) error {
	options, err := encodeOptions(q.Options)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE questions SET qtype = ?, text = ?, options = ?, correct_option = ?
		 WHERE exam_id = ? AND id = ?`,
		q.Type, q.Text, options, q.CorrectOption, q.ExamID, q.ID,
	)
	return err
}

// DeleteQuestion removes a single question from an exam.
func (s *Store) DeleteQuestion(ctx context.Context, examID, questionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE exam_id = ? AND id = ?`, examID, questionID)
	return err
}

// ExamCount returns the number of exams in the database.
func (s *Store) ExamCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM exams`).Scan(&count)
	return count, err
}

func (s *Store) questionsForExam(ctx context.Context, examID string) ([]model.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, exam_id, position, qtype, text, options, correct_option
		 FROM questions WHERE exam_id = ? ORDER BY position`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var options string
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Position, &q.Type, &q.Text, &options, &q.CorrectOption); err != nil {
			return nil, err
		}
		if q.Options, err = decodeOptions(options); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func encodeOptions(options []string) (string, error) {
	if len(options) == 0 {
		return "", nil
	}
	data, err := json.Marshal(options)
	if err != nil {
		return "", fmt.Errorf("encode options: %w", err)
	}
	return string(data), nil
}

func decodeOptions(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var options []string
	if err := json.Unmarshal([]byte(raw), &options); err != nil {
		return nil, fmt.Errorf("decode options: %w", err)
	}
	return options, nil
}
