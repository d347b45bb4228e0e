package model

import (
	"context"
	"time"
)

// Role represents a user's access level.
type Role string

const (
	// RoleStudent is a student user role.
	RoleStudent Role = "student"
	// RoleExaminer is an examiner user role.
	RoleExaminer Role = "examiner"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleExaminer
}

// User represents a system user.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Public returns a copy of the user safe for transport: identity fields only,
// never credential material.
func (u User) Public() User {
	return User{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// QuestionType distinguishes auto-gradable questions from subjective ones.
type QuestionType string

const (
	// QuestionMCQ is a multiple-choice question, auto-graded at submission.
	QuestionMCQ QuestionType = "mcq"
	// QuestionShort is a short free-text question, graded manually.
	QuestionShort QuestionType = "short"
	// QuestionLong is a long free-text question, graded manually.
	QuestionLong QuestionType = "long"
)

// Valid reports whether the question type is one of the known types.
func (qt QuestionType) Valid() bool {
	return qt == QuestionMCQ || qt == QuestionShort || qt == QuestionLong
}

// Subjective reports whether the question requires manual grading.
func (qt QuestionType) Subjective() bool {
	return qt == QuestionShort || qt == QuestionLong
}

// Question represents one question of an exam. Options and CorrectOption are
// set for MCQ questions only; CorrectOption holds the index of the correct
// option as a string.
type Question struct {
	ID            string       `json:"id"`
	ExamID        string       `json:"exam_id"`
	Position      int          `json:"position"`
	Type          QuestionType `json:"type"`
	Text          string       `json:"text"`
	Options       []string     `json:"options,omitempty"`
	CorrectOption string       `json:"correct_option,omitempty"`
}

// Exam represents an exam definition. Questions are ordered by position.
type Exam struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Subject     string     `json:"subject"`
	ExamDate    time.Time  `json:"exam_date"`
	Duration    int        `json:"duration"` // minutes
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	Questions   []Question `json:"questions"`
}

// Submission is one student's attempt at one exam. The three maps are keyed
// by question id. Score starts as the objective MCQ sum and only grows as
// manual batches are applied.
type Submission struct {
	ID               string             `json:"id"`
	UserID           string             `json:"user_id"`
	ExamID           string             `json:"exam_id"`
	Answers          map[string]string  `json:"answers"`
	Score            float64            `json:"score"`
	SubjectiveScores map[string]float64 `json:"subjective_scores"`
	Feedback         map[string]string  `json:"feedback"`
	IsReviewed       bool               `json:"is_reviewed"`
	SubmittedAt      time.Time          `json:"submitted_at"`
}

// ScoringMode selects how a manual scoring batch changes the total score.
type ScoringMode string

const (
	// ScoringAdditive adds every accepted batch value to the total. Re-sending
	// the same batch counts it again; callers send only the increment.
	ScoringAdditive ScoringMode = "additive"
	// ScoringOverwrite adds the difference against the previously stored
	// per-question value, so re-sending a correction is idempotent.
	ScoringOverwrite ScoringMode = "overwrite"
)

// Valid reports whether the scoring mode is one of the known modes.
func (m ScoringMode) Valid() bool {
	return m == ScoringAdditive || m == ScoringOverwrite
}

// QuestionReview is the per-question line of a result view: the question, the
// submitted answer, and the manual score/feedback if present. ScoreLabel and
// FeedbackLabel carry localized placeholder text when no value exists yet.
type QuestionReview struct {
	Question      Question `json:"question"`
	Answer        string   `json:"answer,omitempty"`
	Score         *float64 `json:"score,omitempty"`
	Feedback      string   `json:"feedback,omitempty"`
	ScoreLabel    string   `json:"score_label,omitempty"`
	FeedbackLabel string   `json:"feedback_label,omitempty"`
}

// ResultView is the denormalized view of a submission a student or examiner
// sees: the submission joined with its exam and, for examiners, the student.
type ResultView struct {
	SubmissionID     string             `json:"submission_id"`
	Exam             Exam               `json:"exam"`
	Student          *User              `json:"student,omitempty"`
	Answers          map[string]string  `json:"answers"`
	SubjectiveScores map[string]float64 `json:"subjective_scores"`
	Feedback         map[string]string  `json:"feedback"`
	Score            float64            `json:"score"`
	IsReviewed       bool               `json:"is_reviewed"`
	SubmittedAt      time.Time          `json:"submitted_at"`
	Questions        []QuestionReview   `json:"questions"`
}

// SubmissionSummary is one row of the examiner's submission listing.
type SubmissionSummary struct {
	ID           string    `json:"id"`
	ExamID       string    `json:"exam_id"`
	ExamTitle    string    `json:"exam_title"`
	StudentName  string    `json:"student_name"`
	StudentEmail string    `json:"student_email"`
	Score        float64   `json:"score"`
	IsReviewed   bool      `json:"is_reviewed"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// Config holds runtime parameters set via CLI flags.
type Config struct {
	RescoreMode   ScoringMode
	SecureCookies bool
	BasePath      string // URL prefix for sub-path deployments
}

// QuestionImport is used for loading exam questions from JSON.
type QuestionImport struct {
	Type          QuestionType `json:"type"`
	Text          string       `json:"text"`
	Options       []string     `json:"options,omitempty"`
	CorrectOption string       `json:"correct_option,omitempty"`
}

// ExamImport is used for loading exam definitions from JSON.
type ExamImport struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Subject     string           `json:"subject"`
	ExamDate    time.Time        `json:"exam_date"`
	Duration    int              `json:"duration"`
	Questions   []QuestionImport `json:"questions"`
}
