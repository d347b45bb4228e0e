package model

import "time"

// ResultsExport is the top-level JSON structure for the export command.
type ResultsExport struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Results     []SubmissionExport `json:"results"`
}

// SubmissionExport holds one submission with full exam and student context.
type SubmissionExport struct {
	SubmissionID string           `json:"submission_id"`
	ExamTitle    string           `json:"exam_title"`
	Subject      string           `json:"subject"`
	StudentName  string           `json:"student_name"`
	StudentEmail string           `json:"student_email"`
	Score        float64          `json:"score"`
	IsReviewed   bool             `json:"is_reviewed"`
	SubmittedAt  time.Time        `json:"submitted_at"`
	Questions    []QuestionExport `json:"questions"`
}

// QuestionExport holds per-question data for export.
type QuestionExport struct {
	Text          string       `json:"text"`
	Type          QuestionType `json:"type"`
	CorrectOption string       `json:"correct_option,omitempty"`
	Answer        string       `json:"answer,omitempty"`
	ManualScore   *float64     `json:"manual_score,omitempty"`
	Feedback      string       `json:"feedback,omitempty"`
}
