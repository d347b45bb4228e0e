package store

import (
	"context"
	"fmt"

	"github.com/rsinha/examportal/internal/model"
)

// ExportAllSubmissions builds export-ready records for every submission,
// joined with exam and student context.
func (s *Store) ExportAllSubmissions(ctx context.Context) ([]model.SubmissionExport, error) {
	summaries, err := s.ListSubmissionSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	var results []model.SubmissionExport
	for _, sm := range summaries {
		sub, err := s.GetSubmission(ctx, sm.ID)
		if err != nil {
			return nil, fmt.Errorf("get submission %s: %w", sm.ID, err)
		}
		exam, err := s.GetExam(ctx, sm.ExamID)
		if err != nil {
			return nil, fmt.Errorf("get exam %s: %w", sm.ExamID, err)
		}

		rec := model.SubmissionExport{
			SubmissionID: sm.ID,
			ExamTitle:    sm.ExamTitle,
			StudentName:  sm.StudentName,
			StudentEmail: sm.StudentEmail,
			Score:        sm.Score,
			IsReviewed:   sm.IsReviewed,
			SubmittedAt:  sm.SubmittedAt,
		}
		if exam != nil {
			rec.Subject = exam.Subject
			for _, q := range exam.Questions {
				qe := model.QuestionExport{
					Text:          q.Text,
					Type:          q.Type,
					CorrectOption: q.CorrectOption,
					Answer:        sub.Answers[q.ID],
					Feedback:      sub.Feedback[q.ID],
				}
				if score, ok := sub.SubjectiveScores[q.ID]; ok {
					qe.ManualScore = &score
				}
				rec.Questions = append(rec.Questions, qe)
			}
		}
		results = append(results, rec)
	}

	return results, nil
}
