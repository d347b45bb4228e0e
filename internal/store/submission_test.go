package store

import (
	"context"
	"errors"
	"testing"

	"github.com/rsinha/examportal/internal/model"
)

// seedSubmission creates a user, an exam, and one submission; returns the
// store ids plus the exam's subjective question id.
func seedSubmission(t *testing.T, s *Store) (submissionID, examID, questionID string) {
	t.Helper()
	ctx := context.Background()
	examiner := seedUser(t, s, "examiner@test.com", model.RoleExaminer)
	student := seedUser(t, s, "student@test.com", model.RoleStudent)

	examID, err := s.CreateExam(ctx, sampleExam(examiner))
	if err != nil {
		t.Fatalf("CreateExam failed: %v", err)
	}
	ex, err := s.GetExam(ctx, examID)
	if err != nil || ex == nil {
		t.Fatalf("GetExam failed: %v", err)
	}
	questionID = ex.Questions[1].ID

	submissionID, err = s.CreateSubmission(ctx, model.Submission{
		UserID: student,
		ExamID: examID,
		Answers: map[string]string{
			ex.Questions[0].ID: "1",
			questionID:         "a thread shares its process's address space",
		},
		Score: 1,
	})
	if err != nil {
		t.Fatalf("CreateSubmission failed: %v", err)
	}
	return submissionID, examID, questionID
}

func TestCreateSubmissionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	submissionID, examID, questionID := seedSubmission(t, s)

	sub, err := s.GetSubmission(ctx, submissionID)
	if err != nil {
		t.Fatalf("GetSubmission failed: %v", err)
	}
	if sub == nil {
		t.Fatal("expected submission, got nil")
	}
	if sub.ExamID != examID {
		t.Errorf("exam_id = %q, want %q", sub.ExamID, examID)
	}
	if sub.Score != 1 {
		t.Errorf("score = %v, want 1", sub.Score)
	}
	if sub.IsReviewed {
		t.Error("new submission should not be reviewed")
	}
	if len(sub.Answers) != 2 {
		t.Errorf("got %d answers, want 2", len(sub.Answers))
	}
	if sub.Answers[questionID] == "" {
		t.Error("subjective answer missing")
	}
	if len(sub.SubjectiveScores) != 0 || len(sub.Feedback) != 0 {
		t.Error("new submission should have no manual scores or feedback")
	}
}

func TestCreateSubmissionDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	submissionID, examID, _ := seedSubmission(t, s)

	sub, err := s.GetSubmission(ctx, submissionID)
	if err != nil || sub == nil {
		t.Fatalf("GetSubmission failed: %v", err)
	}

	_, err = s.CreateSubmission(ctx, model.Submission{
		UserID:  sub.UserID,
		ExamID:  examID,
		Answers: map[string]string{"q": "other"},
		Score:   5,
	})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("got %v, want ErrDuplicate", err)
	}

	// The original submission is untouched.
	again, err := s.GetSubmissionByUserExam(ctx, sub.UserID, examID)
	if err != nil {
		t.Fatalf("GetSubmissionByUserExam failed: %v", err)
	}
	if again == nil || again.ID != submissionID || again.Score != 1 {
		t.Errorf("original submission changed: %+v", again)
	}
}

func TestApplyManualScoresAdditive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	submissionID, _, questionID := seedSubmission(t, s)

	batch := map[string]float64{questionID: 5}
	feedback := map[string]string{questionID: "good answer"}

	sub, err := s.ApplyManualScores(ctx, submissionID, batch, feedback, model.ScoringAdditive)
	if err != nil {
		t.Fatalf("ApplyManualScores failed: %v", err)
	}
	if sub.Score != 6 {
		t.Errorf("score = %v, want 6", sub.Score)
	}
	if !sub.IsReviewed {
		t.Error("submission should be marked reviewed")
	}
	if sub.SubjectiveScores[questionID] != 5 {
		t.Errorf("per-question score = %v, want 5", sub.SubjectiveScores[questionID])
	}
	if sub.Feedback[questionID] != "good answer" {
		t.Errorf("feedback = %q", sub.Feedback[questionID])
	}

	// Re-sending the identical batch counts it a second time.
	sub, err = s.ApplyManualScores(ctx, submissionID, batch, feedback, model.ScoringAdditive)
	if err != nil {
		t.Fatalf("ApplyManualScores failed: %v", err)
	}
	if sub.Score != 11 {
		t.Errorf("score after re-send = %v, want 11", sub.Score)
	}
	if sub.SubjectiveScores[questionID] != 5 {
		t.Errorf("per-question score = %v, want 5", sub.SubjectiveScores[questionID])
	}
}

func TestApplyManualScoresOverwrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	submissionID, _, questionID := seedSubmission(t, s)

	batch := map[string]float64{questionID: 5}
	sub, err := s.ApplyManualScores(ctx, submissionID, batch, nil, model.ScoringOverwrite)
	if err != nil {
		t.Fatalf("ApplyManualScores failed: %v", err)
	}
	if sub.Score != 6 {
		t.Errorf("score = %v, want 6", sub.Score)
	}

	// Re-sending the same value is a no-op on the total.
	sub, err = s.ApplyManualScores(ctx, submissionID, batch, nil, model.ScoringOverwrite)
	if err != nil {
		t.Fatalf("ApplyManualScores failed: %v", err)
	}
	if sub.Score != 6 {
		t.Errorf("score after re-send = %v, want 6", sub.Score)
	}

	// A correction moves the total by the difference.
	sub, err = s.ApplyManualScores(ctx, submissionID, map[string]float64{questionID: 3}, nil, model.ScoringOverwrite)
	if err != nil {
		t.Fatalf("ApplyManualScores failed: %v", err)
	}
	if sub.Score != 4 {
		t.Errorf("score after correction = %v, want 4", sub.Score)
	}
	if sub.SubjectiveScores[questionID] != 3 {
		t.Errorf("per-question score = %v, want 3", sub.SubjectiveScores[questionID])
	}
}

func TestApplyManualScoresEmptyBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	submissionID, _, _ := seedSubmission(t, s)

	sub, err := s.ApplyManualScores(ctx, submissionID, nil, nil, model.ScoringAdditive)
	if err != nil {
		t.Fatalf("ApplyManualScores failed: %v", err)
	}
	if sub.Score != 1 {
		t.Errorf("score = %v, want unchanged 1", sub.Score)
	}
	if !sub.IsReviewed {
		t.Error("empty batch must still mark the submission reviewed")
	}
}

func TestApplyManualScoresFeedbackOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	submissionID, _, questionID := seedSubmission(t, s)

	sub, err := s.ApplyManualScores(ctx, submissionID, nil,
		map[string]string{questionID: "see chapter 3"}, model.ScoringAdditive)
	if err != nil {
		t.Fatalf("ApplyManualScores failed: %v", err)
	}
	if sub.Score != 1 {
		t.Errorf("feedback must not change the score: got %v", sub.Score)
	}
	if sub.Feedback[questionID] != "see chapter 3" {
		t.Errorf("feedback = %q", sub.Feedback[questionID])
	}
}

func TestApplyManualScoresMissingSubmission(t *testing.T) {
	s := newTestStore(t)

	sub, err := s.ApplyManualScores(context.Background(), "missing",
		map[string]float64{"q": 1}, nil, model.ScoringAdditive)
	if err != nil {
		t.Fatalf("ApplyManualScores failed: %v", err)
	}
	if sub != nil {
		t.Errorf("expected nil for missing submission, got %+v", sub)
	}
}

func TestListSubmissions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	submissionID, examID, _ := seedSubmission(t, s)

	sub, err := s.GetSubmission(ctx, submissionID)
	if err != nil || sub == nil {
		t.Fatalf("GetSubmission failed: %v", err)
	}

	byUser, err := s.ListSubmissionsByUser(ctx, sub.UserID)
	if err != nil {
		t.Fatalf("ListSubmissionsByUser failed: %v", err)
	}
	if len(byUser) != 1 || byUser[0].ID != submissionID {
		t.Errorf("ListSubmissionsByUser = %+v", byUser)
	}

	summaries, err := s.ListSubmissionSummaries(ctx)
	if err != nil {
		t.Fatalf("ListSubmissionSummaries failed: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("got %d summaries, want 1", len(summaries))
	}
	sm := summaries[0]
	if sm.ID != submissionID || sm.ExamID != examID {
		t.Errorf("summary ids = %+v", sm)
	}
	if sm.ExamTitle != "Operating Systems" {
		t.Errorf("exam title = %q", sm.ExamTitle)
	}
	if sm.StudentEmail != "student@test.com" {
		t.Errorf("student email = %q", sm.StudentEmail)
	}
}
