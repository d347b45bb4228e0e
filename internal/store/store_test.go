package store

import (
	"context"
	"errors"
	"testing"

	"github.com/rsinha/examportal/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedUser(t *testing.T, s *Store, email string, role model.Role) string {
	t.Helper()
	id, err := s.CreateUser(context.Background(), model.User{
		Name:         "Test User",
		Email:        email,
		PasswordHash: "x",
		Role:         role,
	})
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return id
}

func sampleExam(createdBy string) model.Exam {
	return model.Exam{
		Title:     "Operating Systems",
		Subject:   "CS",
		Duration:  60,
		CreatedBy: createdBy,
		Questions: []model.Question{
			{
				Type:          model.QuestionMCQ,
				Text:          "Which scheduler picks the next runnable process?",
				Options:       []string{"Long-term", "Short-term", "Medium-term", "I/O"},
				CorrectOption: "1",
			},
			{
				Type: model.QuestionShort,
				Text: "Explain the difference between a process and a thread.",
			},
		},
	}
}

func TestCreateAndGetExam(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	examiner := seedUser(t, s, "examiner@test.com", model.RoleExaminer)

	id, err := s.CreateExam(ctx, sampleExam(examiner))
	if err != nil {
		t.Fatalf("CreateExam failed: %v", err)
	}

	ex, err := s.GetExam(ctx, id)
	if err != nil {
		t.Fatalf("GetExam failed: %v", err)
	}
	if ex == nil {
		t.Fatal("expected exam, got nil")
	}
	if ex.Title != "Operating Systems" {
		t.Errorf("title = %q, want %q", ex.Title, "Operating Systems")
	}
	if ex.CreatedBy != examiner {
		t.Errorf("created_by = %q, want %q", ex.CreatedBy, examiner)
	}
	if len(ex.Questions) != 2 {
		t.Fatalf("got %d questions, want 2", len(ex.Questions))
	}
	if ex.Questions[0].Type != model.QuestionMCQ || ex.Questions[1].Type != model.QuestionShort {
		t.Error("questions not returned in position order")
	}
	if len(ex.Questions[0].Options) != 4 {
		t.Errorf("got %d options, want 4", len(ex.Questions[0].Options))
	}
	if ex.Questions[0].CorrectOption != "1" {
		t.Errorf("correct option = %q, want %q", ex.Questions[0].CorrectOption, "1")
	}
	if ex.Questions[0].ID == "" || ex.Questions[1].ID == "" {
		t.Error("question ids should be generated")
	}
}

func TestGetExamNotFound(t *testing.T) {
	s := newTestStore(t)

	ex, err := s.GetExam(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetExam failed: %v", err)
	}
	if ex != nil {
		t.Errorf("expected nil for missing exam, got %+v", ex)
	}
}

func TestListExams(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	examiner := seedUser(t, s, "examiner@test.com", model.RoleExaminer)

	first := sampleExam(examiner)
	second := sampleExam(examiner)
	second.Title = "Networking"
	if _, err := s.CreateExam(ctx, first); err != nil {
		t.Fatalf("CreateExam failed: %v", err)
	}
	if _, err := s.CreateExam(ctx, second); err != nil {
		t.Fatalf("CreateExam failed: %v", err)
	}

	exams, err := s.ListExams(ctx)
	if err != nil {
		t.Fatalf("ListExams failed: %v", err)
	}
	if len(exams) != 2 {
		t.Fatalf("got %d exams, want 2", len(exams))
	}
	titles := map[string]bool{}
	for _, ex := range exams {
		titles[ex.Title] = true
		if len(ex.Questions) != 2 {
			t.Errorf("exam %q: got %d questions, want 2", ex.Title, len(ex.Questions))
		}
	}
	if !titles["Operating Systems"] || !titles["Networking"] {
		t.Errorf("unexpected titles: %v", titles)
	}
}

func TestDeleteExam(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	examiner := seedUser(t, s, "examiner@test.com", model.RoleExaminer)

	id, err := s.CreateExam(ctx, sampleExam(examiner))
	if err != nil {
		t.Fatalf("CreateExam failed: %v", err)
	}
	if err := s.DeleteExam(ctx, id); err != nil {
		t.Fatalf("DeleteExam failed: %v", err)
	}

	ex, err := s.GetExam(ctx, id)
	if err != nil {
		t.Fatalf("GetExam failed: %v", err)
	}
	if ex != nil {
		t.Error("exam should be gone after delete")
	}
}

func TestUpdateAndDeleteQuestion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	examiner := seedUser(t, s, "examiner@test.com", model.RoleExaminer)

	id, err := s.CreateExam(ctx, sampleExam(examiner))
	if err != nil {
		t.Fatalf("CreateExam failed: %v", err)
	}
	ex, err := s.GetExam(ctx, id)
	if err != nil || ex == nil {
		t.Fatalf("GetExam failed: %v", err)
	}

	q := ex.Questions[0]
	q.Text = "Which scheduler dispatches the next process?"
	q.CorrectOption = "2"
	if err := s.UpdateQuestion(ctx, q); err != nil {
		t.Fatalf("UpdateQuestion failed: %v", err)
	}

	got, err := s.GetQuestion(ctx, id, q.ID)
	if err != nil {
		t.Fatalf("GetQuestion failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected question, got nil")
	}
	if got.Text != q.Text || got.CorrectOption != "2" {
		t.Errorf("update not persisted: %+v", got)
	}

	if err := s.DeleteQuestion(ctx, id, q.ID); err != nil {
		t.Fatalf("DeleteQuestion failed: %v", err)
	}
	got, err = s.GetQuestion(ctx, id, q.ID)
	if err != nil {
		t.Fatalf("GetQuestion failed: %v", err)
	}
	if got != nil {
		t.Error("question should be gone after delete")
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "dup@test.com", model.RoleStudent)
	_, err := s.CreateUser(ctx, model.User{
		Name:         "Another",
		Email:        "dup@test.com",
		PasswordHash: "x",
		Role:         model.RoleStudent,
	})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("got %v, want ErrDuplicate", err)
	}

	count, err := s.UserCount(ctx)
	if err != nil {
		t.Fatalf("UserCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("user count = %d, want 1", count)
	}
}

func TestGetUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := seedUser(t, s, "student@test.com", model.RoleStudent)

	byEmail, err := s.GetUserByEmail(ctx, "student@test.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if byEmail == nil || byEmail.ID != id {
		t.Errorf("GetUserByEmail = %+v, want id %q", byEmail, id)
	}

	byID, err := s.GetUserByID(ctx, id)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if byID == nil || byID.Email != "student@test.com" {
		t.Errorf("GetUserByID = %+v", byID)
	}

	missing, err := s.GetUserByEmail(ctx, "nobody@test.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown email")
	}
}

func TestMetadata(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.GetMetadata(ctx, "missing")
	if err != nil {
		t.Fatalf("GetMetadata failed: %v", err)
	}
	if got != "" {
		t.Errorf("got %q for missing key, want empty", got)
	}

	if err := s.SetMetadata(ctx, "k", "v1"); err != nil {
		t.Fatalf("SetMetadata failed: %v", err)
	}
	if err := s.SetMetadata(ctx, "k", "v2"); err != nil {
		t.Fatalf("SetMetadata upsert failed: %v", err)
	}
	got, err = s.GetMetadata(ctx, "k")
	if err != nil {
		t.Fatalf("GetMetadata failed: %v", err)
	}
	if got != "v2" {
		t.Errorf("got %q, want %q", got, "v2")
	}

	if err := s.SetImportedFileHash(ctx, "exams.json", "abc123"); err != nil {
		t.Fatalf("SetImportedFileHash failed: %v", err)
	}
	hash, err := s.GetImportedFileHash(ctx, "exams.json")
	if err != nil {
		t.Fatalf("GetImportedFileHash failed: %v", err)
	}
	if hash != "abc123" {
		t.Errorf("hash = %q, want %q", hash, "abc123")
	}
}
