package auth

import "github.com/rsinha/examportal/internal/model"

// Op names an operation gated by the authorization policy.
type Op string

const (
	OpSubmitExam         Op = "submit_exam"
	OpScoreSubmission    Op = "score_submission"
	OpViewOwnResult      Op = "view_own_result"
	OpViewAnySubmission  Op = "view_any_submission"
	OpListAllSubmissions Op = "list_all_submissions"
	OpListOwnSubmissions Op = "list_own_submissions"
	OpListExams          Op = "list_exams"
	OpManageExams        Op = "manage_exams"
	OpSuggestFeedback    Op = "suggest_feedback"
)

// opRoles maps each operation to the roles allowed to perform it. The whole
// policy lives in this one table; handlers and services never check roles
// directly.
var opRoles = map[Op][]model.Role{
	OpSubmitExam:         {model.RoleStudent},
	OpScoreSubmission:    {model.RoleExaminer},
	OpViewOwnResult:      {model.RoleStudent},
	OpViewAnySubmission:  {model.RoleExaminer},
	OpListAllSubmissions: {model.RoleExaminer},
	OpListOwnSubmissions: {model.RoleStudent},
	OpListExams:          {model.RoleStudent, model.RoleExaminer},
	OpManageExams:        {model.RoleExaminer},
	OpSuggestFeedback:    {model.RoleExaminer},
}

// Allowed reports whether the identity may perform the operation. A nil
// identity is always denied.
func Allowed(u *model.User, op Op) bool {
	if u == nil {
		return false
	}
	for _, role := range opRoles[op] {
		if u.Role == role {
			return true
		}
	}
	return false
}
