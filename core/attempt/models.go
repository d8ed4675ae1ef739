package attempt

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mathinsight/core/access"
	"github.com/trezcool/mathinsight/core/quiz"
	"github.com/trezcool/mathinsight/core/score"
)

// Attempt is the single try of a student at a quiz.
// TotalMarks is the quiz total when the attempt started.
type Attempt struct {
	ID          int64     `json:"id" db:"id"`
	QuizID      int64     `json:"quiz_id" db:"quiz_id"`
	StudentID   int64     `json:"student_id" db:"student_id"`
	ParentID    int64     `json:"parent_id" db:"parent_id"`
	Score       int       `json:"score" db:"score"`
	TotalMarks  int       `json:"total_marks" db:"total_marks"`
	AttemptedAt time.Time `json:"attempted_at" db:"attempted_at"` // UTC
	CompletedAt null.Time `json:"completed_at" db:"completed_at"` // UTC
	IsCompleted bool      `json:"is_completed" db:"is_completed"`
	QuizTitle   string    `json:"quiz_title" db:"quiz_title"`
	StudentName string    `json:"student_name" db:"student_name"`
}

func (a Attempt) Owners() access.Owners {
	return access.Owners{ParentID: a.ParentID}
}

func (a Attempt) Percentage() float64 {
	return score.Percentage(a.Score, a.TotalMarks)
}

func (a Attempt) Sample() score.Sample {
	return score.Sample{Score: a.Score, TotalMarks: a.TotalMarks, At: a.AttemptedAt}
}

// Answer is the option chosen for one question of an attempt.
// IsCorrect is computed when the answer is written.
type Answer struct {
	ID             int64       `json:"id" db:"id"`
	AttemptID      int64       `json:"attempt_id" db:"attempt_id"`
	QuestionID     int64       `json:"question" db:"question_id"`
	SelectedOption quiz.Option `json:"selected_option" db:"selected_option"`
	IsCorrect      bool        `json:"is_correct" db:"is_correct"`
	QuestionText   string      `json:"question_text" db:"question_text"`
	CorrectOption  quiz.Option `json:"correct_option" db:"correct_option"`
	Marks          int         `json:"marks" db:"marks"`
}

// StartRequest is the payload starting an attempt.
// A missing StudentID is reported by Service.Start once the quiz checks pass.
type StartRequest struct {
	StudentID int64 `json:"student_id"`
}

type AnswerInput struct {
	QuestionID     int64       `json:"question_id" validate:"required"`
	SelectedOption quiz.Option `json:"selected_option" validate:"required,option"`
}

// Submission is the batch of answers completing an attempt.
// Like StartRequest, a missing StudentID is left to the service.
type Submission struct {
	StudentID int64         `json:"student_id"`
	Answers   []AnswerInput `json:"answers" validate:"required,min=1,dive"`
}

func (s *Submission) Validate(validate *validator.Validate) error {
	return validate.Struct(s)
}

// Result is a completed attempt with its answers.
type Result struct {
	AttemptID   int64     `json:"attempt_id"`
	QuizTitle   string    `json:"quiz_title"`
	StudentName string    `json:"student_name"`
	Score       int       `json:"score"`
	TotalMarks  int       `json:"total_marks"`
	Percentage  float64   `json:"percentage"`
	AttemptedAt time.Time `json:"attempted_at"`
	CompletedAt null.Time `json:"completed_at"`
	Answers     []Answer  `json:"answers"`
}

func NewResult(a Attempt, answers []Answer) Result {
	if answers == nil {
		answers = []Answer{}
	}
	return Result{
		AttemptID:   a.ID,
		QuizTitle:   a.QuizTitle,
		StudentName: a.StudentName,
		Score:       a.Score,
		TotalMarks:  a.TotalMarks,
		Percentage:  a.Percentage(),
		AttemptedAt: a.AttemptedAt,
		CompletedAt: a.CompletedAt,
		Answers:     answers,
	}
}

type GetFilter struct {
	ID        int64
	QuizID    int64
	StudentID int64
	ParentID  int64
}

type QueryFilter struct {
	QuizID     int64
	StudentIDs []int64
	Completed  *bool
}
