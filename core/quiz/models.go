package quiz

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mathinsight/core"
	"github.com/trezcool/mathinsight/core/access"
)

// Option is one of the four answer letters.
type Option string

const (
	OptionA Option = "A"
	OptionB Option = "B"
	OptionC Option = "C"
	OptionD Option = "D"
)

var Options = []Option{OptionA, OptionB, OptionC, OptionD}

func (o Option) Valid() bool {
	for _, opt := range Options {
		if o == opt {
			return true
		}
	}
	return false
}

type Quiz struct {
	ID               int64      `json:"id" db:"id"`
	Title            string     `json:"title" db:"title"`
	Description      string     `json:"description" db:"description"`
	TeacherID        int64      `json:"teacher_id" db:"teacher_id"`
	TeacherName      string     `json:"teacher_name" db:"teacher_name"`
	TimeLimitMinutes int        `json:"time_limit" db:"time_limit_minutes"`
	Deadline         time.Time  `json:"deadline" db:"deadline"` // UTC
	IsActive         bool       `json:"is_active" db:"is_active"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"` // UTC
	TotalQuestions   int        `json:"total_questions" db:"total_questions"`
	TotalMarks       int        `json:"total_marks" db:"total_marks"`
	Questions        []Question `json:"questions,omitempty" db:"-"`
}

func (q Quiz) Owners() access.Owners {
	return access.Owners{TeacherID: q.TeacherID}
}

// OpenAt reports whether the quiz accepts attempts at t.
func (q Quiz) OpenAt(t time.Time) bool {
	return q.IsActive && q.Deadline.After(t)
}

type Question struct {
	ID            int64  `json:"id" db:"id"`
	QuizID        int64  `json:"quiz_id" db:"quiz_id"`
	QuestionText  string `json:"question_text" db:"question_text"`
	OptionA       string `json:"option_a" db:"option_a"`
	OptionB       string `json:"option_b" db:"option_b"`
	OptionC       string `json:"option_c" db:"option_c"`
	OptionD       string `json:"option_d" db:"option_d"`
	CorrectOption Option `json:"correct_option,omitempty" db:"correct_option"`
	Marks         int    `json:"marks" db:"marks"`
}

// Redacted hides the correct option.
func (qn Question) Redacted() Question {
	qn.CorrectOption = ""
	return qn
}

// NewQuiz contains information needed to create a Quiz.
// Deadline accepts the layouts of ParseDeadline.
type NewQuiz struct {
	Title            string `json:"title" validate:"required,notblank,max=200"`
	Description      string `json:"description"`
	TimeLimitMinutes int    `json:"time_limit" validate:"required,min=1"`
	Deadline         string `json:"deadline" validate:"required,deadline,future"`
	IsActive         *bool  `json:"is_active"`
}

func (nq *NewQuiz) Validate(validate *validator.Validate) error {
	nq.Title = core.CleanString(nq.Title)
	nq.Description = core.CleanString(nq.Description)
	nq.Deadline = core.CleanString(nq.Deadline)
	return validate.Struct(nq)
}

// UpdateQuiz defines what information may be provided to modify an existing Quiz.
type UpdateQuiz struct {
	Title            *string `json:"title" validate:"omitempty,max=200"`
	Description      *string `json:"description"`
	TimeLimitMinutes *int    `json:"time_limit" validate:"omitempty,min=1"`
	Deadline         *string `json:"deadline" validate:"omitempty,deadline,future"`
	IsActive         *bool   `json:"is_active"`
}

func (uq *UpdateQuiz) Validate(validate *validator.Validate) error {
	if uq.Title != nil {
		if *uq.Title = core.CleanString(*uq.Title); *uq.Title == "" {
			return core.NewValidationError(nil, core.FieldError{Field: "title", Error: "title may not be blank"})
		}
	}
	if uq.Description != nil {
		*uq.Description = core.CleanString(*uq.Description)
	}
	if uq.TimeLimitMinutes != nil && *uq.TimeLimitMinutes < 1 {
		return core.NewValidationError(nil, core.FieldError{Field: "time_limit", Error: "time_limit must be 1 or greater"})
	}
	if uq.Deadline != nil {
		if *uq.Deadline = core.CleanString(*uq.Deadline); *uq.Deadline == "" {
			return core.NewValidationError(nil, core.FieldError{Field: "deadline", Error: "this field is required"})
		}
	}
	return validate.Struct(uq)
}

// NewQuestion contains information needed to add a Question to a Quiz.
type NewQuestion struct {
	QuestionText  string `json:"question_text" validate:"required,notblank"`
	OptionA       string `json:"option_a" validate:"required,notblank,max=200"`
	OptionB       string `json:"option_b" validate:"required,notblank,max=200"`
	OptionC       string `json:"option_c" validate:"required,notblank,max=200"`
	OptionD       string `json:"option_d" validate:"required,notblank,max=200"`
	CorrectOption Option `json:"correct_option" validate:"required,option"`
	Marks         *int   `json:"marks" validate:"omitempty,min=1"`
}

func (nq *NewQuestion) Validate(validate *validator.Validate) error {
	nq.QuestionText = core.CleanString(nq.QuestionText)
	nq.OptionA = core.CleanString(nq.OptionA)
	nq.OptionB = core.CleanString(nq.OptionB)
	nq.OptionC = core.CleanString(nq.OptionC)
	nq.OptionD = core.CleanString(nq.OptionD)
	nq.CorrectOption = Option(core.CleanString(string(nq.CorrectOption)))
	if nq.Marks != nil && *nq.Marks < 1 {
		return core.NewValidationError(nil, core.FieldError{Field: "marks", Error: "marks must be 1 or greater"})
	}
	return validate.Struct(nq)
}

type QueryFilter struct {
	IDs        []int64
	TeacherIDs []int64
	// OpenAt restricts to active quizzes whose deadline is after it.
	OpenAt time.Time
}

// OrderableFields lists the columns quizzes may be ordered by.
var OrderableFields = map[string]bool{
	"title":      true,
	"deadline":   true,
	"created_at": true,
	"is_active":  true,
}
