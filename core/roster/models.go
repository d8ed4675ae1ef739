package roster

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mathinsight/core"
	"github.com/trezcool/mathinsight/core/access"
)

// Student belongs to exactly one teacher and one parent.
// ParentName and ParentEmail are copied from the enrollment request.
type Student struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	ClassName   string    `json:"class_name" db:"class_name"`
	TeacherID   int64     `json:"teacher_id" db:"teacher_id"`
	ParentID    int64     `json:"parent_id" db:"parent_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
	TeacherName string    `json:"teacher_name" db:"teacher_name"`
	ParentName  string    `json:"parent_name" db:"parent_name"`
	ParentEmail string    `json:"parent_email" db:"parent_email"`
}

func (s Student) Owners() access.Owners {
	return access.Owners{TeacherID: s.TeacherID, ParentID: s.ParentID}
}

// NewStudent contains information needed to enroll a student.
type NewStudent struct {
	Name        string `json:"name" validate:"required,notblank,max=100"`
	ClassName   string `json:"class_name" validate:"required,notblank,max=50"`
	ParentEmail string `json:"parent_email" validate:"required,email"`
	ParentName  string `json:"parent_name" validate:"max=150"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.ClassName = core.CleanString(ns.ClassName)
	ns.ParentEmail = core.CleanString(ns.ParentEmail, true /* lower */)
	ns.ParentName = core.CleanString(ns.ParentName)
	return validate.Struct(ns)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// ParentName and ParentEmail are the copies stored on the student; the parent account is left untouched.
type UpdateStudent struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	ClassName   *string `json:"class_name" validate:"omitempty,max=50"`
	ParentName  *string `json:"parent_name" validate:"omitempty,max=150"`
	ParentEmail *string `json:"parent_email" validate:"omitempty,email"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	var blanks []core.FieldError
	if us.Name != nil {
		if *us.Name = core.CleanString(*us.Name); *us.Name == "" {
			blanks = append(blanks, core.FieldError{Field: "name", Error: "name may not be blank"})
		}
	}
	if us.ClassName != nil {
		if *us.ClassName = core.CleanString(*us.ClassName); *us.ClassName == "" {
			blanks = append(blanks, core.FieldError{Field: "class_name", Error: "class_name may not be blank"})
		}
	}
	if us.ParentName != nil {
		*us.ParentName = core.CleanString(*us.ParentName)
	}
	if us.ParentEmail != nil {
		if *us.ParentEmail = core.CleanString(*us.ParentEmail, true /* lower */); *us.ParentEmail == "" {
			blanks = append(blanks, core.FieldError{Field: "parent_email", Error: "parent_email may not be blank"})
		}
	}
	if len(blanks) > 0 {
		return core.NewValidationError(nil, blanks...)
	}
	return validate.Struct(us)
}

type QueryFilter struct {
	IDs       []int64
	TeacherID int64
	ParentID  int64
}
