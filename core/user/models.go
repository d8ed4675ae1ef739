package user

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/mathinsight/core"
)

// Role is the closed set of user kinds.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleParent  Role = "parent"
)

var Roles = []Role{RoleTeacher, RoleParent}

func (r Role) Valid() bool {
	for _, role := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

type User struct {
	ID           int64       `json:"id" db:"id"`
	Username     string      `json:"username" db:"username"`
	Email        string      `json:"email" db:"email"`
	Role         Role        `json:"role" db:"role"`
	FirstName    string      `json:"first_name" db:"first_name"`
	LastName     string      `json:"last_name" db:"last_name"`
	SchoolName   null.String `json:"school_name" db:"school_name"`
	PhoneNumber  null.String `json:"-" db:"phone_number"`
	IsActive     bool        `json:"-" db:"is_active"`
	PasswordHash []byte      `json:"-" db:"password_hash"`
	CreatedAt    time.Time   `json:"-" db:"created_at"` // UTC
	UpdatedAt    time.Time   `json:"-" db:"updated_at"` // UTC
	LastLogin    null.Time   `json:"-" db:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u User) IsParent() bool  { return u.Role == RoleParent }

// FullName returns "first last", or the username when both are empty.
func (u User) FullName() string {
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return u.Username
}

// NewTeacher contains information needed to register a teacher.
type NewTeacher struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
	FirstName   string `json:"first_name" validate:"max=150"`
	LastName    string `json:"last_name" validate:"max=150"`
	SchoolName  string `json:"school_name" validate:"max=200"`
	PhoneNumber string `json:"phone_number" validate:"max=15"`
}

func (nt *NewTeacher) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nt.Email = core.CleanString(nt.Email, true /* lower */)
	nt.FirstName = core.CleanString(nt.FirstName)
	nt.LastName = core.CleanString(nt.LastName)
	nt.SchoolName = core.CleanString(nt.SchoolName)
	nt.PhoneNumber = core.CleanString(nt.PhoneNumber)

	if err := validate.Struct(nt); err != nil {
		return err
	}
	return svc.checkUniqueness(ctx, nt.Email)
}

// UpdateProfile defines what a user may change on their own account.
type UpdateProfile struct {
	FirstName       *string `json:"first_name" validate:"omitempty,max=150"`
	LastName        *string `json:"last_name" validate:"omitempty,max=150"`
	SchoolName      *string `json:"school_name" validate:"omitempty,max=200"`
	PhoneNumber     *string `json:"phone_number" validate:"omitempty,max=15"`
	Password        string  `json:"password" validate:"omitempty"`
	PasswordConfirm string  `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`

	usr User
}

func (up *UpdateProfile) Validate(usr User, validate *validator.Validate) error {
	clean := func(s *string) {
		if s != nil {
			*s = core.CleanString(*s)
		}
	}
	clean(up.FirstName)
	clean(up.LastName)
	clean(up.SchoolName)
	clean(up.PhoneNumber)
	up.usr = usr
	return validate.Struct(up)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`

	usr User
}

func (rp *ResetUserPassword) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	if err := validate.Var(rp.UID, "required"); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "uid", Error: "this field is required"})
	}
	usr, err := svc.getUserFromUID(ctx, rp.UID)
	if err != nil {
		return core.NewValidationError(errInvalidResetLink)
	}
	rp.usr = usr
	return validate.Struct(rp)
}

type GetFilter struct {
	ID    int64
	Email string
	Role  Role
}
