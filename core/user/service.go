package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mathinsight/core"
)

const tempPasswordLen = 8

var (
	// errors
	ErrNotFound             = core.NewNotFoundError("user not found")
	ErrEmailExists          = errors.New("a user with this email already exists")
	ErrAuthenticationFailed = errors.New("invalid credentials")
	ErrAccountDeactivated   = core.NewPermissionError("account deactivated")
	ErrNotAParent           = errors.New("this email belongs to a non-parent account")

	errInvalidResetLink = errors.New("the reset link is invalid or has expired")
)

type (
	Repository interface {
		// CheckEmailUniqueness returns ErrEmailExists if email is taken by a user not in excludedUsers.
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []User, exec ...core.DBExecutor) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		// GetUser applies AND operation on non-zero GetFilter fields.
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		QueryUsersByID(ctx context.Context, ids []int64, exec ...core.DBExecutor) ([]User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		DeleteUsersByID(ctx context.Context, ids []int64, exec ...core.DBExecutor) (int64, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		tokens  tokenGenerator
		logger  core.Logger
	}

	// ParentAccount is what GetOrCreateParent returns.
	// TempPassword is only set when the account was just created.
	ParentAccount struct {
		User         User
		Created      bool
		TempPassword string
	}
)

func NewService(conf *core.Config, repo Repository, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		tokens: tokenGenerator{
			secretKey: []byte(conf.SecretKey),
			timeout:   conf.PasswordResetTimeoutDelta,
		},
		logger: logger,
	}
}

func (svc *Service) checkUniqueness(ctx context.Context, email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, exclUsers); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return errors.Wrap(err, "checking email uniqueness")
	}
	return nil
}

// RegisterTeacher creates a teacher account; the email doubles as the username.
func (svc *Service) RegisterTeacher(ctx context.Context, nt NewTeacher) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Username:    nt.Email,
		Email:       nt.Email,
		Role:        RoleTeacher,
		FirstName:   nt.FirstName,
		LastName:    nt.LastName,
		SchoolName:  null.NewString(nt.SchoolName, nt.SchoolName != ""),
		PhoneNumber: null.NewString(nt.PhoneNumber, nt.PhoneNumber != ""),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := usr.SetPassword(nt.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

// Authenticate checks the credentials and records the login time.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrAuthenticationFailed
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrAuthenticationFailed
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}
	usr.LastLogin = null.TimeFrom(time.Now().UTC())
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "setting last login")
}

func (svc *Service) GetByID(ctx context.Context, id int64, exec ...core.DBExecutor) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id}, exec...)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

// GetTeacher returns the teacher with the given id; any other user is reported as ErrNotFound.
func (svc *Service) GetTeacher(ctx context.Context, id int64) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id, Role: RoleTeacher})
}

// QueryByID returns users keyed by id.
func (svc *Service) QueryByID(ctx context.Context, ids []int64, exec ...core.DBExecutor) (map[int64]User, error) {
	users, err := svc.repo.QueryUsersByID(ctx, ids, exec...)
	if err != nil {
		return nil, errors.Wrap(err, "querying users by id")
	}
	byID := make(map[int64]User, len(users))
	for _, usr := range users {
		byID[usr.ID] = usr
	}
	return byID, nil
}

// GetOrCreateParent returns the parent account using email, creating it with a random
// temporary password when it does not exist. An existing non-parent account yields ErrNotAParent.
func (svc *Service) GetOrCreateParent(ctx context.Context, email, name string, exec ...core.DBExecutor) (ParentAccount, error) {
	email = core.CleanString(email, true /* lower */)

	usr, err := svc.repo.GetUser(ctx, GetFilter{Email: email}, exec...)
	if err == nil {
		if !usr.IsParent() {
			return ParentAccount{}, ErrNotAParent
		}
		return ParentAccount{User: usr}, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return ParentAccount{}, errors.Wrap(err, "finding parent by email")
	}

	tempPwd, err := core.RandomString(tempPasswordLen)
	if err != nil {
		return ParentAccount{}, errors.Wrap(err, "generating temporary password")
	}
	now := time.Now().UTC()
	usr = User{
		Username:  email,
		Email:     email,
		Role:      RoleParent,
		FirstName: core.CleanString(name),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = usr.SetPassword(tempPwd); err != nil {
		return ParentAccount{}, errors.Wrap(err, "setting password")
	}
	if usr, err = svc.repo.CreateUser(ctx, usr, exec...); err != nil {
		return ParentAccount{}, errors.Wrap(err, "creating parent")
	}
	return ParentAccount{User: usr, Created: true, TempPassword: tempPwd}, nil
}

// SendParentWelcome emails the login details of a freshly created parent account.
func (svc *Service) SendParentWelcome(acct ParentAccount, studentName string) {
	if !acct.Created {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: acct.User.FullName(), Address: acct.User.Email}},
		Subject:      "Your MathInsight Parent Account",
		TemplateName: "parent_account",
		TemplateData: map[string]interface{}{
			"ParentName":   acct.User.FullName(),
			"StudentName":  studentName,
			"Email":        acct.User.Email,
			"TempPassword": acct.TempPassword,
		},
	})
}

// UpdateProfile applies the validated changes to usr.
func (svc *Service) UpdateProfile(ctx context.Context, usr User, up UpdateProfile) (User, error) {
	if up.FirstName != nil {
		usr.FirstName = *up.FirstName
	}
	if up.LastName != nil {
		usr.LastName = *up.LastName
	}
	if up.SchoolName != nil {
		usr.SchoolName = null.NewString(*up.SchoolName, *up.SchoolName != "")
	}
	if up.PhoneNumber != nil {
		usr.PhoneNumber = null.NewString(*up.PhoneNumber, *up.PhoneNumber != "")
	}
	if up.Password != "" {
		if err := usr.SetPassword(up.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// SetPassword replaces the password of the user with the given email.
func (svc *Service) SetPassword(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) Delete(ctx context.Context, ids []int64, exec ...core.DBExecutor) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := svc.repo.DeleteUsersByID(ctx, ids, exec...)
	return err
}

// RequestPasswordReset mails a reset link to the active user owning email.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName(), Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"Name":  usr.FullName(),
			"UID":   EncodeUID(usr),
			"Token": svc.tokens.makeToken(usr),
		},
	})
	return nil
}

func (svc *Service) getUserFromUID(ctx context.Context, uid string) (User, error) {
	id, err := decodeUID(uid)
	if err != nil {
		return User{}, err
	}
	return svc.GetByID(ctx, id)
}

// ResetPassword sets a new password once the reset token is verified.
// ResetUserPassword must have been validated.
func (svc *Service) ResetPassword(ctx context.Context, rp ResetUserPassword) (User, error) {
	if err := svc.tokens.verifyToken(rp.usr, rp.Token); err != nil {
		return User{}, core.NewValidationError(errInvalidResetLink)
	}
	usr := rp.usr
	if err := usr.SetPassword(rp.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}
