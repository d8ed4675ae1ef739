package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mathinsight/core"
	"github.com/trezcool/mathinsight/core/access"
	"github.com/trezcool/mathinsight/core/roster"
	"github.com/trezcool/mathinsight/core/user"
)

func (s *server) registerUserAPI(g *echo.Group, authed []echo.MiddlewareFunc) {
	ug := g.Group("/auth")

	// un-authed endpoints
	// TODO: rate limit `/login`, `/password-reset` & `/password-reset-confirm`
	ug.POST("/register", s.register)
	ug.POST("/login", s.login)
	ug.POST("/password-reset", s.resetPassword)
	ug.POST("/password-reset-confirm", s.confirmPasswordReset)

	// authed endpoints
	ag := ug.Group("", authed...)
	ag.GET("/me", s.me, requireCapability(access.CapProfileView))
	ag.PATCH("/me", s.updateMe, requireCapability(access.CapProfileView))
	ag.POST("/token-refresh", s.tokenRefresh)

	tg := g.Group("/teachers/:id", authed...)
	tg.GET("", s.retrieveTeacher, requireCapability(access.CapTeacherView))
	tg.GET("/students", s.queryTeacherStudents, requireCapability(access.CapStudentManage))

	pg := g.Group("/parent", authed...)
	pg.GET("/me", s.me, requireCapability(access.CapChildrenView))
	pg.GET("/children", s.queryChildren, requireCapability(access.CapChildrenView))
}

// Handlers

func (s *server) register(ctx echo.Context) error {
	var data user.NewTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeacher")
	}
	if err := data.Validate(ctx.Request().Context(), s.opts.Validate, s.opts.UserSvc); err != nil {
		return err
	}

	usr, err := s.opts.UserSvc.RegisterTeacher(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering teacher")
	}
	token, err := s.issueToken(usr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, LoginResponse{Token: token, User: usr})
}

func (s *server) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	usr, err := s.opts.UserSvc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		if errors.Cause(err) == user.ErrAuthenticationFailed {
			return core.NewValidationError(err)
		}
		return errors.Wrap(err, "authenticating")
	}
	token, err := s.issueToken(usr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: usr})
}

func (s *server) tokenRefresh(ctx echo.Context) error {
	token, err := s.refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	usr, _ := getContextUser(ctx)
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: usr})
}

func (s *server) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	err := s.opts.UserSvc.RequestPasswordReset(ctx.Request().Context(), data.Email)
	if !(err == nil || errors.Cause(err) == user.ErrNotFound) {
		// do not return errors to attackers
		s.opts.Logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (s *server) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(ctx.Request().Context(), s.opts.Validate, s.opts.UserSvc); err != nil {
		return err
	}

	if _, err := s.opts.UserSvc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (s *server) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (s *server) updateMe(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data user.UpdateProfile
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	if err = data.Validate(usr, s.opts.Validate); err != nil {
		return err
	}

	usr, err = s.opts.UserSvc.UpdateProfile(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, usr)
}

// retrieveTeacher shows a teacher to themselves or to a parent of one of their students.
func (s *server) retrieveTeacher(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	if actor.IsTeacher() {
		if id != actor.ID {
			return access.ErrPermissionDenied
		}
		return ctx.JSON(http.StatusOK, actor)
	}

	children, err := s.opts.RosterSvc.Children(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "querying children")
	}
	for _, child := range children {
		if child.TeacherID == id {
			teacher, err := s.opts.UserSvc.GetTeacher(ctx.Request().Context(), id)
			if err != nil {
				return errors.Wrap(err, "finding teacher")
			}
			return ctx.JSON(http.StatusOK, teacher)
		}
	}
	return user.ErrNotFound
}

func (s *server) queryTeacherStudents(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	students, err := s.opts.RosterSvc.ListByTeacherID(ctx.Request().Context(), actor, id)
	if err != nil {
		return errors.Wrap(err, "querying teacher students")
	}
	return ctx.JSON(http.StatusOK, studentList(students))
}

func (s *server) queryChildren(ctx echo.Context) error {
	parent, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	children, err := s.opts.RosterSvc.Children(ctx.Request().Context(), parent)
	if err != nil {
		return errors.Wrap(err, "querying children")
	}
	return ctx.JSON(http.StatusOK, studentList(children))
}

func studentList(students []roster.Student) []roster.Student {
	if students == nil {
		return []roster.Student{}
	}
	return students
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
