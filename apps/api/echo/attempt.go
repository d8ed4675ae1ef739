package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mathinsight/core"
	"github.com/trezcool/mathinsight/core/access"
	"github.com/trezcool/mathinsight/core/attempt"
)

func (s *server) registerAttemptAPI(g *echo.Group, authed []echo.MiddlewareFunc) {
	g.GET("/parent/quizzes", s.queryAvailableQuizzes, chain(authed, requireCapability(access.CapQuizBrowse))...)
	g.POST("/quizzes/:id/attempt", s.startAttempt, chain(authed, requireCapability(access.CapAttemptCreate))...)
	g.POST("/quizzes/:id/submit", s.submitAttempt, chain(authed, requireCapability(access.CapAttemptSubmit))...)
	g.GET("/quizzes/:id/results", s.queryResults, chain(authed, requireCapability(access.CapResultsView))...)
}

// Handlers

func (s *server) queryAvailableQuizzes(ctx echo.Context) error {
	parent, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	quizzes, err := s.opts.AttemptSvc.AvailableQuizzes(ctx.Request().Context(), parent)
	if err != nil {
		return errors.Wrap(err, "querying available quizzes")
	}
	return ctx.JSON(http.StatusOK, quizList(quizzes))
}

func (s *server) startAttempt(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	parent, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data attempt.StartRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StartRequest")
	}

	a, err := s.opts.AttemptSvc.Start(ctx.Request().Context(), parent, id, data)
	if err != nil {
		return errors.Wrap(err, "starting attempt")
	}
	s.opts.Metrics.AttemptStarted()
	return ctx.JSON(http.StatusCreated, a)
}

func (s *server) submitAttempt(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	parent, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data attempt.Submission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Submission")
	}
	if err = data.Validate(s.opts.Validate); err != nil {
		return err
	}

	res, err := s.opts.AttemptSvc.Submit(ctx.Request().Context(), parent, id, data)
	if err != nil {
		return errors.Wrap(err, "submitting attempt")
	}
	s.opts.Metrics.AttemptSubmitted(res.Percentage)
	return ctx.JSON(http.StatusOK, res)
}

// queryResults lists every completed attempt to the quiz owner; a parent names one child with ?student_id=.
func (s *server) queryResults(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	if actor.IsTeacher() {
		results, err := s.opts.AttemptSvc.TeacherResults(ctx.Request().Context(), actor, id)
		if err != nil {
			return errors.Wrap(err, "querying results")
		}
		if results == nil {
			results = []attempt.Result{}
		}
		return ctx.JSON(http.StatusOK, results)
	}

	var studentID int64
	if param := ctx.QueryParam("student_id"); param != "" {
		if studentID, err = strconv.ParseInt(param, 10, 64); err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "student_id must be an integer"})
		}
	}
	res, err := s.opts.AttemptSvc.ParentResult(ctx.Request().Context(), actor, id, studentID)
	if err != nil {
		return errors.Wrap(err, "getting result")
	}
	return ctx.JSON(http.StatusOK, res)
}
