package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mathinsight/core/access"
	"github.com/trezcool/mathinsight/core/roster"
)

func (s *server) registerStudentAPI(g *echo.Group, authed []echo.MiddlewareFunc) {
	sg := g.Group("/students", chain(authed, requireCapability(access.CapStudentManage))...)
	sg.GET("", s.queryStudents)
	sg.POST("", s.createStudent)

	// detail endpoints
	sg.GET("/:id", s.retrieveStudent)
	sg.PATCH("/:id", s.updateStudent)
	sg.DELETE("/:id", s.destroyStudent)
}

// Handlers

func (s *server) queryStudents(ctx echo.Context) error {
	teacher, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	students, err := s.opts.RosterSvc.List(ctx.Request().Context(), teacher)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, studentList(students))
}

func (s *server) createStudent(ctx echo.Context) error {
	teacher, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data roster.NewStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err = data.Validate(s.opts.Validate); err != nil {
		return err
	}

	student, err := s.opts.RosterSvc.Create(ctx.Request().Context(), teacher, data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, student)
}

func (s *server) retrieveStudent(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	teacher, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	student, err := s.opts.RosterSvc.Get(ctx.Request().Context(), teacher, id)
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	return ctx.JSON(http.StatusOK, student)
}

func (s *server) updateStudent(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	teacher, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data roster.UpdateStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err = data.Validate(s.opts.Validate); err != nil {
		return err
	}

	student, err := s.opts.RosterSvc.Update(ctx.Request().Context(), teacher, id, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, student)
}

func (s *server) destroyStudent(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	teacher, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	if err = s.opts.RosterSvc.Delete(ctx.Request().Context(), teacher, id); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}
