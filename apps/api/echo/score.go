package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mathinsight/core/access"
)

func (s *server) registerScoreAPI(g *echo.Group, authed []echo.MiddlewareFunc) {
	scores := chain(authed, requireCapability(access.CapScoresView))
	g.GET("/scores/teacher/:teacher_id/students", s.queryStudentScores, scores...)
	g.GET("/scores/teacher/:teacher_id/student/:student_id", s.retrieveStudentScores, scores...)

	perf := chain(authed, requireCapability(access.CapPerformanceView))
	g.GET("/parent/performance", s.retrievePerformance, perf...)
	g.GET("/parent/performance/child/:id", s.retrieveChildPerformance, perf...)
	g.GET("/parent/performance/child/:id/quiz/:attempt_id", s.retrieveAttemptPerformance, perf...)
}

// Handlers

func (s *server) queryStudentScores(ctx echo.Context) error {
	teacherID, err := pathID(ctx, "teacher_id")
	if err != nil {
		return err
	}
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	summaries, err := s.opts.ReportSvc.TeacherStudents(ctx.Request().Context(), actor, teacherID)
	if err != nil {
		return errors.Wrap(err, "summarizing student scores")
	}
	return ctx.JSON(http.StatusOK, summaries)
}

func (s *server) retrieveStudentScores(ctx echo.Context) error {
	teacherID, err := pathID(ctx, "teacher_id")
	if err != nil {
		return err
	}
	studentID, err := pathID(ctx, "student_id")
	if err != nil {
		return err
	}
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	detail, err := s.opts.ReportSvc.TeacherStudentDetail(ctx.Request().Context(), actor, teacherID, studentID)
	if err != nil {
		return errors.Wrap(err, "getting student scores")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (s *server) retrievePerformance(ctx echo.Context) error {
	parent, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	overview, err := s.opts.ReportSvc.ParentOverview(ctx.Request().Context(), parent)
	if err != nil {
		return errors.Wrap(err, "getting performance overview")
	}
	return ctx.JSON(http.StatusOK, overview)
}

func (s *server) retrieveChildPerformance(ctx echo.Context) error {
	childID, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	parent, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	detail, err := s.opts.ReportSvc.ChildDetail(ctx.Request().Context(), parent, childID)
	if err != nil {
		return errors.Wrap(err, "getting child performance")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (s *server) retrieveAttemptPerformance(ctx echo.Context) error {
	childID, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	attemptID, err := pathID(ctx, "attempt_id")
	if err != nil {
		return err
	}
	parent, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	breakdown, err := s.opts.ReportSvc.ChildAttemptDetail(ctx.Request().Context(), parent, childID, attemptID)
	if err != nil {
		return errors.Wrap(err, "getting attempt breakdown")
	}
	return ctx.JSON(http.StatusOK, breakdown)
}
