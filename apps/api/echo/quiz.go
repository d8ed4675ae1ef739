package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mathinsight/core/access"
	"github.com/trezcool/mathinsight/core/quiz"
)

func (s *server) registerQuizAPI(g *echo.Group, authed []echo.MiddlewareFunc) {
	qg := g.Group("/quizzes", authed...)
	manage := requireCapability(access.CapQuizManage)

	qg.GET("", s.queryQuizzes, manage)
	qg.POST("", s.createQuiz, manage)

	// detail endpoints
	qg.GET("/:id", s.retrieveQuiz, manage)
	qg.PATCH("/:id", s.updateQuiz, manage)
	qg.GET("/:id/questions", s.queryQuestions, requireCapability(access.CapQuestionView))
	qg.POST("/:id/questions", s.createQuestion, manage)
}

// Handlers

func (s *server) queryQuizzes(ctx echo.Context) error {
	teacher, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	quizzes, err := s.opts.QuizSvc.List(ctx.Request().Context(), teacher, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying quizzes")
	}
	return ctx.JSON(http.StatusOK, quizList(quizzes))
}

func (s *server) createQuiz(ctx echo.Context) error {
	teacher, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data quiz.NewQuiz
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuiz")
	}
	if err = data.Validate(s.opts.Validate); err != nil {
		return err
	}

	q, err := s.opts.QuizSvc.Create(ctx.Request().Context(), teacher, data)
	if err != nil {
		return errors.Wrap(err, "creating quiz")
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (s *server) retrieveQuiz(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	teacher, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	q, err := s.opts.QuizSvc.GetOwned(ctx.Request().Context(), teacher, id)
	if err != nil {
		return errors.Wrap(err, "getting quiz")
	}
	return ctx.JSON(http.StatusOK, q)
}

func (s *server) updateQuiz(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	teacher, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data quiz.UpdateQuiz
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateQuiz")
	}
	if err = data.Validate(s.opts.Validate); err != nil {
		return err
	}

	q, err := s.opts.QuizSvc.Update(ctx.Request().Context(), teacher, id, data)
	if err != nil {
		return errors.Wrap(err, "updating quiz")
	}
	return ctx.JSON(http.StatusOK, q)
}

func (s *server) queryQuestions(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	questions, err := s.opts.QuizSvc.Questions(ctx.Request().Context(), actor, id)
	if err != nil {
		return errors.Wrap(err, "querying questions")
	}
	if questions == nil {
		questions = []quiz.Question{}
	}
	return ctx.JSON(http.StatusOK, questions)
}

func (s *server) createQuestion(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	teacher, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data quiz.NewQuestion
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	if err = data.Validate(s.opts.Validate); err != nil {
		return err
	}

	qn, err := s.opts.QuizSvc.AddQuestion(ctx.Request().Context(), teacher, id, data)
	if err != nil {
		return errors.Wrap(err, "adding question")
	}
	return ctx.JSON(http.StatusCreated, qn)
}

func quizList(quizzes []quiz.Quiz) []quiz.Quiz {
	if quizzes == nil {
		return []quiz.Quiz{}
	}
	return quizzes
}
