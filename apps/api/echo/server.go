package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/mathinsight/core"
	"github.com/trezcool/mathinsight/core/attempt"
	"github.com/trezcool/mathinsight/core/quiz"
	"github.com/trezcool/mathinsight/core/report"
	"github.com/trezcool/mathinsight/core/roster"
	"github.com/trezcool/mathinsight/core/user"
	metricsvc "github.com/trezcool/mathinsight/services/metrics"
)

type (
	Options struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		Metrics        *metricsvc.Metrics
		SignalShutdown func()

		UserSvc    *user.Service
		RosterSvc  *roster.Service
		QuizSvc    *quiz.Service
		AttemptSvc *attempt.Service
		ReportSvc  *report.Service
	}

	Server interface {
		http.Handler
		Start() error
		Shutdown(context.Context) error
		Close() error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	if opts.SignalShutdown == nil {
		opts.SignalShutdown = func() {}
	}
	if opts.Metrics == nil {
		opts.Metrics = metricsvc.New()
	}
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.New().String() },
	}))
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(metricsMiddleware(s.opts.Metrics))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.opts.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	g := s.app.Group("/api")
	authed := []echo.MiddlewareFunc{middleware.JWTWithConfig(newJWTConfig(conf)), ctxUserMiddleware(s.opts.UserSvc)}

	s.registerUserAPI(g, authed)
	s.registerStudentAPI(g, authed)
	s.registerQuizAPI(g, authed)
	s.registerAttemptAPI(g, authed)
	s.registerScoreAPI(g, authed)
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Conf.Server.Address())
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.opts.Conf.AppName+" API!")
}
