package dig_container

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/mathinsight/apps/api/echo"
	"github.com/trezcool/mathinsight/core"
	"github.com/trezcool/mathinsight/core/attempt"
	"github.com/trezcool/mathinsight/core/quiz"
	"github.com/trezcool/mathinsight/core/report"
	"github.com/trezcool/mathinsight/core/roster"
	"github.com/trezcool/mathinsight/core/user"
	emailsvc "github.com/trezcool/mathinsight/services/email"
	logsvc "github.com/trezcool/mathinsight/services/logger"
	metricsvc "github.com/trezcool/mathinsight/services/metrics"
	"github.com/trezcool/mathinsight/storage/database"
	dummydb "github.com/trezcool/mathinsight/storage/database/dummy"
	sqlxrepos "github.com/trezcool/mathinsight/storage/database/sqlx"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// Storage is everything the services need from the configured engine.
	Storage struct {
		dig.Out
		Closer   io.Closer
		Tx       core.Transactor
		Users    user.Repository
		Students roster.Repository
		Quizzes  quiz.Repository
		Attempts attempt.Repository
	}

	// Shutdown receives OS signals and server-side shutdown requests.
	Shutdown chan os.Signal

	serverParams struct {
		dig.In
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Metrics    *metricsvc.Metrics
		Shutdown   Shutdown
		UserSvc    *user.Service
		RosterSvc  *roster.Service
		QuizSvc    *quiz.Service
		AttemptSvc *attempt.Service
		ReportSvc  *report.Service
	}

	closerFunc func() error
)

func (f closerFunc) Close() error { return f() }

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newStorage(conf *core.Config, loggerParam DBLoggerParam) Storage {
	if conf.IsInMemory() {
		db, err := dummydb.Open()
		if err != nil {
			loggerParam.Logger.Fatal(fmt.Sprintf("setting up in-memory store: %v", err), err)
		}
		loggerParam.Logger.Warn("running on the in-memory store: data is lost on restart")
		return Storage{
			Closer:   closerFunc(func() error { return nil }),
			Tx:       dummydb.NewTransactor(db),
			Users:    dummydb.NewUserRepository(db),
			Students: dummydb.NewStudentRepository(db),
			Quizzes:  dummydb.NewQuizRepository(db),
			Attempts: dummydb.NewAttemptRepository(db),
		}
	}

	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB, "up"); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return Storage{
		Closer:   db,
		Tx:       database.NewTransactor(db),
		Users:    sqlxrepos.NewUserRepository(db),
		Students: sqlxrepos.NewStudentRepository(db),
		Quizzes:  sqlxrepos.NewQuizRepository(db),
		Attempts: sqlxrepos.NewAttemptRepository(db),
	}
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	quiz.InitValidators(validate, translator)
	return validate, translator
}

func newShutdown() Shutdown {
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	return shutdown
}

func newServer(p serverParams) echoapi.Server {
	return echoapi.NewServer(&echoapi.Options{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Validate:   p.Validate,
		Translator: p.Translator,
		Metrics:    p.Metrics,
		SignalShutdown: func() {
			select {
			case p.Shutdown <- syscall.SIGTERM:
			default: // already shutting down
			}
		},
		UserSvc:    p.UserSvc,
		RosterSvc:  p.RosterSvc,
		QuizSvc:    p.QuizSvc,
		AttemptSvc: p.AttemptSvc,
		ReportSvc:  p.ReportSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(newEmailService))
	must(c.Provide(newValidator))
	must(c.Provide(metricsvc.New))
	must(c.Provide(newShutdown))

	must(c.Provide(user.NewService))
	must(c.Provide(roster.NewService))
	must(c.Provide(quiz.NewService))
	must(c.Provide(attempt.NewService))
	must(c.Provide(report.NewService))

	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
