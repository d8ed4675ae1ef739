package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mathinsight/core"
	"github.com/trezcool/mathinsight/core/roster"
	"github.com/trezcool/mathinsight/core/user"
	emailsvc "github.com/trezcool/mathinsight/services/email"
	logsvc "github.com/trezcool/mathinsight/services/logger"
	"github.com/trezcool/mathinsight/storage/database"
	dummydb "github.com/trezcool/mathinsight/storage/database/dummy"
	sqlxrepos "github.com/trezcool/mathinsight/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")

	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(logger)

	cli := commandLine{
		validate: validate,
		out:      os.Stdout,
	}
	var (
		tx       core.Transactor
		usrRepo  user.Repository
		students roster.Repository
	)
	if conf.IsInMemory() {
		db, err := dummydb.Open()
		errAndDie(logger, err)
		tx, usrRepo, students = dummydb.NewTransactor(db), dummydb.NewUserRepository(db), dummydb.NewStudentRepository(db)
	} else {
		errAndDie(logger, database.CreateIfNotExist(conf))
		db, err := database.Open(conf)
		errAndDie(logger, err)
		defer func(db *sql.DB) { _ = db.Close() }(db.DB)

		cli.db = db.DB
		tx, usrRepo, students = database.NewTransactor(db), sqlxrepos.NewUserRepository(db), sqlxrepos.NewStudentRepository(db)
	}
	cli.usrSvc = user.NewService(conf, usrRepo, emailsvc.NewConsoleService(conf, logger), logger)
	cli.rosterSvc = roster.NewService(tx, students, cli.usrSvc)

	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("\nerror: %s\n", err), err)
		}
		os.Exit(1)
	}
}

func errAndDie(logger core.Logger, err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
