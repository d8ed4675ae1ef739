package logsvc

import (
	"log"
	"strconv"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/mathinsight/core"
	"github.com/trezcool/mathinsight/core/user"
)

// RollbarLogger writes every entry to a standard logger and reports it to rollbar when enabled.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetEnabled(conf.RollbarToken != "")
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// prepare turns the args of a log call into rollbar's: the message first, then the errors and extras.
// The first user.User found becomes the rollbar person, with its role added to the extras.
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	out := []interface{}{msg}
	var person *user.User
	for _, arg := range args {
		usr, ok := arg.(user.User)
		switch {
		case !ok:
			out = append(out, arg)
		case person == nil:
			person = &usr
		}
	}

	if person == nil {
		rollbar.ClearPerson()
		return out
	}
	rollbar.SetPerson(strconv.FormatInt(person.ID, 10), person.Username, person.Email)
	return append(out, map[string]interface{}{"role": string(person.Role)})
}

func (l RollbarLogger) log(level, msg string, args []interface{}) {
	rollbar.Log(level, l.prepare(msg, args)...)
	l.std.Println(msg)
	for _, arg := range args {
		if _, ok := arg.(user.User); ok {
			continue
		}
		l.std.Printf("%+v\n", arg)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) { l.log(rollbar.DEBUG, msg, args) }

func (l RollbarLogger) Info(msg string, args ...interface{}) { l.log(rollbar.INFO, msg, args) }

func (l RollbarLogger) Warn(msg string, args ...interface{}) { l.log(rollbar.WARN, msg, args) }

func (l RollbarLogger) Error(msg string, args ...interface{}) { l.log(rollbar.ERR, msg, args) }

// Fatal reports msg as critical then exits.
func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(rollbar.CRIT, msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
