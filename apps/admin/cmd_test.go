package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mathinsight/core/user"
	"github.com/trezcool/mathinsight/tests"
)

func setup(t *testing.T) (*commandLine, *testutil.Env, *bytes.Buffer) {
	env := testutil.NewEnv(t)
	validate, _ := testutil.NewValidator()
	out := new(bytes.Buffer)

	// start CLI
	return &commandLine{
		db:        new(sql.DB), // never used: migrateFunc is mocked
		validate:  validate,
		usrSvc:    env.UserSvc,
		rosterSvc: env.RosterSvc,
		out:       out,
	}, env, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, errors.Cause(err))
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup(t)

	migrateFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "add_quiz_tags", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	t.Run("in-memory store", func(t *testing.T) {
		memCli := *cli
		memCli.db = nil
		assert.Equal(t, errNoDatabase, memCli.run([]string{"admin", "migrate", "up"}))
	})
}

type pwdExtra struct {
	pwd string
}

func mockPassword(tt cliTest) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		if extra, ok := tt.extra.(pwdExtra); ok {
			return []byte(extra.pwd), nil
		}
		return nil, nil
	}
}

func Test_commandLine_addTeacher(t *testing.T) {
	cli, env, out := setup(t)
	env.CreateTeacher(t, "taken@test.cd")

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no email", args: []string{"addteacher"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"addteacher", "-email", "new@test.cd"}, wantErr: errHelp},
		{name: "email taken", args: []string{"addteacher", "-email", "Taken@test.cd"}, extra: pwdExtra{pwd: "Str0ng-Pass"}, wantErrStr: user.ErrEmailExists.Error()},
		{
			name: "created", args: []string{"addteacher", "-email", "New@test.cd", "-first", "Ada", "-school", "Gombe"},
			extra: pwdExtra{pwd: "Str0ng-Pass"},
		},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		mockPassword(tt)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	usr, err := env.UserSvc.Authenticate(context.Background(), "new@test.cd", "Str0ng-Pass")
	require.NoError(t, err)
	assert.Equal(t, user.RoleTeacher, usr.Role)
	assert.Equal(t, "Ada", usr.FirstName)
	assert.Equal(t, "Gombe", usr.SchoolName.String)
	assert.Contains(t, out.String(), "teacher new@test.cd created")
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, env, _ := setup(t)
	usr := env.CreateTeacher(t, "awe@test.cd")

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@test.cd"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@test.cd"}, extra: pwdExtra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", usr.Email}, extra: pwdExtra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		mockPassword(tt)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	_, err := env.UserSvc.Authenticate(context.Background(), usr.Email, "lmao")
	assert.NoError(t, err)
}

func Test_commandLine_sweepParents(t *testing.T) {
	cli, env, out := setup(t)
	teacher := env.CreateTeacher(t, "teacher@test.cd")
	_, parent := env.CreateStudent(t, teacher, "Kid", "parent@test.cd")
	orphan := testutil.CreateUser(t, env.UserRepo, user.RoleParent, "orphan@test.cd", "")

	require.NoError(t, cli.run([]string{"admin", "sweepparents"}))
	assert.Contains(t, out.String(), "1 orphan parent account(s) deleted")

	_, err := env.UserSvc.GetByID(context.Background(), orphan.ID)
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	_, err = env.UserSvc.GetByID(context.Background(), parent.ID)
	assert.NoError(t, err)
}
