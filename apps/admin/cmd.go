package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/mathinsight/core/roster"
	"github.com/trezcool/mathinsight/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp       = errors.New("help provided")
	errNoDatabase = errors.New("migrations need the postgres engine")
)

type commandLine struct {
	db        *sql.DB // nil on the in-memory store
	validate  *validator.Validate
	usrSvc    *user.Service
	rosterSvc *roster.Service
	out       io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS...] - run a goose command (up, down, status, version...)")
	fmt.Fprintln(cli.out, "  addteacher -email EMAIL [-first NAME] [-last NAME] [-school NAME] - create a teacher account")
	fmt.Fprintln(cli.out, "  resetpassword -email EMAIL - reset user's password")
	fmt.Fprintln(cli.out, "  sweepparents - delete parent accounts without students")
}

func (cli *commandLine) promptPassword(usage func()) (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	addTeacherCmd := flag.NewFlagSet("addteacher", flag.ContinueOnError)
	addTeacherCmd.SetOutput(cli.out)
	addTeacherEmail := addTeacherCmd.String("email", "", "The teacher's email. The password will be prompted next.")
	addTeacherFirst := addTeacherCmd.String("first", "", "The teacher's first name.")
	addTeacherLast := addTeacherCmd.String("last", "", "The teacher's last name.")
	addTeacherSchool := addTeacherCmd.String("school", "", "The teacher's school.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordCmd.SetOutput(cli.out)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "addteacher":
		if err := addTeacherCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addTeacherEmail == "" {
			addTeacherCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(addTeacherCmd.Usage)
		if err != nil {
			return err
		}
		return cli.addTeacher(ctx, user.NewTeacher{
			Email:      *addTeacherEmail,
			Password:   pwd,
			FirstName:  *addTeacherFirst,
			LastName:   *addTeacherLast,
			SchoolName: *addTeacherSchool,
		})

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(resetPasswordCmd.Usage)
		if err != nil {
			return err
		}
		return cli.resetPassword(ctx, *resetPasswordEmail, pwd)

	case "sweepparents":
		return cli.sweepParents(ctx)

	default:
		cli.printUsage()
		return errHelp
	}
}
