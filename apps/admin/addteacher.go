package main

import (
	"context"
	"fmt"

	"github.com/trezcool/mathinsight/core/user"
)

// addTeacher validates nt like the registration endpoint does, then creates the account.
func (cli *commandLine) addTeacher(ctx context.Context, nt user.NewTeacher) error {
	if err := nt.Validate(ctx, cli.validate, cli.usrSvc); err != nil {
		return err
	}
	usr, err := cli.usrSvc.RegisterTeacher(ctx, nt)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "teacher %s created (id %d)\n", usr.Email, usr.ID)
	return nil
}
