package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) sweepParents(ctx context.Context) error {
	n, err := cli.rosterSvc.SweepOrphanParents(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d orphan parent account(s) deleted\n", n)
	return nil
}
