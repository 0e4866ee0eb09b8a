package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/rudradrivingschool/rudra-driving-school/core/progress"
)

func (cli *commandLine) backfill() error {
	res, err := cli.rides.Backfill(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d ride(s) linked to %d admission(s)\n", res.Linked, len(res.Admissions))
	if len(res.Unresolved) > 0 {
		fmt.Fprintf(cli.out, "unresolved client names: %s\n", strings.Join(res.Unresolved, ", "))
	}
	return nil
}

func (cli *commandLine) reconcile(admissionID string) error {
	ctx := context.Background()
	if admissionID != "" {
		p, err := cli.reconciler.Reconcile(ctx, admissionID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "%s: %d/%d rides completed (%s)\n", p.StudentName, p.RidesCompleted, p.TotalRides, p.Status)
		return nil
	}

	n, err := cli.reconciler.ReconcileAll(ctx)
	fmt.Fprintf(cli.out, "%d admission(s) reconciled\n", n)
	var sweepErr *progress.SweepError
	if errors.As(err, &sweepErr) {
		for id, e := range sweepErr.Failed {
			fmt.Fprintf(cli.out, "  %s: %v\n", id, e)
		}
	}
	return err
}
