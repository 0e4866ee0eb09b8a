package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/rudradrivingschool/rudra-driving-school/core/admission"
	"github.com/rudradrivingschool/rudra-driving-school/core/driver"
	"github.com/rudradrivingschool/rudra-driving-school/core/ride"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type (
	backfiller interface {
		Backfill(ctx context.Context) (ride.BackfillResult, error)
	}

	reconciler interface {
		Reconcile(ctx context.Context, admissionID string, callbacks ...func(admission.Progress)) (admission.Progress, error)
		ReconcileAll(ctx context.Context) (int, error)
	}

	commandLine struct {
		db         *sql.DB // nil in test mode
		drvSvc     driver.Service
		rides      backfiller
		reconciler reconciler
		out        io.Writer
	}
)

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  adduser -username USERNAME [-name NAME] [-email EMAIL] [-admin] - create or reset a driver account")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME - reset a driver's password")
	fmt.Fprintln(cli.out, "  backfill - link legacy rides to the admissions matching their client name")
	fmt.Fprintln(cli.out, "  reconcile [-admission ID] - recount completed rides of one or every admission")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserCmd.SetOutput(cli.out)
	addUserUname := addUserCmd.String("username", "", "The driver's username. The password will be prompted next.")
	addUserName := addUserCmd.String("name", "", "The driver's full name (defaults to the username).")
	addUserEmail := addUserCmd.String("email", "", "The driver's email.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Give the driver the admin role.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordCmd.SetOutput(cli.out)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The driver's username. The password will be prompted next.")

	reconcileCmd := flag.NewFlagSet("reconcile", flag.ContinueOnError)
	reconcileCmd.SetOutput(cli.out)
	reconcileID := reconcileCmd.String("admission", "", "Reconcile this admission only.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			fmt.Fprintln(cli.out, "Usage: migrate COMMAND [ARGS]")
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserUname == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserUname, *addUserName, *addUserEmail, pwd, *addUserAdmin)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "backfill":
		return cli.backfill()

	case "reconcile":
		if err := reconcileCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.reconcile(*reconcileID)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
