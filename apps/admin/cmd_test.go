package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rudradrivingschool/rudra-driving-school/apps/container"
	"github.com/rudradrivingschool/rudra-driving-school/core/admission"
	"github.com/rudradrivingschool/rudra-driving-school/core/driver"
	"github.com/rudradrivingschool/rudra-driving-school/core/progress"
	"github.com/rudradrivingschool/rudra-driving-school/core/ride"
	"github.com/rudradrivingschool/rudra-driving-school/tests"
)

const goodPwd = "kathmandu#42"

type fixture struct {
	cli    *commandLine
	out    *bytes.Buffer
	stores container.Stores
}

func setup(t *testing.T) fixture {
	t.Helper()
	stores := container.InMemStores()
	svcs := container.NewServices(stores, testutil.NewLogger())
	out := new(bytes.Buffer)
	return fixture{
		cli: &commandLine{
			drvSvc:     svcs.Driver,
			rides:      svcs.Ride,
			reconciler: svcs.Reconciler,
			out:        out,
		},
		out:    out,
		stores: stores,
	}
}

// mockPassword makes the password prompt read pwd.
func mockPassword(t *testing.T, pwd string, err error) {
	orig := readPasswordFunc
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), err
	}
	t.Cleanup(func() { readPasswordFunc = orig })
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
	wantOut    string
}

func (tt cliTest) check(t *testing.T, f fixture) {
	t.Helper()
	f.out.Reset()
	err := f.cli.run(append([]string{"admin"}, tt.args...))
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		require.Error(t, err)
		assert.Contains(t, err.Error(), tt.wantErrStr)
	default:
		require.NoError(t, err)
	}
	if tt.wantOut != "" {
		assert.Contains(t, f.out.String(), tt.wantOut)
	}
}

func Test_commandLine_usage(t *testing.T) {
	f := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp, wantOut: "Usage:"},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp, wantOut: "reconcile [-admission ID]"},
		{name: "unknown flag", args: []string{"reconcile", "-lol"}, wantErr: errHelp, wantOut: "flag provided but not defined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, f)
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	f := setup(t)

	t.Run("no database", func(t *testing.T) {
		cliTest{args: []string{"migrate", "up"}, wantErr: errNoDatabase}.check(t, f)
	})

	var ran []string
	orig := migrateFunc
	migrateFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		ran = append(ran, command)
		return nil
	}
	t.Cleanup(func() { migrateFunc = orig })
	f.cli.db = new(sql.DB)

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp, wantOut: "Usage: migrate COMMAND [ARGS]"},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: `"lol": no such command`},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, f)
		})
	}
	assert.Equal(t, []string{"up", "up-to", "down", "status"}, ran)
}

func Test_commandLine_addUser(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	tests := []cliTest{
		{name: "no username", args: []string{"adduser"}, pwd: goodPwd, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-username", "ram"}, wantErr: errHelp},
		{name: "weak password", args: []string{"adduser", "-username", "ram"}, pwd: "ram123", wantErrStr: "password"},
		{
			name:    "driver",
			args:    []string{"adduser", "-username", " RAM ", "-name", "Ram Thapa", "-email", "Ram@Rudra.test"},
			pwd:     goodPwd,
			wantOut: `driver "ram" saved (role: driver)`,
		},
		{name: "root", args: []string{"adduser", "-username", "root"}, pwd: goodPwd, wantOut: `driver "root" saved (role: admin)`},
		{name: "admin", args: []string{"adduser", "-username", "sita", "-admin"}, pwd: goodPwd, wantOut: `driver "sita" saved (role: admin)`},
		{name: "existing one is reset", args: []string{"adduser", "-username", "ram"}, pwd: "pokhara@2024", wantOut: `driver "ram" saved`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, tt.pwd, nil)
			tt.check(t, f)
		})
	}

	drv, err := f.cli.drvSvc.GetByUsername(ctx, "ram")
	require.NoError(t, err)
	assert.Equal(t, "Ram Thapa", drv.Name)
	assert.Equal(t, "ram@rudra.test", drv.Email)
	assert.NoError(t, drv.CheckPassword("pokhara@2024"))

	t.Run("prompt failure", func(t *testing.T) {
		mockPassword(t, "", errors.New("inappropriate ioctl for device"))
		err := f.cli.run([]string{"admin", "adduser", "-username", "hari"})
		assert.EqualError(t, err, "inappropriate ioctl for device")
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	testutil.CreateDriver(t, f.stores.Drivers, "Ram", "ram", goodPwd, "", true)

	tests := []cliTest{
		{name: "no username", args: []string{"resetpassword"}, pwd: goodPwd, wantErr: errHelp},
		{name: "no password", args: []string{"resetpassword", "-username", "ram"}, wantErr: errHelp},
		{name: "unknown", args: []string{"resetpassword", "-username", "lol"}, pwd: goodPwd, wantErrStr: driver.ErrNotFound.Error()},
		{name: "weak password", args: []string{"resetpassword", "-username", "ram"}, pwd: "1234", wantErrStr: "password"},
		{name: "ok", args: []string{"resetpassword", "-username", "Ram"}, pwd: "pokhara@2024", wantOut: `password of "ram" reset`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, tt.pwd, nil)
			tt.check(t, f)
		})
	}

	drv, err := f.cli.drvSvc.GetByUsername(ctx, "ram")
	require.NoError(t, err)
	assert.NoError(t, drv.CheckPassword("pokhara@2024"))
}

func Test_commandLine_backfillAndReconcile(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	adm := testutil.CreateAdmission(t, f.stores.Admissions, "Asha", 8, 8000)
	testutil.CreateRide(t, f.stores.Rides, "", "Asha", "", "2024-01-01", ride.StatusCompleted)
	testutil.CreateRide(t, f.stores.Rides, "", "Asha", "", "2024-01-02", "Completed")
	testutil.CreateRide(t, f.stores.Rides, "", "Ghost", "", "2024-01-03", ride.StatusCompleted)

	cliTest{
		args:    []string{"backfill"},
		wantOut: "2 ride(s) linked to 1 admission(s)\nunresolved client names: Ghost",
	}.check(t, f)

	stored, err := f.stores.Admissions.GetAdmission(ctx, adm.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.RidesCompleted)

	// drift, repaired by the reconcile command
	_, err = f.stores.Admissions.UpdateRideProgress(ctx, adm.ID, 6, false)
	require.NoError(t, err)

	tests := []cliTest{
		{name: "one", args: []string{"reconcile", "-admission", adm.ID}, wantOut: "Asha: 2/8 rides completed (Active)"},
		{name: "unknown", args: []string{"reconcile", "-admission", "lol"}, wantErrStr: admission.ErrNotFound.Error()},
		{name: "all", args: []string{"reconcile"}, wantOut: "1 admission(s) reconciled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, f)
		})
	}
}

func Test_commandLine_reconcileFailures(t *testing.T) {
	f := setup(t)
	f.cli.reconciler = failingReconciler{}

	cliTest{args: []string{"reconcile"}, wantErrStr: "reconciling 1 admission(s) failed", wantOut: "adm-9: connection reset"}.check(t, f)
}

type failingReconciler struct{}

func (failingReconciler) Reconcile(context.Context, string, ...func(admission.Progress)) (admission.Progress, error) {
	return admission.Progress{}, errors.New("not used")
}

func (failingReconciler) ReconcileAll(context.Context) (int, error) {
	return 3, &progress.SweepError{Failed: map[string]error{"adm-9": errors.New("connection reset")}}
}
