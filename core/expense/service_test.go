package expense_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rudradrivingschool/rudra-driving-school/core"
	"github.com/rudradrivingschool/rudra-driving-school/core/driver"
	"github.com/rudradrivingschool/rudra-driving-school/core/expense"
	"github.com/rudradrivingschool/rudra-driving-school/storage/database/inmem"
	"github.com/rudradrivingschool/rudra-driving-school/tests"
)

type failingNamer struct{}

func (failingNamer) Names(context.Context, ...string) (map[string]string, error) {
	return nil, errors.New("drivers unavailable")
}

func setup(t *testing.T) (expense.Service, expense.Repository, driver.Repository, *testutil.Logger) {
	t.Helper()
	db := inmemdb.Open()
	repo := inmemdb.NewExpenseRepository(db)
	drivers := inmemdb.NewDriverRepository(db)
	logger := testutil.NewLogger()
	drvSvc := driver.NewService(drivers, inmemdb.NewRideRepository(db))
	return expense.NewService(repo, drvSvc, logger), repo, drivers, logger
}

func Test_service_Create(t *testing.T) {
	ctx := context.Background()
	svc, _, drivers, _ := setup(t)
	ram := testutil.CreateDriver(t, drivers, "Ram", "ram", "", "", true)

	exp, err := svc.Create(ctx, expense.NewExpense{Purpose: "Fuel", Amount: 1500, DriverID: ram.ID})
	require.NoError(t, err)
	assert.NotEmpty(t, exp.ID)
	assert.Equal(t, core.Today(), exp.Date)

	got, err := svc.Get(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ram", got.DriverName)

	exp, err = svc.Create(ctx, expense.NewExpense{Purpose: "Service", Amount: 4000, Date: testutil.Date(2024, 3, 2)})
	require.NoError(t, err)
	got, err = svc.Get(ctx, exp.ID)
	require.NoError(t, err)
	assert.Empty(t, got.DriverName)
	assert.Equal(t, testutil.Date(2024, 3, 2), got.Date)
}

func Test_service_Query(t *testing.T) {
	ctx := context.Background()
	svc, repo, drivers, _ := setup(t)
	ram := testutil.CreateDriver(t, drivers, "Ram", "ram", "", "", true)

	e1 := testutil.CreateExpense(t, repo, "Fuel", 1000, ram.ID, testutil.Date(2024, 1, 1))
	e2 := testutil.CreateExpense(t, repo, "Tyres", 8000, "", testutil.Date(2024, 2, 1))
	e3 := testutil.CreateExpense(t, repo, "Fuel top-up", 500, "deleted-driver", testutil.Date(2024, 3, 1))

	exps, err := svc.Query(ctx, nil)
	require.NoError(t, err)
	require.Len(t, exps, 3)
	assert.Equal(t, []string{e3.ID, e2.ID, e1.ID}, []string{exps[0].ID, exps[1].ID, exps[2].ID})
	assert.Equal(t, "Unknown", exps[0].DriverName)
	assert.Empty(t, exps[1].DriverName)
	assert.Equal(t, "Ram", exps[2].DriverName)

	exps, err = svc.Query(ctx, &expense.QueryFilter{Search: "FUEL", DateTo: testutil.Date(2024, 2, 15)})
	require.NoError(t, err)
	require.Len(t, exps, 1)
	assert.Equal(t, e1.ID, exps[0].ID)

	exps, err = svc.Query(ctx, &expense.QueryFilter{DriverID: ram.ID})
	require.NoError(t, err)
	require.Len(t, exps, 1)
	assert.Equal(t, e1.ID, exps[0].ID)
}

func Test_service_annotateFailure(t *testing.T) {
	ctx := context.Background()
	db := inmemdb.Open()
	repo := inmemdb.NewExpenseRepository(db)
	logger := testutil.NewLogger()
	svc := expense.NewService(repo, failingNamer{}, logger)

	testutil.CreateExpense(t, repo, "Fuel", 1000, "someone", testutil.Date(2024, 1, 1))
	exps, err := svc.Query(ctx, nil)
	require.NoError(t, err)
	require.Len(t, exps, 1)
	assert.Equal(t, "Unknown", exps[0].DriverName)
	assert.Len(t, logger.Logs("warn"), 1)
}

func Test_service_UpdateDelete(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _ := setup(t)
	exp := testutil.CreateExpense(t, repo, "Fuel", 1000, "", testutil.Date(2024, 1, 1))

	updated, err := svc.Update(ctx, exp.ID, expense.UpdateExpense{
		NewExpense: expense.NewExpense{Purpose: "Fuel (receipt)", Amount: 1100},
	})
	require.NoError(t, err)
	assert.Equal(t, "Fuel (receipt)", updated.Purpose)
	assert.Equal(t, int64(1100), updated.Amount)
	assert.Equal(t, testutil.Date(2024, 1, 1), updated.Date)

	_, err = svc.Update(ctx, "lol", expense.UpdateExpense{})
	assert.Equal(t, expense.ErrNotFound, err)

	require.NoError(t, svc.Delete(ctx, exp.ID))
	assert.Equal(t, expense.ErrNotFound, svc.Delete(ctx, exp.ID))
}

func TestNewExpense_Validate(t *testing.T) {
	validate, _ := testutil.NewValidator()

	ne := expense.NewExpense{Purpose: " Fuel ", Amount: 10}
	require.NoError(t, ne.Validate(validate))
	assert.Equal(t, "Fuel", ne.Purpose)

	ne = expense.NewExpense{Purpose: "Fuel"}
	assert.Error(t, ne.Validate(validate))
	ne = expense.NewExpense{Amount: 10}
	assert.Error(t, ne.Validate(validate))
}
