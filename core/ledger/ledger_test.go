package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rudradrivingschool/rudra-driving-school/core"
	"github.com/rudradrivingschool/rudra-driving-school/core/driver"
	"github.com/rudradrivingschool/rudra-driving-school/core/expense"
	"github.com/rudradrivingschool/rudra-driving-school/core/ledger"
	"github.com/rudradrivingschool/rudra-driving-school/core/payment"
	"github.com/rudradrivingschool/rudra-driving-school/storage/database/inmem"
	"github.com/rudradrivingschool/rudra-driving-school/tests"
)

func TestSummarize(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	payments := []payment.Payment{
		{Amount: 5000, PaymentDate: testutil.Date(2024, 2, 28)},
		{Amount: 3000, PaymentDate: testutil.Date(2024, 3, 1)},
		{Amount: 2000, PaymentDate: testutil.Date(2024, 3, 31)},
	}
	expenses := []expense.Expense{
		{Amount: 1000, Date: testutil.Date(2024, 1, 10)},
		{Amount: 1250, Date: testutil.Date(2024, 3, 14)},
		{Amount: 99, Date: testutil.Date(2024, 4, 1)},
	}

	tests := []struct {
		name     string
		payments []payment.Payment
		expenses []expense.Expense
		want     ledger.Summary
	}{
		{
			name:     "mixed",
			payments: payments,
			expenses: expenses,
			want: ledger.Summary{
				Overall:    ledger.Totals{Collected: 10000, Spent: 2349, Balance: 7651, ProfitMargin: 76.51},
				Month:      ledger.Totals{Collected: 5000, Spent: 1250, Balance: 3750, ProfitMargin: 75},
				MonthStart: testutil.Date(2024, 3, 1),
			},
		},
		{
			name:     "nothing collected",
			expenses: expenses[:1],
			want: ledger.Summary{
				Overall:    ledger.Totals{Spent: 1000, Balance: -1000},
				MonthStart: testutil.Date(2024, 3, 1),
			},
		},
		{
			name:     "loss",
			payments: payments[1:2],
			expenses: []expense.Expense{{Amount: 4000, Date: testutil.Date(2024, 3, 2)}},
			want: ledger.Summary{
				Overall:    ledger.Totals{Collected: 3000, Spent: 4000, Balance: -1000, ProfitMargin: -33.33},
				Month:      ledger.Totals{Collected: 3000, Spent: 4000, Balance: -1000, ProfitMargin: -33.33},
				MonthStart: testutil.Date(2024, 3, 1),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ledger.Summarize(tt.payments, tt.expenses, now))
		})
	}
}

func TestService_Balance(t *testing.T) {
	ctx := context.Background()
	orig := core.NowFunc
	core.NowFunc = func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { core.NowFunc = orig })

	db := inmemdb.Open()
	adms := inmemdb.NewAdmissionRepository(db)
	payRepo := inmemdb.NewPaymentRepository(db)
	expRepo := inmemdb.NewExpenseRepository(db)
	drvSvc := driver.NewService(inmemdb.NewDriverRepository(db), inmemdb.NewRideRepository(db))
	svc := ledger.NewService(payment.NewService(payRepo, adms), expense.NewService(expRepo, drvSvc, testutil.NewLogger()))

	adm := testutil.CreateAdmission(t, adms, "Asha", 8, 8000)
	testutil.CreatePayment(t, payRepo, adm.ID, 4000, payment.TypeAdvance, testutil.Date(2024, 3, 2))
	testutil.CreateExpense(t, expRepo, "Fuel", 1000, "", testutil.Date(2024, 2, 2))

	summary, err := svc.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, ledger.Totals{Collected: 4000, Spent: 1000, Balance: 3000, ProfitMargin: 75}, summary.Overall)
	assert.Equal(t, ledger.Totals{Collected: 4000, Balance: 4000, ProfitMargin: 100}, summary.Month)
}
