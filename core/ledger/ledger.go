// Package ledger builds the balance sheet out of the payments collected and the expenses paid.
package ledger

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/rudradrivingschool/rudra-driving-school/core"
	"github.com/rudradrivingschool/rudra-driving-school/core/expense"
	"github.com/rudradrivingschool/rudra-driving-school/core/payment"
)

type (
	Totals struct {
		Collected int64 `json:"collected"`
		Spent     int64 `json:"spent"`
		Balance   int64 `json:"balance"`
		// ProfitMargin is Balance as a percentage of Collected, rounded to 2 decimals.
		ProfitMargin float64 `json:"profit_margin"`
	}

	Summary struct {
		Overall Totals `json:"overall"`
		Month   Totals `json:"month"`
		// MonthStart is the first day of the month covered by Month.
		MonthStart time.Time `json:"month_start"`
	}

	PaymentQuerier interface {
		Query(ctx context.Context, filter *payment.QueryFilter) ([]payment.Payment, error)
	}

	ExpenseQuerier interface {
		Query(ctx context.Context, filter *expense.QueryFilter) ([]expense.Expense, error)
	}

	Service struct {
		payments PaymentQuerier
		expenses ExpenseQuerier
	}
)

func NewService(payments PaymentQuerier, expenses ExpenseQuerier) *Service {
	return &Service{payments: payments, expenses: expenses}
}

// Balance summarizes every payment and expense on record.
func (svc *Service) Balance(ctx context.Context) (Summary, error) {
	payments, err := svc.payments.Query(ctx, nil)
	if err != nil {
		return Summary{}, errors.Wrap(err, "querying payments")
	}
	expenses, err := svc.expenses.Query(ctx, nil)
	if err != nil {
		return Summary{}, errors.Wrap(err, "querying expenses")
	}
	return Summarize(payments, expenses, core.NowFunc()), nil
}

// Summarize computes the overall totals and the totals of the month `now` falls in.
func Summarize(payments []payment.Payment, expenses []expense.Expense, now time.Time) Summary {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	monthEnd := monthStart.AddDate(0, 1, 0)
	inMonth := func(t time.Time) bool {
		t = t.In(now.Location())
		return !t.Before(monthStart) && t.Before(monthEnd)
	}

	var overall, month Totals
	for _, p := range payments {
		overall.Collected += p.Amount
		if inMonth(p.PaymentDate) {
			month.Collected += p.Amount
		}
	}
	for _, exp := range expenses {
		overall.Spent += exp.Amount
		if inMonth(exp.Date) {
			month.Spent += exp.Amount
		}
	}

	return Summary{
		Overall:    overall.settle(),
		Month:      month.settle(),
		MonthStart: monthStart,
	}
}

func (t Totals) settle() Totals {
	t.Balance = t.Collected - t.Spent
	if t.Collected > 0 {
		t.ProfitMargin = math.Round(float64(t.Balance)/float64(t.Collected)*10000) / 100
	}
	return t
}
