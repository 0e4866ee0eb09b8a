package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/rudradrivingschool/rudra-driving-school/core"
	"github.com/rudradrivingschool/rudra-driving-school/core/expense"
)

const expenseColumns = "id, purpose, amount, date, driver_id, notes, created_at"

type expenseRow struct {
	ID        string      `db:"id"`
	Purpose   string      `db:"purpose"`
	Amount    int64       `db:"amount"`
	Date      time.Time   `db:"date"`
	DriverID  null.String `db:"driver_id"`
	Notes     string      `db:"notes"`
	CreatedAt time.Time   `db:"created_at"`
}

type expenseRepository struct {
	base
}

var _ expense.Repository = (*expenseRepository)(nil) // interface compliance check

func NewExpenseRepository(exec core.DBExecutor) *expenseRepository {
	return &expenseRepository{base{exec: exec}}
}

func (repo expenseRepository) toRow(exp expense.Expense) expenseRow {
	// driver ids that are not uuids cannot be stored; the expense is kept without a driver
	return expenseRow{
		ID:        exp.ID,
		Purpose:   exp.Purpose,
		Amount:    exp.Amount,
		Date:      exp.Date.UTC(),
		DriverID:  null.NewString(exp.DriverID, validID(exp.DriverID)),
		Notes:     exp.Notes,
		CreatedAt: exp.CreatedAt.UTC(),
	}
}

func (repo expenseRepository) fromRows(rows []expenseRow) []expense.Expense {
	expenses := make([]expense.Expense, 0, len(rows))
	for _, row := range rows {
		expenses = append(expenses, expense.Expense{
			ID:        row.ID,
			Purpose:   row.Purpose,
			Amount:    row.Amount,
			Date:      row.Date.UTC(),
			DriverID:  row.DriverID.String,
			Notes:     row.Notes,
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return expenses
}

func (repo expenseRepository) selectExpenses(ctx context.Context, exec []core.DBExecutor, w *where, msg string) ([]expense.Expense, error) {
	var rows []expenseRow
	q := w.query("SELECT "+expenseColumns+" FROM expenses", "ORDER BY date DESC, created_at DESC, id")
	if err := selectRows(ctx, repo.getExec(exec), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, msg)
	}
	return repo.fromRows(rows), nil
}

func (repo expenseRepository) CreateExpense(ctx context.Context, exp expense.Expense, exec ...core.DBExecutor) (expense.Expense, error) {
	exp.ID = newID()
	row := repo.toRow(exp)
	q := `INSERT INTO expenses (` + expenseColumns + `)
		VALUES (:id, :purpose, :amount, :date, :driver_id, :notes, :created_at)`
	if _, err := execNamed(ctx, repo.getExec(exec), q, row); err != nil {
		return expense.Expense{}, errors.Wrap(err, "inserting expense")
	}
	exp.DriverID = row.DriverID.String
	return exp, nil
}

func (repo expenseRepository) QueryExpenses(ctx context.Context, filter *expense.QueryFilter, exec ...core.DBExecutor) ([]expense.Expense, error) {
	var w where
	if filter != nil {
		if filter.Search != "" {
			val := likePattern(filter.Search)
			w.add("(purpose ILIKE ? OR notes ILIKE ?)", val, val)
		}
		if filter.DriverID != "" {
			if !validID(filter.DriverID) {
				return []expense.Expense{}, nil
			}
			w.add("driver_id = ?", filter.DriverID)
		}
		if !filter.DateFrom.IsZero() {
			w.add("date >= ?", filter.DateFrom.UTC())
		}
		if !filter.DateTo.IsZero() {
			w.add("date <= ?", filter.DateTo.UTC())
		}
	}
	return repo.selectExpenses(ctx, exec, &w, "querying expenses")
}

func (repo expenseRepository) GetExpense(ctx context.Context, id string, exec ...core.DBExecutor) (expense.Expense, error) {
	if !validID(id) {
		return expense.Expense{}, expense.ErrNotFound
	}
	var w where
	w.add("id = ?", id)
	expenses, err := repo.selectExpenses(ctx, exec, &w, "finding expense by ID")
	if err != nil {
		return expense.Expense{}, err
	}
	if len(expenses) == 0 {
		return expense.Expense{}, expense.ErrNotFound
	}
	return expenses[0], nil
}

func (repo expenseRepository) UpdateExpense(ctx context.Context, exp expense.Expense, exec ...core.DBExecutor) (expense.Expense, error) {
	if !validID(exp.ID) {
		return expense.Expense{}, expense.ErrNotFound
	}
	exe := repo.getExec(exec)
	q := `UPDATE expenses SET purpose = :purpose, amount = :amount, date = :date, driver_id = :driver_id,
		notes = :notes WHERE id = :id`
	res, err := execNamed(ctx, exe, q, repo.toRow(exp))
	if err != nil {
		return expense.Expense{}, errors.Wrap(err, "updating expense")
	}
	if err = mustAffect(res, expense.ErrNotFound); err != nil {
		return expense.Expense{}, err
	}
	return repo.GetExpense(ctx, exp.ID, exe)
}

func (repo expenseRepository) DeleteExpense(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validID(id) {
		return expense.ErrNotFound
	}
	res, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM expenses WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting expense")
	}
	return mustAffect(res, expense.ErrNotFound)
}
