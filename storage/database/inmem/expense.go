package inmemdb

import (
	"context"
	"sort"

	"github.com/rudradrivingschool/rudra-driving-school/core"
	"github.com/rudradrivingschool/rudra-driving-school/core/expense"
)

type expenseRepository struct {
	db *expenseTable
}

var _ expense.Repository = (*expenseRepository)(nil) // interface compliance check

func NewExpenseRepository(db *DB) *expenseRepository {
	return &expenseRepository{db: db.expense}
}

func (repo *expenseRepository) CreateExpense(_ context.Context, exp expense.Expense, _ ...core.DBExecutor) (expense.Expense, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	exp.ID = newID()
	exp.DriverName = ""
	repo.db.table[exp.ID] = &exp
	return exp, nil
}

func (repo *expenseRepository) QueryExpenses(_ context.Context, filter *expense.QueryFilter, _ ...core.DBExecutor) ([]expense.Expense, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	expenses := make([]expense.Expense, 0)
	for _, exp := range repo.db.table {
		if filter != nil {
			switch {
			case filter.Search != "" && !containsAny(filter.Search, exp.Purpose, exp.Notes):
				continue
			case filter.DriverID != "" && exp.DriverID != filter.DriverID:
				continue
			case !filter.DateFrom.IsZero() && exp.Date.Before(filter.DateFrom):
				continue
			case !filter.DateTo.IsZero() && exp.Date.After(filter.DateTo):
				continue
			}
		}
		expenses = append(expenses, *exp)
	}
	sort.Slice(expenses, func(i, j int) bool {
		if !expenses[i].Date.Equal(expenses[j].Date) {
			return expenses[i].Date.After(expenses[j].Date)
		}
		if !expenses[i].CreatedAt.Equal(expenses[j].CreatedAt) {
			return expenses[i].CreatedAt.After(expenses[j].CreatedAt)
		}
		return expenses[i].ID < expenses[j].ID
	})
	return expenses, nil
}

func (repo *expenseRepository) GetExpense(_ context.Context, id string, _ ...core.DBExecutor) (expense.Expense, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if exp, ok := repo.db.table[id]; ok {
		return *exp, nil
	}
	return expense.Expense{}, expense.ErrNotFound
}

func (repo *expenseRepository) UpdateExpense(_ context.Context, exp expense.Expense, _ ...core.DBExecutor) (expense.Expense, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[exp.ID]
	if !ok {
		return expense.Expense{}, expense.ErrNotFound
	}
	exp.CreatedAt = orig.CreatedAt
	exp.DriverName = ""
	repo.db.table[exp.ID] = &exp
	return exp, nil
}

func (repo *expenseRepository) DeleteExpense(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return expense.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
