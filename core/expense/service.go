package expense

import (
	"context"

	"github.com/pkg/errors"

	"github.com/rudradrivingschool/rudra-driving-school/core"
)

var (
	// errors
	ErrNotFound = errors.New("expense not found")
)

const unknownDriver = "Unknown"

type (
	Repository interface {
		CreateExpense(ctx context.Context, exp Expense, exec ...core.DBExecutor) (Expense, error)
		// QueryExpenses returns expenses matching filter (nil = all), newest first.
		QueryExpenses(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) ([]Expense, error)
		GetExpense(ctx context.Context, id string, exec ...core.DBExecutor) (Expense, error)
		UpdateExpense(ctx context.Context, exp Expense, exec ...core.DBExecutor) (Expense, error)
		DeleteExpense(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	// DriverNamer maps driver ids to names.
	DriverNamer interface {
		Names(ctx context.Context, ids ...string) (map[string]string, error)
	}

	Service interface {
		Create(ctx context.Context, ne NewExpense) (Expense, error)
		Get(ctx context.Context, id string) (Expense, error)
		Query(ctx context.Context, filter *QueryFilter) ([]Expense, error)
		Update(ctx context.Context, id string, ue UpdateExpense) (Expense, error)
		Delete(ctx context.Context, id string) error
	}

	service struct {
		repo    Repository
		drivers DriverNamer
		logger  core.Logger
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository, drivers DriverNamer, logger core.Logger) Service {
	return &service{repo: repo, drivers: drivers, logger: logger}
}

func (svc *service) Create(ctx context.Context, ne NewExpense) (Expense, error) {
	date := ne.Date
	if date.IsZero() {
		date = core.Today()
	}
	exp, err := svc.repo.CreateExpense(ctx, Expense{
		Purpose:   ne.Purpose,
		Amount:    ne.Amount,
		Date:      date,
		DriverID:  ne.DriverID,
		Notes:     ne.Notes,
		CreatedAt: core.NowFunc().UTC(),
	})
	if err != nil {
		return Expense{}, errors.Wrap(err, "creating expense")
	}
	return exp, nil
}

func (svc *service) Get(ctx context.Context, id string) (Expense, error) {
	exp, err := svc.repo.GetExpense(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	exps := []Expense{exp}
	svc.annotate(ctx, exps)
	return exps[0], nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter) ([]Expense, error) {
	exps, err := svc.repo.QueryExpenses(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying expenses")
	}
	svc.annotate(ctx, exps)
	return exps, nil
}

func (svc *service) Update(ctx context.Context, id string, ue UpdateExpense) (Expense, error) {
	exp, err := svc.repo.GetExpense(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	exp.Purpose = ue.Purpose
	exp.Amount = ue.Amount
	if !ue.Date.IsZero() {
		exp.Date = ue.Date
	}
	exp.DriverID = ue.DriverID
	exp.Notes = ue.Notes
	return svc.repo.UpdateExpense(ctx, exp)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	if _, err := svc.repo.GetExpense(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteExpense(ctx, id)
}

func (svc *service) annotate(ctx context.Context, exps []Expense) {
	ids := make([]string, 0, len(exps))
	for _, exp := range exps {
		if exp.DriverID != "" {
			ids = append(ids, exp.DriverID)
		}
	}
	if len(ids) == 0 {
		return
	}

	names, err := svc.drivers.Names(ctx, ids...)
	if err != nil {
		svc.logger.Warn("looking up expense drivers", err)
		names = map[string]string{}
	}
	for i := range exps {
		if exps[i].DriverID == "" {
			continue
		}
		if name, ok := names[exps[i].DriverID]; ok {
			exps[i].DriverName = name
		} else {
			exps[i].DriverName = unknownDriver
		}
	}
}
