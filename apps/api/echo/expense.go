package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/rudradrivingschool/rudra-driving-school/core/expense"
)

type expenseApi struct {
	svc      expense.Service
	validate *validator.Validate
}

func registerExpenseAPI(g *echo.Group, deps ServerDeps) {
	api := expenseApi{svc: deps.ExpenseSvc, validate: deps.Validate}

	eg := g.Group("/expenses")
	eg.GET("", api.query)
	eg.POST("", api.create)
	eg.GET("/:id", api.retrieve)
	eg.PUT("/:id", api.update, adminMiddleware())
	eg.DELETE("/:id", api.destroy, adminMiddleware())
}

// Handlers

func (api *expenseApi) create(ctx echo.Context) error {
	var data expense.NewExpense
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewExpense")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	exp, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating expense")
	}
	return ctx.JSON(http.StatusCreated, exp)
}

func (api *expenseApi) query(ctx echo.Context) error {
	filter := new(expense.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []expense.Expense{})
	}
	filter.Clean()
	var dates DateRange
	if err := dates.Bind(ctx); err != nil {
		return err
	}
	filter.DateFrom, filter.DateTo = dates.From, dates.To

	expenses, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying expenses")
	}
	return ctx.JSON(http.StatusOK, expenses)
}

func (api *expenseApi) retrieve(ctx echo.Context) error {
	exp, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding expense by ID")
	}
	return ctx.JSON(http.StatusOK, exp)
}

func (api *expenseApi) update(ctx echo.Context) error {
	var data expense.UpdateExpense
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateExpense")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	exp, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating expense")
	}
	return ctx.JSON(http.StatusOK, exp)
}

func (api *expenseApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting expense")
	}
	return ctx.NoContent(http.StatusNoContent)
}
