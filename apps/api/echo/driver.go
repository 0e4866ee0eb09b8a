package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/rudradrivingschool/rudra-driving-school/core/driver"
)

type driverApi struct {
	svc      driver.Service
	validate *validator.Validate
}

func registerDriverAPI(g *echo.Group, deps ServerDeps) {
	api := driverApi{svc: deps.DriverSvc, validate: deps.Validate}

	dg := g.Group("/drivers", adminMiddleware())
	dg.GET("", api.query)
	dg.POST("", api.create)
	dg.GET("/stats", api.stats)

	// detail endpoints
	dg.GET("/:id", api.retrieve)
	dg.PUT("/:id", api.update)
	dg.DELETE("/:id", api.destroy)
}

// Handlers

func (api *driverApi) create(ctx echo.Context) error {
	var data driver.NewDriver
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDriver")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	drv, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating driver")
	}
	return ctx.JSON(http.StatusCreated, drv)
}

func (api *driverApi) query(ctx echo.Context) error {
	filter := new(driver.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []driver.Driver{})
	}
	filter.Clean()

	drivers, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying drivers")
	}
	return ctx.JSON(http.StatusOK, drivers)
}

func (api *driverApi) stats(ctx echo.Context) error {
	stats, err := api.svc.Stats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing driver stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *driverApi) retrieve(ctx echo.Context) error {
	drv, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding driver by ID")
	}
	return ctx.JSON(http.StatusOK, drv)
}

func (api *driverApi) update(ctx echo.Context) error {
	c := ctx.Request().Context()
	drv, err := api.svc.Get(c, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding driver by ID")
	}

	var data driver.UpdateDriver
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateDriver")
	}
	if err = data.Validate(drv, api.validate, api.svc); err != nil {
		return err
	}

	if drv, err = api.svc.Update(c, drv.ID, data); err != nil {
		return errors.Wrap(err, "updating driver")
	}
	return ctx.JSON(http.StatusOK, drv)
}

func (api *driverApi) destroy(ctx echo.Context) error {
	// Say No to Suicide! ctxDriver cannot delete themselves
	ctxDrv, err := getContextDriver(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context driver")
	}
	if ctx.Param("id") == ctxDrv.ID {
		return errHttpForbidden
	}

	if err = api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting driver")
	}
	return ctx.NoContent(http.StatusNoContent)
}
