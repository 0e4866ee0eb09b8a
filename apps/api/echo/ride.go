package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/rudradrivingschool/rudra-driving-school/core/ride"
)

type rideApi struct {
	svc      ride.Service
	validate *validator.Validate
}

func registerRideAPI(g *echo.Group, deps ServerDeps) {
	api := rideApi{svc: deps.RideSvc, validate: deps.Validate}

	rg := g.Group("/rides")
	rg.GET("", api.query)
	rg.POST("", api.create)
	rg.GET("/options", api.options)
	rg.POST("/backfill", api.backfill, adminMiddleware())

	// detail endpoints
	rg.GET("/:id", api.retrieve)
	rg.PUT("/:id", api.update)
	rg.DELETE("/:id", api.destroy)
}

// Handlers

func (api *rideApi) create(ctx echo.Context) error {
	var data ride.NewRide
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRide")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	r, err := api.svc.Add(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "adding ride")
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *rideApi) query(ctx echo.Context) error {
	filter := new(ride.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []ride.Ride{})
	}
	filter.Clean()
	var dates DateRange
	if err := dates.Bind(ctx); err != nil {
		return err
	}
	filter.DateFrom, filter.DateTo = dates.From, dates.To

	rides, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying rides")
	}
	return ctx.JSON(http.StatusOK, rides)
}

func (api *rideApi) options(ctx echo.Context) error {
	opts, err := api.svc.Options(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "loading ride options")
	}
	return ctx.JSON(http.StatusOK, opts)
}

func (api *rideApi) backfill(ctx echo.Context) error {
	res, err := api.svc.Backfill(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "backfilling legacy rides")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *rideApi) retrieve(ctx echo.Context) error {
	r, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding ride by ID")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *rideApi) update(ctx echo.Context) error {
	var data ride.UpdateRide
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRide")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	r, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating ride")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *rideApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting ride")
	}
	return ctx.NoContent(http.StatusNoContent)
}
