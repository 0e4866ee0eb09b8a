package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/rudradrivingschool/rudra-driving-school/core/admission"
	"github.com/rudradrivingschool/rudra-driving-school/core/payment"
)

// warningHeader carries the part of a successful write that did not go through.
const warningHeader = "Warning"

type admissionApi struct {
	svc        admission.Service
	views      AdmissionViewer
	payments   payment.Service
	reconciler ProgressReconciler
	validate   *validator.Validate
}

func registerAdmissionAPI(g *echo.Group, deps ServerDeps) {
	api := admissionApi{
		svc:        deps.AdmissionSvc,
		views:      deps.ViewSvc,
		payments:   deps.PaymentSvc,
		reconciler: deps.Reconciler,
		validate:   deps.Validate,
	}

	ag := g.Group("/admissions")
	ag.GET("", api.query)
	ag.POST("", api.create, adminMiddleware())
	ag.GET("/views", api.queryViews)
	ag.GET("/statuses", api.queryStatuses)

	// detail endpoints
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id", api.update, adminMiddleware())
	ag.DELETE("/:id", api.destroy, adminMiddleware())
	ag.GET("/:id/view", api.view)
	ag.GET("/:id/payments", api.queryPayments)
	ag.GET("/:id/payments/next", api.nextPayment)
	ag.POST("/:id/reconcile", api.reconcile, adminMiddleware())
}

// Handlers

func (api *admissionApi) create(ctx echo.Context) error {
	var data admission.NewAdmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAdmission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	adm, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		if errors.Cause(err) != admission.ErrAdvanceNotRecorded || adm.ID == "" {
			return errors.Wrap(err, "creating admission")
		}
		// the admission exists; only the advance payment is missing
		ctx.Response().Header().Set(warningHeader, `199 - "`+admission.ErrAdvanceNotRecorded.Error()+`"`)
	}
	return ctx.JSON(http.StatusCreated, adm)
}

func (api *admissionApi) query(ctx echo.Context) error {
	filter := new(admission.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []admission.Admission{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	adms, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying admissions")
	}
	if adms == nil {
		adms = []admission.Admission{}
	}
	return ctx.JSON(http.StatusOK, adms)
}

func (api *admissionApi) queryViews(ctx echo.Context) error {
	filter := new(admission.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []interface{}{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	views, err := api.views.Views(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "building admission views")
	}
	return ctx.JSON(http.StatusOK, views)
}

func (api *admissionApi) queryStatuses(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, admission.Statuses)
}

func (api *admissionApi) retrieve(ctx echo.Context) error {
	adm, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding admission by ID")
	}
	return ctx.JSON(http.StatusOK, adm)
}

func (api *admissionApi) view(ctx echo.Context) error {
	v, err := api.views.View(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "building admission view")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *admissionApi) update(ctx echo.Context) error {
	var data admission.UpdateAdmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAdmission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	adm, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating admission")
	}
	return ctx.JSON(http.StatusOK, adm)
}

func (api *admissionApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id"), queryBool(ctx, "cascade")); err != nil {
		return errors.Wrap(err, "deleting admission")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *admissionApi) queryPayments(ctx echo.Context) error {
	c := ctx.Request().Context()
	adm, err := api.svc.Get(c, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding admission by ID")
	}
	payments, err := api.payments.QueryByAdmission(c, adm.ID)
	if err != nil {
		return errors.Wrap(err, "querying admission payments")
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *admissionApi) nextPayment(ctx echo.Context) error {
	next, err := api.payments.Next(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "computing next payment")
	}
	return ctx.JSON(http.StatusOK, next)
}

func (api *admissionApi) reconcile(ctx echo.Context) error {
	c := ctx.Request().Context()
	adm, err := api.svc.Get(c, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding admission by ID")
	}
	p, err := api.reconciler.Reconcile(c, adm.ID)
	if err != nil {
		return errors.Wrap(err, "reconciling admission")
	}
	return ctx.JSON(http.StatusOK, p)
}
