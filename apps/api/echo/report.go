package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/rudradrivingschool/rudra-driving-school/core/progress"
)

type reportApi struct {
	ledger     BalanceReporter
	reconciler ProgressReconciler
}

func registerReportAPI(g *echo.Group, deps ServerDeps) {
	api := reportApi{ledger: deps.Ledger, reconciler: deps.Reconciler}

	g.GET("/reports/balance", api.balance, adminMiddleware())
	g.POST("/reconcile", api.reconcileAll, adminMiddleware())
}

func (api *reportApi) balance(ctx echo.Context) error {
	summary, err := api.ledger.Balance(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing balance")
	}
	return ctx.JSON(http.StatusOK, summary)
}

// SweepResponse reports a reconciliation sweep. Failed maps admission ids to their error.
type SweepResponse struct {
	Reconciled int               `json:"reconciled"`
	Failed     map[string]string `json:"failed"`
}

func (api *reportApi) reconcileAll(ctx echo.Context) error {
	n, err := api.reconciler.ReconcileAll(ctx.Request().Context())
	resp := SweepResponse{Reconciled: n, Failed: map[string]string{}}
	if err != nil {
		sweepErr, ok := errors.Cause(err).(*progress.SweepError)
		if !ok {
			return errors.Wrap(err, "reconciling admissions")
		}
		for id, fErr := range sweepErr.Failed {
			resp.Failed[id] = fErr.Error()
		}
	}
	return ctx.JSON(http.StatusOK, resp)
}
