package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/rudradrivingschool/rudra-driving-school/core/driver"
)

// activeDriverMiddleware loads the token's driver and refuses deleted or deactivated accounts.
func activeDriverMiddleware(svc driver.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			drv, err := getContextDriver(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context driver")
			}
			if !drv.IsActive() {
				return errAccountDeactivated
			}
			return next(ctx)
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			// the loaded driver has the current role; the claims have the role at login
			if drv, ok := ctx.Get(contextDriverKey).(driver.Driver); ok {
				if drv.IsRoot() || drv.IsAdmin() {
					return next(ctx)
				}
				return errHttpForbidden
			}
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
