package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/rudradrivingschool/rudra-driving-school/core"
	"github.com/rudradrivingschool/rudra-driving-school/core/admission"
	"github.com/rudradrivingschool/rudra-driving-school/core/driver"
	"github.com/rudradrivingschool/rudra-driving-school/core/expense"
	"github.com/rudradrivingschool/rudra-driving-school/core/payment"
	"github.com/rudradrivingschool/rudra-driving-school/core/ride"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "driver not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// domainHTTPErrors maps the domain sentinel errors the API lets through to their responses.
var domainHTTPErrors = []struct {
	err  error
	herr *echo.HTTPError
}{
	{admission.ErrNotFound, errHttpNotFound},
	{ride.ErrNotFound, errHttpNotFound},
	{payment.ErrNotFound, errHttpNotFound},
	{driver.ErrNotFound, errHttpNotFound},
	{expense.ErrNotFound, errHttpNotFound},
	{payment.ErrDuplicateInstallment, echo.NewHTTPError(http.StatusConflict, payment.ErrDuplicateInstallment.Error())},
	{driver.ErrUsernameExists, echo.NewHTTPError(http.StatusConflict, driver.ErrUsernameExists.Error())},
	{driver.ErrRootProtected, echo.NewHTTPError(http.StatusForbidden, driver.ErrRootProtected.Error())},
}

func domainHTTPError(cause error) (*echo.HTTPError, bool) {
	for _, de := range domainHTTPErrors {
		if cause == de.err {
			return de.herr, true
		}
	}
	return nil, false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		if herr, ok := domainHTTPError(cause); ok {
			cause = herr
		}

		switch origErr := cause.(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			args := []interface{}{errors.Wrap(err, msg)}
			if drv, ok := ctx.Get(contextDriverKey).(driver.Driver); ok {
				args = append(args, drv)
			}
			logger.Error(msg, args...)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
