package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/rudradrivingschool/rudra-driving-school/core"
	"github.com/rudradrivingschool/rudra-driving-school/core/admission"
	"github.com/rudradrivingschool/rudra-driving-school/core/admissionview"
	"github.com/rudradrivingschool/rudra-driving-school/core/driver"
	"github.com/rudradrivingschool/rudra-driving-school/core/expense"
	"github.com/rudradrivingschool/rudra-driving-school/core/ledger"
	"github.com/rudradrivingschool/rudra-driving-school/core/payment"
	"github.com/rudradrivingschool/rudra-driving-school/core/ride"
)

type (
	AdmissionViewer interface {
		View(ctx context.Context, id string) (admissionview.View, error)
		Views(ctx context.Context, filter *admission.QueryFilter, ordering []core.DBOrdering) ([]admissionview.View, error)
	}

	ProgressReconciler interface {
		Reconcile(ctx context.Context, admissionID string, callbacks ...func(admission.Progress)) (admission.Progress, error)
		ReconcileAll(ctx context.Context) (int, error)
	}

	BalanceReporter interface {
		Balance(ctx context.Context) (ledger.Summary, error)
	}

	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool

		AdmissionSvc admission.Service
		ViewSvc      AdmissionViewer
		RideSvc      ride.Service
		PaymentSvc   payment.Service
		DriverSvc    driver.Service
		ExpenseSvc   expense.Service
		Ledger       BalanceReporter
		Reconciler   ProgressReconciler
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(ctx context.Context) error
		Close() error
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORS())

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(newJWTConfig(conf))
	authed := v1.Group("", jwt, activeDriverMiddleware(s.deps.DriverSvc))

	registerAuthAPI(v1, jwt, conf, s.deps.DriverSvc, s.deps.Validate)
	registerAdmissionAPI(authed, s.deps)
	registerRideAPI(authed, s.deps)
	registerPaymentAPI(authed, s.deps)
	registerDriverAPI(authed, s.deps)
	registerExpenseAPI(authed, s.deps)
	registerReportAPI(authed, s.deps)
}

func (s *server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the "+s.deps.Conf.AppName+" API!")
}
