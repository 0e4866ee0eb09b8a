// Package container wires the stores and services shared by the API server and the admin CLI.
package container

import (
	"context"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/rudradrivingschool/rudra-driving-school/core"
	"github.com/rudradrivingschool/rudra-driving-school/core/admission"
	"github.com/rudradrivingschool/rudra-driving-school/core/admissionview"
	"github.com/rudradrivingschool/rudra-driving-school/core/driver"
	"github.com/rudradrivingschool/rudra-driving-school/core/expense"
	"github.com/rudradrivingschool/rudra-driving-school/core/ledger"
	"github.com/rudradrivingschool/rudra-driving-school/core/payment"
	"github.com/rudradrivingschool/rudra-driving-school/core/progress"
	"github.com/rudradrivingschool/rudra-driving-school/core/ride"
	logsvc "github.com/rudradrivingschool/rudra-driving-school/services/logger"
	"github.com/rudradrivingschool/rudra-driving-school/storage/database"
	inmemdb "github.com/rudradrivingschool/rudra-driving-school/storage/database/inmem"
	sqlxrepos "github.com/rudradrivingschool/rudra-driving-school/storage/database/sqlx"
)

type (
	Stores struct {
		DB         core.DB // nil for in-memory stores
		Admissions admission.Repository
		Drivers    driver.Repository
		Rides      ride.Repository
		Payments   payment.Repository
		Expenses   expense.Repository
	}

	Services struct {
		Admission  admission.Service
		View       *admissionview.Service
		Ride       ride.Service
		Payment    payment.Service
		Driver     driver.Service
		Expense    expense.Service
		Ledger     *ledger.Service
		Reconciler *progress.Reconciler
	}
)

func NewLogger(conf *core.Config, prefix string) *logsvc.RollbarLogger {
	stdLogger := log.New(os.Stdout, prefix+" : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

// SetUpDB creates the app database if needed, connects to it and applies the pending migrations.
func SetUpDB(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err = database.Migrate(db.DB, "up"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func SQLStores(db *sqlx.DB) Stores {
	return Stores{
		DB:         db,
		Admissions: sqlxrepos.NewAdmissionRepository(db),
		Drivers:    sqlxrepos.NewDriverRepository(db),
		Rides:      sqlxrepos.NewRideRepository(db),
		Payments:   sqlxrepos.NewPaymentRepository(db),
		Expenses:   sqlxrepos.NewExpenseRepository(db),
	}
}

func InMemStores() Stores {
	db := inmemdb.Open()
	return Stores{
		Admissions: inmemdb.NewAdmissionRepository(db),
		Drivers:    inmemdb.NewDriverRepository(db),
		Rides:      inmemdb.NewRideRepository(db),
		Payments:   inmemdb.NewPaymentRepository(db),
		Expenses:   inmemdb.NewExpenseRepository(db),
	}
}

func NewServices(stores Stores, logger core.Logger) Services {
	var svcs Services

	svcs.Reconciler = progress.NewReconciler(stores.Admissions, stores.Rides, logger)
	svcs.Driver = driver.NewService(stores.Drivers, stores.Rides)
	svcs.Payment = payment.NewService(stores.Payments, stores.Admissions)
	svcs.Admission = admission.NewService(admission.Deps{
		DB:       stores.DB,
		Repo:     stores.Admissions,
		Rides:    stores.Rides,
		Payments: stores.Payments,
		Advances: svcs.Payment,
		Logger:   logger,
	})
	svcs.Ride = ride.NewService(ride.Deps{
		Repo:       stores.Rides,
		Clients:    svcs.Admission,
		Drivers:    svcs.Driver,
		Reconciler: svcs.Reconciler,
		Logger:     logger,
	})
	svcs.Expense = expense.NewService(stores.Expenses, svcs.Driver, logger)
	svcs.Ledger = ledger.NewService(svcs.Payment, svcs.Expense)
	svcs.View = admissionview.NewService(admissionview.Deps{
		Admissions: svcs.Admission,
		Rides:      svcs.Ride,
		Drivers:    svcs.Driver,
		Payments:   svcs.Payment,
		Logger:     logger,
	})
	return svcs
}

// NewValidator returns a validator with every domain validation and its English translations registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	admission.InitValidators(validate, translator)
	driver.InitValidators(validate, translator)
	return validate, translator
}

// MustSetUp is SetUpDB + SQLStores, or InMemStores in test mode. Setup failures are fatal.
func MustSetUp(ctx context.Context, conf *core.Config, logger core.Logger) (Stores, func()) {
	if conf.TestMode {
		logger.Info("test mode: using in-memory stores")
		return InMemStores(), func() {}
	}

	db, err := SetUpDB(ctx, conf)
	if err != nil {
		logger.Fatal("setting up database", err)
	}
	return SQLStores(db), func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}
}
