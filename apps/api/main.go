package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"

	echoapi "github.com/rudradrivingschool/rudra-driving-school/apps/api/echo"
	"github.com/rudradrivingschool/rudra-driving-school/apps/container"
	"github.com/rudradrivingschool/rudra-driving-school/core"
	eventsvc "github.com/rudradrivingschool/rudra-driving-school/services/events"
	schedsvc "github.com/rudradrivingschool/rudra-driving-school/services/scheduler"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := container.NewLogger(conf, "API")
	defer logger.Wait()
	dbLogger := container.NewLogger(conf, "DB")

	// set up DB
	stores, closeDB := container.MustSetUp(context.Background(), conf, dbLogger)
	defer closeDB()

	// set up services
	svcs := container.NewServices(stores, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := container.NewValidator()

	// progress events
	if conf.RabbitMQ.URL != "" {
		publisher, err := eventsvc.Dial(conf, logger)
		if err != nil {
			logger.Error("connecting to the event broker; progress events disabled", err)
		} else {
			defer func() {
				if err := publisher.Close(); err != nil {
					logger.Warn("closing the event publisher", err)
				}
			}()
			svcs.Reconciler.Subscribe(publisher)
		}
	}

	// periodic reconcile sweep
	if conf.Reconcile.Schedule != "" {
		scheduler, err := schedsvc.New(conf, svcs.Reconciler, logger)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up the scheduler: %v", err), err)
		}
		scheduler.WithBackfill(svcs.Ride).Start()
		defer func() {
			<-scheduler.Stop().Done()
		}()
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:         conf,
			Logger:       logger,
			Validate:     validate,
			Translator:   translator,
			AdmissionSvc: svcs.Admission,
			ViewSvc:      svcs.View,
			RideSvc:      svcs.Ride,
			PaymentSvc:   svcs.Payment,
			DriverSvc:    svcs.Driver,
			ExpenseSvc:   svcs.Expense,
			Ledger:       svcs.Ledger,
			Reconciler:   svcs.Reconciler,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
