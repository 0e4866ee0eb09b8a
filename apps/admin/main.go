package main

import (
	"context"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/rudradrivingschool/rudra-driving-school/apps/container"
	"github.com/rudradrivingschool/rudra-driving-school/core"
)

func main() {
	conf := core.NewConfig()
	logger := container.NewLogger(conf, "ADMIN")

	stores, closeDB := container.MustSetUp(context.Background(), conf, logger)
	svcs := container.NewServices(stores, logger)

	cli := commandLine{
		drvSvc:     svcs.Driver,
		rides:      svcs.Ride,
		reconciler: svcs.Reconciler,
		out:        os.Stdout,
	}
	if db, ok := stores.DB.(*sqlx.DB); ok {
		cli.db = db.DB
	}

	err := cli.run(os.Args)
	closeDB()
	logger.Wait()
	if err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err)
		}
		os.Exit(1)
	}
}
