package main

import (
	"errors"

	"github.com/rudradrivingschool/rudra-driving-school/storage/database"
)

var migrateFunc = database.Migrate // mockable

var errNoDatabase = errors.New("migrations need a database; unset test mode")

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoDatabase
	}
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return migrateFunc(cli.db, args[0], arguments...)
}
