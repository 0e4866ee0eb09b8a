package main

import (
	"context"
	"fmt"

	"github.com/rudradrivingschool/rudra-driving-school/core"
	"github.com/rudradrivingschool/rudra-driving-school/core/driver"
)

// addUser creates a driver account, or resets the one with the same username.
func (cli *commandLine) addUser(uname, name, email, pwd string, isAdmin bool) error {
	uname = core.CleanString(uname, true /* lower */)
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)

	if err := driver.CheckPasswordPolicy(pwd, name, uname, email); err != nil {
		return err
	}

	drv := driver.Driver{
		Username: uname,
		Name:     name,
		Email:    email,
	}
	if isAdmin {
		drv.Role = driver.RoleAdmin
	}
	drv, err := cli.drvSvc.AddOrUpdate(context.Background(), drv, pwd)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "driver %q saved (role: %s)\n", drv.Username, drv.Role)
	return nil
}
