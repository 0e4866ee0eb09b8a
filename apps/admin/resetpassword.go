package main

import (
	"context"
	"fmt"

	"github.com/rudradrivingschool/rudra-driving-school/core"
	"github.com/rudradrivingschool/rudra-driving-school/core/driver"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)

	drv, err := cli.drvSvc.GetByUsername(ctx, uname)
	if err != nil {
		return err
	}
	if err = driver.CheckPasswordPolicy(pwd, drv.Name, drv.Username, drv.Email); err != nil {
		return err
	}
	if err = cli.drvSvc.SetPassword(ctx, uname, pwd); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "password of %q reset\n", uname)
	return nil
}
