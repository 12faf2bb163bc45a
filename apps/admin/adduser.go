package main

import (
	"context"
	"fmt"
)

// addUser updates or creates an active admin
func (cli *commandLine) addUser(ctx context.Context, uname, email, pwd string) error {
	usr, err := cli.usrSvc.EnsureAdmin(ctx, uname, email, pwd)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "admin %q (id %d) is ready\n", usr.Username, usr.ID)
	return nil
}
