package main

import "github.com/trezcool/masomo-emis/storage/database"

var gooseRunFunc = database.Goose // mockable

func (cli *commandLine) migrate(args []string) error {
	return gooseRunFunc(cli.db, args[0], args[1:]...)
}
