package main

import (
	"errors"

	"github.com/trezcool/goose"

	"github.com/trezcool/kinga/fs"
)

var (
	gooseRunFunc = goose.RunFS // mockable

	errMigrateNeedsSQL = errors.New("migrate requires the postgres engine")
)

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errMigrateNeedsSQL
	}
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(args[0], cli.db, appfs.FS, "migrations", arguments...)
}
