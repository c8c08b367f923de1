package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/kinga/core"
	"github.com/trezcool/kinga/core/user"
	logsvc "github.com/trezcool/kinga/services/logger"
	"github.com/trezcool/kinga/storage/database"
	inmemdb "github.com/trezcool/kinga/storage/database/inmem"
	jsonfiledb "github.com/trezcool/kinga/storage/database/jsonfile"
	sqlxrepos "github.com/trezcool/kinga/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	usrRepo, db, closeDB, err := setUpStore()
	errAndDie(err)
	defer closeDB()

	appLogger := logsvc.NewRollbarLogger(logger, core.Conf)
	appLogger.Enable(false) // CLI errors stay local

	cli := commandLine{
		usrSvc: user.NewService(usrRepo, appLogger),
		db:     db,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

// setUpStore opens the configured store. The *sql.DB is nil for engines
// that do not run migrations; the `migrate` subcommand handles postgres.
func setUpStore() (user.Repository, *sql.DB, func(), error) {
	noop := func() {}

	switch core.Conf.Database.Engine {
	case "postgres":
		if err := database.CreateIfNotExist(core.Conf); err != nil {
			return nil, nil, noop, err
		}
		db, err := database.Open(core.Conf)
		if err != nil {
			return nil, nil, noop, err
		}
		closeDB := func() {
			if err := db.Close(); err != nil {
				logger.Printf("closing database: %v", err)
			}
		}
		return sqlxrepos.NewUserRepository(db), db, closeDB, nil

	case "jsonfile":
		db, err := jsonfiledb.Open(core.Conf.DataDir)
		if err != nil {
			return nil, nil, noop, err
		}
		return jsonfiledb.NewUserRepository(db), nil, noop, nil

	case "inmem":
		db, err := inmemdb.Open()
		if err != nil {
			return nil, nil, noop, err
		}
		return inmemdb.NewUserRepository(db), nil, noop, nil
	}
	return nil, nil, noop, fmt.Errorf("unknown database engine %q", core.Conf.Database.Engine)
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
