package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	echoapi "github.com/trezcool/kinga/apps/api/echo"
	"github.com/trezcool/kinga/core"
	"github.com/trezcool/kinga/core/auth"
	"github.com/trezcool/kinga/core/safety"
	"github.com/trezcool/kinga/core/user"
	emailsvc "github.com/trezcool/kinga/services/email"
	logsvc "github.com/trezcool/kinga/services/logger"
	notifsvc "github.com/trezcool/kinga/services/notification"
	"github.com/trezcool/kinga/storage/database"
	inmemdb "github.com/trezcool/kinga/storage/database/inmem"
	jsonfiledb "github.com/trezcool/kinga/storage/database/jsonfile"
	sqlxrepos "github.com/trezcool/kinga/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		core.Conf,
	)
	logger.Enable(!core.Conf.Debug)

	userRepo, safetyRepo, closeDB, err := setUpStore()
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up store: %v", err), err)
	}
	defer closeDB()

	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	usrSvc := user.NewService(userRepo, logger)
	authMgr := auth.NewManager(usrSvc, logger)
	dispatcher := notifsvc.NewEmailDispatcher(mailSvc, logger)
	safetySvc := safety.NewService(safetyRepo, usrSvc, authMgr, dispatcher, logger)

	// =========================================================================
	// Start API Service

	logger.Info(fmt.Sprintf("Application initializing : version %q", core.Conf.Build))
	defer logger.Info("Application stopped")

	server := echoapi.NewServer(
		&echoapi.Options{
			Address:   core.Conf.Server.Address(),
			Logger:    logger,
			UserSvc:   usrSvc,
			AuthMgr:   authMgr,
			SafetySvc: safetySvc,
		},
	)
	server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), core.Conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpStore opens the persistence backend the config selects: "postgres"
// (remote DB), "jsonfile" (local files) or "inmem" (throwaway).
func setUpStore() (user.Repository, safety.Repository, func(), error) {
	noop := func() {}

	switch core.Conf.Database.Engine {
	case "postgres":
		db, err := setUpDB()
		if err != nil {
			return nil, nil, noop, err
		}
		closeDB := func() {
			if err := db.Close(); err != nil {
				log.Printf("closing database: %v", err)
			}
		}
		return sqlxrepos.NewUserRepository(db), sqlxrepos.NewSafetyRepository(db), closeDB, nil

	case "jsonfile":
		db, err := jsonfiledb.Open(core.Conf.DataDir)
		if err != nil {
			return nil, nil, noop, err
		}
		return jsonfiledb.NewUserRepository(db), jsonfiledb.NewSafetyRepository(db), noop, nil

	case "inmem":
		db, err := inmemdb.Open()
		if err != nil {
			return nil, nil, noop, err
		}
		return inmemdb.NewUserRepository(db), inmemdb.NewSafetyRepository(db), noop, nil
	}
	return nil, nil, noop, fmt.Errorf("unknown database engine %q", core.Conf.Database.Engine)
}

func setUpDB() (*sql.DB, error) {
	if err := database.CreateIfNotExist(core.Conf); err != nil {
		return nil, err
	}

	db, err := database.Open(core.Conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
