package main

import (
	"fmt"
	"log"
	"os"

	"github.com/jhoelito123/PyStart/core"
	"github.com/jhoelito123/PyStart/core/aggregate"
	"github.com/jhoelito123/PyStart/core/catalog"
	"github.com/jhoelito123/PyStart/core/course"
	"github.com/jhoelito123/PyStart/core/enrollment"
	"github.com/jhoelito123/PyStart/core/user"
	emailsvc "github.com/jhoelito123/PyStart/services/email"
	logsvc "github.com/jhoelito123/PyStart/services/logger"
	"github.com/jhoelito123/PyStart/storage/database"
)

func main() {
	conf := core.NewConfig()
	stdLogger := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	defer logger.Close()

	if conf.Database.Engine == database.EngineMemory {
		stdLogger.Fatal("the admin CLI needs a persistent database engine")
	}

	// set up DB
	db, err := database.Open(conf)
	errAndDie(stdLogger, err)
	defer db.Close()

	core.ParseEmailTemplates(logger)

	// start CLI
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	cli := newCommandLine(database.NewPostgresStore(db), mailSvc, logger)
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			stdLogger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func newCommandLine(store *database.Store, mailSvc core.EmailService, logger core.Logger) *commandLine {
	usrSvc := user.NewService(store.Users, store.Tx)
	recomputer := aggregate.NewRecomputer(store.Courses, logger)
	tracker := enrollment.NewTracker(store.Enrollments, store.Courses, usrSvc, store.Tx, mailSvc, logger)
	courseSvc := course.NewService(store.Courses, store.Tx, recomputer, tracker, catalog.NewService(store.Catalog), logger)

	return &commandLine{
		db:         store.SQL,
		usrSvc:     usrSvc,
		courseSvc:  courseSvc,
		recomputer: recomputer,
		tracker:    tracker,
		out:        os.Stdout,
	}
}

func errAndDie(logger *log.Logger, err error) {
	if err != nil {
		logger.Fatal(fmt.Sprintf("%+v", err))
	}
}
