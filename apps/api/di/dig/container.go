package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/jhoelito123/PyStart/apps/api/echo"
	"github.com/jhoelito123/PyStart/core"
	"github.com/jhoelito123/PyStart/core/aggregate"
	"github.com/jhoelito123/PyStart/core/analysis"
	"github.com/jhoelito123/PyStart/core/catalog"
	"github.com/jhoelito123/PyStart/core/coderun"
	"github.com/jhoelito123/PyStart/core/course"
	"github.com/jhoelito123/PyStart/core/enrollment"
	"github.com/jhoelito123/PyStart/core/tutor"
	"github.com/jhoelito123/PyStart/core/user"
	aisvc "github.com/jhoelito123/PyStart/services/ai"
	emailsvc "github.com/jhoelito123/PyStart/services/email"
	logsvc "github.com/jhoelito123/PyStart/services/logger"
	"github.com/jhoelito123/PyStart/services/sandbox"
	"github.com/jhoelito123/PyStart/storage/database"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type serverParams struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator

	UserSvc    *user.Service
	CatalogSvc *catalog.Service
	CourseSvc  *course.Service
	Tracker    *enrollment.Tracker
	CodeRunner *coderun.Service
	Analyzer   *analysis.Analyzer
	Tutor      *tutor.Tutor
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newStore(conf *core.Config, loggerParam DBLoggerParam) *database.Store {
	store, err := database.OpenStore(conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	loggerParam.Logger.Info(fmt.Sprintf("storage engine: %s", conf.Database.Engine))
	return store
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newUserService(store *database.Store) *user.Service {
	return user.NewService(store.Users, store.Tx)
}

func newCatalogService(store *database.Store) *catalog.Service {
	return catalog.NewService(store.Catalog)
}

func newRecomputer(store *database.Store, logger core.Logger) *aggregate.Recomputer {
	return aggregate.NewRecomputer(store.Courses, logger)
}

func newTracker(
	store *database.Store,
	users *user.Service,
	mailSvc core.EmailService,
	logger core.Logger,
) *enrollment.Tracker {
	return enrollment.NewTracker(store.Enrollments, store.Courses, users, store.Tx, mailSvc, logger)
}

func newCourseService(
	store *database.Store,
	aggr *aggregate.Recomputer,
	tracker *enrollment.Tracker,
	lookups *catalog.Service,
	logger core.Logger,
) *course.Service {
	return course.NewService(store.Courses, store.Tx, aggr, tracker, lookups, logger)
}

func newCodeRunner(conf *core.Config, validate *validator.Validate, logger core.Logger) *coderun.Service {
	return coderun.NewService(sandbox.NewPython(conf), validate, conf.Sandbox.Timeout, logger)
}

func newAnalyzer(conf *core.Config, logger core.Logger) *analysis.Analyzer {
	return analysis.NewAnalyzer(sandbox.NewChecker(conf), logger)
}

func newTutor(conf *core.Config, validate *validator.Validate, logger core.Logger) *tutor.Tutor {
	var completer tutor.Completer
	gemini, err := aisvc.NewGeminiCompleter(context.Background(), conf)
	switch {
	case err != nil:
		logger.Error(fmt.Sprintf("setting up AI tutor: %v", err), err)
	case gemini != nil:
		completer = gemini
	default:
		logger.Warn("no Gemini API key configured; AI tutor disabled")
	}
	return tutor.NewTutor(completer, validate, conf.AI.Language, logger)
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(&echoapi.Options{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Validate:   p.Validate,
		Translator: p.Translator,
		UserSvc:    p.UserSvc,
		CatalogSvc: p.CatalogSvc,
		CourseSvc:  p.CourseSvc,
		Tracker:    p.Tracker,
		CodeRunner: p.CodeRunner,
		Analyzer:   p.Analyzer,
		Tutor:      p.Tutor,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStore))
	must(c.Provide(newEmailService))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))
	must(c.Provide(newUserService))
	must(c.Provide(newCatalogService))
	must(c.Provide(newRecomputer))
	must(c.Provide(newTracker))
	must(c.Provide(newCourseService))
	must(c.Provide(newCodeRunner))
	must(c.Provide(newAnalyzer))
	must(c.Provide(newTutor))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
