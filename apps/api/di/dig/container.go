package dig_container

import (
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/masomo-emis/apps/api/echo"
	"github.com/trezcool/masomo-emis/core"
	"github.com/trezcool/masomo-emis/core/enrollment"
	backendsvc "github.com/trezcool/masomo-emis/services/backend"
	emailsvc "github.com/trezcool/masomo-emis/services/email"
	logsvc "github.com/trezcool/masomo-emis/services/logger"
	metricsvc "github.com/trezcool/masomo-emis/services/metrics"
	"github.com/trezcool/masomo-emis/storage/database"
	sqlxrepos "github.com/trezcool/masomo-emis/storage/database/sqlx"
	"github.com/trezcool/masomo-emis/storage/session"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// App holds what the API's main needs. DB & Redis are only set when the config uses them.
type App struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	DBLogger   core.Logger   `name:"dbLogger"`
	DB         *sqlx.DB      `optional:"true"`
	Redis      *redis.Client `optional:"true"`
	Validate   *validator.Validate
	Translator ut.Translator
	Wizards    *enrollment.Service
	Server     *echoapi.Server
}

type serverParams struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	Wizards    *enrollment.Service
	Registry   echoapi.EnrollmentLister `optional:"true"`
	Metrics    *metricsvc.Metrics
	Validate   *validator.Validate
	Translator ut.Translator
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newRedisStore(conf *core.Config, client *redis.Client) enrollment.SessionStore {
	return session.NewRedisStore(client, conf.Enrollment.SessionTTL)
}

func newService(
	store enrollment.SessionStore,
	enroller enrollment.Enroller,
	metrics *metricsvc.Metrics,
	logger core.Logger,
	conf *core.Config,
) *enrollment.Service {
	return enrollment.NewService(store, enroller, metrics, logger, conf)
}

func registrarAsEnroller(r *enrollment.Registrar) (enrollment.Enroller, echoapi.EnrollmentLister) {
	return r, r
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Wizards:    p.Wizards,
		Registry:   p.Registry,
		Metrics:    p.Metrics.Handler(),
		Validate:   p.Validate,
		Translator: p.Translator,
	})
}

// New returns a new dependency injection dig.Container.
// The session store & the enroller are picked from the config.
func New() *dig.Container {
	c := dig.New()
	conf := core.NewConfig()

	must(c.Provide(func() *core.Config { return conf }))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newEmailService))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(metricsvc.NewMetrics))

	switch conf.Enrollment.SessionStore {
	case core.SessionStoreRedis:
		must(c.Provide(session.NewRedisClient))
		must(c.Provide(newRedisStore))
	default:
		must(c.Provide(session.NewMemoryStore))
	}

	switch conf.Enrollment.Backend {
	case core.BackendRemote:
		must(c.Provide(backendsvc.NewClient, dig.As(new(enrollment.Enroller))))
	default:
		must(c.Provide(newDB))
		must(c.Provide(sqlxrepos.NewEnrollmentRepository))
		must(c.Provide(enrollment.NewRegistrar))
		must(c.Provide(registrarAsEnroller))
	}

	must(c.Provide(newService))
	must(c.Provide(newServer))
	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
