package dig_container

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/credeval/apps/api/echo"
	"github.com/trezcool/credeval/core"
	"github.com/trezcool/credeval/core/scale"
	"github.com/trezcool/credeval/core/student"
	logsvc "github.com/trezcool/credeval/services/logger"
	rediscache "github.com/trezcool/credeval/storage/cache/redis"
	"github.com/trezcool/credeval/storage/database"
	"github.com/trezcool/credeval/storage/database/inmem"
	sqlxrepos "github.com/trezcool/credeval/storage/database/sqlx"
)

// EngineInMemory keeps everything in process memory; nothing survives a restart.
const EngineInMemory = "inmem"

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Storage holds the repositories of the configured database engine, and what must be closed on exit.
type Storage struct {
	Scales   scale.Repository
	Students student.Repository
	// Cache is nil unless Redis is enabled.
	Cache   *rediscache.ScaleRepository
	closers []io.Closer
}

func (s *Storage) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Errorf("closing storage: %v", errs)
	}
	return nil
}

func newBaseLogger(conf *core.Config) *logsvc.Logger {
	return logsvc.NewLogger(os.Stdout, conf)
}

func newLogger(base *logsvc.Logger) core.Logger {
	return base.With("api")
}

func newDBLogger(base *logsvc.Logger) core.Logger {
	return base.With("db")
}

func newStorage(conf *core.Config, loggerParam DBLoggerParam) *Storage {
	logger := loggerParam.Logger
	ctx := context.Background()
	st := new(Storage)

	if conf.Database.Engine == EngineInMemory {
		db := inmemdb.Open()
		st.Scales, st.Students = inmemdb.NewScaleRepository(db), inmemdb.NewStudentRepository(db)
		logger.Warn("using the in-memory database, data will be lost on exit")
	} else {
		setUp := func() (core.DB, io.Closer, error) {
			if err := database.CreateIfNotExist(ctx, conf); err != nil {
				return nil, nil, err
			}

			db, err := database.Open(ctx, conf)
			if err != nil {
				return nil, nil, err
			}

			if err = database.Migrate(db.DB); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
			return db, db, nil
		}

		db, closer, err := setUp()
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		st.closers = append(st.closers, closer)
		st.Scales, st.Students = sqlxrepos.NewScaleRepository(db), sqlxrepos.NewStudentRepository(db)
	}

	if conf.Redis.Enabled {
		client, err := rediscache.NewClient(ctx, conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up redis: %v", err), err)
		}
		st.closers = append(st.closers, client)
		st.Cache = rediscache.NewScaleRepository(st.Scales, client, conf.Redis.MappingTTL, logger)
		st.Scales = st.Cache
	}
	return st
}

func newScaleRepository(st *Storage) scale.Repository {
	return st.Scales
}

func newStudentRepository(st *Storage) student.Repository {
	return st.Students
}

func newScaleResolver(svc *scale.Service) student.ScaleResolver {
	return svc
}

// subscribe keeps stored students and cached grade maps in line with grading scale changes.
func subscribe(scaleSvc *scale.Service, studentSvc *student.Service, st *Storage) {
	// the cache goes first: student recomputations read grade maps through it
	if st.Cache != nil {
		scaleSvc.Subscribe(st.Cache.Invalidate)
	}
	scaleSvc.Subscribe(studentSvc.OnScaleChanged)
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newBaseLogger))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(newScaleRepository))
	must(c.Provide(newStudentRepository))
	must(c.Provide(core.NewValidator))
	must(c.Provide(scale.NewService))
	must(c.Provide(newScaleResolver))
	must(c.Provide(student.NewService))
	must(c.Provide(echoapi.NewServer))
	must(c.Invoke(subscribe))

	if os.Getenv("DIG_VISUALIZE") != "" {
		_ = dig.Visualize(c, os.Stdout)
	}

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
