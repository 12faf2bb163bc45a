package database

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/jhoelito123/PyStart/core"
	"github.com/jhoelito123/PyStart/core/aggregate"
	"github.com/jhoelito123/PyStart/core/catalog"
	"github.com/jhoelito123/PyStart/core/course"
	"github.com/jhoelito123/PyStart/core/enrollment"
	"github.com/jhoelito123/PyStart/core/user"
	inmemdb "github.com/jhoelito123/PyStart/storage/database/inmem"
	sqlxrepos "github.com/jhoelito123/PyStart/storage/database/sqlx"
)

const (
	EnginePostgres = "postgres"
	EngineMemory   = "memory"
)

// CourseStore persists courses and their children and exposes the course aggregates.
type CourseStore interface {
	course.Repository
	aggregate.Store
}

// Store bundles the repositories of one storage engine.
type Store struct {
	Tx          core.Transactor
	Users       user.Repository
	Catalog     catalog.Repository
	Courses     CourseStore
	Enrollments enrollment.Repository

	SQL *sql.DB // nil for the memory engine
}

func NewPostgresStore(db *sqlx.DB) *Store {
	sdb := sqlxrepos.NewDB(db)
	return &Store{
		Tx:          sdb,
		Users:       sqlxrepos.NewUserRepository(sdb),
		Catalog:     sqlxrepos.NewCatalogRepository(sdb),
		Courses:     sqlxrepos.NewCourseRepository(sdb),
		Enrollments: sqlxrepos.NewEnrollmentRepository(sdb),
		SQL:         db.DB,
	}
}

func NewMemoryStore() *Store {
	mdb := inmemdb.Open()
	return &Store{
		Tx:          mdb,
		Users:       inmemdb.NewUserRepository(mdb),
		Catalog:     inmemdb.NewCatalogRepository(mdb),
		Courses:     inmemdb.NewCourseRepository(mdb),
		Enrollments: inmemdb.NewEnrollmentRepository(mdb),
	}
}

// OpenStore sets up the configured engine. Postgres databases are created and migrated when needed.
func OpenStore(conf *core.Config) (*Store, error) {
	switch conf.Database.Engine {
	case EngineMemory:
		return NewMemoryStore(), nil
	case EnginePostgres, "":
		if err := CreateIfNotExist(conf); err != nil {
			return nil, err
		}
		db, err := Open(conf)
		if err != nil {
			return nil, err
		}
		if err = Migrate(db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
		return NewPostgresStore(db), nil
	default:
		return nil, errors.Errorf("unknown database engine %q", conf.Database.Engine)
	}
}

func (s *Store) Close() error {
	if s.SQL == nil {
		return nil
	}
	return s.SQL.Close()
}
