package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// Migrator applies the numbered SQL files of one source to a postgres database
type Migrator struct {
	m      *migrate.Migrate
	source fs.FS
	log    *zap.Logger
}

// Status compares the database with the source it is migrated from
type Status struct {
	Version uint
	Dirty   bool
	Latest  uint
	Pending int
}

// Open binds source (usually migrations.FS) to db. Close closes db too, so
// pass a connection pool dedicated to migrating.
func Open(db *sql.DB, source fs.FS, log *zap.Logger) (*Migrator, error) {
	if log == nil {
		log = zap.NewNop()
	}
	src, err := iofs.New(source, ".")
	if err != nil {
		return nil, fmt.Errorf("open migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("postgres migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("init migrate: %w", err)
	}
	return &Migrator{m: m, source: source, log: log.Named("migrate")}, nil
}

// Up applies everything pending
func (g *Migrator) Up() error { return g.run("up", g.m.Up) }

// Down rolls every migration back
func (g *Migrator) Down() error { return g.run("down", g.m.Down) }

// Steps moves n migrations forward, or back when n is negative
func (g *Migrator) Steps(n int) error {
	return g.run("steps", func() error { return g.m.Steps(n) }, zap.Int("steps", n))
}

// GoTo migrates up or down to version
func (g *Migrator) GoTo(version uint) error {
	return g.run("goto", func() error { return g.m.Migrate(version) }, zap.Uint("target", version))
}

// Force records version as applied without running anything. It is how a
// dirty database is recovered after a failed migration is fixed by hand.
func (g *Migrator) Force(version int) error {
	g.log.Warn("forcing schema version", zap.Int("version", version))
	if err := g.m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// Drop removes every table, including the schema_migrations bookkeeping
func (g *Migrator) Drop() error {
	g.log.Warn("dropping all database objects")
	if err := g.m.Drop(); err != nil {
		return fmt.Errorf("drop: %w", err)
	}
	return nil
}

// Version is 0 on a database that was never migrated
func (g *Migrator) Version() (uint, bool, error) {
	v, dirty, err := g.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return v, dirty, nil
}

func (g *Migrator) Status() (Status, error) {
	v, dirty, err := g.Version()
	if err != nil {
		return Status{}, err
	}
	available, err := ListMigrations(g.source)
	if err != nil {
		return Status{}, err
	}
	st := Status{Version: v, Dirty: dirty}
	for _, mi := range available {
		st.Latest = max(st.Latest, mi.Version)
		if mi.Version > v {
			st.Pending++
		}
	}
	return st, nil
}

func (g *Migrator) Close() error {
	srcErr, dbErr := g.m.Close()
	return errors.Join(srcErr, dbErr)
}

// run treats ErrNoChange as success and logs the resulting version
func (g *Migrator) run(op string, fn func() error, fields ...zap.Field) error {
	g.log.Info("migrating", append(fields, zap.String("op", op))...)
	err := fn()
	if errors.Is(err, migrate.ErrNoChange) {
		g.log.Info("schema already current", zap.String("op", op))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", op, err)
	}
	v, dirty, err := g.Version()
	if err != nil {
		return err
	}
	g.log.Info("migration finished", zap.String("op", op), zap.Uint("version", v), zap.Bool("dirty", dirty))
	return nil
}
