// Command migrate manages the PharmaNet postgres schema.
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/pharmanet/backend/internal/infrastructure/config"
	"github.com/pharmanet/backend/internal/infrastructure/logger"
	"github.com/pharmanet/backend/internal/infrastructure/migration"
	"github.com/pharmanet/backend/migrations"
	"go.uber.org/zap"
)

// command is one migrate subcommand that needs a database
type command struct {
	usage string
	nargs int // required positional arguments
	run   func(m *migration.Migrator, args []string) error
}

var commands = map[string]command{
	"up":   {"up", 0, func(m *migration.Migrator, _ []string) error { return m.Up() }},
	"down": {"down", 0, func(m *migration.Migrator, _ []string) error { return m.Down() }},
	"step": {"step <n>", 1, func(m *migration.Migrator, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid step count %q", args[0])
		}
		return m.Steps(n)
	}},
	"goto": {"goto <version>", 1, func(m *migration.Migrator, args []string) error {
		v, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return m.GoTo(uint(v))
	}},
	"force": {"force <version>", 1, func(m *migration.Migrator, args []string) error {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return m.Force(v)
	}},
	"drop": {"drop -confirm", 0, func(m *migration.Migrator, args []string) error {
		if !slices.Contains(args, "-confirm") && !slices.Contains(args, "--confirm") {
			return errors.New("drop needs -confirm")
		}
		return m.Drop()
	}},
	"status": {"status", 0, func(m *migration.Migrator, _ []string) error {
		st, err := m.Status()
		if err != nil {
			return err
		}
		fmt.Printf("version %d (latest %d, %d pending)", st.Version, st.Latest, st.Pending)
		if st.Dirty {
			fmt.Print(" DIRTY: fix the failed migration, then run force")
		}
		fmt.Println()
		return nil
	}},
}

func main() {
	dir := flag.String("path", "", "read migrations from this directory instead of the embedded set")
	level := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{Level: *level, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync(log) }()

	if err := dispatch(args[0], args[1:], *dir, log); err != nil {
		log.Fatal("migrate failed", zap.String("command", args[0]), zap.Error(err))
	}
}

func dispatch(name string, args []string, dir string, log *zap.Logger) error {
	switch name {
	case "create":
		if len(args) == 0 {
			return errors.New("usage: migrate create <name> [description]")
		}
		if dir == "" {
			dir = "migrations"
		}
		desc := ""
		if len(args) > 1 {
			desc = args[1]
		}
		mf, err := migration.CreateMigration(dir, args[0], desc)
		if err != nil {
			return err
		}
		log.Info("migration created", zap.String("up", mf.UpPath), zap.String("down", mf.DownPath))
		return nil

	case "list":
		source, _, err := sourceFS(dir)
		if err != nil {
			return err
		}
		available, err := migration.ListMigrations(source)
		if err != nil {
			return err
		}
		for _, m := range available {
			fmt.Println(m.BaseName())
		}
		return nil
	}

	cmd, ok := commands[name]
	if !ok {
		usage()
		return fmt.Errorf("unknown command %q", name)
	}
	if len(args) < cmd.nargs {
		return fmt.Errorf("usage: migrate %s", cmd.usage)
	}

	source, sourceName, err := sourceFS(dir)
	if err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping %s:%d: %w", cfg.Database.Host, cfg.Database.Port, err)
	}

	m, err := migration.Open(db, source, log)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer m.Close()

	log.Info("running", zap.String("command", name), zap.String("source", sourceName))
	return cmd.run(m, args)
}

// sourceFS is the -path directory when given, the embedded set otherwise
func sourceFS(dir string) (fs.FS, string, error) {
	if dir == "" {
		return migrations.FS, "embedded", nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, "", err
	}
	return os.DirFS(abs), abs, nil
}

func usage() {
	fmt.Fprint(os.Stderr, `PharmaNet schema migrations

usage: migrate [-path dir] [-log-level level] <command> [args]

  up                    apply every pending migration
  down                  roll every migration back
  step <n>              apply n migrations, negative rolls back
  goto <version>        migrate to version
  status                show applied, latest and pending versions
  force <version>       mark version applied (recovers a dirty database)
  drop -confirm         drop every database object
  create <name> [desc]  write the next up/down file pair into -path (default ./migrations)
  list                  list the migrations of the source

The database comes from config.toml and PHARMA_DATABASE_* variables.
`)
}
