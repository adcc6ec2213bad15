package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/erp/finance/internal/infrastructure/config"
	"github.com/erp/finance/internal/infrastructure/logger"
	"github.com/erp/finance/internal/infrastructure/migration"
	"github.com/erp/finance/migrations"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

func main() {
	var (
		migrationsPath string
		logLevel       string
	)
	flag.StringVar(&migrationsPath, "path", defaultMigrationsPath, "Directory new migrations are created in")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(logger.Config{Level: logLevel, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if handled := runFileCommand(log, migrationsPath, args); handled {
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	m, err := migration.New(cfg.Database.MigrationURL(), migrations.FS, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer func() { _ = m.Close() }()

	if err := runSchemaCommand(log, m, args); err != nil {
		log.Fatal("Migration command failed", zap.String("command", command), zap.Error(err))
	}
}

// runFileCommand handles the commands that never touch the database.
func runFileCommand(log *zap.Logger, dir string, args []string) bool {
	switch args[0] {
	case "create":
		name := argAt(log, args, 1, "migrate create <name> [description]")
		description := ""
		if len(args) > 2 {
			description = args[2]
		}
		mf, err := migration.CreateMigration(dir, name, description)
		if err != nil {
			log.Fatal("Failed to create migration", zap.Error(err))
		}
		log.Info("Migration created",
			zap.String("version", mf.Version),
			zap.String("up_file", mf.UpPath),
			zap.String("down_file", mf.DownPath),
		)
	case "list":
		names, err := migration.ListMigrations(migrations.FS)
		if err != nil {
			log.Fatal("Failed to list migrations", zap.Error(err))
		}
		for _, name := range names {
			fmt.Println("  -", name)
		}
	default:
		return false
	}
	return true
}

func runSchemaCommand(log *zap.Logger, m *migration.Migrator, args []string) error {
	switch args[0] {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "step":
		n, err := strconv.Atoi(argAt(log, args, 1, "migrate step <n>"))
		if err != nil {
			return fmt.Errorf("invalid step count %q", args[1])
		}
		return m.Steps(n)
	case "goto":
		v, err := strconv.ParseUint(argAt(log, args, 1, "migrate goto <version>"), 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version %q", args[1])
		}
		return m.GoTo(uint(v))
	case "force":
		v, err := strconv.Atoi(argAt(log, args, 1, "migrate force <version>"))
		if err != nil {
			return fmt.Errorf("invalid version %q", args[1])
		}
		return m.Force(v)
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return nil
	case "status":
		status, err := m.Status()
		if err != nil {
			return err
		}
		for _, st := range status {
			mark := " "
			if st.Applied {
				mark = "x"
			}
			fmt.Printf("  [%s] %s\n", mark, st.Name)
		}
		return nil
	}
	log.Error("Unknown command", zap.String("command", args[0]))
	printUsage()
	os.Exit(1)
	return nil
}

func argAt(log *zap.Logger, args []string, i int, usage string) string {
	if len(args) <= i {
		log.Fatal("Missing argument", zap.String("usage", usage))
	}
	return args[i]
}

func printUsage() {
	fmt.Println(`Finance database migration tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (positive=up, negative=down)
  goto <version>        Migrate to a specific version
  version               Show current migration version
  status                Show which embedded migrations are applied
  force <version>       Force set migration version
  create <name> [desc]  Create a new migration file pair
  list                  List embedded migrations

Flags:
  -path string          Directory for new migrations (default: ./migrations)
  -log-level string     Log level (default: info)

The database connection is read from config.toml and FIN_DATABASE_* variables.`)
}
