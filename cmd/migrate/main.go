package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/IstiakDeveloper/orgreeni/pkg/config"
	"github.com/IstiakDeveloper/orgreeni/pkg/db"
	"github.com/IstiakDeveloper/orgreeni/pkg/logger"
	"github.com/IstiakDeveloper/orgreeni/pkg/migrate"
)

const usage = `usage: migrate [-dir path] <command> [arg]

commands:
  up               apply every pending migration
  down             roll back the latest migration
  to <version>     migrate up or down to YYYYMMDDHHMMSS
  status           list migrations and whether they are applied
  version          print the current schema version
  create <name>    write a new empty migration into -dir
  validate         check migration file names and goose sections

Without -dir, up/down/to/status/version use the migrations compiled into
the binary; create and validate use ` + migrate.DefaultDir + `.
`

func main() {
	dir := flag.String("dir", "", "migrations directory")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	command, arg := flag.Arg(0), flag.Arg(1)

	_ = godotenv.Load()
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	ctx := logg.WithField(context.Background(), "command", command)

	if err := run(ctx, logg, *dir, command, arg); err != nil {
		logg.Error(ctx, "migrate.command_failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logg *logger.Logger, dir, command, arg string) error {
	// File-only commands never touch the database or need config.
	switch command {
	case "create":
		if arg == "" {
			return fmt.Errorf("create needs a migration name")
		}
		path, err := migrate.Create(orDefault(dir), arg, time.Now())
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	case "validate":
		if err := migrate.ValidateDir(orDefault(dir)); err != nil {
			return err
		}
		fmt.Println("migrations ok")
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.DB.Driver != db.DriverPostgres {
		return fmt.Errorf("goose migrations target postgres, configured driver is %q", cfg.DB.Driver)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": dir})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer dbClient.Close()
	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql database: %w", err)
	}

	fsys, err := migrate.Source(dir)
	if err != nil {
		return err
	}
	runner, err := migrate.NewRunner(sqlDB, fsys, logg)
	if err != nil {
		return err
	}

	switch command {
	case "up":
		return runner.Up(ctx)
	case "down":
		return runner.Down(ctx)
	case "to":
		target, err := migrate.ParseVersion(arg)
		if err != nil {
			return err
		}
		return runner.To(ctx, target)
	case "version":
		v, err := runner.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil
	case "status":
		return printStatus(ctx, runner)
	}
	return fmt.Errorf("unknown command %q", command)
}

func printStatus(ctx context.Context, runner *migrate.Runner) error {
	statuses, err := runner.Status(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tFILE")
	for _, st := range statuses {
		applied := "-"
		if !st.AppliedAt.IsZero() {
			applied = st.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", st.Source.Version, st.State, applied, st.Source.Path)
	}
	return tw.Flush()
}

func orDefault(dir string) string {
	if dir == "" {
		return migrate.DefaultDir
	}
	return dir
}
