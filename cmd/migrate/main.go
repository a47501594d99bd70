package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/mesflow-backend/pkg/config"
	"github.com/angelmondragon/mesflow-backend/pkg/db"
	"github.com/angelmondragon/mesflow-backend/pkg/logger"
	"github.com/angelmondragon/mesflow-backend/pkg/migrate"
)

const serviceKind = "migrate"

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceKind, Format: logger.FormatConsole})
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "up|down|status|redo|reset|version|create|validate")
	flag.StringVar(&opts.dir, "dir", "", "migrations directory; empty uses the embedded set ("+migrate.DefaultDir+" for create)")
	flag.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target version YYYYMMDDHHMMSS for -cmd=version")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"cmd": opts.cmd, "dir": opts.dir})

	if err := run(ctx, opts, logg, os.Stdout); err != nil {
		logg.Error(ctx, "migration command failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, logg *logger.Logger, out io.Writer) error {
	// create and validate only touch the filesystem.
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return fmt.Errorf("-name is required for create")
		}
		dir := opts.dir
		if dir == "" {
			dir = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(dir, opts.name, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "created", path)
		return nil
	case "validate":
		source, err := migrate.Source(opts.dir)
		if err != nil {
			return err
		}
		if err := migrate.ValidateFS(source); err != nil {
			return err
		}
		fmt.Fprintln(out, "migrations are valid")
		return nil
	}

	dbCfg, err := config.LoadDB()
	if err != nil {
		return err
	}
	dbClient, err := db.New(ctx, *dbCfg, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Warn(ctx, "failed to close database")
		}
	}()

	sqlDB, err := dbClient.SQL()
	if err != nil {
		return err
	}
	source, err := migrate.Source(opts.dir)
	if err != nil {
		return err
	}
	runner, err := migrate.NewRunner(sqlDB, dbCfg.Driver, source)
	if err != nil {
		return err
	}

	var applied []migrate.Applied
	switch opts.cmd {
	case "up":
		applied, err = runner.Up(ctx)
	case "down":
		applied, err = runner.Down(ctx)
	case "redo":
		applied, err = runner.Redo(ctx)
	case "reset":
		applied, err = runner.Reset(ctx)
	case "version":
		if opts.version == "" {
			return fmt.Errorf("-version is required for version")
		}
		applied, err = runner.To(ctx, opts.version)
	case "status":
		return printStatus(ctx, runner, out)
	default:
		return fmt.Errorf("unknown -cmd value %q", opts.cmd)
	}
	printApplied(out, applied)
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "migrations", len(applied)), "migration command finished")
	return nil
}

func printApplied(out io.Writer, applied []migrate.Applied) {
	for _, a := range applied {
		fmt.Fprintf(out, "%-4s %d %s (%s)\n", a.Direction, a.Version, a.Path, a.Duration.Round(time.Millisecond))
	}
}

func printStatus(ctx context.Context, runner *migrate.Runner, out io.Writer) error {
	rows, err := runner.Status(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tFILE")
	for _, row := range rows {
		state, at := "pending", "-"
		if row.Applied {
			state, at = "applied", row.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", row.Version, state, at, row.Path)
	}
	return tw.Flush()
}
