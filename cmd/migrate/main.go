// Command migrate manages the inkwell schema: it applies or rolls back the
// embedded SQL migrations, runs AutoMigrate outside production, and reports
// what is pending.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/database"

	"gorm.io/gorm"
)

const usageText = "usage: migrate [-timeout 2m] <up|auto|status|check|list|down <version>>"

var errUsage = errors.New(usageText)

// errPending makes `check` exit non-zero so deploy scripts can gate on it.
var errPending = errors.New("migrations pending")

func main() {
	timeout := flag.Duration("timeout", 2*time.Minute, "Abort schema operations after this long")
	flag.Parse()

	if err := run(*timeout, flag.Args(), os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(timeout time.Duration, args []string, out io.Writer) error {
	if len(args) < 1 {
		return errUsage
	}
	cmd := strings.ToLower(strings.TrimSpace(args[0]))
	if cmd == "list" {
		return listMigrations(out)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return execute(ctx, db, cfg, cmd, args[1:], out)
}

func execute(ctx context.Context, db *gorm.DB, cfg *config.Config, cmd string, rest []string, out io.Writer) error {
	switch cmd {
	case "up":
		if err := database.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		fmt.Fprintln(out, "sql migrations applied")
	case "auto":
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return fmt.Errorf("auto schema apply failed: %w", err)
		}
		fmt.Fprintln(out, "automigrations applied")
	case "status", "check":
		status, err := database.GetSchemaStatus(ctx, db, cfg)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		fmt.Fprintf(out, "mode=%s env=%s applied=%d pending=%d\n",
			status.Mode, status.Environment, len(status.AppliedVersions), len(status.PendingMigrations))
		for _, m := range status.PendingMigrations {
			fmt.Fprintf(out, "pending: %s\n", m.String())
		}
		if cmd == "check" && len(status.PendingMigrations) > 0 {
			return errPending
		}
	case "down":
		if len(rest) < 1 {
			return errUsage
		}
		version, err := strconv.Atoi(rest[0])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", rest[0], err)
		}
		if database.GetMigrationByVersion(version) == nil {
			return fmt.Errorf("unknown migration version %d", version)
		}
		if err := database.RollbackMigration(ctx, db, version); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		fmt.Fprintf(out, "rolled back migration %d\n", version)
	default:
		return errUsage
	}
	return nil
}

func listMigrations(out io.Writer) error {
	for _, m := range database.GetMigrations() {
		fmt.Fprintln(out, m.String())
	}
	return nil
}
