// Command migrate applies the embedded schema migrations.
//
// Usage:
//
//	migrate up
//	migrate down
//	migrate status
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/BradenHooton/sentinel/internal/config"
	"github.com/BradenHooton/sentinel/internal/database"
	"github.com/alecthomas/kong"
)

// CLI defines the command-line interface.
type CLI struct {
	Up     UpCmd     `cmd:"" help:"Apply all pending migrations."`
	Down   DownCmd   `cmd:"" help:"Roll back the most recent migration."`
	Status StatusCmd `cmd:"" help:"Show the state of every migration."`

	Timeout time.Duration `help:"Give up after this long." default:"2m"`
}

type UpCmd struct{}

func (c *UpCmd) Run(m *database.Migrator, ctx context.Context) error {
	return m.Up(ctx)
}

type DownCmd struct{}

func (c *DownCmd) Run(m *database.Migrator, ctx context.Context) error {
	return m.Down(ctx)
}

type StatusCmd struct{}

func (c *StatusCmd) Run(m *database.Migrator, ctx context.Context, logger *slog.Logger) error {
	if err := m.Status(ctx); err != nil {
		return err
	}
	version, err := m.Version(ctx)
	if err != nil {
		return err
	}
	logger.Info("schema version", slog.Int64("version", version))
	return nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cli := CLI{}
	kctx := kong.Parse(&cli,
		kong.Name("migrate"),
		kong.Description("Manage the sentinel database schema"),
		kong.UsageOnError(),
	)

	if err := run(kctx, &cli, logger); err != nil {
		logger.Error("migration failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(kctx *kong.Context, cli *CLI, logger *slog.Logger) error {
	dbCfg, err := config.LoadDatabase()
	if err != nil {
		return err
	}

	db, err := database.NewConnection(dbCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db, logger)
	if err != nil {
		return err
	}
	defer migrator.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cli.Timeout)
	defer cancel()

	kctx.BindTo(ctx, (*context.Context)(nil))
	return kctx.Run(migrator, logger)
}
