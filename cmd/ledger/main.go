package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ledger/internal/cli"
	"ledger/internal/config"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/services"
)

func main() {
	a := newApp()
	err := a.rootCmd().Execute()
	a.close()

	if err != nil {
		fmt.Fprintln(os.Stderr, describeError(err))
		os.Exit(1)
	}
}

// app holds what every subcommand needs. The ledger is opened lazily, after
// flags are parsed.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *log.Logger
	ledger *services.LedgerService
}

func newApp() *app {
	return &app{v: viper.New()}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ledger",
		Short: "Track expenses, income, budgets and savings goals",
		Long: `ledger records expenses and income in a local SQLite database,
keeps one spending limit per category and tracks progress toward savings goals.
Contributing to a goal records a matching expense; deleting an expense rolls
back the goal named like its category.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.open,
	}

	flags := root.PersistentFlags()
	flags.String("db", "", "path to the ledger database (env SQLITE_DB_PATH)")
	flags.String("log-level", "", "debug, info, warn or error (env LOG_LEVEL)")
	_ = a.v.BindPFlag(config.KeySQLitePath, flags.Lookup("db"))
	_ = a.v.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))

	root.AddCommand(
		a.expenseCmd(),
		a.incomeCmd(),
		a.budgetCmd(),
		a.goalCmd(),
		a.exportCmd(),
	)
	return root
}

func (a *app) open(cmd *cobra.Command, _ []string) error {
	if a.ledger != nil {
		return nil
	}

	cli.LoadEnvFile()
	cfg, err := cli.LoadAndValidateConfig(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = cli.SetupLogger(cfg, cmd.ErrOrStderr(), log.ComponentCLI)

	repo, err := cli.InitSQLite(a.logger, cfg.SQLiteDBPath)
	if err != nil {
		return err
	}

	publisher, err := cli.InitAMQP(a.logger, cfg)
	if err != nil {
		// Events are best effort; the ledger works without a broker.
		a.logger.Warn("Continuing without event publishing", log.FieldError, err)
	}

	if publisher != nil {
		a.ledger = services.NewLedgerService(repo, publisher)
	} else {
		a.ledger = services.NewLedgerService(repo, nil)
	}
	return nil
}

func (a *app) close() {
	if a.ledger == nil {
		return
	}
	if err := a.ledger.Close(); err != nil && a.logger != nil {
		a.logger.Error("Failed to close ledger", log.FieldError, err)
	}
	a.ledger = nil
}

// describeError turns a command error into the single line shown to the user.
func describeError(err error) string {
	var (
		verr *core.ValidationError
		nerr *core.NotFoundError
	)
	switch {
	case errors.As(err, &verr):
		return fmt.Sprintf("Invalid input: %v", verr)
	case errors.As(err, &nerr):
		return fmt.Sprintf("Not found: %s", nerr.Error())
	case errors.Is(err, core.ErrStorage):
		return fmt.Sprintf("Storage failure: %v", err)
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
