package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/moguls753/abtest/internal/config"
	"github.com/moguls753/abtest/internal/logging"
	"github.com/moguls753/abtest/internal/session"
	"github.com/moguls753/abtest/internal/store"
)

// app carries the state shared by all commands of one invocation
type app struct {
	configPath string
	sessionID  string
	backend    string
	dsn        string

	cfg    config.Config
	logger *zap.Logger
	store  store.Store

	openStore func(ctx context.Context, cfg store.Config, logger *zap.Logger) (store.Store, error)
}

func newApp() *app {
	return &app{openStore: store.Open, logger: zap.NewNop()}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "abtest",
		Short: "Analyse A/B tests with frequentist and Bayesian methods",
		Long: `abtest compares conversion rates of a control and one or more treatments
with the z-test, Fisher's exact test and Beta posteriors, keeps tests in
progress in a session store, and simulates the power of a test design.`,
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.abtest/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.sessionID, "session", "", "session id (default derived from the OS user)")
	rootCmd.PersistentFlags().StringVar(&a.backend, "store", "", "store backend: memory, sqlite, postgres or redis")
	rootCmd.PersistentFlags().StringVar(&a.dsn, "dsn", "", "sqlite path or postgres connection string")

	rootCmd.AddCommand(newAnalyzeCmd(a))
	rootCmd.AddCommand(newTestCmd(a))
	rootCmd.AddCommand(newSettingsCmd(a))
	rootCmd.AddCommand(newSimulateCmd(a))
	rootCmd.AddCommand(newDBCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))
	return rootCmd
}

// setup loads the configuration, applies flag overrides and builds the logger
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.backend != "" {
		cfg.Store.Backend = a.backend
	}
	if a.dsn != "" {
		cfg.Store.DSN = a.dsn
	}
	if a.sessionID != "" {
		cfg.Session = a.sessionID
	}
	if cfg.Session == "" {
		cfg.Session = session.DefaultID()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

func (a *app) teardown(cmd *cobra.Command, args []string) error {
	defer a.logger.Sync()
	if a.store != nil {
		err := a.store.Close()
		a.store = nil
		return err
	}
	return nil
}

// service opens the configured store on first use
func (a *app) service(ctx context.Context) (*session.Service, error) {
	if a.store == nil {
		st, err := a.openStore(ctx, a.cfg.Store, a.logger)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.store = st
	}
	return session.New(a.store, a.cfg.Defaults, a.cfg.Analysis.Base(), a.logger), nil
}

// language returns the session language, english when it cannot be read
func (a *app) language(ctx context.Context, svc *session.Service) string {
	settings, err := svc.Settings(ctx, a.cfg.Session)
	if err != nil {
		return "eng"
	}
	return settings.Language
}

func (a *app) out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
