package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"bourse/bots"
	"bourse/config"
	"bourse/engine"
	"bourse/logging"
	"bourse/metrics"
	"bourse/server"
)

func main() {
	root := &cobra.Command{
		Use:           "bourse",
		Short:         "bourse is a continuous double-auction exchange server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(runCmd(), initCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addConfigFlag(fs *pflag.FlagSet) *string {
	return fs.StringP("config", "c", "bourse.toml", "path to the configuration file")
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "start the exchange server",
	}
	cfgPath := addConfigFlag(cmd.Flags())

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(*cfgPath)
		if err != nil {
			return err
		}

		log, err := logging.New(cfg.Logging.Level, cfg.Logging.Encoding)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		exchange, err := buildExchange(cfg)
		if err != nil {
			return err
		}

		srv := server.New(exchange, server.Options{
			ListenAddr:    cfg.Server.ListenAddr,
			TickInterval:  cfg.Server.TickInterval.Duration,
			AdminInterval: cfg.Server.AdminInterval.Duration,
			AuthGrace:     cfg.Server.AuthGrace.Duration,
			Metrics:       cfg.Metrics.Enabled,
		}, log, metrics.New())

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cfg.Bots.Enabled {
			supervisor := bots.NewSupervisor(srv, botAssignments(cfg), cfg.Bots.OrderInterval.Duration, log)
			go supervisor.Start(ctx)
		}

		log.Info("starting exchange",
			zap.Int("instruments", len(cfg.Instruments)),
			zap.Int("accounts", len(cfg.Accounts)))
		return srv.Run(ctx)
	}
	return cmd
}

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "write an example configuration file",
	}
	cfgPath := addConfigFlag(cmd.Flags())

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(*cfgPath); err == nil {
			return fmt.Errorf("%s already exists", *cfgPath)
		}
		if err := os.WriteFile(*cfgPath, []byte(config.Example), 0o644); err != nil {
			return err
		}
		fmt.Println("wrote", *cfgPath)
		return nil
	}
	return cmd
}

func buildExchange(cfg config.Config) (*engine.Exchange, error) {
	tickers := make([]engine.TickerSpec, 0, len(cfg.Instruments))
	for _, inst := range cfg.Instruments {
		tickers = append(tickers, engine.TickerSpec{ID: inst.ID, Alias: inst.Alias})
	}
	accounts := make([]engine.AccountSpec, 0, len(cfg.Accounts))
	for _, acct := range cfg.Accounts {
		accounts = append(accounts, engine.AccountSpec{
			ID:         acct.ID,
			Alias:      acct.Alias,
			Passphrase: acct.Passphrase,
			Admin:      acct.Admin,
		})
	}
	return engine.NewExchange(tickers, accounts)
}

// botAssignments spreads the bot accounts across instruments and
// strategies round-robin.
func botAssignments(cfg config.Config) []bots.Assignment {
	const basePrice = 10000

	var assignments []bots.Assignment
	i := 0
	for _, acct := range cfg.Accounts {
		if !acct.Bot {
			continue
		}
		ticker := cfg.Instruments[i%len(cfg.Instruments)].Alias
		seed := int64(acct.ID)

		var bot bots.Bot
		switch i % 3 {
		case 0:
			bot = bots.NewRandomBidBot(seed, basePrice)
		case 1:
			bot = bots.NewRandomAskBot(seed, basePrice)
		default:
			bot = bots.NewSpreadCaptureBot(seed, 4)
		}
		assignments = append(assignments, bots.Assignment{Bot: bot, UserID: acct.ID, Ticker: ticker})
		i++
	}
	return assignments
}
