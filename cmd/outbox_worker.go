/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bookline/ballast/internal/bootstrap"
	"github.com/bookline/ballast/internal/config"
	"github.com/bookline/ballast/internal/infra/messaging"
	"github.com/bookline/ballast/internal/infra/persistence"
	"github.com/bookline/ballast/internal/infra/resilience"
	"github.com/bookline/ballast/internal/observability"
	"github.com/bookline/ballast/internal/outbox"
	"github.com/spf13/cobra"
)

var outboxCmd = &cobra.Command{
	Use:   "outbox-worker",
	Short: "Dispatch pending outbox events to NATS JetStream",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := config.Load(cfgFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "config error:", err)
			os.Exit(1)
		}
		log, err := bootstrap.BuildLogger(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, "log error:", err)
			os.Exit(1)
		}

		db, err := persistence.New(ctx, persistence.Config{
			WriteDSN:          cfg.Database.WriteDSN,
			ReadDSN:           cfg.Database.ReadDSN,
			MaxConns:          cfg.Database.MaxConns,
			MinConns:          cfg.Database.MinConns,
			MaxConnLifetime:   cfg.Database.MaxConnLifetime,
			MaxConnIdleTime:   cfg.Database.MaxConnIdleTime,
			HealthCheckPeriod: cfg.Database.HealthCheckPeriod,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "db error:", err)
			os.Exit(1)
		}
		defer db.Close()

		natsClient, err := messaging.NewNATS(ctx, cfg.NATS)
		if err != nil {
			fmt.Fprintln(os.Stderr, "nats error:", err)
			os.Exit(1)
		}
		if natsClient == nil {
			fmt.Fprintln(os.Stderr, "nats error: nats url is required")
			os.Exit(1)
		}
		defer natsClient.Close()

		metrics := observability.NewMetrics("ballast")
		dispatcher := outbox.NewDispatcher(outbox.Config{
			BatchSize:    cfg.Outbox.BatchSize,
			PollInterval: cfg.Outbox.PollInterval,
			MaxRetries:   cfg.Outbox.MaxRetries,
		}, db, persistence.NewOutboxRepository(db), natsClient, log, metrics)

		if cfg.Outbox.AccountingURL != "" {
			breakers := resilience.NewBreakerGroup(resilience.DefaultBreakerConfig())
			breakers.OnStateChange(func(target, from, to string) {
				log.Warnf("outbox-worker: accounting breaker for %s moved %s -> %s", target, from, to)
			})
			accounting := outbox.NewAccountingClient(cfg.Outbox.AccountingURL, cfg.Outbox.AccountingToken, breakers)
			dispatcher.OnTopic("invoice.create_requested", outbox.InvoiceHook(accounting))
			log.Infof("outbox-worker: accounting hook enabled (%s)", cfg.Outbox.AccountingURL)
		}

		if err := dispatcher.Run(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "outbox worker error:", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(outboxCmd)
}
