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
	"time"

	"github.com/bookline/ballast/internal/bootstrap"
	"github.com/bookline/ballast/internal/config"
	"github.com/bookline/ballast/internal/infra/persistence"
	"github.com/bookline/ballast/internal/infra/resilience"
	"github.com/bookline/ballast/internal/jobs"
	"github.com/bookline/ballast/internal/jobs/handlers"
	"github.com/bookline/ballast/internal/observability"
	"github.com/spf13/cobra"
)

var (
	jobWorkerQueue       string
	jobWorkerID          string
	jobWorkerBatchSize   int
	jobWorkerPollSeconds float64
	jobWorkerOnce        bool
)

var jobWorkerCmd = &cobra.Command{
	Use:   "job-worker",
	Short: "Claim and execute background jobs from one queue",
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

		breakers := resilience.NewBreakerGroup(resilience.DefaultBreakerConfig())
		breakers.OnStateChange(func(target, from, to string) {
			log.Warnf("job-worker: delivery breaker for %s moved %s -> %s", target, from, to)
		})

		registry := jobs.NewRegistry()
		handlers.RegisterAll(registry, handlers.Deps{
			Store:         db,
			Bookings:      persistence.NewBookingRepository(db),
			Calendars:     persistence.NewCalendarRepository(db),
			Jobs:          persistence.NewJobRepository(db),
			Outbox:        persistence.NewOutboxRepository(db),
			Idempotency:   persistence.NewIdempotencyRepository(db),
			ArtifactDir:   cfg.Jobs.ArtifactDir,
			DefaultTenant: cfg.Idempotency.DefaultTenant,
			Breakers:      breakers,
		})

		pollInterval := cfg.Jobs.PollInterval
		if jobWorkerPollSeconds > 0 {
			pollInterval = time.Duration(jobWorkerPollSeconds * float64(time.Second))
		}
		batchSize := cfg.Jobs.BatchSize
		if jobWorkerBatchSize > 0 {
			batchSize = jobWorkerBatchSize
		}

		metrics := observability.NewMetrics("ballast")
		worker := jobs.NewWorker(jobs.WorkerConfig{
			ID:           jobWorkerID,
			Queue:        jobWorkerQueue,
			BatchSize:    batchSize,
			PollInterval: pollInterval,
		}, persistence.NewJobRepository(db), registry, log, metrics)

		if jobWorkerOnce {
			processed, err := worker.ProcessOnce(ctx)
			if err != nil {
				fmt.Fprintln(os.Stderr, "job worker error:", err)
				os.Exit(1)
			}
			log.Infof("job-worker: processed %d jobs", processed)
			return
		}

		if len(cfg.Jobs.Schedules) > 0 {
			scheduler := jobs.NewScheduler(persistence.NewJobRepository(db), log)
			for _, sched := range cfg.Jobs.Schedules {
				if err := scheduler.Add(jobs.Schedule{
					Cron:        sched.Cron,
					Queue:       sched.Queue,
					JobType:     sched.JobType,
					Payload:     sched.Payload,
					MaxAttempts: sched.MaxAttempts,
				}); err != nil {
					fmt.Fprintln(os.Stderr, "schedule error:", err)
					os.Exit(1)
				}
			}
			scheduler.Start()
			defer scheduler.Stop()
			log.Infof("job-worker: %d schedules active", scheduler.Len())
		}

		if err := worker.Run(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "job worker error:", err)
			os.Exit(1)
		}
	},
}

func init() {
	jobWorkerCmd.Flags().StringVar(&jobWorkerQueue, "queue", "default", "queue to poll (default, exports, alerts, integrations)")
	jobWorkerCmd.Flags().StringVar(&jobWorkerID, "worker-id", fmt.Sprintf("worker-%d", os.Getpid()), "worker identifier recorded on claimed jobs")
	jobWorkerCmd.Flags().IntVar(&jobWorkerBatchSize, "batch-size", 0, "jobs fetched per poll (defaults to jobs.batch_size)")
	jobWorkerCmd.Flags().Float64Var(&jobWorkerPollSeconds, "poll-seconds", 0, "poll interval when the queue is empty (defaults to jobs.poll_interval)")
	jobWorkerCmd.Flags().BoolVar(&jobWorkerOnce, "once", false, "process one poll cycle and exit")
	rootCmd.AddCommand(jobWorkerCmd)
}
