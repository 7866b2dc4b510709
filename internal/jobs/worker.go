package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/bookline/ballast/internal/domain/repository"
	"github.com/bookline/ballast/internal/observability"
	"github.com/sirupsen/logrus"
)

type WorkerConfig struct {
	ID           string
	Queue        string
	BatchSize    int
	PollInterval time.Duration
}

// Worker polls one queue: claim a batch, execute each job's handler, record
// success or failure, sleep when the queue is empty.
type Worker struct {
	cfg      WorkerConfig
	repo     repository.JobRepository
	registry *Registry
	log      *logrus.Logger
	metrics  *observability.Metrics
}

func NewWorker(cfg WorkerConfig, repo repository.JobRepository, registry *Registry, log *logrus.Logger, metrics *observability.Metrics) *Worker {
	if cfg.ID == "" {
		cfg.ID = "worker"
	}
	if cfg.Queue == "" {
		cfg.Queue = entity.QueueDefault
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	return &Worker{cfg: cfg, repo: repo, registry: registry, log: log, metrics: metrics}
}

func (w *Worker) Run(ctx context.Context) error {
	w.log.Infof("job-worker %s: started (queue=%s, batch=%d, interval=%s)", w.cfg.ID, w.cfg.Queue, w.cfg.BatchSize, w.cfg.PollInterval)
	for {
		processed, err := w.ProcessOnce(ctx)
		if err != nil {
			w.log.WithError(err).Warn("job-worker: poll failed")
		}
		if processed > 0 {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.cfg.PollInterval):
		}
	}
}

// ProcessOnce claims and executes one batch; it returns how many jobs ran.
func (w *Worker) ProcessOnce(ctx context.Context) (int, error) {
	claimed, err := w.repo.Claim(ctx, w.cfg.ID, w.cfg.Queue, w.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	for _, job := range claimed {
		w.execute(ctx, job)
	}
	return len(claimed), nil
}

func (w *Worker) execute(ctx context.Context, job entity.BackgroundJob) {
	log := w.log.WithFields(logrus.Fields{
		"job_id":   job.ID,
		"job_type": job.JobType,
		"queue":    job.Queue,
		"attempt":  job.Attempts,
	})

	handler, ok := w.registry.Get(job.JobType)
	if !ok {
		w.fail(ctx, job, fmt.Errorf("%w: %s", repository.ErrUnknownJobType, job.JobType), log)
		return
	}

	result, err := handler(ctx, Scope{Job: job, Log: log}, job.Payload)
	if err != nil {
		w.fail(ctx, job, err, log)
		return
	}
	if err := w.repo.Complete(ctx, job.ID, result); err != nil {
		log.WithError(err).Error("job-worker: complete failed")
		return
	}
	if w.metrics != nil {
		w.metrics.JobsSucceeded.Inc()
	}
	log.Info("job succeeded")
}

func (w *Worker) fail(ctx context.Context, job entity.BackgroundJob, cause error, log *logrus.Entry) {
	updated, err := w.repo.Fail(ctx, job.ID, cause.Error())
	if err != nil {
		log.WithError(err).Error("job-worker: fail transition failed")
		return
	}
	if w.metrics != nil {
		w.metrics.JobsFailed.Inc()
	}
	if updated.Status == entity.JobStatusDeadLetter {
		if w.metrics != nil {
			w.metrics.JobsDeadLettered.Inc()
		}
		log.WithError(cause).Error("job dead-lettered")
		return
	}
	log.WithError(cause).WithField("run_after", updated.RunAfter).Warn("job failed, requeued")
}
