// Package outbox publishes transactional outbox rows to the broker. Rows are
// appended in the same database transaction as the mutation they describe;
// the dispatcher drains them out-of-band, at least once.
package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/bookline/ballast/internal/domain/repository"
	"github.com/bookline/ballast/internal/observability"
	"github.com/sirupsen/logrus"
)

type Publisher interface {
	PublishEvent(ctx context.Context, event entity.OutboxEvent) error
}

// Hook runs before publish for one topic. A hook error fails the dispatch
// attempt, so side effects gate the event leaving the system.
type Hook func(ctx context.Context, event entity.OutboxEvent) error

// Stats counts one dispatch pass.
type Stats struct {
	Processed    int `json:"processed"`
	Published    int `json:"published"`
	Failed       int `json:"failed"`
	DeadLettered int `json:"dead_lettered"`
}

func (s Stats) Add(other Stats) Stats {
	s.Processed += other.Processed
	s.Published += other.Published
	s.Failed += other.Failed
	s.DeadLettered += other.DeadLettered
	return s
}

type Config struct {
	BatchSize    int
	PollInterval time.Duration
	MaxRetries   int
}

type Dispatcher struct {
	cfg     Config
	store   repository.Store
	repo    repository.OutboxRepository
	pub     Publisher
	hooks   map[string]Hook
	log     *logrus.Logger
	metrics *observability.Metrics
}

func NewDispatcher(cfg Config, store repository.Store, repo repository.OutboxRepository, pub Publisher, log *logrus.Logger, metrics *observability.Metrics) *Dispatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	return &Dispatcher{
		cfg:     cfg,
		store:   store,
		repo:    repo,
		pub:     pub,
		hooks:   make(map[string]Hook),
		log:     log,
		metrics: metrics,
	}
}

// OnTopic registers a pre-publish hook. Register everything before Run.
func (d *Dispatcher) OnTopic(topic string, hook Hook) {
	d.hooks[topic] = hook
}

func (d *Dispatcher) Run(ctx context.Context) error {
	d.log.Infof("outbox-dispatcher: started (batch=%d, interval=%s, max_retries=%d)", d.cfg.BatchSize, d.cfg.PollInterval, d.cfg.MaxRetries)

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := d.DispatchOnce(ctx); err != nil {
			d.log.WithError(err).Warn("outbox-dispatcher: pass failed")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// DispatchOnce drains one batch inside a single transaction: the row locks
// taken by ClaimDispatchable hold until every mark lands, so two dispatchers
// never fight over a row.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (Stats, error) {
	var stats Stats
	err := d.store.WithTx(ctx, func(txCtx context.Context) error {
		events, err := d.repo.ClaimDispatchable(txCtx, d.cfg.BatchSize)
		if err != nil {
			return err
		}
		for _, event := range events {
			stats.Processed++
			if dispatchErr := d.dispatch(txCtx, event); dispatchErr != nil {
				deadLetter := event.Retries+1 >= d.cfg.MaxRetries
				if err := d.repo.MarkFailed(txCtx, event.ID, dispatchErr.Error(), deadLetter); err != nil {
					return err
				}
				stats.Failed++
				if d.metrics != nil {
					d.metrics.OutboxFailed.Inc()
				}
				entry := d.log.WithError(dispatchErr).WithFields(logrus.Fields{
					"event_id": event.ID,
					"topic":    event.Topic,
					"retries":  event.Retries + 1,
				})
				if deadLetter {
					stats.DeadLettered++
					if d.metrics != nil {
						d.metrics.OutboxDeadLettered.Inc()
					}
					entry.Error("outbox-dispatcher: event dead-lettered")
				} else {
					entry.Warn("outbox-dispatcher: publish failed")
				}
				continue
			}
			if err := d.repo.MarkPublished(txCtx, event.ID); err != nil {
				return err
			}
			stats.Published++
			if d.metrics != nil {
				d.metrics.OutboxPublished.Inc()
			}
		}
		return nil
	})
	return stats, err
}

func (d *Dispatcher) dispatch(ctx context.Context, event entity.OutboxEvent) error {
	if hook, ok := d.hooks[event.Topic]; ok {
		if err := hook(ctx, event); err != nil {
			return fmt.Errorf("hook %s: %w", event.Topic, err)
		}
	}
	return d.pub.PublishEvent(ctx, event)
}
