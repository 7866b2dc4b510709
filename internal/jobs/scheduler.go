package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/bookline/ballast/internal/domain/repository"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// Schedule declares a recurring enqueue. Every firing inserts one queued job;
// execution stays with whatever worker polls the target queue. Scheduled jobs
// are platform-wide (no tenant).
type Schedule struct {
	// Cron is a standard five-field expression or a descriptor like
	// "@hourly" or "@every 30m".
	Cron        string
	Queue       string
	JobType     string
	Payload     string
	MaxAttempts int
}

type scheduleEntry struct {
	queue       string
	jobType     string
	payload     datatypes.JSON
	maxAttempts int
}

// Scheduler fires maintenance schedules (retention cleanup, report
// generation) without an external cron daemon.
type Scheduler struct {
	repo    repository.JobRepository
	log     *logrus.Logger
	cron    *cron.Cron
	entries []scheduleEntry
}

func NewScheduler(repo repository.JobRepository, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		repo: repo,
		log:  log,
		cron: cron.New(),
	}
}

// Add validates and registers one schedule. A bad expression or payload fails
// here so config typos surface at startup, not at first firing.
func (s *Scheduler) Add(sched Schedule) error {
	if sched.JobType == "" {
		return fmt.Errorf("schedule: job_type is required")
	}

	entry := scheduleEntry{
		queue:       sched.Queue,
		jobType:     sched.JobType,
		payload:     datatypes.JSON([]byte(`{}`)),
		maxAttempts: sched.MaxAttempts,
	}
	if entry.queue == "" {
		entry.queue = entity.QueueDefault
	}
	if entry.maxAttempts < 1 || entry.maxAttempts > 20 {
		entry.maxAttempts = 5
	}
	if raw := strings.TrimSpace(sched.Payload); raw != "" {
		if !json.Valid([]byte(raw)) {
			return fmt.Errorf("schedule %s: payload is not valid JSON", sched.JobType)
		}
		entry.payload = datatypes.JSON(raw)
	}

	if _, err := s.cron.AddFunc(sched.Cron, func() { s.fire(entry) }); err != nil {
		return fmt.Errorf("schedule %s: %w", sched.JobType, err)
	}
	s.entries = append(s.entries, entry)
	return nil
}

// Len reports how many schedules are registered.
func (s *Scheduler) Len() int {
	return len(s.entries)
}

func (s *Scheduler) fire(entry scheduleEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	job := &entity.BackgroundJob{
		Queue:       entry.queue,
		JobType:     entry.jobType,
		Payload:     entry.payload,
		Status:      entity.JobStatusQueued,
		MaxAttempts: entry.maxAttempts,
		RunAfter:    time.Now(),
	}
	if err := s.repo.Enqueue(ctx, job); err != nil {
		s.log.WithError(err).WithField("job_type", entry.jobType).Error("scheduler: enqueue failed")
		return
	}
	s.log.WithFields(logrus.Fields{
		"job_id":   job.ID,
		"job_type": entry.jobType,
		"queue":    entry.queue,
	}).Info("scheduler: job enqueued")
}

// Start launches the cron runner in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts firing and waits for in-flight enqueues to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
