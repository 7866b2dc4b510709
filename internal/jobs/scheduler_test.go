package jobs

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/sirupsen/logrus"
)

func testScheduler(repo *fakeJobRepo) *Scheduler {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewScheduler(repo, log)
}

func TestScheduler_AddValidatesSchedule(t *testing.T) {
	tests := []struct {
		name    string
		sched   Schedule
		wantErr string
	}{
		{"missing job type", Schedule{Cron: "@hourly"}, "job_type is required"},
		{"bad expression", Schedule{Cron: "not-a-cron", JobType: "retention_cleanup"}, "retention_cleanup"},
		{"bad payload", Schedule{Cron: "@hourly", JobType: "retention_cleanup", Payload: "{oops"}, "not valid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testScheduler(newFakeJobRepo())
			err := s.Add(tt.sched)
			if err == nil {
				t.Fatalf("Add(%+v) = nil, want error", tt.sched)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Add error = %q, want substring %q", err, tt.wantErr)
			}
			if s.Len() != 0 {
				t.Errorf("registered schedules = %d, want 0", s.Len())
			}
		})
	}
}

func TestScheduler_AcceptsDescriptorsAndFiveFieldExpressions(t *testing.T) {
	s := testScheduler(newFakeJobRepo())

	for _, expr := range []string{"@hourly", "@every 30m", "0 3 * * *"} {
		if err := s.Add(Schedule{Cron: expr, JobType: "retention_cleanup"}); err != nil {
			t.Errorf("Add(%q) = %v, want nil", expr, err)
		}
	}
	if s.Len() != 3 {
		t.Errorf("registered schedules = %d, want 3", s.Len())
	}
}

func TestScheduler_FireEnqueuesPlatformJob(t *testing.T) {
	repo := newFakeJobRepo()
	s := testScheduler(repo)

	if err := s.Add(Schedule{
		Cron:    "0 3 * * *",
		Queue:   entity.QueueExports,
		JobType: "generate_report",
		Payload: `{"period":"monthly"}`,
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	s.fire(s.entries[0])

	if len(repo.jobs) != 1 {
		t.Fatalf("enqueued jobs = %d, want 1", len(repo.jobs))
	}
	for _, job := range repo.jobs {
		if job.JobType != "generate_report" {
			t.Errorf("job type = %q, want %q", job.JobType, "generate_report")
		}
		if job.Queue != entity.QueueExports {
			t.Errorf("queue = %q, want %q", job.Queue, entity.QueueExports)
		}
		if job.Status != entity.JobStatusQueued {
			t.Errorf("status = %q, want %q", job.Status, entity.JobStatusQueued)
		}
		if job.TenantID != nil {
			t.Errorf("tenant = %v, want nil for scheduled jobs", job.TenantID)
		}
		if string(job.Payload) != `{"period":"monthly"}` {
			t.Errorf("payload = %s, want the configured payload", job.Payload)
		}
		if job.RunAfter.After(time.Now()) {
			t.Errorf("run_after = %v, want due immediately", job.RunAfter)
		}
	}
}

func TestScheduler_DefaultsQueueAndAttempts(t *testing.T) {
	repo := newFakeJobRepo()
	s := testScheduler(repo)

	if err := s.Add(Schedule{Cron: "@hourly", JobType: "retention_cleanup", MaxAttempts: 99}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	entry := s.entries[0]
	if entry.queue != entity.QueueDefault {
		t.Errorf("queue = %q, want %q", entry.queue, entity.QueueDefault)
	}
	if entry.maxAttempts != 5 {
		t.Errorf("max attempts = %d, want clamp to 5", entry.maxAttempts)
	}
	if string(entry.payload) != `{}` {
		t.Errorf("payload = %s, want empty object", entry.payload)
	}
}
