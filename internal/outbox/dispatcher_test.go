package outbox

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/bookline/ballast/internal/domain/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type fakeStore struct {
	txCount int
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }
func (f *fakeStore) Close()                         {}
func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.txCount++
	return fn(ctx)
}

// fakeOutboxRepo keeps events in a map and mirrors the real mark transitions.
type fakeOutboxRepo struct {
	events map[uuid.UUID]*entity.OutboxEvent
}

func newFakeOutboxRepo() *fakeOutboxRepo {
	return &fakeOutboxRepo{events: make(map[uuid.UUID]*entity.OutboxEvent)}
}

func (f *fakeOutboxRepo) add(event entity.OutboxEvent) uuid.UUID {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Status == "" {
		event.Status = entity.OutboxStatusPending
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	f.events[event.ID] = &event
	return event.ID
}

func (f *fakeOutboxRepo) Append(ctx context.Context, event *entity.OutboxEvent) error {
	event.ID = f.add(*event)
	return nil
}

func (f *fakeOutboxRepo) ClaimDispatchable(ctx context.Context, limit int) ([]entity.OutboxEvent, error) {
	var claimable []*entity.OutboxEvent
	for _, event := range f.events {
		if event.Status == entity.OutboxStatusPending || event.Status == entity.OutboxStatusFailed {
			claimable = append(claimable, event)
		}
	}
	sort.Slice(claimable, func(i, j int) bool {
		return claimable[i].CreatedAt.Before(claimable[j].CreatedAt)
	})
	if len(claimable) > limit {
		claimable = claimable[:limit]
	}
	out := make([]entity.OutboxEvent, 0, len(claimable))
	for _, event := range claimable {
		out = append(out, *event)
	}
	return out, nil
}

func (f *fakeOutboxRepo) MarkPublished(ctx context.Context, id uuid.UUID) error {
	event, ok := f.events[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now()
	event.Status = entity.OutboxStatusPublished
	event.PublishedAt = &now
	return nil
}

func (f *fakeOutboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, deadLetter bool) error {
	event, ok := f.events[id]
	if !ok {
		return repository.ErrNotFound
	}
	event.Retries++
	event.LastError = errMsg
	if deadLetter {
		event.Status = entity.OutboxStatusDeadLetter
	} else {
		event.Status = entity.OutboxStatusFailed
	}
	return nil
}

func (f *fakeOutboxRepo) Retry(ctx context.Context, tenantID *uuid.UUID, includeDeadLetter bool, limit int) (int64, error) {
	var reset int64
	for _, event := range f.events {
		if event.Status == entity.OutboxStatusFailed || (includeDeadLetter && event.Status == entity.OutboxStatusDeadLetter) {
			event.Status = entity.OutboxStatusPending
			reset++
		}
	}
	return reset, nil
}

func (f *fakeOutboxRepo) Cleanup(ctx context.Context, tenantID *uuid.UUID, olderThan time.Duration) (int64, error) {
	return 0, nil
}

func (f *fakeOutboxRepo) List(ctx context.Context, tenantID *uuid.UUID, status string, limit int) ([]entity.OutboxEvent, error) {
	var out []entity.OutboxEvent
	for _, event := range f.events {
		out = append(out, *event)
	}
	return out, nil
}

func (f *fakeOutboxRepo) Health(ctx context.Context, tenantID *uuid.UUID) (repository.OutboxHealth, error) {
	return repository.OutboxHealth{}, nil
}

// fakePublisher records published events and fails topics on demand.
type fakePublisher struct {
	published []entity.OutboxEvent
	failTopic string
}

func (f *fakePublisher) PublishEvent(ctx context.Context, event entity.OutboxEvent) error {
	if f.failTopic != "" && event.Topic == f.failTopic {
		return errors.New("broker unavailable")
	}
	f.published = append(f.published, event)
	return nil
}

func testDispatcher(cfg Config, store repository.Store, repo repository.OutboxRepository, pub Publisher) *Dispatcher {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewDispatcher(cfg, store, repo, pub, log, nil)
}

func TestDispatchOnce_PublishesPendingEvents(t *testing.T) {
	repo := newFakeOutboxRepo()
	first := repo.add(entity.OutboxEvent{Topic: "booking.created", Payload: []byte(`{"id":1}`), CreatedAt: time.Now().Add(-2 * time.Second)})
	second := repo.add(entity.OutboxEvent{Topic: "booking.canceled", Payload: []byte(`{"id":2}`), CreatedAt: time.Now().Add(-time.Second)})

	pub := &fakePublisher{}
	store := &fakeStore{}
	d := testDispatcher(Config{MaxRetries: 5}, store, repo, pub)

	stats, err := d.DispatchOnce(context.Background())
	if err != nil {
		t.Fatalf("DispatchOnce returned error: %v", err)
	}
	if stats.Processed != 2 || stats.Published != 2 || stats.Failed != 0 {
		t.Errorf("stats = %+v, want processed=2 published=2 failed=0", stats)
	}
	if store.txCount != 1 {
		t.Errorf("tx count = %d, want the whole pass in one transaction", store.txCount)
	}
	if len(pub.published) != 2 {
		t.Fatalf("published = %d events, want 2", len(pub.published))
	}
	// Oldest first.
	if pub.published[0].ID != first || pub.published[1].ID != second {
		t.Error("events not published oldest first")
	}
	for _, id := range []uuid.UUID{first, second} {
		if repo.events[id].Status != entity.OutboxStatusPublished {
			t.Errorf("event %s status = %q, want published", id, repo.events[id].Status)
		}
		if repo.events[id].PublishedAt == nil {
			t.Errorf("event %s published_at not set", id)
		}
	}
}

func TestDispatchOnce_FailureLadderToDeadLetter(t *testing.T) {
	repo := newFakeOutboxRepo()
	id := repo.add(entity.OutboxEvent{Topic: "booking.created", Payload: []byte(`{}`)})

	pub := &fakePublisher{failTopic: "booking.created"}
	d := testDispatcher(Config{MaxRetries: 3}, &fakeStore{}, repo, pub)

	// Two failing passes leave the event retryable.
	for pass := 1; pass <= 2; pass++ {
		stats, err := d.DispatchOnce(context.Background())
		if err != nil {
			t.Fatalf("pass %d returned error: %v", pass, err)
		}
		if stats.Failed != 1 || stats.DeadLettered != 0 {
			t.Fatalf("pass %d stats = %+v, want failed=1 dead_lettered=0", pass, stats)
		}
		if got := repo.events[id].Status; got != entity.OutboxStatusFailed {
			t.Fatalf("pass %d status = %q, want failed", pass, got)
		}
		if got := repo.events[id].Retries; got != pass {
			t.Fatalf("pass %d retries = %d, want %d", pass, got, pass)
		}
	}

	// Third failure exhausts max_retries.
	stats, err := d.DispatchOnce(context.Background())
	if err != nil {
		t.Fatalf("final pass returned error: %v", err)
	}
	if stats.Failed != 1 || stats.DeadLettered != 1 {
		t.Errorf("final stats = %+v, want failed=1 dead_lettered=1", stats)
	}
	if got := repo.events[id].Status; got != entity.OutboxStatusDeadLetter {
		t.Errorf("status = %q, want dead_letter", got)
	}
	if repo.events[id].LastError == "" {
		t.Error("last_error not recorded")
	}

	// Dead-lettered rows are no longer claimable.
	stats, err = d.DispatchOnce(context.Background())
	if err != nil {
		t.Fatalf("post-dead-letter pass returned error: %v", err)
	}
	if stats.Processed != 0 {
		t.Errorf("processed = %d, want dead_letter rows skipped", stats.Processed)
	}
}

func TestDispatchOnce_HookGatesPublish(t *testing.T) {
	repo := newFakeOutboxRepo()
	invoiceID := repo.add(entity.OutboxEvent{Topic: "invoice.create_requested", Payload: []byte(`{}`), CreatedAt: time.Now().Add(-time.Second)})
	otherID := repo.add(entity.OutboxEvent{Topic: "booking.created", Payload: []byte(`{}`)})

	pub := &fakePublisher{}
	d := testDispatcher(Config{MaxRetries: 5}, &fakeStore{}, repo, pub)
	d.OnTopic("invoice.create_requested", func(ctx context.Context, event entity.OutboxEvent) error {
		return errors.New("accounting rejected the draft")
	})

	stats, err := d.DispatchOnce(context.Background())
	if err != nil {
		t.Fatalf("DispatchOnce returned error: %v", err)
	}
	if stats.Published != 1 || stats.Failed != 1 {
		t.Errorf("stats = %+v, want published=1 failed=1", stats)
	}
	if got := repo.events[invoiceID].Status; got != entity.OutboxStatusFailed {
		t.Errorf("hooked event status = %q, want failed", got)
	}
	if !strings.Contains(repo.events[invoiceID].LastError, "hook invoice.create_requested") {
		t.Errorf("last_error = %q, want hook failure recorded with its topic", repo.events[invoiceID].LastError)
	}
	if got := repo.events[otherID].Status; got != entity.OutboxStatusPublished {
		t.Errorf("unhooked event status = %q, want published", got)
	}
	// The hooked event never reached the broker.
	for _, event := range pub.published {
		if event.ID == invoiceID {
			t.Error("hook failure must prevent the publish")
		}
	}
}

func TestDispatchOnce_HookSuccessStillPublishes(t *testing.T) {
	repo := newFakeOutboxRepo()
	id := repo.add(entity.OutboxEvent{Topic: "invoice.create_requested", Payload: []byte(`{}`)})

	pub := &fakePublisher{}
	d := testDispatcher(Config{MaxRetries: 5}, &fakeStore{}, repo, pub)
	hookRan := false
	d.OnTopic("invoice.create_requested", func(ctx context.Context, event entity.OutboxEvent) error {
		hookRan = true
		return nil
	})

	if _, err := d.DispatchOnce(context.Background()); err != nil {
		t.Fatalf("DispatchOnce returned error: %v", err)
	}
	if !hookRan {
		t.Error("hook did not run")
	}
	if repo.events[id].Status != entity.OutboxStatusPublished {
		t.Errorf("status = %q, want published after hook success", repo.events[id].Status)
	}
}

func TestDispatchOnce_RespectsBatchSize(t *testing.T) {
	repo := newFakeOutboxRepo()
	base := time.Now().Add(-time.Minute)
	for i := 0; i < 5; i++ {
		repo.add(entity.OutboxEvent{Topic: "booking.created", Payload: []byte(`{}`), CreatedAt: base.Add(time.Duration(i) * time.Second)})
	}

	pub := &fakePublisher{}
	d := testDispatcher(Config{BatchSize: 2, MaxRetries: 5}, &fakeStore{}, repo, pub)

	stats, err := d.DispatchOnce(context.Background())
	if err != nil {
		t.Fatalf("DispatchOnce returned error: %v", err)
	}
	if stats.Processed != 2 {
		t.Errorf("processed = %d, want batch size 2", stats.Processed)
	}
}

func TestStats_Add(t *testing.T) {
	total := Stats{Processed: 1, Published: 1}.Add(Stats{Processed: 3, Failed: 2, DeadLettered: 1})
	want := Stats{Processed: 4, Published: 1, Failed: 2, DeadLettered: 1}
	if total != want {
		t.Errorf("Add = %+v, want %+v", total, want)
	}
}
