package usecase

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/bookline/ballast/internal/domain/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

func discardLog() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type fakeStore struct {
	txCount   int
	rollbacks int
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }
func (f *fakeStore) Close()                         {}
func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.txCount++
	if err := fn(ctx); err != nil {
		f.rollbacks++
		return err
	}
	return nil
}

type fakeCalendarRepo struct {
	connections []entity.CalendarConnection
	syncEvents  []*entity.CalendarSyncEvent
}

func (f *fakeCalendarRepo) UpsertConnection(ctx context.Context, conn *entity.CalendarConnection) error {
	for i, existing := range f.connections {
		if existing.TenantID == conn.TenantID && existing.Provider == conn.Provider && existing.ExternalCalendarID == conn.ExternalCalendarID {
			conn.ID = existing.ID
			f.connections[i] = *conn
			return nil
		}
	}
	if conn.ID == uuid.Nil {
		conn.ID = uuid.New()
	}
	f.connections = append(f.connections, *conn)
	return nil
}

func (f *fakeCalendarRepo) ListConnections(ctx context.Context, tenantID uuid.UUID, provider string) ([]entity.CalendarConnection, error) {
	var out []entity.CalendarConnection
	for _, conn := range f.connections {
		if conn.TenantID != tenantID {
			continue
		}
		if provider != "" && conn.Provider != provider {
			continue
		}
		out = append(out, conn)
	}
	return out, nil
}

func (f *fakeCalendarRepo) FindEnabledConnection(ctx context.Context, provider string) (entity.CalendarConnection, error) {
	for _, conn := range f.connections {
		if conn.Provider == provider && conn.Enabled {
			return conn, nil
		}
	}
	return entity.CalendarConnection{}, repository.ErrProviderNotConfigured
}

func (f *fakeCalendarRepo) FindTenantConnection(ctx context.Context, tenantID uuid.UUID, provider string) (entity.CalendarConnection, error) {
	for _, conn := range f.connections {
		if conn.TenantID == tenantID && conn.Provider == provider && conn.Enabled {
			return conn, nil
		}
	}
	return entity.CalendarConnection{}, repository.ErrProviderNotConfigured
}

func (f *fakeCalendarRepo) CreateSyncEvent(ctx context.Context, event *entity.CalendarSyncEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	stored := *event
	f.syncEvents = append(f.syncEvents, &stored)
	return nil
}

func (f *fakeCalendarRepo) GetSyncEvent(ctx context.Context, tenantID, id uuid.UUID) (entity.CalendarSyncEvent, error) {
	for _, event := range f.syncEvents {
		if event.ID == id && event.TenantID == tenantID {
			return *event, nil
		}
	}
	return entity.CalendarSyncEvent{}, repository.ErrNotFound
}

func (f *fakeCalendarRepo) FindExternalEvent(ctx context.Context, tenantID uuid.UUID, provider, externalEventID, action string) (entity.CalendarSyncEvent, error) {
	for _, event := range f.syncEvents {
		if event.TenantID == tenantID && event.Provider == provider && event.Source == entity.SyncSourceExternal &&
			event.ExternalEventID == externalEventID && event.Action == action {
			return *event, nil
		}
	}
	return entity.CalendarSyncEvent{}, repository.ErrNotFound
}

func (f *fakeCalendarRepo) ListSyncEvents(ctx context.Context, tenantID uuid.UUID, status string, limit int) ([]entity.CalendarSyncEvent, error) {
	var out []entity.CalendarSyncEvent
	for _, event := range f.syncEvents {
		if event.TenantID != tenantID {
			continue
		}
		if status != "" && event.Status != status {
			continue
		}
		out = append(out, *event)
	}
	return out, nil
}

func (f *fakeCalendarRepo) MarkSyncEventRunning(ctx context.Context, id uuid.UUID) error {
	return f.setSyncStatus(id, entity.SyncStatusRunning, "")
}

func (f *fakeCalendarRepo) MarkSyncEventSynced(ctx context.Context, id uuid.UUID) error {
	return f.setSyncStatus(id, entity.SyncStatusSynced, "")
}

func (f *fakeCalendarRepo) MarkSyncEventFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	return f.setSyncStatus(id, entity.SyncStatusFailed, errMsg)
}

func (f *fakeCalendarRepo) setSyncStatus(id uuid.UUID, status, errMsg string) error {
	for _, event := range f.syncEvents {
		if event.ID == id {
			event.Status = status
			if errMsg != "" {
				event.Retries++
				event.LastError = errMsg
			}
			return nil
		}
	}
	return repository.ErrNotFound
}

// fakeJobRepo records enqueued jobs; claim-side behavior lives in the worker
// package tests.
type fakeJobRepo struct {
	enqueued []entity.BackgroundJob
	health   repository.JobHealth
}

func (f *fakeJobRepo) Enqueue(ctx context.Context, job *entity.BackgroundJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	f.enqueued = append(f.enqueued, *job)
	return nil
}

func (f *fakeJobRepo) Claim(ctx context.Context, workerID, queue string, limit int) ([]entity.BackgroundJob, error) {
	return nil, nil
}

func (f *fakeJobRepo) Complete(ctx context.Context, id uuid.UUID, result datatypes.JSON) error {
	return nil
}

func (f *fakeJobRepo) Fail(ctx context.Context, id uuid.UUID, errMsg string) (entity.BackgroundJob, error) {
	return entity.BackgroundJob{}, nil
}

func (f *fakeJobRepo) RetryDeadLetter(ctx context.Context, tenantID *uuid.UUID, id uuid.UUID) (entity.BackgroundJob, error) {
	return entity.BackgroundJob{}, repository.ErrNotFound
}

func (f *fakeJobRepo) Cancel(ctx context.Context, tenantID *uuid.UUID, id uuid.UUID) (entity.BackgroundJob, error) {
	return entity.BackgroundJob{}, repository.ErrNotFound
}

func (f *fakeJobRepo) Cleanup(ctx context.Context, tenantID *uuid.UUID, olderThan time.Duration, statuses []string) (int64, error) {
	return 0, nil
}

func (f *fakeJobRepo) GetByID(ctx context.Context, id uuid.UUID) (entity.BackgroundJob, error) {
	for _, job := range f.enqueued {
		if job.ID == id {
			return job, nil
		}
	}
	return entity.BackgroundJob{}, repository.ErrNotFound
}

func (f *fakeJobRepo) List(ctx context.Context, filter repository.JobFilter) ([]entity.BackgroundJob, error) {
	return f.enqueued, nil
}

func (f *fakeJobRepo) Health(ctx context.Context, tenantID *uuid.UUID, staleRunningAfter time.Duration) (repository.JobHealth, error) {
	return f.health, nil
}

type fakeOutboxRepo struct {
	appended  []entity.OutboxEvent
	appendErr error
	health    repository.OutboxHealth
}

func (f *fakeOutboxRepo) Append(ctx context.Context, event *entity.OutboxEvent) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	f.appended = append(f.appended, *event)
	return nil
}

func (f *fakeOutboxRepo) ClaimDispatchable(ctx context.Context, limit int) ([]entity.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutboxRepo) MarkPublished(ctx context.Context, id uuid.UUID) error { return nil }

func (f *fakeOutboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, deadLetter bool) error {
	return nil
}

func (f *fakeOutboxRepo) Retry(ctx context.Context, tenantID *uuid.UUID, includeDeadLetter bool, limit int) (int64, error) {
	return 0, nil
}

func (f *fakeOutboxRepo) Cleanup(ctx context.Context, tenantID *uuid.UUID, olderThan time.Duration) (int64, error) {
	return 0, nil
}

func (f *fakeOutboxRepo) List(ctx context.Context, tenantID *uuid.UUID, status string, limit int) ([]entity.OutboxEvent, error) {
	return f.appended, nil
}

func (f *fakeOutboxRepo) Health(ctx context.Context, tenantID *uuid.UUID) (repository.OutboxHealth, error) {
	return f.health, nil
}

type fakeBookingRepo struct {
	bookings map[uuid.UUID]*entity.Booking
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: make(map[uuid.UUID]*entity.Booking)}
}

func (f *fakeBookingRepo) Insert(ctx context.Context, booking *entity.Booking) error {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now()
	}
	stored := *booking
	f.bookings[booking.ID] = &stored
	return nil
}

func (f *fakeBookingRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (entity.Booking, error) {
	booking, ok := f.bookings[id]
	if !ok || booking.TenantID != tenantID {
		return entity.Booking{}, repository.ErrNotFound
	}
	return *booking, nil
}

func (f *fakeBookingRepo) SetStatus(ctx context.Context, tenantID, id uuid.UUID, from, to string) error {
	booking, ok := f.bookings[id]
	if !ok || booking.TenantID != tenantID {
		return repository.ErrNotFound
	}
	if booking.Status != from {
		return repository.ErrInvalidTransition
	}
	booking.Status = to
	return nil
}

func (f *fakeBookingRepo) ListCursor(ctx context.Context, tenantID uuid.UUID, limit int, cursor string) ([]entity.Booking, error) {
	var out []entity.Booking
	for _, booking := range f.bookings {
		if booking.TenantID == tenantID {
			out = append(out, *booking)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeBookingRepo) MonthlyTotals(ctx context.Context, tenantID uuid.UUID, year, month int) (repository.BookingTotals, error) {
	return repository.BookingTotals{TenantID: tenantID, Year: year, Month: month}, nil
}

type fakeAlertRepo struct {
	routes []entity.AlertRoute
}

func (f *fakeAlertRepo) UpsertRoute(ctx context.Context, route *entity.AlertRoute) error {
	for i, existing := range f.routes {
		if existing.TenantID == route.TenantID && existing.Channel == route.Channel && existing.Target == route.Target {
			route.ID = existing.ID
			f.routes[i] = *route
			return nil
		}
	}
	if route.ID == uuid.Nil {
		route.ID = uuid.New()
	}
	f.routes = append(f.routes, *route)
	return nil
}

func (f *fakeAlertRepo) ListRoutes(ctx context.Context, tenantID uuid.UUID, enabledOnly bool) ([]entity.AlertRoute, error) {
	var out []entity.AlertRoute
	for _, route := range f.routes {
		if route.TenantID != tenantID {
			continue
		}
		if enabledOnly && !route.Enabled {
			continue
		}
		out = append(out, route)
	}
	return out, nil
}

// fakeJobService is the service-level stand-in used by the alert tests.
type fakeJobService struct {
	health   repository.JobHealth
	enqueued []entity.BackgroundJob
}

func (f *fakeJobService) Enqueue(ctx context.Context, tenantID *uuid.UUID, queue, jobType string, payload json.RawMessage, maxAttempts int, runAfter *time.Time) (entity.BackgroundJob, error) {
	job := entity.BackgroundJob{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Queue:       queue,
		JobType:     jobType,
		Payload:     datatypes.JSON(payload),
		MaxAttempts: maxAttempts,
	}
	f.enqueued = append(f.enqueued, job)
	return job, nil
}

func (f *fakeJobService) Get(ctx context.Context, id uuid.UUID) (entity.BackgroundJob, error) {
	return entity.BackgroundJob{}, repository.ErrNotFound
}

func (f *fakeJobService) List(ctx context.Context, filter repository.JobFilter) ([]entity.BackgroundJob, error) {
	return f.enqueued, nil
}

func (f *fakeJobService) Retry(ctx context.Context, tenantID *uuid.UUID, id uuid.UUID) (entity.BackgroundJob, error) {
	return entity.BackgroundJob{}, repository.ErrNotFound
}

func (f *fakeJobService) Cancel(ctx context.Context, tenantID *uuid.UUID, id uuid.UUID) (entity.BackgroundJob, error) {
	return entity.BackgroundJob{}, repository.ErrNotFound
}

func (f *fakeJobService) Cleanup(ctx context.Context, tenantID *uuid.UUID, olderThanHours int, statuses []string) (int64, error) {
	return 0, nil
}

func (f *fakeJobService) Health(ctx context.Context, tenantID *uuid.UUID) (repository.JobHealth, error) {
	return f.health, nil
}

type fakeOutboxService struct {
	health repository.OutboxHealth
}

func (f *fakeOutboxService) List(ctx context.Context, tenantID *uuid.UUID, status string, limit int) ([]entity.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutboxService) Retry(ctx context.Context, tenantID *uuid.UUID, includeDeadLetter bool, limit int) (int64, error) {
	return 0, nil
}

func (f *fakeOutboxService) Cleanup(ctx context.Context, tenantID *uuid.UUID, olderThanHours int) (int64, error) {
	return 0, nil
}

func (f *fakeOutboxService) Health(ctx context.Context, tenantID *uuid.UUID) (repository.OutboxHealth, error) {
	return f.health, nil
}
