package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/bookline/ballast/internal/domain/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CalendarRepository struct {
	db *DB
}

func NewCalendarRepository(db *DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

func (r *CalendarRepository) UpsertConnection(ctx context.Context, conn *entity.CalendarConnection) error {
	now := time.Now().UTC()
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = now
	}
	conn.UpdatedAt = now
	return r.db.Write(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "provider"}, {Name: "external_calendar_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"sync_direction", "webhook_secrets", "outbound_url", "enabled", "updated_at",
			}),
		}).
		Create(conn).
		Error
}

func (r *CalendarRepository) ListConnections(ctx context.Context, tenantID uuid.UUID, provider string) ([]entity.CalendarConnection, error) {
	query := r.db.Read(ctx).
		Where("tenant_id = ?", tenantID).
		Order("provider").
		Order("id")
	if provider != "" {
		query = query.Where("provider = ?", provider)
	}
	var conns []entity.CalendarConnection
	if err := query.Find(&conns).Error; err != nil {
		return nil, err
	}
	return conns, nil
}

// FindEnabledConnection picks the oldest enabled connection for the provider
// regardless of tenant. Inbound webhooks carry no tenant hint, so the
// connection is what maps them onto one.
func (r *CalendarRepository) FindEnabledConnection(ctx context.Context, provider string) (entity.CalendarConnection, error) {
	var conn entity.CalendarConnection
	err := r.db.Read(ctx).
		Where("provider = ? AND enabled = ?", provider, true).
		Order("created_at").
		Order("id").
		First(&conn).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.CalendarConnection{}, repository.ErrProviderNotConfigured
		}
		return entity.CalendarConnection{}, err
	}
	return conn, nil
}

func (r *CalendarRepository) FindTenantConnection(ctx context.Context, tenantID uuid.UUID, provider string) (entity.CalendarConnection, error) {
	var conn entity.CalendarConnection
	err := r.db.Read(ctx).
		Where("tenant_id = ? AND provider = ? AND enabled = ?", tenantID, provider, true).
		Order("created_at").
		Order("id").
		First(&conn).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.CalendarConnection{}, repository.ErrProviderNotConfigured
		}
		return entity.CalendarConnection{}, err
	}
	return conn, nil
}

func (r *CalendarRepository) CreateSyncEvent(ctx context.Context, event *entity.CalendarSyncEvent) error {
	if event.Source == "" {
		event.Source = entity.SyncSourceInternal
	}
	if event.Status == "" {
		event.Status = entity.SyncStatusPending
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	return r.db.Write(ctx).Create(event).Error
}

func (r *CalendarRepository) GetSyncEvent(ctx context.Context, tenantID, id uuid.UUID) (entity.CalendarSyncEvent, error) {
	var event entity.CalendarSyncEvent
	err := r.db.Read(ctx).
		First(&event, "id = ? AND tenant_id = ?", id, tenantID).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.CalendarSyncEvent{}, repository.ErrNotFound
		}
		return entity.CalendarSyncEvent{}, err
	}
	return event, nil
}

func (r *CalendarRepository) FindExternalEvent(ctx context.Context, tenantID uuid.UUID, provider, externalEventID, action string) (entity.CalendarSyncEvent, error) {
	var event entity.CalendarSyncEvent
	err := r.db.Read(ctx).
		Where("tenant_id = ? AND provider = ? AND source = ? AND external_event_id = ? AND action = ?",
			tenantID, provider, entity.SyncSourceExternal, externalEventID, action).
		Order("created_at").
		First(&event).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.CalendarSyncEvent{}, repository.ErrNotFound
		}
		return entity.CalendarSyncEvent{}, err
	}
	return event, nil
}

func (r *CalendarRepository) ListSyncEvents(ctx context.Context, tenantID uuid.UUID, status string, limit int) ([]entity.CalendarSyncEvent, error) {
	if limit <= 0 {
		limit = 200
	}
	if limit > 1000 {
		limit = 1000
	}

	query := r.db.Read(ctx).
		Where("tenant_id = ?", tenantID).
		Limit(limit).
		Order("created_at DESC").
		Order("id DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var events []entity.CalendarSyncEvent
	if err := query.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *CalendarRepository) MarkSyncEventRunning(ctx context.Context, id uuid.UUID) error {
	return r.db.Write(ctx).
		Exec(`UPDATE calendar_sync_events SET status = 'running', updated_at = NOW() WHERE id = ?`, id).
		Error
}

func (r *CalendarRepository) MarkSyncEventSynced(ctx context.Context, id uuid.UUID) error {
	return r.db.Write(ctx).
		Exec(`UPDATE calendar_sync_events SET status = 'synced', last_error = '', updated_at = NOW() WHERE id = ?`, id).
		Error
}

func (r *CalendarRepository) MarkSyncEventFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	return r.db.Write(ctx).
		Exec(`UPDATE calendar_sync_events SET status = 'failed', retries = retries + 1, last_error = ?, updated_at = NOW() WHERE id = ?`,
			truncateError(errMsg, 500), id).
		Error
}
