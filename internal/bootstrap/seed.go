package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/bookline/ballast/internal/config"
	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/bookline/ballast/internal/infra/persistence"
	"github.com/go-faker/faker/v4"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Seed fills a demo tenant with bookings plus the configuration rows the
// pipeline needs end to end: a calendar connection for webhook ingestion and
// an alert route for health fan-out.
func Seed(ctx context.Context, cfg config.Config, count, batchSize int) error {
	if count <= 0 {
		count = 10
	}
	if batchSize <= 0 {
		batchSize = 100
	}

	log, err := buildLogger(cfg)
	if err != nil {
		return err
	}

	conn, err := persistence.New(ctx, persistence.Config{
		WriteDSN:          cfg.Database.WriteDSN,
		ReadDSN:           cfg.Database.ReadDSN,
		MaxConns:          cfg.Database.MaxConns,
		MinConns:          cfg.Database.MinConns,
		MaxConnLifetime:   cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:   cfg.Database.MaxConnIdleTime,
		HealthCheckPeriod: cfg.Database.HealthCheckPeriod,
	})
	if err != nil {
		return err
	}
	defer conn.Close()

	pingCtx := ctx
	if cfg.Database.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
		defer cancel()
	}
	if err := conn.Ping(pingCtx); err != nil {
		return err
	}

	tenantID := uuid.New()
	baseTime := time.Now().UTC()
	durations := []int{30, 45, 60, 90}

	bookings := make([]entity.Booking, 0, batchSize)
	for i := 0; i < count; i++ {
		seedTime := baseTime.Add(time.Duration(i) * time.Microsecond)
		booking := entity.Booking{
			TenantID:        tenantID,
			ClientName:      fmt.Sprintf("%s %s", faker.FirstName(), faker.LastName()),
			StartsAt:        baseTime.Add(time.Duration(i+1) * time.Hour),
			DurationMinutes: durations[i%len(durations)],
			Price:           float64(25 + i%4*15),
			Status:          entity.BookingStatusConfirmed,
			CreatedAt:       seedTime,
			UpdatedAt:       seedTime,
		}
		bookings = append(bookings, booking)
		if len(bookings) == batchSize {
			if err := conn.Write(ctx).CreateInBatches(&bookings, batchSize).Error; err != nil {
				return err
			}
			bookings = bookings[:0]
		}
	}
	if len(bookings) > 0 {
		if err := conn.Write(ctx).CreateInBatches(&bookings, batchSize).Error; err != nil {
			return err
		}
	}

	connection := entity.CalendarConnection{
		TenantID:           tenantID,
		Provider:           entity.ProviderGoogle,
		ExternalCalendarID: fmt.Sprintf("seed-calendar-%s", uuid.NewString()),
		SyncDirection:      "bidirectional",
		WebhookSecrets:     fmt.Sprintf("seed-secret-%s", uuid.NewString()),
		Enabled:            true,
	}
	if err := conn.Write(ctx).Create(&connection).Error; err != nil {
		return err
	}

	route := entity.AlertRoute{
		TenantID:    tenantID,
		Channel:     entity.AlertChannelMail,
		Target:      "ops@example.com",
		MinSeverity: "medium",
		Enabled:     true,
	}
	if err := conn.Write(ctx).Create(&route).Error; err != nil {
		return err
	}

	job := entity.BackgroundJob{
		TenantID:    &tenantID,
		Queue:       entity.QueueDefault,
		JobType:     "send_reminder",
		Payload:     datatypes.JSON([]byte(fmt.Sprintf(`{"booking_id":%q,"message":"seeded reminder"}`, uuid.NewString()))),
		Status:      entity.JobStatusQueued,
		MaxAttempts: 5,
		RunAfter:    baseTime,
	}
	if err := conn.Write(ctx).Create(&job).Error; err != nil {
		return err
	}

	log.Infof("bootstrap: seeded tenant %s with %d bookings", tenantID, count)
	return nil
}
