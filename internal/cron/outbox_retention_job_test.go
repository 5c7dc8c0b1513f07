package cron

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/harborline/marketplace-backend/pkg/db/models"
	"github.com/harborline/marketplace-backend/pkg/enums"
	"github.com/harborline/marketplace-backend/pkg/outbox"
)

type passthroughTx struct {
	db *gorm.DB
}

func (p passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return p.db.WithContext(ctx).Transaction(fn)
}

func newOutboxDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:cron_outbox_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	ddl := `CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	);`
	if err := db.Exec(ddl).Error; err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

func seedOutboxEvent(t *testing.T, db *gorm.DB, createdAt time.Time, publishedAt *time.Time, attempts int) uuid.UUID {
	t.Helper()
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{}`),
		CreatedAt:     createdAt,
		PublishedAt:   publishedAt,
		AttemptCount:  attempts,
	}
	if err := db.Create(&event).Error; err != nil {
		t.Fatalf("seed outbox event: %v", err)
	}
	return event.ID
}

func TestOutboxRetentionDeletesOldDeliveredAndExhausted(t *testing.T) {
	t.Parallel()
	db := newOutboxDB(t)
	now := time.Now().UTC()
	old := now.Add(-60 * 24 * time.Hour)
	recent := now.Add(-time.Hour)

	oldPublished := seedOutboxEvent(t, db, old, &old, 1)
	recentPublished := seedOutboxEvent(t, db, recent, &recent, 1)
	oldExhausted := seedOutboxEvent(t, db, old, nil, 10)
	oldPending := seedOutboxEvent(t, db, old, nil, 3)
	freshPending := seedOutboxEvent(t, db, recent, nil, 0)

	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:      testLogger(),
		DB:          passthroughTx{db: db},
		Repository:  outbox.NewRepository(db),
		Retention:   30,
		MaxAttempts: 10,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	var remaining []models.OutboxEvent
	if err := db.Find(&remaining).Error; err != nil {
		t.Fatalf("list events: %v", err)
	}
	survivors := map[uuid.UUID]bool{}
	for _, event := range remaining {
		survivors[event.ID] = true
	}

	for _, id := range []uuid.UUID{oldPublished, oldExhausted} {
		if survivors[id] {
			t.Fatalf("expected event %s deleted", id)
		}
	}
	for _, id := range []uuid.UUID{recentPublished, oldPending, freshPending} {
		if !survivors[id] {
			t.Fatalf("expected event %s kept", id)
		}
	}
}

func TestOutboxRetentionNoopOnEmptyTable(t *testing.T) {
	t.Parallel()
	db := newOutboxDB(t)
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     testLogger(),
		DB:         passthroughTx{db: db},
		Repository: outbox.NewRepository(db),
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
}
