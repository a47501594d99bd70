package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/mesflow-backend/pkg/db"
	"github.com/angelmondragon/mesflow-backend/pkg/db/dbtest"
	"github.com/angelmondragon/mesflow-backend/pkg/db/models"
	"github.com/angelmondragon/mesflow-backend/pkg/enums"
	"github.com/angelmondragon/mesflow-backend/pkg/logger"
	"github.com/angelmondragon/mesflow-backend/pkg/outbox"
)

func TestOutboxRetentionJobUsesConfiguredWindow(t *testing.T) {
	now := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxRetentionRepo{}
	job := newOutboxRetentionJob(t, repo, 72*time.Hour)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	expectedCutoff := now.Add(-72 * time.Hour)
	if !repo.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s", expectedCutoff, repo.lastCutoff)
	}
	if repo.called != 1 {
		t.Fatalf("expected repo called once, got %d", repo.called)
	}
}

func TestOutboxRetentionJobDefaultsToThirtyDays(t *testing.T) {
	job := newOutboxRetentionJob(t, &fakeOutboxRetentionRepo{}, 0)
	if job.retention != defaultOutboxRetention {
		t.Fatalf("expected default retention, got %s", job.retention)
	}
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	repo := &fakeOutboxRetentionRepo{err: errors.New("boom")}
	job := newOutboxRetentionJob(t, repo, 0)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestOutboxRetentionJobKeepsPendingRows(t *testing.T) {
	conn := dbtest.Open(t)
	now := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	old := now.Add(-40 * 24 * time.Hour)
	recent := now.Add(-time.Hour)
	rows := []models.OutboxEvent{
		{ID: uuid.New(), EventType: enums.EventMRPRequested, AggregateType: enums.AggregateCompany, AggregateID: uuid.New(), Payload: []byte(`{}`), PublishedAt: &old},
		{ID: uuid.New(), EventType: enums.EventMRPRequested, AggregateType: enums.AggregateCompany, AggregateID: uuid.New(), Payload: []byte(`{}`), PublishedAt: &recent},
		{ID: uuid.New(), EventType: enums.EventMRPRequested, AggregateType: enums.AggregateCompany, AggregateID: uuid.New(), Payload: []byte(`{}`)},
	}
	if err := conn.Create(&rows).Error; err != nil {
		t.Fatalf("seed outbox: %v", err)
	}

	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.New(logger.Options{Output: io.Discard}),
		DB:         db.Wrap(conn),
		Repository: outbox.NewRepository(conn),
		BatchSize:  1,
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	job := jobIface.(*outboxRetentionJob)
	job.now = func() time.Time { return now }
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var remaining int64
	if err := conn.Model(&models.OutboxEvent{}).Count(&remaining).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if remaining != 2 {
		t.Fatalf("expected 2 rows to remain, got %d", remaining)
	}
}

func TestOutboxRetentionJobDrainsInBatches(t *testing.T) {
	repo := &fakeOutboxRetentionRepo{remaining: 25}
	job := newOutboxRetentionJob(t, repo, time.Hour)
	job.batch = 10

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if repo.called != 3 {
		t.Fatalf("expected 3 batches, got %d", repo.called)
	}
	if repo.remaining != 0 {
		t.Fatalf("expected backlog drained, %d left", repo.remaining)
	}
}

func TestOutboxRetentionJobStopsOnCancel(t *testing.T) {
	repo := &fakeOutboxRetentionRepo{remaining: 100}
	job := newOutboxRetentionJob(t, repo, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := job.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if repo.called != 0 {
		t.Fatalf("expected no deletes, got %d", repo.called)
	}
}

func newOutboxRetentionJob(t *testing.T, repo *fakeOutboxRetentionRepo, retention time.Duration) *outboxRetentionJob {
	t.Helper()
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.New(logger.Options{Output: io.Discard}),
		DB:         passthroughTx{},
		Repository: repo,
		Retention:  retention,
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	job, ok := jobIface.(*outboxRetentionJob)
	if !ok {
		t.Fatalf("expected outboxRetentionJob, got %T", jobIface)
	}
	return job
}

type fakeOutboxRetentionRepo struct {
	lastCutoff time.Time
	called     int
	remaining  int64
	err        error
}

func (f *fakeOutboxRetentionRepo) DeletePublishedBefore(_ *gorm.DB, cutoff time.Time, limit int) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	n := min(f.remaining, int64(limit))
	f.remaining -= n
	return n, nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
