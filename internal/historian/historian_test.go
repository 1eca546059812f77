// internal/historian/historian_test.go
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jason-s-yu/circle/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	mu      sync.Mutex
	records []models.ActivityRecord
	batches int
	fail    bool
}

func (s *memorySink) InsertActivities(_ context.Context, records []models.ActivityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("database unavailable")
	}
	s.records = append(s.records, records...)
	s.batches++
	return nil
}

func (s *memorySink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *memorySink) setFail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

func pushRecord(t *testing.T, rdb *redis.Client, queue string, typ string) models.ActivityRecord {
	rec := models.ActivityRecord{
		ID:        uuid.New(),
		ActorID:   uuid.New(),
		Type:      typ,
		Timestamp: time.Now().UnixMilli(),
	}
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	require.NoError(t, rdb.RPush(context.Background(), queue, data).Err())
	return rec
}

func startService(t *testing.T, sink Sink, opts Options) (*Service, *redis.Client, func()) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	svc := New(rdb, sink, logger, opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	stop := func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("historian did not stop")
		}
	}
	return svc, rdb, stop
}

func TestHistorianPersistsBatches(t *testing.T) {
	sink := &memorySink{}
	_, rdb, stop := startService(t, sink, Options{Queue: "activity", BatchSize: 2, FlushDelay: 50 * time.Millisecond, PopTimeout: time.Second})
	defer stop()

	first := pushRecord(t, rdb, "activity", models.ActivityFriendRequestSent)
	pushRecord(t, rdb, "activity", models.ActivityFriendRequestAccepted)
	pushRecord(t, rdb, "activity", models.ActivityUserRegistered)
	require.NoError(t, rdb.RPush(context.Background(), "activity", "not json").Err())

	require.Eventually(t, func() bool { return sink.count() == 3 }, 5*time.Second, 20*time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, first.ID, sink.records[0].ID, "queue order is preserved")
}

func TestHistorianRetriesFailedFlush(t *testing.T) {
	sink := &memorySink{fail: true}
	svc, rdb, stop := startService(t, sink, Options{Queue: "activity", BatchSize: 1, FlushDelay: 50 * time.Millisecond, PopTimeout: time.Second})
	defer stop()

	pushRecord(t, rdb, "activity", models.ActivityUserDeleted)
	require.Eventually(t, func() bool { return svc.Pending() == 1 }, 5*time.Second, 20*time.Millisecond)

	sink.setFail(false)
	require.Eventually(t, func() bool { return sink.count() == 1 }, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, 0, svc.Pending())
}

func TestHistorianFlushesOnShutdown(t *testing.T) {
	sink := &memorySink{}
	svc, rdb, stop := startService(t, sink, Options{Queue: "activity", BatchSize: 100, FlushDelay: time.Hour, PopTimeout: time.Second})

	pushRecord(t, rdb, "activity", models.ActivityFriendRequestDeclined)
	require.Eventually(t, func() bool { return svc.Pending() == 1 }, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, 0, sink.count())

	stop()
	assert.Equal(t, 1, sink.count())
}
