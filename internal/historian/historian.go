// Package historian drains the activity queue from Redis and persists the records
// in batches.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jason-s-yu/circle/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Sink stores a batch of activity records. *database.Postgres satisfies it.
type Sink interface {
	InsertActivities(ctx context.Context, records []models.ActivityRecord) error
}

type Options struct {
	Queue      string
	BatchSize  int
	FlushDelay time.Duration
	PopTimeout time.Duration
}

// Service encapsulates the Redis consumer and the batch it accumulates.
type Service struct {
	rdb        *redis.Client
	sink       Sink
	logger     *logrus.Logger
	queue      string
	batchSize  int
	maxPending int
	flushDelay time.Duration
	popTimeout time.Duration

	batchMu sync.Mutex
	batch   []models.ActivityRecord
}

func New(rdb *redis.Client, sink Sink, logger *logrus.Logger, opts Options) *Service {
	if opts.Queue == "" {
		opts.Queue = "circle_activity"
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = 500 * time.Millisecond
	}
	if opts.PopTimeout <= 0 {
		opts.PopTimeout = 3 * time.Second
	}
	return &Service{
		rdb:        rdb,
		sink:       sink,
		logger:     logger,
		queue:      opts.Queue,
		batchSize:  opts.BatchSize,
		maxPending: opts.BatchSize * 50,
		flushDelay: opts.FlushDelay,
		popTimeout: opts.PopTimeout,
		batch:      make([]models.ActivityRecord, 0, opts.BatchSize),
	}
}

// Run consumes the queue until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Infof("historian: consuming %s", s.queue)
	lastFlush := time.Now()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.flush(flushCtx); err != nil {
				s.logger.Errorf("historian: final flush failed, %d records lost: %v", s.Pending(), err)
			}
			s.logger.Info("historian: shutting down")
			return nil
		default:
		}

		// BLPop with a timeout so that context cancellation is handled.
		res, err := s.rdb.BLPop(ctx, s.popTimeout, s.queue).Result()
		switch {
		case err == nil && len(res) == 2:
			// res[0] is the queue name and res[1] the payload.
			var rec models.ActivityRecord
			if err := json.Unmarshal([]byte(res[1]), &rec); err != nil {
				s.logger.Warnf("historian: invalid activity record: %v", err)
			} else {
				s.appendToBatch(ctx, rec)
			}
		case err != nil && !errors.Is(err, redis.Nil) && ctx.Err() == nil:
			s.logger.Errorf("historian: BLPop: %v", err)
			time.Sleep(time.Second)
		}

		if time.Since(lastFlush) >= s.flushDelay {
			if err := s.flush(ctx); err != nil {
				s.logger.Errorf("historian: flush failed: %v", err)
			}
			lastFlush = time.Now()
		}
	}
}

// appendToBatch adds a record and flushes once the batch is full.
func (s *Service) appendToBatch(ctx context.Context, rec models.ActivityRecord) {
	s.batchMu.Lock()
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.batchSize
	s.batchMu.Unlock()

	if full {
		if err := s.flush(ctx); err != nil {
			s.logger.Errorf("historian: flush failed: %v", err)
		}
	}
}

// flush hands the current batch to the sink. On failure the records stay pending
// for the next attempt, up to maxPending.
func (s *Service) flush(ctx context.Context) error {
	s.batchMu.Lock()
	pending := s.batch
	s.batch = make([]models.ActivityRecord, 0, s.batchSize)
	s.batchMu.Unlock()

	if len(pending) == 0 {
		return nil
	}
	if err := s.sink.InsertActivities(ctx, pending); err != nil {
		s.batchMu.Lock()
		s.batch = append(pending, s.batch...)
		if over := len(s.batch) - s.maxPending; over > 0 {
			s.logger.Warnf("historian: dropping %d oldest activity records", over)
			s.batch = s.batch[over:]
		}
		s.batchMu.Unlock()
		return err
	}
	s.logger.Debugf("historian: flushed %d activity records", len(pending))
	return nil
}

// Pending returns the number of records not yet persisted.
func (s *Service) Pending() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch)
}
