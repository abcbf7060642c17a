package workload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/redis/go-redis/v9"

	"github.com/weiihann/napkin/harness"
)

const cacheValueSize = 64

var cacheKey = []byte("napkin:single")

func cacheWorkloads(cfg Config) []harness.Workload {
	return []harness.Workload{
		{
			Name:              "redis_read_single_key",
			Label:             "Redis Read",
			BytesPerIteration: cacheValueSize,
			Setup: func() (harness.State, error) {
				return newRedisRead(cfg)
			},
		},
		{
			Name:              "badger_read_single_key",
			Label:             "Badger Read",
			BytesPerIteration: cacheValueSize,
			Setup: func() (harness.State, error) {
				return newBadgerRead(cfg)
			},
		},
	}
}

// redisRead fetches one 64-byte value per step over a single connection.
type redisRead struct {
	ctx    context.Context
	client *redis.Client
}

func newRedisRead(cfg Config) (*redisRead, error) {
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 1,
	})

	value := NewGenerator(cfg.Seed).Bytes(cacheValueSize)
	if err := client.Set(ctx, string(cacheKey), value, 0).Err(); err != nil {
		return nil, errors.Join(fmt.Errorf("redis set %s: %w", cfg.RedisAddr, err), client.Close())
	}

	return &redisRead{ctx: ctx, client: client}, nil
}

func (s *redisRead) Step() (bool, error) {
	v, err := s.client.Get(s.ctx, string(cacheKey)).Bytes()
	if err != nil {
		return false, fmt.Errorf("redis get: %w", err)
	}

	harness.Consume(v)

	return true, nil
}

func (s *redisRead) Close() error {
	return s.client.Close()
}

// badgerRead fetches one 64-byte value per step from an in-memory store.
type badgerRead struct {
	db  *badger.DB
	buf []byte
}

func newBadgerRead(cfg Config) (*badgerRead, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(&badgerLogger{logger: cfg.Logger.With(slog.String("component", "badger"))})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	value := NewGenerator(cfg.Seed).Bytes(cacheValueSize)
	err = db.Update(func(txn *badger.Txn) error {
		return txn.Set(cacheKey, value)
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("badger set: %w", err), db.Close())
	}

	return &badgerRead{db: db, buf: make([]byte, 0, cacheValueSize)}, nil
}

func (s *badgerRead) Step() (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey)
		if err != nil {
			return err
		}

		s.buf, err = item.ValueCopy(s.buf[:0])

		return err
	})
	if err != nil {
		return false, fmt.Errorf("badger get: %w", err)
	}

	harness.Consume(s.buf[0])

	return true, nil
}

func (s *badgerRead) Close() error {
	return s.db.Close()
}

// badgerLogger routes badger's internal logging through slog. Info and
// debug chatter is demoted so it never interleaves with reports.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
