package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/permitwatch/phx-permit-client/pkg/permit"
)

var (
	// ErrNotFound indicates the requested permit is not in the store.
	ErrNotFound = errors.New("permit not found")

	// ErrInvalidRecord indicates a stored value could not be decoded.
	ErrInvalidRecord = errors.New("invalid stored record")
)

// Store persists normalized permit records in Redis. It is strictly an
// output sink: fetch runs write to it and downstream consumers read from
// it, but fetching never consults it.
type Store struct {
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// Config holds store configuration.
type Config struct {
	// TTL bounds how long stored permits and run indexes live.
	// Zero keeps them until explicitly deleted.
	TTL time.Duration
}

// NewStore creates a permit store on the given Redis client.
func NewStore(redisClient *redis.Client, cfg Config) *Store {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Store{
		redis:  redisClient,
		ttl:    cfg.TTL,
		logger: log.With().Str("component", "store").Logger(),
	}
}

// PermitKey returns the Redis key holding one permit's JSON record.
func PermitKey(number string) string {
	return "pdd:permit:" + number
}

// RunKey returns the Redis key of the set indexing one run's permit numbers.
func RunKey(runID string) string {
	return "pdd:run:" + runID
}

// SaveRun writes every record as JSON under its permit key and indexes the
// permit numbers under the run ID, in one pipeline. An empty record set
// writes nothing, mirroring the CSV sink. Returns the number of records
// written.
func (s *Store) SaveRun(ctx context.Context, runID string, records []permit.Record) (int, error) {
	if len(records) == 0 {
		s.logger.Info().Str("run_id", runID).Msg("No records to store, skipping")
		return 0, nil
	}

	runKey := RunKey(runID)
	pipe := s.redis.Pipeline()

	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			StoreErrors.WithLabelValues("save").Inc()
			return 0, fmt.Errorf("marshal permit %s: %w", rec.PermitNumber, err)
		}
		pipe.Set(ctx, PermitKey(rec.PermitNumber), data, s.ttl)
		pipe.SAdd(ctx, runKey, rec.PermitNumber)
	}
	if s.ttl > 0 {
		pipe.Expire(ctx, runKey, s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		StoreErrors.WithLabelValues("save").Inc()
		return 0, fmt.Errorf("redis pipeline: %w", err)
	}

	StoreWrites.Add(float64(len(records)))
	s.logger.Info().
		Str("run_id", runID).
		Int("records", len(records)).
		Msg("Run stored")

	return len(records), nil
}

// GetPermit reads one stored record back by permit number.
// Returns ErrNotFound when the permit is not in the store.
func (s *Store) GetPermit(ctx context.Context, number string) (*permit.Record, error) {
	data, err := s.redis.Get(ctx, PermitKey(number)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		StoreErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var rec permit.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		StoreErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	return &rec, nil
}

// RunPermitNumbers returns the permit numbers indexed for a run.
func (s *Store) RunPermitNumbers(ctx context.Context, runID string) ([]string, error) {
	numbers, err := s.redis.SMembers(ctx, RunKey(runID)).Result()
	if err != nil {
		StoreErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis smembers: %w", err)
	}
	return numbers, nil
}

// Ping verifies Redis connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
