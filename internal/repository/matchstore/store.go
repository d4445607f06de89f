// Package matchstore keeps CV match reports in Redis so the most expensive
// composite results survive process restarts.
package matchstore

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/scribe-cloud/quill/internal/db"
	"github.com/scribe-cloud/quill/internal/domain"
)

// keyPrefix namespaces match report keys alongside the exemplar keys.
const keyPrefix = domain.KeyPrefix + "match:"

// defaultOpTimeout bounds one Redis round trip. Lookups sit on the request
// path, so a slow store degrades to a miss instead of blocking the caller.
const defaultOpTimeout = 2 * time.Second

// Store is a Redis-backed match report cache. Store failures never
// propagate: reads degrade to misses and writes are best effort.
type Store struct {
	kv      db.KVStore
	ttl     time.Duration
	timeout time.Duration
	total   *prometheus.CounterVec // labels: region, result ("hit"/"miss"); may be nil
	logger  *zap.Logger
}

// New creates a match report store with the given report TTL.
func New(kv db.KVStore, ttl time.Duration, total *prometheus.CounterVec, logger *zap.Logger) *Store {
	return &Store{
		kv:      kv,
		ttl:     ttl,
		timeout: defaultOpTimeout,
		total:   total,
		logger:  logger,
	}
}

// Get returns a cached report, or absent on miss, expiry, or store failure.
func (s *Store) Get(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	data, err := s.kv.Get(ctx, keyPrefix+key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			s.logger.Warn("Match store read failed", zap.Error(err))
		}
		s.inc("miss")
		return nil, false
	}

	s.inc("hit")
	return data, true
}

// Set stores a report under the configured TTL.
func (s *Store) Set(key string, value []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.kv.SetWithTTL(ctx, keyPrefix+key, value, s.ttl); err != nil {
		s.logger.Warn("Match store write failed", zap.Error(err))
	}
}

func (s *Store) inc(result string) {
	if s.total != nil {
		s.total.WithLabelValues("match", result).Inc()
	}
}
