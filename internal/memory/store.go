// Package memory holds the per-user bounded conversational exchange log.
//
// Both the query-answering and budget-alerting flows read and append the same
// log, keyed by user identifier. The log is best-effort conversational
// context, not a system of record: concurrent appends from different
// instances can still race (last writer wins), but within one instance a
// per-user lock keeps read-modify-write atomic.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"finassist/internal/models"
)

var ErrMemoryUnavailable = errors.New("MEMORY_UNAVAILABLE")

// Store is the conversational memory contract used by the handlers.
type Store interface {
	Load(ctx context.Context, userID string) ([]models.Exchange, error)
	Append(ctx context.Context, userID string, exchange models.Exchange) error
}

// RedisStore keeps one JSON-encoded exchange list per user, trimmed to the
// most recent MaxExchanges entries on every append.
type RedisStore struct {
	client       *redis.Client
	maxExchanges int
	ttl          time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRedisStore(client *redis.Client, maxExchanges int, ttl time.Duration) *RedisStore {
	if maxExchanges <= 0 {
		maxExchanges = 20
	}
	return &RedisStore{
		client:       client,
		maxExchanges: maxExchanges,
		ttl:          ttl,
		locks:        make(map[string]*sync.Mutex),
	}
}

func memoryKey(userID string) string {
	return "memory:" + userID
}

func (s *RedisStore) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

func (s *RedisStore) Load(ctx context.Context, userID string) ([]models.Exchange, error) {
	val, err := s.client.Get(ctx, memoryKey(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMemoryUnavailable, err)
	}

	var exchanges []models.Exchange
	if err := json.Unmarshal([]byte(val), &exchanges); err != nil {
		// Corrupt entry: start a fresh log rather than failing the request.
		return nil, nil
	}
	return exchanges, nil
}

func (s *RedisStore) Append(ctx context.Context, userID string, exchange models.Exchange) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	exchanges, err := s.Load(ctx, userID)
	if err != nil {
		return err
	}

	exchanges = append(exchanges, exchange)
	if len(exchanges) > s.maxExchanges {
		exchanges = exchanges[len(exchanges)-s.maxExchanges:]
	}

	data, err := json.Marshal(exchanges)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMemoryUnavailable, err)
	}

	if err := s.client.Set(ctx, memoryKey(userID), string(data), s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrMemoryUnavailable, err)
	}
	return nil
}

// ContextWindow renders the last n exchanges as prompt context.
func ContextWindow(exchanges []models.Exchange, n int) string {
	if n > 0 && len(exchanges) > n {
		exchanges = exchanges[len(exchanges)-n:]
	}
	var b strings.Builder
	for _, e := range exchanges {
		fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", e.Query, e.Response)
	}
	return b.String()
}
