// Package tally keeps per-day counts of attendance statuses, fed from the
// attendance.marked queue.
package tally

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"dailyattend/internal/attendance"
	"dailyattend/internal/metrics"
	"dailyattend/internal/queue"
)

// Counter stores status counts per calendar day.
type Counter interface {
	Incr(ctx context.Context, day, status string) error
	Counts(ctx context.Context, day string) (map[string]int64, error)
}

// Redis keeps one hash per day under prefix+day.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis builds a Redis counter. Hashes expire after ttl; zero keeps them forever.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: "attendance:tally:", ttl: ttl}
}

// Incr bumps the status count for day.
func (r *Redis) Incr(ctx context.Context, day, status string) error {
	key := r.prefix + day
	pipe := r.client.TxPipeline()
	pipe.HIncrBy(ctx, key, status, 1)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Counts returns the status counts for day; an unknown day is empty.
func (r *Redis) Counts(ctx context.Context, day string) (map[string]int64, error) {
	raw, err := r.client.HGetAll(ctx, r.prefix+day).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(raw))
	for status, v := range raw {
		var n int64
		if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
			return nil, fmt.Errorf("tally %s/%s: %w", day, status, err)
		}
		out[status] = n
	}
	return out, nil
}

// Memory is a process-local Counter used when Redis is not configured.
type Memory struct {
	mu   sync.Mutex
	days map[string]map[string]int64
}

// NewMemory creates an empty in-memory counter.
func NewMemory() *Memory {
	return &Memory{days: make(map[string]map[string]int64)}
}

// Incr bumps the status count for day.
func (m *Memory) Incr(_ context.Context, day, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.days[day] == nil {
		m.days[day] = make(map[string]int64)
	}
	m.days[day][status]++
	return nil
}

// Counts returns a copy of the counts for day.
func (m *Memory) Counts(_ context.Context, day string) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.days[day]))
	for k, v := range m.days[day] {
		out[k] = v
	}
	return out, nil
}

// Run applies attendance.marked messages from q to c until ctx is done.
func Run(ctx context.Context, q queue.Queue, c Counter) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("queue consume init failed: %w", err)
	}
	for msg := range messages {
		if msg.Type != attendance.MarkedType {
			continue
		}
		var m attendance.Marked
		if err := msg.Decode(&m); err != nil {
			log.Printf("tally: bad message %s: %v", msg.ID, err)
			metrics.TallyUpdates.WithLabelValues("failed").Inc()
			continue
		}
		if err := c.Incr(ctx, m.Date, m.Status); err != nil {
			log.Printf("tally: update %s for user %d failed: %v", m.Date, m.UserID, err)
			metrics.TallyUpdates.WithLabelValues("failed").Inc()
			continue
		}
		metrics.TallyUpdates.WithLabelValues("applied").Inc()
	}
	return nil
}
