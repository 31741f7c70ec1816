package worker

// Dead letter queue: jobs that exhaust MaxAttempts (or fail permanently) are
// parked in a Redis list per source queue, dlq:<queue>, for inspection or
// redelivery.

import (
	"context"
	"encoding/json"
	"time"

	"minimalgym/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DLQPrefix = "dlq:"

// DLQEntry wraps a failed job with metadata for debugging.
type DLQEntry struct {
	OriginalQueue string          `json:"original_queue"`
	JobType       string          `json:"job_type"`
	Payload       json.RawMessage `json:"payload"`
	Reason        string          `json:"reason"`
	FailedAt      string          `json:"failed_at"` // RFC 3339
	Attempts      int             `json:"attempts"`
}

// SendToDLQ pushes a failed job to the dead letter queue.
func SendToDLQ(ctx context.Context, rdb *redis.Client, queue string, jobType string, payload json.RawMessage, reason string, attempts int) {
	entry := DLQEntry{
		OriginalQueue: queue,
		JobType:       jobType,
		Payload:       payload,
		Reason:        reason,
		FailedAt:      time.Now().UTC().Format(time.RFC3339),
		Attempts:      attempts,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: failed to marshal entry")
		return
	}

	dlqKey := DLQPrefix + queue
	if err := rdb.LPush(ctx, dlqKey, data).Err(); err != nil {
		log.Error().Err(err).Str("dlq_key", dlqKey).Msg("dlq: failed to push to DLQ")
		return
	}

	log.Warn().
		Str("queue", queue).
		Str("job_type", jobType).
		Str("reason", reason).
		Int("attempts", attempts).
		Msg("dlq: job moved to dead letter queue")
}

// DLQLength returns the number of entries in a DLQ for monitoring.
func DLQLength(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, DLQPrefix+queue).Result()
}

// ── Redelivery ────────────────────────────────────────────────────────────────

const (
	redeliveryInterval  = 5 * time.Minute
	redeliveryBatchSize = 20
)

// StartRedelivery periodically moves dead-lettered e-mail jobs back onto
// QueueEmail with a fresh attempt budget. Ticks are skipped while the SMTP
// breaker is open.
func StartRedelivery(ctx context.Context, rdb *redis.Client, cb *infra.CircuitBreaker) {
	go func() {
		ticker := time.NewTicker(redeliveryInterval)
		defer ticker.Stop()

		log.Info().Msg("redelivery: started")
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("redelivery: shutting down")
				return
			case <-ticker.C:
				if cb.State() == infra.CBOpen {
					log.Debug().Msg("redelivery: circuit breaker is open, skipping tick")
					continue
				}
				if n := Redeliver(ctx, rdb, QueueEmail, redeliveryBatchSize); n > 0 {
					log.Info().Int("count", n).Msg("redelivery: e-mail jobs re-queued")
				}
			}
		}
	}()
}

// Redeliver moves up to limit entries from dlq:<queue> back onto queue, oldest
// first, and returns how many were moved.
func Redeliver(ctx context.Context, rdb *redis.Client, queue string, limit int) int {
	moved := 0
	for moved < limit {
		raw, err := rdb.RPop(ctx, DLQPrefix+queue).Bytes()
		if err != nil {
			if err != redis.Nil {
				log.Error().Err(err).Str("queue", queue).Msg("redelivery: pop failed")
			}
			return moved
		}
		var entry DLQEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			log.Error().Err(err).Msg("redelivery: dropping unreadable DLQ entry")
			continue
		}
		if err := push(ctx, rdb, queue, Job{Type: entry.JobType, Payload: entry.Payload}); err != nil {
			log.Error().Err(err).Str("queue", queue).Msg("redelivery: re-queue failed")
			// put it back so it is not lost
			_ = rdb.RPush(ctx, DLQPrefix+queue, raw).Err()
			return moved
		}
		moved++
	}
	return moved
}
