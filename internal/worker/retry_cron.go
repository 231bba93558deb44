package worker

// retry_cron.go
// Background goroutine that periodically revives dead-lettered jobs once the
// downstream dependency looks healthy again. Uses the circuit breaker state
// to avoid hammering a mail relay that is still down.

import (
	"context"
	"encoding/json"
	"time"

	"salescrm/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	retryTickInterval = 5 * time.Minute
	retryBatchSize    = 10

	// MaxReplays bounds how often one job is revived from the DLQ; after
	// that it stays there for manual inspection.
	MaxReplays = 3
)

// RetryCronConfig holds all dependencies for the retry goroutine.
type RetryCronConfig struct {
	RDB      *redis.Client
	Queue    string
	CB       *infra.CircuitBreaker // breaker guarding the queue's handler
	Interval time.Duration         // defaults to 5m
}

// StartRetryCron launches a background goroutine that ticks every Interval
// and moves a batch of dead-lettered jobs back onto their queue.
// It respects the context for graceful shutdown.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	interval := cfg.Interval
	if interval <= 0 {
		interval = retryTickInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Info().Str("queue", cfg.Queue).Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				replayDeadLetters(ctx, cfg)
			}
		}
	}()
}

// replayDeadLetters visits at most retryBatchSize DLQ entries, oldest first,
// and returns how many were requeued.
func replayDeadLetters(ctx context.Context, cfg RetryCronConfig) int {
	// If CB is open, skip entirely; the job would only fail again
	if cfg.CB != nil && cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("retry_cron: circuit breaker is open, skipping tick")
		return 0
	}

	dlqKey := DLQPrefix + cfg.Queue
	n, err := cfg.RDB.LLen(ctx, dlqKey).Result()
	if err != nil {
		log.Error().Err(err).Str("dlq_key", dlqKey).Msg("retry_cron: failed to read DLQ length")
		return 0
	}
	if n > retryBatchSize {
		n = retryBatchSize
	}

	replayed := 0
	for i := int64(0); i < n; i++ {
		raw, err := cfg.RDB.RPop(ctx, dlqKey).Result()
		if err != nil {
			break
		}

		var entry DLQEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil || entry.JobType == "" || entry.Replays >= MaxReplays {
			// Park it back at the head so the next tick moves on.
			_ = cfg.RDB.LPush(ctx, dlqKey, raw).Err()
			continue
		}

		job := Job{Type: entry.JobType, Payload: entry.Payload, Replays: entry.Replays + 1}
		if err := push(ctx, cfg.RDB, cfg.Queue, job); err != nil {
			log.Error().Err(err).Str("queue", cfg.Queue).Msg("retry_cron: failed to requeue, keeping in DLQ")
			_ = cfg.RDB.RPush(ctx, dlqKey, raw).Err()
			return replayed
		}
		replayed++
	}

	if replayed > 0 {
		log.Info().Str("queue", cfg.Queue).Int("count", replayed).Msg("retry_cron: dead-lettered jobs requeued")
	}
	return replayed
}
