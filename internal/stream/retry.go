package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var (
	// ErrDeadLettered means the message was moved to the dead-letter stream and may be acknowledged
	ErrDeadLettered = errors.New("message moved to dead-letter stream")

	errPermanent = errors.New("permanent failure")
)

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", errPermanent, err)
}

type RetryHandler struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	deadLetter func(ctx context.Context, values map[string]interface{}) error
}

func NewRetryHandler(client *redis.Client, deadLetterKey string) *RetryHandler {
	return &RetryHandler{
		maxRetries: 3,
		baseDelay:  500 * time.Millisecond,
		maxDelay:   10 * time.Second,
		deadLetter: func(ctx context.Context, values map[string]interface{}) error {
			return client.XAdd(ctx, &redis.XAddArgs{
				Stream: deadLetterKey,
				Values: values,
			}).Err()
		},
	}
}

// RetryWithBackoff runs fn until it succeeds, fails permanently or runs out of retries.
// Failed messages are copied to the dead-letter stream with the last error attached.
func (h *RetryHandler) RetryWithBackoff(ctx context.Context, fn func() error, messageID string, fields map[string]interface{}) error {
	var err error
	attempt := 0
	for ; attempt <= h.maxRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if errors.Is(err, errPermanent) || attempt == h.maxRetries {
			break
		}

		delay := h.backoff(attempt)
		log.Warn().
			Err(err).
			Str("message_id", messageID).
			Int("attempt", attempt+1).
			Dur("retry_in", delay).
			Msg("Processing failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	values := make(map[string]interface{}, len(fields)+3)
	for k, v := range fields {
		values[k] = v
	}
	values["original_id"] = messageID
	values["error"] = err.Error()
	values["attempts"] = attempt + 1

	if dlqErr := h.deadLetter(ctx, values); dlqErr != nil {
		log.Error().Err(dlqErr).Str("message_id", messageID).Msg("Failed to write to dead-letter stream")
		return fmt.Errorf("processing failed: %w (dead-letter write failed: %v)", err, dlqErr)
	}

	log.Error().
		Err(err).
		Str("message_id", messageID).
		Int("attempts", attempt+1).
		Msg("Message moved to dead-letter stream")

	return fmt.Errorf("%w: %w", ErrDeadLettered, err)
}

func (h *RetryHandler) backoff(attempt int) time.Duration {
	delay := h.baseDelay << attempt
	if delay <= 0 || delay > h.maxDelay {
		return h.maxDelay
	}
	return delay
}
