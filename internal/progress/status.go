package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RishiKendai/textguard/internal/infra/redis"
	"github.com/RishiKendai/textguard/internal/models"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	keyPrefix = "plagiarism_report_status:"
	statusTTL = 12 * time.Hour
)

var validSteps = map[models.Step]bool{
	models.StepIdle:      true,
	models.StepInitiated: true,
	models.StepLoading:   true,
	models.StepComparing: true,
	models.StepCompleted: true,
	models.StepFailed:    true,
}

func Key(runID string) string {
	return keyPrefix + runID
}

// UpdateStatus records the current step of a comparison run
func UpdateStatus(ctx context.Context, redisClient *redis.Client, runID string, step models.Step) error {
	if !validSteps[step] {
		return fmt.Errorf("unknown step: %s", step)
	}

	rkey := Key(runID)

	err := redisClient.Set(ctx, rkey, string(step), statusTTL).Err()
	if err != nil {
		log.Error().Err(err).
			Str("step", string(step)).
			Str("runId", runID).
			Str("redisKey", rkey).
			Msg("Failed to update status in Redis")
		return fmt.Errorf("failed to update status in Redis: %w", err)
	}

	log.Trace().
		Str("step", string(step)).
		Str("runId", runID).
		Msg("Status updated in Redis")

	return nil
}

// GetStatus returns the last recorded step, or StepIdle when the run is unknown or expired
func GetStatus(ctx context.Context, redisClient *redis.Client, runID string) (models.Step, error) {
	value, err := redisClient.Get(ctx, Key(runID)).Result()
	if errors.Is(err, goredis.Nil) {
		return models.StepIdle, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read status from Redis: %w", err)
	}
	return models.Step(value), nil
}

// Tracker binds the status helpers to one Redis client
type Tracker struct {
	client *redis.Client
}

func NewTracker(client *redis.Client) *Tracker {
	return &Tracker{client: client}
}

func (t *Tracker) UpdateStatus(ctx context.Context, runID string, step models.Step) error {
	return UpdateStatus(ctx, t.client, runID, step)
}

func (t *Tracker) GetStatus(ctx context.Context, runID string) (models.Step, error) {
	return GetStatus(ctx, t.client, runID)
}
