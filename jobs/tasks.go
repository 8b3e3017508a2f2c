package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLocationsWarmup rebuilds the cached putaway location catalog.
	TaskLocationsWarmup = "locations:warmup"
)

// warmupUniqueTTL collapses repeated refresh requests into one queued task.
const warmupUniqueTTL = time.Minute

// LocationsWarmupPayload records why a warmup was requested.
type LocationsWarmupPayload struct {
	Reason string `json:"reason"`
}

// NewLocationsWarmupTask constructs the warmup task.
func NewLocationsWarmupTask(reason string) (*asynq.Task, error) {
	if reason == "" {
		reason = "scheduled"
	}
	data, err := json.Marshal(LocationsWarmupPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLocationsWarmup, data), nil
}
