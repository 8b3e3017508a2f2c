package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/erp-console/internal/erpapi"
	jobmetrics "github.com/odyssey-erp/erp-console/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Refresher rebuilds the location catalog.
type Refresher interface {
	Refresh(ctx context.Context) (int, error)
}

// Authenticator obtains an API token for the worker's service account.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (erpapi.TokenPair, error)
}

// LocationsWarmupJob rebuilds the location catalog outside of page requests.
type LocationsWarmupJob struct {
	Catalog  Refresher
	Auth     Authenticator
	Email    string
	Password string
	Timeout  time.Duration
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// Handle processes locations warmup tasks.
func (j *LocationsWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Catalog == nil {
		return errors.New("locations warmup: handler not configured")
	}
	var payload LocationsWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("locations warmup: decode payload: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskLocationsWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("reason", payload.Reason))
	start := time.Now()

	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if j.Auth != nil && j.Email != "" {
		pair, err := j.Auth.Login(ctx, j.Email, j.Password)
		if err != nil {
			logger.Error("service account login", slog.Any("error", err))
			return fmt.Errorf("locations warmup: login: %w", err)
		}
		ctx = erpapi.ContextWithToken(ctx, pair.AccessToken)
	}

	count, err := j.Catalog.Refresh(ctx)
	if err != nil {
		logger.Error("refresh location catalog", slog.Any("error", err))
		return fmt.Errorf("locations warmup: %w", err)
	}
	logger.Info("location catalog warmed", slog.Int("locations", count), slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *LocationsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLocationsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskLocationsWarmup))
}

func (j *LocationsWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
