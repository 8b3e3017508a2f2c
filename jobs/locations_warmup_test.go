package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/erp-console/internal/erpapi"
	jobmetrics "github.com/odyssey-erp/erp-console/internal/jobs"
	_ "github.com/odyssey-erp/erp-console/testing"
)

type stubRefresher struct {
	count int
	err   error
	token string
	calls int
}

func (s *stubRefresher) Refresh(ctx context.Context) (int, error) {
	s.calls++
	s.token = erpapi.TokenFromContext(ctx)
	return s.count, s.err
}

type stubAuth struct {
	email string
	err   error
}

func (s *stubAuth) Login(_ context.Context, email, _ string) (erpapi.TokenPair, error) {
	s.email = email
	if s.err != nil {
		return erpapi.TokenPair{}, s.err
	}
	return erpapi.TokenPair{AccessToken: "svc-token"}, nil
}

func newJob(refresher Refresher, auth Authenticator) *LocationsWarmupJob {
	return &LocationsWarmupJob{
		Catalog:  refresher,
		Auth:     auth,
		Email:    "worker@example.com",
		Password: "secret",
		Metrics:  jobmetrics.NewMetrics(prometheus.NewRegistry()),
	}
}

func warmupTask(t *testing.T) *asynq.Task {
	t.Helper()
	task, err := NewLocationsWarmupTask("")
	require.NoError(t, err)
	require.Equal(t, TaskLocationsWarmup, task.Type())
	require.JSONEq(t, `{"reason":"scheduled"}`, string(task.Payload()))
	return task
}

func TestLocationsWarmupLogsInAndRefreshes(t *testing.T) {
	refresher := &stubRefresher{count: 12}
	auth := &stubAuth{}

	err := newJob(refresher, auth).Handle(context.Background(), warmupTask(t))
	require.NoError(t, err)
	require.Equal(t, "worker@example.com", auth.email)
	require.Equal(t, 1, refresher.calls)
	require.Equal(t, "svc-token", refresher.token)
}

func TestLocationsWarmupWithoutServiceAccount(t *testing.T) {
	refresher := &stubRefresher{count: 3}
	job := newJob(refresher, nil)
	job.Email = ""

	require.NoError(t, job.Handle(context.Background(), warmupTask(t)))
	require.Empty(t, refresher.token)
}

func TestLocationsWarmupLoginFailureSkipsRefresh(t *testing.T) {
	refresher := &stubRefresher{}
	auth := &stubAuth{err: &erpapi.Error{StatusCode: 401, Detail: "Incorrect email or password"}}

	err := newJob(refresher, auth).Handle(context.Background(), warmupTask(t))
	require.Error(t, err)
	require.ErrorIs(t, err, erpapi.ErrUnauthorized)
	require.Zero(t, refresher.calls)
}

func TestLocationsWarmupRefreshFailure(t *testing.T) {
	refresher := &stubRefresher{err: errors.New("warehouse 3 unavailable")}

	err := newJob(refresher, &stubAuth{}).Handle(context.Background(), warmupTask(t))
	require.ErrorContains(t, err, "warehouse 3 unavailable")
}

func TestLocationsWarmupBadPayloadSkipsRetry(t *testing.T) {
	task := asynq.NewTask(TaskLocationsWarmup, []byte("{"))

	err := newJob(&stubRefresher{}, nil).Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}
