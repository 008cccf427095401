package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name  string
	runs  atomic.Int32
	err   error
	block chan struct{}
}

func (j *countingJob) Name() string {
	return j.name
}

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.block != nil {
		select {
		case <-j.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return j.err
}

func TestAddJobRejectsDuplicatesAndBadSpecs(t *testing.T) {
	s := NewCronScheduler(time.Second)
	job := &countingJob{name: "session_eviction"}
	require.NoError(t, s.AddJob(job, "*/10 * * * *"))
	require.Error(t, s.AddJob(job, "*/5 * * * *"))
	require.Error(t, s.AddJob(&countingJob{name: "other"}, "not a spec"))
}

func TestRunNow(t *testing.T) {
	s := NewCronScheduler(time.Second)
	job := &countingJob{name: "cleanup", err: errors.New("boom")}
	require.NoError(t, s.AddJob(job, "0 3 * * *"))
	require.Error(t, s.RunNow(context.Background(), "cleanup"))
	require.Equal(t, int32(1), job.runs.Load())
	require.Error(t, s.RunNow(context.Background(), "missing"))
}

func TestRunNowSkipsOverlap(t *testing.T) {
	s := NewCronScheduler(time.Second)
	job := &countingJob{name: "slow", block: make(chan struct{})}
	require.NoError(t, s.AddJob(job, "0 3 * * *"))
	done := make(chan error, 1)
	go func() {
		done <- s.RunNow(context.Background(), "slow")
	}()
	require.Eventually(t, func() bool { return job.runs.Load() == 1 }, time.Second, time.Millisecond)
	require.NoError(t, s.RunNow(context.Background(), "slow"))
	require.Equal(t, int32(1), job.runs.Load())
	close(job.block)
	require.NoError(t, <-done)
}

func TestRunTimeout(t *testing.T) {
	s := NewCronScheduler(20 * time.Millisecond)
	job := &countingJob{name: "stuck", block: make(chan struct{})}
	require.NoError(t, s.AddJob(job, "0 3 * * *"))
	err := s.RunNow(context.Background(), "stuck")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
