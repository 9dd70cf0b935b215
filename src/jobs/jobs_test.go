package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestCancelAndWait(t *testing.T) {
	t.Run("finishes fast enough", func(t *testing.T) {
		testJobs := Jobs{
			fakeJob("session cleanup", time.Millisecond*100),
			fakeJob("local s3", time.Millisecond*200),
			Noop("disabled"),
		}

		before := time.Now()
		unfinished := testJobs.CancelAndWait(time.Second * 1)
		after := time.Now()
		assert.WithinDuration(t, after, before, time.Millisecond*500, "jobs did not finish fast enough")
		assert.Len(t, unfinished, 0)
	})
	t.Run("reports unfinished jobs", func(t *testing.T) {
		testJobs := Jobs{
			fakeJob("session cleanup", time.Millisecond*100),
			fakeJob("local s3", time.Second*10),
		}

		unfinished := testJobs.CancelAndWait(time.Second * 1)
		assert.Equal(t, []string{"local s3"}, unfinished)
	})
}

func TestRunRecoversPanics(t *testing.T) {
	job := Run("panicky", func(job *Job) {
		panic("oh no")
	})

	select {
	case <-job.Finished():
	case <-time.After(time.Second):
		t.Fatal("job did not finish after panicking")
	}
}

func fakeJob(name string, timeout time.Duration) *Job {
	return Run(name, func(job *Job) {
		<-job.Canceled()
		<-time.After(timeout)
	})
}

func TestEvery(t *testing.T) {
	calls := make(chan struct{}, 10)
	job := Every("ticker", 10*time.Millisecond, func(ctx context.Context, logger *zerolog.Logger) error {
		calls <- struct{}{}
		if len(calls) == 1 {
			panic("first call blows up")
		}
		return errors.New("and then fails")
	})

	for i := 0; i < 3; i++ {
		select {
		case <-calls:
		case <-time.After(time.Second):
			t.Fatal("periodic job stopped running")
		}
	}

	assert.Empty(t, Jobs{job}.CancelAndWait(time.Second))
}
