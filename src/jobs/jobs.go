/*
Package jobs wraps the background work that runs beside the website, so that
shutdown can cancel all of it and wait with a deadline.
*/
package jobs

import (
	"context"
	"time"

	"git.handmade.network/hmn/syllabus/src/logging"
	"git.handmade.network/hmn/syllabus/src/utils"
	"github.com/rs/zerolog"
)

type Job struct {
	Name   string
	Ctx    context.Context
	Logger *zerolog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func New(name string) *Job {
	logger := logging.With().Str("job", name).Logger()
	ctx, cancel := context.WithCancel(logging.AttachLoggerToContext(&logger, context.Background()))
	return &Job{
		Name:   name,
		Ctx:    ctx,
		Logger: &logger,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Runs f on its own goroutine. The job finishes when f returns or panics.
func Run(name string, f func(job *Job)) *Job {
	job := New(name)
	go func() {
		defer job.Finish()
		defer logging.LogPanics(job.Logger)
		f(job)
	}()
	return job
}

/*
Calls f every interval until the job is canceled. Errors and panics from f are
logged and do not stop the job.
*/
func Every(name string, interval time.Duration, f func(ctx context.Context, logger *zerolog.Logger) error) *Job {
	return Run(name, func(job *Job) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				err := func() (err error) {
					defer utils.RecoverPanicAsError(&err)
					return f(job.Ctx, job.Logger)
				}()
				if err != nil {
					job.Logger.Error().Err(err).Msg("Periodic job failed")
				}
			case <-job.Canceled():
				return
			}
		}
	})
}

// An already finished job, for features that are turned off.
func Noop(name string) *Job {
	return New(name).Finish()
}

func (j *Job) Cancel() {
	j.cancel()
}

func (j *Job) Canceled() <-chan struct{} {
	return j.Ctx.Done()
}

// Must be called exactly once, by the job itself.
func (j *Job) Finish() *Job {
	close(j.done)
	return j
}

func (j *Job) Finished() <-chan struct{} {
	return j.done
}

func (j *Job) isFinished() bool {
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}

type Jobs []*Job

// Cancels every job and waits up to timeout for them to finish. Returns the
// names of the jobs still running at the deadline.
func (jobs Jobs) CancelAndWait(timeout time.Duration) []string {
	for _, job := range jobs {
		job.Cancel()
	}

	deadline := time.After(timeout)
	for _, job := range jobs {
		select {
		case <-job.Finished():
		case <-deadline:
			return jobs.ListUnfinished()
		}
	}
	return nil
}

func (jobs Jobs) ListUnfinished() []string {
	unfinished := []string{}
	for _, job := range jobs {
		if !job.isFinished() {
			unfinished = append(unfinished, job.Name)
		}
	}
	return unfinished
}
