// Package scheduler fires recurring tasks at their next due moment.
//
// Grounded on original_source/src/daemon/scheduler.rs (the nearest-moment
// loop with its "+1 second" sleep buffer) and the later engine/scheduler.rs
// revision (non-collapsing reinsertion via a NextAfter-style recurrence
// step), using github.com/puzpuzpuz/xsync/v2's concurrent map instead of a
// mutex-guarded Go map for the fire queue.
package scheduler

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/puzpuzpuz/xsync/v2"

	"github.com/clementnerma/bjobs/internal/task"
)

// Runner is invoked once per fire, with a copy of the task definition. It is
// expected to run the task to completion; the scheduler doesn't wait for it.
type Runner func(t task.Task)

// Logger is the minimal logging surface the scheduler needs, satisfied by
// logger.Logger.
type Logger interface {
	Info(format string, v ...any)
	Debug(format string, v ...any)
}

// Queue holds the next fire moment for every scheduled task, keyed by task
// name. It starts empty and is mutated only through its Scheduler: Add and
// Remove, and the fire loop's removal and reinsertion of due tasks.
type Queue struct {
	moments *xsync.MapOf[string, time.Time]
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{moments: xsync.NewMapOf[time.Time]()}
}

// Seed inserts name's first fire moment, computed from its recurrence
// relative to now. It satisfies invariant (iv): the moment is strictly in
// the future at insertion time.
func (q *Queue) Seed(name string, recur task.Recurrence, now time.Time) {
	q.moments.Store(name, recur.NextMoment(now))
}

// Remove drops name from the queue, e.g. when its task is removed or
// restarted outside the scheduler.
func (q *Queue) Remove(name string) {
	q.moments.Delete(name)
}

// nearest returns the queue entry with the smallest moment, if any.
func (q *Queue) nearest() (name string, moment time.Time, ok bool) {
	found := false
	q.moments.Range(func(k string, v time.Time) bool {
		if !found || v.Before(moment) {
			name, moment, found = k, v, true
		}
		return true
	})
	return name, moment, found
}

// entry is a scheduled task paired with its recurrence, used by Run to know
// how to reinsert it after it fires.
type entry struct {
	task  task.Task
	recur task.Recurrence
}

// Scheduler drives the fire loop against a Queue and a set of scheduled
// task definitions.
type Scheduler struct {
	queue   *Queue
	entries *xsync.MapOf[string, entry]
	log     Logger
	run     Runner
}

// New returns a scheduler that will invoke run for every due task.
func New(log Logger, run Runner) *Scheduler {
	return &Scheduler{
		queue:   NewQueue(),
		entries: xsync.NewMapOf[entry](),
		log:     log,
		run:     run,
	}
}

// Add registers t (which must carry a non-nil Recur) with the scheduler and
// seeds its first fire moment.
func (s *Scheduler) Add(t task.Task) {
	if t.Recur == nil {
		return
	}
	s.entries.Store(t.Name, entry{task: t, recur: *t.Recur})
	s.queue.Seed(t.Name, *t.Recur, time.Now())
}

// Remove drops t from both the entry set and the queue.
func (s *Scheduler) Remove(name string) {
	s.entries.Delete(name)
	s.queue.Remove(name)
}

// Run blocks, firing due tasks, until stop returns true. Each iteration:
// an empty queue sleeps 1s; a queue whose nearest moment is still in the
// future sleeps until then plus a one-second buffer (re-checking stop every
// second, to avoid busy-spinning on sub-second drift); a due task is
// removed from the queue, run in its own goroutine, and reinserted once it
// completes at recur.NextAfter(plannedFor, time.Now()) so that consecutive
// late fires are never collapsed onto the same instant.
func (s *Scheduler) Run(stop func() bool) {
	s.log.Info("scheduler is running")

	for {
		if stop() {
			return
		}

		name, plannedFor, ok := s.queue.nearest()
		if !ok {
			s.log.Debug("no task scheduled, sleeping for 1 second")
			if sleepInterruptible(time.Second, stop) {
				return
			}
			continue
		}

		now := time.Now()
		if plannedFor.After(now) {
			// Whole-seconds truncation before adding the buffer, matching
			// original_source's `(*moment - now).whole_seconds()` exactly:
			// sleeping for the untruncated remainder plus one second would
			// roughly double the real fire period for sub-few-second
			// recurrences.
			wait := plannedFor.Sub(now).Truncate(time.Second) + time.Second
			s.log.Debug("nearest task %q due in %s, sleeping", name, humanize.RelTime(now, plannedFor, "", ""))
			if sleepInterruptible(wait, stop) {
				return
			}
			continue
		}

		e, found := s.entries.Load(name)
		if !found {
			// Removed/restarted out from under the scheduler between nearest()
			// and here; nothing to run.
			s.queue.Remove(name)
			continue
		}

		if lateBy := now.Sub(plannedFor); lateBy > 0 {
			s.log.Info("task %q fired %s late", name, humanize.RelTime(plannedFor, now, "late", "early"))
		}

		s.queue.Remove(name)
		go func(e entry, plannedFor time.Time) {
			s.run(e.task)
			s.queue.moments.Store(e.task.Name, e.recur.NextAfter(plannedFor, time.Now()))
		}(e, plannedFor)
	}
}

// sleepInterruptible sleeps for d in one-second increments, returning early
// (with true) the moment stop reports true.
func sleepInterruptible(d time.Duration, stop func() bool) bool {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if stop() {
			return true
		}
		remaining := time.Until(deadline)
		step := time.Second
		if remaining < step {
			step = remaining
		}
		time.Sleep(step)
	}
	return stop()
}
