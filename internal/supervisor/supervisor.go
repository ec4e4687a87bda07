// Package supervisor is the pure glue between the IPC service contract and
// the task registry, process runner, and scheduler: it is the Go rendering
// of original_source/src/daemon/service.rs's function table, translated
// from the Rust RwLock<State> + free-function dispatch into a struct that
// implements ipc.Handler directly.
package supervisor

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v2"

	"github.com/clementnerma/bjobs/internal/daemonstate"
	"github.com/clementnerma/bjobs/internal/ipc"
	"github.com/clementnerma/bjobs/internal/runner"
	"github.com/clementnerma/bjobs/internal/scheduler"
	"github.com/clementnerma/bjobs/internal/task"
	"github.com/clementnerma/bjobs/logger"
)

// stopPollInterval is how often Stop polls for its own request to be
// serviced, mirroring original_source/src/daemon/service.rs's
// `while state.read().unwrap().exit { sleep_ms(20) }`.
const stopPollInterval = 20 * time.Millisecond

// Supervisor orchestrates the task registry and, when scheduled tasks are
// in play, the scheduler's fire queue. It implements ipc.Handler, so an
// ipc.Server can dispatch requests directly against it.
type Supervisor struct {
	registry  *task.Registry
	scheduler *scheduler.Scheduler
	state     *daemonstate.State
	log       logger.Logger

	// handles holds the live, non-serializable process-group handle for
	// every currently-running task, keyed by name. It never appears on a
	// Snapshot; outside the runner goroutine itself it is read only by
	// Kill, Remove, and Handle.
	handles *xsync.MapOf[string, *runner.Handle]
}

// New returns a supervisor backed by a fresh, empty registry. sched may be
// nil for daemon variants that never register recurring tasks. state is
// the shared exit/exiting pair the daemon's shutdown watcher also holds.
func New(log logger.Logger, sched *scheduler.Scheduler, state *daemonstate.State) *Supervisor {
	return &Supervisor{
		registry:  task.NewRegistry(),
		scheduler: sched,
		state:     state,
		log:       log,
		handles:   xsync.NewMapOf[*runner.Handle](),
	}
}

// SetScheduler attaches sched after construction, resolving the
// Supervisor/Scheduler construction cycle: the scheduler's Runner is
// s.RunScheduled, which needs a *Supervisor to close over, so the
// supervisor must exist first.
func (s *Supervisor) SetScheduler(sched *scheduler.Scheduler) {
	s.scheduler = sched
}

// Registry exposes the underlying registry. The shutdown watcher does not
// use it; it goes through Tasks and Handle instead.
func (s *Supervisor) Registry() *task.Registry {
	return s.registry
}

// Handle returns the live process handle for a running task, used by the
// shutdown watcher to SIGKILL every non-terminal task without going
// through the name-based Kill error path.
func (s *Supervisor) Handle(name string) (*runner.Handle, bool) {
	return s.handles.Load(name)
}

// Hello answers the liveness probe with the daemon's own pid, so a caller
// can tell which process answered instead of getting a bare acknowledgement.
func (s *Supervisor) Hello() string {
	return strconv.Itoa(os.Getpid())
}

// Stop sets the shared exit flag and blocks until the shutdown watcher
// clears it back to false, so the caller only returns once shutdown has
// actually completed.
func (s *Supervisor) Stop() {
	s.state.RequestExit()
	for s.state.Exit() {
		time.Sleep(stopPollInterval)
	}
}

// Run registers t and launches its runner in its own goroutine: check
// uniqueness, insert, spawn, and on a runner error transition the task to
// RunnerFailed rather than propagating the error to the caller. A nonzero
// EveryMS makes t a recurring task: it is registered but handed to the
// scheduler instead of run immediately, firing at its first due moment.
func (s *Supervisor) Run(cmd ipc.RunCommand) error {
	t := task.Task{
		Name:     cmd.Name,
		Cmd:      cmd.Cmd,
		Shell:    cmd.Shell,
		StartDir: cmd.StartDir,
	}

	if cmd.EveryMS > 0 {
		if s.scheduler == nil {
			return fmt.Errorf("this daemon was not started with scheduler support")
		}
		recur := time.Duration(cmd.EveryMS) * time.Millisecond
		t.Recur = &task.Recurrence{Every: recur}

		if _, err := s.registry.Register(t); err != nil {
			return err
		}
		s.scheduler.Add(t)
		return nil
	}

	entry, err := s.registry.Register(t)
	if err != nil {
		return err
	}

	s.spawn(t, entry.State)
	return nil
}

// spawn runs t to completion on its own goroutine, routing output lines and
// the terminal status into state.
func (s *Supervisor) spawn(t task.Task, state *task.State) {
	go s.runOnce(t, state)
}

// runOnce runs t to completion, synchronously, recording its output and
// terminal status on state. It is shared by the ad hoc run path (wrapped in
// its own goroutine by spawn) and by RunScheduled, which the scheduler
// already runs on a dedicated goroutine per fire.
func (s *Supervisor) runOnce(t task.Task, state *task.State) {
	// runID correlates one invocation's log lines across restarts and
	// scheduler fires, since two runs of the same named task otherwise look
	// identical in the daemon's own log. Both are attached as structured
	// fields rather than interpolated into the message, so a text printer
	// can show the task name as a prefix and a JSON printer as its own key.
	runID := uuid.NewString()
	rl := s.log.WithFields(logger.StringField("task", t.Name), logger.StringField("run", runID))
	rl.Debug("starting run")

	status, err := runner.Run(t, func(h *runner.Handle) {
		state.SetStatus(task.Status{Kind: task.Running, Pid: h.Pid()})
		s.handles.Store(t.Name, h)
	}, func(line string) {
		state.AppendLine(line)
	})

	s.handles.Delete(t.Name)

	if err != nil {
		rl.Error("runner failed: %v", err)
		state.SetStatus(task.Status{Kind: task.RunnerFailed, Message: err.Error()})
		return
	}

	rl.Debug("run finished with status %s", status.Kind)
	state.SetStatus(status)
}

// RunScheduled runs a recurring task's fire to completion. It is passed to
// scheduler.New as the Runner: the scheduler already spawns its own
// goroutine per fire, so this blocks rather than spawning another one. Run
// and Restart register the task before handing it to the scheduler, so a
// fire normally reuses that registry entry, resetting its state so each
// run's output and status start fresh; only if no entry exists does the
// fire register one itself.
func (s *Supervisor) RunScheduled(t task.Task) {
	entry, ok := s.registry.Get(t.Name)
	if !ok {
		var err error
		entry, err = s.registry.Register(t)
		if err != nil {
			s.log.Error("scheduled task %q: %v", t.Name, err)
			return
		}
	} else if entry.State.Status().Kind == task.Running {
		s.log.Warn("scheduled task %q is still running from a previous fire, skipping this one", t.Name)
		return
	} else {
		entry.State.Reset()
	}

	s.runOnce(t, entry.State)
}

// Restart removes name and re-runs it under its existing definition:
// restart is modelled as remove-then-run rather than its own code path. A
// task registered with a recurrence (t.Recur != nil, via run's --every) is
// handed back to the scheduler rather than run once immediately, the same
// branch Run takes for a fresh recurring registration: otherwise a restart
// would silently degrade a recurring task into a one-shot run.
func (s *Supervisor) Restart(name string) error {
	entry, ok := s.registry.Get(name)
	if !ok {
		return fmt.Errorf("no task found with name %q", name)
	}
	t := entry.Task

	if err := s.Remove(name); err != nil {
		return err
	}

	if t.Recur != nil {
		if s.scheduler == nil {
			return fmt.Errorf("this daemon was not started with scheduler support")
		}
		if _, err := s.registry.Register(t); err != nil {
			return err
		}
		s.scheduler.Add(t)
		return nil
	}

	if _, err := s.registry.Register(t); err != nil {
		return err
	}
	newEntry, _ := s.registry.Get(name)
	s.spawn(t, newEntry.State)
	return nil
}

// Kill signals name's process group with SIGKILL if it is running, taking
// out its whole descendant tree rather than a single pid.
func (s *Supervisor) Kill(name string) error {
	entry, ok := s.registry.Get(name)
	if !ok {
		return fmt.Errorf("no task found with name %q", name)
	}

	if entry.State.Status().Kind != task.Running {
		return fmt.Errorf("task %q is not running", name)
	}

	h, ok := s.handles.Load(name)
	if !ok {
		return fmt.Errorf("task %q has no live process handle", name)
	}
	return h.Kill()
}

// Remove deletes name's entry, killing it first if it is still running.
func (s *Supervisor) Remove(name string) error {
	entry, ok := s.registry.Get(name)
	if !ok {
		return fmt.Errorf("no task found with name %q", name)
	}

	if entry.State.Status().Kind == task.Running {
		if h, ok := s.handles.Load(name); ok {
			if err := h.Kill(); err != nil {
				s.log.Warn("task %q: kill before remove failed: %v", name, err)
			}
		}
	}

	if s.scheduler != nil {
		s.scheduler.Remove(name)
	}
	s.registry.Remove(name)
	return nil
}

// Logs clones name's output buffer.
func (s *Supervisor) Logs(name string) ([]string, error) {
	entry, ok := s.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("no task found with name %q", name)
	}
	return entry.State.Output(), nil
}

// Tasks returns a wire-safe snapshot of the whole registry.
func (s *Supervisor) Tasks() []task.Snapshot {
	return s.registry.Snapshot()
}

// RunningTasksCount returns the number of tasks in a non-terminal status.
func (s *Supervisor) RunningTasksCount() int {
	return s.registry.RunningCount()
}

// Check classifies every registered task: non-terminal statuses are never
// reported; Success is reported only when succeeded is requested; Failed
// and RunnerFailed are always reported.
func (s *Supervisor) Check(succeeded bool) ipc.CheckSummary {
	var failed []ipc.CheckEntry

	for _, snap := range s.registry.Snapshot() {
		switch snap.Status.Kind {
		case task.NotStartedYet, task.Running:
			// not yet terminal, never reported

		case task.Success:
			if succeeded {
				failed = append(failed, ipc.CheckEntry{Name: snap.Task.Name, Reason: "succeeded"})
			}

		case task.Failed:
			reason := "failed - no exit code"
			if snap.Status.Code >= 0 {
				reason = fmt.Sprintf("failed with exit code %d", snap.Status.Code)
			}
			failed = append(failed, ipc.CheckEntry{Name: snap.Task.Name, Reason: reason})

		case task.RunnerFailed:
			failed = append(failed, ipc.CheckEntry{
				Name:   snap.Task.Name,
				Reason: fmt.Sprintf("task runner failed with message '%s'", snap.Status.Message),
			})
		}
	}

	return ipc.CheckSummary{Failed: failed}
}
