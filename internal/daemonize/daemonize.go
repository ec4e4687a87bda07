//go:build unix

// Package daemonize implements the two-phase detach-to-background
// handshake and the shutdown watcher that bring bjobsd up as a background
// process and tear it back down.
//
// Grounded on original_source/src/daemon/start.rs's fork_exit /
// daemon_core / daemon_core_loop trio. Go cannot safely fork a
// multi-threaded runtime the way daemonize-me's Rust fork() does, so the
// parent-to-child handoff is a self re-exec instead: the parent starts a
// fresh copy of its own executable with ChildEnvVar set, Setsid in its
// SysProcAttr, and stdout/stderr redirected at the log file, then polls for
// the socket to come up exactly as fork_exit polls SOCKET_FILE_PATH.
package daemonize

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/buildkite/roko"
	"github.com/gofrs/flock"

	"github.com/clementnerma/bjobs/internal/daemonstate"
	"github.com/clementnerma/bjobs/internal/ipc"
	"github.com/clementnerma/bjobs/internal/scheduler"
	"github.com/clementnerma/bjobs/internal/supervisor"
	"github.com/clementnerma/bjobs/logger"
)

// ChildEnvVar is set in the daemon child's environment so it knows to run
// Serve instead of re-entering the CLI dispatch in main.go: an explicit,
// passed value instead of a process-wide mutable one.
const ChildEnvVar = "BJOBS_DAEMONIZE_CHILD"

// Paths bundles every on-disk location the daemon touches, all living
// under one data directory.
type Paths struct {
	DataDir    string
	SocketPath string
	LogPath    string
	LockPath   string
}

// NewPaths derives the socket, log, and lock paths from dataDir.
func NewPaths(dataDir string) Paths {
	return Paths{
		DataDir:    dataDir,
		SocketPath: dataDir + "/bjobs.sock",
		LogPath:    dataDir + "/daemon.log",
		LockPath:   dataDir + "/bjobs.lock",
	}
}

// IsRunning reports whether a live daemon answers Hello() at paths.SocketPath.
func IsRunning(paths Paths) bool {
	client, err := ipc.Dial(paths.SocketPath)
	if err != nil {
		return false
	}
	defer client.Close()

	_, err = client.Hello()
	return err == nil
}

// startPollInterval and startAttempts bound how long the parent waits for
// the child's socket and first Hello() round-trip.
const (
	startPollInterval = 50 * time.Millisecond
	startAttempts     = 100 // 100 * 50ms = 5s
)

// Start is the parent side of the handshake: it re-execs the running
// binary with ChildEnvVar set so the new process
// becomes the daemon, then polls until the socket exists and Hello()
// round-trips, returning once the daemon is confirmed live. If ignoreStarted
// is set and a daemon is already answering, Start is a no-op.
func Start(exe string, paths Paths, ignoreStarted bool, log logger.Logger) error {
	if IsRunning(paths) {
		if ignoreStarted {
			return nil
		}
		return fmt.Errorf("daemon is already running")
	}

	if err := os.MkdirAll(paths.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory %s: %w", paths.DataDir, err)
	}

	if _, err := os.Stat(paths.SocketPath); err == nil {
		if err := os.Remove(paths.SocketPath); err != nil {
			return fmt.Errorf("removing stale socket %s: %w", paths.SocketPath, err)
		}
	}

	logFile, err := os.OpenFile(paths.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening daemon log %s: %w", paths.LogPath, err)
	}
	defer logFile.Close()

	cmd := exec.Command(exe, "start", "--data-dir", paths.DataDir)
	cmd.Env = append(os.Environ(), ChildEnvVar+"=1")
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting daemon process: %w", err)
	}
	// The daemon is meant to outlive this process; explicitly not waited on.
	if err := cmd.Process.Release(); err != nil {
		log.Warn("failed to release daemon process handle: %v", err)
	}

	return waitForHello(paths, log)
}

// waitForHello polls for the socket to exist and answer Hello(), using a
// bounded roko retrier at the 50ms/5s cadence Start promises its callers.
func waitForHello(paths Paths, log logger.Logger) error {
	return roko.NewRetrier(
		roko.WithMaxAttempts(startAttempts),
		roko.WithStrategy(roko.Constant(startPollInterval)),
	).DoWithContext(context.Background(), func(r *roko.Retrier) error {
		if !IsRunning(paths) {
			err := fmt.Errorf("daemon not yet answering at %s", paths.SocketPath)
			log.Debug("waiting for daemon to start (%s)", r)
			return err
		}
		return nil
	})
}

// acquireLock takes the single-instance guard: a held flock at
// paths.LockPath. A stale lock (held by a process that's gone) is
// detected by TryLock succeeding once the OS releases it on process
// death, so no separate pid check is needed.
func acquireLock(paths Paths) (*flock.Flock, error) {
	fl := flock.New(paths.LockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring daemon lock %s: %w", paths.LockPath, err)
	}
	if !locked {
		return nil, fmt.Errorf("another daemon instance already holds %s", paths.LockPath)
	}
	return fl, nil
}

// shutdownPollInterval and shutdownGrace bound the watcher's poll rate and
// how long it waits for runners to observe termination before giving up.
const (
	shutdownPollInterval = 50 * time.Millisecond
	shutdownGrace        = 5 * time.Second
)

// Serve is the child side of the handshake: it binds
// the socket, starts the IPC accept loop and (if sched is non-nil) the
// scheduler, then blocks in the shutdown watcher until a client calls
// Stop(). It returns once the daemon has fully torn down.
func Serve(paths Paths, sup *supervisor.Supervisor, state *daemonstate.State, sched *scheduler.Scheduler, log logger.Logger) error {
	lock, err := acquireLock(paths)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	server := ipc.NewServer(paths.SocketPath, sup, log)
	if err := server.Start(); err != nil {
		return fmt.Errorf("starting IPC server: %w", err)
	}

	if sched != nil {
		go sched.Run(state.Exiting)
	}

	log.Info("bjobs daemon listening on %s (pid %d)", paths.SocketPath, os.Getpid())
	watchForShutdown(sup, state, server, log)
	return nil
}

// watchForShutdown polls state.Exit every 50ms (daemon_core_loop's cadence).
// On the transition to true it marks Exiting, SIGKILLs every non-terminal
// task's process group, waits (bounded) for their runners to observe
// termination, unlinks the socket, and clears Exit so any blocked Stop()
// caller returns.
func watchForShutdown(sup *supervisor.Supervisor, state *daemonstate.State, server *ipc.Server, log logger.Logger) {
	for {
		if state.Exit() {
			log.Info("shutdown requested, terminating live tasks")
			state.SetExiting(true)

			killAllRunning(sup, log)
			waitForTerminal(sup, shutdownGrace)

			if err := server.Shutdown(); err != nil {
				log.Error("failed to unlink socket during shutdown: %v", err)
			}

			state.ClearExit()
			log.Info("shutdown complete")
			return
		}
		time.Sleep(shutdownPollInterval)
	}
}

// killAllRunning sends SIGKILL to every non-terminal task's process group.
func killAllRunning(sup *supervisor.Supervisor, log logger.Logger) {
	for _, snap := range sup.Tasks() {
		if snap.Status.IsTerminal() {
			continue
		}
		h, ok := sup.Handle(snap.Task.Name)
		if !ok {
			continue
		}
		if err := h.Kill(); err != nil {
			log.Warn("failed to kill task %q during shutdown: %v", snap.Task.Name, err)
		}
	}
}

// waitForTerminal blocks until every registered task reaches a terminal
// status or timeout elapses, whichever comes first.
func waitForTerminal(sup *supervisor.Supervisor, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if sup.RunningTasksCount() == 0 {
			return
		}
		time.Sleep(shutdownPollInterval)
	}
}
