//go:build unix

// Package runner spawns a task's shell command, merges its stdout and
// stderr into a single timestamped line stream, and waits for it to finish.
//
// It is grounded on buildkite-agent's process package: SysProcAttr{Setpgid:
// true} (process/signal.go), manual line scanning (process/scanner.go), and
// a mutex-guarded output buffer (process/buffer.go), adapted here to append
// discrete timestamped lines rather than raw bytes, and to signal the
// whole process group rather than a single pid.
package runner

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/clementnerma/bjobs/internal/task"
)

// TimeFormat is the nanosecond-precision timestamp prefixed to every output
// line, matching `^\[\d{4}-\d{2}-\d{2}.*\] ` so log lines sort and parse
// predictably.
const TimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Handle is the live, non-serializable reference to a running task's process
// group. Only the runner and the kill path ever touch it; it never appears
// in a Snapshot.
type Handle struct {
	mu  sync.Mutex
	pid int
}

// Pid returns the process-group leader pid, or 0 if the process hasn't
// started yet.
func (h *Handle) Pid() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pid
}

func (h *Handle) setPid(pid int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pid = pid
}

// Kill sends SIGKILL to the whole process group, so that every descendant
// the child may have spawned dies along with it. This resolves the open
// question in favor of "best-effort termination of the whole descendant
// tree" rather than signaling a single pid.
func (h *Handle) Kill() error {
	pid := h.Pid()
	if pid == 0 {
		return nil
	}
	err := syscall.Kill(-pid, syscall.SIGKILL)
	if err == syscall.ESRCH {
		// Already gone.
		return nil
	}
	return err
}

// Run spawns t's shell command and blocks until it finishes. onLine is
// called once per output line (already timestamp-prefixed) as it arrives;
// onStart is called once the child's pid is known, passing the Handle the
// caller should store for Kill. It returns the resulting terminal Status, or
// an error if the runner itself failed to spawn or wait on the child,
// distinct from the child's own exit status. Output read errors are not
// returned.
// Cancellation goes through the returned Handle's Kill (process-group
// SIGKILL), not a context.Context: a task outlives any single request, so
// there is no natural context to tie its lifetime to.
func Run(t task.Task, onStart func(*Handle), onLine func(string)) (task.Status, error) {
	args := strings.Split(t.ShellInvocation(), " ")
	args = append(args, t.Cmd)

	cmd := exec.Command(args[0], args[1:]...)
	if t.StartDir != "" {
		if _, err := os.Stat(t.StartDir); err != nil {
			return task.Status{}, fmt.Errorf("start_dir %q: %w", t.StartDir, err)
		}
		cmd.Dir = t.StartDir
	}
	setupProcessGroup(cmd)

	pr, pw, err := os.Pipe()
	if err != nil {
		return task.Status{}, fmt.Errorf("creating output pipe: %w", err)
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return task.Status{}, fmt.Errorf("starting command: %w", err)
	}
	// The child has its own fd for the write end; close ours so the reader
	// sees EOF once the child (and anything it spawned) closes theirs.
	pw.Close()

	handle := &Handle{}
	handle.setPid(cmd.Process.Pid)
	if onStart != nil {
		onStart(handle)
	}

	var g errgroup.Group
	g.Go(func() error {
		defer pr.Close()
		return scanLines(pr, onLine)
	})

	waitErr := cmd.Wait()
	if err := g.Wait(); err != nil {
		// A read error doesn't prevent reporting the exit status below; the
		// runner only fails outright for spawn/wait problems.
		onLine(fmt.Sprintf("[%s] (output reader error: %v)", time.Now().Format(TimeFormat), err))
	}

	return exitStatus(waitErr, cmd)
}

// scanLines reads r line by line, prefixing each with the current timestamp,
// handing the result to f. It mirrors process.ScanLines's manual
// bufio.Reader loop so arbitrarily long lines are handled without losing
// data, but emits discrete prefixed lines instead of writing to a
// bytes.Buffer.
func scanLines(r *os.File, f func(string)) error {
	reader := bufio.NewReaderSize(r, 64*1024)

	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimRight(line, "\n")
			f(fmt.Sprintf("[%s] %s", time.Now().Format(TimeFormat), line))
		}
		if err != nil {
			return nil // EOF or pipe closed; not a runner failure
		}
	}
}

func exitStatus(waitErr error, cmd *exec.Cmd) (task.Status, error) {
	if waitErr == nil {
		return task.Status{Kind: task.Success}, nil
	}

	exitErr, ok := waitErr.(*exec.ExitError)
	if !ok {
		return task.Status{}, fmt.Errorf("waiting on command: %w", waitErr)
	}

	ws, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok {
		return task.Status{}, fmt.Errorf("unsupported wait status type %T", exitErr.Sys())
	}

	if ws.Signaled() {
		return task.Status{Kind: task.Failed, Code: -1}, nil
	}
	return task.Status{Kind: task.Failed, Code: ws.ExitStatus()}, nil
}
