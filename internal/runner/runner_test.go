//go:build unix

package runner

import (
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/clementnerma/bjobs/internal/task"
)

var linePrefix = regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2}.*\] `)

func collectLines(t *task.Task) (*[]string, func(string)) {
	var mu sync.Mutex
	var lines []string
	return &lines, func(line string) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, line)
	}
}

func TestRunEchoSucceeds(t *testing.T) {
	t.Parallel()

	tsk := task.Task{Name: "echo", Cmd: "echo hi"}
	lines, onLine := collectLines(&tsk)

	status, err := Run(tsk, nil, onLine)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if status.Kind != task.Success {
		t.Fatalf("status.Kind = %v; want Success", status.Kind)
	}
	if len(*lines) != 1 {
		t.Fatalf("output lines = %v; want exactly one", *lines)
	}
	if !strings.HasSuffix((*lines)[0], "hi") {
		t.Errorf("line %q does not end with %q", (*lines)[0], "hi")
	}
	if !linePrefix.MatchString((*lines)[0]) {
		t.Errorf("line %q does not match timestamp prefix format", (*lines)[0])
	}
}

func TestRunNonZeroExit(t *testing.T) {
	t.Parallel()

	tsk := task.Task{Name: "fail", Cmd: "exit 7"}
	_, onLine := collectLines(&tsk)

	status, err := Run(tsk, nil, onLine)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if status.Kind != task.Failed || status.Code != 7 {
		t.Fatalf("status = %+v; want Failed{Code: 7}", status)
	}
}

func TestRunKillTerminatesProcessGroup(t *testing.T) {
	t.Parallel()

	tsk := task.Task{Name: "sleeper", Cmd: "sleep 60"}
	_, onLine := collectLines(&tsk)

	var handle *Handle
	done := make(chan struct{})
	var status task.Status
	go func() {
		status, _ = Run(tsk, func(h *Handle) { handle = h }, onLine)
		close(done)
	}()

	// Wait for the handle to be populated before killing.
	for handle == nil {
		time.Sleep(time.Millisecond)
	}
	if err := handle.Kill(); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return within 2s of Kill()")
	}

	if status.Kind != task.Failed {
		t.Errorf("status.Kind = %v; want Failed", status.Kind)
	}
}
