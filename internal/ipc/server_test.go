package ipc

import (
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/clementnerma/bjobs/internal/task"
	"github.com/clementnerma/bjobs/logger"
)

type fakeHandler struct {
	pid int
}

func (f *fakeHandler) Hello() string                 { return strconv.Itoa(f.pid) }
func (f *fakeHandler) Stop()                         {}
func (f *fakeHandler) Tasks() []task.Snapshot        { return nil }
func (f *fakeHandler) RunningTasksCount() int        { return 0 }
func (f *fakeHandler) Run(RunCommand) error          { return nil }
func (f *fakeHandler) Restart(name string) error     { return nil }
func (f *fakeHandler) Kill(name string) error         { return errNotRunning(name) }
func (f *fakeHandler) Remove(name string) error       { return nil }
func (f *fakeHandler) Logs(name string) ([]string, error) {
	return []string{"[t] hi"}, nil
}
func (f *fakeHandler) Check(succeeded bool) CheckSummary { return CheckSummary{} }

func errNotRunning(name string) error {
	return &notRunningError{name: name}
}

type notRunningError struct{ name string }

func (e *notRunningError) Error() string { return "task " + e.name + " is not running" }

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "bjobs.sock")

	srv := NewServer(sockPath, &fakeHandler{pid: 4242}, logger.Discard)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { srv.Shutdown() })
	return srv, sockPath
}

func TestHelloRoundTrip(t *testing.T) {
	t.Parallel()

	_, sockPath := newTestServer(t)

	client, err := Dial(sockPath)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer client.Close()

	got, err := client.Hello()
	if err != nil {
		t.Fatalf("Hello() error = %v", err)
	}
	if got != "4242" {
		t.Errorf("Hello() = %q; want 4242", got)
	}
}

func TestKillUnknownTaskReturnsError(t *testing.T) {
	t.Parallel()

	_, sockPath := newTestServer(t)

	client, err := Dial(sockPath)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer client.Close()

	if err := client.Kill("nope"); err == nil {
		t.Fatal("Kill(nope) = nil error; want non-nil")
	}
}

func TestStaleSocketFileIsRemovedOnStart(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sockPath := filepath.Join(dir, "bjobs.sock")

	if err := os.WriteFile(sockPath, []byte("not a socket"), 0o600); err != nil {
		t.Fatalf("seeding stale file: %v", err)
	}

	srv := NewServer(sockPath, &fakeHandler{pid: 1}, logger.Discard)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() over stale file: %v", err)
	}
	defer srv.Shutdown()

	conn, err := net.DialTimeout("unix", sockPath, time.Second)
	if err != nil {
		t.Fatalf("dialing after stale-file recovery: %v", err)
	}
	conn.Close()
}

func TestPartialParseRecoversRequestID(t *testing.T) {
	t.Parallel()

	_, sockPath := newTestServer(t)

	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	// "content" is present but malformed (a string instead of an object),
	// while "id" still decodes cleanly.
	if _, err := conn.Write([]byte(`{"id":7,"content":"not-an-object"}` + "\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	buf := make([]byte, 4096)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var resp Response
	if err := json.Unmarshal(buf[:n], &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.ForID != 7 {
		t.Errorf("ForID = %d; want 7", resp.ForID)
	}
	if resp.Result.Err == nil {
		t.Errorf("Result.Err is nil; want a parse-error message")
	}
}

func TestShutdownUnlinksSocket(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sockPath := filepath.Join(dir, "bjobs.sock")

	srv := NewServer(sockPath, &fakeHandler{pid: 1}, logger.Discard)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := srv.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if _, err := os.Stat(sockPath); !os.IsNotExist(err) {
		t.Errorf("socket file still exists after Shutdown: err = %v", err)
	}
}
