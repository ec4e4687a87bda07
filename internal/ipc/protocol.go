// Package ipc implements the wire protocol, socket server, and client stub
// bjobs uses to talk to its daemon: newline-delimited JSON frames over a
// Unix domain socket, not HTTP.
//
// Grounded on original_source/src/ipc/{mod,server}.rs for the framing and
// error-recovery timing, and on buildkite-agent/jobapi/server.go +
// internal/socket/server.go for the bind-retry-on-exists idiom (their wire
// format is HTTP; ours deliberately isn't).
package ipc

import "github.com/clementnerma/bjobs/internal/task"

// Request is one frame sent from client to server.
type Request struct {
	ID      uint64  `json:"id"`
	Content Command `json:"content"`
}

// partialRequest is the fallback shape tried when Content fails to decode:
// if at least the id can be recovered, the server can still reply with a
// targeted error instead of leaving the client hanging.
type partialRequest struct {
	ID uint64 `json:"id"`
}

// Command is the tagged union of every operation the daemon exposes. Only
// the field(s) relevant to Kind are populated.
type Command struct {
	Kind string `json:"kind"`

	Run   *RunCommand   `json:"run,omitempty"`
	Name  string        `json:"name,omitempty"`
	Check *CheckCommand `json:"check,omitempty"`
}

// Command kinds, one per operation the daemon exposes.
const (
	KindHello             = "hello"
	KindStop              = "stop"
	KindTasks             = "tasks"
	KindRunningTasksCount = "running_tasks_count"
	KindRun               = "run"
	KindRestart           = "restart"
	KindKill              = "kill"
	KindRemove            = "remove"
	KindLogs              = "logs"
	KindCheck             = "check"
)

// RunCommand carries a task definition to register and launch. EveryMS is
// the recurrence descriptor for a scheduled task, in milliseconds since
// JSON has no native duration type; zero means a one-shot task run
// immediately instead of handed to the scheduler.
type RunCommand struct {
	Name     string `json:"name"`
	Shell    string `json:"shell,omitempty"`
	Cmd      string `json:"cmd"`
	StartDir string `json:"start_dir,omitempty"`
	EveryMS  int64  `json:"every_ms,omitempty"`
}

// CheckCommand carries the check() operation's flags.
type CheckCommand struct {
	Succeeded bool `json:"succeeded"`
}

// Response is one frame sent from server to client, correlated to its
// Request by ForID.
type Response struct {
	ForID  uint64 `json:"for_id"`
	Result Result `json:"result"`
}

// Result is Ok(Payload) | Err(string). Exactly one of Ok or Err is set.
type Result struct {
	Ok  *Payload `json:"Ok,omitempty"`
	Err *string  `json:"Err,omitempty"`
}

// Payload is the union of every operation's success value. Like Command,
// only the field(s) relevant to the request that produced it are populated.
type Payload struct {
	Hello             string          `json:"hello,omitempty"`
	RunningTasksCount int             `json:"running_tasks_count,omitempty"`
	Tasks             []task.Snapshot `json:"tasks,omitempty"`
	Logs              []string        `json:"logs,omitempty"`
	Check             *CheckSummary   `json:"check,omitempty"`
}

// CheckSummary is check()'s report, classifying every registered task.
type CheckSummary struct {
	Failed []CheckEntry `json:"failed"`
}

// CheckEntry names one task that check() is flagging, with a short reason.
type CheckEntry struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

func ok(p Payload) Result {
	return Result{Ok: &p}
}

func errResult(msg string) Result {
	return Result{Err: &msg}
}
