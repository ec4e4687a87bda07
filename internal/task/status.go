package task

import "fmt"

// Kind is the tag of a task's status variant.
type Kind int

const (
	NotStartedYet Kind = iota
	Running
	Success
	Failed
	RunnerFailed
)

func (k Kind) String() string {
	switch k {
	case NotStartedYet:
		return "NotStartedYet"
	case Running:
		return "Running"
	case Success:
		return "Success"
	case Failed:
		return "Failed"
	case RunnerFailed:
		return "RunnerFailed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Status is the tagged variant a task's runtime state carries. Only the
// fields relevant to Kind are meaningful; the zero value of the others is
// ignored.
//
// The process-group handle backing a Running status is deliberately not a
// field here: it isn't serializable and callers outside the runner have no
// business touching it. Registry.Snapshot entries always report Running
// without a handle, matching the wire projection described in the daemon's
// design notes.
type Status struct {
	Kind Kind

	// Pid is the process-group leader pid, valid when Kind == Running.
	Pid int

	// Code is the child's exit code, valid when Kind == Failed. A value of
	// -1 means the task was terminated by a signal rather than exiting.
	Code int

	// Message describes a runner-side failure, valid when Kind == RunnerFailed.
	Message string
}

// IsTerminal reports whether the status will not transition further except
// via an explicit Restart (modeled as Remove-then-Run).
func (s Status) IsTerminal() bool {
	switch s.Kind {
	case Success, Failed, RunnerFailed:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	switch s.Kind {
	case Failed:
		if s.Code < 0 {
			return "Failed (killed by signal)"
		}
		return fmt.Sprintf("Failed (code %d)", s.Code)
	case RunnerFailed:
		return fmt.Sprintf("RunnerFailed: %s", s.Message)
	default:
		return s.Kind.String()
	}
}
