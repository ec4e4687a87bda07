package ipc

import (
	"fmt"

	"github.com/clementnerma/bjobs/internal/task"
)

// Handler is implemented by the supervisor; the server dispatches each
// decoded Command to the matching method. It is the Go rendering of the
// Rust service! macro in daemon/service.rs: one function per operation,
// called against shared state.
type Handler interface {
	Hello() string
	Stop()
	Tasks() []task.Snapshot
	RunningTasksCount() int
	Run(RunCommand) error
	Restart(name string) error
	Kill(name string) error
	Remove(name string) error
	Logs(name string) ([]string, error)
	Check(succeeded bool) CheckSummary
}

// dispatch routes a single decoded Command to h, producing the Result to
// send back. Operations that can fail (unknown name, duplicate name) report
// Err(string) rather than panicking or disconnecting the client.
func dispatch(h Handler, cmd Command) Result {
	switch cmd.Kind {
	case KindHello:
		return ok(Payload{Hello: h.Hello()})

	case KindStop:
		h.Stop()
		return ok(Payload{})

	case KindTasks:
		return ok(Payload{Tasks: h.Tasks()})

	case KindRunningTasksCount:
		return ok(Payload{RunningTasksCount: h.RunningTasksCount()})

	case KindRun:
		if cmd.Run == nil {
			return errResult("run command missing its task definition")
		}
		if err := h.Run(*cmd.Run); err != nil {
			return errResult(err.Error())
		}
		return ok(Payload{})

	case KindRestart:
		if err := h.Restart(cmd.Name); err != nil {
			return errResult(err.Error())
		}
		return ok(Payload{})

	case KindKill:
		if err := h.Kill(cmd.Name); err != nil {
			return errResult(err.Error())
		}
		return ok(Payload{})

	case KindRemove:
		if err := h.Remove(cmd.Name); err != nil {
			return errResult(err.Error())
		}
		return ok(Payload{})

	case KindLogs:
		lines, err := h.Logs(cmd.Name)
		if err != nil {
			return errResult(err.Error())
		}
		return ok(Payload{Logs: lines})

	case KindCheck:
		succeeded := cmd.Check != nil && cmd.Check.Succeeded
		summary := h.Check(succeeded)
		return ok(Payload{Check: &summary})

	default:
		return errResult(fmt.Sprintf("unknown command kind %q", cmd.Kind))
	}
}
