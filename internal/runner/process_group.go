//go:build unix

package runner

import (
	"os/exec"
	"syscall"
)

// setupProcessGroup makes the child the leader of its own process group, so
// that everything it spawns can be reached (and killed) with one signal to
// -pid. Grounded on process/signal.go's setupProcessGroup.
func setupProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true, Pgid: 0}
}
