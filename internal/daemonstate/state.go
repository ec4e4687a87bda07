// Package daemonstate holds the two booleans the IPC handler and the
// daemon's shutdown watcher share, split out on its own so neither
// supervisor nor daemonize has to import the other to agree on them.
//
// Grounded on original_source/src/daemon/start.rs's daemon_core_loop, which
// reads and clears the same exit flag a service.rs handler sets.
package daemonstate

import "sync/atomic"

// State is the shared exit/exiting pair between the IPC handler and the
// shutdown watcher. Mutation of either field is whole-state, never
// partial, so both are plain atomics rather than fields behind a
// registry-style RWMutex.
type State struct {
	exit    atomic.Bool
	exiting atomic.Bool
}

// New returns a State with both flags clear.
func New() *State {
	return &State{}
}

// RequestExit sets Exit, the signal the shutdown watcher polls for.
func (s *State) RequestExit() {
	s.exit.Store(true)
}

// Exit reports whether a stop has been requested.
func (s *State) Exit() bool {
	return s.exit.Load()
}

// ClearExit flips Exit back to false once shutdown has run, unblocking any
// caller of Stop() still polling it.
func (s *State) ClearExit() {
	s.exit.Store(false)
}

// SetExiting marks shutdown as in progress.
func (s *State) SetExiting(v bool) {
	s.exiting.Store(v)
}

// Exiting reports whether shutdown is in progress.
func (s *State) Exiting() bool {
	return s.exiting.Load()
}
