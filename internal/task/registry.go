package task

import (
	"fmt"
	"sync"

	"github.com/clementnerma/bjobs/internal/ordered"
)

// Entry pairs an immutable Task with its mutable State, exactly as spec'd
// for the registry's value type.
type Entry struct {
	Task  Task
	State *State
}

// Registry is the daemon's name -> (Task, State) map. Iteration order is
// insertion order, matching the ordered.Map it's built on, so List-style
// operations are deterministic across calls.
//
// Registry itself is never marshaled as a whole: clients only ever see
// Snapshot() entries, so unlike its teacher (internal/ordered.Map) it needs
// none of the YAML/JSON machinery, just insertion-ordered storage behind a
// single lock.
type Registry struct {
	mu    sync.RWMutex
	items *ordered.Map[string, *Entry]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{items: ordered.NewMap[string, *Entry](0)}
}

// Register adds a new entry under name. It returns an error if the name is
// already taken, satisfying invariant (i): a name is present iff a client
// registered it and it hasn't been removed.
func (r *Registry) Register(t Task) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.items.Contains(t.Name) {
		return nil, fmt.Errorf("a task with this name already exists!")
	}

	entry := &Entry{Task: t, State: NewState()}
	r.items.Set(t.Name, entry)
	return entry, nil
}

// Get looks up an entry by name.
func (r *Registry) Get(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.items.Get(name)
}

// Remove deletes an entry by name. It reports whether the name was present.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.items.Contains(name) {
		return false
	}
	r.items.Delete(name)
	return true
}

// Len returns the number of registered tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.items.Len()
}

// RunningCount returns the number of tasks in a non-terminal status.
func (r *Registry) RunningCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	r.items.Range(func(_ string, e *Entry) error {
		if !e.State.Status().IsTerminal() {
			count++
		}
		return nil
	})
	return count
}

// Snapshot returns a copy of every entry's Task and Status, in registry
// order, fit for sending over the wire. It never exposes the live *State.
func (r *Registry) Snapshot() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Snapshot, 0, r.items.Len())
	r.items.Range(func(name string, e *Entry) error {
		out = append(out, Snapshot{
			Task:   e.Task,
			Status: e.State.Status(),
		})
		return nil
	})
	return out
}

// Names returns every registered task name, in registry order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, r.items.Len())
	r.items.Range(func(name string, _ *Entry) error {
		out = append(out, name)
		return nil
	})
	return out
}

// FindByShellAndCmd returns the first entry whose Task has the same shell
// and cmd as given. The server itself enforces only name uniqueness and
// does not call this; the client-side ignore_identicals check in
// clicommand's run command compares against Tasks() snapshots instead.
func (r *Registry) FindByShellAndCmd(shell, cmd string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found *Entry
	r.items.Range(func(_ string, e *Entry) error {
		if found == nil && e.Task.ShellInvocation() == shell && e.Task.Cmd == cmd {
			found = e
		}
		return nil
	})
	return found, found != nil
}

// Snapshot is the wire-safe projection of a registry entry.
type Snapshot struct {
	Task   Task
	Status Status
}
