package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/clementnerma/bjobs/internal/task"
)

// Client is a synchronous connection to a bjobs daemon: one request
// in-flight at a time, monotonically increasing request ids. Grounded on
// original_source/src/daemon/client.rs and the call sites in main.rs.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader

	mu     sync.Mutex
	nextID uint64
}

// Dial connects to the daemon listening at path.
func Dial(path string) (*Client, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, reader: bufio.NewReader(conn)}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// call sends cmd and blocks for the matching response.
func (c *Client) call(cmd Command) (Payload, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID

	b, err := json.Marshal(Request{ID: id, Content: cmd})
	if err != nil {
		return Payload{}, fmt.Errorf("encoding request: %w", err)
	}
	b = append(b, '\n')

	if _, err := c.conn.Write(b); err != nil {
		return Payload{}, fmt.Errorf("writing request: %w", err)
	}

	line, err := c.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			// A stop() that finished before the reply made it back is
			// treated as success: the socket closing mid-reply means the
			// daemon tore itself (and the listener) down already.
			if cmd.Kind == KindStop {
				return Payload{}, nil
			}
		}
		return Payload{}, fmt.Errorf("reading response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return Payload{}, fmt.Errorf("decoding response: %w", err)
	}
	if resp.ForID != id {
		return Payload{}, fmt.Errorf("response for request %d, expected %d", resp.ForID, id)
	}
	if resp.Result.Err != nil {
		return Payload{}, errors.New(*resp.Result.Err)
	}
	if resp.Result.Ok == nil {
		return Payload{}, nil
	}
	return *resp.Result.Ok, nil
}

// Hello is the liveness probe; it returns the daemon's pid as a string.
func (c *Client) Hello() (string, error) {
	p, err := c.call(Command{Kind: KindHello})
	return p.Hello, err
}

// Stop asks the daemon to shut down. It blocks until the daemon acknowledges
// or the connection closes.
func (c *Client) Stop() error {
	_, err := c.call(Command{Kind: KindStop})
	return err
}

// Tasks returns a snapshot of the registry.
func (c *Client) Tasks() ([]task.Snapshot, error) {
	p, err := c.call(Command{Kind: KindTasks})
	return p.Tasks, err
}

// RunningTasksCount returns the number of tasks in a non-terminal status.
func (c *Client) RunningTasksCount() (int, error) {
	p, err := c.call(Command{Kind: KindRunningTasksCount})
	return p.RunningTasksCount, err
}

// Run registers and launches a task.
func (c *Client) Run(cmd RunCommand) error {
	_, err := c.call(Command{Kind: KindRun, Run: &cmd})
	return err
}

// Restart removes and re-runs a task under its existing definition.
func (c *Client) Restart(name string) error {
	_, err := c.call(Command{Kind: KindRestart, Name: name})
	return err
}

// Kill signals a running task's process group.
func (c *Client) Kill(name string) error {
	_, err := c.call(Command{Kind: KindKill, Name: name})
	return err
}

// Remove deletes a task's registry entry, killing it first if running.
func (c *Client) Remove(name string) error {
	_, err := c.call(Command{Kind: KindRemove, Name: name})
	return err
}

// Logs returns a task's buffered output lines.
func (c *Client) Logs(name string) ([]string, error) {
	p, err := c.call(Command{Kind: KindLogs, Name: name})
	return p.Logs, err
}

// Check classifies every registered task, reporting whichever ones qualify
// as failing (and, if succeeded is set, the ones that succeeded too).
func (c *Client) Check(succeeded bool) (CheckSummary, error) {
	p, err := c.call(Command{Kind: KindCheck, Check: &CheckCommand{Succeeded: succeeded}})
	if p.Check == nil {
		return CheckSummary{}, err
	}
	return *p.Check, err
}
