// Package paging streams a task's incrementally-growing log output into an
// external pager subprocess, for `bjobs logs --follow`.
//
// Grounded on original_source/src/utils/paging.rs's run_pager: spawn the
// pager with a piped stdin, and on every poll diff the freshly-fetched text
// against what was already written, feeding the pager only the new suffix
// rather than rewriting everything each time.
package paging

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// pollInterval is how often Follow re-fetches the log text while the pager
// is still running.
const pollInterval = 200 * time.Millisecond

// Run spawns pager (passing "-R -F" when it is "less" and lessOptions is
// true), writes text to it, closes its stdin, and waits for the pager
// process to exit. It returns an error if the pager can't be started or
// exits non-zero.
func Run(text string, pager string, lessOptions bool) error {
	cmd := exec.Command(pager)
	if pager == "less" && lessOptions {
		cmd.Args = append(cmd.Args, "-R", "-F")
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("opening pager stdin: %w", err)
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting pager %q: %w", pager, err)
	}

	if _, err := io.WriteString(stdin, text); err != nil && err != io.ErrClosedPipe {
		return fmt.Errorf("writing to pager stdin: %w", err)
	}
	// Signal end of input so the pager can exit once it has shown the text.
	stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("pager %q exited with an error: %w", pager, err)
	}
	return nil
}

// Follow behaves like Run but re-invokes fetch on pollInterval, writing only
// the incremental suffix each time the text grows, exactly mirroring
// run_pager's diff-and-write loop. It returns once the pager process exits.
func Follow(fetch func() (string, error), pager string, lessOptions bool) error {
	cmd := exec.Command(pager)
	if pager == "less" && lessOptions {
		cmd.Args = append(cmd.Args, "-R", "-F")
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("opening pager stdin: %w", err)
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting pager %q: %w", pager, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	prev := ""
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			if err != nil {
				return fmt.Errorf("pager %q exited with an error: %w", pager, err)
			}
			return nil

		case <-ticker.C:
			next, err := fetch()
			if err != nil {
				return fmt.Errorf("fetching logs: %w", err)
			}
			if next == prev {
				continue
			}
			suffix, ok := strings.CutPrefix(next, prev)
			if !ok {
				// The log was reset from under us (e.g. a restarted task);
				// resync by writing the whole new text.
				suffix = next
			}
			if _, err := io.WriteString(stdin, suffix); err != nil {
				if err == io.ErrClosedPipe {
					continue
				}
				return fmt.Errorf("writing to pager stdin: %w", err)
			}
			prev = next
		}
	}
}

// DefaultPager resolves the pager to use: an explicit flag value, else
// $PAGER, else "less".
func DefaultPager(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("PAGER"); env != "" {
		return env
	}
	return "less"
}
