// Package sandbox provides isolated workspaces for replaying candidate
// code outside the live session, e.g. re-running a submitted test suite
// or generating synthetic sessions.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

const defaultCommandTimeout = 30 * time.Second

// Sandbox is an isolated working directory with command execution.
type Sandbox interface {
	// ID returns the workspace identifier.
	ID() string

	// WriteFile writes a file inside the workspace. Paths are
	// workspace-relative; escaping the workspace is an error.
	WriteFile(path string, content []byte) error

	// ReadFile reads a workspace-relative file.
	ReadFile(path string) ([]byte, error)

	// RunCommand executes a shell command inside the workspace and
	// returns its combined output and exit code.
	RunCommand(ctx context.Context, command string) (Result, error)

	// Destroy removes the workspace.
	Destroy() error
}

// Result captures one command execution.
type Result struct {
	Output   string
	ExitCode int
	Duration time.Duration
}

// Local implements Sandbox as a directory under a parent root.
type Local struct {
	id      string
	dir     string
	timeout time.Duration
}

// NewLocal creates a fresh workspace directory with a ULID identifier.
func NewLocal(root string, opts ...Option) (*Local, error) {
	id := ulid.Make().String()
	dir := filepath.Join(root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	s := &Local{id: id, dir: dir, timeout: defaultCommandTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ID returns the workspace identifier.
func (s *Local) ID() string { return s.id }

// resolve maps a workspace-relative path to an absolute one, rejecting
// traversal outside the workspace.
func (s *Local) resolve(path string) (string, error) {
	abs := filepath.Join(s.dir, filepath.Clean("/"+path))
	if !strings.HasPrefix(abs, s.dir+string(filepath.Separator)) && abs != s.dir {
		return "", ErrPathEscapes
	}
	return abs, nil
}

// WriteFile writes a workspace-relative file, creating parents.
func (s *Local) WriteFile(path string, content []byte) error {
	abs, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	if err := os.WriteFile(abs, content, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// ReadFile reads a workspace-relative file.
func (s *Local) ReadFile(path string) ([]byte, error) {
	abs, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return content, nil
}

// RunCommand executes the command with the workspace as working
// directory. A non-zero exit is reported in the Result, not as an
// error.
func (s *Local) RunCommand(ctx context.Context, command string) (Result, error) {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = s.dir

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	result := Result{
		Output:   out.String(),
		Duration: time.Since(start),
	}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		return result, fmt.Errorf("run command: %w", err)
	}
	if runCtx.Err() != nil {
		return result, fmt.Errorf("command timed out: %w", runCtx.Err())
	}
	return result, nil
}

// Destroy removes the workspace directory.
func (s *Local) Destroy() error {
	return os.RemoveAll(s.dir)
}
