package tools

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateTool is returned when registering a tool under a name
	// that is already taken.
	ErrDuplicateTool = errors.New("tool already registered")

	// ErrToolNotFound is returned when invoking a tool name the registry
	// does not know.
	ErrToolNotFound = errors.New("tool not found")
)

// ArgumentError reports arguments that failed schema validation. The handler
// never runs when validation fails.
type ArgumentError struct {
	Tool   string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments for tool %q: %s", e.Tool, e.Reason)
}

// ExecutionError reports an infrastructure failure inside a handler (SSH
// connection refused, database unreachable). It is distinct from a tool
// returning an unsuccessful result, which is normal data.
type ExecutionError struct {
	Tool  string
	Cause error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.Tool, e.Cause)
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// ServerNotFoundError reports a server name absent from the directory file.
// The command is never run anywhere when the lookup fails: no fallback to
// the jump host, no fallback to any other entry.
type ServerNotFoundError struct {
	Name      string
	Available []string
}

func (e *ServerNotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("server %q not found (directory is empty)", e.Name)
	}
	return fmt.Sprintf("server %q not found, available servers: %s",
		e.Name, strings.Join(e.Available, ", "))
}

// DirectoryParseError reports a malformed server directory file.
type DirectoryParseError struct {
	Path  string
	Cause error
}

func (e *DirectoryParseError) Error() string {
	return fmt.Sprintf("failed to parse server directory %s: %v", e.Path, e.Cause)
}

func (e *DirectoryParseError) Unwrap() error {
	return e.Cause
}
