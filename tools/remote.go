package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/crypto/ssh"

	"supportagent/config"
)

// CommandResult is the outcome of one command run on or through the jump
// host. A non-zero exit status is a normal result, not an error: the LLM
// decides what it means.
type CommandResult struct {
	Server     string `json:"server,omitempty"` // resolved directory entry, named-server runs only
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitStatus int    `json:"exit_status"`
}

// Runner runs a single command on the jump host. The SSH implementation
// lives behind this interface so the executor can be tested without a
// network.
type Runner interface {
	Run(ctx context.Context, command string) (CommandResult, error)
}

// SSHRunner executes commands on the jump host over SSH. Each call opens a
// fresh connection: no session state is kept between calls.
type SSHRunner struct {
	cfg config.JumpHostConfig
}

func NewSSHRunner(cfg config.JumpHostConfig) *SSHRunner {
	return &SSHRunner{cfg: cfg}
}

func (r *SSHRunner) Run(ctx context.Context, command string) (CommandResult, error) {
	signer, err := config.LoadJumpHostSigner(r.cfg.KeyFile, r.cfg.KeyPassphrase)
	if err != nil {
		return CommandResult{}, err
	}

	addr := net.JoinHostPort(r.cfg.Host, strconv.Itoa(r.cfg.Port))

	dialer := net.Dialer{Timeout: r.cfg.Timeout()}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return CommandResult{}, fmt.Errorf("failed to connect to jump host %s: %w", addr, err)
	}

	sshConf := &ssh.ClientConfig{
		User:            r.cfg.Username,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         r.cfg.Timeout(),
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, sshConf)
	if err != nil {
		conn.Close()
		return CommandResult{}, fmt.Errorf("ssh handshake with %s failed: %w", addr, err)
	}

	client := ssh.NewClient(sshConn, chans, reqs)
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return CommandResult{}, fmt.Errorf("failed to open ssh session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	// A hung remote command must not stall the caller's turn: the wait is
	// bounded by the configured timeout.
	err = runBounded(ctx, r.cfg.Timeout(),
		func() error { return session.Run(command) },
		func() { client.Close() },
	)

	result := CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *ssh.ExitError
		switch {
		case errors.As(err, &exitErr):
			// The remote command ran and exited non-zero. Normal result.
			result.ExitStatus = exitErr.ExitStatus()
			return result, nil
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			return CommandResult{}, fmt.Errorf("jump host command timed out after %s", r.cfg.Timeout())
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return CommandResult{}, fmt.Errorf("jump host command canceled: %w", err)
		default:
			return CommandResult{}, fmt.Errorf("jump host command failed: %w", err)
		}
	}

	return result, nil
}

// runBounded executes run in a goroutine and waits for it to finish, for the
// context to be canceled, or for timeout to elapse (zero disables the bound).
// When the wait ends early, abort is invoked to unblock run and its eventual
// error is discarded in favor of the context error.
func runBounded(ctx context.Context, timeout time.Duration, run func() error, abort func()) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		done <- run()
	}()

	select {
	case <-ctx.Done():
		abort()
		<-done
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// ServerEntry is one row of the server directory file on the jump host.
type ServerEntry struct {
	Name    string `json:"name"`
	Command string `json:"command"` // connect command, may contain ${CERT_PATH}
}

type serverDirectory struct {
	CertPath string        `json:"cert_path"`
	Servers  []ServerEntry `json:"servers"`
}

// Executor runs commands on the jump host directly or on named servers
// reached through it. The server directory lives on the jump host and is
// read fresh on every named-server call, so operators can edit it live.
type Executor struct {
	runner        Runner
	directoryPath string
}

func NewExecutor(cfg config.JumpHostConfig) *Executor {
	return &Executor{
		runner:        NewSSHRunner(cfg),
		directoryPath: cfg.DirectoryPath,
	}
}

// NewExecutorWithRunner builds an executor on a caller-supplied runner.
func NewExecutorWithRunner(runner Runner, directoryPath string) *Executor {
	return &Executor{runner: runner, directoryPath: directoryPath}
}

// RunOnJumpHost executes a command directly on the jump host.
func (e *Executor) RunOnJumpHost(ctx context.Context, command string) (CommandResult, error) {
	return e.runner.Run(ctx, command)
}

// RunOnNamedServer looks up serverName in the directory file and executes
// the command on that server through the jump host. The lookup is a
// case-sensitive exact match; if the name is absent the command is not run
// anywhere and ServerNotFoundError is returned. The jump host performs the
// second hop, so this process never connects to the target directly.
func (e *Executor) RunOnNamedServer(ctx context.Context, serverName, command string) (CommandResult, error) {
	dir, err := e.readDirectory(ctx)
	if err != nil {
		return CommandResult{}, err
	}

	var entry *ServerEntry
	for i := range dir.Servers {
		if dir.Servers[i].Name == serverName {
			entry = &dir.Servers[i]
			break
		}
	}

	if entry == nil {
		available := make([]string, 0, len(dir.Servers))
		for _, s := range dir.Servers {
			available = append(available, s.Name)
		}
		return CommandResult{}, &ServerNotFoundError{Name: serverName, Available: available}
	}

	connect := strings.ReplaceAll(entry.Command, "${CERT_PATH}", dir.CertPath)
	full := fmt.Sprintf("%s %q", connect, command)

	if config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf("[remote] %s -> %s", entry.Name, full)
	}

	result, err := e.runner.Run(ctx, full)
	if err != nil {
		return CommandResult{}, err
	}

	result.Server = entry.Name
	return result, nil
}

func (e *Executor) readDirectory(ctx context.Context) (*serverDirectory, error) {
	result, err := e.runner.Run(ctx, "cat "+e.directoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read server directory: %w", err)
	}
	if result.ExitStatus != 0 {
		return nil, fmt.Errorf("failed to read server directory %s: %s",
			e.directoryPath, strings.TrimSpace(result.Stderr))
	}

	var dir serverDirectory
	if err := json.Unmarshal([]byte(result.Stdout), &dir); err != nil {
		return nil, &DirectoryParseError{Path: e.directoryPath, Cause: err}
	}

	return &dir, nil
}

// RegisterRemoteTools adds the jump host tools to the registry.
func RegisterRemoteTools(reg *Registry, exec *Executor) error {
	jumpHost := Definition{
		Tool: mcptypes.NewTool("run_on_jump_host",
			mcptypes.WithDescription("Execute a shell command directly on the jump host and return stdout, stderr and the exit status."),
			mcptypes.WithString("command",
				mcptypes.Required(),
				mcptypes.Description("Shell command to execute on the jump host"),
			),
		),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			command, _ := args["command"].(string)
			result, err := exec.RunOnJumpHost(ctx, command)
			if err != nil {
				return "", &ExecutionError{Tool: "run_on_jump_host", Cause: err}
			}
			return marshalResult(result)
		},
	}
	if err := reg.Register(jumpHost); err != nil {
		return err
	}

	namedServer := Definition{
		Tool: mcptypes.NewTool("run_on_named_server",
			mcptypes.WithDescription("Execute a shell command on a remote server by its directory name. The server is looked up in the directory file on the jump host and reached through it. Names are case-sensitive."),
			mcptypes.WithString("server_name",
				mcptypes.Required(),
				mcptypes.Description("Server name as listed in the server directory"),
			),
			mcptypes.WithString("command",
				mcptypes.Required(),
				mcptypes.Description("Shell command to execute on the remote server"),
			),
		),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			serverName, _ := args["server_name"].(string)
			command, _ := args["command"].(string)

			result, err := exec.RunOnNamedServer(ctx, serverName, command)
			if err != nil {
				var notFound *ServerNotFoundError
				var parseErr *DirectoryParseError
				if errors.As(err, &notFound) || errors.As(err, &parseErr) {
					// Usage-level failures go back to the LLM as data.
					return "", err
				}
				return "", &ExecutionError{Tool: "run_on_named_server", Cause: err}
			}
			return marshalResult(result)
		},
	}
	return reg.Register(namedServer)
}

func marshalResult(result CommandResult) (string, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to encode command result: %w", err)
	}
	return string(payload), nil
}
