package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// fakeRunner returns canned results per command and records every command
// it is asked to run.
type fakeRunner struct {
	results map[string]CommandResult
	errs    map[string]error
	calls   []string
}

func (f *fakeRunner) Run(ctx context.Context, command string) (CommandResult, error) {
	f.calls = append(f.calls, command)
	if err, ok := f.errs[command]; ok {
		return CommandResult{}, err
	}
	if result, ok := f.results[command]; ok {
		return result, nil
	}
	return CommandResult{}, fmt.Errorf("unexpected command: %s", command)
}

const directoryJSON = `{
	"cert_path": "/home/ubuntu/certs",
	"servers": [
		{"name": "db1", "command": "ssh -i ${CERT_PATH}/db1.pem ubuntu@10.0.0.5"},
		{"name": "web1", "command": "ssh -i ${CERT_PATH}/web1.pem ubuntu@10.0.0.6"}
	]
}`

func newTestExecutor(runner *fakeRunner) *Executor {
	return NewExecutorWithRunner(runner, "~/servers.json")
}

func TestRunOnJumpHost(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]CommandResult{
			"uptime": {Stdout: "up 12 days", ExitStatus: 0},
		},
	}
	exec := newTestExecutor(runner)

	result, err := exec.RunOnJumpHost(context.Background(), "uptime")
	if err != nil {
		t.Fatalf("RunOnJumpHost failed: %v", err)
	}
	if result.Stdout != "up 12 days" {
		t.Errorf("stdout: got %q, want %q", result.Stdout, "up 12 days")
	}
	if result.Server != "" {
		t.Errorf("server should be empty for direct runs, got %q", result.Server)
	}
}

func TestRunOnNamedServer(t *testing.T) {
	composed := `ssh -i /home/ubuntu/certs/db1.pem ubuntu@10.0.0.5 "uptime"`
	runner := &fakeRunner{
		results: map[string]CommandResult{
			"cat ~/servers.json": {Stdout: directoryJSON},
			composed:             {Stdout: "up 3 days", Stderr: "", ExitStatus: 0},
		},
	}
	exec := newTestExecutor(runner)

	result, err := exec.RunOnNamedServer(context.Background(), "db1", "uptime")
	if err != nil {
		t.Fatalf("RunOnNamedServer failed: %v", err)
	}

	if result.Server != "db1" {
		t.Errorf("server: got %q, want %q", result.Server, "db1")
	}
	if result.Stdout != "up 3 days" {
		t.Errorf("stdout: got %q, want %q", result.Stdout, "up 3 days")
	}
	if len(runner.calls) != 2 {
		t.Fatalf("calls: got %d, want 2 (directory read + command)", len(runner.calls))
	}
	if runner.calls[1] != composed {
		t.Errorf("composed command: got %q, want %q", runner.calls[1], composed)
	}
}

func TestRunOnNamedServerNonZeroExit(t *testing.T) {
	composed := `ssh -i /home/ubuntu/certs/web1.pem ubuntu@10.0.0.6 "systemctl status nginx"`
	runner := &fakeRunner{
		results: map[string]CommandResult{
			"cat ~/servers.json": {Stdout: directoryJSON},
			composed:             {Stdout: "", Stderr: "inactive", ExitStatus: 3},
		},
	}
	exec := newTestExecutor(runner)

	// A failing remote command is a normal result, not an error.
	result, err := exec.RunOnNamedServer(context.Background(), "web1", "systemctl status nginx")
	if err != nil {
		t.Fatalf("RunOnNamedServer failed: %v", err)
	}
	if result.ExitStatus != 3 {
		t.Errorf("exit status: got %d, want 3", result.ExitStatus)
	}
	if result.Stderr != "inactive" {
		t.Errorf("stderr: got %q, want %q", result.Stderr, "inactive")
	}
}

func TestRunOnNamedServerNotFound(t *testing.T) {
	tests := []struct {
		name       string
		serverName string
	}{
		{"unknown name", "db9"},
		{"case mismatch", "DB1"},
		{"trailing space", "db1 "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{
				results: map[string]CommandResult{
					"cat ~/servers.json": {Stdout: directoryJSON},
				},
			}
			exec := newTestExecutor(runner)

			_, err := exec.RunOnNamedServer(context.Background(), tt.serverName, "uptime")

			var notFound *ServerNotFoundError
			if !errors.As(err, &notFound) {
				t.Fatalf("got %v, want ServerNotFoundError", err)
			}
			if notFound.Name != tt.serverName {
				t.Errorf("name: got %q, want %q", notFound.Name, tt.serverName)
			}
			if len(notFound.Available) != 2 {
				t.Errorf("available: got %v, want 2 entries", notFound.Available)
			}

			// The failed lookup must not run anything beyond the
			// directory read. No fallback host, ever.
			if len(runner.calls) != 1 {
				t.Fatalf("calls after failed lookup: got %v, want only the directory read", runner.calls)
			}
		})
	}
}

func TestRunOnNamedServerMalformedDirectory(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]CommandResult{
			"cat ~/servers.json": {Stdout: "not json at all"},
		},
	}
	exec := newTestExecutor(runner)

	_, err := exec.RunOnNamedServer(context.Background(), "db1", "uptime")

	var parseErr *DirectoryParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("got %v, want DirectoryParseError", err)
	}
	if len(runner.calls) != 1 {
		t.Errorf("calls: got %d, want 1", len(runner.calls))
	}
}

func TestRunOnNamedServerDirectoryReadFailure(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]CommandResult{
			"cat ~/servers.json": {Stderr: "cat: /home/admin/servers.json: No such file or directory", ExitStatus: 1},
		},
	}
	exec := newTestExecutor(runner)

	_, err := exec.RunOnNamedServer(context.Background(), "db1", "uptime")
	if err == nil {
		t.Fatal("expected error for unreadable directory")
	}
	if !strings.Contains(err.Error(), "server directory") {
		t.Errorf("error should mention the directory, got: %v", err)
	}
}

func TestRunOnNamedServerFreshDirectoryRead(t *testing.T) {
	composed := `ssh -i /home/ubuntu/certs/db1.pem ubuntu@10.0.0.5 "true"`
	runner := &fakeRunner{
		results: map[string]CommandResult{
			"cat ~/servers.json": {Stdout: directoryJSON},
			composed:             {ExitStatus: 0},
		},
	}
	exec := newTestExecutor(runner)

	for i := 0; i < 2; i++ {
		if _, err := exec.RunOnNamedServer(context.Background(), "db1", "true"); err != nil {
			t.Fatalf("run %d failed: %v", i, err)
		}
	}

	reads := 0
	for _, call := range runner.calls {
		if call == "cat ~/servers.json" {
			reads++
		}
	}
	// The directory is never cached: one read per call.
	if reads != 2 {
		t.Errorf("directory reads: got %d, want 2", reads)
	}
}

func TestCertPathSubstitution(t *testing.T) {
	dirJSON := `{"cert_path": "/opt/keys", "servers": [{"name": "app", "command": "ssh -i ${CERT_PATH}/app.pem admin@app.internal"}]}`
	composed := `ssh -i /opt/keys/app.pem admin@app.internal "hostname"`

	runner := &fakeRunner{
		results: map[string]CommandResult{
			"cat ~/servers.json": {Stdout: dirJSON},
			composed:             {Stdout: "app.internal"},
		},
	}
	exec := newTestExecutor(runner)

	result, err := exec.RunOnNamedServer(context.Background(), "app", "hostname")
	if err != nil {
		t.Fatalf("RunOnNamedServer failed: %v", err)
	}
	if result.Stdout != "app.internal" {
		t.Errorf("stdout: got %q, want %q", result.Stdout, "app.internal")
	}
}

func TestRunBoundedTimesOut(t *testing.T) {
	block := make(chan struct{})
	aborted := false

	start := time.Now()
	err := runBounded(context.Background(), 20*time.Millisecond,
		func() error {
			<-block
			return nil
		},
		func() {
			aborted = true
			close(block)
		},
	)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err: got %v, want deadline exceeded", err)
	}
	if !aborted {
		t.Error("abort was not invoked for the stuck command")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("wait took %s, should end at the timeout", elapsed)
	}
}

func TestRunBoundedPassesThroughResult(t *testing.T) {
	wantErr := fmt.Errorf("remote failed")

	err := runBounded(context.Background(), time.Second,
		func() error { return wantErr },
		func() { t.Error("abort invoked for a finished command") },
	)

	if !errors.Is(err, wantErr) {
		t.Errorf("err: got %v, want %v", err, wantErr)
	}
}

func TestRunBoundedHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	block := make(chan struct{})
	err := runBounded(ctx, time.Minute,
		func() error {
			<-block
			return nil
		},
		func() { close(block) },
	)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("err: got %v, want canceled", err)
	}
}
