package session

import (
	"os/exec"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/devbox-run/agent/internal/apierr"
	"github.com/devbox-run/agent/internal/idgen"
	"github.com/devbox-run/agent/internal/logbuf"
	"github.com/devbox-run/agent/internal/pathutil"
)

// postTerminalRetention is how long a terminated session stays in the
// registry before the waiter removes it.
const postTerminalRetention = 30 * time.Minute

const defaultShell = "/bin/bash"

// Engine runs session create/list/get/env-update/exec/cd/terminate/logs
// over a Registry, grounded on original_source/handlers/session.rs.
type Engine struct {
	Registry      *Registry
	WorkspaceRoot string
}

// NewEngine returns an engine over reg rooted at workspaceRoot.
func NewEngine(reg *Registry, workspaceRoot string) *Engine {
	return &Engine{Registry: reg, WorkspaceRoot: workspaceRoot}
}

// CreateRequest is the session-create input.
type CreateRequest struct {
	Shell      string
	WorkingDir string
	Env        map[string]string
}

// Create spawns a shell child with stdin/stdout/stderr all piped, stdin
// kept open for the session's lifetime.
func (e *Engine) Create(req CreateRequest) (*Record, error) {
	shell := req.Shell
	if shell == "" {
		shell = defaultShell
	}
	cwd := req.WorkingDir
	if cwd == "" {
		cwd = e.WorkspaceRoot
	} else {
		cwd = pathutil.ValidatePath(e.WorkspaceRoot, cwd)
	}

	cmd := exec.Command(shell)
	cmd.Dir = cwd

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, apierr.OperationError("Failed to create session: "+err.Error(), nil)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, apierr.OperationError("Failed to create session: "+err.Error(), nil)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, apierr.OperationError("Failed to create session: "+err.Error(), nil)
	}

	if err := cmd.Start(); err != nil {
		return nil, apierr.OperationError("Failed to create session: "+err.Error(), nil)
	}

	now := time.Now()
	env := make(map[string]string, len(req.Env))
	for k, v := range req.Env {
		env[k] = v
	}

	rec := &Record{
		ID:          idgen.New(),
		Shell:       shell,
		cmd:         cmd,
		stdin:       stdin,
		cwd:         cwd,
		env:         env,
		status:      StatusActive,
		createdAt:   now,
		lastUsedAt:  now,
		Ring:        logbuf.NewRing(),
		Broadcaster: logbuf.NewBroadcaster(),
	}
	e.Registry.put(rec)

	var pumps sync.WaitGroup
	pumps.Add(2)
	go logbuf.Pump(stdout, "[stdout]", rec.Ring, rec.Broadcaster, &pumps)
	go logbuf.Pump(stderr, "[stderr]", rec.Ring, rec.Broadcaster, &pumps)

	go e.waiter(rec, &pumps)

	return rec, nil
}

func (e *Engine) waiter(rec *Record, pumps *sync.WaitGroup) {
	cmd := rec.takeCmd()
	if cmd == nil {
		return
	}
	_ = cmd.Wait()
	pumps.Wait()

	rec.setTerminated()
	logrus.WithField("sessionId", rec.ID).Info("session terminated")

	time.Sleep(postTerminalRetention)
	e.Registry.Delete(rec.ID)
}

// Get returns the status view for id.
func (e *Engine) Get(id string) (View, error) {
	rec, ok := e.Registry.Get(id)
	if !ok {
		return View{}, apierr.NotFound("session not found")
	}
	return rec.View(), nil
}

// List returns every tracked session's status view.
func (e *Engine) List() []View {
	return e.Registry.List()
}

// EnvUpdate merges vars into the session's environment and writes an
// `export K=V` line to stdin for each pair.
func (e *Engine) EnvUpdate(id string, vars map[string]string) (View, error) {
	rec, ok := e.Registry.Get(id)
	if !ok {
		return View{}, apierr.NotFound("session not found")
	}
	if rec.currentStatus() != StatusActive {
		return View{}, apierr.Conflict("session is not active")
	}

	rec.mu.Lock()
	for k, v := range vars {
		rec.env[k] = v
	}
	stdin := rec.stdin
	rec.mu.Unlock()

	for k, v := range vars {
		if _, err := stdin.Write([]byte("export " + k + "=" + v + "\n")); err != nil {
			return View{}, apierr.Internal("failed to write to session stdin: " + err.Error())
		}
	}
	rec.touch()
	return rec.View(), nil
}

// ExecResult is the fixed stub returned by session exec (SPEC_FULL.md
// §4.2: real output arrives through the log stream, not this response).
type ExecResult struct {
	ExitCode int    `json:"exitCode"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	Duration int    `json:"duration"`
}

// Exec writes command to the session's stdin and logs a synthetic [exec]
// entry. It is fire-and-forget: the stub result exists only for API shape.
func (e *Engine) Exec(id, command string) (ExecResult, error) {
	rec, ok := e.Registry.Get(id)
	if !ok {
		return ExecResult{}, apierr.NotFound("session not found")
	}
	if rec.currentStatus() != StatusActive {
		return ExecResult{}, apierr.NotFound("session not found")
	}

	rec.mu.Lock()
	stdin := rec.stdin
	rec.mu.Unlock()

	if _, err := stdin.Write([]byte(command + "\n")); err != nil {
		return ExecResult{}, apierr.Internal("failed to write to session stdin: " + err.Error())
	}

	line := "[exec] " + command
	rec.Ring.Append(line)
	rec.Broadcaster.Publish(line)
	rec.touch()

	return ExecResult{ExitCode: 0, Stdout: "", Stderr: "", Duration: 0}, nil
}

// Cd resolves path through pathutil.ValidatePath against the session's
// current cwd (a relative path is joined to cwd; an absolute path is only
// normalized and used as given), writes a `cd <resolved>` line to stdin,
// updates cwd, and logs a synthetic [cd] entry.
func (e *Engine) Cd(id, path string) (View, error) {
	rec, ok := e.Registry.Get(id)
	if !ok {
		return View{}, apierr.NotFound("session not found")
	}
	if rec.currentStatus() != StatusActive {
		return View{}, apierr.NotFound("session not found")
	}

	rec.mu.Lock()
	base := rec.cwd
	rec.mu.Unlock()

	resolved := pathutil.ValidatePath(base, path)

	rec.mu.Lock()
	stdin := rec.stdin
	rec.mu.Unlock()

	if _, err := stdin.Write([]byte("cd " + resolved + "\n")); err != nil {
		return View{}, apierr.Internal("failed to write to session stdin: " + err.Error())
	}

	rec.mu.Lock()
	rec.cwd = resolved
	rec.mu.Unlock()

	line := "[cd] " + resolved
	rec.Ring.Append(line)
	rec.Broadcaster.Publish(line)
	rec.touch()

	return rec.View(), nil
}

// Terminate sends SIGKILL and sets status to terminated directly — unlike
// process kill, this is the one place spec.md assigns status-setting
// responsibility outside the waiter.
func (e *Engine) Terminate(id string) error {
	rec, ok := e.Registry.Get(id)
	if !ok {
		return apierr.NotFound("session not found")
	}

	rec.mu.Lock()
	cmd := rec.cmd
	rec.mu.Unlock()
	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}

	rec.setTerminated()
	return nil
}

// Logs returns up to tail lines (0 meaning "all") for id.
func (e *Engine) Logs(id string, tail int) ([]string, View, error) {
	rec, ok := e.Registry.Get(id)
	if !ok {
		return nil, View{}, apierr.NotFound("session not found")
	}
	return rec.Ring.Tail(tail), rec.View(), nil
}

// LogsConsumer returns the record's ring tail plus a live consumer.
func (e *Engine) LogsConsumer(id string, tail int) ([]string, *logbuf.Consumer, error) {
	rec, ok := e.Registry.Get(id)
	if !ok {
		return nil, nil, apierr.NotFound("session not found")
	}
	return rec.Ring.Tail(tail), rec.Broadcaster.Subscribe(), nil
}
