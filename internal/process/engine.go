package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/devbox-run/agent/internal/apierr"
	"github.com/devbox-run/agent/internal/idgen"
	"github.com/devbox-run/agent/internal/logbuf"
	"github.com/devbox-run/agent/internal/portmon"
)

// postTerminalRetention is how long a terminated record stays in the
// registry before the waiter removes it.
const postTerminalRetention = 4 * time.Hour

const defaultSyncTimeout = 30 * time.Second
const defaultStreamTimeout = 300 * time.Second

// safeArgChars is the charset that may pass through shellEscape
// unmodified (SPEC_FULL.md §4.1).
var safeArgChars = regexp.MustCompile(`^[A-Za-z0-9,._+:@/-]+$`)

// shellEscape renders s safe to embed in a shell -c command line.
func shellEscape(s string) string {
	if s == "" {
		return "''"
	}
	if safeArgChars.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// ExecRequest is the common spawn shape for exec/exec-sync/exec-sync-stream.
type ExecRequest struct {
	Command string
	Args    []string
	Cwd     string
	Env     map[string]string
	Shell   string
	Timeout int // seconds; 0 means "use the caller's default"

	// WaitForPorts, RestartOnFailure and MaxRestarts are additive fields
	// beyond spec.md's required exec surface (SPEC_FULL.md §4.1).
	WaitForPorts     []int
	RestartOnFailure bool
	MaxRestarts      int
}

// buildCmd constructs the *exec.Cmd for req following the spawn
// construction rules: shell -c "<command> <escaped args>" if shell is set;
// direct argv if args is set; whitespace split as a last resort.
func buildCmd(ctx context.Context, req ExecRequest) (*exec.Cmd, error) {
	var cmd *exec.Cmd

	switch {
	case req.Shell != "":
		parts := []string{req.Command}
		for _, a := range req.Args {
			parts = append(parts, shellEscape(a))
		}
		cmd = exec.CommandContext(ctx, req.Shell, "-c", strings.Join(parts, " "))
	case len(req.Args) > 0:
		cmd = exec.CommandContext(ctx, req.Command, req.Args...)
	default:
		fields := strings.Fields(req.Command)
		if len(fields) == 0 {
			return nil, errors.New("empty command")
		}
		cmd = exec.CommandContext(ctx, fields[0], fields[1:]...)
	}

	if req.Cwd != "" {
		cmd.Dir = req.Cwd
	}
	if len(req.Env) > 0 {
		cmd.Env = mergeEnv(req.Env)
	}
	return cmd, nil
}

func mergeEnv(extra map[string]string) []string {
	env := envBase()
	for k, v := range extra {
		env = append(env, k+"="+v)
	}
	return env
}

// Engine runs process.exec/exec-sync/exec-sync-stream/list/status/kill/logs
// over a Registry, grounded on original_source/handlers/process.rs.
type Engine struct {
	Registry *Registry
	Ports    *portmon.Monitor
}

// NewEngine returns an engine over reg. ports may be nil if port-wait
// support is not wired (waitForPorts is then ignored).
func NewEngine(reg *Registry, ports *portmon.Monitor) *Engine {
	return &Engine{Registry: reg, Ports: ports}
}

// Exec starts a process and returns immediately with status "running".
func (e *Engine) Exec(req ExecRequest) (*Record, error) {
	if req.MaxRestarts > 25 {
		return nil, apierr.Validation("maxRestarts cannot exceed 25")
	}

	cmd, err := buildCmd(context.Background(), req)
	if err != nil {
		return nil, apierr.OperationError("Failed to spawn process: "+err.Error(), nil)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, apierr.OperationError("Failed to spawn process: "+err.Error(), nil)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, apierr.OperationError("Failed to spawn process: "+err.Error(), nil)
	}

	if err := cmd.Start(); err != nil {
		return nil, apierr.OperationError("Failed to spawn process: "+err.Error(), nil)
	}

	rec := &Record{
		ID:          idgen.New(),
		Command:     req.Command,
		cmd:         cmd,
		pid:         cmd.Process.Pid,
		status:      StatusRunning,
		start:       time.Now(),
		Ring:        logbuf.NewRing(),
		Broadcaster: logbuf.NewBroadcaster(),
		timeout:     time.Duration(req.Timeout) * time.Second,
	}
	e.Registry.put(rec)

	var pumps sync.WaitGroup
	pumps.Add(2)
	go logbuf.Pump(stdout, "[stdout]", rec.Ring, rec.Broadcaster, &pumps)
	go logbuf.Pump(stderr, "[stderr]", rec.Ring, rec.Broadcaster, &pumps)

	if len(req.WaitForPorts) > 0 && e.Ports != nil {
		e.registerPortWait(rec, req.WaitForPorts)
	}

	go e.waiter(rec, &pumps)

	return rec, nil
}

func (e *Engine) registerPortWait(rec *Record, wantPorts []int) {
	want := make(map[int]bool, len(wantPorts))
	for _, p := range wantPorts {
		want[p] = true
	}
	var mu sync.Mutex
	seen := make(map[int]bool)
	e.Ports.RegisterPortOpenCallback(rec.PID(), func(pid int, port int) {
		if !want[port] {
			return
		}
		mu.Lock()
		seen[port] = true
		done := len(seen) == len(want)
		mu.Unlock()
		if done {
			e.Ports.UnregisterPortOpenCallback(pid)
		}
	})
}

// waiter is the single background task that owns the child handle: it
// awaits exit (enforcing the timeout, if any), writes the terminal status,
// then sleeps out the retention window and deletes the record.
func (e *Engine) waiter(rec *Record, pumps *sync.WaitGroup) {
	cmd := rec.takeCmd()
	if cmd == nil {
		return // already taken; should not happen for a freshly spawned record
	}

	waitErr := waitWithTimeout(cmd, rec.timeout)
	pumps.Wait()

	status, exitCode := classifyExit(waitErr)
	rec.setTerminal(status, exitCode)

	logrus.WithFields(logrus.Fields{
		"processId": rec.ID,
		"status":    status,
		"exitCode":  exitCode,
	}).Info("process terminated")

	time.Sleep(postTerminalRetention)
	e.Registry.Delete(rec.ID)
}

// waitWithTimeout awaits cmd's exit. If timeout > 0 and the deadline
// passes first, it issues a best-effort kill and still awaits the final
// exit so the child is fully reaped.
func waitWithTimeout(cmd *exec.Cmd, timeout time.Duration) error {
	if timeout <= 0 {
		return cmd.Wait()
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		_ = cmd.Process.Kill()
		return <-done
	}
}

// classifyExit maps a Wait() error to the terminal status + exit code
// rules in SPEC_FULL.md §4.1.
func classifyExit(waitErr error) (Status, int) {
	if waitErr == nil {
		return StatusCompleted, 0
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			sig := ws.Signal()
			return StatusKilled, 128 + int(sig)
		}
		return StatusFailed, exitErr.ExitCode()
	}
	return StatusFailed, -1
}

// Kill signals the process. Per spec.md, kill does not short-circuit
// wait(): it only sends the signal and returns; the waiter goroutine
// performs every status transition. kill() never writes status itself.
func (e *Engine) Kill(id, signalName string) error {
	rec, ok := e.Registry.Get(id)
	if !ok {
		return apierr.NotFound("process not found")
	}
	if rec.currentStatus() != StatusRunning {
		return apierr.Conflict("process is not running")
	}

	// The waiter has already taken rec.cmd, so signal by the recorded pid.
	pid := rec.PID()
	if pid <= 0 {
		return apierr.Conflict("process is not running")
	}

	sig := signalFor(signalName)
	if err := syscall.Kill(pid, sig); err != nil {
		return apierr.Internal("failed to signal process: " + err.Error())
	}
	return nil
}

func signalFor(name string) syscall.Signal {
	switch name {
	case "SIGTERM":
		return syscall.SIGTERM
	case "SIGINT":
		return syscall.SIGINT
	case "SIGHUP":
		return syscall.SIGHUP
	default:
		return syscall.SIGKILL
	}
}

// Status returns the status view for id.
func (e *Engine) Status(id string) (View, error) {
	rec, ok := e.Registry.Get(id)
	if !ok {
		return View{}, apierr.NotFound("process not found")
	}
	return rec.View(), nil
}

// List returns every tracked record's status view.
func (e *Engine) List() []View {
	return e.Registry.List()
}

// Logs returns up to tail lines (0 meaning "all") for id plus its current
// status view.
func (e *Engine) Logs(id string, tail int) ([]string, View, error) {
	rec, ok := e.Registry.Get(id)
	if !ok {
		return nil, View{}, apierr.NotFound("process not found")
	}
	return rec.Ring.Tail(tail), rec.View(), nil
}

// LogsConsumer returns the record's ring tail plus a live consumer for the
// logs SSE endpoint.
func (e *Engine) LogsConsumer(id string, tail int) ([]string, *logbuf.Consumer, error) {
	rec, ok := e.Registry.Get(id)
	if !ok {
		return nil, nil, apierr.NotFound("process not found")
	}
	return rec.Ring.Tail(tail), rec.Broadcaster.Subscribe(), nil
}

// ExecSyncResult is the synchronous exec-sync response.
type ExecSyncResult struct {
	Stdout    string `json:"stdout"`
	Stderr    string `json:"stderr"`
	ExitCode  int    `json:"exitCode"`
	DurationMs int64  `json:"durationMs"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// ExecSync spawns req, collects the entire stdout/stderr, and returns once
// the child exits (or the timeout elapses).
func (e *Engine) ExecSync(req ExecRequest) (*ExecSyncResult, error) {
	timeout := time.Duration(req.Timeout) * time.Second
	if timeout <= 0 {
		timeout = defaultSyncTimeout
	}

	start := time.Now()
	cmd, err := buildCmd(context.Background(), req)
	if err != nil {
		return nil, apierr.OperationError(err.Error(), nil)
	}

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, apierr.OperationError("", map[string]interface{}{
				"stdout":     "",
				"stderr":     fmt.Sprintf("exec: %q: executable file not found in $PATH", req.Command),
				"exitCode":   127,
				"durationMs": time.Since(start).Milliseconds(),
			})
		}
		return nil, apierr.OperationError("Failed to spawn process: "+err.Error(), nil)
	}

	waitErr := waitWithTimeout(cmd, timeout)
	end := time.Now()

	if waitErr != nil && isTimeoutKill(cmd, waitErr, timeout, start) {
		return nil, apierr.Internal("process timed out")
	}

	status, exitCode := classifyExit(waitErr)
	_ = status

	return &ExecSyncResult{
		Stdout:     stdoutBuf.String(),
		Stderr:     stderrBuf.String(),
		ExitCode:   exitCode,
		DurationMs: end.Sub(start).Milliseconds(),
		StartTime:  start.UTC().Format(time.RFC3339),
		EndTime:    end.UTC().Format(time.RFC3339),
	}, nil
}

func isTimeoutKill(cmd *exec.Cmd, waitErr error, timeout time.Duration, start time.Time) bool {
	if timeout <= 0 {
		return false
	}
	return time.Since(start) >= timeout
}

// StreamEvent is one exec-sync-stream SSE event (SPEC_FULL.md §6.5).
type StreamEvent struct {
	Event string
	Data  map[string]interface{}
}

// ExecSyncStream spawns req and streams start/stdout/stderr/complete|error
// events on the returned channel, which is closed when the process has
// fully terminated (or the timeout fires).
func (e *Engine) ExecSyncStream(req ExecRequest) (<-chan StreamEvent, error) {
	timeout := time.Duration(req.Timeout) * time.Second
	if timeout <= 0 {
		timeout = defaultStreamTimeout
	}

	cmd, err := buildCmd(context.Background(), req)
	if err != nil {
		return nil, apierr.OperationError(err.Error(), nil)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, apierr.OperationError(err.Error(), nil)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, apierr.OperationError(err.Error(), nil)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, apierr.OperationError("Failed to spawn process: "+err.Error(), nil)
	}

	events := make(chan StreamEvent, 16)
	events <- StreamEvent{Event: "start", Data: map[string]interface{}{
		"timestamp": start.UTC().Format(time.RFC3339),
	}}

	var pumps sync.WaitGroup
	pumps.Add(2)
	go streamPump(stdout, "stdout", events, &pumps)
	go streamPump(stderr, "stderr", events, &pumps)

	go func() {
		waitErr := waitWithTimeout(cmd, timeout)
		pumps.Wait()
		end := time.Now()

		if timeout > 0 && time.Since(start) >= timeout {
			events <- StreamEvent{Event: "error", Data: map[string]interface{}{
				"error":      "Execution timeout",
				"durationMs": end.Sub(start).Milliseconds(),
				"timestamp":  end.UTC().Format(time.RFC3339),
			}}
			close(events)
			return
		}

		_, exitCode := classifyExit(waitErr)
		events <- StreamEvent{Event: "complete", Data: map[string]interface{}{
			"exitCode":   exitCode,
			"duration":   end.Sub(start).Milliseconds(),
			"timestamp":  end.UTC().Format(time.RFC3339),
		}}
		close(events)
	}()

	return events, nil
}

func streamPump(r io.Reader, kind string, events chan<- StreamEvent, wg *sync.WaitGroup) {
	defer wg.Done()
	lineReader := newLineReader(r)
	for {
		line, ok := lineReader()
		if !ok {
			return
		}
		events <- StreamEvent{Event: kind, Data: map[string]interface{}{
			"output":    line,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}}
	}
}
