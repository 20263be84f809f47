// Package session implements the interactive session engine: a shell
// child whose stdin stays open for the session's lifetime, accepting
// command injections and directory changes (SPEC_FULL.md §4.2), grounded
// on original_source/handlers/session.rs for semantics and on the donor's
// src/handler/terminal/session_manager.go for Go lifecycle idiom.
package session

import (
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/devbox-run/agent/internal/logbuf"
)

// Status is a SessionRecord's lifecycle state.
type Status string

const (
	StatusActive     Status = "active"
	StatusTerminated Status = "terminated"
)

// Record is one tracked interactive shell session.
type Record struct {
	ID    string
	Shell string

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	cwd    string
	env    map[string]string
	status Status

	createdAt  time.Time
	lastUsedAt time.Time

	Ring        *logbuf.Ring
	Broadcaster *logbuf.Broadcaster
}

// View is the JSON-facing snapshot of a SessionRecord.
type View struct {
	SessionID  string            `json:"sessionId"`
	Shell      string            `json:"shell"`
	Cwd        string            `json:"cwd"`
	Env        map[string]string `json:"env"`
	Status     Status            `json:"sessionStatus"`
	CreatedAt  string            `json:"createdAt"`
	LastUsedAt string            `json:"lastUsedAt"`
}

func (r *Record) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	env := make(map[string]string, len(r.env))
	for k, v := range r.env {
		env[k] = v
	}
	return View{
		SessionID:  r.ID,
		Shell:      r.Shell,
		Cwd:        r.cwd,
		Env:        env,
		Status:     r.status,
		CreatedAt:  r.createdAt.UTC().Format(time.RFC3339),
		LastUsedAt: r.lastUsedAt.UTC().Format(time.RFC3339),
	}
}

// LogRing and LogBroadcaster satisfy wsmux.LogTarget.
func (r *Record) LogRing() *logbuf.Ring               { return r.Ring }
func (r *Record) LogBroadcaster() *logbuf.Broadcaster { return r.Broadcaster }

func (r *Record) currentStatus() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Record) touch() {
	r.mu.Lock()
	r.lastUsedAt = time.Now()
	r.mu.Unlock()
}

func (r *Record) takeCmd() *exec.Cmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.cmd
	r.cmd = nil
	return c
}

func (r *Record) setTerminated() {
	r.mu.Lock()
	r.status = StatusTerminated
	r.mu.Unlock()
}
