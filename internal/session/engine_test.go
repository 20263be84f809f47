package session

import (
	"strings"
	"testing"
	"time"
)

func TestCreateExecCd(t *testing.T) {
	e := NewEngine(NewRegistry(), "/tmp")
	rec, err := e.Create(CreateRequest{Shell: "/bin/sh"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if rec.currentStatus() != StatusActive {
		t.Fatalf("status = %v, want active", rec.currentStatus())
	}

	if _, err := e.Exec(rec.ID, "pwd"); err != nil {
		t.Fatalf("Exec error: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	lines := rec.Ring.All()
	found := false
	for _, l := range lines {
		if l == "[exec] pwd" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected [exec] pwd line in ring, got %v", lines)
	}

	view, err := e.Cd(rec.ID, "sub")
	if err != nil {
		t.Fatalf("Cd error: %v", err)
	}
	if !strings.HasSuffix(view.Cwd, "/tmp/sub") {
		t.Errorf("cwd = %q, want suffix /tmp/sub", view.Cwd)
	}

	if err := e.Terminate(rec.ID); err != nil {
		t.Fatalf("Terminate error: %v", err)
	}
	if rec.currentStatus() != StatusTerminated {
		t.Errorf("status after terminate = %v, want terminated", rec.currentStatus())
	}
}

func TestCdNotFound(t *testing.T) {
	e := NewEngine(NewRegistry(), "/tmp")
	if _, err := e.Cd("missing", "x"); err == nil {
		t.Fatal("expected not-found error")
	}
}
