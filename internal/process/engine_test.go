package process

import "testing"

func TestShellEscape(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", "''"},
		{"hello", "hello"},
		{"a/b-c.d_e:f@g,h", "a/b-c.d_e:f@g,h"},
		{"hello world", `'hello world'`},
		{"it's", `'it'\''s'`},
	}
	for _, c := range cases {
		if got := shellEscape(c.in); got != c.want {
			t.Errorf("shellEscape(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestExecSyncTrue(t *testing.T) {
	e := NewEngine(NewRegistry(), nil)
	res, err := e.ExecSync(ExecRequest{Command: "true"})
	if err != nil {
		t.Fatalf("ExecSync(true) error: %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", res.ExitCode)
	}
}

func TestExecSyncFalse(t *testing.T) {
	e := NewEngine(NewRegistry(), nil)
	res, err := e.ExecSync(ExecRequest{Command: "false"})
	if err != nil {
		t.Fatalf("ExecSync(false) error: %v", err)
	}
	if res.ExitCode != 1 {
		t.Errorf("exit code = %d, want 1", res.ExitCode)
	}
}

func TestKillNonExistent(t *testing.T) {
	e := NewEngine(NewRegistry(), nil)
	if err := e.Kill("missing", "SIGKILL"); err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestKillConflictWhenNotRunning(t *testing.T) {
	reg := NewRegistry()
	e := NewEngine(reg, nil)
	rec, err := e.Exec(ExecRequest{Command: "true"})
	if err != nil {
		t.Fatalf("Exec error: %v", err)
	}
	rec.setTerminal(StatusCompleted, 0)
	if err := e.Kill(rec.ID, "SIGKILL"); err == nil {
		t.Fatal("expected conflict error for non-running process")
	}
}
