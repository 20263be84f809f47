package pathutil

import "testing"

// Vectors ported from the original Rust implementation's
// normalize_path/validate_path unit tests.
func TestNormalizePath(t *testing.T) {
	cases := []struct{ in, want string }{
		{"a/b/c", "a/b/c"},
		{"a/./b", "a/b"},
		{"a/../b", "b"},
		{"a/b/../../c", "c"},
		{"/", "/"},
		{"/a/b", "/a/b"},
		{"/a/./b", "/a/b"},
		{"/a/../b", "/b"},
		{".", ""},
		{"..", ""},
		{"../a", "a"},
		{"/..", "/"},
		{"/../a", "/a"},
		{"a/./b/../c/./d", "a/c/d"},
		{"/a/b/c/../../d", "/a/d"},
	}
	for _, c := range cases {
		if got := normalizePath(c.in); got != c.want {
			t.Errorf("normalizePath(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestValidatePath(t *testing.T) {
	base := "/home/devbox/project"

	if got := ValidatePath(base, "/etc/passwd"); got != "/etc/passwd" {
		t.Errorf("absolute passthrough: got %q", got)
	}
	if got := ValidatePath(base, "src/main.go"); got != "/home/devbox/project/src/main.go" {
		t.Errorf("relative join: got %q", got)
	}
	if got := ValidatePath(base, "src/../lib.go"); got != "/home/devbox/project/lib.go" {
		t.Errorf("relative traversal: got %q", got)
	}
	// Three levels of ".." fully unwind the three-segment base, matching
	// normalizePath's pop-per-ParentDir semantics exactly.
	if got := ValidatePath(base, "../../../etc/passwd"); got != "/etc/passwd" {
		t.Errorf("relative traversal escaping workspace: got %q", got)
	}
	if got := ValidatePath(base, "."); got != base {
		t.Errorf("dot: got %q", got)
	}
}
