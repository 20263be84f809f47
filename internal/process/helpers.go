package process

import (
	"bufio"
	"io"
	"os"
)

// envBase returns the current process environment as a starting point for
// a child's environment before merging request-supplied overrides.
func envBase() []string {
	return append([]string(nil), os.Environ()...)
}

// newLineReader wraps r in a bufio.Scanner and returns a closure yielding
// one line per call; ok is false once the reader is exhausted.
func newLineReader(r io.Reader) func() (string, bool) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return func() (string, bool) {
		if scanner.Scan() {
			return scanner.Text(), true
		}
		return "", false
	}
}
