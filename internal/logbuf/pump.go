package logbuf

import (
	"bufio"
	"io"
	"sync"
)

// Pump reads r line-by-line and appends each complete line (including the
// trailing fragment at EOF, if any) to ring tagged with prefix, publishing
// the same raw string to broadcaster. It returns once r is exhausted or
// errors. Used identically by the process engine and the session engine
// (SPEC_FULL.md §4.2 "Log pumps are identical to §4.1").
func Pump(r io.Reader, prefix string, ring *Ring, broadcaster *Broadcaster, wg *sync.WaitGroup) {
	if wg != nil {
		defer wg.Done()
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := prefix + " " + scanner.Text()
		ring.Append(line)
		broadcaster.Publish(line)
	}
}
