package logbuf

import "strings"

// Level classifies a parsed log line.
type Level string

const (
	LevelStdout  Level = "stdout"
	LevelStderr  Level = "stderr"
	LevelSystem  Level = "system"
	LevelUnknown Level = "unknown"
)

// Entry is a parsed ring line: the classification derived from its prefix
// plus the human-facing content. The ring itself only ever stores the raw
// "<prefix> <payload>" string; parsing happens on read.
type Entry struct {
	Level   Level
	Content string
}

// Parse derives (level, content) from a raw ring line per SPEC_FULL.md
// §4.4's prefix table.
func Parse(raw string) Entry {
	switch {
	case strings.HasPrefix(raw, "[stdout] "):
		return Entry{Level: LevelStdout, Content: raw[len("[stdout] "):]}
	case strings.HasPrefix(raw, "[stderr] "):
		return Entry{Level: LevelStderr, Content: raw[len("[stderr] "):]}
	case strings.HasPrefix(raw, "[system] "):
		return Entry{Level: LevelSystem, Content: raw[len("[system] "):]}
	case strings.HasPrefix(raw, "[exec] "):
		return Entry{Level: LevelSystem, Content: "Executing: " + raw[len("[exec] "):]}
	case strings.HasPrefix(raw, "[cd] "):
		return Entry{Level: LevelSystem, Content: "Changed directory to: " + raw[len("[cd] "):]}
	default:
		return Entry{Level: LevelUnknown, Content: raw}
	}
}
