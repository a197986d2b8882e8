package hooks

import (
	"runtime/debug"
	"strings"

	log "github.com/sirupsen/logrus"
)

type contextHook struct {
}

// NewContextHook returns a hook that tags each entry with the file:line of its caller.
func NewContextHook() contextHook {
	return contextHook{}
}

func (hook contextHook) Levels() []log.Level {
	return log.AllLevels
}

func (hook contextHook) Fire(entry *log.Entry) error {
	if loc := callerLine(string(debug.Stack())); loc != "" {
		entry.Data["file:line"] = loc
	}
	return nil
}

// callerLine picks the first source line below the logrus frames out of a
// debug.Stack dump, trimmed to the path inside this module.
func callerLine(stack string) string {
	lines := strings.Split(stack, "\n")
	for i := 0; i < len(lines); i++ {
		l := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(l, "/") && !strings.Contains(l, ".go:") {
			continue
		}
		if strings.Contains(l, "sirupsen/logrus") ||
			strings.Contains(l, "context_hook.go:") ||
			strings.Contains(l, "runtime/debug") {
			continue
		}
		ctx := strings.Split(l, "batchd/")
		loc := ctx[len(ctx)-1]
		if idx := strings.Index(loc, " +0x"); idx > 0 {
			loc = loc[:idx]
		}
		return loc
	}
	return ""
}
