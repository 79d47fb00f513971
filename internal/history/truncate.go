package history

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// argMarker is appended to truncated tool-call arguments.
	argMarker = "... [truncated]"
	// contentMarkerPrefix starts the marker appended to truncated text and
	// tool output; the original length follows.
	contentMarkerPrefix = "\n\n... [truncated: original length "
	// SupersededPlaceholder replaces tool output that is no longer relevant.
	SupersededPlaceholder = "[superseded tool output removed]"
)

func charCount(s string) int {
	return utf8.RuneCountInString(s)
}

func prefixChars(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// truncateContent shortens text to limit characters and records the
// original length. Text that already carries the marker keeps it; only the
// body in front of it is shortened further when limit is smaller.
func truncateContent(s string, limit int) (string, bool) {
	if s == SupersededPlaceholder {
		return s, false
	}
	if idx := strings.Index(s, contentMarkerPrefix); idx >= 0 {
		body, marker := s[:idx], s[idx:]
		if charCount(body) <= limit {
			return s, false
		}
		return prefixChars(body, limit) + marker, true
	}
	n := charCount(s)
	if n <= limit {
		return s, false
	}
	return prefixChars(s, limit) + fmt.Sprintf("%s%d chars]", contentMarkerPrefix, n), true
}

// truncateArg shortens an argument value and appends the short marker.
func truncateArg(s string, limit int) (string, bool) {
	body := strings.TrimSuffix(s, argMarker)
	if charCount(body) <= limit {
		return s, false
	}
	return prefixChars(body, limit) + argMarker, true
}

// Footprint is the total character size of the log as sent to the model:
// all text content plus serialized tool-call arguments.
func Footprint(msgs []Message) int {
	total := 0
	for _, m := range msgs {
		switch msg := m.(type) {
		case *Seed:
			total += charCount(msg.Content)
		case *AssistantText:
			total += charCount(msg.Content)
		case *ToolResult:
			total += charCount(msg.Content)
		case *AssistantToolCall:
			for _, c := range msg.Calls {
				total += c.Args.Footprint()
			}
		}
	}
	return total
}
