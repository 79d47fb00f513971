package history

import (
	"strings"
	"testing"
)

// scenarioA is a 17-message log whose index 2 is a 10,000-char tool result.
func scenarioA() *History {
	h := New("resolve issue #7: " + strings.Repeat("context ", 20))
	h.Append(
		calls(call("c1", "read_file", map[string]any{"path": "main.go", "branch": "main"})),
		result("c1", "read_file", strings.Repeat("x", 10000)),
	)
	for i := 3; i < 15; i++ {
		h.Append(&AssistantText{Content: "step"})
	}
	h.Append(
		calls(call("c2", "read_file", map[string]any{"path": "big.go", "content": strings.Repeat("y", 900)})),
		result("c2", "read_file", strings.Repeat("z", 3000)),
	)
	return h
}

func TestCompact_ScenarioA(t *testing.T) {
	h := scenarioA()
	if h.Len() != 17 {
		t.Fatalf("scenario length = %d, want 17", h.Len())
	}
	before := snapshot(h)

	c := &Compactor{Threshold: 1000, PreserveRecent: 2, Cap: 500}
	res := c.Compact(h)
	if !res.Compacted {
		t.Fatalf("expected compaction, got %+v", res)
	}

	got := h.At(2).(*ToolResult).Content
	if n := charCount(got); n > 600 {
		t.Fatalf("message 2 length = %d, want <= 600", n)
	}
	if !strings.Contains(got, "original length 10000 chars") {
		t.Fatalf("message 2 should record original length, got suffix %q", got[len(got)-60:])
	}

	after := snapshot(h)
	if after[0] != before[0] {
		t.Fatal("seed must not change")
	}
	for i := 15; i < 17; i++ {
		if after[i] != before[i] {
			t.Fatalf("message %d inside preserve window changed", i)
		}
	}
	if res.After >= res.Before {
		t.Fatalf("footprint did not shrink: %d -> %d", res.Before, res.After)
	}
}

func TestCompact_BelowThresholdIsNoop(t *testing.T) {
	h := scenarioA()
	before := snapshot(h)
	res := (&Compactor{Threshold: 1 << 20, PreserveRecent: 2, Cap: 500}).Compact(h)
	if res.Compacted || res.Truncated != 0 {
		t.Fatalf("unexpected compaction %+v", res)
	}
	if !equalSnapshots(before, snapshot(h)) {
		t.Fatal("history changed below threshold")
	}
}

func TestCompact_Idempotent(t *testing.T) {
	h := scenarioA()
	c := &Compactor{Threshold: 100, PreserveRecent: 1, Cap: 50}
	c.Compact(h)
	once := snapshot(h)

	res := c.Compact(h)
	if res.Truncated != 0 {
		t.Fatalf("second pass truncated %d entries", res.Truncated)
	}
	if !equalSnapshots(once, snapshot(h)) {
		t.Fatal("second compaction changed the history")
	}
}

func TestCompact_SizeBound(t *testing.T) {
	h := New(strings.Repeat("s", 5000))
	h.Append(
		&AssistantText{Content: strings.Repeat("t", 4000)},
		calls(call("c", "write_file", `{"path":"a.go","content":"`+strings.Repeat("w", 4000)+`"}`)),
		result("c", "write_file", strings.Repeat("r", 4000)),
		&AssistantText{Content: "tail"},
	)
	const limit = 100
	(&Compactor{Threshold: 1000, PreserveRecent: 1, Cap: limit}).Compact(h)

	maxContent := limit + len(contentMarkerPrefix) + len("4000 chars]")
	if n := charCount(h.At(1).(*AssistantText).Content); n > maxContent {
		t.Fatalf("text length %d exceeds %d", n, maxContent)
	}
	if n := charCount(h.At(3).(*ToolResult).Content); n > maxContent {
		t.Fatalf("result length %d exceeds %d", n, maxContent)
	}
	args := h.At(2).(*AssistantToolCall).Calls[0].Args
	content, _ := args.String("content")
	if n := charCount(content); n > limit+len(argMarker) {
		t.Fatalf("arg length %d exceeds %d", n, limit+len(argMarker))
	}
	if _, ok := args.Wire().(string); !ok {
		t.Fatal("JSON-string args must stay JSON strings")
	}
	if h.At(0).(*Seed).Content != strings.Repeat("s", 5000) {
		t.Fatal("seed must never be truncated")
	}
}

func TestCompact_MalformedArgsUntouched(t *testing.T) {
	bad := `{"content":"` + strings.Repeat("m", 3000)
	h := New("seed")
	h.Append(calls(call("c", "write_file", bad)), &AssistantText{Content: "tail"})
	(&Compactor{Threshold: 10, PreserveRecent: 1, Cap: 10}).Compact(h)
	if got := h.At(1).(*AssistantToolCall).Calls[0].Args.Wire(); got != bad {
		t.Fatal("malformed arguments must be left unmodified")
	}
}

func TestCompact_ComposesWithPruner(t *testing.T) {
	h := scenarioB()
	h.At(3).(*ToolResult).Content = strings.Repeat("review ", 400)
	h.Append(&AssistantText{Content: strings.Repeat("later ", 300)}, &AssistantText{Content: "tail"})

	NewPruner().Prune(h, 10)
	c := &Compactor{Threshold: 100, PreserveRecent: 1, Cap: 500}
	c.Compact(h)
	once := snapshot(h)

	NewPruner().Prune(h, 10)
	c.Compact(h)
	if !equalSnapshots(once, snapshot(h)) {
		t.Fatal("prune+compact should be stable when re-applied")
	}
}
