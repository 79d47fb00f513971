package history

import (
	"strings"
	"testing"
)

func TestPrune_ScenarioB(t *testing.T) {
	h := scenarioB()
	h.At(3).(*ToolResult).Content = strings.Repeat("finding ", 200)
	h.At(6).(*AssistantToolCall).Calls[0].Args = ParseArgs(`{"subagent_type":"implementer","prompt":"` + strings.Repeat("p", 1000) + `"}`)
	before := snapshot(h)

	res := NewPruner().Prune(h, 10)
	after := snapshot(h)

	if after[0] != before[0] {
		t.Fatal("seed must not change")
	}
	for i := 10; i < len(before); i++ {
		if after[i] != before[i] {
			t.Fatalf("message %d at or after the boundary changed", i)
		}
	}

	if got := h.At(4).(*ToolResult).Content; got != SupersededPlaceholder {
		t.Fatalf("status result = %q, want placeholder", got)
	}
	if got := h.At(9).(*ToolResult).Content; got != SupersededPlaceholder {
		t.Fatalf("listing result = %q, want placeholder", got)
	}

	review := h.At(3).(*ToolResult).Content
	if !strings.HasPrefix(review, strings.Repeat("finding ", 62)) || !strings.Contains(review, "original length 1600 chars") {
		t.Fatalf("delegation result should be a bounded preview, got %q", review)
	}
	if got := h.At(7).(*ToolResult).Content; got != "done" {
		t.Fatalf("short delegation result changed to %q", got)
	}

	args := h.At(6).(*AssistantToolCall).Calls[0].Args
	wire, ok := args.Wire().(string)
	if !ok {
		t.Fatalf("JSON-string args should stay a string, got %T", args.Wire())
	}
	prompt, _ := ParseArgs(wire).String("prompt")
	if prompt != strings.Repeat("p", DefaultPromptCap)+argMarker {
		t.Fatalf("prompt = %q", prompt)
	}
	if role, _ := ParseArgs(wire).String("subagent_type"); role != "implementer" {
		t.Fatalf("other args lost, role = %q", role)
	}

	if res.ResultsReplaced != 2 || res.ResultsTruncated != 1 || res.PromptsTruncated != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestPrune_ObjectPrompt(t *testing.T) {
	h := New("seed")
	h.Append(
		calls(call("a", "task", map[string]any{"subagent_type": "analyst", "prompt": strings.Repeat("q", 500)})),
		result("a", "task", "analysis"),
		calls(reviewerCall("r")),
		result("r", "task", "ok"),
	)
	NewPruner().Prune(h, 3)
	args := h.At(1).(*AssistantToolCall).Calls[0].Args
	if _, ok := args.Wire().(map[string]any); !ok {
		t.Fatalf("object args should stay an object, got %T", args.Wire())
	}
	if p, _ := args.String("prompt"); charCount(p) != DefaultPromptCap+len(argMarker) {
		t.Fatalf("prompt length = %d", charCount(p))
	}
}

func TestPrune_Idempotent(t *testing.T) {
	h := scenarioB()
	h.At(3).(*ToolResult).Content = strings.Repeat("r", 2000)
	p := NewPruner()
	p.Prune(h, 10)
	once := snapshot(h)

	res := p.Prune(h, 10)
	if res.Changed() {
		t.Fatalf("second prune changed %+v", res)
	}
	if !equalSnapshots(once, snapshot(h)) {
		t.Fatal("second prune changed the history")
	}
}

func TestPrune_ShortensCompactedPrompt(t *testing.T) {
	h := New("seed")
	h.Append(
		calls(call("a", "task", map[string]any{"prompt": strings.Repeat("q", 2000)})),
		result("a", "task", "ok"),
		calls(reviewerCall("r")),
		result("r", "task", "ok"),
		&AssistantText{Content: "tail"},
	)
	(&Compactor{Threshold: 10, PreserveRecent: 1, Cap: 500}).Compact(h)
	NewPruner().Prune(h, 3)

	p, _ := h.At(1).(*AssistantToolCall).Calls[0].Args.String("prompt")
	if p != strings.Repeat("q", DefaultPromptCap)+argMarker {
		t.Fatalf("prompt should be cut to the prune cap, got %d chars", charCount(p))
	}
}

func TestPrune_UnmatchedResults(t *testing.T) {
	h := New("seed")
	h.Append(
		result("ghost", "", "orphan output"),
		result("ghost2", "list_tree", "a\nb"),
		calls(reviewerCall("r")),
		result("r", "task", "ok"),
	)
	NewPruner().Prune(h, 3)
	if got := h.At(1).(*ToolResult).Content; got != "orphan output" {
		t.Fatalf("result with unknown producer changed to %q", got)
	}
	if got := h.At(2).(*ToolResult).Content; got != SupersededPlaceholder {
		t.Fatalf("result should fall back to its producer name, got %q", got)
	}
}

func TestPrune_BoundaryOutOfRange(t *testing.T) {
	h := New("seed")
	h.Append(result("x", "list_tree", "data"))
	if res := NewPruner().Prune(h, 0); res.Changed() {
		t.Fatal("boundary 0 should prune nothing")
	}
	if res := NewPruner().Prune(h, 99); !res.Changed() {
		t.Fatal("boundary past the end should prune the whole tail")
	}
}
