package history

import (
	"encoding/json"
	"fmt"
	"strings"
)

func call(id, name string, args any) ToolCall {
	return ToolCall{ID: id, Name: name, Args: ParseArgs(args)}
}

func calls(cs ...ToolCall) *AssistantToolCall {
	return &AssistantToolCall{Calls: cs}
}

func result(id, producer, content string) *ToolResult {
	return &ToolResult{CallID: id, Producer: producer, Content: content}
}

func reviewerCall(id string) ToolCall {
	return call(id, "task", map[string]any{"subagent_type": "reviewer", "prompt": "review the change"})
}

// snapshot renders every message, arguments in wire form, for exact comparison.
func snapshot(h *History) []string {
	out := make([]string, 0, h.Len())
	for _, m := range h.Messages() {
		switch msg := m.(type) {
		case *Seed:
			out = append(out, "seed:"+msg.Content)
		case *AssistantText:
			out = append(out, "text:"+msg.Content)
		case *ToolResult:
			out = append(out, fmt.Sprintf("result:%s:%s:%s", msg.CallID, msg.Producer, msg.Content))
		case *AssistantToolCall:
			parts := make([]string, 0, len(msg.Calls))
			for _, c := range msg.Calls {
				wire := c.Args.Wire()
				if s, ok := wire.(string); ok {
					parts = append(parts, fmt.Sprintf("%s:%s:str:%s", c.ID, c.Name, s))
					continue
				}
				data, _ := json.Marshal(wire)
				parts = append(parts, fmt.Sprintf("%s:%s:obj:%s", c.ID, c.Name, data))
			}
			out = append(out, "calls:"+strings.Join(parts, "|"))
		}
	}
	return out
}

func equalSnapshots(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
