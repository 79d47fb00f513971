package history

// Message is one entry of the conversation log. The concrete types are
// *Seed, *AssistantText, *AssistantToolCall and *ToolResult; switch on them
// exhaustively rather than inspecting fields.
type Message interface {
	message()
}

// Seed is the first message of a run and carries the original task.
// Nothing in this package mutates it.
type Seed struct {
	Content string
}

// AssistantText is plain model output.
type AssistantText struct {
	Content string
}

// AssistantToolCall is a model turn that requested one or more tool calls.
type AssistantToolCall struct {
	Calls []ToolCall
}

// ToolCall is a single requested invocation inside an AssistantToolCall.
type ToolCall struct {
	ID   string
	Name string
	Args *Args
}

// ToolResult is the output of a tool, correlated to a ToolCall by CallID.
type ToolResult struct {
	CallID   string
	Producer string
	Content  string
}

func (*Seed) message()              {}
func (*AssistantText) message()     {}
func (*AssistantToolCall) message() {}
func (*ToolResult) message()        {}

// History is the append-only conversation log of one run. Messages are
// never reordered or removed; compaction and pruning rewrite content in place.
type History struct {
	msgs []Message
}

// New starts a history with the seed message.
func New(seed string) *History {
	return &History{msgs: []Message{&Seed{Content: seed}}}
}

// Append adds messages to the end of the log.
func (h *History) Append(msgs ...Message) {
	h.msgs = append(h.msgs, msgs...)
}

// Len returns the number of messages.
func (h *History) Len() int {
	return len(h.msgs)
}

// At returns the message at index i.
func (h *History) At(i int) Message {
	return h.msgs[i]
}

// Messages returns the underlying slice. Callers may mutate message content
// but must not reorder or drop entries.
func (h *History) Messages() []Message {
	return h.msgs
}

// callIndex maps call IDs to the tool call that produced them.
func callIndex(msgs []Message) map[string]ToolCall {
	idx := make(map[string]ToolCall)
	for _, m := range msgs {
		tc, ok := m.(*AssistantToolCall)
		if !ok {
			continue
		}
		for _, c := range tc.Calls {
			if c.ID == "" {
				continue
			}
			if _, seen := idx[c.ID]; !seen {
				idx[c.ID] = c
			}
		}
	}
	return idx
}
