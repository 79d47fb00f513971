package history

import "log"

const (
	// DefaultPromptCap bounds delegation prompts in completed iterations.
	DefaultPromptCap = 200
	// DefaultPruneResultCap bounds delegation results in completed iterations.
	DefaultPruneResultCap = 500
	// promptArg is the delegation argument carrying the subagent prompt.
	promptArg = "prompt"
)

// Pruner rewrites the part of the log that precedes the latest completed
// review cycle. Delegations survive as bounded previews; output of any
// other tool is replaced with a placeholder.
type Pruner struct {
	PromptCap      int
	ResultCap      int
	DelegationTool string
}

// PruneResult counts what a Prune pass changed.
type PruneResult struct {
	PromptsTruncated int
	ResultsTruncated int
	ResultsReplaced  int
}

// Changed reports whether the pass rewrote anything.
func (r PruneResult) Changed() bool {
	return r.PromptsTruncated+r.ResultsTruncated+r.ResultsReplaced > 0
}

// NewPruner returns a Pruner with default caps.
func NewPruner() *Pruner {
	return &Pruner{
		PromptCap:      DefaultPromptCap,
		ResultCap:      DefaultPruneResultCap,
		DelegationTool: DefaultDelegationTool,
	}
}

// Prune rewrites messages strictly before latestBoundary. The seed and
// everything at or after the boundary are untouched. Re-running on an
// already pruned log changes nothing.
func (p *Pruner) Prune(h *History, latestBoundary int) PruneResult {
	var res PruneResult
	msgs := h.Messages()
	if latestBoundary > len(msgs) {
		latestBoundary = len(msgs)
	}
	if latestBoundary <= 1 {
		return res
	}

	tool, promptCap, resultCap := p.DelegationTool, p.PromptCap, p.ResultCap
	if tool == "" {
		tool = DefaultDelegationTool
	}
	if promptCap <= 0 {
		promptCap = DefaultPromptCap
	}
	if resultCap <= 0 {
		resultCap = DefaultPruneResultCap
	}
	calls := callIndex(msgs)

	for i := 1; i < latestBoundary; i++ {
		switch msg := msgs[i].(type) {
		case *AssistantToolCall:
			for _, c := range msg.Calls {
				if c.Name != tool || c.Args.Malformed() {
					continue
				}
				prompt, ok := c.Args.String(promptArg)
				if !ok {
					continue
				}
				if short, changed := truncateArg(prompt, promptCap); changed {
					c.Args.SetString(promptArg, short)
					res.PromptsTruncated++
				}
			}
		case *ToolResult:
			producer := msg.Producer
			if c, ok := calls[msg.CallID]; ok {
				producer = c.Name
			}
			switch {
			case producer == "":
				// Unknown origin; leave it as is.
			case producer == tool:
				if short, changed := truncateContent(msg.Content, resultCap); changed {
					msg.Content = short
					res.ResultsTruncated++
				}
			case msg.Content != SupersededPlaceholder:
				msg.Content = SupersededPlaceholder
				res.ResultsReplaced++
			}
		}
	}

	if res.Changed() {
		log.Printf("[Pruner] Pruned history before index %d: %d prompts truncated, %d results truncated, %d results replaced",
			latestBoundary, res.PromptsTruncated, res.ResultsTruncated, res.ResultsReplaced)
	}
	return res
}
