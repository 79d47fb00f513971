package history

import "log"

const (
	// DefaultCompactThreshold is the footprint above which compaction runs.
	DefaultCompactThreshold = 80000
	// DefaultPreserveRecent is the number of trailing messages left intact.
	DefaultPreserveRecent = 4
	// DefaultCompactCap bounds each eligible message or argument.
	DefaultCompactCap = 500
)

// Compactor is the size-triggered safety valve run before every model call.
// It does not look at iteration boundaries.
type Compactor struct {
	Threshold      int
	PreserveRecent int
	Cap            int
}

// CompactResult describes one Compact pass.
type CompactResult struct {
	Before    int
	After     int
	Truncated int
	Compacted bool
}

// NewCompactor returns a Compactor with default settings.
func NewCompactor() *Compactor {
	return &Compactor{
		Threshold:      DefaultCompactThreshold,
		PreserveRecent: DefaultPreserveRecent,
		Cap:            DefaultCompactCap,
	}
}

// Compact truncates every message except the seed and the most recent
// PreserveRecent ones once the log's footprint exceeds Threshold.
func (c *Compactor) Compact(h *History) CompactResult {
	msgs := h.Messages()
	res := CompactResult{Before: Footprint(msgs)}
	res.After = res.Before

	threshold, limit := c.Threshold, c.Cap
	if threshold <= 0 {
		threshold = DefaultCompactThreshold
	}
	if limit <= 0 {
		limit = DefaultCompactCap
	}
	preserve := c.PreserveRecent
	if preserve < 0 {
		preserve = 0
	}
	if res.Before <= threshold {
		return res
	}

	end := len(msgs) - preserve
	for i := 1; i < end; i++ {
		switch msg := msgs[i].(type) {
		case *AssistantText:
			if short, changed := truncateContent(msg.Content, limit); changed {
				msg.Content = short
				res.Truncated++
			}
		case *ToolResult:
			if short, changed := truncateContent(msg.Content, limit); changed {
				msg.Content = short
				res.Truncated++
			}
		case *AssistantToolCall:
			for _, call := range msg.Calls {
				if call.Args.Malformed() {
					continue
				}
				for _, key := range call.Args.StringKeys() {
					v, _ := call.Args.String(key)
					if short, changed := truncateArg(v, limit); changed {
						call.Args.SetString(key, short)
						res.Truncated++
					}
				}
			}
		}
	}

	if res.Truncated > 0 {
		res.Compacted = true
		res.After = Footprint(msgs)
		log.Printf("[Compactor] Context %d chars exceeds %d, truncated %d entries, now %d chars",
			res.Before, threshold, res.Truncated, res.After)
	}
	return res
}
