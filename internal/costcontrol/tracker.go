package costcontrol

import (
	"log"
	"sync"
)

// CallLimiter bounds the number of tool calls a single agent run may make.
type CallLimiter struct {
	mu       sync.Mutex
	maxCalls int

	calls  int
	denied int
	byTool map[string]int
}

// NewCallLimiter creates a limiter. maxCalls <= 0 means unlimited.
func NewCallLimiter(maxCalls int) *CallLimiter {
	return &CallLimiter{
		maxCalls: maxCalls,
		byTool:   make(map[string]int),
	}
}

// Allow records a call to tool, or returns a *LimitError once the run has
// used up its budget.
func (l *CallLimiter) Allow(tool string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.maxCalls > 0 && l.calls >= l.maxCalls {
		l.denied++
		log.Printf("CALL LIMIT: %s refused, %d/%d calls used", tool, l.calls, l.maxCalls)
		return &LimitError{
			Type:    "run_calls",
			Limit:   l.maxCalls,
			Current: l.calls,
			Message: "Tool call limit for this run reached",
		}
	}
	l.calls++
	l.byTool[tool]++
	return nil
}

// Calls returns the number of calls allowed so far.
func (l *CallLimiter) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

// Stats returns current call statistics.
func (l *CallLimiter) Stats() CallStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	byTool := make(map[string]int, len(l.byTool))
	for k, v := range l.byTool {
		byTool[k] = v
	}
	return CallStats{
		Calls:  l.calls,
		Denied: l.denied,
		Limit:  l.maxCalls,
		ByTool: byTool,
	}
}

// CallStats represents per-run call statistics
type CallStats struct {
	Calls  int            `json:"calls"`
	Denied int            `json:"denied"`
	Limit  int            `json:"limit"`
	ByTool map[string]int `json:"by_tool"`
}

// LimitError represents a call limit violation
type LimitError struct {
	Type    string
	Limit   int
	Current int
	Message string
}

func (e *LimitError) Error() string {
	return e.Message
}
