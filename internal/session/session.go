// Package session ties the memory layer to one agent run: the run's
// conversation history, its tool-result cache and the hook the orchestrator
// calls before every model request.
package session

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/cexll/swemem/internal/costcontrol"
	"github.com/cexll/swemem/internal/history"
	"github.com/cexll/swemem/internal/toolcache"
)

// Tool names registered by RegisterRepo.
const (
	ToolReadFile    = "read_file"
	ToolListTree    = "list_tree"
	ToolGetPRDiff   = "get_pr_diff"
	ToolGetPRStatus = "get_pr_status"
	ToolWriteFile   = "write_file"
)

// Repo is the upstream the repository tools call.
type Repo interface {
	ReadFile(ctx context.Context, path, branch string, startLine, endLine int) (string, error)
	ListTree(ctx context.Context, subpath, branch string, depth int) (string, error)
	GetPRDiff(ctx context.Context, number int) (string, error)
	GetPRStatus(ctx context.Context, number int) (string, error)
	WriteFile(ctx context.Context, path, branch, content, message string) (string, error)
}

// CallCounter is the run's external call limiter. The session reports on it
// but does not own its policy.
type CallCounter interface {
	Allow(tool string) error
	Stats() costcontrol.CallStats
}

// Options configures a session.
type Options struct {
	DefaultBranch string
	Compactor     *history.Compactor
	Pruner        *history.Pruner
	Detector      history.BoundaryDetector
	Limiter       CallCounter
}

// Session is the memory state of a single agent run. It is not shared
// between runs.
type Session struct {
	ID string

	mu          sync.Mutex
	history     *history.History
	cache       *toolcache.Cache
	invalidator *toolcache.Invalidator
	compactor   *history.Compactor
	pruner      *history.Pruner
	detector    history.BoundaryDetector
	limiter     CallCounter
	branch      string
	tools       map[string]toolcache.ToolFunc

	compactions int
	prunes      int
}

// New starts a run whose history begins with seed.
func New(id, seed string, opts Options) *Session {
	cache := toolcache.New()
	s := &Session{
		ID:          id,
		history:     history.New(seed),
		cache:       cache,
		invalidator: toolcache.NewInvalidator(cache),
		compactor:   opts.Compactor,
		pruner:      opts.Pruner,
		detector:    opts.Detector,
		limiter:     opts.Limiter,
		branch:      opts.DefaultBranch,
		tools:       make(map[string]toolcache.ToolFunc),
	}
	if s.compactor == nil {
		s.compactor = history.NewCompactor()
	}
	if s.pruner == nil {
		s.pruner = history.NewPruner()
	}
	if s.limiter == nil {
		s.limiter = costcontrol.NewCallLimiter(0)
	}
	if s.branch == "" {
		s.branch = "main"
	}
	return s
}

// History returns the run's conversation log. It must not be modified
// concurrently with the session's own methods.
func (s *Session) History() *history.History {
	return s.history
}

// Cache returns the run's tool-result cache.
func (s *Session) Cache() *toolcache.Cache {
	return s.cache
}

// RecordAssistantText appends model text to the history.
func (s *Session) RecordAssistantText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Append(&history.AssistantText{Content: text})
}

// RecordToolCalls appends a model turn requesting tool calls. Arguments may
// be decoded structures or JSON strings; both are normalized here.
func (s *Session) RecordToolCalls(calls ...RawToolCall) {
	msg := &history.AssistantToolCall{Calls: make([]history.ToolCall, 0, len(calls))}
	for _, c := range calls {
		msg.Calls = append(msg.Calls, history.ToolCall{ID: c.ID, Name: c.Name, Args: history.ParseArgs(c.Args)})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Append(msg)
}

// RawToolCall is a tool call as the provider reported it.
type RawToolCall struct {
	ID   string
	Name string
	Args any
}

// RecordToolResult appends a tool result.
func (s *Session) RecordToolResult(callID, producer, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Append(&history.ToolResult{CallID: callID, Producer: producer, Content: content})
}

// HookResult reports what BeforeModelCall did.
type HookResult struct {
	Boundaries []int
	Pruned     history.PruneResult
	Compacted  history.CompactResult
}

// BeforeModelCall bounds the history before a model request. Once at least
// two review cycles have completed, everything before the latest one is
// pruned; then the size-triggered compaction runs.
func (s *Session) BeforeModelCall() HookResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := HookResult{Boundaries: s.detector.Detect(s.history.Messages())}
	if len(res.Boundaries) >= 2 {
		res.Pruned = s.pruner.Prune(s.history, res.Boundaries[len(res.Boundaries)-1])
		if res.Pruned.Changed() {
			s.prunes++
		}
	}
	res.Compacted = s.compactor.Compact(s.history)
	if res.Compacted.Compacted {
		s.compactions++
	}
	return res
}

// Register adds a tool under name. Reads with a key function go through the
// cache; everything else is called directly.
func (s *Session) Register(name string, keyFn toolcache.KeyFunc, call toolcache.ToolFunc) {
	if keyFn != nil {
		call = s.cache.Wrap(keyFn, call)
	}
	s.tools[name] = call
}

// RegisterWrite adds a write tool whose successful calls invalidate the
// cache entries of their target.
func (s *Session) RegisterWrite(name string, target toolcache.TargetFunc, call toolcache.ToolFunc) {
	s.tools[name] = s.invalidator.WrapWrite(target, call)
}

// RegisterRepo registers the repository tools backed by repo.
func (s *Session) RegisterRepo(repo Repo) {
	branch := func(args map[string]any) string {
		if b, _ := toolcache.StringArg(args, "branch"); b != "" {
			return b
		}
		return s.branch
	}

	s.Register(ToolReadFile, toolcache.FileReadKey(s.branch), func(ctx context.Context, args map[string]any) (string, error) {
		p, _ := toolcache.StringArg(args, "path")
		return repo.ReadFile(ctx, p, branch(args), toolcache.IntArg(args, "start_line"), toolcache.IntArg(args, "end_line"))
	})
	s.Register(ToolListTree, toolcache.TreeListKey(s.branch), func(ctx context.Context, args map[string]any) (string, error) {
		p, _ := toolcache.StringArg(args, "path")
		return repo.ListTree(ctx, p, branch(args), toolcache.IntArg(args, "depth"))
	})
	s.Register(ToolGetPRDiff, toolcache.PRDiffKey, func(ctx context.Context, args map[string]any) (string, error) {
		return repo.GetPRDiff(ctx, toolcache.IntArg(args, "pr_number"))
	})
	s.Register(ToolGetPRStatus, nil, func(ctx context.Context, args map[string]any) (string, error) {
		return repo.GetPRStatus(ctx, toolcache.IntArg(args, "pr_number"))
	})
	s.RegisterWrite(ToolWriteFile, toolcache.FileWriteTarget(s.branch), func(ctx context.Context, args map[string]any) (string, error) {
		p, _ := toolcache.StringArg(args, "path")
		content, _ := args["content"].(string)
		message, _ := toolcache.StringArg(args, "message")
		return repo.WriteFile(ctx, p, branch(args), content, message)
	})
}

// Tools lists the registered tool names.
func (s *Session) Tools() []string {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CallTool runs a registered tool after checking the call limiter.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	tool, ok := s.tools[name]
	if !ok {
		return "", fmt.Errorf("unknown tool: %s", name)
	}
	if err := s.limiter.Allow(name); err != nil {
		return "", err
	}
	if args == nil {
		args = map[string]any{}
	}
	return tool(ctx, args)
}

// Report is the end-of-run summary handed back to the orchestrator.
type Report struct {
	RunID       string                `json:"run_id"`
	Cache       toolcache.Stats       `json:"cache"`
	Calls       costcontrol.CallStats `json:"calls"`
	Messages    int                   `json:"messages"`
	Footprint   int                   `json:"footprint_chars"`
	Compactions int                   `json:"compactions"`
	Prunes      int                   `json:"prunes"`
}

// Report summarizes the run so far.
func (s *Session) Report() Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.history.Messages()
	return Report{
		RunID:       s.ID,
		Cache:       s.cache.Stats(),
		Calls:       s.limiter.Stats(),
		Messages:    len(msgs),
		Footprint:   history.Footprint(msgs),
		Compactions: s.compactions,
		Prunes:      s.prunes,
	}
}

// LogReport writes the run summary to the log.
func (s *Session) LogReport() {
	r := s.Report()
	s.cache.LogStats(s.ID)
	log.Printf("[Session] Run %s: %d messages (%d chars), %d compactions, %d prunes, %d tool calls",
		r.RunID, r.Messages, r.Footprint, r.Compactions, r.Prunes, r.Calls.Calls)
}
