package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/cexll/swemem/internal/session"
	"github.com/cexll/swemem/internal/toolcache"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ReadFileParams defines the input parameters for read_file
type ReadFileParams struct {
	Path      string `json:"path" jsonschema:"File path relative to the repository root"`
	Branch    string `json:"branch,omitempty" jsonschema:"Branch to read from, defaults to the repository default branch"`
	StartLine int    `json:"start_line,omitempty" jsonschema:"First line to return (1-based). Ranged reads are never cached"`
	EndLine   int    `json:"end_line,omitempty" jsonschema:"Last line to return (inclusive)"`
}

// ListTreeParams defines the input parameters for list_tree
type ListTreeParams struct {
	Path   string `json:"path,omitempty" jsonschema:"Directory to list, defaults to the repository root"`
	Branch string `json:"branch,omitempty" jsonschema:"Branch to list"`
	Depth  int    `json:"depth,omitempty" jsonschema:"Maximum depth below path, 0 for unlimited"`
}

// PRParams defines the input parameters for the pull request tools
type PRParams struct {
	PRNumber int `json:"pr_number" jsonschema:"Pull request number"`
}

// WriteFileParams defines the input parameters for write_file
type WriteFileParams struct {
	Path    string `json:"path" jsonschema:"File path relative to the repository root"`
	Content string `json:"content" jsonschema:"Full new content of the file"`
	Branch  string `json:"branch,omitempty" jsonschema:"Branch to commit to"`
	Message string `json:"message,omitempty" jsonschema:"Commit message"`
}

// CacheStatsParams takes no input
type CacheStatsParams struct{}

// Handlers routes MCP tool calls into a run's session.
type Handlers struct {
	session *session.Session
}

// NewHandlers creates handlers for s. The session must have its repository
// tools registered.
func NewHandlers(s *session.Session) *Handlers {
	return &Handlers{session: s}
}

// Register adds every tool to server.
func (h *Handlers) Register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        session.ToolReadFile,
		Description: "Read a file from the repository. Repeated reads are served from the run cache until the file is written.",
	}, h.HandleReadFile)
	mcp.AddTool(server, &mcp.Tool{
		Name:        session.ToolListTree,
		Description: "List files and directories under a path of the repository",
	}, h.HandleListTree)
	mcp.AddTool(server, &mcp.Tool{
		Name:        session.ToolGetPRDiff,
		Description: "Get the unified diff of a pull request. After a write, only files changed since the previous diff are returned.",
	}, h.HandleGetPRDiff)
	mcp.AddTool(server, &mcp.Tool{
		Name:        session.ToolGetPRStatus,
		Description: "Get the state and check status of a pull request",
	}, h.HandleGetPRStatus)
	mcp.AddTool(server, &mcp.Tool{
		Name:        session.ToolWriteFile,
		Description: "Commit new content for a file to a branch",
	}, h.HandleWriteFile)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "cache_stats",
		Description: "Report tool cache and call statistics for this run",
	}, h.HandleCacheStats)
	log.Printf("[MCP Tool Server] Registered tools: %v, cache_stats", h.session.Tools())
}

// HandleReadFile handles the read_file tool call
func (h *Handlers) HandleReadFile(ctx context.Context, _ *mcp.CallToolRequest, params ReadFileParams) (*mcp.CallToolResult, any, error) {
	if params.Path == "" {
		return errorResult(fmt.Errorf("path parameter is required")), nil, nil
	}
	args := map[string]any{"path": params.Path}
	setIfPresent(args, "branch", params.Branch)
	setIfPositive(args, "start_line", params.StartLine)
	setIfPositive(args, "end_line", params.EndLine)
	return h.call(ctx, session.ToolReadFile, args)
}

// HandleListTree handles the list_tree tool call
func (h *Handlers) HandleListTree(ctx context.Context, _ *mcp.CallToolRequest, params ListTreeParams) (*mcp.CallToolResult, any, error) {
	args := map[string]any{"path": params.Path}
	setIfPresent(args, "branch", params.Branch)
	setIfPositive(args, "depth", params.Depth)
	return h.call(ctx, session.ToolListTree, args)
}

// HandleGetPRDiff handles the get_pr_diff tool call
func (h *Handlers) HandleGetPRDiff(ctx context.Context, _ *mcp.CallToolRequest, params PRParams) (*mcp.CallToolResult, any, error) {
	if params.PRNumber <= 0 {
		return errorResult(fmt.Errorf("pr_number must be positive")), nil, nil
	}
	return h.call(ctx, session.ToolGetPRDiff, map[string]any{"pr_number": params.PRNumber})
}

// HandleGetPRStatus handles the get_pr_status tool call
func (h *Handlers) HandleGetPRStatus(ctx context.Context, _ *mcp.CallToolRequest, params PRParams) (*mcp.CallToolResult, any, error) {
	if params.PRNumber <= 0 {
		return errorResult(fmt.Errorf("pr_number must be positive")), nil, nil
	}
	return h.call(ctx, session.ToolGetPRStatus, map[string]any{"pr_number": params.PRNumber})
}

// HandleWriteFile handles the write_file tool call
func (h *Handlers) HandleWriteFile(ctx context.Context, _ *mcp.CallToolRequest, params WriteFileParams) (*mcp.CallToolResult, any, error) {
	if params.Path == "" {
		return errorResult(fmt.Errorf("path parameter is required")), nil, nil
	}
	args := map[string]any{"path": params.Path, "content": params.Content}
	setIfPresent(args, "branch", params.Branch)
	setIfPresent(args, "message", params.Message)
	return h.call(ctx, session.ToolWriteFile, args)
}

// HandleCacheStats handles the cache_stats tool call
func (h *Handlers) HandleCacheStats(_ context.Context, _ *mcp.CallToolRequest, _ CacheStatsParams) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(h.session.Report(), "", "  ")
	if err != nil {
		return errorResult(err), nil, nil
	}
	return textResult(string(data)), nil, nil
}

func (h *Handlers) call(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, any, error) {
	out, err := h.session.CallTool(ctx, name, args)
	if err != nil {
		log.Printf("[MCP Tool Server] %s failed: %v", name, err)
		return errorResult(err), nil, nil
	}
	if toolcache.IsErrorResult(out) {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: out}},
			IsError: true,
		}, nil, nil
	}
	return textResult(out), nil, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: toolcache.ErrorResult(err)}},
		IsError: true,
	}
}

func setIfPresent(args map[string]any, key, value string) {
	if value != "" {
		args[key] = value
	}
}

func setIfPositive(args map[string]any, key string, value int) {
	if value > 0 {
		args[key] = value
	}
}
