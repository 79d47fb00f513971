// Command mcp-tool-server serves one agent run's repository tools over MCP
// stdio, with reads cached and writes invalidating them. The orchestrator
// driving the model owns the conversation and calls the session's
// Record* methods and BeforeModelCall hook; this binary only serves tools.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cexll/swemem/internal/config"
	"github.com/cexll/swemem/internal/costcontrol"
	"github.com/cexll/swemem/internal/github"
	"github.com/cexll/swemem/internal/history"
	"github.com/cexll/swemem/internal/session"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	loadDotEnv = godotenv.Load
	transport  = func() mcp.Transport { return &mcp.StdioTransport{} }
)

func main() {
	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("[MCP Tool Server] Received shutdown signal")
		cancel()
	}()

	if err := run(ctx); err != nil {
		log.Fatalf("[MCP Tool Server] Server error: %v", err)
	}
	log.Println("[MCP Tool Server] Server stopped gracefully")
}

func run(ctx context.Context) error {
	// Load .env file (ignore error if file doesn't exist)
	_ = loadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log.Println("[MCP Tool Server] Starting repository tool MCP server v1.0.0")
	log.Printf("[MCP Tool Server] Repository: %s/%s (default branch %s)", cfg.RepoOwner, cfg.RepoName, cfg.DefaultBranch)
	log.Printf("[MCP Tool Server] Run: %s, issue key: %s", cfg.RunID, cfg.IssueKey())

	registry := session.NewRegistry()
	sess, err := registry.Start(cfg.IssueKey(), cfg.RunID, seedPrompt(cfg), sessionOptions(cfg))
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	repoTools := github.NewRepoTools(tokenSource(cfg), cfg.RepoOwner, cfg.RepoName).
		WithRateLimit(cfg.GitHubRequestsPerSecond)
	sess.RegisterRepo(repoTools)
	defer func() {
		sess.LogReport()
		registry.Finish(cfg.RunID)
	}()

	if cfg.StatsAddr != "" {
		stop := serveStats(cfg.StatsAddr, registry)
		defer stop()
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "github-repo-tools",
		Version: "v1.0.0",
	}, nil)
	NewHandlers(sess).Register(server)

	log.Println("[MCP Tool Server] Starting on stdio transport...")
	if err := server.Run(ctx, transport()); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func tokenSource(cfg *config.Config) github.TokenSource {
	if !cfg.UsesAppAuth() {
		return github.StaticToken(cfg.GitHubToken)
	}
	log.Printf("[MCP Tool Server] Using GitHub App %s installation token", cfg.GitHubAppID)
	return &github.AppTokenSource{
		Auth:  &github.AppAuth{AppID: cfg.GitHubAppID, PrivateKey: cfg.GitHubPrivateKey},
		Owner: cfg.RepoOwner,
		Repo:  cfg.RepoName,
	}
}

func sessionOptions(cfg *config.Config) session.Options {
	return session.Options{
		DefaultBranch: cfg.DefaultBranch,
		Compactor: &history.Compactor{
			Threshold:      cfg.CompactThreshold,
			PreserveRecent: cfg.CompactPreserveRecent,
			Cap:            cfg.CompactTruncateChars,
		},
		Pruner: &history.Pruner{
			PromptCap:      cfg.PrunePromptChars,
			ResultCap:      cfg.PruneResultChars,
			DelegationTool: history.DefaultDelegationTool,
		},
		Limiter: costcontrol.NewCallLimiter(cfg.MaxToolCalls),
	}
}

func seedPrompt(cfg *config.Config) string {
	if cfg.IssueNumber > 0 {
		return fmt.Sprintf("Resolve issue #%d in %s/%s", cfg.IssueNumber, cfg.RepoOwner, cfg.RepoName)
	}
	return fmt.Sprintf("Work on %s/%s", cfg.RepoOwner, cfg.RepoName)
}

// serveStats exposes the run registry over HTTP and returns a stop function.
func serveStats(addr string, registry *session.Registry) func() {
	r := mux.NewRouter()
	registry.RegisterRoutes(r)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Printf("[MCP Tool Server] Stats endpoint: http://%s/runs", addr)
		log.Printf("[MCP Tool Server] Metrics: http://%s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[MCP Tool Server] Stats server error: %v", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
