package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Default memory-layer settings.
const (
	DefaultCompactThreshold      = 80000
	DefaultCompactPreserveRecent = 4
	DefaultCompactTruncateChars  = 500
	DefaultPrunePromptChars      = 200
	DefaultPruneResultChars      = 500
)

// Config holds all configuration for the memory-managed tool server
type Config struct {
	// GitHub credentials: a token, or a GitHub App installation
	GitHubToken      string
	GitHubAppID      string
	GitHubPrivateKey string

	// Repository the run works on
	RepoOwner     string
	RepoName      string
	DefaultBranch string

	// Client-side GitHub request rate; 0 means unlimited
	GitHubRequestsPerSecond float64

	// Run identity
	RunID       string
	IssueNumber int

	// Compaction settings
	CompactThreshold      int
	CompactPreserveRecent int
	CompactTruncateChars  int

	// Pruning settings
	PrunePromptChars int
	PruneResultChars int

	// Call budget; 0 means unlimited
	MaxToolCalls int

	// Optional address for the run statistics endpoint
	StatsAddr string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		GitHubToken:             strings.TrimSpace(os.Getenv("GITHUB_TOKEN")),
		GitHubAppID:             os.Getenv("GITHUB_APP_ID"),
		GitHubPrivateKey:        normalizePrivateKey(os.Getenv("GITHUB_PRIVATE_KEY")),
		RepoOwner:               os.Getenv("REPO_OWNER"),
		RepoName:                os.Getenv("REPO_NAME"),
		DefaultBranch:           getEnv("DEFAULT_BRANCH", "main"),
		RunID:                   getEnv("RUN_ID", "run-"+uuid.NewString()[:8]),
		IssueNumber:             getEnvInt("ISSUE_NUMBER", 0),
		CompactThreshold:        getEnvInt("COMPACT_THRESHOLD_CHARS", DefaultCompactThreshold),
		CompactPreserveRecent:   getEnvInt("COMPACT_PRESERVE_RECENT", DefaultCompactPreserveRecent),
		CompactTruncateChars:    getEnvInt("COMPACT_TRUNCATE_CHARS", DefaultCompactTruncateChars),
		PrunePromptChars:        getEnvInt("PRUNE_PROMPT_CHARS", DefaultPrunePromptChars),
		PruneResultChars:        getEnvInt("PRUNE_RESULT_CHARS", DefaultPruneResultChars),
		MaxToolCalls:            getEnvInt("MAX_TOOL_CALLS", 0),
		StatsAddr:               os.Getenv("STATS_ADDR"),
		GitHubRequestsPerSecond: getEnvFloat("GITHUB_REQUESTS_PER_SECOND", 0),
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IssueKey identifies the issue a run works on, e.g. "owner/repo#123".
// Only one run per key may be active at a time.
func (c *Config) IssueKey() string {
	return fmt.Sprintf("%s/%s#%d", c.RepoOwner, c.RepoName, c.IssueNumber)
}

// UsesAppAuth reports whether credentials come from a GitHub App.
func (c *Config) UsesAppAuth() bool {
	return c.GitHubToken == ""
}

func normalizePrivateKey(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, "\"") && strings.HasSuffix(trimmed, "\"") {
		trimmed = strings.TrimPrefix(trimmed, "\"")
		trimmed = strings.TrimSuffix(trimmed, "\"")
	}
	if strings.HasPrefix(trimmed, "'") && strings.HasSuffix(trimmed, "'") {
		trimmed = strings.TrimPrefix(trimmed, "'")
		trimmed = strings.TrimSuffix(trimmed, "'")
	}

	trimmed = strings.ReplaceAll(trimmed, "\r\n", "\n")
	trimmed = strings.ReplaceAll(trimmed, "\r", "\n")
	if strings.Contains(trimmed, "\\n") {
		trimmed = strings.ReplaceAll(trimmed, "\\r", "")
		trimmed = strings.ReplaceAll(trimmed, "\\n", "\n")
	}

	return trimmed
}

// validate checks that all required configuration is present
func (c *Config) validate() error {
	if err := c.validateGitHubCredentials(); err != nil {
		return err
	}

	if c.RepoOwner == "" || c.RepoName == "" {
		return fmt.Errorf("REPO_OWNER and REPO_NAME are required")
	}

	c.applyMemoryDefaults()
	return c.validateMemoryConfig()
}

func (c *Config) validateGitHubCredentials() error {
	if c.GitHubToken != "" {
		return nil
	}
	if c.GitHubAppID == "" {
		return fmt.Errorf("GITHUB_TOKEN or GITHUB_APP_ID is required")
	}
	if c.GitHubPrivateKey == "" {
		return fmt.Errorf("GITHUB_PRIVATE_KEY is required with GITHUB_APP_ID")
	}
	return nil
}

func (c *Config) applyMemoryDefaults() {
	if c.DefaultBranch == "" {
		c.DefaultBranch = "main"
	}
	if c.CompactThreshold <= 0 {
		c.CompactThreshold = DefaultCompactThreshold
	}
	if c.CompactPreserveRecent < 0 {
		c.CompactPreserveRecent = DefaultCompactPreserveRecent
	}
	if c.CompactTruncateChars <= 0 {
		c.CompactTruncateChars = DefaultCompactTruncateChars
	}
	if c.PrunePromptChars <= 0 {
		c.PrunePromptChars = DefaultPrunePromptChars
	}
	if c.PruneResultChars <= 0 {
		c.PruneResultChars = DefaultPruneResultChars
	}
}

func (c *Config) validateMemoryConfig() error {
	if c.CompactTruncateChars >= c.CompactThreshold {
		return fmt.Errorf("COMPACT_TRUNCATE_CHARS must be smaller than COMPACT_THRESHOLD_CHARS")
	}
	if c.MaxToolCalls < 0 {
		return fmt.Errorf("MAX_TOOL_CALLS must be >= 0")
	}
	if c.GitHubRequestsPerSecond < 0 {
		return fmt.Errorf("GITHUB_REQUESTS_PER_SECOND must be >= 0")
	}
	if c.IssueNumber < 0 {
		return fmt.Errorf("ISSUE_NUMBER must be >= 0")
	}
	return nil
}

// getEnv gets environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets environment variable as int with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
