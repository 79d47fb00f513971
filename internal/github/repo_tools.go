package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	gh "github.com/google/go-github/v66/github"
	"golang.org/x/time/rate"
)

// RepoTools implements the repository tools the agent calls: file and tree
// reads, pull request diff and status, and single-file commits.
type RepoTools struct {
	tokens  TokenSource
	limiter *rate.Limiter
	Owner   string
	Repo    string
}

// NewRepoTools creates tools for owner/repo.
func NewRepoTools(tokens TokenSource, owner, repo string) *RepoTools {
	return &RepoTools{tokens: tokens, Owner: owner, Repo: repo}
}

// WithRateLimit paces tool calls to perSecond requests per second. Zero or
// less removes the limit.
func (t *RepoTools) WithRateLimit(perSecond float64) *RepoTools {
	if perSecond <= 0 {
		t.limiter = nil
		return t
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	t.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	return t
}

func (t *RepoTools) client(ctx context.Context) (*gh.Client, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	token, err := t.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get GitHub token: %w", err)
	}
	return NewClient(token), nil
}

// ReadFile returns the content of a file at branch. When startLine or
// endLine is positive only that 1-based inclusive range is returned.
func (t *RepoTools) ReadFile(ctx context.Context, filePath, branch string, startLine, endLine int) (string, error) {
	client, err := t.client(ctx)
	if err != nil {
		return "", err
	}

	var file *gh.RepositoryContent
	err = retryRead(ctx, "read_file", func() (err error) {
		file, _, _, err = client.Repositories.GetContents(ctx, t.Owner, t.Repo, filePath, &gh.RepositoryContentGetOptions{Ref: branch})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to read %s@%s: %w", filePath, branch, err)
	}
	if file == nil {
		return "", fmt.Errorf("%s is a directory, use list_tree", filePath)
	}
	content, err := file.GetContent()
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", filePath, err)
	}

	if startLine <= 0 && endLine <= 0 {
		return content, nil
	}
	return lineRange(content, startLine, endLine), nil
}

func lineRange(content string, startLine, endLine int) string {
	lines := strings.Split(content, "\n")
	if startLine < 1 {
		startLine = 1
	}
	if endLine <= 0 || endLine > len(lines) {
		endLine = len(lines)
	}
	if startLine > endLine {
		return ""
	}
	return strings.Join(lines[startLine-1:endLine], "\n")
}

// ListTree lists paths under subpath at branch. depth limits how many levels
// below subpath are shown; 0 means no limit.
func (t *RepoTools) ListTree(ctx context.Context, subpath, branch string, depth int) (string, error) {
	client, err := t.client(ctx)
	if err != nil {
		return "", err
	}

	var tree *gh.Tree
	err = retryRead(ctx, "list_tree", func() (err error) {
		tree, _, err = client.Git.GetTree(ctx, t.Owner, t.Repo, branch, true)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to list tree of %s: %w", branch, err)
	}

	root := strings.Trim(path.Clean("/"+subpath), "/")
	var b strings.Builder
	count := 0
	for _, entry := range tree.Entries {
		rel, ok := relativeTo(entry.GetPath(), root)
		if !ok {
			continue
		}
		if depth > 0 && strings.Count(rel, "/")+1 > depth {
			continue
		}
		name := entry.GetPath()
		if entry.GetType() == "tree" {
			name += "/"
		}
		b.WriteString(name)
		b.WriteString("\n")
		count++
	}
	if count == 0 {
		return fmt.Sprintf("No entries under %q on %s", subpath, branch), nil
	}
	if tree.GetTruncated() {
		b.WriteString("(listing truncated by GitHub)\n")
	}
	return b.String(), nil
}

func relativeTo(p, root string) (string, bool) {
	if root == "" {
		return p, true
	}
	if !strings.HasPrefix(p, root+"/") {
		return "", false
	}
	return strings.TrimPrefix(p, root+"/"), true
}

// GetPRDiff returns the unified diff of a pull request.
func (t *RepoTools) GetPRDiff(ctx context.Context, number int) (string, error) {
	client, err := t.client(ctx)
	if err != nil {
		return "", err
	}
	var diff string
	err = retryRead(ctx, "get_pr_diff", func() (err error) {
		diff, _, err = client.PullRequests.GetRaw(ctx, t.Owner, t.Repo, number, gh.RawOptions{Type: gh.Diff})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to get diff of PR #%d: %w", number, err)
	}
	return diff, nil
}

// GetPRStatus summarizes a pull request's state and combined check status.
func (t *RepoTools) GetPRStatus(ctx context.Context, number int) (string, error) {
	client, err := t.client(ctx)
	if err != nil {
		return "", err
	}
	var pr *gh.PullRequest
	err = retryRead(ctx, "get_pr_status", func() (err error) {
		pr, _, err = client.PullRequests.Get(ctx, t.Owner, t.Repo, number)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to get PR #%d: %w", number, err)
	}
	status, _, err := client.Repositories.GetCombinedStatus(ctx, t.Owner, t.Repo, pr.GetHead().GetSHA(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to get status of PR #%d: %w", number, err)
	}
	return fmt.Sprintf("PR #%d %q: state=%s head=%s (%s) checks=%s (%d statuses)",
		number, pr.GetTitle(), pr.GetState(), pr.GetHead().GetRef(), shortSHA(pr.GetHead().GetSHA()),
		status.GetState(), status.GetTotalCount()), nil
}

// WriteFile commits content to filePath on branch, creating the file when it
// does not exist yet.
func (t *RepoTools) WriteFile(ctx context.Context, filePath, branch, content, message string) (string, error) {
	client, err := t.client(ctx)
	if err != nil {
		return "", err
	}
	if message == "" {
		message = "Update " + filePath
	}

	opts := &gh.RepositoryContentFileOptions{
		Message: gh.String(message),
		Content: []byte(content),
		Branch:  gh.String(branch),
	}

	existing, _, _, err := client.Repositories.GetContents(ctx, t.Owner, t.Repo, filePath, &gh.RepositoryContentGetOptions{Ref: branch})
	var resp *gh.RepositoryContentResponse
	switch {
	case err == nil && existing != nil:
		opts.SHA = existing.SHA
		resp, _, err = client.Repositories.UpdateFile(ctx, t.Owner, t.Repo, filePath, opts)
	case err == nil || isNotFound(err):
		resp, _, err = client.Repositories.CreateFile(ctx, t.Owner, t.Repo, filePath, opts)
	}
	if err != nil {
		return "", fmt.Errorf("failed to write %s@%s: %w", filePath, branch, err)
	}
	return fmt.Sprintf("Committed %s to %s (%s)", filePath, branch, shortSHA(resp.Commit.GetSHA())), nil
}

func isNotFound(err error) bool {
	var ghErr *gh.ErrorResponse
	return errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
