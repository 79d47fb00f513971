package github

import (
	"context"
	"strings"
	"testing"
	"time"
)

func newTestTools(t *testing.T) (*RepoTools, func() map[string]map[string]string) {
	t.Helper()
	repo := useMockGitHub(t)
	repo.SetDiff(7, "diff --git a/src/a.go b/src/a.go\n")
	return NewRepoTools(StaticToken("test-token"), "owner", "repo"), func() map[string]map[string]string { return repo.Files }
}

func TestRepoTools_ReadFile(t *testing.T) {
	tools, _ := newTestTools(t)
	ctx := context.Background()

	got, err := tools.ReadFile(ctx, "src/a.go", "main", 0, 0)
	if err != nil || got != "package src\n\nvar A = 1\n" {
		t.Fatalf("ReadFile = %q, %v", got, err)
	}

	got, err = tools.ReadFile(ctx, "src/a.go", "main", 3, 3)
	if err != nil || got != "var A = 1" {
		t.Fatalf("ReadFile range = %q, %v", got, err)
	}

	if _, err := tools.ReadFile(ctx, "missing.go", "main", 0, 0); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLineRange(t *testing.T) {
	content := "a\nb\nc\nd"
	tests := []struct {
		start, end int
		want       string
	}{
		{1, 2, "a\nb"},
		{3, 0, "c\nd"},
		{0, 1, "a"},
		{3, 99, "c\nd"},
		{4, 2, ""},
	}
	for _, tt := range tests {
		if got := lineRange(content, tt.start, tt.end); got != tt.want {
			t.Errorf("lineRange(%d, %d) = %q, want %q", tt.start, tt.end, got, tt.want)
		}
	}
}

func TestRepoTools_ListTree(t *testing.T) {
	tools, _ := newTestTools(t)
	ctx := context.Background()

	all, err := tools.ListTree(ctx, "", "main", 0)
	if err != nil {
		t.Fatalf("ListTree: %v", err)
	}
	for _, want := range []string{"README.md\n", "src/\n", "src/a.go\n"} {
		if !strings.Contains(all, want) {
			t.Errorf("listing missing %q:\n%s", want, all)
		}
	}

	top, _ := tools.ListTree(ctx, "", "main", 1)
	if strings.Contains(top, "src/a.go") {
		t.Errorf("depth 1 should hide nested files:\n%s", top)
	}

	sub, _ := tools.ListTree(ctx, "src", "main", 0)
	if strings.Contains(sub, "README.md") || !strings.Contains(sub, "src/a.go") {
		t.Errorf("subpath listing wrong:\n%s", sub)
	}

	empty, _ := tools.ListTree(ctx, "nope", "main", 0)
	if !strings.HasPrefix(empty, "No entries") {
		t.Errorf("empty listing = %q", empty)
	}
}

func TestRepoTools_PullRequest(t *testing.T) {
	tools, _ := newTestTools(t)
	ctx := context.Background()

	diff, err := tools.GetPRDiff(ctx, 7)
	if err != nil || !strings.HasPrefix(diff, "diff --git a/src/a.go") {
		t.Fatalf("GetPRDiff = %q, %v", diff, err)
	}

	status, err := tools.GetPRStatus(ctx, 7)
	if err != nil {
		t.Fatalf("GetPRStatus: %v", err)
	}
	if !strings.Contains(status, "state=open") || !strings.Contains(status, "checks=pending") || !strings.Contains(status, "abcdef1") {
		t.Fatalf("status = %q", status)
	}

	if _, err := tools.GetPRDiff(ctx, 99); err == nil {
		t.Fatal("expected error for unknown PR")
	}
}

func TestRepoTools_WriteFile(t *testing.T) {
	tools, files := newTestTools(t)
	ctx := context.Background()

	out, err := tools.WriteFile(ctx, "src/a.go", "main", "package src\n", "")
	if err != nil || !strings.Contains(out, "Committed src/a.go to main (c0ffee1)") {
		t.Fatalf("WriteFile update = %q, %v", out, err)
	}
	if files()["main"]["src/a.go"] != "package src\n" {
		t.Fatalf("file not updated: %q", files()["main"]["src/a.go"])
	}

	if _, err := tools.WriteFile(ctx, "src/new.go", "fix/7", "package src\n", "add file"); err != nil {
		t.Fatalf("WriteFile create: %v", err)
	}
	if files()["fix/7"]["src/new.go"] != "package src\n" {
		t.Fatal("new file not created on branch")
	}
}

func TestRepoTools_RateLimit(t *testing.T) {
	tools, _ := newTestTools(t)
	tools.WithRateLimit(0.001)

	if _, err := tools.ReadFile(context.Background(), "src/a.go", "main", 0, 0); err != nil {
		t.Fatalf("first call within burst: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := tools.ReadFile(ctx, "src/a.go", "main", 0, 0); err == nil || !strings.Contains(err.Error(), "rate limit") {
		t.Fatalf("second call error = %v, want rate limit wait error", err)
	}

	if _, err := tools.WithRateLimit(0).ReadFile(context.Background(), "src/a.go", "main", 0, 0); err != nil {
		t.Fatalf("unlimited call: %v", err)
	}
}
