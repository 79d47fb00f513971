package toolcache

import (
	"encoding/json"
	"path"
	"strconv"
	"strings"
)

// Key prefixes of the cacheable read tools.
const (
	FilePrefix = "file:"
	TreePrefix = "tree:"
	DiffPrefix = "diff:"
)

// KeyFunc derives a cache key from a tool's arguments. It returns false when
// the call must bypass the cache entirely.
type KeyFunc func(args map[string]any) (string, bool)

// FileKey identifies one file at one branch.
func FileKey(filePath, branch string) string {
	return FilePrefix + normalizePath(filePath) + ":" + branch
}

// TreeKey identifies a directory listing. The branch comes last so that all
// listings of a branch share the suffix ":<branch>".
func TreeKey(subpath, branch string, depth int) string {
	return TreePrefix + normalizePath(subpath) + ":d" + strconv.Itoa(depth) + ":" + branch
}

// DiffKey identifies the diff of one pull request.
func DiffKey(prNumber int) string {
	return DiffPrefix + strconv.Itoa(prNumber)
}

// BranchSuffix is the suffix shared by every tree key of branch.
func BranchSuffix(branch string) string {
	return ":" + branch
}

// FileReadKey keys read_file calls by path and branch. Reads bounded to a
// line range are not cacheable.
func FileReadKey(defaultBranch string) KeyFunc {
	return func(args map[string]any) (string, bool) {
		p, ok := StringArg(args, "path")
		if !ok || p == "" {
			return "", false
		}
		if IntArg(args, "start_line") > 0 || IntArg(args, "end_line") > 0 {
			return "", false
		}
		return FileKey(p, branchArg(args, defaultBranch)), true
	}
}

// TreeListKey keys list_tree calls by subpath, branch and depth.
func TreeListKey(defaultBranch string) KeyFunc {
	return func(args map[string]any) (string, bool) {
		p, _ := StringArg(args, "path")
		return TreeKey(p, branchArg(args, defaultBranch), IntArg(args, "depth")), true
	}
}

// PRDiffKey keys get_pr_diff calls by pull request number.
func PRDiffKey(args map[string]any) (string, bool) {
	n := IntArg(args, "pr_number")
	if n <= 0 {
		return "", false
	}
	return DiffKey(n), true
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "."
	}
	p = path.Clean(strings.TrimPrefix(p, "/"))
	if p == "/" {
		return "."
	}
	return p
}

func branchArg(args map[string]any, defaultBranch string) string {
	if b, ok := StringArg(args, "branch"); ok && b != "" {
		return b
	}
	return defaultBranch
}

// StringArg reads a string argument with surrounding space trimmed.
func StringArg(args map[string]any, key string) (string, bool) {
	s, ok := args[key].(string)
	return strings.TrimSpace(s), ok
}

// IntArg reads a numeric argument that may have come through JSON.
func IntArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0
		}
		return int(n)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
