package toolcache

import (
	"context"
	"log"
)

// Invalidator drops cache entries made stale by a write.
type Invalidator struct {
	cache *Cache
}

// NewInvalidator binds an invalidator to a run's cache.
func NewInvalidator(cache *Cache) *Invalidator {
	return &Invalidator{cache: cache}
}

// WriteTarget is the resource a write touched.
type WriteTarget struct {
	Path   string
	Branch string
}

// TargetFunc extracts the write target from a write tool's arguments.
type TargetFunc func(args map[string]any) (WriteTarget, bool)

// OnWrite invalidates everything a successful write to (path, branch) can
// affect: that file on that branch, every tree listing of that branch, and
// the diff of every pull request. It returns the number of entries removed.
func (inv *Invalidator) OnWrite(path, branch string) int {
	n := 0
	if inv.cache.Invalidate(FileKey(path, branch)) {
		n++
	}
	n += inv.cache.InvalidateByPrefixAndSuffix(TreePrefix, BranchSuffix(branch))
	n += inv.cache.InvalidateByPrefix(DiffPrefix)
	if n > 0 {
		log.Printf("[ToolCache] Write to %s@%s invalidated %d entries", path, branch, n)
	}
	return n
}

// WrapWrite runs a write tool and invalidates its target once the write has
// succeeded. Failed or error-shaped writes leave the cache alone.
func (inv *Invalidator) WrapWrite(target TargetFunc, call ToolFunc) ToolFunc {
	return func(ctx context.Context, args map[string]any) (string, error) {
		out, err := call(ctx, args)
		if err != nil || IsErrorResult(out) {
			return out, err
		}
		if t, ok := target(args); ok {
			inv.OnWrite(t.Path, t.Branch)
		}
		return out, nil
	}
}

// FileWriteTarget reads path and branch from write_file arguments.
func FileWriteTarget(defaultBranch string) TargetFunc {
	return func(args map[string]any) (WriteTarget, bool) {
		p, ok := StringArg(args, "path")
		if !ok || p == "" {
			return WriteTarget{}, false
		}
		return WriteTarget{Path: p, Branch: branchArg(args, defaultBranch)}, true
	}
}
