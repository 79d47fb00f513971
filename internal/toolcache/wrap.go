package toolcache

import (
	"context"
	"strings"
)

// ToolFunc is a tool invocation as seen by the wrapping layer.
type ToolFunc func(ctx context.Context, args map[string]any) (string, error)

// ErrorPrefix marks a tool result that reports a failure.
const ErrorPrefix = "Error:"

// IsErrorResult reports whether a tool result is error-shaped.
func IsErrorResult(result string) bool {
	return strings.HasPrefix(strings.TrimSpace(result), ErrorPrefix)
}

// ErrorResult renders a failed call the way tools report failures.
func ErrorResult(err error) string {
	return ErrorPrefix + " " + err.Error()
}

// Wrap puts the cache in front of an idempotent read tool.
//
// Calls for which keyFn returns false go straight to call and are not
// counted. A failing call is cached as an error-shaped string. When the key
// was invalidated before and the fresh result is not an error, the stored and
// returned value is the delta against the preserved previous value.
// Concurrent misses on one key share a single upstream call.
func (c *Cache) Wrap(keyFn KeyFunc, call ToolFunc) ToolFunc {
	return func(ctx context.Context, args map[string]any) (string, error) {
		key, ok := keyFn(args)
		if !ok {
			return call(ctx, args)
		}
		if v, hit := c.Get(key); hit {
			return v, nil
		}

		v, err, _ := c.flight.Do(key, func() (any, error) {
			// Filled by a flight that finished after our lookup.
			if v, ok := c.peek(key); ok {
				return v, nil
			}
			return c.fill(ctx, key, args, call)
		})
		if err != nil {
			return "", err
		}
		return v.(string), nil
	}
}

func (c *Cache) fill(ctx context.Context, key string, args map[string]any, call ToolFunc) (string, error) {
	fresh, err := call(ctx, args)
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		fresh = ErrorResult(err)
	}

	if prev, ok := c.Previous(key); ok && !IsErrorResult(fresh) {
		delta := ComputeDelta(prev, fresh)
		c.setDerived(key, delta, fresh)
		return delta, nil
	}
	c.Set(key, fresh)
	return fresh, nil
}
