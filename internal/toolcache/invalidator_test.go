package toolcache

import (
	"context"
	"errors"
	"testing"
)

func TestOnWrite_ScenarioC(t *testing.T) {
	c := New()
	present := []string{
		"file:a.ts:main",
		"file:b.ts:main",
		"file:a.ts:develop",
		"tree:src:main",
		TreeKey("src", "main", 2),
		TreeKey("", "main", 0),
		TreeKey("src", "develop", 0),
		"diff:7",
		"diff:12",
	}
	for _, k := range present {
		c.Set(k, "v:"+k)
	}

	n := NewInvalidator(c).OnWrite("a.ts", "main")
	if n != 6 {
		t.Fatalf("OnWrite removed %d entries, want 6", n)
	}

	gone := []string{"file:a.ts:main", "tree:src:main", TreeKey("src", "main", 2), TreeKey("", "main", 0), "diff:7", "diff:12"}
	kept := []string{"file:b.ts:main", "file:a.ts:develop", TreeKey("src", "develop", 0)}
	for _, k := range gone {
		if _, ok := c.Get(k); ok {
			t.Errorf("%s should be invalidated", k)
		}
	}
	for _, k := range kept {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s should survive", k)
		}
	}
	for _, k := range []string{"diff:7", "diff:12"} {
		if v, ok := c.Previous(k); !ok || v != "v:"+k {
			t.Errorf("Previous(%s) = %q, %v", k, v, ok)
		}
	}
}

func TestWrapWrite(t *testing.T) {
	tests := []struct {
		name       string
		out        string
		err        error
		invalidate bool
	}{
		{"success", `{"commit":"abc"}`, nil, true},
		{"error-shaped", "Error: conflict", nil, false},
		{"failed", "", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			c.Set(FileKey("a.go", "main"), "old")
			inv := NewInvalidator(c)
			write := inv.WrapWrite(FileWriteTarget("main"), func(ctx context.Context, args map[string]any) (string, error) {
				return tt.out, tt.err
			})

			out, err := write(context.Background(), map[string]any{"path": "a.go"})
			if out != tt.out || !errors.Is(err, tt.err) {
				t.Fatalf("write returned %q, %v", out, err)
			}
			_, cached := c.Get(FileKey("a.go", "main"))
			if cached == tt.invalidate {
				t.Fatalf("cached = %v after %s write", cached, tt.name)
			}
		})
	}
}

func TestFileWriteTarget(t *testing.T) {
	target := FileWriteTarget("main")
	if _, ok := target(map[string]any{}); ok {
		t.Fatal("missing path should yield no target")
	}
	got, ok := target(map[string]any{"path": "x.go", "branch": "fix/1"})
	if !ok || got != (WriteTarget{Path: "x.go", Branch: "fix/1"}) {
		t.Fatalf("target = %+v, %v", got, ok)
	}
}
