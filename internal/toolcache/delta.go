package toolcache

import (
	"fmt"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

const (
	fileBoundary = "diff --git "
	// NoChanges is the whole delta when nothing was added or changed.
	NoChanges = "No changes since last review."
	// wholeDiffName names the single section of text without file markers.
	wholeDiffName = "(diff)"
)

// FileSection is the raw text of one file inside a multi-file diff.
type FileSection struct {
	Name string
	Text string
}

// ParseIntoFiles splits a unified multi-file diff on "diff --git" lines.
// Text before the first marker is dropped; text without any marker is
// returned as a single section.
func ParseIntoFiles(diffText string) []FileSection {
	if !strings.HasPrefix(diffText, fileBoundary) && !strings.Contains(diffText, "\n"+fileBoundary) {
		if diffText == "" {
			return nil
		}
		return []FileSection{{Name: wholeDiffName, Text: diffText}}
	}

	var sections []FileSection
	var current strings.Builder
	inFile := false
	flush := func() {
		if !inFile {
			return
		}
		text := current.String()
		sections = append(sections, FileSection{Name: sectionName(text), Text: text})
		current.Reset()
	}

	for _, line := range strings.SplitAfter(diffText, "\n") {
		if strings.HasPrefix(line, fileBoundary) {
			flush()
			inFile = true
		}
		if inFile {
			current.WriteString(line)
		}
	}
	flush()
	return sections
}

// sectionName resolves the file a section describes: the new name, or the
// original name for deletions. Only the side's own "b/" or "a/" prefix is
// stripped, so a top-level directory named a/ or b/ survives.
func sectionName(section string) string {
	if fd, err := diff.ParseFileDiff([]byte(section)); err == nil && fd != nil {
		if name, ok := sideName(fd.NewName, "b/"); ok {
			return name
		}
		if name, ok := sideName(fd.OrigName, "a/"); ok {
			return name
		}
	}
	return headerName(section)
}

func sideName(name, prefix string) (string, bool) {
	if name == "" || name == "/dev/null" {
		return "", false
	}
	name = strings.TrimPrefix(name, prefix)
	return name, name != ""
}

// headerName reads the b/ path from the "diff --git a/x b/y" line.
func headerName(section string) string {
	header, _, _ := strings.Cut(section, "\n")
	header = strings.TrimSpace(strings.TrimPrefix(header, fileBoundary))
	if i := strings.LastIndex(header, " b/"); i >= 0 {
		return header[i+len(" b/"):]
	}
	return header
}

// ComputeDelta reduces current to the files that are new or changed compared
// with previous. Unchanged files are listed once in the header; files that
// only exist in previous are not reported.
func ComputeDelta(previous, current string) string {
	prev := make(map[string]string)
	for _, s := range ParseIntoFiles(previous) {
		prev[s.Name] = s.Text
	}

	var body strings.Builder
	var unchanged []string
	seen := make(map[string]bool)
	added, changed := 0, 0

	for _, s := range ParseIntoFiles(current) {
		old, existed := prev[s.Name]
		switch {
		case !existed:
			added++
			fmt.Fprintf(&body, "=== NEW FILE: %s ===\n%s", s.Name, withNewline(s.Text))
		case old != s.Text:
			changed++
			fmt.Fprintf(&body, "=== CHANGED: %s ===\n%s", s.Name, withNewline(s.Text))
		case !seen[s.Name]:
			unchanged = append(unchanged, s.Name)
		}
		seen[s.Name] = true
	}

	if added+changed == 0 {
		return NoChanges
	}

	var out strings.Builder
	fmt.Fprintf(&out, "Changes since last review: %d new, %d changed, %d unchanged (omitted).\n", added, changed, len(unchanged))
	if len(unchanged) > 0 {
		fmt.Fprintf(&out, "Unchanged files (omitted): %s\n", strings.Join(unchanged, ", "))
	}
	out.WriteString("\n")
	out.WriteString(body.String())
	return out.String()
}

func withNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
