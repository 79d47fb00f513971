package testing

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"

	gh "github.com/google/go-github/v66/github"
)

// MockRepo is the in-memory state behind the mock GitHub API for owner/repo.
type MockRepo struct {
	mu sync.Mutex

	// Files maps branch -> path -> content.
	Files map[string]map[string]string
	// Diffs maps pull request number -> unified diff.
	Diffs map[int]string
	// Requests counts requests per "METHOD /path".
	Requests map[string]int
}

// SetDiff replaces the diff served for a pull request.
func (m *MockRepo) SetDiff(number int, diff string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Diffs[number] = diff
}

// Count returns how many times method+path was requested.
func (m *MockRepo) Count(method, path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Requests[method+" "+path]
}

// NewMockGitHubClient returns a go-github client backed by a local httptest server
// that serves the endpoints used by the repository tools for "owner/repo":
// - GET  /repos/owner/repo/contents/{path}?ref={branch}
// - PUT  /repos/owner/repo/contents/{path} (create or update)
// - GET  /repos/owner/repo/git/trees/{branch}
// - GET  /repos/owner/repo/pulls/{number} (JSON or diff by Accept header)
// - GET  /repos/owner/repo/commits/{sha}/status
// - GET  /repos/owner/repo/installation, POST /app/installations/42/access_tokens
//
// The returned cleanup function must be called to close the server.
func NewMockGitHubClient() (*gh.Client, *MockRepo, func()) {
	repo := &MockRepo{
		Files: map[string]map[string]string{
			"main": {"README.md": "# repo\n", "src/a.go": "package src\n\nvar A = 1\n"},
		},
		Diffs:    map[int]string{},
		Requests: map[string]int{},
	}

	mux := http.NewServeMux()
	record := func(r *http.Request) {
		repo.mu.Lock()
		repo.Requests[r.Method+" "+r.URL.Path]++
		repo.mu.Unlock()
	}
	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	mux.HandleFunc("/repos/owner/repo/contents/", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		path := strings.TrimPrefix(r.URL.Path, "/repos/owner/repo/contents/")
		switch r.Method {
		case http.MethodGet:
			branch := r.URL.Query().Get("ref")
			if branch == "" {
				branch = "main"
			}
			repo.mu.Lock()
			content, ok := repo.Files[branch][path]
			repo.mu.Unlock()
			if !ok {
				writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"type":     "file",
				"encoding": "base64",
				"path":     path,
				"sha":      "sha-" + path,
				"content":  base64.StdEncoding.EncodeToString([]byte(content)),
			})
		case http.MethodPut:
			var body struct {
				Content string `json:"content"`
				Branch  string `json:"branch"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			decoded, _ := base64.StdEncoding.DecodeString(body.Content)
			repo.mu.Lock()
			if repo.Files[body.Branch] == nil {
				repo.Files[body.Branch] = map[string]string{}
			}
			_, existed := repo.Files[body.Branch][path]
			repo.Files[body.Branch][path] = string(decoded)
			repo.mu.Unlock()
			status := http.StatusCreated
			if existed {
				status = http.StatusOK
			}
			writeJSON(w, status, map[string]any{
				"content": map[string]any{"path": path},
				"commit":  map[string]any{"sha": "c0ffee1234567890"},
			})
		default:
			http.Error(w, "method", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/repos/owner/repo/git/trees/", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		branch := strings.TrimPrefix(r.URL.Path, "/repos/owner/repo/git/trees/")
		repo.mu.Lock()
		files, ok := repo.Files[branch]
		var entries []map[string]string
		dirs := map[string]bool{}
		for p := range files {
			entries = append(entries, map[string]string{"path": p, "type": "blob"})
			if i := strings.LastIndex(p, "/"); i > 0 && !dirs[p[:i]] {
				dirs[p[:i]] = true
				entries = append(entries, map[string]string{"path": p[:i], "type": "tree"})
			}
		}
		repo.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sha": "tree-" + branch, "tree": entries, "truncated": false})
	})

	mux.HandleFunc("/repos/owner/repo/pulls/", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		number, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/repos/owner/repo/pulls/"))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		repo.mu.Lock()
		diff, ok := repo.Diffs[number]
		repo.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
			return
		}
		if strings.Contains(r.Header.Get("Accept"), "diff") {
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte(diff))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"number": number,
			"title":  "Fix issue",
			"state":  "open",
			"head":   map[string]any{"ref": "fix/" + strconv.Itoa(number), "sha": "abcdef1234567890"},
		})
	})

	mux.HandleFunc("/repos/owner/repo/commits/", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		if !strings.HasSuffix(r.URL.Path, "/status") {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"state": "pending", "total_count": 2})
	})

	mux.HandleFunc("/repos/owner/repo/installation", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		writeJSON(w, http.StatusOK, map[string]any{"id": 42})
	})

	mux.HandleFunc("/app/installations/42/access_tokens", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		if r.Method != http.MethodPost {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"token": "ghs_installation", "expires_at": "2099-01-01T00:00:00Z"})
	})

	srv := httptest.NewServer(mux)

	client := gh.NewClient(srv.Client())
	base, _ := url.Parse(srv.URL + "/")
	client.BaseURL = base
	client.UploadURL = base

	cleanup := func() { srv.Close() }
	return client, repo, cleanup
}
