package github

import (
	gh "github.com/google/go-github/v66/github"
)

var clientFactory = func(token string) *gh.Client {
	return gh.NewClient(nil).WithAuthToken(token)
}

// SetGitHubClientFactory replaces how clients are built; tests point it at
// an httptest server.
func SetGitHubClientFactory(f func(token string) *gh.Client) {
	clientFactory = f
}

// NewClient returns a go-github client authenticated with token.
func NewClient(token string) *gh.Client {
	return clientFactory(token)
}
