package resource

import (
	"os"
	"strings"
)

// TokenSource yields the bearer token for the next request.
// Implementations are consulted on every call and must not cache.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed token.
type StaticToken string

func (s StaticToken) Token() string { return string(s) }

// TokenFunc adapts a plain function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string {
	if f == nil {
		return ""
	}
	return f()
}

// EnvToken reads the named environment variable at call time.
type EnvToken string

func (e EnvToken) Token() string {
	return strings.TrimSpace(os.Getenv(string(e)))
}
