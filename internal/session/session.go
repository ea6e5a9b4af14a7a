// Package session models per-client session storage as an explicit
// capability so handlers can be tested against an in-memory fake.
package session

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Keys written by the OAuth flow.
const (
	KeyOAuthState  = "oauth_state"
	KeyGitHubToken = "github_token"
	KeyGitHubUser  = "github_user"
)

// Store is the session capability handed to handlers: string keys and
// values, persisted when Save is called.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
	Save() error
}

// Provider yields the store bound to one request.
type Provider func(c *gin.Context) Store

// FromContext returns the cookie-backed store for the current request.
// It is the production Provider.
func FromContext(c *gin.Context) Store {
	return &cookieStore{s: sessions.Default(c)}
}

type cookieStore struct {
	s sessions.Session
}

func (c *cookieStore) Get(key string) (string, bool) {
	v := c.s.Get(key)
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

func (c *cookieStore) Set(key, value string) {
	c.s.Set(key, value)
}

func (c *cookieStore) Delete(key string) {
	c.s.Delete(key)
}

func (c *cookieStore) Save() error {
	return c.s.Save()
}

// Memory is an in-memory Store for tests.
type Memory struct {
	Values map[string]string
	Saves  int
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{Values: map[string]string{}}
}

func (m *Memory) Get(key string) (string, bool) {
	v, ok := m.Values[key]
	return v, ok && v != ""
}

func (m *Memory) Set(key, value string) {
	m.Values[key] = value
}

func (m *Memory) Delete(key string) {
	delete(m.Values, key)
}

func (m *Memory) Save() error {
	m.Saves++
	return nil
}
