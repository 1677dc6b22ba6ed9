package http

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

var (
	ErrClientExists   = errors.New("http: client already registered")
	ErrClientNotFound = errors.New("http: client not registered")
)

// Registry holds named clients. The application owns it and passes it
// where clients are needed; it is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*Client)}
}

// Register adds c under name. A name can only be registered once.
func (r *Registry) Register(name string, c *Client) error {
	if name == "" {
		return fmt.Errorf("client name is required")
	}
	if c == nil {
		return fmt.Errorf("client is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[name]; ok {
		return fmt.Errorf("%w: %q", ErrClientExists, name)
	}
	r.clients[name] = c
	return nil
}

// Get returns the client registered under name.
func (r *Registry) Get(name string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[name]
	return c, ok
}

// MustGet is Get that panics when name is not registered.
func (r *Registry) MustGet(name string) *Client {
	c, ok := r.Get(name)
	if !ok {
		panic(fmt.Errorf("%w: %q", ErrClientNotFound, name))
	}
	return c
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.clients))
}
