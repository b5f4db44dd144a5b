package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenOptions carries the per-request sampling parameters forwarded to the
// upstream provider.
type GenOptions struct {
	Temperature float64
	MaxTokens   int
}

type Provider interface {
	Chat(ctx context.Context, opts GenOptions, messages []Message) (string, error)
}

// StreamProvider is an optional interface. Providers may implement streaming chat.
type StreamProvider interface {
	StreamChat(ctx context.Context, opts GenOptions, messages []Message) (<-chan string, <-chan error)
}

// ProviderFactory builds a provider bound to a specific model identifier.
type ProviderFactory func(ctx context.Context, model string) (Provider, error)

// Registry maps provider names to factories so the orchestrator can pick a
// backend per request.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ProviderFactory)}
}

func (r *Registry) Register(name string, f ProviderFactory) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

func (r *Registry) Get(ctx context.Context, name string, model string) (Provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown ai provider: %s", name)
	}
	return f(ctx, model)
}
