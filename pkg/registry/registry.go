// Package registry resolves and caches A2A clients for the fulfillment
// agents. Resolution fetches the agent card from the service's
// well-known endpoint; resolved clients are reused for the lifetime of
// the registry so repeated orders do not re-fetch descriptors.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2aclient"
	"github.com/a2aproject/a2a-go/a2aclient/agentcard"

	"github.com/thangchung/coffeeshop-agent/pkg/auth"
	"github.com/thangchung/coffeeshop-agent/pkg/order"
)

// Client wraps a resolved a2aclient.Client for one fulfillment category.
type Client struct {
	category order.Category
	card     *a2a.AgentCard
	rpc      *a2aclient.Client
}

// Category returns the fulfillment category this client serves.
func (c *Client) Category() order.Category {
	return c.category
}

// Card returns the resolved agent card.
func (c *Client) Card() *a2a.AgentCard {
	return c.card
}

// Send submits a message to the fulfillment agent. The result is the
// SDK's send result: a *a2a.Task or a *a2a.Message depending on how the
// remote answered.
func (c *Client) Send(ctx context.Context, params *a2a.MessageSendParams) (any, error) {
	result, err := c.rpc.SendMessage(ctx, params)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Destroy releases the underlying client's resources.
func (c *Client) Destroy() {
	c.rpc.Destroy()
}

// Registry caches one Client per fulfillment category.
type Registry struct {
	endpoints map[order.Category]string
	resolver  *agentcard.Resolver
	logger    *slog.Logger

	mu      sync.RWMutex
	clients map[order.Category]*Client
}

// Option configures a Registry.
type Option func(*Registry)

// WithResolver overrides the agent card resolver.
func WithResolver(r *agentcard.Resolver) Option {
	return func(reg *Registry) {
		reg.resolver = r
	}
}

// WithLogger sets the registry's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(reg *Registry) {
		reg.logger = logger
	}
}

// New creates a registry over the configured category endpoints.
// When a token source is given, card resolution authenticates with it.
func New(endpoints map[order.Category]string, tokens auth.TokenSource, opts ...Option) *Registry {
	r := &Registry{
		endpoints: endpoints,
		resolver:  agentcard.DefaultResolver,
		logger:    slog.Default(),
		clients:   make(map[order.Category]*Client),
	}
	if tokens != nil {
		r.resolver = agentcard.NewResolver(auth.HTTPClient(tokens))
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EnsureClients returns a ready client for every reachable category, in
// the fixed category order. Categories whose agent cannot be resolved
// are logged and skipped; the order still goes out to the rest.
func (r *Registry) EnsureClients(ctx context.Context) (map[order.Category]*Client, error) {
	ready := make(map[order.Category]*Client)

	for _, category := range order.Categories() {
		url, configured := r.endpoints[category]
		if !configured {
			continue
		}

		client, err := r.ensureClient(ctx, category, url)
		if err != nil {
			r.logger.Warn("fulfillment agent unavailable",
				"category", category,
				"url", url,
				"error", err,
			)
			continue
		}
		ready[category] = client
	}

	return ready, nil
}

// ensureClient returns the cached client for a category, resolving it
// first when absent.
func (r *Registry) ensureClient(ctx context.Context, category order.Category, url string) (*Client, error) {
	r.mu.RLock()
	client, ok := r.clients[category]
	r.mu.RUnlock()
	if ok {
		return client, nil
	}

	card, err := r.resolver.Resolve(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve agent card: %w", err)
	}

	rpc, err := a2aclient.NewFromCard(ctx, card)
	if err != nil {
		return nil, fmt.Errorf("failed to create a2a client: %w", err)
	}

	fresh := &Client{category: category, card: card, rpc: rpc}

	r.mu.Lock()
	if existing, ok := r.clients[category]; ok {
		// Another goroutine resolved the same category concurrently.
		r.mu.Unlock()
		fresh.Destroy()
		return existing, nil
	}
	r.clients[category] = fresh
	r.mu.Unlock()

	r.logger.Info("fulfillment agent resolved",
		"category", category,
		"agent", card.Name,
		"url", url,
	)
	return fresh, nil
}

// Close destroys all cached clients.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for category, client := range r.clients {
		client.Destroy()
		delete(r.clients, category)
	}
}
