package counter

import (
	"context"
	"log/slog"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/thangchung/coffeeshop-agent/pkg/order"
	"github.com/thangchung/coffeeshop-agent/pkg/registry"
)

// Sender submits one message to a fulfillment agent. *registry.Client
// satisfies it.
type Sender interface {
	Send(ctx context.Context, params *a2a.MessageSendParams) (any, error)
}

// ClientProvider resolves the senders available for dispatch.
type ClientProvider interface {
	EnsureClients(ctx context.Context) (map[order.Category]Sender, error)
}

// Dispatcher fans a structured order out to the fulfillment agents.
type Dispatcher interface {
	Dispatch(ctx context.Context, o *order.StructuredOrder, clients map[order.Category]Sender, contextID, text, token string) ([]DispatchOutcome, error)
}

// Router maps order categories to clients and issues the downstream
// calls concurrently. Outcomes come back in the fixed category order
// regardless of which call finishes first.
type Router struct {
	mapper ResponseMapper
	logger *slog.Logger
}

// NewRouter creates a dispatch router.
func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{logger: logger}
}

// Dispatch sends one message per non-empty category. A category with
// items but no resolved client records a failed outcome; a send error
// records a failed outcome with the error detail. Only an auth-required
// signal from a downstream aborts the remaining aggregation, surfaced
// as the returned error.
func (r *Router) Dispatch(ctx context.Context, o *order.StructuredOrder, clients map[order.Category]Sender, contextID, text, token string) ([]DispatchOutcome, error) {
	type target struct {
		category order.Category
		items    []order.LineItem
		client   Sender
	}

	var targets []target
	for _, category := range order.Categories() {
		items := o.ItemsFor(category)
		if len(items) == 0 {
			continue
		}
		targets = append(targets, target{
			category: category,
			items:    items,
			client:   clients[category],
		})
	}

	// One order id correlates the per-category tasks downstream.
	orderID := uuid.NewString()

	outcomes := make([]DispatchOutcome, len(targets))
	g, gctx := errgroup.WithContext(ctx)

	for i, tgt := range targets {
		if tgt.client == nil {
			outcomes[i] = DispatchOutcome{
				Category:    tgt.category,
				Success:     false,
				ErrorDetail: "no fulfillment agent available",
			}
			r.logger.Warn("category has items but no resolved client", "category", tgt.category)
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			params := &a2a.MessageSendParams{
				Message: buildOrderMessage(contextID, orderID, text, tgt.items, token),
				Config: &a2a.MessageSendConfig{
					Blocking:            boolPtr(true),
					AcceptedOutputModes: []string{"text/plain"},
				},
			}

			reply, err := tgt.client.Send(gctx, params)
			if err != nil {
				r.logger.Error("dispatch call failed",
					"category", tgt.category,
					"error", err,
				)
				outcomes[i] = DispatchOutcome{
					Category:    tgt.category,
					Success:     false,
					ErrorDetail: err.Error(),
				}
				return nil
			}

			outcome, err := r.mapper.Map(tgt.category, reply)
			if err != nil {
				return err
			}
			outcomes[i] = outcome
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// buildOrderMessage constructs the outbound message: the customer text
// as a text part, the category's line items, the order id and a timestamp
// as metadata, and the downstream bearer token under the authorization key.
// The counter task's context id carries over so downstream tasks join the
// same conversation.
func buildOrderMessage(contextID, orderID, text string, items []order.LineItem, token string) *a2a.Message {
	msg := a2a.NewMessage(a2a.MessageRoleUser, a2a.TextPart{Text: text})
	msg.ContextID = contextID

	meta := map[string]any{
		"order_id":  orderID,
		"items":     items,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if token != "" {
		meta["authorization"] = token
	}
	msg.Metadata = meta
	return msg
}

// boolPtr returns a pointer to the given bool value.
func boolPtr(b bool) *bool {
	return &b
}

// RegistryProvider adapts a *registry.Registry to the ClientProvider
// interface.
type RegistryProvider struct {
	Registry *registry.Registry
}

func (p RegistryProvider) EnsureClients(ctx context.Context) (map[order.Category]Sender, error) {
	clients, err := p.Registry.EnsureClients(ctx)
	if err != nil {
		return nil, err
	}

	senders := make(map[order.Category]Sender, len(clients))
	for category, client := range clients {
		senders[category] = client
	}
	return senders, nil
}
