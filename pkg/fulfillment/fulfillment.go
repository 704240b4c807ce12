// Package fulfillment implements the barista and kitchen agents. Both run
// the same executor: verify the order token the counter relays in message
// metadata, decode the line items for their station, simulate preparation
// and complete the task with an acknowledgment artifact.
package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/a2aproject/a2a-go/a2asrv/eventqueue"

	"github.com/thangchung/coffeeshop-agent/pkg/auth"
	"github.com/thangchung/coffeeshop-agent/pkg/order"
)

// metadata keys set by the counter on dispatched messages.
const (
	metaKeyItems         = "items"
	metaKeyAuthorization = "authorization"
)

// eventWriter is the part of eventqueue.Queue the executor needs.
type eventWriter interface {
	Write(ctx context.Context, event a2a.Event) error
}

// Executor fulfills dispatched orders for a single station.
type Executor struct {
	station   string
	category  order.Category
	validator auth.TokenValidator
	delay     time.Duration
	logger    *slog.Logger
}

var _ a2asrv.AgentExecutor = (*Executor)(nil)

type Option func(*Executor)

// WithValidator enables order token verification. Messages without a valid
// bearer token in metadata are rejected with an auth-required state.
func WithValidator(v auth.TokenValidator) Option {
	return func(e *Executor) { e.validator = v }
}

// WithPrepDelay holds the task in the working state for d before completing.
func WithPrepDelay(d time.Duration) Option {
	return func(e *Executor) { e.delay = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) { e.logger = logger }
}

// NewBarista returns the executor for drink orders.
func NewBarista(opts ...Option) *Executor {
	return newExecutor("barista", order.CategoryBarista, opts)
}

// NewKitchen returns the executor for food orders.
func NewKitchen(opts ...Option) *Executor {
	return newExecutor("kitchen", order.CategoryKitchen, opts)
}

func newExecutor(station string, category order.Category, opts []Option) *Executor {
	e := &Executor{
		station:  station,
		category: category,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) Execute(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	return e.execute(ctx, reqCtx, queue)
}

func (e *Executor) execute(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventWriter) error {
	if reqCtx.StoredTask == nil {
		ev := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateSubmitted, nil)
		if err := queue.Write(ctx, ev); err != nil {
			return fmt.Errorf("failed to write submitted event: %w", err)
		}
	}

	if err := e.verifyOrderToken(ctx, reqCtx.Message); err != nil {
		e.logger.Warn("rejecting order without valid token",
			"station", e.station,
			"task_id", reqCtx.TaskID,
			"error", err,
		)
		return e.finish(ctx, reqCtx, queue, a2a.TaskStateAuthRequired,
			"A valid order token is required.")
	}

	working := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateWorking,
		a2a.NewMessageForTask(a2a.MessageRoleAgent, reqCtx,
			a2a.TextPart{Text: fmt.Sprintf("Preparing your %s order.", e.station)}))
	if err := queue.Write(ctx, working); err != nil {
		return fmt.Errorf("failed to write working event: %w", err)
	}

	items := e.stationItems(reqCtx)
	e.logger.Info("preparing order",
		"station", e.station,
		"task_id", reqCtx.TaskID,
		"items", len(items),
	)

	if e.delay > 0 {
		timer := time.NewTimer(e.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	artifact := a2a.NewArtifactEvent(reqCtx, a2a.TextPart{Text: e.acknowledgment(items)})
	if err := queue.Write(ctx, artifact); err != nil {
		return fmt.Errorf("failed to write artifact event: %w", err)
	}

	return e.finish(ctx, reqCtx, queue, a2a.TaskStateCompleted, e.acknowledgment(items))
}

func (e *Executor) Cancel(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	ev := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateCanceled, nil)
	ev.Final = true
	return queue.Write(ctx, ev)
}

// verifyOrderToken checks the bearer token the counter forwards under
// message metadata. A nil validator disables the check for local demos.
func (e *Executor) verifyOrderToken(ctx context.Context, msg *a2a.Message) error {
	if e.validator == nil {
		return nil
	}
	if msg == nil || msg.Metadata == nil {
		return fmt.Errorf("%w: no order token", auth.ErrUnauthorized)
	}
	token, ok := msg.Metadata[metaKeyAuthorization].(string)
	if !ok || token == "" {
		return fmt.Errorf("%w: no order token", auth.ErrUnauthorized)
	}
	if _, err := e.validator.ValidateToken(ctx, token); err != nil {
		return err
	}
	return nil
}

// stationItems decodes the dispatched line items and keeps the ones this
// station can make. Items arrive typed when dispatched in-process and as
// decoded JSON when they crossed the wire.
func (e *Executor) stationItems(reqCtx *a2asrv.RequestContext) []order.LineItem {
	if reqCtx.Message == nil || reqCtx.Message.Metadata == nil {
		return nil
	}

	decoded := decodeItems(reqCtx.Message.Metadata[metaKeyItems])
	items := make([]order.LineItem, 0, len(decoded))
	for _, item := range decoded {
		category, known := order.CategoryOf(item.ItemType)
		if !known || category != e.category {
			e.logger.Warn("dropping item for wrong station",
				"station", e.station,
				"item_type", item.ItemType,
			)
			continue
		}
		items = append(items, item)
	}
	return items
}

func decodeItems(v any) []order.LineItem {
	switch items := v.(type) {
	case nil:
		return nil
	case []order.LineItem:
		return items
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		var decoded []order.LineItem
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil
		}
		return decoded
	}
}

func (e *Executor) acknowledgment(items []order.LineItem) string {
	if len(items) == 0 {
		return fmt.Sprintf("Nothing to prepare at the %s.", e.station)
	}
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.String()
	}
	return fmt.Sprintf("Your %s order is ready: %s.", e.station, strings.Join(parts, ", "))
}

func (e *Executor) finish(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventWriter, state a2a.TaskState, text string) error {
	msg := a2a.NewMessageForTask(a2a.MessageRoleAgent, reqCtx, a2a.TextPart{Text: text})
	ev := a2a.NewStatusUpdateEvent(reqCtx, state, msg)
	ev.Final = true
	if err := queue.Write(ctx, ev); err != nil {
		return fmt.Errorf("failed to write terminal event: %w", err)
	}
	return nil
}
