// Package counter implements the counter agent: the order intake state
// machine that validates customer text, classifies it into a structured
// order, fans the order out to the fulfillment agents, and reports the
// aggregated result back over the task protocol.
package counter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/a2aproject/a2a-go/a2asrv/eventqueue"

	"github.com/thangchung/coffeeshop-agent/pkg/auth"
	"github.com/thangchung/coffeeshop-agent/pkg/classifier"
	"github.com/thangchung/coffeeshop-agent/pkg/order"
)

// failureText is the only failure detail callers ever see. The real
// cause is logged, never returned.
const failureText = "The order could not be processed. Please try again later."

// eventWriter is the slice of eventqueue.Queue the orchestrator needs.
// Narrowing it here keeps the pipeline testable with a recording fake.
type eventWriter interface {
	Write(ctx context.Context, event a2a.Event) error
}

// CallerIdentity is the authenticated caller of a task, extracted once
// at the entry point so the gate below is a pure function of its input.
type CallerIdentity struct {
	Authenticated bool
	Subject       string
}

// Orchestrator drives the order task lifecycle. It implements
// a2asrv.AgentExecutor; every downstream concern is an injected
// collaborator so each gate is testable in isolation.
type Orchestrator struct {
	validator  Validator
	classifier classifier.Classifier
	clients    ClientProvider
	router     Dispatcher
	tokens     auth.TokenSource

	requireAuth bool
	logger      *slog.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithTokenSource sets the credential source for downstream calls.
func WithTokenSource(tokens auth.TokenSource) OrchestratorOption {
	return func(o *Orchestrator) {
		o.tokens = tokens
	}
}

// WithRequireAuth requires an authenticated caller before any
// processing happens.
func WithRequireAuth(require bool) OrchestratorOption {
	return func(o *Orchestrator) {
		o.requireAuth = require
	}
}

// WithLogger sets the orchestrator's logger.
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// NewOrchestrator wires the counter pipeline.
func NewOrchestrator(validator Validator, cls classifier.Classifier, clients ClientProvider, router Dispatcher, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		validator:  validator,
		classifier: cls,
		clients:    clients,
		router:     router,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

var _ a2asrv.AgentExecutor = (*Orchestrator)(nil)

// Execute implements a2asrv.AgentExecutor. Event sequence:
//   - new task: submitted
//   - unauthenticated caller: auth-required, final
//   - invalid input: failed with the specific reason, final
//   - otherwise: working, one artifact per dispatch outcome, then
//     completed (or auth-required / failed), final
func (o *Orchestrator) Execute(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	return o.execute(ctx, reqCtx, queue)
}

func (o *Orchestrator) execute(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventWriter) error {
	identity := o.identify(ctx)

	if reqCtx.StoredTask == nil {
		ev := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateSubmitted, nil)
		if err := queue.Write(ctx, ev); err != nil {
			return fmt.Errorf("failed to write submitted event: %w", err)
		}
	}

	if o.requireAuth && !identity.Authenticated {
		o.logger.Info("rejecting unauthenticated order", "task_id", reqCtx.TaskID)
		return o.finish(ctx, reqCtx, queue, a2a.TaskStateAuthRequired,
			"Authentication is required to place an order.")
	}

	if err := o.process(ctx, reqCtx, queue, identity); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, auth.ErrUnauthorized) || errors.Is(err, auth.ErrCredential) {
			o.logger.Warn("downstream authentication failed",
				"task_id", reqCtx.TaskID,
				"error", err,
			)
			return o.finish(ctx, reqCtx, queue, a2a.TaskStateAuthRequired,
				"Authentication with a fulfillment service failed.")
		}

		// The cause stays in the log; callers get the generic text.
		o.logger.Error("order processing failed",
			"task_id", reqCtx.TaskID,
			"caller", identity.Subject,
			"error", err,
		)
		return o.finish(ctx, reqCtx, queue, a2a.TaskStateFailed, failureText)
	}
	return nil
}

// Cancel implements a2asrv.AgentExecutor.
func (o *Orchestrator) Cancel(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	return o.cancel(ctx, reqCtx, queue)
}

func (o *Orchestrator) cancel(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventWriter) error {
	ev := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateCanceled, nil)
	ev.Final = true
	return queue.Write(ctx, ev)
}

// process runs validation through completion. It emits terminal events
// itself for the outcomes it owns (invalid input, empty order, success)
// and returns an error for the ones Execute maps to a terminal state.
func (o *Orchestrator) process(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventWriter, identity CallerIdentity) error {
	result := o.validator.Validate(reqCtx.Message)
	if !result.Valid {
		o.logger.Info("order rejected by validation",
			"task_id", reqCtx.TaskID,
			"reason", result.ErrorMessage,
		)
		return o.finish(ctx, reqCtx, queue, a2a.TaskStateFailed, result.ErrorMessage)
	}

	o.logger.Debug("processing order",
		"task_id", reqCtx.TaskID,
		"caller", identity.Subject,
		"chars", len(result.SanitizedText),
	)

	workingMsg := a2a.NewMessageForTask(a2a.MessageRoleAgent, reqCtx,
		a2a.TextPart{Text: "Processing your order."})
	if err := queue.Write(ctx, a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateWorking, workingMsg)); err != nil {
		return fmt.Errorf("failed to write working event: %w", err)
	}

	clients, err := o.clients.EnsureClients(ctx)
	if err != nil {
		return fmt.Errorf("client resolution failed: %w", err)
	}

	var token string
	if o.tokens != nil {
		token, err = o.tokens.Token(ctx)
		if err != nil {
			return err
		}
	}

	ord := o.classify(ctx, result.SanitizedText, reqCtx)
	if err := ctx.Err(); err != nil {
		return err
	}

	if ord.Empty() {
		return o.finish(ctx, reqCtx, queue, a2a.TaskStateCompleted,
			"We couldn't find anything from our menu in your order.")
	}

	outcomes, err := o.router.Dispatch(ctx, ord, clients, reqCtx.ContextID, result.SanitizedText, token)
	if err != nil {
		return err
	}

	succeeded := 0
	for _, outcome := range outcomes {
		if outcome.Success {
			succeeded++
		}
		ev := a2a.NewArtifactEvent(reqCtx, a2a.TextPart{Text: outcome.Summary()})
		if err := queue.Write(ctx, ev); err != nil {
			return fmt.Errorf("failed to write artifact event: %w", err)
		}
	}

	summary := fmt.Sprintf("Order placed: %d of %d item groups dispatched.", succeeded, len(outcomes))
	return o.finish(ctx, reqCtx, queue, a2a.TaskStateCompleted, summary)
}

// classify invokes the classification collaborator. Any failure falls
// back to an empty order so the task completes instead of failing; the
// classifier_fallback attribute keeps the two cases distinguishable in
// the logs.
func (o *Orchestrator) classify(ctx context.Context, text string, reqCtx *a2asrv.RequestContext) *order.StructuredOrder {
	ord, err := o.classifier.Classify(ctx, text)
	if err != nil || ord == nil {
		o.logger.Warn("classification failed, substituting empty order",
			"task_id", reqCtx.TaskID,
			"classifier_fallback", true,
			"error", err,
		)
		return &order.StructuredOrder{}
	}

	ord.Normalize()
	return ord
}

// finish emits a final status update with the given state and text.
func (o *Orchestrator) finish(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventWriter, state a2a.TaskState, text string) error {
	msg := a2a.NewMessageForTask(a2a.MessageRoleAgent, reqCtx, a2a.TextPart{Text: text})
	ev := a2a.NewStatusUpdateEvent(reqCtx, state, msg)
	ev.Final = true
	if err := queue.Write(ctx, ev); err != nil {
		return fmt.Errorf("failed to write %s event: %w", state, err)
	}
	return nil
}

// identify extracts the caller identity placed in the context by the
// auth middleware and interceptor.
func (o *Orchestrator) identify(ctx context.Context) CallerIdentity {
	if claims := auth.ClaimsFromContext(ctx); claims != nil {
		return CallerIdentity{Authenticated: true, Subject: claims.Subject}
	}
	return CallerIdentity{}
}
