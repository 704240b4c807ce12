package counter

import (
	"context"
	"errors"
	"testing"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thangchung/coffeeshop-agent/pkg/auth"
	"github.com/thangchung/coffeeshop-agent/pkg/order"
)

// recordingQueue captures events written by the orchestrator.
type recordingQueue struct {
	events []a2a.Event
}

func (q *recordingQueue) Write(ctx context.Context, event a2a.Event) error {
	q.events = append(q.events, event)
	return nil
}

func (q *recordingQueue) statusStates(t *testing.T) []a2a.TaskState {
	t.Helper()
	var states []a2a.TaskState
	for _, ev := range q.events {
		if status, ok := ev.(*a2a.TaskStatusUpdateEvent); ok {
			states = append(states, status.Status.State)
		}
	}
	return states
}

func (q *recordingQueue) finalEvent(t *testing.T) *a2a.TaskStatusUpdateEvent {
	t.Helper()
	require.NotEmpty(t, q.events)
	status, ok := q.events[len(q.events)-1].(*a2a.TaskStatusUpdateEvent)
	require.True(t, ok, "last event is %T, want status update", q.events[len(q.events)-1])
	require.True(t, status.Final)
	return status
}

func (q *recordingQueue) artifactTexts(t *testing.T) []string {
	t.Helper()
	var texts []string
	for _, ev := range q.events {
		if artifact, ok := ev.(*a2a.TaskArtifactUpdateEvent); ok {
			texts = append(texts, firstTextPart(artifact.Artifact.Parts))
		}
	}
	return texts
}

func finalText(t *testing.T, status *a2a.TaskStatusUpdateEvent) string {
	t.Helper()
	require.NotNil(t, status.Status.Message)
	return firstTextPart(status.Status.Message.Parts)
}

// fakeClassifier returns a fixed order or error.
type fakeClassifier struct {
	order *order.StructuredOrder
	err   error
	calls int
}

func (f *fakeClassifier) Classify(ctx context.Context, text string) (*order.StructuredOrder, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.order, nil
}

// fakeProvider returns a fixed sender map.
type fakeProvider struct {
	senders map[order.Category]Sender
	err     error
	calls   int
}

func (f *fakeProvider) EnsureClients(ctx context.Context) (map[order.Category]Sender, error) {
	f.calls++
	return f.senders, f.err
}

type orchestratorFixture struct {
	orchestrator *Orchestrator
	classifier   *fakeClassifier
	provider     *fakeProvider
	barista      *fakeSender
	kitchen      *fakeSender
	queue        *recordingQueue
}

func newFixture(opts ...OrchestratorOption) *orchestratorFixture {
	barista := &fakeSender{reply: agentReply("brewing")}
	kitchen := &fakeSender{reply: agentReply("baking")}
	cls := &fakeClassifier{order: twoCategoryOrder()}
	provider := &fakeProvider{senders: map[order.Category]Sender{
		order.CategoryBarista: barista,
		order.CategoryKitchen: kitchen,
	}}

	return &orchestratorFixture{
		orchestrator: NewOrchestrator(NewInputValidator(0), cls, provider, NewRouter(nil), opts...),
		classifier:   cls,
		provider:     provider,
		barista:      barista,
		kitchen:      kitchen,
		queue:        &recordingQueue{},
	}
}

func newRequest(text string) *a2asrv.RequestContext {
	return &a2asrv.RequestContext{
		TaskID:    a2a.TaskID("task-1"),
		ContextID: "ctx-1",
		Message:   textMessage(text),
	}
}

func authedContext() context.Context {
	return auth.ContextWithClaims(context.Background(), &auth.Claims{Subject: "customer-1"})
}

func TestExecuteHappyPath(t *testing.T) {
	f := newFixture(WithRequireAuth(true))

	err := f.orchestrator.execute(authedContext(), newRequest("a latte and two muffins"), f.queue)
	require.NoError(t, err)

	states := f.queue.statusStates(t)
	assert.Equal(t, []a2a.TaskState{
		a2a.TaskStateSubmitted,
		a2a.TaskStateWorking,
		a2a.TaskStateCompleted,
	}, states)

	final := f.queue.finalEvent(t)
	assert.Equal(t, a2a.TaskStateCompleted, final.Status.State)
	assert.Contains(t, finalText(t, final), "2 of 2")

	artifacts := f.queue.artifactTexts(t)
	require.Len(t, artifacts, 2)
	assert.Equal(t, "[BARISTA] brewing", artifacts[0])
	assert.Equal(t, "[KITCHEN] baking", artifacts[1])

	assert.Equal(t, 1, f.barista.callCount())
	assert.Equal(t, 1, f.kitchen.callCount())

	// Downstream messages join the counter task's conversation.
	assert.Equal(t, "ctx-1", f.barista.calls[0].Message.ContextID)
	assert.Equal(t, "ctx-1", f.kitchen.calls[0].Message.ContextID)
}

func TestExecuteUnauthenticated(t *testing.T) {
	f := newFixture(WithRequireAuth(true))

	err := f.orchestrator.execute(context.Background(), newRequest("a latte"), f.queue)
	require.NoError(t, err)

	final := f.queue.finalEvent(t)
	assert.Equal(t, a2a.TaskStateAuthRequired, final.Status.State)
	assert.Contains(t, finalText(t, final), "Authentication")

	// Neither validation nor classification nor dispatch ran.
	assert.Equal(t, 0, f.classifier.calls)
	assert.Equal(t, 0, f.provider.calls)
	assert.Equal(t, 0, f.barista.callCount())
}

func TestExecuteInvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		message *a2a.Message
		reason  string
	}{
		{"nil_message", nil, "No message content"},
		{"empty_text", textMessage("  "), "No text content"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			req := &a2asrv.RequestContext{
				TaskID:    a2a.TaskID("task-1"),
				ContextID: "ctx-1",
				Message:   tt.message,
			}

			err := f.orchestrator.execute(context.Background(), req, f.queue)
			require.NoError(t, err)

			final := f.queue.finalEvent(t)
			assert.Equal(t, a2a.TaskStateFailed, final.Status.State)
			assert.Equal(t, tt.reason, finalText(t, final))
			assert.Equal(t, 0, f.classifier.calls)
			assert.Equal(t, 0, f.barista.callCount())
		})
	}
}

func TestExecuteClassifierFallback(t *testing.T) {
	f := newFixture()
	f.classifier.err = errors.New("model host down")

	err := f.orchestrator.execute(context.Background(), newRequest("a latte"), f.queue)
	require.NoError(t, err)

	final := f.queue.finalEvent(t)
	assert.Equal(t, a2a.TaskStateCompleted, final.Status.State)
	assert.Contains(t, finalText(t, final), "couldn't find anything")
	assert.Equal(t, 0, f.barista.callCount())
}

func TestExecuteEmptyOrderCompletes(t *testing.T) {
	f := newFixture()
	f.classifier.order = &order.StructuredOrder{}

	err := f.orchestrator.execute(context.Background(), newRequest("what time do you open?"), f.queue)
	require.NoError(t, err)

	final := f.queue.finalEvent(t)
	assert.Equal(t, a2a.TaskStateCompleted, final.Status.State)
	assert.Equal(t, 0, f.barista.callCount())
}

func TestExecuteCredentialFailureBecomesAuthRequired(t *testing.T) {
	f := newFixture(WithTokenSource(failingTokenSource{}))

	err := f.orchestrator.execute(context.Background(), newRequest("a latte"), f.queue)
	require.NoError(t, err)

	final := f.queue.finalEvent(t)
	assert.Equal(t, a2a.TaskStateAuthRequired, final.Status.State)
	assert.Equal(t, 0, f.barista.callCount())
}

type failingTokenSource struct{}

func (failingTokenSource) Token(ctx context.Context) (string, error) {
	return "", auth.ErrCredential
}

func TestExecuteDownstreamAuthRequired(t *testing.T) {
	f := newFixture()
	f.barista.reply = &a2a.Task{
		ID:     a2a.TaskID("b1"),
		Status: a2a.TaskStatus{State: a2a.TaskStateAuthRequired},
	}
	f.classifier.order = &order.StructuredOrder{
		BaristaItems: []order.LineItem{
			{Name: "latte", ItemType: order.ItemTypeLatte, Quantity: 1, Price: 4.5},
		},
	}

	err := f.orchestrator.execute(context.Background(), newRequest("a latte"), f.queue)
	require.NoError(t, err)

	final := f.queue.finalEvent(t)
	assert.Equal(t, a2a.TaskStateAuthRequired, final.Status.State)
}

func TestExecutePartialDispatchFailure(t *testing.T) {
	f := newFixture()
	f.barista.err = errors.New("connection refused")

	err := f.orchestrator.execute(context.Background(), newRequest("a latte and two muffins"), f.queue)
	require.NoError(t, err)

	final := f.queue.finalEvent(t)
	assert.Equal(t, a2a.TaskStateCompleted, final.Status.State)
	assert.Contains(t, finalText(t, final), "1 of 2")

	artifacts := f.queue.artifactTexts(t)
	require.Len(t, artifacts, 2)
	assert.Contains(t, artifacts[0], "dispatch failed")
	assert.Contains(t, artifacts[1], "baking")
}

func TestExecuteStoredTaskSkipsSubmitted(t *testing.T) {
	f := newFixture()
	req := newRequest("a latte and two muffins")
	req.StoredTask = &a2a.Task{ID: req.TaskID}

	err := f.orchestrator.execute(context.Background(), req, f.queue)
	require.NoError(t, err)

	states := f.queue.statusStates(t)
	assert.Equal(t, []a2a.TaskState{
		a2a.TaskStateWorking,
		a2a.TaskStateCompleted,
	}, states)
}

func TestExecuteGenericFailureHidesDetail(t *testing.T) {
	f := newFixture()
	f.provider.err = errors.New("cache corrupted: secret dsn leaked")

	err := f.orchestrator.execute(context.Background(), newRequest("a latte"), f.queue)
	require.NoError(t, err)

	final := f.queue.finalEvent(t)
	assert.Equal(t, a2a.TaskStateFailed, final.Status.State)
	text := finalText(t, final)
	assert.Equal(t, failureText, text)
	assert.NotContains(t, text, "secret")
}

func TestCancelEmitsCanceled(t *testing.T) {
	f := newFixture()
	req := newRequest("a latte")

	require.NoError(t, f.orchestrator.cancel(context.Background(), req, f.queue))

	final := f.queue.finalEvent(t)
	assert.Equal(t, a2a.TaskStateCanceled, final.Status.State)
}
