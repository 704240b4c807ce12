package counter

import (
	"fmt"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/thangchung/coffeeshop-agent/pkg/auth"
	"github.com/thangchung/coffeeshop-agent/pkg/order"
)

// DispatchOutcome is the normalized result of one downstream call.
type DispatchOutcome struct {
	Category    order.Category
	Success     bool
	Message     string
	ErrorDetail string
}

// Summary renders the outcome as artifact text.
func (o DispatchOutcome) Summary() string {
	if o.Success {
		return fmt.Sprintf("[%s] %s", o.Category, o.Message)
	}
	return fmt.Sprintf("[%s] dispatch failed: %s", o.Category, o.ErrorDetail)
}

// ResponseMapper normalizes the reply shapes a fulfillment agent can
// produce into one DispatchOutcome.
type ResponseMapper struct{}

// Map converts a downstream reply. A task reply in the auth-required
// state returns an error wrapping auth.ErrUnauthorized: the caller must
// re-authenticate against that downstream, not treat it as an ordinary
// failure.
func (m ResponseMapper) Map(category order.Category, reply any) (DispatchOutcome, error) {
	switch r := reply.(type) {
	case *a2a.Task:
		if r.Status.State == a2a.TaskStateAuthRequired {
			return DispatchOutcome{}, fmt.Errorf("%w: %s agent requires authentication", auth.ErrUnauthorized, category)
		}

		text := firstArtifactText(r)
		if text == "" && r.Status.Message != nil {
			text = firstTextPart(r.Status.Message.Parts)
		}
		if text == "" {
			text = fmt.Sprintf("task %s is %s", r.ID, r.Status.State)
		}
		return DispatchOutcome{
			Category: category,
			Success:  true,
			Message:  text,
		}, nil

	case *a2a.Message:
		text := firstTextPart(r.Parts)
		if text == "" {
			text = "No response content"
		}
		return DispatchOutcome{
			Category: category,
			Success:  true,
			Message:  text,
		}, nil

	default:
		return DispatchOutcome{
			Category:    category,
			Success:     false,
			ErrorDetail: fmt.Sprintf("unexpected reply type %T", reply),
		}, nil
	}
}

// firstArtifactText returns the first text part across the task's
// artifacts.
func firstArtifactText(task *a2a.Task) string {
	for _, artifact := range task.Artifacts {
		if artifact == nil {
			continue
		}
		if text := firstTextPart(artifact.Parts); text != "" {
			return text
		}
	}
	return ""
}
