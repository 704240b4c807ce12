// Package classifier turns free-form order text into a StructuredOrder.
//
// Two implementations exist: an LLM-backed classifier for real
// deployments and a keyword matcher for offline development. Both
// produce the same wire schema, and both ground their output in the
// product catalog so item types and prices stay within the closed set.
package classifier

import (
	"context"

	"github.com/thangchung/coffeeshop-agent/pkg/order"
)

// Classifier extracts a structured order from natural language text.
type Classifier interface {
	Classify(ctx context.Context, text string) (*order.StructuredOrder, error)
}
