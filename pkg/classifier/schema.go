package classifier

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/thangchung/coffeeshop-agent/pkg/order"
)

// orderSchema reflects the StructuredOrder wire schema into a JSON
// schema map for the model's structured output constraint.
func orderSchema() (map[string]any, error) {
	reflector := &jsonschema.Reflector{
		// Inline everything, no $ref lookups for the model to follow.
		DoNotReference: true,

		// Strict structured output requires a closed object shape.
		AllowAdditionalProperties: false,
	}

	schema := reflector.Reflect(&order.StructuredOrder{})

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order schema: %w", err)
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to convert order schema: %w", err)
	}

	delete(result, "$schema")
	delete(result, "$id")
	return result, nil
}
