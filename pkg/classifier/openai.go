package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/thangchung/coffeeshop-agent/pkg/catalog"
	"github.com/thangchung/coffeeshop-agent/pkg/order"
)

// ProductSource supplies the catalog products the classifier is allowed
// to emit. *catalog.Client satisfies it.
type ProductSource interface {
	ListProducts(ctx context.Context, category order.Category) ([]catalog.Product, error)
}

// OpenAIClassifier extracts orders with a chat model constrained to the
// StructuredOrder JSON schema.
type OpenAIClassifier struct {
	client   openai.Client
	model    string
	products ProductSource
	schema   map[string]any
	logger   *slog.Logger

	clientOpts []option.RequestOption
}

// OpenAIOption configures an OpenAIClassifier.
type OpenAIOption func(*OpenAIClassifier)

// WithBaseURL points the classifier at a non-default model host.
func WithBaseURL(url string) OpenAIOption {
	return func(c *OpenAIClassifier) {
		c.clientOpts = append(c.clientOpts, option.WithBaseURL(url))
	}
}

// WithLogger sets the classifier's logger.
func WithLogger(logger *slog.Logger) OpenAIOption {
	return func(c *OpenAIClassifier) {
		c.logger = logger
	}
}

// NewOpenAIClassifier builds an LLM-backed classifier. The products
// source grounds the prompt; pass nil to use the built-in catalog.
func NewOpenAIClassifier(apiKey, model string, products ProductSource, opts ...OpenAIOption) (*OpenAIClassifier, error) {
	schema, err := orderSchema()
	if err != nil {
		return nil, err
	}

	c := &OpenAIClassifier{
		model:      model,
		products:   products,
		schema:     schema,
		logger:     slog.Default(),
		clientOpts: []option.RequestOption{option.WithAPIKey(apiKey)},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.client = openai.NewClient(c.clientOpts...)
	return c, nil
}

const systemPrompt = `You are the counter of a coffeeshop. Extract the customer's order
from their message. Use only the products listed below; put coffee drinks
in baristaItems and food in kitchenItems. Use the catalog price for each
item and the exact itemType identifier. If the customer asks for nothing
on the menu, return empty lists.

Products:
%s`

// Classify sends the order text to the model and decodes the structured
// response.
func (c *OpenAIClassifier) Classify(ctx context.Context, text string) (*order.StructuredOrder, error) {
	products := c.fetchProducts(ctx)

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(fmt.Sprintf(systemPrompt, formatProducts(products))),
			openai.UserMessage(text),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "structured_order",
					Description: openai.String("The customer's order split by fulfillment category"),
					Schema:      c.schema,
					Strict:      openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("order classification failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("order classification returned no choices")
	}

	var result order.StructuredOrder
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &result); err != nil {
		return nil, fmt.Errorf("order classification returned invalid JSON: %w", err)
	}

	result.Normalize()
	return &result, nil
}

// fetchProducts pulls the live catalog, falling back to the built-in
// product list when the catalog is unreachable.
func (c *OpenAIClassifier) fetchProducts(ctx context.Context) []catalog.Product {
	if c.products == nil {
		return catalog.Products()
	}

	products, err := c.products.ListProducts(ctx, "")
	if err != nil || len(products) == 0 {
		c.logger.Warn("catalog unavailable, using built-in product list", "error", err)
		return catalog.Products()
	}
	return products
}

func formatProducts(products []catalog.Product) string {
	var b strings.Builder
	for _, p := range products {
		category, _ := order.CategoryOf(p.ItemType)
		fmt.Fprintf(&b, "- %s (%s, %s): $%.2f\n", p.Name, p.ItemType, category, p.Price)
	}
	return b.String()
}
