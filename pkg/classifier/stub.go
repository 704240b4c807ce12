package classifier

import (
	"context"
	"sort"
	"strings"

	"github.com/thangchung/coffeeshop-agent/pkg/catalog"
	"github.com/thangchung/coffeeshop-agent/pkg/order"
)

// StubClassifier matches catalog product names in the order text. It
// keeps the demo running without a model host: "order a black coffee"
// yields one COFFEE_BLACK line item at the catalog price.
type StubClassifier struct {
	products []catalog.Product
}

// NewStubClassifier builds a keyword classifier over the given products,
// or the built-in catalog when products is empty.
func NewStubClassifier(products []catalog.Product) *StubClassifier {
	if len(products) == 0 {
		products = catalog.Products()
	}
	return &StubClassifier{products: products}
}

// Classify scans the text for product names. Longer names are matched
// first so "chocolate croissant" does not also count as "croissant".
func (s *StubClassifier) Classify(ctx context.Context, text string) (*order.StructuredOrder, error) {
	lower := strings.ToLower(text)
	result := &order.StructuredOrder{
		BaristaItems: []order.LineItem{},
		KitchenItems: []order.LineItem{},
	}

	for _, p := range longestFirst(s.products) {
		name := strings.ToLower(p.Name)
		if !strings.Contains(lower, name) {
			continue
		}
		lower = strings.ReplaceAll(lower, name, "")

		item := order.LineItem{
			Name:     p.Name,
			ItemType: p.ItemType,
			Quantity: 1,
			Price:    p.Price,
		}
		switch c, _ := order.CategoryOf(p.ItemType); c {
		case order.CategoryBarista:
			result.BaristaItems = append(result.BaristaItems, item)
		case order.CategoryKitchen:
			result.KitchenItems = append(result.KitchenItems, item)
		}
	}

	return result, nil
}

func longestFirst(products []catalog.Product) []catalog.Product {
	sorted := make([]catalog.Product, len(products))
	copy(sorted, products)
	sort.Slice(sorted, func(i, j int) bool {
		return len(sorted[i].Name) > len(sorted[j].Name)
	})
	return sorted
}
