// Package order defines the structured coffeeshop order model shared by the
// counter, classifier, and fulfillment services.
//
// A StructuredOrder is the contract between the classification collaborator
// and the dispatch pipeline: line items partitioned into fulfillment
// categories, each item carrying a closed-set product identifier, a display
// name, a quantity, and a catalog price.
package order

import "fmt"

// Category identifies a fulfillment grouping routed to a distinct
// downstream service.
type Category string

const (
	CategoryBarista Category = "BARISTA"
	CategoryKitchen Category = "KITCHEN"
)

// Categories returns all fulfillment categories in their fixed routing
// order. Dispatch outcomes and task artifacts follow this order.
func Categories() []Category {
	return []Category{CategoryBarista, CategoryKitchen}
}

// ItemType is a product identifier from the closed catalog set.
type ItemType string

const (
	ItemTypeCoffeeBlack        ItemType = "COFFEE_BLACK"
	ItemTypeCoffeeWithRoom     ItemType = "COFFEE_WITH_ROOM"
	ItemTypeEspresso           ItemType = "ESPRESSO"
	ItemTypeEspressoDouble     ItemType = "ESPRESSO_DOUBLE"
	ItemTypeLatte              ItemType = "LATTE"
	ItemTypeCappuccino         ItemType = "CAPPUCCINO"
	ItemTypeCakepop            ItemType = "CAKEPOP"
	ItemTypeCroissant          ItemType = "CROISSANT"
	ItemTypeMuffin             ItemType = "MUFFIN"
	ItemTypeCroissantChocolate ItemType = "CROISSANT_CHOCOLATE"
)

// categoryByType maps every known product identifier to the service that
// fulfills it.
var categoryByType = map[ItemType]Category{
	ItemTypeCoffeeBlack:        CategoryBarista,
	ItemTypeCoffeeWithRoom:     CategoryBarista,
	ItemTypeEspresso:           CategoryBarista,
	ItemTypeEspressoDouble:     CategoryBarista,
	ItemTypeLatte:              CategoryBarista,
	ItemTypeCappuccino:         CategoryBarista,
	ItemTypeCakepop:            CategoryKitchen,
	ItemTypeCroissant:          CategoryKitchen,
	ItemTypeMuffin:             CategoryKitchen,
	ItemTypeCroissantChocolate: CategoryKitchen,
}

// CategoryOf returns the fulfillment category for a product identifier.
// The second return value is false for identifiers outside the catalog set.
func CategoryOf(t ItemType) (Category, bool) {
	c, ok := categoryByType[t]
	return c, ok
}

// KnownItemTypes returns the closed set of product identifiers.
func KnownItemTypes() []ItemType {
	return []ItemType{
		ItemTypeCoffeeBlack,
		ItemTypeCoffeeWithRoom,
		ItemTypeEspresso,
		ItemTypeEspressoDouble,
		ItemTypeLatte,
		ItemTypeCappuccino,
		ItemTypeCakepop,
		ItemTypeCroissant,
		ItemTypeMuffin,
		ItemTypeCroissantChocolate,
	}
}

// LineItem is one ordered product.
type LineItem struct {
	// Name is the human-readable label, as the customer phrased it.
	Name string `json:"name"`

	// ItemType is the catalog product identifier.
	ItemType ItemType `json:"itemType"`

	// Quantity is a positive count, defaulting to 1 when the customer
	// did not specify one.
	Quantity int `json:"quantity"`

	// Price is the per-unit catalog price. Never negative.
	Price float64 `json:"price"`
}

func (li LineItem) String() string {
	return fmt.Sprintf("%dx %s ($%.2f)", li.Quantity, li.Name, li.Price)
}

// StructuredOrder is the classifier's output: line items partitioned by
// fulfillment category. The JSON shape is the classifier wire schema.
type StructuredOrder struct {
	BaristaItems []LineItem `json:"baristaItems"`
	KitchenItems []LineItem `json:"kitchenItems"`
}

// ItemsFor returns the line items routed to the given category.
func (o *StructuredOrder) ItemsFor(c Category) []LineItem {
	switch c {
	case CategoryBarista:
		return o.BaristaItems
	case CategoryKitchen:
		return o.KitchenItems
	default:
		return nil
	}
}

// Empty reports whether no category holds any items.
func (o *StructuredOrder) Empty() bool {
	for _, c := range Categories() {
		if len(o.ItemsFor(c)) > 0 {
			return false
		}
	}
	return true
}

// TotalItems returns the summed quantity across all categories.
func (o *StructuredOrder) TotalItems() int {
	total := 0
	for _, c := range Categories() {
		for _, li := range o.ItemsFor(c) {
			total += li.Quantity
		}
	}
	return total
}

// Normalize applies defaults and drops items the catalog does not know:
// quantities below 1 become 1, negative prices become 0, and items whose
// type is outside the closed set (or filed under the wrong category) are
// removed. Classifier output passes through here before dispatch.
func (o *StructuredOrder) Normalize() {
	o.BaristaItems = normalizeItems(o.BaristaItems, CategoryBarista)
	o.KitchenItems = normalizeItems(o.KitchenItems, CategoryKitchen)
}

func normalizeItems(items []LineItem, want Category) []LineItem {
	out := items[:0]
	for _, li := range items {
		c, ok := CategoryOf(li.ItemType)
		if !ok || c != want {
			continue
		}
		if li.Quantity < 1 {
			li.Quantity = 1
		}
		if li.Price < 0 {
			li.Price = 0
		}
		if li.Name == "" {
			li.Name = string(li.ItemType)
		}
		out = append(out, li)
	}
	return out
}
