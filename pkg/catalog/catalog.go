// Package catalog implements the product catalog tool service and its
// client. The catalog is exposed over MCP so any tool-speaking agent can
// query products; the counter uses it to ground order classification in
// real product names and prices.
package catalog

import "github.com/thangchung/coffeeshop-agent/pkg/order"

// Product is one sellable item.
type Product struct {
	ItemType order.ItemType `json:"itemType"`
	Name     string         `json:"name"`
	Price    float64        `json:"price"`
}

// Products returns the shop's full product list, barista drinks first.
func Products() []Product {
	return []Product{
		{ItemType: order.ItemTypeCoffeeBlack, Name: "black coffee", Price: 3},
		{ItemType: order.ItemTypeCoffeeWithRoom, Name: "coffee with room", Price: 3},
		{ItemType: order.ItemTypeEspresso, Name: "espresso", Price: 3.5},
		{ItemType: order.ItemTypeEspressoDouble, Name: "double espresso", Price: 4.5},
		{ItemType: order.ItemTypeLatte, Name: "latte", Price: 4.5},
		{ItemType: order.ItemTypeCappuccino, Name: "cappuccino", Price: 4.5},
		{ItemType: order.ItemTypeCakepop, Name: "cakepop", Price: 2.5},
		{ItemType: order.ItemTypeCroissant, Name: "croissant", Price: 3.25},
		{ItemType: order.ItemTypeMuffin, Name: "muffin", Price: 3.25},
		{ItemType: order.ItemTypeCroissantChocolate, Name: "chocolate croissant", Price: 4},
	}
}

// ProductsFor returns the products fulfilled by the given category.
func ProductsFor(c order.Category) []Product {
	var out []Product
	for _, p := range Products() {
		if pc, ok := order.CategoryOf(p.ItemType); ok && pc == c {
			out = append(out, p)
		}
	}
	return out
}

// Lookup finds a product by its item type.
func Lookup(t order.ItemType) (Product, bool) {
	for _, p := range Products() {
		if p.ItemType == t {
			return p, true
		}
	}
	return Product{}, false
}
