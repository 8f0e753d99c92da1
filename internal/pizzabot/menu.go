package pizzabot

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

// PizzaType is a menu item.
type PizzaType string

const (
	Margherita PizzaType = "Margherita"
	Pepperoni  PizzaType = "Pepperoni"
	Vegetarian PizzaType = "Vegetarian"
)

type recipe struct {
	ingredients []string
	toppings    []string
	bake        time.Duration
}

var menu = map[PizzaType]recipe{
	Margherita: {
		ingredients: []string{"dough", "tomato sauce", "mozzarella", "basil"},
		toppings:    []string{"tomato sauce", "mozzarella", "basil"},
		bake:        8 * time.Minute,
	},
	Pepperoni: {
		ingredients: []string{"dough", "tomato sauce", "mozzarella", "pepperoni"},
		toppings:    []string{"tomato sauce", "mozzarella", "pepperoni"},
		bake:        10 * time.Minute,
	},
	Vegetarian: {
		ingredients: []string{"dough", "tomato sauce", "mozzarella", "bell peppers", "mushrooms", "onions"},
		toppings:    []string{"tomato sauce", "mozzarella", "bell peppers", "mushrooms", "onions"},
		bake:        9 * time.Minute,
	},
}

// Menu returns the pizza types on offer, sorted.
func Menu() []PizzaType {
	return slices.Sorted(maps.Keys(menu))
}

// ParsePizzaType resolves a menu item by name.
func ParsePizzaType(s string) (PizzaType, error) {
	if _, ok := menu[PizzaType(s)]; !ok {
		return "", fmt.Errorf("unknown pizza type %q (available: %v)", s, Menu())
	}
	return PizzaType(s), nil
}

// Ingredients returns the ingredients needed for p.
func (p PizzaType) Ingredients() []string { return slices.Clone(menu[p].ingredients) }

// Toppings returns the toppings for p, in the order they go on.
func (p PizzaType) Toppings() []string { return slices.Clone(menu[p].toppings) }

// BakeTime returns the nominal oven time for p.
func (p PizzaType) BakeTime() time.Duration { return menu[p].bake }

// Valid reports whether p is on the menu.
func (p PizzaType) Valid() bool {
	_, ok := menu[p]
	return ok
}

// Inventory records which ingredients are in stock.
type Inventory map[string]bool

// FullInventory has every ingredient on the menu in stock.
func FullInventory() Inventory {
	inv := make(Inventory)
	for _, r := range menu {
		for _, ing := range r.ingredients {
			inv[ing] = true
		}
	}
	return inv
}

// Missing returns the ingredients for p that are not in stock.
func (inv Inventory) Missing(p PizzaType) []string {
	var out []string
	for _, ing := range menu[p].ingredients {
		if !inv[ing] {
			out = append(out, ing)
		}
	}
	return out
}
