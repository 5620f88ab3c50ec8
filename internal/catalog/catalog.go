// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Walletpilot Contributors

// Package catalog is the hardcoded storefront the purchase flow sells from.
package catalog

import (
	"github.com/shopspring/decimal"

	piloterr "github.com/walletpilot-dev/walletpilot/pkg/errors"
)

// Item is one purchasable product. Price is a decimal string in units of
// the settlement token.
type Item struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
}

// Catalog resolves item ids to items.
type Catalog struct {
	items map[string]Item
	order []string
}

// New returns the built-in catalog.
func New() *Catalog {
	return newWith(defaultItems)
}

func newWith(items []Item) *Catalog {
	c := &Catalog{items: make(map[string]Item, len(items))}
	for _, item := range items {
		c.items[item.ID] = item
		c.order = append(c.order, item.ID)
	}
	return c
}

var defaultItems = []Item{
	{ID: "sticker-pack", Name: "Sticker Pack", Description: "A pack of holographic stickers.", Price: "0.15"},
	{ID: "coffee", Name: "Coffee Voucher", Description: "One espresso at the partner cafe.", Price: "0.50"},
	{ID: "tee-shirt", Name: "T-Shirt", Description: "Organic cotton tee, unisex sizing.", Price: "2.00"},
	{ID: "hoodie", Name: "Hoodie", Description: "Heavyweight zip hoodie.", Price: "5.00"},
}

// Get returns the item with the given id.
func (c *Catalog) Get(id string) (*Item, error) {
	item, ok := c.items[id]
	if !ok {
		return nil, piloterr.Errorf(piloterr.CodeCatalogItemNotFound, "item %q not found", id)
	}
	return &item, nil
}

// List returns all items in declaration order.
func (c *Catalog) List() []Item {
	out := make([]Item, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id])
	}
	return out
}

// ResolvePrice parses an item's price as a decimal. A price that fails to
// parse or is not positive is a catalog defect, surfaced as such.
func (c *Catalog) ResolvePrice(id string) (decimal.Decimal, error) {
	item, err := c.Get(id)
	if err != nil {
		return decimal.Decimal{}, err
	}

	price, err := decimal.NewFromString(item.Price)
	if err != nil {
		return decimal.Decimal{}, piloterr.Wrapf(err, piloterr.CodeCatalogPriceInvalid, "parsing price for item %q", id)
	}
	if !price.IsPositive() {
		return decimal.Decimal{}, piloterr.Errorf(piloterr.CodeCatalogPriceInvalid, "item %q has non-positive price %s", id, item.Price)
	}

	return price, nil
}
