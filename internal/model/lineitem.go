package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ItemKind tags a line item as a single service or a combo package.
type ItemKind string

const (
	ItemService ItemKind = "service"
	ItemCombo   ItemKind = "combo"
)

// ErrInvalidLineItem is returned for malformed or unknown line items.
var ErrInvalidLineItem = errors.New("invalid line item")

// LineItem references one priced catalog entity. Exactly one reference
// field is accepted on the wire and it must agree with item_type.
type LineItem struct {
	Kind     ItemKind
	RefID    string
	Quantity int
}

type lineItemWire struct {
	Kind      ItemKind `json:"item_type"`
	ServiceID string   `json:"service_id,omitempty"`
	ComboID   string   `json:"combo_id,omitempty"`
	Quantity  int      `json:"quantity"`
}

// MarshalJSON writes the reference under the field matching the kind.
func (li LineItem) MarshalJSON() ([]byte, error) {
	w := lineItemWire{Kind: li.Kind, Quantity: li.Quantity}
	switch li.Kind {
	case ItemService:
		w.ServiceID = li.RefID
	case ItemCombo:
		w.ComboID = li.RefID
	default:
		return nil, fmt.Errorf("%w: unknown item_type %q", ErrInvalidLineItem, li.Kind)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes and validates the tagged form. A missing quantity
// defaults to 1.
func (li *LineItem) UnmarshalJSON(b []byte) error {
	var w lineItemWire
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLineItem, err)
	}
	kind := ItemKind(strings.ToLower(strings.TrimSpace(string(w.Kind))))
	var ref string
	switch kind {
	case ItemService:
		if w.ComboID != "" {
			return fmt.Errorf("%w: service item carries combo_id", ErrInvalidLineItem)
		}
		ref = w.ServiceID
	case ItemCombo:
		if w.ServiceID != "" {
			return fmt.Errorf("%w: combo item carries service_id", ErrInvalidLineItem)
		}
		ref = w.ComboID
	default:
		return fmt.Errorf("%w: unknown item_type %q", ErrInvalidLineItem, w.Kind)
	}
	if w.Quantity == 0 {
		w.Quantity = 1
	}
	*li = LineItem{Kind: kind, RefID: strings.TrimSpace(ref), Quantity: w.Quantity}
	return li.Validate()
}

// Validate checks the reference and quantity.
func (li LineItem) Validate() error {
	switch li.Kind {
	case ItemService, ItemCombo:
	default:
		return fmt.Errorf("%w: unknown item_type %q", ErrInvalidLineItem, li.Kind)
	}
	if li.RefID == "" {
		return fmt.Errorf("%w: missing %s reference", ErrInvalidLineItem, li.Kind)
	}
	if li.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", ErrInvalidLineItem)
	}
	return nil
}

// CatalogKey identifies a catalog entry across both kinds.
type CatalogKey struct {
	Kind ItemKind
	ID   string
}

// Key returns the catalog key referenced by the item.
func (li LineItem) Key() CatalogKey { return CatalogKey{Kind: li.Kind, ID: li.RefID} }

// CatalogEntry is the read-only projection of a service or combo.
type CatalogEntry struct {
	Kind  ItemKind `json:"item_type"`
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Price int64    `json:"price"`
}

// CatalogTotal sums price*quantity over items using the resolved entries.
func CatalogTotal(items []LineItem, entries map[CatalogKey]CatalogEntry) (int64, error) {
	var total int64
	for _, it := range items {
		switch it.Kind {
		case ItemService, ItemCombo:
			e, ok := entries[it.Key()]
			if !ok {
				return 0, fmt.Errorf("%w: %s %s not found", ErrInvalidLineItem, it.Kind, it.RefID)
			}
			total += e.Price * int64(it.Quantity)
		default:
			return 0, fmt.Errorf("%w: unknown item_type %q", ErrInvalidLineItem, it.Kind)
		}
	}
	return total, nil
}
