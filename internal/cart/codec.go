package cart

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrMalformed is returned when persisted cart data cannot be turned into a valid cart.
var ErrMalformed = errors.New("malformed cart data")

type encodedItem struct {
	ProductID ProductID   `json:"productId"`
	Name      string      `json:"name"`
	Price     json.Number `json:"price"`
	ImageURL  string      `json:"imageUrl,omitempty"`
	Quantity  int         `json:"quantity"`
}

// decodedItem accepts the legacy "id" field written by the old web client.
type decodedItem struct {
	ProductID *ProductID  `json:"productId"`
	LegacyID  *ProductID  `json:"id"`
	Name      string      `json:"name"`
	Price     json.Number `json:"price"`
	ImageURL  string      `json:"imageUrl"`
	Quantity  int         `json:"quantity"`
}

// Encode renders the cart as the JSON array stored under StorageKey.
func Encode(items Items) (string, error) {
	out := make([]encodedItem, 0, len(items))
	for _, item := range items {
		out = append(out, encodedItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     json.Number(item.UnitPrice.String()),
			ImageURL:  item.ImageURL,
			Quantity:  item.Quantity,
		})
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encode cart: %w", err)
	}
	return string(raw), nil
}

// Decode parses persisted cart data. Any structural problem yields ErrMalformed.
func Decode(raw string) (Items, error) {
	var entries []decodedItem
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if entries == nil {
		return nil, fmt.Errorf("%w: not an array", ErrMalformed)
	}

	items := make(Items, 0, len(entries))
	seen := make(map[ProductID]struct{}, len(entries))
	for i, entry := range entries {
		id := entry.ProductID
		if id == nil {
			id = entry.LegacyID
		}
		if id == nil {
			return nil, fmt.Errorf("%w: item %d has no product id", ErrMalformed, i)
		}
		if _, dup := seen[*id]; dup {
			return nil, fmt.Errorf("%w: duplicate product id %d", ErrMalformed, *id)
		}
		seen[*id] = struct{}{}

		price, err := decimal.NewFromString(entry.Price.String())
		if err != nil {
			return nil, fmt.Errorf("%w: item %d price: %v", ErrMalformed, i, err)
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("%w: item %d has a negative price", ErrMalformed, i)
		}
		if entry.Quantity < 1 {
			return nil, fmt.Errorf("%w: item %d has quantity %d", ErrMalformed, i, entry.Quantity)
		}

		items = append(items, LineItem{
			ProductID: *id,
			Name:      entry.Name,
			UnitPrice: price,
			ImageURL:  entry.ImageURL,
			Quantity:  entry.Quantity,
		})
	}
	return items, nil
}
