package cart

import "github.com/shopspring/decimal"

// StorageKey is the fixed key under which the current cart is persisted.
const StorageKey = "phoneLifeCart"

// DefaultQuantity is applied by callers when an add request omits the quantity.
const DefaultQuantity = 1

// ProductID identifies a catalog product. The shop API uses numeric ids.
type ProductID int64

// Product is the subset of a catalog product needed to add it to the cart.
type Product struct {
	ID         ProductID
	Name       string
	Price      decimal.Decimal
	PromoPrice decimal.NullDecimal
	ImageURL   string
}

// SnapshotPrice is the unit price captured when the product enters the cart:
// the promotional price when one is set and non-zero, otherwise the regular price.
func (p Product) SnapshotPrice() decimal.Decimal {
	if p.PromoPrice.Valid && !p.PromoPrice.Decimal.IsZero() {
		return p.PromoPrice.Decimal
	}
	return p.Price
}

// LineItem is one product in the cart with the display data captured at add time.
type LineItem struct {
	ProductID ProductID
	Name      string
	UnitPrice decimal.Decimal
	ImageURL  string
	Quantity  int
}

func (l LineItem) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Summary is the derived badge/total view of a cart.
type Summary struct {
	Count int
	Total decimal.Decimal
}

// Items is the ordered cart content, unique by ProductID.
type Items []LineItem

func (it Items) Count() int {
	n := 0
	for _, item := range it {
		n += item.Quantity
	}
	return n
}

func (it Items) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range it {
		total = total.Add(item.Subtotal())
	}
	return total
}

func (it Items) Summary() Summary {
	return Summary{Count: it.Count(), Total: it.Total()}
}

// Equal compares two carts line by line, treating prices numerically.
func (it Items) Equal(other Items) bool {
	if len(it) != len(other) {
		return false
	}
	for i := range it {
		a, b := it[i], other[i]
		if a.ProductID != b.ProductID || a.Name != b.Name || a.ImageURL != b.ImageURL ||
			a.Quantity != b.Quantity || !a.UnitPrice.Equal(b.UnitPrice) {
			return false
		}
	}
	return true
}

func (it Items) clone() Items {
	out := make(Items, len(it))
	copy(out, it)
	return out
}

func (it Items) indexOf(id ProductID) int {
	for i, item := range it {
		if item.ProductID == id {
			return i
		}
	}
	return -1
}

// addItem merges quantity into an existing line or appends a new snapshot line.
// A line whose quantity ends at zero or below is dropped; a non-positive add for
// an absent product changes nothing.
func addItem(items Items, p Product, quantity int) (Items, bool) {
	idx := items.indexOf(p.ID)
	if idx < 0 {
		if quantity < 1 {
			return items, false
		}
		next := items.clone()
		return append(next, LineItem{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.SnapshotPrice(),
			ImageURL:  p.ImageURL,
			Quantity:  quantity,
		}), true
	}
	if quantity == 0 {
		return items, false
	}
	next := items.clone()
	next[idx].Quantity += quantity
	if next[idx].Quantity <= 0 {
		return append(next[:idx], next[idx+1:]...), true
	}
	return next, true
}

func removeOne(items Items, id ProductID) (Items, bool) {
	idx := items.indexOf(id)
	if idx < 0 {
		return items, false
	}
	next := items.clone()
	if next[idx].Quantity <= 1 {
		return append(next[:idx], next[idx+1:]...), true
	}
	next[idx].Quantity--
	return next, true
}

func removeLine(items Items, id ProductID) (Items, bool) {
	idx := items.indexOf(id)
	if idx < 0 {
		return items, false
	}
	next := items.clone()
	return append(next[:idx], next[idx+1:]...), true
}
