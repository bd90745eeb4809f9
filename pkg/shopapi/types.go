package shopapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// EncodedList decodes either a JSON array or a string holding a JSON array,
// which is how the API stores product images and order lines.
type EncodedList[T any] []T

func (l *EncodedList[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return err
		}
		if inner == "" {
			*l = nil
			return nil
		}
		data = []byte(inner)
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("decode encoded list: %w", err)
	}
	*l = items
	return nil
}

// ID accepts numeric or string identifiers from the API.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Int64 parses numeric ids; ok is false for non-numeric ones.
func (id ID) Int64() (int64, bool) {
	v, err := strconv.ParseInt(string(id), 10, 64)
	return v, err == nil
}

// Product mirrors /api/products entries.
type Product struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name"`
	Price       decimal.Decimal     `json:"price"`
	PromoPrice  decimal.NullDecimal `json:"promoPrice"`
	Category    string              `json:"category"`
	Stock       int                 `json:"stock"`
	Reference   string              `json:"reference"`
	ImageURL    string              `json:"imageUrl"`
	Images      EncodedList[string] `json:"images"`
	Description string              `json:"description"`
}

// ProductInput is the create/update payload.
type ProductInput struct {
	Name        string
	Price       decimal.Decimal
	Category    string
	PromoPrice  decimal.NullDecimal
	Stock       int
	Reference   string
	Images      []string
	Description string
}

func (in ProductInput) MarshalJSON() ([]byte, error) {
	var promo *json.Number
	if in.PromoPrice.Valid {
		n := json.Number(in.PromoPrice.Decimal.String())
		promo = &n
	}
	var reference, imageURL *string
	if in.Reference != "" {
		reference = &in.Reference
	}
	if len(in.Images) > 0 {
		imageURL = &in.Images[0]
	}
	images := in.Images
	if images == nil {
		images = []string{}
	}
	return json.Marshal(struct {
		Name        string       `json:"name"`
		Price       json.Number  `json:"price"`
		Category    string       `json:"category"`
		PromoPrice  *json.Number `json:"promoPrice"`
		Stock       int          `json:"stock"`
		Reference   *string      `json:"reference"`
		ImageURL    *string      `json:"imageUrl"`
		Images      []string     `json:"images"`
		Description string       `json:"description"`
	}{
		Name:        in.Name,
		Price:       json.Number(in.Price.String()),
		Category:    in.Category,
		PromoPrice:  promo,
		Stock:       in.Stock,
		Reference:   reference,
		ImageURL:    imageURL,
		Images:      images,
		Description: in.Description,
	})
}

// Appointment is a repair booking.
type Appointment struct {
	ID         int64  `json:"id,omitempty"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	DeviceType string `json:"deviceType"`
	Model      string `json:"model"`
	IssueType  string `json:"issueType"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Details    string `json:"details"`
	CreatedAt  string `json:"createdAt,omitempty"`
}

// Quote is a repair estimate request.
type Quote struct {
	ID         int64  `json:"id,omitempty"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	DeviceType string `json:"deviceType"`
	Model      string `json:"model"`
	IssueType  string `json:"issueType"`
	Details    string `json:"details"`
	CreatedAt  string `json:"createdAt,omitempty"`
}

// OrderLine is one cart line as sent with an order.
type OrderLine struct {
	ProductID int64       `json:"productId"`
	Name      string      `json:"name"`
	Price     json.Number `json:"price"`
	ImageURL  string      `json:"imageUrl,omitempty"`
	Quantity  int         `json:"quantity"`
}

// OrderRequest is the checkout payload: customer form fields, lines, total and date.
type OrderRequest struct {
	Nom           string      `json:"nom"`
	Prenom        string      `json:"prenom"`
	Email         string      `json:"email"`
	Telephone     string      `json:"telephone"`
	Adresse       string      `json:"adresse"`
	Ville         string      `json:"ville"`
	CodePostal    string      `json:"codePostal"`
	PaymentMethod string      `json:"paymentMethod"`
	Items         []OrderLine `json:"items"`
	Total         json.Number `json:"total"`
	Date          string      `json:"date"`
}

// OrderResult is returned by a successful order creation.
type OrderResult struct {
	OrderID ID `json:"orderId"`
}

// Order is an order as listed by the back office.
type Order struct {
	ID            ID                     `json:"id"`
	Nom           string                 `json:"nom"`
	Prenom        string                 `json:"prenom"`
	Email         string                 `json:"email"`
	Telephone     string                 `json:"telephone"`
	Adresse       string                 `json:"adresse"`
	Ville         string                 `json:"ville"`
	CodePostal    string                 `json:"codePostal"`
	PaymentMethod string                 `json:"paymentMethod"`
	Items         EncodedList[OrderLine] `json:"items"`
	Total         decimal.Decimal        `json:"total"`
	Date          string                 `json:"date"`
	Status        string                 `json:"status,omitempty"`
}

// StockNotification is a shopper's request to be told when a product is back in stock.
type StockNotification struct {
	ID        int64  `json:"id,omitempty"`
	ProductID int64  `json:"productId"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt,omitempty"`
}
