package shopapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	pkgerrors "github.com/phonelife/storefront/pkg/errors"
)

func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := c.do(ctx, http.MethodGet, "products", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct resolves a product from the catalog listing; the API has no
// single-product read.
func (c *Client) GetProduct(ctx context.Context, id int64) (*Product, error) {
	products, err := c.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].ID == id {
			return &products[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
		WithDetails(map[string]any{"productId": id})
}

func (c *Client) CreateProduct(ctx context.Context, in ProductInput) error {
	return c.do(ctx, http.MethodPost, "products", in, nil)
}

func (c *Client) UpdateProduct(ctx context.Context, id int64, in ProductInput) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("products/%d", id), in, nil)
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("products/%d", id), nil, nil)
}

// UpdateStock sets the absolute stock level of a product.
func (c *Client) UpdateStock(ctx context.Context, id int64, stock int) error {
	body := map[string]int{"stock": stock}
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("products/%d/stock", id), body, nil)
}

func (c *Client) CreateAppointment(ctx context.Context, appt Appointment) error {
	return c.do(ctx, http.MethodPost, "appointments", appt, nil)
}

func (c *Client) ListAppointments(ctx context.Context) ([]Appointment, error) {
	var out []Appointment
	if err := c.do(ctx, http.MethodGet, "appointments", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteAppointment(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("appointments/%d", id), nil, nil)
}

func (c *Client) CreateQuote(ctx context.Context, quote Quote) error {
	return c.do(ctx, http.MethodPost, "quotes", quote, nil)
}

func (c *Client) ListQuotes(ctx context.Context) ([]Quote, error) {
	var out []Quote
	if err := c.do(ctx, http.MethodGet, "quotes", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteQuote(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("quotes/%d", id), nil, nil)
}

func (c *Client) CreateOrder(ctx context.Context, order OrderRequest) (*OrderResult, error) {
	var out OrderResult
	if err := c.do(ctx, http.MethodPost, "orders", order, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListOrders(ctx context.Context) ([]Order, error) {
	var out []Order
	if err := c.do(ctx, http.MethodGet, "orders", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateStockNotification(ctx context.Context, productID int64, email string) error {
	body := StockNotification{ProductID: productID, Email: email}
	return c.do(ctx, http.MethodPost, "stock-notifications", body, nil)
}

func (c *Client) ListStockNotifications(ctx context.Context, productID int64) ([]StockNotification, error) {
	var out []StockNotification
	path := "stock-notifications/" + url.PathEscape(fmt.Sprint(productID))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
