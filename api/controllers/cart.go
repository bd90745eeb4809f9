package controllers

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/phonelife/storefront/api/middleware"
	"github.com/phonelife/storefront/api/responses"
	"github.com/phonelife/storefront/api/validators"
	"github.com/phonelife/storefront/internal/cart"
	"github.com/phonelife/storefront/internal/catalog"
	pkgerrors "github.com/phonelife/storefront/pkg/errors"
	"github.com/phonelife/storefront/pkg/logger"
)

// CartOpener resolves the cart store of a shopper session.
type CartOpener interface {
	Open(ctx context.Context, sessionID string) *cart.Store
}

type cartLineResponse struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	ImageURL  string          `json:"image_url,omitempty"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type cartResponse struct {
	Items    []cartLineResponse `json:"items"`
	Count    int                `json:"count"`
	Distinct int                `json:"distinct"`
	Total    decimal.Decimal    `json:"total"`
}

func newCartResponse(items cart.Items) cartResponse {
	lines := make([]cartLineResponse, 0, len(items))
	for _, item := range items {
		lines = append(lines, cartLineResponse{
			ProductID: int64(item.ProductID),
			Name:      item.Name,
			Price:     item.UnitPrice,
			ImageURL:  item.ImageURL,
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal(),
		})
	}
	return cartResponse{
		Items:    lines,
		Count:    items.Count(),
		Distinct: len(items),
		Total:    items.Total(),
	}
}

func sessionCart(r *http.Request, carts CartOpener) (*cart.Store, error) {
	if carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart sessions unavailable")
	}
	sessionID := middleware.SessionIDFromContext(r.Context())
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session context missing")
	}
	return carts.Open(r.Context(), sessionID), nil
}

// CartFetch returns the session's cart with its badge count and total.
func CartFetch(carts CartOpener, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionCart(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(store.Items()))
	}
}

type addToCartRequest struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  *int  `json:"quantity,omitempty" validate:"omitempty,min=1,max=999"`
}

// CartAddItem looks the product up, checks stock and adds it to the cart at
// the current effective price.
func CartAddItem(carts CartOpener, products catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if products == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		store, err := sessionCart(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addToCartRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quantity := cart.DefaultQuantity
		if payload.Quantity != nil {
			quantity = *payload.Quantity
		}

		product, err := products.Get(r.Context(), payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := products.CheckStock(*product, quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store.AddToCart(r.Context(), catalog.CartProduct(*product), quantity)
		responses.WriteSuccess(w, newCartResponse(store.Items()))
	}
}

// CartDecrementItem removes one unit; the line disappears at zero.
func CartDecrementItem(carts CartOpener, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionCart(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store.RemoveOneFromCart(r.Context(), cart.ProductID(id))
		responses.WriteSuccess(w, newCartResponse(store.Items()))
	}
}

func CartRemoveItem(carts CartOpener, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionCart(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store.RemoveFromCart(r.Context(), cart.ProductID(id))
		responses.WriteSuccess(w, newCartResponse(store.Items()))
	}
}

func CartClear(carts CartOpener, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionCart(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store.ClearCart(r.Context())
		responses.WriteSuccess(w, newCartResponse(store.Items()))
	}
}
