package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/phonelife/storefront/api/middleware"
	"github.com/phonelife/storefront/internal/cart"
	"github.com/phonelife/storefront/internal/catalog"
	checkoutsvc "github.com/phonelife/storefront/internal/checkout"
	pkgerrors "github.com/phonelife/storefront/pkg/errors"
	"github.com/phonelife/storefront/pkg/types"
)

const testSession = "6c1f9a54-3c1e-4b5e-9d0b-7f1f2b0c9a11"

type stubCatalog struct {
	products map[int64]catalog.ProductDTO
	notified []string
}

func (s *stubCatalog) List(ctx context.Context, filter catalog.Filter) ([]catalog.ProductDTO, error) {
	out := []catalog.ProductDTO{}
	for _, p := range s.products {
		if filter.Category == "" || filter.Category == p.Category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubCatalog) Get(ctx context.Context, id int64) (*catalog.ProductDTO, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return &p, nil
}

func (s *stubCatalog) CheckStock(product catalog.ProductDTO, quantity int) error {
	if quantity > product.Stock {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "Stock insuffisant")
	}
	return nil
}

func (s *stubCatalog) NotifyWhenAvailable(ctx context.Context, id int64, email string) error {
	s.notified = append(s.notified, email)
	return nil
}

func (s *stubCatalog) Categories() []catalog.CategoryDTO {
	return []catalog.CategoryDTO{{ID: "all", Label: "Tous"}}
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{products: map[int64]catalog.ProductDTO{
		1: {ID: 1, Name: "Coque iPhone 14", Category: "accessoires", Price: decimal.RequireFromString("19.90"), Stock: 3},
		2: {
			ID:         2,
			Name:       "Écran Galaxy S21",
			Category:   "pieces",
			Price:      decimal.RequireFromString("120"),
			PromoPrice: decimal.NewNullDecimal(decimal.RequireFromString("99.50")),
			Stock:      10,
			MainImage:  "https://cdn.phonelife.fr/s21.jpg",
		},
	}}
}

func newSessions() *cart.Sessions {
	backend := cart.NewMemoryBackend()
	return cart.NewSessions(backend.ForSession, 0, nil)
}

func withSession(req *http.Request) *http.Request {
	return req.WithContext(middleware.WithSessionID(req.Context(), testSession))
}

func withParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(req.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return req
}

func decodeCart(t *testing.T, body io.Reader) cartResponse {
	t.Helper()
	var envelope struct {
		Data cartResponse `json:"data"`
	}
	if err := json.NewDecoder(body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return envelope.Data
}

func decodeError(t *testing.T, body io.Reader) types.APIError {
	t.Helper()
	var envelope types.ErrorEnvelope
	if err := json.NewDecoder(body).Decode(&envelope); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return envelope.Error
}

func TestCartAddDefaultsQuantityAndSnapshotsPromo(t *testing.T) {
	carts := newSessions()
	handler := CartAddItem(carts, newStubCatalog(), nil)

	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"productId":2}`)))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	body := decodeCart(t, resp.Body)
	if body.Count != 1 || body.Distinct != 1 {
		t.Fatalf("unexpected counts %+v", body)
	}
	if !body.Items[0].Price.Equal(decimal.RequireFromString("99.50")) {
		t.Fatalf("expected promo snapshot, got %s", body.Items[0].Price)
	}
	if body.Items[0].ImageURL != "https://cdn.phonelife.fr/s21.jpg" {
		t.Fatalf("unexpected image %q", body.Items[0].ImageURL)
	}
}

func TestCartAddRejectsInsufficientStock(t *testing.T) {
	carts := newSessions()
	handler := CartAddItem(carts, newStubCatalog(), nil)

	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"productId":1,"quantity":4}`)))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if apiErr := decodeError(t, resp.Body); apiErr.Code != string(pkgerrors.CodeInsufficientStock) {
		t.Fatalf("unexpected error %+v", apiErr)
	}
	if carts.Open(context.Background(), testSession).Count() != 0 {
		t.Fatalf("cart must be untouched")
	}
}

func TestCartAddUnknownProduct(t *testing.T) {
	handler := CartAddItem(newSessions(), newStubCatalog(), nil)
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"productId":99}`)))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestCartAddRejectsZeroQuantity(t *testing.T) {
	handler := CartAddItem(newSessions(), newStubCatalog(), nil)
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"productId":1,"quantity":0}`)))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartDecrementRemoveAndClear(t *testing.T) {
	carts := newSessions()
	store := carts.Open(context.Background(), testSession)
	store.AddToCart(context.Background(), cart.Product{ID: 1, Name: "Coque", Price: decimal.NewFromInt(10)}, 2)
	store.AddToCart(context.Background(), cart.Product{ID: 2, Name: "Écran", Price: decimal.NewFromInt(100)}, 1)

	resp := httptest.NewRecorder()
	req := withParam(withSession(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items/1/decrement", nil)), "productId", "1")
	CartDecrementItem(carts, nil).ServeHTTP(resp, req)
	if body := decodeCart(t, resp.Body); body.Count != 2 || !body.Total.Equal(decimal.NewFromInt(110)) {
		t.Fatalf("unexpected cart after decrement %+v", body)
	}

	resp = httptest.NewRecorder()
	req = withParam(withSession(httptest.NewRequest(http.MethodDelete, "/api/v1/cart/items/2", nil)), "productId", "2")
	CartRemoveItem(carts, nil).ServeHTTP(resp, req)
	if body := decodeCart(t, resp.Body); body.Distinct != 1 || body.Items[0].ProductID != 1 {
		t.Fatalf("unexpected cart after remove %+v", body)
	}

	resp = httptest.NewRecorder()
	CartClear(carts, nil).ServeHTTP(resp, withSession(httptest.NewRequest(http.MethodDelete, "/api/v1/cart", nil)))
	if body := decodeCart(t, resp.Body); body.Count != 0 || len(body.Items) != 0 || !body.Total.IsZero() {
		t.Fatalf("expected empty cart %+v", body)
	}
}

func TestCartFetchMissingSessionContext(t *testing.T) {
	resp := httptest.NewRecorder()
	CartFetch(newSessions(), nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}

func TestProductDetailInvalidID(t *testing.T) {
	resp := httptest.NewRecorder()
	req := withParam(httptest.NewRequest(http.MethodGet, "/api/v1/products/abc", nil), "productId", "abc")
	ProductDetail(newStubCatalog(), nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestProductListFiltersCategory(t *testing.T) {
	resp := httptest.NewRecorder()
	ProductList(newStubCatalog(), nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/products?category=PIECES", nil))

	var envelope struct {
		Data []catalog.ProductDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(envelope.Data) != 1 || envelope.Data[0].ID != 2 {
		t.Fatalf("unexpected products %+v", envelope.Data)
	}
}

func TestProductNotifyRequiresEmail(t *testing.T) {
	svc := newStubCatalog()
	resp := httptest.NewRecorder()
	req := withParam(httptest.NewRequest(http.MethodPost, "/api/v1/products/1/notify", strings.NewReader(`{"email":"not-an-email"}`)), "productId", "1")
	ProductNotify(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	req = withParam(httptest.NewRequest(http.MethodPost, "/api/v1/products/1/notify", strings.NewReader(`{"email":"client@example.fr"}`)), "productId", "1")
	ProductNotify(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated || len(svc.notified) != 1 {
		t.Fatalf("expected subscription, got %d %v", resp.Code, svc.notified)
	}
}

type stubCheckout struct {
	form checkoutsvc.Form
	err  error
}

func (s *stubCheckout) PlaceOrder(ctx context.Context, store checkoutsvc.CartStore, form checkoutsvc.Form) (*checkoutsvc.Result, error) {
	s.form = form
	if s.err != nil {
		return nil, s.err
	}
	items := store.Items()
	store.ClearCart(ctx)
	return &checkoutsvc.Result{OrderID: "42", Total: items.Total(), ItemCount: items.Count()}, nil
}

func TestCheckoutDefaultsPaymentMethod(t *testing.T) {
	carts := newSessions()
	carts.Open(context.Background(), testSession).
		AddToCart(context.Background(), cart.Product{ID: 1, Name: "Coque", Price: decimal.NewFromInt(10)}, 1)
	svc := &stubCheckout{}

	resp := httptest.NewRecorder()
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/checkout",
		strings.NewReader(`{"nom":"Durand","email":"d@example.fr","telephone":"0600000000"}`)))
	Checkout(svc, carts, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.form.PaymentMethod != "card" || svc.form.Nom != "Durand" {
		t.Fatalf("unexpected form %+v", svc.form)
	}
	if carts.Open(context.Background(), testSession).Len() != 0 {
		t.Fatalf("cart should be cleared after order")
	}
}

func TestCheckoutRejectsUnknownPaymentMethod(t *testing.T) {
	resp := httptest.NewRecorder()
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/checkout",
		strings.NewReader(`{"nom":"Durand","email":"d@example.fr","telephone":"06","paymentMethod":"bitcoin"}`)))
	Checkout(&stubCheckout{}, newSessions(), nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCheckoutSurfacesDependencyFailure(t *testing.T) {
	carts := newSessions()
	carts.Open(context.Background(), testSession).
		AddToCart(context.Background(), cart.Product{ID: 1, Name: "Coque", Price: decimal.NewFromInt(10)}, 1)

	resp := httptest.NewRecorder()
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/checkout",
		strings.NewReader(`{"nom":"Durand","email":"d@example.fr","telephone":"06"}`)))
	Checkout(&stubCheckout{err: pkgerrors.New(pkgerrors.CodeDependency, "shop api unavailable")}, carts, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	if carts.Open(context.Background(), testSession).Count() != 1 {
		t.Fatalf("cart must survive a failed order")
	}
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }
