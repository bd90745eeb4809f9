package backoffice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	pkgerrors "github.com/phonelife/storefront/pkg/errors"
	"github.com/phonelife/storefront/pkg/shopapi"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAPI struct {
	mu            sync.Mutex
	appointments  []shopapi.Appointment
	quotes        []shopapi.Quote
	orders        []shopapi.Order
	ordersErr     error
	products      []shopapi.Product
	notifications map[int64][]shopapi.StockNotification
	notifErrFor   map[int64]bool
	created       []shopapi.ProductInput
	updated       map[int64]shopapi.ProductInput
	stock         map[int64]int
	deleted       []string
}

func newStubAPI() *stubAPI {
	return &stubAPI{
		notifications: map[int64][]shopapi.StockNotification{},
		notifErrFor:   map[int64]bool{},
		updated:       map[int64]shopapi.ProductInput{},
		stock:         map[int64]int{},
	}
}

func (s *stubAPI) ListAppointments(context.Context) ([]shopapi.Appointment, error) {
	return s.appointments, nil
}

func (s *stubAPI) DeleteAppointment(_ context.Context, id int64) error {
	s.deleted = append(s.deleted, "appointment")
	return nil
}

func (s *stubAPI) ListQuotes(context.Context) ([]shopapi.Quote, error) { return s.quotes, nil }

func (s *stubAPI) DeleteQuote(_ context.Context, id int64) error {
	s.deleted = append(s.deleted, "quote")
	return nil
}

func (s *stubAPI) ListOrders(context.Context) ([]shopapi.Order, error) {
	return s.orders, s.ordersErr
}

func (s *stubAPI) ListProducts(context.Context) ([]shopapi.Product, error) { return s.products, nil }

func (s *stubAPI) GetProduct(_ context.Context, id int64) (*shopapi.Product, error) {
	for i := range s.products {
		if s.products[i].ID == id {
			return &s.products[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

func (s *stubAPI) CreateProduct(_ context.Context, in shopapi.ProductInput) error {
	s.created = append(s.created, in)
	return nil
}

func (s *stubAPI) UpdateProduct(_ context.Context, id int64, in shopapi.ProductInput) error {
	s.updated[id] = in
	return nil
}

func (s *stubAPI) DeleteProduct(_ context.Context, id int64) error {
	s.deleted = append(s.deleted, "product")
	return nil
}

func (s *stubAPI) UpdateStock(_ context.Context, id int64, stock int) error {
	s.stock[id] = stock
	return nil
}

func (s *stubAPI) ListStockNotifications(_ context.Context, productID int64) ([]shopapi.StockNotification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notifErrFor[productID] {
		return nil, errors.New("boom")
	}
	return s.notifications[productID], nil
}

func seeded() *stubAPI {
	api := newStubAPI()
	api.appointments = []shopapi.Appointment{{ID: 1, Name: "Léa"}}
	api.quotes = []shopapi.Quote{{ID: 1, Name: "Marc"}, {ID: 2, Name: "Zoé"}}
	api.products = []shopapi.Product{
		{ID: 1, Name: "Coque", Stock: 0, Price: decimal.NewFromInt(20)},
		{ID: 2, Name: "Écran", Stock: 3, Price: decimal.NewFromInt(120)},
		{ID: 3, Name: "Câble", Stock: 40, Price: decimal.NewFromInt(9)},
	}
	api.notifications[1] = []shopapi.StockNotification{{ProductID: 1, Email: "a@b.fr"}}
	api.notifErrFor[3] = true
	api.orders = []shopapi.Order{
		{ID: "1", Total: decimal.RequireFromString("39.99")},
		{ID: "2", Total: decimal.NewFromInt(120)},
	}
	return api
}

func TestDashboardAggregates(t *testing.T) {
	svc, err := NewService(seeded(), nil)
	require.NoError(t, err)

	dash, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Len(t, dash.Appointments, 1)
	assert.Len(t, dash.Quotes, 2)
	assert.Len(t, dash.Notifications[1], 1)
	assert.NotNil(t, dash.Notifications[2])
	assert.Empty(t, dash.Notifications[3], "failed lookups degrade to empty")
	assert.Equal(t, 1, dash.Stats.OutOfStock)
	assert.Equal(t, 1, dash.Stats.LowStock)
	assert.Equal(t, 2, dash.Stats.Orders)
	assert.True(t, dash.Stats.Revenue.Equal(decimal.RequireFromString("159.99")))
}

func TestDashboardDegradesWhenOrdersFail(t *testing.T) {
	api := seeded()
	api.ordersErr = pkgerrors.New(pkgerrors.CodeNotFound, "Cannot GET /api/orders")
	svc, _ := NewService(api, nil)

	dash, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, dash.Orders)
	assert.Empty(t, dash.Orders)
	assert.True(t, dash.Stats.Revenue.IsZero())
}

func TestStockControls(t *testing.T) {
	api := seeded()
	svc, _ := NewService(api, nil)
	ctx := context.Background()

	got, err := svc.SetStock(ctx, 2, -4)
	require.NoError(t, err)
	assert.Equal(t, 0, got)
	assert.Equal(t, 0, api.stock[2])

	got, err = svc.AdjustStock(ctx, 3, StockStepRestock)
	require.NoError(t, err)
	assert.Equal(t, 50, got)

	got, err = svc.AdjustStock(ctx, 1, StockStepDecrement)
	require.NoError(t, err)
	assert.Equal(t, 0, got, "decrement clamps at zero")

	_, err = svc.AdjustStock(ctx, 99, StockStepIncrement)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestProductValidation(t *testing.T) {
	svc, _ := NewService(newStubAPI(), nil)
	ctx := context.Background()

	base := func() ProductInput {
		return ProductInput{Name: "Coque", Price: decimal.NewFromInt(20), Category: "accessoires", Stock: 2}
	}
	cases := map[string]struct {
		mutate func(*ProductInput)
		field  string
	}{
		"name":        {func(in *ProductInput) { in.Name = " " }, "name"},
		"price":       {func(in *ProductInput) { in.Price = decimal.Zero }, "price"},
		"category":    {func(in *ProductInput) { in.Category = "all" }, "category"},
		"promo":       {func(in *ProductInput) { in.PromoPrice = decimal.NewNullDecimal(decimal.NewFromInt(25)) }, "promoPrice"},
		"stock":       {func(in *ProductInput) { in.Stock = -1 }, "stock"},
		"many images": {func(in *ProductInput) { in.Images = []string{"a", "b", "c", "d"} }, "images"},
		"bad image":   {func(in *ProductInput) { in.Images = []string{"not a url"} }, "images[0]"},
		"neg promo":   {func(in *ProductInput) { in.PromoPrice = decimal.NewNullDecimal(decimal.NewFromInt(-1)) }, "promoPrice"},
		"long ref":    {func(in *ProductInput) { in.Reference = strings.Repeat("r", 65) }, "reference"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			in := base()
			tc.mutate(&in)
			err := svc.CreateProduct(ctx, in)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
			assert.Contains(t, typed.Details(), tc.field)
		})
	}
}

func TestCreateAndUpdateProduct(t *testing.T) {
	api := newStubAPI()
	svc, _ := NewService(api, nil)
	ctx := context.Background()

	in := ProductInput{
		Name:       " Coque ",
		Price:      decimal.NewFromInt(20),
		Category:   "accessoires",
		PromoPrice: decimal.NewNullDecimal(decimal.Zero),
		Images:     []string{"https://img/a.png", " ", "https://img/b.png"},
	}
	require.NoError(t, svc.CreateProduct(ctx, in))
	require.Len(t, api.created, 1)
	assert.Equal(t, "Coque", api.created[0].Name)
	assert.False(t, api.created[0].PromoPrice.Valid, "zero promo is dropped")
	assert.Equal(t, []string{"https://img/a.png", "https://img/b.png"}, api.created[0].Images)

	in.PromoPrice = decimal.NewNullDecimal(decimal.NewFromInt(15))
	require.NoError(t, svc.UpdateProduct(ctx, 4, in))
	assert.True(t, api.updated[4].PromoPrice.Valid)
}

func TestProductImagesCountedAfterTrimming(t *testing.T) {
	api := newStubAPI()
	svc, _ := NewService(api, nil)

	in := ProductInput{
		Name:     "Batterie",
		Price:    decimal.RequireFromString("39.90"),
		Category: "pieces",
		Images:   []string{"https://img/1.png", "", "  ", "https://img/2.png", "https://img/3.png"},
	}
	require.NoError(t, svc.CreateProduct(context.Background(), in))
	assert.Len(t, api.created[0].Images, 3)

	in.Images = append(in.Images, "https://img/4.png")
	err := svc.CreateProduct(context.Background(), in)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, "must contain at most 3 images", typed.Details().(map[string]string)["images"])
}

func TestDeletes(t *testing.T) {
	api := newStubAPI()
	svc, _ := NewService(api, nil)
	ctx := context.Background()
	require.NoError(t, svc.DeleteAppointment(ctx, 1))
	require.NoError(t, svc.DeleteQuote(ctx, 1))
	require.NoError(t, svc.DeleteProduct(ctx, 1))
	assert.Equal(t, []string{"appointment", "quote", "product"}, api.deleted)
}

func TestListsNeverNil(t *testing.T) {
	svc, _ := NewService(newStubAPI(), nil)
	ctx := context.Background()
	appts, err := svc.Appointments(ctx)
	require.NoError(t, err)
	assert.NotNil(t, appts)
	notifs, err := svc.Notifications(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, notifs)
}
