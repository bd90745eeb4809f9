package backoffice

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/phonelife/storefront/internal/catalog"
	"github.com/phonelife/storefront/pkg/enums"
	pkgerrors "github.com/phonelife/storefront/pkg/errors"
	"github.com/phonelife/storefront/pkg/logger"
	"github.com/phonelife/storefront/pkg/shopapi"
	"github.com/shopspring/decimal"
)

const notificationFanout = 4

// Stock adjustments offered by the back office stock controls.
const (
	StockStepDecrement = -1
	StockStepIncrement = 1
	StockStepRestock   = 10
)

// ProductInput is the product form of the back office, as submitted.
type ProductInput struct {
	Name        string              `json:"name"`
	Price       decimal.Decimal     `json:"price"`
	Category    string              `json:"category"`
	PromoPrice  decimal.NullDecimal `json:"promoPrice"`
	Stock       int                 `json:"stock"`
	Reference   string              `json:"reference"`
	Images      []string            `json:"images"`
	Description string              `json:"description"`
}

// productForm is a ProductInput after trimming. Its tags are the product rules.
type productForm struct {
	Name        string              `json:"name" validate:"required,max=200"`
	Price       decimal.Decimal     `json:"price" validate:"gt=0"`
	Category    string              `json:"category" validate:"product_category"`
	PromoPrice  decimal.NullDecimal `json:"promoPrice" validate:"omitempty,gte=0,ltfield=Price"`
	Stock       int                 `json:"stock" validate:"min=0"`
	Reference   string              `json:"reference" validate:"max=64"`
	Images      []string            `json:"images" validate:"max=3,dive,url"`
	Description string              `json:"description" validate:"max=5000"`
}

// Stats are the dashboard counters.
type Stats struct {
	Appointments int             `json:"appointments"`
	Quotes       int             `json:"quotes"`
	Products     int             `json:"products"`
	Orders       int             `json:"orders"`
	OutOfStock   int             `json:"out_of_stock"`
	LowStock     int             `json:"low_stock"`
	Revenue      decimal.Decimal `json:"revenue"`
}

// Dashboard aggregates everything the back office home page shows.
type Dashboard struct {
	Appointments  []shopapi.Appointment                 `json:"appointments"`
	Quotes        []shopapi.Quote                       `json:"quotes"`
	Products      []shopapi.Product                     `json:"products"`
	Orders        []shopapi.Order                       `json:"orders"`
	Notifications map[int64][]shopapi.StockNotification `json:"notifications"`
	Stats         Stats                                 `json:"stats"`
}

// Service exposes back office operations.
type Service interface {
	Dashboard(ctx context.Context) (*Dashboard, error)
	Appointments(ctx context.Context) ([]shopapi.Appointment, error)
	DeleteAppointment(ctx context.Context, id int64) error
	Quotes(ctx context.Context) ([]shopapi.Quote, error)
	DeleteQuote(ctx context.Context, id int64) error
	Orders(ctx context.Context) ([]shopapi.Order, error)
	Products(ctx context.Context) ([]shopapi.Product, error)
	CreateProduct(ctx context.Context, in ProductInput) error
	UpdateProduct(ctx context.Context, id int64, in ProductInput) error
	DeleteProduct(ctx context.Context, id int64) error
	SetStock(ctx context.Context, id int64, stock int) (int, error)
	AdjustStock(ctx context.Context, id int64, delta int) (int, error)
	Notifications(ctx context.Context, productID int64) ([]shopapi.StockNotification, error)
}

type adminAPI interface {
	ListAppointments(ctx context.Context) ([]shopapi.Appointment, error)
	DeleteAppointment(ctx context.Context, id int64) error
	ListQuotes(ctx context.Context) ([]shopapi.Quote, error)
	DeleteQuote(ctx context.Context, id int64) error
	ListOrders(ctx context.Context) ([]shopapi.Order, error)
	ListProducts(ctx context.Context) ([]shopapi.Product, error)
	GetProduct(ctx context.Context, id int64) (*shopapi.Product, error)
	CreateProduct(ctx context.Context, in shopapi.ProductInput) error
	UpdateProduct(ctx context.Context, id int64, in shopapi.ProductInput) error
	DeleteProduct(ctx context.Context, id int64) error
	UpdateStock(ctx context.Context, id int64, stock int) error
	ListStockNotifications(ctx context.Context, productID int64) ([]shopapi.StockNotification, error)
}

type service struct {
	api  adminAPI
	logg *logger.Logger
}

// NewService constructs the back office service.
func NewService(api adminAPI, logg *logger.Logger) (Service, error) {
	if api == nil {
		return nil, fmt.Errorf("shop api client required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{api: api, logg: logg}, nil
}

func (s *service) Dashboard(ctx context.Context) (*Dashboard, error) {
	appointments, err := s.api.ListAppointments(ctx)
	if err != nil {
		return nil, err
	}
	quotes, err := s.api.ListQuotes(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.api.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	orders, err := s.api.ListOrders(ctx)
	if err != nil {
		s.logg.WarnErr(ctx, "orders unavailable, dashboard shows none", err)
		orders = []shopapi.Order{}
	}

	dash := &Dashboard{
		Appointments:  nonNil(appointments),
		Quotes:        nonNil(quotes),
		Products:      nonNil(products),
		Orders:        orders,
		Notifications: s.notificationsFor(ctx, products),
	}
	dash.Stats = stats(dash)
	return dash, nil
}

// notificationsFor loads each product's notifications; a failed lookup yields an empty list.
func (s *service) notificationsFor(ctx context.Context, products []shopapi.Product) map[int64][]shopapi.StockNotification {
	out := make(map[int64][]shopapi.StockNotification, len(products))
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, notificationFanout)
	)
	for _, p := range products {
		wg.Add(1)
		sem <- struct{}{}
		go func(id int64) {
			defer func() {
				<-sem
				wg.Done()
			}()
			notifs, err := s.api.ListStockNotifications(ctx, id)
			if err != nil {
				s.logg.WarnErr(s.logg.WithField(ctx, "product_id", id), "stock notifications unavailable", err)
				notifs = nil
			}
			mu.Lock()
			out[id] = nonNil(notifs)
			mu.Unlock()
		}(p.ID)
	}
	wg.Wait()
	return out
}

func stats(d *Dashboard) Stats {
	st := Stats{
		Appointments: len(d.Appointments),
		Quotes:       len(d.Quotes),
		Products:     len(d.Products),
		Orders:       len(d.Orders),
		Revenue:      decimal.Zero,
	}
	for _, p := range d.Products {
		switch {
		case p.Stock <= 0:
			st.OutOfStock++
		case p.Stock <= catalog.LowStockThreshold:
			st.LowStock++
		}
	}
	for _, o := range d.Orders {
		st.Revenue = st.Revenue.Add(o.Total)
	}
	return st
}

func (s *service) Appointments(ctx context.Context) ([]shopapi.Appointment, error) {
	out, err := s.api.ListAppointments(ctx)
	return nonNil(out), err
}

func (s *service) DeleteAppointment(ctx context.Context, id int64) error {
	return s.api.DeleteAppointment(ctx, id)
}

func (s *service) Quotes(ctx context.Context) ([]shopapi.Quote, error) {
	out, err := s.api.ListQuotes(ctx)
	return nonNil(out), err
}

func (s *service) DeleteQuote(ctx context.Context, id int64) error {
	return s.api.DeleteQuote(ctx, id)
}

func (s *service) Orders(ctx context.Context) ([]shopapi.Order, error) {
	out, err := s.api.ListOrders(ctx)
	return nonNil(out), err
}

func (s *service) Products(ctx context.Context) ([]shopapi.Product, error) {
	out, err := s.api.ListProducts(ctx)
	return nonNil(out), err
}

func (s *service) CreateProduct(ctx context.Context, in ProductInput) error {
	payload, err := validateProduct(in)
	if err != nil {
		return err
	}
	return s.api.CreateProduct(ctx, payload)
}

func (s *service) UpdateProduct(ctx context.Context, id int64, in ProductInput) error {
	payload, err := validateProduct(in)
	if err != nil {
		return err
	}
	return s.api.UpdateProduct(ctx, id, payload)
}

func (s *service) DeleteProduct(ctx context.Context, id int64) error {
	return s.api.DeleteProduct(ctx, id)
}

// SetStock writes an absolute stock level, clamped at zero, and returns the applied value.
func (s *service) SetStock(ctx context.Context, id int64, stock int) (int, error) {
	if stock < 0 {
		stock = 0
	}
	if err := s.api.UpdateStock(ctx, id, stock); err != nil {
		return 0, err
	}
	return stock, nil
}

// AdjustStock applies delta to the current stock level, never going below zero.
func (s *service) AdjustStock(ctx context.Context, id int64, delta int) (int, error) {
	product, err := s.api.GetProduct(ctx, id)
	if err != nil {
		return 0, err
	}
	return s.SetStock(ctx, id, product.Stock+delta)
}

func (s *service) Notifications(ctx context.Context, productID int64) ([]shopapi.StockNotification, error) {
	out, err := s.api.ListStockNotifications(ctx, productID)
	return nonNil(out), err
}

var productRules = newProductValidator()

func newProductValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	// Decimals are compared as floats; a null promo price reads as absent.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		switch d := field.Interface().(type) {
		case decimal.Decimal:
			f, _ := d.Float64()
			return f
		case decimal.NullDecimal:
			if !d.Valid {
				return nil
			}
			f, _ := d.Decimal.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{}, decimal.NullDecimal{})
	_ = v.RegisterValidation("product_category", func(fl validator.FieldLevel) bool {
		_, err := enums.ParseProductCategory(fl.Field().String())
		return err == nil
	})
	return v
}

func normalizeProduct(in ProductInput) productForm {
	form := productForm{
		Name:        strings.TrimSpace(in.Name),
		Price:       in.Price,
		Category:    strings.TrimSpace(in.Category),
		PromoPrice:  in.PromoPrice,
		Stock:       in.Stock,
		Reference:   strings.TrimSpace(in.Reference),
		Images:      make([]string, 0, len(in.Images)),
		Description: strings.TrimSpace(in.Description),
	}
	if form.PromoPrice.Valid && form.PromoPrice.Decimal.IsZero() {
		form.PromoPrice = decimal.NullDecimal{}
	}
	for _, img := range in.Images {
		if img = strings.TrimSpace(img); img != "" {
			form.Images = append(form.Images, img)
		}
	}
	return form
}

func validateProduct(in ProductInput) (shopapi.ProductInput, error) {
	form := normalizeProduct(in)
	if err := productRules.Struct(form); err != nil {
		var errs validator.ValidationErrors
		if !errors.As(err, &errs) {
			return shopapi.ProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
		}
		fields := make(map[string]string, len(errs))
		for _, fe := range errs {
			fields[fe.Field()] = productRuleMessage(fe)
		}
		return shopapi.ProductInput{}, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(fields)
	}

	return shopapi.ProductInput{
		Name:        form.Name,
		Price:       form.Price,
		Category:    form.Category,
		PromoPrice:  form.PromoPrice,
		Stock:       form.Stock,
		Reference:   form.Reference,
		Images:      form.Images,
		Description: form.Description,
	}, nil
}

func productRuleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at most %s images", fe.Param())
		}
		return "must be at most " + fe.Param() + " characters"
	case "ltfield":
		return "must be lower than price"
	case "url":
		return "must be a valid url"
	}
	return "is invalid"
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
