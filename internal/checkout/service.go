package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/phonelife/storefront/internal/cart"
	"github.com/phonelife/storefront/pkg/enums"
	pkgerrors "github.com/phonelife/storefront/pkg/errors"
	"github.com/phonelife/storefront/pkg/logger"
	"github.com/phonelife/storefront/pkg/shopapi"
	"github.com/shopspring/decimal"
)

// Form is the customer information collected on the checkout page.
type Form struct {
	Nom           string
	Prenom        string
	Email         string
	Telephone     string
	Adresse       string
	Ville         string
	CodePostal    string
	PaymentMethod enums.PaymentMethod
}

// Result describes a placed order.
type Result struct {
	OrderID   string          `json:"order_id"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

// CartStore is the part of the cart store checkout depends on.
type CartStore interface {
	Items() cart.Items
	ClearCart(ctx context.Context)
}

// Service turns the current cart into an order.
type Service interface {
	PlaceOrder(ctx context.Context, store CartStore, form Form) (*Result, error)
}

type orderCreator interface {
	CreateOrder(ctx context.Context, order shopapi.OrderRequest) (*shopapi.OrderResult, error)
}

type service struct {
	api   orderCreator
	logg  *logger.Logger
	now   func() time.Time
	check *validator.Validate
}

// NewService constructs a checkout service posting orders to the shop API.
func NewService(api orderCreator, logg *logger.Logger) (Service, error) {
	if api == nil {
		return nil, fmt.Errorf("shop api client required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{api: api, logg: logg, now: time.Now, check: validator.New()}, nil
}

// PlaceOrder submits the cart and clears it only once the API accepted the order.
func (s *service) PlaceOrder(ctx context.Context, store CartStore, form Form) (*Result, error) {
	form = normalize(form)
	if err := s.validate(form); err != nil {
		return nil, err
	}

	items := store.Items()
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	total := items.Total()
	req := shopapi.OrderRequest{
		Nom:           form.Nom,
		Prenom:        form.Prenom,
		Email:         form.Email,
		Telephone:     form.Telephone,
		Adresse:       form.Adresse,
		Ville:         form.Ville,
		CodePostal:    form.CodePostal,
		PaymentMethod: form.PaymentMethod.String(),
		Items:         orderLines(items),
		Total:         json.Number(total.String()),
		Date:          s.now().UTC().Format(time.RFC3339),
	}

	res, err := s.api.CreateOrder(ctx, req)
	if err != nil {
		s.logg.WarnErr(ctx, "order submission failed, cart kept", err)
		return nil, err
	}

	store.ClearCart(ctx)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id": res.OrderID.String(),
		"total":    total.String(),
	}), "order placed")

	return &Result{OrderID: res.OrderID.String(), Total: total, ItemCount: items.Count()}, nil
}

func normalize(form Form) Form {
	form.Nom = strings.TrimSpace(form.Nom)
	form.Prenom = strings.TrimSpace(form.Prenom)
	form.Email = strings.TrimSpace(form.Email)
	form.Telephone = strings.TrimSpace(form.Telephone)
	form.Adresse = strings.TrimSpace(form.Adresse)
	form.Ville = strings.TrimSpace(form.Ville)
	form.CodePostal = strings.TrimSpace(form.CodePostal)
	if form.PaymentMethod == "" {
		form.PaymentMethod = enums.DefaultPaymentMethod
	}
	return form
}

func (s *service) validate(form Form) error {
	var missing []string
	if form.Nom == "" {
		missing = append(missing, "nom")
	}
	if form.Email == "" {
		missing = append(missing, "email")
	}
	if form.Telephone == "" {
		missing = append(missing, "telephone")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "Veuillez remplir tous les champs obligatoires").
			WithDetails(map[string]any{"missing": missing})
	}
	if err := s.check.Var(form.Email, "email"); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "email is invalid").
			WithDetails(map[string]any{"field": "email"})
	}
	if !form.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment method is invalid").
			WithDetails(map[string]any{"field": "paymentMethod"})
	}
	return nil
}

func orderLines(items cart.Items) []shopapi.OrderLine {
	lines := make([]shopapi.OrderLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, shopapi.OrderLine{
			ProductID: int64(item.ProductID),
			Name:      item.Name,
			Price:     json.Number(item.UnitPrice.String()),
			ImageURL:  item.ImageURL,
			Quantity:  item.Quantity,
		})
	}
	return lines
}
