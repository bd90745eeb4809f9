package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phonelife/storefront/pkg/enums"
	pkgerrors "github.com/phonelife/storefront/pkg/errors"
	"github.com/phonelife/storefront/pkg/shopapi"
)

// Filter narrows the product listing. An empty or "all" category matches everything.
type Filter struct {
	Search   string
	Category string
}

// Service exposes the storefront catalog.
type Service interface {
	List(ctx context.Context, filter Filter) ([]ProductDTO, error)
	Get(ctx context.Context, id int64) (*ProductDTO, error)
	CheckStock(product ProductDTO, quantity int) error
	NotifyWhenAvailable(ctx context.Context, id int64, email string) error
	Categories() []CategoryDTO
}

type productSource interface {
	ListProducts(ctx context.Context) ([]shopapi.Product, error)
	GetProduct(ctx context.Context, id int64) (*shopapi.Product, error)
	CreateStockNotification(ctx context.Context, productID int64, email string) error
}

var validate = validator.New()

type service struct {
	api productSource
}

// NewService constructs a catalog service backed by the shop API.
func NewService(api productSource) (Service, error) {
	if api == nil {
		return nil, fmt.Errorf("shop api client required")
	}
	return &service{api: api}, nil
}

func (s *service) List(ctx context.Context, filter Filter) ([]ProductDTO, error) {
	products, err := s.api.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		if filter.matches(p) {
			out = append(out, toDTO(p))
		}
	}
	return out, nil
}

func (f Filter) matches(p shopapi.Product) bool {
	category := strings.TrimSpace(f.Category)
	if category != "" && category != string(enums.ProductCategoryAll) && p.Category != category {
		return false
	}
	term := strings.ToLower(strings.TrimSpace(f.Search))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), term) ||
		(p.Reference != "" && strings.Contains(strings.ToLower(p.Reference), term))
}

func (s *service) Get(ctx context.Context, id int64) (*ProductDTO, error) {
	p, err := s.api.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toDTO(*p)
	return &dto, nil
}

// CheckStock rejects a request for more units than the product has in stock.
func (s *service) CheckStock(product ProductDTO, quantity int) error {
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if quantity > product.Stock {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "Stock insuffisant").
			WithDetails(map[string]any{
				"productId": product.ID,
				"requested": quantity,
				"available": product.Stock,
			})
	}
	return nil
}

func (s *service) NotifyWhenAvailable(ctx context.Context, id int64, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if err := validate.Var(email, "email"); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "email is invalid")
	}
	if _, err := s.api.GetProduct(ctx, id); err != nil {
		return err
	}
	return s.api.CreateStockNotification(ctx, id, email)
}

func (s *service) Categories() []CategoryDTO {
	cats := enums.FilterCategories()
	out := make([]CategoryDTO, 0, len(cats))
	for _, c := range cats {
		out = append(out, CategoryDTO{ID: c.String(), Label: c.Label()})
	}
	return out
}
