package catalog

import (
	"github.com/phonelife/storefront/internal/cart"
	"github.com/phonelife/storefront/pkg/enums"
	"github.com/phonelife/storefront/pkg/shopapi"
	"github.com/shopspring/decimal"
)

// LowStockThreshold is the stock level at or below which a product shows "Stock limité".
const LowStockThreshold = 5

// ProductDTO is a catalog product with the display flags the storefront renders.
type ProductDTO struct {
	ID              int64               `json:"id"`
	Name            string              `json:"name"`
	Reference       string              `json:"reference,omitempty"`
	Description     string              `json:"description,omitempty"`
	Category        string              `json:"category"`
	CategoryLabel   string              `json:"category_label,omitempty"`
	Price           decimal.Decimal     `json:"price"`
	PromoPrice      decimal.NullDecimal `json:"promo_price"`
	EffectivePrice  decimal.Decimal     `json:"effective_price"`
	DiscountPercent int                 `json:"discount_percent,omitempty"`
	Stock           int                 `json:"stock"`
	InStock         bool                `json:"in_stock"`
	LowStock        bool                `json:"low_stock"`
	ImageURL        string              `json:"image_url,omitempty"`
	Images          []string            `json:"images"`
	MainImage       string              `json:"main_image,omitempty"`
	SecondImage     string              `json:"second_image,omitempty"`
}

// CategoryDTO is one entry of the category filter bar.
type CategoryDTO struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

func hasPromo(p shopapi.Product) bool {
	return p.PromoPrice.Valid && !p.PromoPrice.Decimal.IsZero()
}

// DiscountPercent is round((price - promo) / price * 100), or 0 without a promo.
func DiscountPercent(p shopapi.Product) int {
	if !hasPromo(p) || !p.Price.IsPositive() {
		return 0
	}
	pct := p.Price.Sub(p.PromoPrice.Decimal).Div(p.Price).Mul(decimal.NewFromInt(100))
	return int(pct.Round(0).IntPart())
}

func toDTO(p shopapi.Product) ProductDTO {
	images := []string(p.Images)
	if images == nil {
		images = []string{}
	}
	main := p.ImageURL
	if len(images) > 0 && images[0] != "" {
		main = images[0]
	}
	second := main
	if len(images) > 1 && images[1] != "" {
		second = images[1]
	}

	effective := p.Price
	if hasPromo(p) {
		effective = p.PromoPrice.Decimal
	}

	return ProductDTO{
		ID:              p.ID,
		Name:            p.Name,
		Reference:       p.Reference,
		Description:     p.Description,
		Category:        p.Category,
		CategoryLabel:   enums.ProductCategory(p.Category).Label(),
		Price:           p.Price,
		PromoPrice:      p.PromoPrice,
		EffectivePrice:  effective,
		DiscountPercent: DiscountPercent(p),
		Stock:           p.Stock,
		InStock:         p.Stock > 0,
		LowStock:        p.Stock > 0 && p.Stock <= LowStockThreshold,
		ImageURL:        p.ImageURL,
		Images:          images,
		MainImage:       main,
		SecondImage:     second,
	}
}

// CartProduct converts a catalog product into the snapshot source used by the cart.
func CartProduct(p ProductDTO) cart.Product {
	return cart.Product{
		ID:         cart.ProductID(p.ID),
		Name:       p.Name,
		Price:      p.Price,
		PromoPrice: p.PromoPrice,
		ImageURL:   p.MainImage,
	}
}
