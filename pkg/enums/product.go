package enums

import "fmt"

// ProductCategory represents the catalog categories used by the shop.
type ProductCategory string

const (
	ProductCategoryAll         ProductCategory = "all"
	ProductCategoryAccessories ProductCategory = "accessoires"
	ProductCategoryParts       ProductCategory = "pieces"
	ProductCategoryPhones      ProductCategory = "telephones"
	ProductCategoryComputers   ProductCategory = "ordinateurs"
)

// validProductCategories lists the assignable categories; "all" is a filter only.
var validProductCategories = []ProductCategory{
	ProductCategoryAccessories,
	ProductCategoryParts,
	ProductCategoryPhones,
	ProductCategoryComputers,
}

var productCategoryLabels = map[ProductCategory]string{
	ProductCategoryAll:         "Tous les produits",
	ProductCategoryAccessories: "Accessoires",
	ProductCategoryParts:       "Pièces détachées",
	ProductCategoryPhones:      "Téléphones",
	ProductCategoryComputers:   "Ordinateurs",
}

// String implements fmt.Stringer.
func (c ProductCategory) String() string {
	return string(c)
}

// Label is the French display name of the category.
func (c ProductCategory) Label() string {
	return productCategoryLabels[c]
}

// IsValid reports whether the value is a category a product can belong to.
func (c ProductCategory) IsValid() bool {
	for _, candidate := range validProductCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// FilterCategories returns the category filter options in display order, "all" first.
func FilterCategories() []ProductCategory {
	out := make([]ProductCategory, 0, len(validProductCategories)+1)
	out = append(out, ProductCategoryAll)
	return append(out, validProductCategories...)
}

// ParseProductCategory converts raw input into an assignable ProductCategory.
func ParseProductCategory(value string) (ProductCategory, error) {
	for _, candidate := range validProductCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product category %q", value)
}
