package domain

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Product is a structured product record as imported from a catalog.
// JSON keys match the prompt placeholders so records can be posted as-is.
type Product struct {
	Name                string   `json:"nome" validate:"required"`
	Material            string   `json:"material,omitempty"`
	Color               string   `json:"cor,omitempty"`
	SupplierDescription string   `json:"descricao_fornecedor,omitempty"`
	Category1           string   `json:"categoria1,omitempty"`
	Category2           string   `json:"categoria2,omitempty"`
	Brand               string   `json:"marca,omitempty"`
	Price               *float64 `json:"preco,omitempty" validate:"omitempty,gte=0"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func productValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the product's required fields
func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if err := productValidator().Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProduct, err)
	}
	return nil
}

// PriceValue returns the price and whether it is present
func (p Product) PriceValue() (float64, bool) {
	if p.Price == nil {
		return 0, false
	}
	return *p.Price, true
}

// Float64 is a helper for building products with a price literal
func Float64(v float64) *float64 {
	return &v
}
