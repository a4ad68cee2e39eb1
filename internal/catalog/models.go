package catalog

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidProduct  = errors.New("invalid product")
	ErrEmptyPatch      = errors.New("nothing to update")
)

type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Author      string          `json:"author"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Image       string          `json:"image"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type NewProduct struct {
	Name        string          `json:"name"`
	Author      string          `json:"author"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Image       string          `json:"-"`
}

func (p NewProduct) Validate() error {
	switch {
	case p.Name == "":
		return errors.Join(ErrInvalidProduct, errors.New("name is required"))
	case p.Price.IsNegative():
		return errors.Join(ErrInvalidProduct, errors.New("price must not be negative"))
	case p.Stock < 0:
		return errors.Join(ErrInvalidProduct, errors.New("stock must not be negative"))
	}
	return nil
}

// ProductPatch lists every column an administrator may change. Nil fields
// are left as they are.
type ProductPatch struct {
	Name        *string          `json:"name,omitempty"`
	Author      *string          `json:"author,omitempty"`
	Description *string          `json:"description,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Stock       *int             `json:"stock,omitempty"`
	Image       *string          `json:"-"`
}

func (p ProductPatch) Validate() error {
	if p.Name != nil && *p.Name == "" {
		return errors.Join(ErrInvalidProduct, errors.New("name must not be empty"))
	}
	if p.Price != nil && p.Price.IsNegative() {
		return errors.Join(ErrInvalidProduct, errors.New("price must not be negative"))
	}
	if p.Stock != nil && *p.Stock < 0 {
		return errors.Join(ErrInvalidProduct, errors.New("stock must not be negative"))
	}
	return nil
}

// assignments returns column/value pairs in a fixed order.
func (p ProductPatch) assignments() ([]string, []any) {
	var cols []string
	var vals []any
	add := func(col string, v any) {
		cols = append(cols, col)
		vals = append(vals, v)
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.Author != nil {
		add("author", *p.Author)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.Category != nil {
		add("category", *p.Category)
	}
	if p.Price != nil {
		add("price", p.Price.String())
	}
	if p.Stock != nil {
		add("stock", *p.Stock)
	}
	if p.Image != nil {
		add("image", *p.Image)
	}
	return cols, vals
}
