package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID         string          `json:"id"`
	CustomerID int64           `json:"customer_id"`
	OrderDate  time.Time       `json:"order_date"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Shipping   decimal.Decimal `json:"shipping"`
	Total      decimal.Decimal `json:"total"`
	Status     Status          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	Lines      []OrderLine     `json:"lines,omitempty"`
}

// OrderLine is owned by its Order. ProductName is captured at checkout and
// does not follow later product renames.
type OrderLine struct {
	OrderID     string `json:"order_id"`
	LineNo      int    `json:"line_no"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
}

type CartItem struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

// PlaceOrderInput carries totals computed by the caller; they are stored as given.
type PlaceOrderInput struct {
	CustomerID int64
	Items      []CartItem
	Subtotal   decimal.Decimal
	Shipping   decimal.Decimal
	Total      decimal.Decimal
}
