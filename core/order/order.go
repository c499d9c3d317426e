package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	Pending Status = "PENDING"
)

// Order is an immutable snapshot of a completed checkout. Contact and
// shipping data are copied in at creation time, and every item carries the
// unit price charged, independent of later catalog changes. Status moves
// past PENDING only through the fulfillment service.
type Order struct {
	ID              string          `json:"id" db:"order_id"`
	Reference       string          `json:"reference" db:"reference"`
	UserID          string          `json:"userId" db:"user_id"`
	Email           string          `json:"email" db:"email"`
	ShippingAddress string          `json:"shippingAddress" db:"shipping_address"`
	ContactPhone    string          `json:"contactPhone" db:"contact_phone"`
	PaymentMethod   string          `json:"paymentMethod" db:"payment_method"`
	ProviderID      string          `json:"providerId,omitempty" db:"provider_id"`
	Status          Status          `json:"status" db:"status"`
	Total           decimal.Decimal `json:"total" db:"total"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
	Items           []Item          `json:"items" db:"-"`
}

type Item struct {
	OrderID   string          `json:"-" db:"order_id"`
	ProductID string          `json:"productId" db:"product_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice" db:"unit_price"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
}

// OrderNew is a checkout request. Items may be omitted when checking out
// from the cart, in which case the cart's current content is used.
type OrderNew struct {
	UserID          string    `json:"userId" validate:"required"`
	Email           string    `json:"email" validate:"required,email"`
	ShippingAddress string    `json:"shippingAddress" validate:"required"`
	ContactPhone    string    `json:"contactPhone" validate:"required"`
	PaymentMethod   string    `json:"paymentMethod" validate:"required"`
	Items           []ItemNew `json:"items" validate:"omitempty,dive"`
}

type ItemNew struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}
