package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is the per-user staging area for a future order. It is keyed by the
// owning user directly: a user has at most one cart, created lazily on
// first access. Prices and display data on the items are snapshots taken
// when the product was added; checkout re-reads the catalog and live stock.
type Cart struct {
	UserID    string    `json:"userId" db:"user_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
	Version   int       `json:"-" db:"version"`
	Items     []Item    `json:"items" db:"-"`
}

type Item struct {
	UserID    string          `json:"-" db:"user_id"`
	ProductID string          `json:"productId" db:"product_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice" db:"unit_price"`
	Name      string          `json:"name" db:"name"`
	ImageURL  string          `json:"imageUrl" db:"image_url"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time       `json:"updatedAt" db:"updated_at"`
}

type ItemNew struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

type ItemUp struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}
