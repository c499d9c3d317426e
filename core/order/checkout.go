package order

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/galvarado/tienda/core/cart"
	"github.com/galvarado/tienda/core/product"
	"github.com/galvarado/tienda/core/user"
	"github.com/galvarado/tienda/database"
	"github.com/galvarado/tienda/random"
	"github.com/galvarado/tienda/validate"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

var (
	// ErrEmptyOrder is returned when neither the request nor the cart
	// supplies any item to check out.
	ErrEmptyOrder = errors.New("no items to checkout")

	// ErrReferenceConflict is returned when a unique order reference
	// could not be allocated within the retry budget.
	ErrReferenceConflict = errors.New("could not allocate a unique order reference")
)

const (
	referenceLength   = 10
	referenceAttempts = 3
)

// Checkout converts the requested items into a persisted PENDING order,
// decrementing the stock of each product on the way. The whole conversion
// is one transaction: if any product is missing or short on stock, nothing
// is decremented, no order exists and the cart is untouched.
//
// When fromCart is set, the user's cart supplies the items (unless the
// request carries an explicit list, which then takes precedence) and is
// cleared inside the same transaction.
func Checkout(ctx context.Context, db *sqlx.DB, req OrderNew, fromCart bool) (Order, error) {
	usr, err := user.Fetch(ctx, db, req.UserID)
	if err != nil {
		return Order{}, err
	}

	lines := mergeLines(req.Items)

	if len(lines) == 0 && fromCart {
		items, err := cart.FetchItems(ctx, db, usr.ID)
		if err != nil {
			return Order{}, err
		}

		for _, it := range items {
			lines = append(lines, ItemNew{ProductID: it.ProductID, Quantity: it.Quantity})
		}
	}

	if len(lines) == 0 {
		return Order{}, ErrEmptyOrder
	}

	// Concurrent checkouts over overlapping products must lock product
	// rows in the same order, or two of them could deadlock waiting on
	// each other. Sorting by product id fixes the lock order globally.
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

	// The reference is random, so an insert can collide with an existing
	// order. Retry the whole transaction a bounded number of times; a
	// collision aborts cleanly like any other in-transaction failure.
	for attempt := 0; attempt < referenceAttempts; attempt++ {
		ord, err := checkout(ctx, db, usr.ID, req, lines, fromCart)
		if isUniqueViolation(err) {
			continue
		}
		return ord, err
	}

	return Order{}, ErrReferenceConflict
}

func checkout(ctx context.Context, db *sqlx.DB, userID string, req OrderNew, lines []ItemNew, fromCart bool) (Order, error) {
	now := time.Now().UTC()
	ord := Order{
		ID:              validate.GenerateID(),
		Reference:       random.String(referenceLength),
		UserID:          userID,
		Email:           req.Email,
		ShippingAddress: req.ShippingAddress,
		ContactPhone:    req.ContactPhone,
		PaymentMethod:   req.PaymentMethod,
		Status:          Pending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := database.Transaction(db, func(tx sqlx.ExtContext) error {
		total := decimal.Zero
		items := make([]Item, 0, len(lines))

		for _, ln := range lines {
			res, err := product.Reserve(ctx, tx, ln.ProductID, ln.Quantity)
			if err != nil {
				return err
			}

			items = append(items, Item{
				OrderID:   ord.ID,
				ProductID: res.ProductID,
				Quantity:  ln.Quantity,
				UnitPrice: res.Price,
				CreatedAt: now,
			})

			total = total.Add(res.Price.Mul(decimal.NewFromInt(int64(ln.Quantity))))
		}

		ord.Total = total
		if err := Create(ctx, tx, ord); err != nil {
			return err
		}

		for _, it := range items {
			if err := CreateItem(ctx, tx, it); err != nil {
				return err
			}
		}

		if fromCart {
			if err := cart.Delete(ctx, tx, userID); err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		return Order{}, fmt.Errorf("checking out for user[%s]: %w", userID, err)
	}

	ord.Items, err = FetchItems(ctx, db, ord.ID)
	if err != nil {
		return Order{}, err
	}

	return ord, nil
}

// mergeLines collapses duplicate product ids into a single line, summing
// quantities, so the per-order one-line-per-product invariant holds even
// for sloppy client input.
func mergeLines(in []ItemNew) []ItemNew {
	if len(in) == 0 {
		return nil
	}

	byProduct := make(map[string]int, len(in))
	order := make([]string, 0, len(in))
	for _, ln := range in {
		if _, ok := byProduct[ln.ProductID]; !ok {
			order = append(order, ln.ProductID)
		}
		byProduct[ln.ProductID] += ln.Quantity
	}

	out := make([]ItemNew, 0, len(order))
	for _, id := range order {
		out = append(out, ItemNew{ProductID: id, Quantity: byProduct[id]})
	}
	return out
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == "orders_reference_key"
}
