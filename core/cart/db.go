package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrItemNotFound = errors.New("product not in cart")

// Ensure creates the user's cart row if it doesn't exist yet. Carts are
// created lazily, so every entry point goes through here first.
func Ensure(ctx context.Context, db sqlx.ExtContext, userID string, now time.Time) error {
	const q = `
	INSERT INTO carts (user_id, created_at, updated_at)
	VALUES ($1, $2, $2)
	ON CONFLICT (user_id) DO NOTHING`

	if _, err := db.ExecContext(ctx, q, userID, now); err != nil {
		return fmt.Errorf("ensuring cart for user[%s]: %w", userID, err)
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, userID string) (Cart, error) {
	const q = `SELECT user_id, created_at, updated_at, version FROM carts WHERE user_id = $1`

	var crt Cart
	if err := sqlx.GetContext(ctx, db, &crt, q, userID); err != nil {
		return Cart{}, fmt.Errorf("selecting cart of user[%s]: %w", userID, err)
	}

	items, err := FetchItems(ctx, db, userID)
	if err != nil {
		return Cart{}, err
	}

	crt.Items = items
	return crt, nil
}

func FetchItems(ctx context.Context, db sqlx.ExtContext, userID string) ([]Item, error) {
	const q = `SELECT * FROM cart_items WHERE user_id = $1 ORDER BY created_at`

	items := []Item{}
	if err := sqlx.SelectContext(ctx, db, &items, q, userID); err != nil {
		return nil, fmt.Errorf("selecting cart items of user[%s]: %w", userID, err)
	}

	return items, nil
}

// UpsertItem adds the item to the cart. If the product is already there the
// quantities are merged rather than the row duplicated; the price, name and
// image snapshots of the first add are kept.
func UpsertItem(ctx context.Context, db sqlx.ExtContext, item Item) error {
	const q = `
	INSERT INTO cart_items (user_id, product_id, quantity, unit_price, name, image_url, created_at, updated_at)
	VALUES (:user_id, :product_id, :quantity, :unit_price, :name, :image_url, :created_at, :updated_at)
	ON CONFLICT (user_id, product_id) DO UPDATE
	SET quantity = cart_items.quantity + EXCLUDED.quantity,
	    updated_at = EXCLUDED.updated_at`

	if _, err := sqlx.NamedExecContext(ctx, db, q, item); err != nil {
		return fmt.Errorf("upserting cart item[%s] for user[%s]: %w", item.ProductID, item.UserID, err)
	}

	return nil
}

// UpdateItemQuantity overwrites the quantity of an existing line. It fails
// with ErrItemNotFound when the product is not in the cart.
func UpdateItemQuantity(ctx context.Context, db sqlx.ExtContext, userID string, productID string, quantity int, now time.Time) error {
	const q = `
	UPDATE cart_items SET quantity = $3, updated_at = $4
	WHERE user_id = $1 AND product_id = $2`

	res, err := db.ExecContext(ctx, q, userID, productID, quantity, now)
	if err != nil {
		return fmt.Errorf("updating quantity of cart item[%s] for user[%s]: %w", productID, userID, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrItemNotFound
	}

	return nil
}

// DeleteItem removes a line from the cart, failing with ErrItemNotFound
// when the product is not there.
func DeleteItem(ctx context.Context, db sqlx.ExtContext, userID string, productID string) error {
	const q = `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`

	res, err := db.ExecContext(ctx, q, userID, productID)
	if err != nil {
		return fmt.Errorf("deleting cart item[%s] for user[%s]: %w", productID, userID, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrItemNotFound
	}

	return nil
}

// Delete empties the cart. Deleting from an empty or non-existent cart is a
// no-op, never an error.
func Delete(ctx context.Context, db sqlx.ExtContext, userID string) error {
	const q = `DELETE FROM cart_items WHERE user_id = $1`

	if _, err := db.ExecContext(ctx, q, userID); err != nil {
		return fmt.Errorf("flushing cart of user[%s]: %w", userID, err)
	}

	return nil
}
