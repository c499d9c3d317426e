package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("order not found")

func Create(ctx context.Context, db sqlx.ExtContext, ord Order) error {
	const q = `
	INSERT INTO orders
		(order_id, reference, user_id, email, shipping_address, contact_phone,
		 payment_method, provider_id, status, total, created_at, updated_at)
	VALUES
		(:order_id, :reference, :user_id, :email, :shipping_address, :contact_phone,
		 :payment_method, :provider_id, :status, :total, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, ord); err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}

	return nil
}

func CreateItem(ctx context.Context, db sqlx.ExtContext, item Item) error {
	const q = `
	INSERT INTO order_items (order_id, product_id, quantity, unit_price, created_at)
	VALUES (:order_id, :product_id, :quantity, :unit_price, :created_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, item); err != nil {
		return fmt.Errorf("inserting order item: %w", err)
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, orderID string) (Order, error) {
	const q = `SELECT * FROM orders WHERE order_id = $1`

	var ord Order
	if err := sqlx.GetContext(ctx, db, &ord, q, orderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("selecting order[%s]: %w", orderID, err)
	}

	items, err := FetchItems(ctx, db, orderID)
	if err != nil {
		return Order{}, err
	}

	ord.Items = items
	return ord, nil
}

func FetchItems(ctx context.Context, db sqlx.ExtContext, orderID string) ([]Item, error) {
	const q = `SELECT * FROM order_items WHERE order_id = $1 ORDER BY product_id`

	items := []Item{}
	if err := sqlx.SelectContext(ctx, db, &items, q, orderID); err != nil {
		return nil, fmt.Errorf("selecting items of order[%s]: %w", orderID, err)
	}

	return items, nil
}

func FetchByUser(ctx context.Context, db sqlx.ExtContext, userID string) ([]Order, error) {
	const q = `SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	ords := []Order{}
	if err := sqlx.SelectContext(ctx, db, &ords, q, userID); err != nil {
		return nil, fmt.Errorf("selecting orders of user[%s]: %w", userID, err)
	}

	for i := range ords {
		items, err := FetchItems(ctx, db, ords[i].ID)
		if err != nil {
			return nil, err
		}
		ords[i].Items = items
	}

	return ords, nil
}

// UpdateProvider binds the order to the id assigned by the payment
// collaborator. The rest of the order never changes after creation.
func UpdateProvider(ctx context.Context, db sqlx.ExtContext, orderID string, providerID string, now time.Time) error {
	const q = `UPDATE orders SET provider_id = $2, updated_at = $3 WHERE order_id = $1`

	res, err := db.ExecContext(ctx, q, orderID, providerID, now)
	if err != nil {
		return fmt.Errorf("binding order[%s] to payment[%s]: %w", orderID, providerID, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	return nil
}
