package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("product not found")

func Create(ctx context.Context, db sqlx.ExtContext, prod Product) error {
	const q = `
	INSERT INTO products (product_id, name, description, image_url, price, stock, created_at, updated_at)
	VALUES (:product_id, :name, :description, :image_url, :price, :stock, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, prod); err != nil {
		return fmt.Errorf("inserting product: %w", err)
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, productID string) (Product, error) {
	const q = `SELECT * FROM products WHERE product_id = $1`

	var prod Product
	if err := sqlx.GetContext(ctx, db, &prod, q, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("selecting product[%s]: %w", productID, err)
	}

	return prod, nil
}

func FetchAll(ctx context.Context, db sqlx.ExtContext) ([]Product, error) {
	const q = `SELECT * FROM products ORDER BY name`

	prods := []Product{}
	if err := sqlx.SelectContext(ctx, db, &prods, q); err != nil {
		return nil, fmt.Errorf("selecting products: %w", err)
	}

	return prods, nil
}

func Update(ctx context.Context, db sqlx.ExtContext, prod Product) error {
	const q = `
	UPDATE products SET
		name = :name,
		description = :description,
		image_url = :image_url,
		price = :price,
		stock = :stock,
		updated_at = :updated_at,
		version = version + 1
	WHERE product_id = :product_id`

	if _, err := sqlx.NamedExecContext(ctx, db, q, prod); err != nil {
		return fmt.Errorf("updating product[%s]: %w", prod.ID, err)
	}

	return nil
}

func Delete(ctx context.Context, db sqlx.ExtContext, productID string) error {
	const q = `DELETE FROM products WHERE product_id = $1`

	res, err := db.ExecContext(ctx, q, productID)
	if err != nil {
		return fmt.Errorf("deleting product[%s]: %w", productID, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	return nil
}

// Reservation reports the outcome of a successful stock reservation: the
// stock left after the decrement and the unit price read under the same
// row lock, which is the price frozen into the order line.
type Reservation struct {
	ProductID string          `db:"product_id"`
	Name      string          `db:"name"`
	Price     decimal.Decimal `db:"price"`
	Remaining int             `db:"stock"`
}

// Reserve decrements the product's stock by quantity, failing with
// InsufficientStockError when fewer than quantity units remain. The
// decrement and the stock check are a single conditional UPDATE, so two
// reservations racing for the same units cannot both win: the row lock
// taken by the first statement serializes the second behind it, and the
// re-evaluated WHERE clause rejects it if the stock ran out.
func Reserve(ctx context.Context, db sqlx.ExtContext, productID string, quantity int) (Reservation, error) {
	const q = `
	UPDATE products SET stock = stock - $2, version = version + 1
	WHERE product_id = $1 AND stock >= $2
	RETURNING product_id, name, price, stock`

	var res Reservation
	err := sqlx.GetContext(ctx, db, &res, q, productID, quantity)
	if err == nil {
		return res, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return Reservation{}, fmt.Errorf("reserving %d units of product[%s]: %w", quantity, productID, err)
	}

	// The conditional update matched nothing: either the product is gone
	// or the stock is short. Re-read to tell the two apart.
	prod, ferr := Fetch(ctx, db, productID)
	if ferr != nil {
		return Reservation{}, ferr
	}

	return Reservation{}, &InsufficientStockError{
		ProductID: productID,
		Available: prod.Stock,
		Requested: quantity,
	}
}
