package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var now = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("creating sqlmock: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })

	return sqlx.NewDb(mockDB, "postgres"), mock
}

func TestUpsertItemMergesQuantities(t *testing.T) {
	db, mock := newMock(t)

	item := Item{
		UserID:    "u1",
		ProductID: "p1",
		Quantity:  2,
		UnitPrice: decimal.RequireFromString("4.50"),
		Name:      "almonds",
		ImageURL:  "img",
		CreatedAt: now,
		UpdatedAt: now,
	}

	// The same statement serves first add and merge: the ON CONFLICT arm
	// adds the incoming quantity to the existing line.
	mock.ExpectExec("INSERT INTO cart_items .+ ON CONFLICT \\(user_id, product_id\\) DO UPDATE").
		WithArgs("u1", "p1", 2, item.UnitPrice, "almonds", "img", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := UpsertItem(context.Background(), db, item); err != nil {
		t.Fatalf("upserting item: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateItemQuantityNotFound(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec("UPDATE cart_items SET quantity").
		WithArgs("u1", "p1", 4, now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := UpdateItemQuantity(context.Background(), db, "u1", "p1", 4, now)
	if !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeleteItem(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec("DELETE FROM cart_items WHERE user_id = .+ AND product_id").
		WithArgs("u1", "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := DeleteItem(context.Background(), db, "u1", "p1"); err != nil {
		t.Fatalf("deleting item: %v", err)
	}

	mock.ExpectExec("DELETE FROM cart_items WHERE user_id = .+ AND product_id").
		WithArgs("u1", "p1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := DeleteItem(context.Background(), db, "u1", "p1"); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	db, mock := newMock(t)

	// Clearing an empty cart affects no rows and is still not an error.
	mock.ExpectExec("DELETE FROM cart_items WHERE user_id").
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := Delete(context.Background(), db, "u1"); err != nil {
		t.Fatalf("clearing empty cart: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
