package product

import (
	"context"
	"errors"
	"testing"

	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var sampleTime = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("creating sqlmock: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })

	return sqlx.NewDb(mockDB, "postgres"), mock
}

func TestReserve(t *testing.T) {
	db, mock := newMock(t)

	rows := sqlmock.NewRows([]string{"product_id", "name", "price", "stock"}).
		AddRow("p1", "olive oil", "9.99", 3)
	mock.ExpectQuery("UPDATE products SET stock = stock -").
		WithArgs("p1", 2).
		WillReturnRows(rows)

	res, err := Reserve(context.Background(), db, "p1", 2)
	if err != nil {
		t.Fatalf("reserving: %v", err)
	}

	if res.Remaining != 3 {
		t.Errorf("expected 3 units remaining, got %d", res.Remaining)
	}
	if !res.Price.Equal(decimal.RequireFromString("9.99")) {
		t.Errorf("expected frozen price 9.99, got %s", res.Price)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReserveInsufficient(t *testing.T) {
	db, mock := newMock(t)

	// The conditional update matches no row, so the current stock is
	// re-read to build the error.
	mock.ExpectQuery("UPDATE products SET stock = stock -").
		WithArgs("p1", 5).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "name", "price", "stock"}))

	rows := sqlmock.NewRows([]string{"product_id", "name", "description", "image_url", "price", "stock", "created_at", "updated_at", "version"}).
		AddRow("p1", "olive oil", "extra virgin", "img", "9.99", 2, sampleTime, sampleTime, 1)
	mock.ExpectQuery("SELECT \\* FROM products").
		WithArgs("p1").
		WillReturnRows(rows)

	_, err := Reserve(context.Background(), db, "p1", 5)

	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.Available != 2 || stockErr.Requested != 5 || stockErr.ProductID != "p1" {
		t.Errorf("unexpected error details: %+v", stockErr)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReserveUnknownProduct(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery("UPDATE products SET stock = stock -").
		WithArgs("missing", 1).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "name", "price", "stock"}))

	mock.ExpectQuery("SELECT \\* FROM products").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"product_id"}))

	_, err := Reserve(context.Background(), db, "missing", 1)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
