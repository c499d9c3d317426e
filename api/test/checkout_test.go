package test

import (
	"net/http"
	"sync"
	"testing"

	"github.com/galvarado/tienda/core/cart"
	"github.com/galvarado/tienda/core/order"
	"github.com/galvarado/tienda/validate"
	"github.com/shopspring/decimal"
)

type checkoutReq struct {
	UserID          string        `json:"userId"`
	Email           string        `json:"email"`
	ShippingAddress string        `json:"shippingAddress"`
	ContactPhone    string        `json:"contactPhone"`
	PaymentMethod   string        `json:"paymentMethod"`
	Items           []checkoutItm `json:"items,omitempty"`
}

type checkoutItm struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func newCheckoutReq(userID string, items ...checkoutItm) checkoutReq {
	return checkoutReq{
		UserID:          userID,
		Email:           "ana@example.com",
		ShippingAddress: "Calle Mayor 1, Madrid",
		ContactPhone:    "600123123",
		PaymentMethod:   "card",
		Items:           items,
	}
}

func TestCheckoutFromCart(t *testing.T) {
	env := NewTestEnv(t)

	usr := env.CreateUser(t)
	p1 := env.CreateProduct(t, "olive-oil", "9.99", 5)
	p2 := env.CreateProduct(t, "almonds", "4.50", 3)

	addPath := "/cart/add?user_id=" + usr.ID
	if code := env.Do(t, http.MethodPost, addPath, addItem{p1.ID, 2}, nil); code != http.StatusOK {
		t.Fatalf("adding item: status code %d", code)
	}
	if code := env.Do(t, http.MethodPost, addPath, addItem{p2.ID, 1}, nil); code != http.StatusOK {
		t.Fatalf("adding item: status code %d", code)
	}

	var ord order.Order
	if code := env.Do(t, http.MethodPost, "/cart/finalizar", newCheckoutReq(usr.ID), &ord); code != http.StatusCreated {
		t.Fatalf("finalizing checkout: status code %d", code)
	}

	if ord.Status != order.Pending {
		t.Errorf("expected status %s, got %s", order.Pending, ord.Status)
	}
	want := decimal.RequireFromString("24.48") // 2*9.99 + 4.50
	if !ord.Total.Equal(want) {
		t.Errorf("expected total %s, got %s", want, ord.Total)
	}
	if len(ord.Items) != 2 {
		t.Errorf("expected 2 order lines, got %d", len(ord.Items))
	}

	// Stock was decremented and the cart cleared in the same unit of work.
	if got := env.FetchProduct(t, p1.ID).Stock; got != 3 {
		t.Errorf("expected stock 3 for %s, got %d", p1.Name, got)
	}
	if got := env.FetchProduct(t, p2.ID).Stock; got != 2 {
		t.Errorf("expected stock 2 for %s, got %d", p2.Name, got)
	}

	var crt cart.Cart
	if code := env.Do(t, http.MethodGet, "/cart/"+usr.ID, nil, &crt); code != http.StatusOK {
		t.Fatalf("fetching cart: status code %d", code)
	}
	if len(crt.Items) != 0 {
		t.Errorf("expected cleared cart, got %d lines", len(crt.Items))
	}

	// The persisted order reads back identical.
	var fetched order.Order
	if code := env.Do(t, http.MethodGet, "/orders/"+ord.ID, nil, &fetched); code != http.StatusOK {
		t.Fatalf("fetching order: status code %d", code)
	}
	if !fetched.Total.Equal(ord.Total) {
		t.Errorf("expected persisted total %s, got %s", ord.Total, fetched.Total)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	env := NewTestEnv(t)

	usr := env.CreateUser(t)

	if code := env.Do(t, http.MethodPost, "/cart/finalizar", newCheckoutReq(usr.ID), nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty cart, got %d", code)
	}

	// No order was created.
	var ords []order.Order
	if code := env.Do(t, http.MethodGet, "/orders/user/"+usr.ID, nil, &ords); code != http.StatusOK {
		t.Fatalf("listing orders: status code %d", code)
	}
	if len(ords) != 0 {
		t.Errorf("expected no orders, got %d", len(ords))
	}
}

func TestCheckoutUnknownUser(t *testing.T) {
	env := NewTestEnv(t)

	prod := env.CreateProduct(t, "olive-oil", "9.99", 5)

	req := newCheckoutReq(validate.GenerateID(), checkoutItm{prod.ID, 1})
	if code := env.Do(t, http.MethodPost, "/orders", req, nil); code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown user, got %d", code)
	}
}

func TestCheckoutPriceFrozen(t *testing.T) {
	env := NewTestEnv(t)

	usr := env.CreateUser(t)
	prod := env.CreateProduct(t, "olive-oil", "9.99", 5)

	var ord order.Order
	req := newCheckoutReq(usr.ID, checkoutItm{prod.ID, 2})
	if code := env.Do(t, http.MethodPost, "/orders", req, &ord); code != http.StatusCreated {
		t.Fatalf("creating order: status code %d", code)
	}

	// A later catalog price change must not leak into the order.
	up := map[string]any{"price": "19.99"}
	if code := env.Do(t, http.MethodPut, "/products/"+prod.ID, up, nil); code != http.StatusOK {
		t.Fatalf("updating product price: status code %d", code)
	}

	var fetched order.Order
	if code := env.Do(t, http.MethodGet, "/orders/"+ord.ID, nil, &fetched); code != http.StatusOK {
		t.Fatalf("fetching order: status code %d", code)
	}

	oldPrice := decimal.RequireFromString("9.99")
	if !fetched.Items[0].UnitPrice.Equal(oldPrice) {
		t.Errorf("expected frozen price %s, got %s", oldPrice, fetched.Items[0].UnitPrice)
	}
	if !fetched.Total.Equal(oldPrice.Mul(decimal.NewFromInt(2))) {
		t.Errorf("expected total %s, got %s", oldPrice.Mul(decimal.NewFromInt(2)), fetched.Total)
	}
}

func TestCheckoutInsufficientStock(t *testing.T) {
	env := NewTestEnv(t)

	usr := env.CreateUser(t)
	p1 := env.CreateProduct(t, "olive-oil", "9.99", 5)
	p2 := env.CreateProduct(t, "almonds", "4.50", 1)

	// One of the lines overdraws, so any decrement already applied for
	// the other line must be rolled back too.
	req := newCheckoutReq(usr.ID, checkoutItm{p1.ID, 2}, checkoutItm{p2.ID, 4})
	if code := env.Do(t, http.MethodPost, "/orders", req, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for insufficient stock, got %d", code)
	}

	if got := env.FetchProduct(t, p1.ID).Stock; got != 5 {
		t.Errorf("expected untouched stock 5, got %d", got)
	}
	if got := env.FetchProduct(t, p2.ID).Stock; got != 1 {
		t.Errorf("expected untouched stock 1, got %d", got)
	}

	var ords []order.Order
	if code := env.Do(t, http.MethodGet, "/orders/user/"+usr.ID, nil, &ords); code != http.StatusOK {
		t.Fatalf("listing orders: status code %d", code)
	}
	if len(ords) != 0 {
		t.Errorf("expected no orders after rollback, got %d", len(ords))
	}
}

func TestConcurrentCheckouts(t *testing.T) {
	env := NewTestEnv(t)

	u1 := env.CreateUser(t)
	u2 := env.CreateUser(t)
	prod := env.CreateProduct(t, "olive-oil", "9.99", 5)

	// Two checkouts race for 3 of the 5 available units each. Exactly one
	// may win; the loser gets an insufficient-stock rejection and the
	// stock never goes negative.
	codes := make([]int, 2)
	var wg sync.WaitGroup
	for i, usr := range []string{u1.ID, u2.ID} {
		i, usr := i, usr
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := newCheckoutReq(usr, checkoutItm{prod.ID, 3})
			codes[i] = env.Do(t, http.MethodPost, "/orders", req, nil)
		}()
	}
	wg.Wait()

	created, rejected := 0, 0
	for _, code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusBadRequest:
			rejected++
		}
	}
	if created != 1 || rejected != 1 {
		t.Fatalf("expected exactly one success and one rejection, got codes %v", codes)
	}

	if got := env.FetchProduct(t, prod.ID).Stock; got != 2 {
		t.Errorf("expected final stock 2, got %d", got)
	}
}

func TestConcurrentCheckoutsDisjoint(t *testing.T) {
	env := NewTestEnv(t)

	u1 := env.CreateUser(t)
	u2 := env.CreateUser(t)
	p1 := env.CreateProduct(t, "olive-oil", "9.99", 5)
	p2 := env.CreateProduct(t, "almonds", "4.50", 5)

	codes := make([]int, 2)
	reqs := []checkoutReq{
		newCheckoutReq(u1.ID, checkoutItm{p1.ID, 2}),
		newCheckoutReq(u2.ID, checkoutItm{p2.ID, 2}),
	}

	var wg sync.WaitGroup
	for i := range reqs {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes[i] = env.Do(t, http.MethodPost, "/orders", reqs[i], nil)
		}()
	}
	wg.Wait()

	for i, code := range codes {
		if code != http.StatusCreated {
			t.Errorf("checkout %d: expected 201, got %d", i, code)
		}
	}
	if got := env.FetchProduct(t, p1.ID).Stock; got != 3 {
		t.Errorf("expected stock 3, got %d", got)
	}
	if got := env.FetchProduct(t, p2.ID).Stock; got != 3 {
		t.Errorf("expected stock 3, got %d", got)
	}
}
