package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/galvarado/tienda/api/web"
	"github.com/galvarado/tienda/api/weberr"
	"github.com/galvarado/tienda/core/product"
	"github.com/galvarado/tienda/core/user"
	"github.com/galvarado/tienda/validate"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// PaymentProvider is the external collaborator charged with collecting the
// money for an already-persisted order. It is invoked strictly after the
// checkout transaction commits; a failure here leaves the order PENDING
// and unbound, to be retried out of band.
type PaymentProvider interface {
	CreateOrder(ctx context.Context, ord Order) (providerID string, err error)
}

// HandleCheckout finalizes the user's cart into an order. Explicit items in
// the payload take precedence over the cart's content; either way the cart
// is cleared as part of the checkout transaction.
func HandleCheckout(db *sqlx.DB, log logrus.FieldLogger, pay PaymentProvider) web.Handler {
	return handleCheckout(db, log, pay, true)
}

// HandleCreate creates an order from the payload's explicit items without
// touching the user's cart.
func HandleCreate(db *sqlx.DB, log logrus.FieldLogger, pay PaymentProvider) web.Handler {
	return handleCheckout(db, log, pay, false)
}

func handleCheckout(db *sqlx.DB, log logrus.FieldLogger, pay PaymentProvider, fromCart bool) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var on OrderNew
		if err := web.Decode(w, r, &on); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(on); err != nil {
			return weberr.BadRequest(fmt.Errorf("validating data: %w", err))
		}

		if err := validate.CheckID(on.UserID); err != nil {
			return weberr.BadRequest(fmt.Errorf("passed user id is not valid: %w", err))
		}

		if !fromCart && len(on.Items) == 0 {
			return weberr.NewError(ErrEmptyOrder, ErrEmptyOrder.Error(), http.StatusBadRequest)
		}

		ord, err := Checkout(ctx, db, on, fromCart)
		if err != nil {
			return checkoutError(err)
		}

		if pay != nil {
			providerID, err := pay.CreateOrder(ctx, ord)
			if err != nil {
				log.WithFields(logrus.Fields{
					"order_id": ord.ID,
					"message":  err,
				}).Warn("payment provider order creation failed")
			} else if err := UpdateProvider(ctx, db, ord.ID, providerID, time.Now().UTC()); err != nil {
				return fmt.Errorf("binding order[%s] to payment[%s]: %w", ord.ID, providerID, err)
			} else {
				ord.ProviderID = providerID
			}
		}

		return web.Respond(ctx, w, ord, http.StatusCreated)
	}
}

func checkoutError(err error) error {
	var stockErr *product.InsufficientStockError
	switch {
	case errors.Is(err, user.ErrNotFound), errors.Is(err, product.ErrNotFound):
		return weberr.NotFound(err)
	case errors.Is(err, ErrEmptyOrder):
		return weberr.NewError(err, err.Error(), http.StatusBadRequest)
	case errors.As(err, &stockErr):
		return weberr.NewError(err, stockErr.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrReferenceConflict):
		return weberr.NewError(err, err.Error(), http.StatusConflict)
	}
	return err
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		orderID := web.Param(r, "id")
		if err := validate.CheckID(orderID); err != nil {
			return weberr.BadRequest(fmt.Errorf("passed id is not valid: %w", err))
		}

		ord, err := Fetch(ctx, db, orderID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching order[%s]: %w", orderID, err)
		}

		return web.Respond(ctx, w, ord, http.StatusOK)
	}
}

func HandleListByUser(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		userID := web.Param(r, "user_id")
		if err := validate.CheckID(userID); err != nil {
			return weberr.BadRequest(fmt.Errorf("passed id is not valid: %w", err))
		}

		ords, err := FetchByUser(ctx, db, userID)
		if err != nil {
			return fmt.Errorf("listing orders of user[%s]: %w", userID, err)
		}

		return web.Respond(ctx, w, ords, http.StatusOK)
	}
}
