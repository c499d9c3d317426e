package cart

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
	"github.com/galvarado/tienda/database"
	"github.com/galvarado/tienda/validate"
	"github.com/jmoiron/sqlx"
)

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		userID := web.Param(r, "user_id")
		if err := validate.CheckID(userID); err != nil {
			return weberr.BadRequest(fmt.Errorf("passed id is not valid: %w", err))
		}

		if _, err := user.Fetch(ctx, db, userID); err != nil {
			if errors.Is(err, user.ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("resolving user[%s]: %w", userID, err)
		}

		if err := Ensure(ctx, db, userID, time.Now().UTC()); err != nil {
			return err
		}

		crt, err := Fetch(ctx, db, userID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, crt, http.StatusOK)
	}
}

func HandleAddItem(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		userID := web.Query(r, "user_id")
		if err := validate.CheckID(userID); err != nil {
			return weberr.BadRequest(fmt.Errorf("passed user id is not valid: %w", err))
		}

		var in ItemNew
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(in); err != nil {
			return weberr.BadRequest(fmt.Errorf("validating data: %w", err))
		}

		if err := validate.CheckID(in.ProductID); err != nil {
			return weberr.BadRequest(fmt.Errorf("passed product id is not valid: %w", err))
		}

		if _, err := user.Fetch(ctx, db, userID); err != nil {
			if errors.Is(err, user.ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("resolving user[%s]: %w", userID, err)
		}

		prod, err := product.Fetch(ctx, db, in.ProductID)
		if err != nil {
			if errors.Is(err, product.ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("resolving product[%s]: %w", in.ProductID, err)
		}

		now := time.Now().UTC()
		item := Item{
			UserID:    userID,
			ProductID: prod.ID,
			Quantity:  in.Quantity,
			UnitPrice: prod.Price,
			Name:      prod.Name,
			ImageURL:  prod.ImageURL,
			CreatedAt: now,
			UpdatedAt: now,
		}

		err = database.Transaction(db, func(tx sqlx.ExtContext) error {
			if err := Ensure(ctx, tx, userID, now); err != nil {
				return err
			}
			return UpsertItem(ctx, tx, item)
		})
		if err != nil {
			return fmt.Errorf("adding product[%s] to cart of user[%s]: %w", prod.ID, userID, err)
		}

		crt, err := Fetch(ctx, db, userID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, crt, http.StatusOK)
	}
}

func HandleUpdateItem(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		userID := web.Param(r, "user_id")
		productID := web.Param(r, "product_id")
		if err := validate.CheckID(userID); err != nil {
			return weberr.BadRequest(fmt.Errorf("passed user id is not valid: %w", err))
		}
		if err := validate.CheckID(productID); err != nil {
			return weberr.BadRequest(fmt.Errorf("passed product id is not valid: %w", err))
		}

		var up ItemUp
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(up); err != nil {
			return weberr.BadRequest(fmt.Errorf("validating data: %w", err))
		}

		if _, err := user.Fetch(ctx, db, userID); err != nil {
			if errors.Is(err, user.ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("resolving user[%s]: %w", userID, err)
		}

		// Quantity zero removes the line instead of keeping it around
		// as an empty row.
		var err error
		if up.Quantity == 0 {
			err = DeleteItem(ctx, db, userID, productID)
		} else {
			err = UpdateItemQuantity(ctx, db, userID, productID, up.Quantity, time.Now().UTC())
		}
		if err != nil {
			if errors.Is(err, ErrItemNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("updating cart item[%s] for user[%s]: %w", productID, userID, err)
		}

		return web.Respond(ctx, w, nil, http.StatusOK)
	}
}

func HandleDeleteItem(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		userID := web.Param(r, "user_id")
		productID := web.Param(r, "product_id")
		if err := validate.CheckID(userID); err != nil {
			return weberr.BadRequest(fmt.Errorf("passed user id is not valid: %w", err))
		}
		if err := validate.CheckID(productID); err != nil {
			return weberr.BadRequest(fmt.Errorf("passed product id is not valid: %w", err))
		}

		if _, err := user.Fetch(ctx, db, userID); err != nil {
			if errors.Is(err, user.ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("resolving user[%s]: %w", userID, err)
		}

		if err := DeleteItem(ctx, db, userID, productID); err != nil {
			if errors.Is(err, ErrItemNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("deleting cart item[%s] for user[%s]: %w", productID, userID, err)
		}

		return web.Respond(ctx, w, nil, http.StatusOK)
	}
}

func HandleDelete(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		userID := web.Param(r, "user_id")
		if err := validate.CheckID(userID); err != nil {
			return weberr.BadRequest(fmt.Errorf("passed id is not valid: %w", err))
		}

		if err := Delete(ctx, db, userID); err != nil {
			return fmt.Errorf("clearing cart of user[%s]: %w", userID, err)
		}

		return web.Respond(ctx, w, nil, http.StatusOK)
	}
}
