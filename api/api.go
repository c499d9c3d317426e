package api

import (
	"context"
	"net/http"

	"github.com/galvarado/tienda/api/middleware"
	"github.com/galvarado/tienda/api/web"
	"github.com/galvarado/tienda/core/cart"
	"github.com/galvarado/tienda/core/order"
	"github.com/galvarado/tienda/core/product"
	"github.com/galvarado/tienda/rate"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type APIConfig struct {
	CorsOrigin string
	Log        logrus.FieldLogger
	DB         *sqlx.DB
	Limiter    *rate.Limiter
	Payment    order.PaymentProvider
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.Limiter != nil {
		a.mw = append(a.mw, middleware.RateLimit(cfg.Limiter))
	}

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	a.Handle(http.MethodGet, "/products/{id}", product.HandleShow(cfg.DB))
	a.Handle(http.MethodGet, "/products", product.HandleList(cfg.DB))
	a.Handle(http.MethodPost, "/products", product.HandleCreate(cfg.DB))
	a.Handle(http.MethodPut, "/products/{id}", product.HandleUpdate(cfg.DB))
	a.Handle(http.MethodDelete, "/products/{id}", product.HandleDelete(cfg.DB))

	a.Handle(http.MethodPost, "/cart/add", cart.HandleAddItem(cfg.DB))
	a.Handle(http.MethodPost, "/cart/finalizar", order.HandleCheckout(cfg.DB, cfg.Log, cfg.Payment))
	a.Handle(http.MethodGet, "/cart/{user_id}", cart.HandleShow(cfg.DB))
	a.Handle(http.MethodDelete, "/cart/{user_id}/vaciar", cart.HandleDelete(cfg.DB))
	a.Handle(http.MethodPut, "/cart/{user_id}/product/{product_id}", cart.HandleUpdateItem(cfg.DB))
	a.Handle(http.MethodDelete, "/cart/{user_id}/product/{product_id}", cart.HandleDeleteItem(cfg.DB))

	a.Handle(http.MethodPost, "/orders", order.HandleCreate(cfg.DB, cfg.Log, cfg.Payment))
	a.Handle(http.MethodGet, "/orders/user/{user_id}", order.HandleListByUser(cfg.DB))
	a.Handle(http.MethodGet, "/orders/{id}", order.HandleShow(cfg.DB))

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}
