// Package payment holds the collaborator that collects money for persisted
// orders. Only order creation on the provider side happens here; capture
// and settlement are driven elsewhere, keyed by the provider id stored on
// the order.
package payment

import (
	"context"
	"fmt"

	"github.com/galvarado/tienda/core/order"
	"github.com/plutov/paypal/v4"
)

const currency = "EUR"

type Paypal struct {
	client *paypal.Client
}

func NewPaypal(client *paypal.Client) *Paypal {
	return &Paypal{client: client}
}

// CreateOrder registers the order's total with PayPal and returns the
// provider's order id.
func (p *Paypal) CreateOrder(ctx context.Context, ord order.Order) (string, error) {
	units := []paypal.PurchaseUnitRequest{{
		ReferenceID: ord.Reference,
		InvoiceID:   ord.Reference,
		Description: fmt.Sprintf("order %s", ord.Reference),

		Amount: &paypal.PurchaseUnitAmount{
			Currency: currency,
			Value:    ord.Total.StringFixed(2),
		},
	}}

	res, err := p.client.CreateOrder(ctx, paypal.OrderIntentCapture, units, nil, nil)
	if err != nil {
		return "", fmt.Errorf("creating paypal order for order[%s]: %w", ord.ID, err)
	}

	return res.ID, nil
}
