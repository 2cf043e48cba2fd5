package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// PaymentIntent is the subset of a provider payment intent the app relies on.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64
	Currency     string
}

// PaymentIntentSucceeded is the terminal success status.
const PaymentIntentSucceeded = string(stripe.PaymentIntentStatusSucceeded)

type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*PaymentIntent, error)
	ConfirmIntent(ctx context.Context, intentID, paymentMethodID string) (*PaymentIntent, error)
}

type stripeGateway struct {
	api *client.API
	log *logrus.Logger
}

// NewStripeGateway returns a gateway using secretKey. backends may be nil to
// use Stripe's default endpoints.
func NewStripeGateway(secretKey string, backends *stripe.Backends, log *logrus.Logger) PaymentGateway {
	api := &client.API{}
	api.Init(secretKey, backends)
	return &stripeGateway{api: api, log: log}
}

// CreateIntent creates a payment intent for amount in the currency's minor unit.
func (g *stripeGateway) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		g.log.Warnf("Failed to create payment intent: %+v", err)
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return toPaymentIntent(pi), nil
}

func (g *stripeGateway) ConfirmIntent(ctx context.Context, intentID, paymentMethodID string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentConfirmParams{}
	if paymentMethodID != "" {
		params.PaymentMethod = stripe.String(paymentMethodID)
	}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.Confirm(intentID, params)
	if err != nil {
		g.log.Warnf("Failed to confirm payment intent %s: %+v", intentID, err)
		return nil, fmt.Errorf("confirm payment intent %s: %w", intentID, err)
	}
	return toPaymentIntent(pi), nil
}

func toPaymentIntent(pi *stripe.PaymentIntent) *PaymentIntent {
	return &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}
}
