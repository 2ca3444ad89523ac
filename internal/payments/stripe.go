package payments

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"

	"github.com/example/gator-taxi/internal/models"
)

// StripeClient is a thin wrapper around stripe-go for PaymentIntent fare holds.
type StripeClient struct{}

// NewStripeClient initializes the stripe client with the given secret key.
func NewStripeClient(apiKey string) *StripeClient {
	stripe.Key = apiKey
	return &StripeClient{}
}

// Hold creates a PaymentIntent with capture_method=manual to hold funds.
// It returns the PaymentIntent ID on success.
func (s *StripeClient) Hold(ctx context.Context, amount int64, currency string, metadata map[string]string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	params.CaptureMethod = stripe.String(string(stripe.PaymentIntentCaptureMethodManual))
	pi, err := paymentintent.New(params)
	if err != nil {
		return "", err
	}
	return pi.ID, nil
}

// FareHolder places a hold for a ride fare.
type FareHolder interface {
	Hold(ctx context.Context, amount int64, currency string, metadata map[string]string) (string, error)
}

// FareHandler holds the fare of every dispatched ride. Ride cost is in whole
// currency units; Stripe amounts are in minor units.
type FareHandler struct {
	Holder   FareHolder
	Currency string
	Logger   *slog.Logger
}

func (h FareHandler) Handle(ctx context.Context, ev models.RideEvent) error {
	if ev.Type != models.EventDispatched || ev.Ride.Cost <= 0 {
		return nil
	}
	id, err := h.Holder.Hold(ctx, int64(ev.Ride.Cost)*100, h.Currency, map[string]string{
		"ride_number": strconv.Itoa(ev.Ride.RideNumber),
	})
	if err != nil {
		return fmt.Errorf("hold fare for ride %d: %w", ev.Ride.RideNumber, err)
	}
	if h.Logger != nil {
		h.Logger.Info("fare held", "ride", ev.Ride.RideNumber, "payment_intent", id)
	}
	return nil
}
