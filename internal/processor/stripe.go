package processor

import (
	"context"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
	"go.uber.org/zap"
)

// StripeConfig holds the account key and transport for the Stripe client.
// URL overrides the API base URL, e.g. for stripe-mock; empty means api.stripe.com.
type StripeConfig struct {
	SecretKey  string
	URL        string
	HTTPClient *http.Client
}

// Stripe implements Processor on top of stripe-go.
type Stripe struct {
	api *client.API
}

// NewStripe returns a Stripe client that never retries and logs through logger.
func NewStripe(cfg StripeConfig, logger *zap.Logger) (*Stripe, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        cfg.HTTPClient,
		LeveledLogger:     logger.Named("stripe").Sugar(),
		MaxNetworkRetries: stripe.Int64(0),
	}
	if cfg.URL != "" {
		backendCfg.URL = stripe.String(cfg.URL)
	}

	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, &stripe.BackendConfig{LeveledLogger: backendCfg.LeveledLogger}),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, &stripe.BackendConfig{LeveledLogger: backendCfg.LeveledLogger}),
	}

	return &Stripe{api: client.New(cfg.SecretKey, backends)}, nil
}

func (s *Stripe) CreateCustomer(ctx context.Context) (string, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx

	c, err := s.api.Customers.New(params)
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

func (s *Stripe) CreateEphemeralKey(ctx context.Context, customerID, apiVersion string) (string, error) {
	params := &stripe.EphemeralKeyParams{
		Customer:      stripe.String(customerID),
		StripeVersion: stripe.String(apiVersion),
	}
	params.Context = ctx

	k, err := s.api.EphemeralKeys.New(params)
	if err != nil {
		return "", err
	}
	return k.Secret, nil
}

func (s *Stripe) CreatePaymentIntent(ctx context.Context, p PaymentIntentParams) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   p.Amount,
		Currency: p.Currency,
		Customer: stripe.String(p.CustomerID),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(p.AutomaticPaymentMethods),
		},
	}
	if p.Amount == nil && p.RawAmount != "" {
		params.AddExtra("amount", p.RawAmount)
	}
	params.Context = ctx

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return "", err
	}
	return pi.ClientSecret, nil
}
