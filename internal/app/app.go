// Package app assembles the payment sheet service from configuration.
// Both the HTTP server and the Lambda entrypoint start here.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/punchamoorthee/paymentsheet/internal/config"
	"github.com/punchamoorthee/paymentsheet/internal/processor"
	"github.com/punchamoorthee/paymentsheet/internal/service"
)

// stripeHTTPTimeout bounds a single processor call. Lambda's own deadline
// still applies through the request context.
const stripeHTTPTimeout = 30 * time.Second

// NewPaymentSheetService resolves the secret key if needed and wires the
// Stripe processor into the service. getter may be nil when the key is set
// directly in the environment.
func NewPaymentSheetService(ctx context.Context, cfg *config.Config, getter config.ParameterGetter, logger *zap.Logger) (*service.PaymentSheetService, error) {
	if cfg.NeedsSecretLookup() {
		if getter == nil {
			var err error
			getter, err = config.NewParameterGetter(ctx)
			if err != nil {
				return nil, err
			}
		}
		if err := config.ResolveSecret(ctx, cfg, getter); err != nil {
			return nil, fmt.Errorf("resolve stripe secret key: %w", err)
		}
		logger.Info("Loaded Stripe secret key from parameter store", zap.String("parameter", cfg.StripeSecretKeyParameter))
	}

	stripeProcessor, err := processor.NewStripe(processor.StripeConfig{
		SecretKey:  cfg.StripeSecretKey,
		URL:        cfg.StripeAPIURL,
		HTTPClient: &http.Client{Timeout: stripeHTTPTimeout},
	}, logger)
	if err != nil {
		return nil, err
	}

	return service.NewPaymentSheetService(stripeProcessor, cfg.StripeAPIVersion, logger), nil
}
