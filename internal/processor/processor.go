// Package processor wraps the external payment processor behind a narrow
// interface so the payment sheet flow can be exercised against a test double.
package processor

import "context"

// PaymentIntentParams describes the pending charge the client will confirm.
// Nil Amount and Currency are left out of the request so the processor can
// report them missing.
type PaymentIntentParams struct {
	Amount                  *int64
	Currency                *string
	CustomerID              string
	AutomaticPaymentMethods bool

	// RawAmount is sent verbatim when Amount is nil and it is not empty.
	RawAmount string
}

// Processor is the set of processor capabilities the payment sheet needs.
// Each call creates a new object in the processor account.
type Processor interface {
	// CreateCustomer creates a customer with no attributes and returns its ID.
	CreateCustomer(ctx context.Context) (string, error)
	// CreateEphemeralKey returns the secret of a key scoped to customerID and apiVersion.
	CreateEphemeralKey(ctx context.Context, customerID, apiVersion string) (string, error)
	// CreatePaymentIntent returns the client secret of the new intent.
	CreatePaymentIntent(ctx context.Context, p PaymentIntentParams) (string, error)
}
