package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/stripe/stripe-go/v74"
	"go.uber.org/zap"

	"github.com/punchamoorthee/paymentsheet/internal/domain"
	"github.com/punchamoorthee/paymentsheet/internal/processor"
)

var (
	processorCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paymentsheet_processor_calls_total",
		Help: "Processor calls made while preparing payment sheets, labeled by step and outcome",
	}, []string{"step", "outcome"})

	failuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paymentsheet_failures_total",
		Help: "Failed payment sheet preparations, labeled by error kind",
	}, []string{"kind"})
)

// Error is a failed preparation. Message is the description the underlying
// failure carries and is safe to hand back to the caller.
type Error struct {
	Kind    domain.ErrorKind
	Step    domain.Step
	Message string
	cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Step, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Result holds exactly one of Sheet or Err.
type Result struct {
	Sheet *domain.PaymentSheet
	Err   *Error
}

func (r Result) OK() bool {
	return r.Err == nil
}

type PaymentSheetService struct {
	processor  processor.Processor
	apiVersion string
	logger     *zap.Logger
}

func NewPaymentSheetService(p processor.Processor, apiVersion string, logger *zap.Logger) *PaymentSheetService {
	return &PaymentSheetService{processor: p, apiVersion: apiVersion, logger: logger}
}

// Prepare decodes a charge request and provisions the customer, ephemeral key,
// and payment intent, in that order. Each step needs the customer ID from the
// first, so a failure stops the sequence. A body that is not a JSON object
// fails before any processor call; field values are left to the processor.
func (s *PaymentSheetService) Prepare(ctx context.Context, body []byte) Result {
	var req domain.ChargeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return s.fail(ctx, domain.StepDecode, &Error{
			Kind:    domain.KindMalformedRequest,
			Step:    domain.StepDecode,
			Message: err.Error(),
			cause:   err,
		})
	}

	// 1. Customer
	customerID, err := s.processor.CreateCustomer(ctx)
	if err != nil {
		return s.fail(ctx, domain.StepCreateCustomer, classify(domain.StepCreateCustomer, err))
	}
	processorCallsTotal.WithLabelValues(string(domain.StepCreateCustomer), "ok").Inc()

	// 2. Ephemeral key, scoped to the customer
	ephemeralKey, err := s.processor.CreateEphemeralKey(ctx, customerID, s.apiVersion)
	if err != nil {
		return s.fail(ctx, domain.StepEphemeralKey, classify(domain.StepEphemeralKey, err), zap.String("customer_id", customerID))
	}
	processorCallsTotal.WithLabelValues(string(domain.StepEphemeralKey), "ok").Inc()

	// 3. Payment intent
	clientSecret, err := s.processor.CreatePaymentIntent(ctx, processor.PaymentIntentParams{
		Amount:                  req.Amount,
		Currency:                req.Currency,
		CustomerID:              customerID,
		AutomaticPaymentMethods: true,
		RawAmount:               req.RawAmount,
	})
	if err != nil {
		return s.fail(ctx, domain.StepPaymentIntent, classify(domain.StepPaymentIntent, err), zap.String("customer_id", customerID))
	}
	processorCallsTotal.WithLabelValues(string(domain.StepPaymentIntent), "ok").Inc()

	loggerFrom(ctx, s.logger).Info("Payment sheet prepared",
		zap.String("customer_id", customerID),
		zap.Int64p("amount", req.Amount),
		zap.Stringp("currency", req.Currency),
	)

	return Result{Sheet: &domain.PaymentSheet{
		PaymentIntent: clientSecret,
		EphemeralKey:  ephemeralKey,
		Customer:      customerID,
	}}
}

func (s *PaymentSheetService) fail(ctx context.Context, step domain.Step, e *Error, fields ...zap.Field) Result {
	if step != domain.StepDecode {
		processorCallsTotal.WithLabelValues(string(step), "error").Inc()
	}
	failuresTotal.WithLabelValues(string(e.Kind)).Inc()

	fields = append(fields,
		zap.String("step", string(e.Step)),
		zap.String("error_kind", string(e.Kind)),
		zap.Error(e.cause),
	)
	loggerFrom(ctx, s.logger).Warn("Payment sheet preparation failed", fields...)

	return Result{Err: e}
}

// classify maps a processor failure to an ErrorKind and the message the
// caller sees.
func classify(step domain.Step, err error) *Error {
	e := &Error{Kind: domain.KindUnknown, Step: step, Message: err.Error(), cause: err}

	var stripeErr *stripe.Error
	var netErr net.Error
	var urlErr *url.Error
	switch {
	case errors.As(err, &stripeErr):
		if stripeErr.Msg != "" {
			e.Message = stripeErr.Msg
		}
		e.Kind = stripeKind(stripeErr)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		e.Kind = domain.KindNetwork
	case errors.As(err, &netErr), errors.As(err, &urlErr):
		e.Kind = domain.KindNetwork
	}
	return e
}

func stripeKind(err *stripe.Error) domain.ErrorKind {
	switch {
	case err.HTTPStatusCode == http.StatusUnauthorized:
		return domain.KindAuthentication
	case err.HTTPStatusCode == http.StatusTooManyRequests:
		return domain.KindRateLimited
	case err.Type == stripe.ErrorTypeInvalidRequest:
		return domain.KindInvalidRequest
	case err.Type == stripe.ErrorTypeCard:
		return domain.KindCard
	default:
		return domain.KindProcessor
	}
}
