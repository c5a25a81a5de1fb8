package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
)

// ErrNotAnObject is returned when a request body is valid JSON but not an object.
var ErrNotAnObject = errors.New("request body must be a JSON object")

// ChargeRequest is the DTO for incoming payment sheet requests.
// Amount is in minor currency units (2499 is $24.99). Nil fields were absent
// or null in the request.
type ChargeRequest struct {
	Amount   *int64  `json:"amount,omitempty"`
	Currency *string `json:"currency,omitempty"`

	// RawAmount holds an amount that is not an integer, as the client sent it.
	RawAmount string `json:"-"`
}

// UnmarshalJSON reads the body as loosely as a JavaScript client would write
// it: integral numbers in any notation and numeric strings are amounts, and
// scalar currencies are taken as text. Values the processor has to judge are
// kept rather than rejected here.
func (r *ChargeRequest) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return ErrNotAnObject
	}

	var fields struct {
		Amount   json.RawMessage `json:"amount"`
		Currency json.RawMessage `json:"currency"`
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*r = ChargeRequest{Currency: text(fields.Currency)}
	if s := text(fields.Amount); s != nil {
		if n, ok := minorUnits(*s); ok {
			r.Amount = &n
		} else {
			r.RawAmount = *s
		}
	}
	return nil
}

// text returns a JSON string's contents or any other value's literal form.
func text(raw json.RawMessage) *string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = string(raw)
	}
	return &s
}

func minorUnits(s string) (int64, bool) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) >= 1<<63 {
		return 0, false
	}
	return int64(f), true
}

// PaymentSheet carries the three secrets a mobile client needs to present
// the payment sheet locally.
type PaymentSheet struct {
	PaymentIntent string `json:"paymentIntent"`
	EphemeralKey  string `json:"ephemeralKey"`
	Customer      string `json:"customer"`
}

// ErrorResponse is the body returned for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ErrorKind classifies why a payment sheet could not be prepared.
type ErrorKind string

const (
	KindMalformedRequest ErrorKind = "malformed_request"
	KindInvalidRequest   ErrorKind = "invalid_request"
	KindCard             ErrorKind = "card"
	KindAuthentication   ErrorKind = "authentication"
	KindRateLimited      ErrorKind = "rate_limited"
	KindProcessor        ErrorKind = "processor"
	KindNetwork          ErrorKind = "network"
	KindUnknown          ErrorKind = "unknown"
)

// Step names one of the ordered processor calls.
type Step string

const (
	StepDecode         Step = "decode"
	StepCreateCustomer Step = "create_customer"
	StepEphemeralKey   Step = "create_ephemeral_key"
	StepPaymentIntent  Step = "create_payment_intent"
)
