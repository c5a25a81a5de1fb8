package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74"
	"go.uber.org/zap"

	"github.com/punchamoorthee/paymentsheet/internal/domain"
	"github.com/punchamoorthee/paymentsheet/internal/processor"
	"github.com/punchamoorthee/paymentsheet/internal/service"
)

type fakeProcessor struct {
	seq         int
	calls       []string
	customerErr error
}

func (f *fakeProcessor) CreateCustomer(ctx context.Context) (string, error) {
	f.calls = append(f.calls, "customer")
	if f.customerErr != nil {
		return "", f.customerErr
	}
	f.seq++
	return fmt.Sprintf("cus_%d", f.seq), nil
}

func (f *fakeProcessor) CreateEphemeralKey(ctx context.Context, customerID, apiVersion string) (string, error) {
	f.calls = append(f.calls, "ephemeral_key")
	f.seq++
	return fmt.Sprintf("ek_test_%d", f.seq), nil
}

func (f *fakeProcessor) CreatePaymentIntent(ctx context.Context, p processor.PaymentIntentParams) (string, error) {
	f.calls = append(f.calls, "payment_intent")
	if p.Amount == nil {
		return "", &stripe.Error{
			Type:           stripe.ErrorTypeInvalidRequest,
			HTTPStatusCode: http.StatusBadRequest,
			Msg:            "Missing required param: amount.",
		}
	}
	if *p.Amount <= 0 {
		return "", &stripe.Error{
			Type:           stripe.ErrorTypeInvalidRequest,
			HTTPStatusCode: http.StatusBadRequest,
			Msg:            "This value must be greater than or equal to 1.",
		}
	}
	f.seq++
	return fmt.Sprintf("pi_%d_secret_abc", f.seq), nil
}

func newTestRouter(p processor.Processor) http.Handler {
	svc := service.NewPaymentSheetService(p, "2022-11-15", zap.NewNop())
	return NewRouter(NewHandler(svc, zap.NewNop()))
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/payment-sheet", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreatePaymentSheet(t *testing.T) {
	rec := post(t, newTestRouter(&fakeProcessor{}), `{"amount": 2499, "currency": "usd"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	assert.Empty(t, rec.Header().Get(ErrorKindHeader))

	var got map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, map[string]string{
		"paymentIntent": "pi_3_secret_abc",
		"ephemeralKey":  "ek_test_2",
		"customer":      "cus_1",
	}, got)
}

func TestCreatePaymentSheetFreshObjectsEachCall(t *testing.T) {
	h := newTestRouter(&fakeProcessor{})

	var first, second domain.PaymentSheet
	require.NoError(t, json.Unmarshal(post(t, h, `{"amount":2499,"currency":"usd"}`).Body.Bytes(), &first))
	require.NoError(t, json.Unmarshal(post(t, h, `{"amount":2499,"currency":"usd"}`).Body.Bytes(), &second))

	assert.NotEqual(t, first.Customer, second.Customer)
	assert.NotEqual(t, first.EphemeralKey, second.EphemeralKey)
	assert.NotEqual(t, first.PaymentIntent, second.PaymentIntent)
}

func TestCreatePaymentSheetErrors(t *testing.T) {
	tests := []struct {
		name      string
		fake      *fakeProcessor
		body      string
		wantKind  domain.ErrorKind
		wantError string
		wantCalls []string
	}{
		{
			name:      "malformed json",
			fake:      &fakeProcessor{},
			body:      `not json`,
			wantKind:  domain.KindMalformedRequest,
			wantCalls: nil,
		},
		{
			name:      "null body",
			fake:      &fakeProcessor{},
			body:      `null`,
			wantKind:  domain.KindMalformedRequest,
			wantError: domain.ErrNotAnObject.Error(),
			wantCalls: nil,
		},
		{
			name:      "missing amount",
			fake:      &fakeProcessor{},
			body:      `{"currency":"usd"}`,
			wantKind:  domain.KindInvalidRequest,
			wantError: "Missing required param: amount.",
			wantCalls: []string{"customer", "ephemeral_key", "payment_intent"},
		},
		{
			name:      "customer creation fails",
			fake:      &fakeProcessor{customerErr: errors.New("Invalid API Key provided: sk_test_***")},
			body:      `{"amount":2499,"currency":"usd"}`,
			wantKind:  domain.KindUnknown,
			wantError: "Invalid API Key provided: sk_test_***",
			wantCalls: []string{"customer"},
		},
		{
			name:      "negative amount rejected",
			fake:      &fakeProcessor{},
			body:      `{"amount":-5,"currency":"usd"}`,
			wantKind:  domain.KindInvalidRequest,
			wantError: "This value must be greater than or equal to 1.",
			wantCalls: []string{"customer", "ephemeral_key", "payment_intent"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, newTestRouter(tt.fake), tt.body)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, string(tt.wantKind), rec.Header().Get(ErrorKindHeader))

			var got map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			require.Len(t, got, 1)
			assert.NotEmpty(t, got["error"])
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, got["error"])
			}
			assert.Equal(t, tt.wantCalls, tt.fake.calls)
		})
	}
}

func TestCreatePaymentSheetAcceptsLooseAmount(t *testing.T) {
	for _, body := range []string{`{"amount":2499.0,"currency":"usd"}`, `{"amount":"2499","currency":"usd"}`} {
		rec := post(t, newTestRouter(&fakeProcessor{}), body)
		assert.Equal(t, http.StatusOK, rec.Code, body)
	}
}

func TestCreatePaymentSheetBodyTooLarge(t *testing.T) {
	fake := &fakeProcessor{}
	body := `{"amount":2499,"currency":"` + strings.Repeat("x", int(MaxBodyBytes)) + `"}`

	rec := post(t, newTestRouter(fake), body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(domain.KindMalformedRequest), rec.Header().Get(ErrorKindHeader))
	assert.Empty(t, fake.calls)
}

func TestCreatePaymentSheetAnyMethod(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/payment-sheet", strings.NewReader(`{"amount":100,"currency":"eur"}`))
	rec := httptest.NewRecorder()
	newTestRouter(&fakeProcessor{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreatePaymentSheetEchoesRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/payment-sheet", strings.NewReader(`{"amount":100,"currency":"eur"}`))
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	newTestRouter(&fakeProcessor{}).ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestRouter(&fakeProcessor{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	post(t, h, `{"amount":100,"currency":"eur"}`)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "paymentsheet_http_requests_total")
	assert.Contains(t, rec.Body.String(), "paymentsheet_processor_calls_total")
}
