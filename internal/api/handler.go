package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/punchamoorthee/paymentsheet/internal/domain"
	"github.com/punchamoorthee/paymentsheet/internal/service"
)

const (
	// MaxBodyBytes caps the charge request body.
	MaxBodyBytes = int64(64 << 10)

	RequestIDHeader = "X-Request-ID"
	ErrorKindHeader = "X-Error-Kind"

	paymentSheetEndpoint = "/payment-sheet"
)

// Metrics
var (
	httpReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paymentsheet_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paymentsheet_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "endpoint"})
)

// Preparer is satisfied by *service.PaymentSheetService.
type Preparer interface {
	Prepare(ctx context.Context, body []byte) service.Result
}

type Handler struct {
	sheets Preparer
	logger *zap.Logger
}

func NewHandler(sheets Preparer, logger *zap.Logger) *Handler {
	return &Handler{sheets: sheets, logger: logger}
}

// CreatePaymentSheet accepts any method; mobile clients POST to it.
func (h *Handler) CreatePaymentSheet(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues(r.Method, paymentSheetEndpoint))
	defer timer.ObserveDuration()

	requestID := r.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.New().String()
	}
	w.Header().Set(RequestIDHeader, requestID)
	ctx := service.WithRequestID(r.Context(), requestID)

	var res service.Result
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		h.logger.Warn("Failed to read request body", zap.String("request_id", requestID), zap.Error(err))
		res = service.Result{Err: &service.Error{
			Kind:    domain.KindMalformedRequest,
			Step:    domain.StepDecode,
			Message: err.Error(),
		}}
	} else {
		res = h.sheets.Prepare(ctx, body)
	}

	status, payload := Render(res)
	if !res.OK() {
		w.Header().Set(ErrorKindHeader, string(res.Err.Kind))
	}
	h.respondJSON(w, status, payload, r.Method, paymentSheetEndpoint)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"}, r.Method, "/health")
}

// Render maps a Result to the response status and body shared by every
// transport. All failures are reported as 400.
func Render(res service.Result) (int, any) {
	if res.OK() {
		return http.StatusOK, res.Sheet
	}
	return http.StatusBadRequest, domain.ErrorResponse{Error: res.Err.Message}
}

// Helpers
func (h *Handler) respondJSON(w http.ResponseWriter, code int, payload interface{}, method, endpoint string) {
	httpReqTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
