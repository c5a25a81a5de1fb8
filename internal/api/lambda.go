package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strconv"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/punchamoorthee/paymentsheet/internal/domain"
	"github.com/punchamoorthee/paymentsheet/internal/service"
)

// LambdaHandler serves the payment sheet behind an API Gateway HTTP API or a
// Lambda function URL. Responses match the HTTP handler byte for byte.
type LambdaHandler struct {
	sheets Preparer
	logger *zap.Logger
}

func NewLambdaHandler(sheets Preparer, logger *zap.Logger) *LambdaHandler {
	return &LambdaHandler{sheets: sheets, logger: logger}
}

// Handle never returns a Go error; failures are encoded in the response.
func (h *LambdaHandler) Handle(ctx context.Context, request events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	requestID := request.RequestContext.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	ctx = service.WithRequestID(ctx, requestID)

	var res service.Result
	body := []byte(request.Body)
	if request.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(request.Body)
		if err != nil {
			h.logger.Warn("Base64 decode error", zap.String("request_id", requestID), zap.Error(err))
			res = service.Result{Err: &service.Error{
				Kind:    domain.KindMalformedRequest,
				Step:    domain.StepDecode,
				Message: err.Error(),
			}}
		}
		body = decoded
	}
	if res.Err == nil {
		res = h.sheets.Prepare(ctx, body)
	}

	status, payload := Render(res)
	headers := map[string]string{
		"Content-Type":  "application/json",
		RequestIDHeader: requestID,
	}
	if !res.OK() {
		headers[ErrorKindHeader] = string(res.Err.Kind)
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to encode response", zap.String("request_id", requestID), zap.Error(err))
		encoded = []byte(`{"error":"internal error"}`)
	}
	httpReqTotal.WithLabelValues(request.RequestContext.HTTP.Method, paymentSheetEndpoint, strconv.Itoa(status)).Inc()

	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    headers,
		Body:       string(encoded) + "\n",
	}, nil
}
