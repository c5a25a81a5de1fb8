package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/punchamoorthee/paymentsheet/internal/api"
	"github.com/punchamoorthee/paymentsheet/internal/app"
	"github.com/punchamoorthee/paymentsheet/internal/config"
	"github.com/punchamoorthee/paymentsheet/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Environment is incomplete: %v", err)
	}

	logger, err := telemetry.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}

	// Built once per cold start and shared by every invocation.
	sheets, err := app.NewPaymentSheetService(context.Background(), cfg, nil, logger)
	if err != nil {
		logger.Fatal("Failed to initialize payment sheet service", zap.Error(err))
	}

	lambda.Start(api.NewLambdaHandler(sheets, logger).Handle)
}
