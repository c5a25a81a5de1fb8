package config

import (
	"fmt"
	"os"
)

// DefaultStripeAPIVersion is the version ephemeral keys are scoped to.
// Mobile SDKs expect it to match the version the server is pinned to.
const DefaultStripeAPIVersion = "2022-11-15"

type Config struct {
	StripeSecretKey          string
	StripeSecretKeyParameter string
	StripeAPIVersion         string
	StripeAPIURL             string
	Port                     string
	Env                      string
	LogLevel                 string
}

func Load() (*Config, error) {
	secretKey := os.Getenv("STRIPE_SECRET_KEY")
	secretParam := os.Getenv("STRIPE_SECRET_KEY_PARAMETER")
	if secretKey == "" && secretParam == "" {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY or STRIPE_SECRET_KEY_PARAMETER environment variable is required")
	}

	apiVersion := os.Getenv("STRIPE_API_VERSION")
	if apiVersion == "" {
		apiVersion = DefaultStripeAPIVersion
	}

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	return &Config{
		StripeSecretKey:          secretKey,
		StripeSecretKeyParameter: secretParam,
		StripeAPIVersion:         apiVersion,
		StripeAPIURL:             os.Getenv("STRIPE_API_URL"),
		Port:                     port,
		Env:                      env,
		LogLevel:                 logLevel,
	}, nil
}
