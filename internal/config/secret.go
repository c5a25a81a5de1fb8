package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ParameterGetter is the subset of the SSM client used to fetch the secret key.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// NewParameterGetter builds an SSM client from the default AWS credential chain.
func NewParameterGetter(ctx context.Context) (ParameterGetter, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}
	return ssm.NewFromConfig(awsCfg), nil
}

// NeedsSecretLookup reports whether the secret key must come from Parameter Store.
func (c *Config) NeedsSecretLookup() bool {
	return c.StripeSecretKey == "" && c.StripeSecretKeyParameter != ""
}

// ResolveSecret fills StripeSecretKey from the SSM parameter named by
// StripeSecretKeyParameter. A key already present in the environment wins.
func ResolveSecret(ctx context.Context, cfg *Config, getter ParameterGetter) error {
	if !cfg.NeedsSecretLookup() {
		return nil
	}

	out, err := getter.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(cfg.StripeSecretKeyParameter),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("fetch parameter %s: %w", cfg.StripeSecretKeyParameter, err)
	}
	if out.Parameter == nil || aws.ToString(out.Parameter.Value) == "" {
		return fmt.Errorf("parameter %s is empty", cfg.StripeSecretKeyParameter)
	}

	cfg.StripeSecretKey = aws.ToString(out.Parameter.Value)
	return nil
}
