package aws

import (
	"context"
	"fmt"
	"os"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// DefaultRegion is used when neither the shared config nor AWS_REGION names one.
const DefaultRegion = "us-east-1"

// LoadAWSConfig loads the default AWS config and points every client at AWS_ENDPOINT when it is set
// (LocalStack in local development).
func LoadAWSConfig(ctx context.Context) (sdkaws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return cfg, fmt.Errorf("failed to load aws config: %w", err)
	}

	if cfg.Region == "" {
		cfg.Region = DefaultRegion
		if r := os.Getenv("AWS_REGION"); r != "" {
			cfg.Region = r
		}
	}

	if endpoint := EndpointOverride(); endpoint != "" {
		cfg.BaseEndpoint = sdkaws.String(endpoint)
	}

	return cfg, nil
}

// EndpointOverride returns the custom endpoint from the environment, if any.
func EndpointOverride() string {
	return os.Getenv("AWS_ENDPOINT")
}
