// Package secrets resolves startup credentials from AWS Secrets Manager.
package secrets

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/secretsmanager/secretsmanageriface"
	"github.com/sirupsen/logrus"

	"github.com/vidshare/api/internal/config"
)

// Client reads secret strings.
type Client struct {
	api    secretsmanageriface.SecretsManagerAPI
	logger *logrus.Logger
}

// NewClient creates a Secrets Manager client for the configured region.
func NewClient(awsCfg *config.AWSConfig, logger *logrus.Logger) (*Client, error) {
	sessConfig := &aws.Config{
		Region: aws.String(awsCfg.Region),
	}

	// Use specific profile if provided
	if awsCfg.Profile != "" {
		sessConfig.WithCredentialsChainVerboseErrors(true)
	}

	sess, err := session.NewSessionWithOptions(session.Options{
		Config:  *sessConfig,
		Profile: awsCfg.Profile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return NewClientWithAPI(secretsmanager.New(sess), logger), nil
}

// NewClientWithAPI wraps an existing Secrets Manager API.
func NewClientWithAPI(api secretsmanageriface.SecretsManagerAPI, logger *logrus.Logger) *Client {
	return &Client{api: api, logger: logger}
}

// GetString returns the string value of the named secret with surrounding
// whitespace removed. An empty value is an error.
func (c *Client) GetString(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("secret name is empty")
	}

	result, err := c.api.GetSecretValueWithContext(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("failed to retrieve secret '%s': %w", name, err)
	}

	if result.SecretString == nil {
		return "", fmt.Errorf("secret '%s' has no string value", name)
	}

	value := strings.TrimSpace(*result.SecretString)
	if value == "" {
		return "", fmt.Errorf("secret '%s' is empty", name)
	}

	c.logger.WithField("secret_name", name).Info("Successfully retrieved secret from Secrets Manager")
	return value, nil
}
