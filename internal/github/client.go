// Package github is a thin client for the GitHub REST API, covering the
// few calls oca-port needs: mapping commits to the pull requests that
// merged them and opening draft pull requests.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cli/go-gh/v2/pkg/api"

	"github.com/camptocamp/oca-port/internal/logger"
)

// Default configuration values
const (
	// DefaultMaxRetries is the default maximum number of retry attempts
	DefaultMaxRetries = 3

	// DefaultBaseDelay is the default base delay for exponential backoff
	DefaultBaseDelay = 1 * time.Second

	// DefaultMaxDelay is the default maximum delay between retries
	DefaultMaxDelay = 30 * time.Second

	// DefaultTimeout is the per-request timeout. A timed-out lookup is
	// degraded by the caller, never escalated to a run abort.
	DefaultTimeout = 30 * time.Second
)

// Config holds configuration options for the GitHub client
type Config struct {
	// MaxRetries is the maximum number of retry attempts for transient failures
	MaxRetries int

	// BaseDelay is the base delay for exponential backoff
	BaseDelay time.Duration

	// MaxDelay is the maximum delay between retries
	MaxDelay time.Duration

	// Timeout is the request timeout duration
	Timeout time.Duration
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
		Timeout:    DefaultTimeout,
	}
}

// Client wraps go-gh's REST client with retry logic and oca-port's error
// taxonomy.
type Client struct {
	restClient *api.RESTClient
	config     *Config
}

// ClientOption is a functional option for configuring the Client
type ClientOption func(*Client) error

// NewClient creates a new GitHub client. When token is empty, go-gh's
// ambient authentication (gh auth, GH_TOKEN) is used instead. The token
// is never logged.
func NewClient(token string, opts ...ClientOption) (*Client, error) {
	config := DefaultConfig()

	restClient, err := api.NewRESTClient(api.ClientOptions{
		AuthToken: token,
		Timeout:   config.Timeout,
	})
	if err != nil {
		return nil, NewAuthenticationError("failed to create REST client", err)
	}

	client := &Client{
		restClient: restClient,
		config:     config,
	}

	for _, opt := range opts {
		if err := opt(client); err != nil {
			return nil, fmt.Errorf("failed to apply client option: %w", err)
		}
	}

	return client, nil
}

// WithConfig sets the entire configuration
func WithConfig(config *Config) ClientOption {
	return func(c *Client) error {
		if config != nil {
			c.config = config
		}
		return nil
	}
}

// WithTimeout sets the request timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) error {
		c.config.Timeout = timeout
		return nil
	}
}

// WithMaxRetries sets the maximum number of retry attempts
func WithMaxRetries(maxRetries int) ClientOption {
	return func(c *Client) error {
		if maxRetries < 0 {
			maxRetries = 0
		}
		c.config.MaxRetries = maxRetries
		return nil
	}
}

// get executes a GET request with retry and exponential backoff on
// transient failures.
func (c *Client) get(ctx context.Context, path string, response interface{}) error {
	policy := &RetryPolicy{
		MaxRetries: c.config.MaxRetries,
		BaseDelay:  c.config.BaseDelay,
		MaxDelay:   c.config.MaxDelay,
	}

	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		err := c.restClient.DoWithContext(ctx, http.MethodGet, path, nil, response)
		if err == nil {
			return nil
		}

		lastErr = classifyError(path, err)
		if !IsRetryableError(lastErr) {
			return lastErr
		}
		if attempt == policy.MaxRetries {
			break
		}

		backoff := policy.calculateBackoff(attempt)
		logger.Debug().
			Int("attempt", attempt+1).
			Int("maxRetries", policy.MaxRetries).
			Dur("backoff", backoff).
			Err(err).
			Msg("Request failed, retrying after backoff")

		select {
		case <-ctx.Done():
			return fmt.Errorf("request canceled: %w", ctx.Err())
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// classifyError maps go-gh HTTP errors onto the client's error taxonomy.
func classifyError(path string, err error) error {
	var httpErr *api.HTTPError
	if !errors.As(err, &httpErr) {
		// Network-level failures (timeouts, connection resets) are
		// transient.
		return NewRetryableError("request failed", err)
	}
	switch {
	case httpErr.StatusCode == http.StatusUnauthorized || httpErr.StatusCode == http.StatusForbidden:
		return NewAuthenticationError(path, err)
	case httpErr.StatusCode == http.StatusNotFound:
		return &NotFoundError{Resource: path, Err: err}
	case httpErr.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{Message: path, Err: err}
	case httpErr.StatusCode >= 500:
		return NewRetryableError(path, err)
	default:
		return err
	}
}
