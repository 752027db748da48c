package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/velvetlane/storefront-backend/pkg/config"
	"github.com/velvetlane/storefront-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)

// keyPrefixes maps each environment to the secret-key prefixes Stripe
// issues for it. A live deployment with a test key (or the reverse) fails
// at startup instead of at the first checkout.
var keyPrefixes = map[string][]string{
	testEnv: {"sk_test", "rk_test"},
	liveEnv: {"sk_live", "rk_live"},
}

// Client holds the Stripe API handle together with the webhook signing
// secret, so the gateway can both create authorizations and verify
// deliveries from one place.
type Client struct {
	api           *stripe.Client
	environment   string
	signingSecret string
}

// NewClient validates the configured secrets against the environment and
// initializes the process-wide Stripe key once.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("stripe api key is required")
	}
	if !keyMatchesEnv(env, apiKey) {
		return nil, fmt.Errorf("stripe environment %q requires a %s secret key", env, env)
	}

	signingSecret := strings.TrimSpace(cfg.SigningSecret)
	if signingSecret == "" {
		return nil, errors.New("stripe webhook secret is required")
	}

	api := stripe.NewClient(apiKey)
	stripe.Key = apiKey

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe client initialized (%s)", env))
	}

	return &Client{
		api:           api,
		environment:   env,
		signingSecret: signingSecret,
	}, nil
}

// API returns the underlying Stripe API client.
func (c *Client) API() *stripe.Client {
	if c == nil {
		return nil
	}
	return c.api
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret returns the webhook signing secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		return testEnv, nil
	}
	if _, ok := keyPrefixes[env]; !ok {
		return "", errInvalidStripeEnv
	}
	return env, nil
}

func keyMatchesEnv(env, key string) bool {
	for _, prefix := range keyPrefixes[env] {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}
