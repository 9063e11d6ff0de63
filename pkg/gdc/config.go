package gdc

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	httptrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/net/http"

	"github.com/hashicorp-forge/gdc/internal/version"
)

// DefaultEndpoint is the platform's public API host.
const DefaultEndpoint = "https://secure.gooddata.com"

// Config contains configuration for the platform client.
//
// Exactly one authentication method must be set: either Login and Password
// (SST/TT token exchange) or APIToken (bearer token).
type Config struct {
	// Endpoint is the base URL of the platform API, for example
	// "https://secure.gooddata.com".
	Endpoint string `json:"endpoint"`

	Login    string `json:"login,omitempty"`
	Password string `json:"-"`

	// APIToken is sent as a bearer token instead of logging in.
	APIToken string `json:"-"`

	// Timeout for a single HTTP exchange.
	// Default: 60 seconds
	Timeout time.Duration `json:"timeout,omitempty"`

	// PollInterval is the fixed delay between two polls of an asynchronous
	// task.
	// Default: 2 seconds
	PollInterval time.Duration `json:"pollInterval,omitempty"`

	// TLSVerify controls TLS certificate verification.
	// Set to false only for development stands with self-signed certs.
	TLSVerify *bool `json:"tlsVerify,omitempty"`

	// MaxIdleConns bounds the connection pool.
	// Default: 100
	MaxIdleConns int `json:"maxIdleConns,omitempty"`

	// UserAgent is sent with every request.
	UserAgent string `json:"userAgent,omitempty"`

	// Tracing wraps the HTTP client with Datadog APM tracing.
	Tracing bool `json:"tracing,omitempty"`

	Logger hclog.Logger `json:"-"`

	// Registerer receives the client request metrics. Nothing is registered
	// when nil.
	Registerer prometheus.Registerer `json:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	tlsVerify := true
	return &Config{
		Endpoint:     DefaultEndpoint,
		Timeout:      60 * time.Second,
		PollInterval: 2 * time.Second,
		TLSVerify:    &tlsVerify,
		MaxIdleConns: 100,
		UserAgent:    "gdc-go/" + version.Version,
	}
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Endpoint == "" {
		c.Endpoint = defaults.Endpoint
	}
	if c.Timeout == 0 {
		c.Timeout = defaults.Timeout
	}
	if c.PollInterval == 0 {
		c.PollInterval = defaults.PollInterval
	}
	if c.TLSVerify == nil {
		c.TLSVerify = defaults.TLSVerify
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = defaults.MaxIdleConns
	}
	if c.UserAgent == "" {
		c.UserAgent = defaults.UserAgent
	}
	if c.Logger == nil {
		c.Logger = hclog.NewNullLogger()
	}
}

// Validate checks if the configuration is valid. All problems are reported
// at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if err := validation.Validate(c.Endpoint, validation.Required); err != nil {
		result = multierror.Append(result, fmt.Errorf("endpoint: %w", err))
	} else if u, err := url.Parse(c.Endpoint); err != nil {
		result = multierror.Append(result, fmt.Errorf("invalid endpoint: %w", err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		result = multierror.Append(result,
			fmt.Errorf("endpoint must use http or https scheme, got: %q", u.Scheme))
	}

	hasLogin := c.Login != "" || c.Password != ""
	switch {
	case hasLogin && c.APIToken != "":
		result = multierror.Append(result,
			fmt.Errorf("login/password and api_token are mutually exclusive"))
	case hasLogin:
		if c.Login == "" {
			result = multierror.Append(result, fmt.Errorf("login is required with password"))
		}
		if c.Password == "" {
			result = multierror.Append(result, fmt.Errorf("password is required with login"))
		}
	case c.APIToken == "":
		result = multierror.Append(result,
			fmt.Errorf("either login/password or api_token is required"))
	}

	if c.Timeout < 0 {
		result = multierror.Append(result,
			fmt.Errorf("timeout must be positive, got: %v", c.Timeout))
	}
	if c.PollInterval < 0 {
		result = multierror.Append(result,
			fmt.Errorf("poll_interval must be positive, got: %v", c.PollInterval))
	}
	if c.MaxIdleConns < 0 {
		result = multierror.Append(result,
			fmt.Errorf("max_idle_conns must be non-negative, got: %d", c.MaxIdleConns))
	}

	return result.ErrorOrNil()
}

// NewHTTPClient creates a configured HTTP client.
func (c *Config) NewHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        c.MaxIdleConns,
		MaxIdleConnsPerHost: c.MaxIdleConns,
		IdleConnTimeout:     90 * time.Second,
	}

	if c.TLSVerify != nil && !*c.TLSVerify {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	client := &http.Client{
		Timeout:   c.Timeout,
		Transport: transport,
		// Poll handlers look at 3xx responses themselves.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	if c.Tracing {
		client = httptrace.WrapClient(client,
			httptrace.RTWithServiceName("gdc-client"),
			httptrace.RTWithResourceNamer(func(req *http.Request) string {
				return req.Method + " " + req.URL.Path
			}),
		)
	}

	return client
}
