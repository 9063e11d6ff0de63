// Package config loads the configuration of the gdc command-line tool.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"

	"github.com/hashicorp-forge/gdc/pkg/gdc"
)

// Environment variables overriding the configuration file.
const (
	EnvEndpoint = "GDC_ENDPOINT"
	EnvLogin    = "GDC_LOGIN"
	EnvPassword = "GDC_PASSWORD"
	EnvAPIToken = "GDC_API_TOKEN"
	EnvProject  = "GDC_PROJECT"
)

// Output formats.
const (
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// Config contains the configuration of the gdc tool.
type Config struct {
	// Endpoint is the base URL of the platform API.
	Endpoint string `hcl:"endpoint,optional"`

	// Project is the default project ID of project scoped commands.
	Project string `hcl:"project,optional"`

	// Output is the format of command output: "json" or "yaml".
	Output string `hcl:"output,optional"`

	// LogLevel is the level of the stderr log.
	LogLevel string `hcl:"log_level,optional"`

	// Auth configures authentication.
	Auth *Auth `hcl:"auth,block"`

	// Client configures the HTTP client.
	Client *Client `hcl:"client,block"`
}

// Auth configures authentication. Either login and password or an API token
// must be set.
type Auth struct {
	Login    string `hcl:"login,optional"`
	Password string `hcl:"password,optional"`
	APIToken string `hcl:"api_token,optional"`
}

// Client configures the HTTP client.
type Client struct {
	// Timeout of a single request, for example "60s".
	Timeout string `hcl:"timeout,optional"`

	// PollInterval between two polls of an asynchronous task, for example
	// "2s".
	PollInterval string `hcl:"poll_interval,optional"`

	TLSVerify *bool `hcl:"tls_verify,optional"`
	Tracing   bool  `hcl:"tracing,optional"`
}

// NewConfig returns a Config read from the HCL file at filename, if not
// empty, with environment overrides applied. Variables from envFile (a
// .env file) are used where the process environment does not set them.
func NewConfig(fs afero.Fs, filename, envFile string) (*Config, error) {
	c := &Config{
		Output:   OutputJSON,
		LogLevel: "warn",
	}

	if filename != "" {
		src, err := afero.ReadFile(fs, filename)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// hclsimple picks the syntax from the file extension.
		if err := hclsimple.Decode(filepath.Base(filename), src, nil, c); err != nil {
			return nil, fmt.Errorf("error decoding config file: %w", err)
		}
	}

	env, err := loadEnv(fs, envFile)
	if err != nil {
		return nil, err
	}
	c.applyEnv(env)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// loadEnv returns the variables of envFile overlaid by the non-empty
// variables of the process environment. A missing envFile is not an error.
func loadEnv(fs afero.Fs, envFile string) (map[string]string, error) {
	env := map[string]string{}
	if envFile != "" {
		f, err := fs.Open(envFile)
		switch {
		case err == nil:
			defer f.Close()
			parsed, err := godotenv.Parse(f)
			if err != nil {
				return nil, fmt.Errorf("error parsing env file %s: %w", envFile, err)
			}
			env = parsed
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("error reading env file: %w", err)
		}
	}

	for _, key := range []string{EnvEndpoint, EnvLogin, EnvPassword, EnvAPIToken, EnvProject} {
		if v := os.Getenv(key); v != "" {
			env[key] = v
		}
	}
	return env, nil
}

func (c *Config) applyEnv(env map[string]string) {
	if v := env[EnvEndpoint]; v != "" {
		c.Endpoint = v
	}
	if v := env[EnvProject]; v != "" {
		c.Project = v
	}

	login, password, token := env[EnvLogin], env[EnvPassword], env[EnvAPIToken]
	if login == "" && password == "" && token == "" {
		return
	}
	if c.Auth == nil {
		c.Auth = &Auth{}
	}
	// Credentials from the environment replace the configured method.
	if token != "" {
		*c.Auth = Auth{APIToken: token}
		return
	}
	if login != "" {
		c.Auth.Login = login
		c.Auth.APIToken = ""
	}
	if password != "" {
		c.Auth.Password = password
		c.Auth.APIToken = ""
	}
}

// Validate validates the configuration.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Output, validation.In(OutputJSON, OutputYAML)),
		validation.Field(&c.LogLevel,
			validation.By(func(interface{}) error {
				if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
					return fmt.Errorf("unknown log level %q", c.LogLevel)
				}
				return nil
			}),
		),
		validation.Field(&c.Client),
	)
}

func (c Client) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Timeout, validation.By(isDuration)),
		validation.Field(&c.PollInterval, validation.By(isDuration)),
	)
}

func isDuration(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := time.ParseDuration(s); err != nil {
		return fmt.Errorf("must be a duration like \"30s\"")
	}
	return nil
}

// ClientConfig returns the configuration of the API client.
func (c *Config) ClientConfig(logger hclog.Logger) *gdc.Config {
	cfg := &gdc.Config{
		Endpoint: c.Endpoint,
		Logger:   logger,
	}
	if c.Auth != nil {
		cfg.Login = c.Auth.Login
		cfg.Password = c.Auth.Password
		cfg.APIToken = c.Auth.APIToken
	}
	if c.Client != nil {
		// Validate accepted both durations.
		cfg.Timeout, _ = time.ParseDuration(c.Client.Timeout)
		cfg.PollInterval, _ = time.ParseDuration(c.Client.PollInterval)
		cfg.TLSVerify = c.Client.TLSVerify
		cfg.Tracing = c.Client.Tracing
	}
	return cfg
}
