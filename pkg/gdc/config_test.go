package gdc_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/gdc/pkg/gdc"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		config    *gdc.Config
		wantError bool
		errorMsgs []string
	}{
		{
			name: "Valid token config",
			config: &gdc.Config{
				Endpoint: "https://secure.gooddata.com",
				APIToken: "token",
			},
		},
		{
			name: "Valid login config",
			config: &gdc.Config{
				Endpoint: "https://secure.gooddata.com",
				Login:    "user@example.com",
				Password: "secret",
			},
		},
		{
			name: "Missing endpoint",
			config: &gdc.Config{
				APIToken: "token",
			},
			wantError: true,
			errorMsgs: []string{"endpoint"},
		},
		{
			name: "Invalid scheme",
			config: &gdc.Config{
				Endpoint: "ftp://secure.gooddata.com",
				APIToken: "token",
			},
			wantError: true,
			errorMsgs: []string{"scheme"},
		},
		{
			name: "No credentials",
			config: &gdc.Config{
				Endpoint: "https://secure.gooddata.com",
			},
			wantError: true,
			errorMsgs: []string{"api_token is required"},
		},
		{
			name: "Both credential kinds",
			config: &gdc.Config{
				Endpoint: "https://secure.gooddata.com",
				Login:    "user@example.com",
				Password: "secret",
				APIToken: "token",
			},
			wantError: true,
			errorMsgs: []string{"mutually exclusive"},
		},
		{
			name: "Login without password",
			config: &gdc.Config{
				Endpoint: "https://secure.gooddata.com",
				Login:    "user@example.com",
			},
			wantError: true,
			errorMsgs: []string{"password is required"},
		},
		{
			name: "All problems reported",
			config: &gdc.Config{
				Endpoint:     "ftp://secure.gooddata.com",
				Timeout:      -1 * time.Second,
				PollInterval: -1 * time.Second,
			},
			wantError: true,
			errorMsgs: []string{"scheme", "api_token is required", "timeout", "poll_interval"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if !tt.wantError {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, msg := range tt.errorMsgs {
				assert.Contains(t, err.Error(), msg)
			}
		})
	}
}

func TestNew_AppliesDefaults(t *testing.T) {
	client, err := gdc.New(&gdc.Config{APIToken: "token"})
	require.NoError(t, err)

	assert.Equal(t, gdc.DefaultEndpoint, client.Endpoint())
	assert.Equal(t, 2*time.Second, client.PollInterval())
	assert.NotNil(t, client.Logger())
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := gdc.New(&gdc.Config{Endpoint: "https://secure.gooddata.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid client config")
}
