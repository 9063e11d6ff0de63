package config

import (
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
endpoint  = "https://analytics.example.com"
project   = "p1"
output    = "yaml"
log_level = "debug"

auth {
  login    = "user@example.com"
  password = "secret"
}

client {
  timeout       = "30s"
  poll_interval = "500ms"
  tls_verify    = false
}
`

func writeFile(t *testing.T, fs afero.Fs, name, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o600))
}

func clearEnv(t *testing.T) {
	for _, key := range []string{EnvEndpoint, EnvLogin, EnvPassword, EnvAPIToken, EnvProject} {
		t.Setenv(key, "")
	}
}

func TestNewConfig(t *testing.T) {
	clearEnv(t)
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/etc/gdc.hcl", testConfig)

	cfg, err := NewConfig(fs, "/etc/gdc.hcl", "")
	require.NoError(t, err)

	assert.Equal(t, "https://analytics.example.com", cfg.Endpoint)
	assert.Equal(t, "p1", cfg.Project)
	assert.Equal(t, OutputYAML, cfg.Output)
	require.NotNil(t, cfg.Auth)
	assert.Equal(t, "user@example.com", cfg.Auth.Login)

	client := cfg.ClientConfig(hclog.NewNullLogger())
	assert.Equal(t, "secret", client.Password)
	assert.Equal(t, 30*time.Second, client.Timeout)
	assert.Equal(t, 500*time.Millisecond, client.PollInterval)
	require.NotNil(t, client.TLSVerify)
	assert.False(t, *client.TLSVerify)
}

func TestNewConfig_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := NewConfig(afero.NewMemMapFs(), "", "")
	require.NoError(t, err)
	assert.Equal(t, OutputJSON, cfg.Output)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Nil(t, cfg.Auth)
}

func TestNewConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/etc/gdc.hcl", testConfig)
	writeFile(t, fs, "/work/.env", "GDC_API_TOKEN=from-dotenv\nGDC_PROJECT=p2\n")
	t.Setenv(EnvEndpoint, "https://env.example.com")

	cfg, err := NewConfig(fs, "/etc/gdc.hcl", "/work/.env")
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.Endpoint)
	assert.Equal(t, "p2", cfg.Project)
	assert.Equal(t, Auth{APIToken: "from-dotenv"}, *cfg.Auth)
}

func TestNewConfig_ProcessEnvWinsOverDotenv(t *testing.T) {
	clearEnv(t)
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/work/.env", "GDC_LOGIN=dotenv@example.com\nGDC_PASSWORD=p\n")
	t.Setenv(EnvLogin, "env@example.com")

	cfg, err := NewConfig(fs, "", "/work/.env")
	require.NoError(t, err)
	assert.Equal(t, Auth{Login: "env@example.com", Password: "p"}, *cfg.Auth)
}

func TestNewConfig_MissingEnvFile(t *testing.T) {
	clearEnv(t)
	_, err := NewConfig(afero.NewMemMapFs(), "", "/nowhere/.env")
	assert.NoError(t, err)
}

func TestNewConfig_Invalid(t *testing.T) {
	clearEnv(t)
	tests := map[string]string{
		"output":    `output = "xml"`,
		"log level": `log_level = "loud"`,
		"timeout":   "client {\n  timeout = \"soon\"\n}",
		"syntax":    `endpoint = `,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			writeFile(t, fs, "/gdc.hcl", content)
			_, err := NewConfig(fs, "/gdc.hcl", "")
			assert.Error(t, err)
		})
	}
}

func TestNewConfig_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := NewConfig(afero.NewMemMapFs(), "/missing.hcl", "")
	assert.Error(t, err)
}
