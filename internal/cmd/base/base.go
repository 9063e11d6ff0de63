package base

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/hashicorp-forge/gdc/internal/config"
	"github.com/hashicorp-forge/gdc/pkg/gdc"
)

// Command is embedded by every gdc command.
type Command struct {
	Log hclog.Logger
	UI  cli.Ui

	// Fs is where the config, env and data files are read from.
	Fs afero.Fs

	// NewClient builds the API client. Tests replace it to point at a fake
	// API.
	NewClient func(cfg *gdc.Config) (*gdc.Client, error)

	flagConfig   string
	flagEnvFile  string
	flagLogLevel string
	flagOutput   string
	flagProject  string

	cfg *config.Config
}

// NewCommand returns a Command logging to log and writing to ui.
func NewCommand(log hclog.Logger, ui cli.Ui) *Command {
	return &Command{
		Log:       log,
		UI:        ui,
		Fs:        afero.NewOsFs(),
		NewClient: gdc.New,
	}
}

// FlagSet wraps flag.FlagSet with help output.
type FlagSet struct {
	*flag.FlagSet
}

// NewFlagSet wraps f.
func NewFlagSet(f *flag.FlagSet) *FlagSet {
	return &FlagSet{FlagSet: f}
}

// Help returns the usage of every flag.
func (f *FlagSet) Help() string {
	var b strings.Builder
	b.WriteString("\n\nOptions:\n\n")
	f.VisitAll(func(fl *flag.Flag) {
		fmt.Fprintf(&b, "  -%s\n      %s\n", fl.Name, fl.Usage)
		if fl.DefValue != "" && fl.DefValue != "false" {
			fmt.Fprintf(&b, "      Default: %s\n", fl.DefValue)
		}
		b.WriteString("\n")
	})
	return strings.TrimRight(b.String(), "\n")
}

// NewFlagSet returns a flag set for command name carrying the common API
// flags.
func (c *Command) NewFlagSet(name string) *FlagSet {
	f := NewFlagSet(flag.NewFlagSet(name, flag.ContinueOnError))
	f.StringVar(&c.flagConfig, "config", os.Getenv("GDC_CONFIG"),
		"Path to the gdc HCL config file. Can also be set with GDC_CONFIG.")
	f.StringVar(&c.flagEnvFile, "env-file", ".env",
		"Path to a .env file with GDC_* variables.")
	f.StringVar(&c.flagLogLevel, "log-level", "",
		`Log level: "trace", "debug", "info", "warn" or "error". Overrides the config file.`)
	f.StringVar(&c.flagOutput, "output", "",
		`Output format: "json" or "yaml". Overrides the config file.`)
	f.StringVar(&c.flagProject, "project", "",
		"Project ID. Overrides the config file and GDC_PROJECT.")
	return f
}

// Config loads the configuration once.
func (c *Command) Config() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}

	cfg, err := config.NewConfig(c.Fs, c.flagConfig, c.flagEnvFile)
	if err != nil {
		return nil, err
	}
	if c.flagOutput != "" || c.flagLogLevel != "" {
		if c.flagOutput != "" {
			cfg.Output = c.flagOutput
		}
		if c.flagLogLevel != "" {
			cfg.LogLevel = c.flagLogLevel
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	if c.flagProject != "" {
		cfg.Project = c.flagProject
	}
	if lvl := hclog.LevelFromString(cfg.LogLevel); lvl != hclog.NoLevel {
		c.Log.SetLevel(lvl)
	}

	c.cfg = cfg
	return cfg, nil
}

// Client returns an API client built from the configuration.
func (c *Command) Client() (*gdc.Client, error) {
	cfg, err := c.Config()
	if err != nil {
		return nil, err
	}
	client, err := c.NewClient(cfg.ClientConfig(c.Log))
	if err != nil {
		return nil, fmt.Errorf("error creating API client: %w", err)
	}
	return client, nil
}

// ProjectID returns the project from the arguments or the configuration.
func (c *Command) ProjectID() (string, error) {
	cfg, err := c.Config()
	if err != nil {
		return "", err
	}
	if cfg.Project == "" {
		return "", fmt.Errorf("no project: set -project, GDC_PROJECT or project in the config file")
	}
	return cfg.Project, nil
}

// Output writes v in the configured format.
func (c *Command) Output(v any) error {
	format := config.OutputJSON
	if cfg, err := c.Config(); err == nil {
		format = cfg.Output
	}

	var (
		out []byte
		err error
	)
	switch format {
	case config.OutputYAML:
		out, err = toYAML(v)
	default:
		out, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("error formatting output: %w", err)
	}
	c.UI.Output(strings.TrimRight(string(out), "\n"))
	return nil
}

// toYAML renders v as YAML. v goes through JSON first so the API field
// names and custom JSON encodings are kept.
func toYAML(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	return yaml.Marshal(generic)
}

// Context returns a context cancelled on interrupt.
func (c *Command) Context() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// Fail reports err and returns the exit code of a failed command.
func (c *Command) Fail(format string, err error) int {
	c.UI.Error(fmt.Sprintf(format, err))
	return 1
}
