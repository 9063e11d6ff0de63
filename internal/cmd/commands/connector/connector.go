package connector

import (
	"fmt"
	"strconv"

	"github.com/iancoleman/strcase"
	"github.com/mitchellh/cli"

	"github.com/hashicorp-forge/gdc/internal/cmd/base"
	"github.com/hashicorp-forge/gdc/pkg/connector"
)

type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Manage connector integrations"
}

func (c *Command) Help() string {
	return `Usage: gdc connector <subcommand> [options] <connector>

  This command groups subcommands for ETL connectors. <connector> is one of
  zendesk4, coupa, pardot or ga.`
}

func (c *Command) Run(args []string) int {
	return cli.RunResultHelp
}

// setup parses args, which must end with the connector type.
func setup(c *base.Command, f *base.FlagSet, args []string) (*connector.Service, string, connector.Type, int) {
	if err := f.Parse(args); err != nil {
		return nil, "", "", c.Fail("error parsing flags: %v", err)
	}
	if f.NArg() != 1 {
		c.UI.Error("expected one argument: the connector type")
		return nil, "", "", 1
	}
	t := connector.Type(f.Arg(0))
	if err := t.Validate(); err != nil {
		return nil, "", "", c.Fail("invalid connector type: %v", err)
	}
	projectID, err := c.ProjectID()
	if err != nil {
		return nil, "", "", c.Fail("%v", err)
	}
	client, err := c.Client()
	if err != nil {
		return nil, "", "", c.Fail("%v", err)
	}
	return connector.NewService(client), projectID, t, 0
}

type GetCommand struct {
	*base.Command
}

func (c *GetCommand) Synopsis() string {
	return "Show the integration of a connector"
}

func (c *GetCommand) Help() string {
	return `Usage: gdc connector get [options] <connector>` + c.Flags().Help()
}

func (c *GetCommand) Flags() *base.FlagSet {
	return c.NewFlagSet("connector get")
}

func (c *GetCommand) Run(args []string) int {
	svc, projectID, t, code := setup(c.Command, c.Flags(), args)
	if svc == nil {
		return code
	}
	ctx, cancel := c.Context()
	defer cancel()

	i, err := svc.GetIntegration(ctx, projectID, t)
	if err != nil {
		return c.Fail("error getting integration: %v", err)
	}
	if err := c.Output(i); err != nil {
		return c.Fail("%v", err)
	}
	return 0
}

type SettingsCommand struct {
	*base.Command

	flagSet base.KeyValues
}

func (c *SettingsCommand) Synopsis() string {
	return "Show or change connector settings"
}

func (c *SettingsCommand) Help() string {
	return `Usage: gdc connector settings [options] <connector>

  Prints the connector settings. With -set the given settings are changed
  first. Keys may be written in snake case, for example
  -set sync_time_zone=Europe/Prague.` + c.Flags().Help()
}

func (c *SettingsCommand) Flags() *base.FlagSet {
	f := c.NewFlagSet("connector settings")
	f.Var(&c.flagSet, "set", "Setting to change as key=value. Repeatable.")
	return f
}

func (c *SettingsCommand) Run(args []string) int {
	svc, projectID, t, code := setup(c.Command, c.Flags(), args)
	if svc == nil {
		return code
	}
	ctx, cancel := c.Context()
	defer cancel()

	settings, err := svc.GetSettings(ctx, projectID, t)
	if err != nil {
		return c.Fail("error getting settings: %v", err)
	}

	if len(c.flagSet) > 0 {
		for k, v := range c.flagSet {
			settings[strcase.ToLowerCamel(k)] = v
		}
		if err := validateSettings(t, settings); err != nil {
			return c.Fail("invalid settings: %v", err)
		}
		if err := svc.UpdateSettings(ctx, projectID, t, settings); err != nil {
			return c.Fail("error updating settings: %v", err)
		}
		c.Log.Info("settings updated", "connector", t)
	}

	if err := c.Output(settings); err != nil {
		return c.Fail("%v", err)
	}
	return 0
}

// validateSettings checks settings of the connectors with typed settings.
func validateSettings(t connector.Type, settings connector.Settings) error {
	var typed interface{ Validate() error }
	switch t {
	case connector.Zendesk4:
		typed = &connector.Zendesk4Settings{}
	case connector.Coupa:
		typed = &connector.CoupaSettings{}
	default:
		return nil
	}
	if err := settings.Decode(typed); err != nil {
		return err
	}
	return typed.Validate()
}

type ExecuteCommand struct {
	*base.Command

	flagIncremental string
}

func (c *ExecuteCommand) Synopsis() string {
	return "Run a connector and wait for it"
}

func (c *ExecuteCommand) Help() string {
	return `Usage: gdc connector execute [options] <connector>` + c.Flags().Help()
}

func (c *ExecuteCommand) Flags() *base.FlagSet {
	f := c.NewFlagSet("connector execute")
	f.StringVar(&c.flagIncremental, "incremental", "",
		`"true" for an incremental load, "false" for a full load. Default: connector default.`)
	return f
}

func (c *ExecuteCommand) Run(args []string) int {
	svc, projectID, t, code := setup(c.Command, c.Flags(), args)
	if svc == nil {
		return code
	}

	execution := connector.NewProcessExecution()
	if c.flagIncremental != "" {
		incremental, err := strconv.ParseBool(c.flagIncremental)
		if err != nil {
			return c.Fail("invalid -incremental: %v", err)
		}
		execution.SetIncremental(incremental)
	}

	ctx, cancel := c.Context()
	defer cancel()

	future, err := svc.ExecuteProcess(ctx, projectID, t, execution)
	if err != nil {
		return c.Fail("error starting connector process: %v", err)
	}
	c.Log.Info("waiting for connector process", "poll", future.PollingURI())

	status, err := future.Get(ctx)
	if err != nil {
		return c.Fail("connector process failed: %v", err)
	}
	c.UI.Info(fmt.Sprintf("Process %s finished: %s", status.ID(), status.Status))
	return 0
}

type ReloadCommand struct {
	*base.Command

	flagStartTimes base.KeyValues
}

func (c *ReloadCommand) Synopsis() string {
	return "Schedule a Zendesk reload"
}

func (c *ReloadCommand) Help() string {
	return `Usage: gdc connector reload [options] zendesk4` + c.Flags().Help()
}

func (c *ReloadCommand) Flags() *base.FlagSet {
	f := c.NewFlagSet("connector reload")
	f.Var(&c.flagStartTimes, "start", "Entity start time as entity=unix-seconds. Repeatable.")
	return f
}

func (c *ReloadCommand) Run(args []string) int {
	svc, projectID, t, code := setup(c.Command, c.Flags(), args)
	if svc == nil {
		return code
	}
	if t != connector.Zendesk4 {
		c.UI.Error("reloads are only supported by zendesk4")
		return 1
	}

	startTimes := map[string]int64{}
	for entity, v := range c.flagStartTimes {
		ts, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c.Fail("invalid start time: %v", err)
		}
		startTimes[entity] = ts
	}

	ctx, cancel := c.Context()
	defer cancel()

	r, err := svc.ScheduleReload(ctx, projectID, connector.NewReload(startTimes))
	if err != nil {
		return c.Fail("error scheduling reload: %v", err)
	}
	if err := c.Output(r); err != nil {
		return c.Fail("%v", err)
	}
	return 0
}
