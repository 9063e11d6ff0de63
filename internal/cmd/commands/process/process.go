package process

import (
	"bytes"
	"fmt"

	"github.com/mitchellh/cli"

	"github.com/hashicorp-forge/gdc/internal/cmd/base"
	"github.com/hashicorp-forge/gdc/pkg/process"
)

type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Deploy and run processes"
}

func (c *Command) Help() string {
	return `Usage: gdc process <subcommand> [options] [args]

  This command groups subcommands for data load processes and their
  schedules.`
}

func (c *Command) Run(args []string) int {
	return cli.RunResultHelp
}

func newService(c *base.Command) (*process.Service, string, error) {
	projectID, err := c.ProjectID()
	if err != nil {
		return nil, "", err
	}
	client, err := c.Client()
	if err != nil {
		return nil, "", err
	}
	return process.NewService(client, c.Fs), projectID, nil
}

type ListCommand struct {
	*base.Command
}

func (c *ListCommand) Synopsis() string {
	return "List the processes of a project"
}

func (c *ListCommand) Help() string {
	return `Usage: gdc process list [options]` + c.Flags().Help()
}

func (c *ListCommand) Flags() *base.FlagSet {
	return c.NewFlagSet("process list")
}

func (c *ListCommand) Run(args []string) int {
	if err := c.Flags().Parse(args); err != nil {
		return c.Fail("error parsing flags: %v", err)
	}
	svc, projectID, err := newService(c.Command)
	if err != nil {
		return c.Fail("%v", err)
	}
	ctx, cancel := c.Context()
	defer cancel()

	processes, err := svc.ListProcesses(ctx, projectID)
	if err != nil {
		return c.Fail("error listing processes: %v", err)
	}
	if err := c.Output(processes); err != nil {
		return c.Fail("%v", err)
	}
	return 0
}

type DeployCommand struct {
	*base.Command

	flagName   string
	flagType   string
	flagSource string
	flagUpdate string
}

func (c *DeployCommand) Synopsis() string {
	return "Deploy a process"
}

func (c *DeployCommand) Help() string {
	return `Usage: gdc process deploy [options]

  Deploys the content of a source directory as a new process, or redeploys
  an existing process with -update.` + c.Flags().Help()
}

func (c *DeployCommand) Flags() *base.FlagSet {
	f := c.NewFlagSet("process deploy")
	f.StringVar(&c.flagName, "name", "", "(Required) Process name.")
	f.StringVar(&c.flagType, "type", string(process.TypeGraph),
		"Process type: GRAPH, RUBY, ETL or DATALOAD.")
	f.StringVar(&c.flagSource, "source", "",
		"Directory with the process source. Not used by DATALOAD processes.")
	f.StringVar(&c.flagUpdate, "update", "", "ID of a process to redeploy.")
	return f
}

func (c *DeployCommand) Run(args []string) int {
	if err := c.Flags().Parse(args); err != nil {
		return c.Fail("error parsing flags: %v", err)
	}
	p, err := process.NewProcess(c.flagName, process.Type(c.flagType))
	if err != nil {
		return c.Fail("invalid process: %v", err)
	}
	svc, projectID, err := newService(c.Command)
	if err != nil {
		return c.Fail("%v", err)
	}
	ctx, cancel := c.Context()
	defer cancel()

	var deployed *process.Process
	if c.flagUpdate != "" {
		existing, err := svc.GetProcessByID(ctx, projectID, c.flagUpdate)
		if err != nil {
			return c.Fail("error getting process: %v", err)
		}
		existing.Name, existing.Type = p.Name, p.Type
		deployed, err = svc.UpdateProcess(ctx, existing, c.flagSource)
		if err != nil {
			return c.Fail("error deploying process: %v", err)
		}
	} else {
		deployed, err = svc.CreateProcess(ctx, projectID, p, c.flagSource)
		if err != nil {
			return c.Fail("error deploying process: %v", err)
		}
	}

	if err := c.Output(deployed); err != nil {
		return c.Fail("%v", err)
	}
	return 0
}

type ExecuteCommand struct {
	*base.Command

	flagExecutable string
	flagParams     base.KeyValues
	flagHidden     base.KeyValues
	flagLog        bool
}

func (c *ExecuteCommand) Synopsis() string {
	return "Run a process and wait for it"
}

func (c *ExecuteCommand) Help() string {
	return `Usage: gdc process execute [options] <process-id>` + c.Flags().Help()
}

func (c *ExecuteCommand) Flags() *base.FlagSet {
	f := c.NewFlagSet("process execute")
	f.StringVar(&c.flagExecutable, "executable", "",
		"(Required) Executable to run, for example \"main.rb\".")
	f.Var(&c.flagParams, "param", "Parameter as key=value. Repeatable.")
	f.Var(&c.flagHidden, "hidden-param", "Hidden parameter as key=value. Repeatable.")
	f.BoolVar(&c.flagLog, "log", false, "Print the execution log when done.")
	return f
}

func (c *ExecuteCommand) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		return c.Fail("error parsing flags: %v", err)
	}
	if f.NArg() != 1 {
		c.UI.Error("expected one argument: the process ID")
		return 1
	}
	svc, projectID, err := newService(c.Command)
	if err != nil {
		return c.Fail("%v", err)
	}
	ctx, cancel := c.Context()
	defer cancel()

	p, err := svc.GetProcessByID(ctx, projectID, f.Arg(0))
	if err != nil {
		return c.Fail("error getting process: %v", err)
	}
	ex, err := process.NewExecution(p, c.flagExecutable, c.flagParams, c.flagHidden)
	if err != nil {
		return c.Fail("invalid execution: %v", err)
	}
	future, err := svc.ExecuteProcess(ctx, p, ex)
	if err != nil {
		return c.Fail("error starting execution: %v", err)
	}
	c.Log.Info("waiting for execution", "poll", future.PollingURI())

	detail, execErr := future.Get(ctx)
	if detail != nil && c.flagLog {
		var buf bytes.Buffer
		if err := svc.GetExecutionLog(ctx, detail, &buf); err != nil {
			c.UI.Warn(fmt.Sprintf("error getting execution log: %v", err))
		} else {
			c.UI.Output(buf.String())
		}
	}
	if execErr != nil {
		return c.Fail("execution failed: %v", execErr)
	}
	if err := c.Output(detail); err != nil {
		return c.Fail("%v", err)
	}
	return 0
}

type SchedulesCommand struct {
	*base.Command
}

func (c *SchedulesCommand) Synopsis() string {
	return "List the schedules of a project"
}

func (c *SchedulesCommand) Help() string {
	return `Usage: gdc process schedules [options]` + c.Flags().Help()
}

func (c *SchedulesCommand) Flags() *base.FlagSet {
	return c.NewFlagSet("process schedules")
}

func (c *SchedulesCommand) Run(args []string) int {
	if err := c.Flags().Parse(args); err != nil {
		return c.Fail("error parsing flags: %v", err)
	}
	svc, projectID, err := newService(c.Command)
	if err != nil {
		return c.Fail("%v", err)
	}
	ctx, cancel := c.Context()
	defer cancel()

	schedules, err := svc.ListAllSchedules(ctx, projectID)
	if err != nil {
		return c.Fail("error listing schedules: %v", err)
	}
	if err := c.Output(schedules); err != nil {
		return c.Fail("%v", err)
	}
	return 0
}
