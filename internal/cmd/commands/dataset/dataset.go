package dataset

import (
	"fmt"

	"github.com/mitchellh/cli"

	"github.com/hashicorp-forge/gdc/internal/cmd/base"
	"github.com/hashicorp-forge/gdc/pkg/dataset"
)

type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Load data into datasets"
}

func (c *Command) Help() string {
	return `Usage: gdc dataset <subcommand> [options] [args]

  This command groups subcommands for datasets and their uploads.`
}

func (c *Command) Run(args []string) int {
	return cli.RunResultHelp
}

func setup(c *base.Command, f *base.FlagSet, args []string, nargs int) (*dataset.Service, string, int) {
	if err := f.Parse(args); err != nil {
		return nil, "", c.Fail("error parsing flags: %v", err)
	}
	if f.NArg() != nargs {
		c.UI.Error(fmt.Sprintf("expected %d argument(s), got %d", nargs, f.NArg()))
		return nil, "", 1
	}
	projectID, err := c.ProjectID()
	if err != nil {
		return nil, "", c.Fail("%v", err)
	}
	client, err := c.Client()
	if err != nil {
		return nil, "", c.Fail("%v", err)
	}
	return dataset.NewService(client, c.Fs), projectID, 0
}

type ManifestCommand struct {
	*base.Command
}

func (c *ManifestCommand) Synopsis() string {
	return "Print the load manifest of a dataset"
}

func (c *ManifestCommand) Help() string {
	return `Usage: gdc dataset manifest [options] <dataset>` + c.Flags().Help()
}

func (c *ManifestCommand) Flags() *base.FlagSet {
	return c.NewFlagSet("dataset manifest")
}

func (c *ManifestCommand) Run(args []string) int {
	f := c.Flags()
	svc, projectID, code := setup(c.Command, f, args, 1)
	if svc == nil {
		return code
	}
	ctx, cancel := c.Context()
	defer cancel()

	m, err := svc.GetManifest(ctx, projectID, f.Arg(0))
	if err != nil {
		return c.Fail("error getting manifest: %v", err)
	}
	if err := c.Output(m); err != nil {
		return c.Fail("%v", err)
	}
	return 0
}

type LoadCommand struct {
	*base.Command

	flagFile string
	flagMode string
}

func (c *LoadCommand) Synopsis() string {
	return "Load a CSV file into a dataset"
}

func (c *LoadCommand) Help() string {
	return `Usage: gdc dataset load [options] <dataset>

  Loads a CSV file into a dataset using the dataset's manifest and waits for
  the load to finish.` + c.Flags().Help()
}

func (c *LoadCommand) Flags() *base.FlagSet {
	f := c.NewFlagSet("dataset load")
	f.StringVar(&c.flagFile, "file", "", "(Required) CSV file to load.")
	f.StringVar(&c.flagMode, "mode", "", "Upload mode: FULL or INCREMENTAL. Default: as in the manifest.")
	return f
}

func (c *LoadCommand) Run(args []string) int {
	f := c.Flags()
	svc, projectID, code := setup(c.Command, f, args, 1)
	if svc == nil {
		return code
	}
	if c.flagFile == "" {
		c.UI.Error("file flag is required")
		return 1
	}
	ctx, cancel := c.Context()
	defer cancel()

	m, err := svc.GetManifest(ctx, projectID, f.Arg(0))
	if err != nil {
		return c.Fail("error getting manifest: %v", err)
	}
	if c.flagMode != "" {
		m.SetUploadMode(dataset.UploadMode(c.flagMode))
	}

	future, err := svc.LoadDatasetFile(ctx, projectID, m, c.flagFile)
	if err != nil {
		return c.Fail("error starting load: %v", err)
	}
	c.Log.Info("waiting for load", "dataset", m.DataSet, "poll", future.PollingURI())

	state, err := future.Get(ctx)
	if err != nil {
		return c.Fail("load failed: %v", err)
	}
	c.UI.Info(fmt.Sprintf("Loaded %s: %s", m.DataSet, state.Status))
	return 0
}

type UploadsCommand struct {
	*base.Command
}

func (c *UploadsCommand) Synopsis() string {
	return "List the uploads of a dataset"
}

func (c *UploadsCommand) Help() string {
	return `Usage: gdc dataset uploads [options] <dataset>` + c.Flags().Help()
}

func (c *UploadsCommand) Flags() *base.FlagSet {
	return c.NewFlagSet("dataset uploads")
}

func (c *UploadsCommand) Run(args []string) int {
	f := c.Flags()
	svc, projectID, code := setup(c.Command, f, args, 1)
	if svc == nil {
		return code
	}
	ctx, cancel := c.Context()
	defer cancel()

	uploads, err := svc.ListUploads(ctx, projectID, f.Arg(0))
	if err != nil {
		return c.Fail("error listing uploads: %v", err)
	}
	if err := c.Output(uploads); err != nil {
		return c.Fail("%v", err)
	}
	return 0
}

type StatsCommand struct {
	*base.Command
}

func (c *StatsCommand) Synopsis() string {
	return "Count the uploads of a project by status"
}

func (c *StatsCommand) Help() string {
	return `Usage: gdc dataset stats [options]` + c.Flags().Help()
}

func (c *StatsCommand) Flags() *base.FlagSet {
	return c.NewFlagSet("dataset stats")
}

func (c *StatsCommand) Run(args []string) int {
	svc, projectID, code := setup(c.Command, c.Flags(), args, 0)
	if svc == nil {
		return code
	}
	ctx, cancel := c.Context()
	defer cancel()

	stats, err := svc.GetUploadStatistics(ctx, projectID)
	if err != nil {
		return c.Fail("error getting upload statistics: %v", err)
	}
	if err := c.Output(stats); err != nil {
		return c.Fail("%v", err)
	}
	return 0
}
