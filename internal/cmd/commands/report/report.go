package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/mitchellh/cli"

	"github.com/hashicorp-forge/gdc/internal/cmd/base"
	"github.com/hashicorp-forge/gdc/pkg/report"
)

type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Export reports"
}

func (c *Command) Help() string {
	return `Usage: gdc report <subcommand> [options] [args]

  This command groups subcommands for reports.`
}

func (c *Command) Run(args []string) int {
	return cli.RunResultHelp
}

type ExportCommand struct {
	*base.Command

	flagFormat string
	flagOut    string
}

func (c *ExportCommand) Synopsis() string {
	return "Export a report or report definition"
}

func (c *ExportCommand) Help() string {
	return `Usage: gdc report export [options] <uri>

  Exports a report ("/gdc/md/<project>/obj/<id>" of a report) in the given
  format. With -format=raw the URI is a report definition and the raw CSV of
  its result is written.` + c.Flags().Help()
}

func (c *ExportCommand) Flags() *base.FlagSet {
	f := c.NewFlagSet("report export")
	f.StringVar(&c.flagFormat, "format", "raw", "Export format: raw, csv, xls, xlsx, pdf or png.")
	f.StringVar(&c.flagOut, "out", "", "File to write. Default: standard output.")
	return f
}

func (c *ExportCommand) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		return c.Fail("error parsing flags: %v", err)
	}
	if f.NArg() != 1 {
		c.UI.Error("expected one argument: the report URI")
		return 1
	}
	client, err := c.Client()
	if err != nil {
		return c.Fail("%v", err)
	}
	ctx, cancel := c.Context()
	defer cancel()

	var buf strings.Builder
	var w io.Writer = &buf
	if c.flagOut != "" {
		out, err := c.Fs.Create(c.flagOut)
		if err != nil {
			return c.Fail("error creating output file: %v", err)
		}
		defer out.Close()
		w = out
	}

	svc := report.NewExportService(client)
	uri := f.Arg(0)
	var n int64
	if c.flagFormat == "raw" {
		projectID, err := c.ProjectID()
		if err != nil {
			return c.Fail("%v", err)
		}
		future, err := svc.ExportCSV(ctx, projectID, uri, w)
		if err != nil {
			return c.Fail("error starting export: %v", err)
		}
		n, err = future.Get(ctx)
		if err != nil {
			return c.Fail("export failed: %v", err)
		}
	} else {
		future, err := svc.ExportReport(ctx, uri, report.ExportFormat(c.flagFormat), w)
		if err != nil {
			return c.Fail("error starting export: %v", err)
		}
		n, err = future.Get(ctx)
		if err != nil {
			return c.Fail("export failed: %v", err)
		}
	}

	if c.flagOut == "" {
		c.UI.Output(buf.String())
	} else {
		c.UI.Info(fmt.Sprintf("Wrote %d bytes to %s", n, c.flagOut))
	}
	return 0
}
