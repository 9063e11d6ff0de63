package md

import (
	"strings"

	"github.com/mitchellh/cli"

	"github.com/hashicorp-forge/gdc/internal/cmd/base"
	"github.com/hashicorp-forge/gdc/pkg/md"
)

type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Query project metadata"
}

func (c *Command) Help() string {
	return `Usage: gdc md <subcommand> [options] [args]

  This command groups subcommands for metadata objects.`
}

func (c *Command) Run(args []string) int {
	return cli.RunResultHelp
}

type GetCommand struct {
	*base.Command
}

func (c *GetCommand) Synopsis() string {
	return "Show a metadata object"
}

func (c *GetCommand) Help() string {
	return `Usage: gdc md get [options] <uri-or-id>

  Accepts an object URI ("/gdc/md/<project>/obj/<id>") or an object ID of
  the selected project.` + c.Flags().Help()
}

func (c *GetCommand) Flags() *base.FlagSet {
	return c.NewFlagSet("md get")
}

func (c *GetCommand) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		return c.Fail("error parsing flags: %v", err)
	}
	if f.NArg() != 1 {
		c.UI.Error("expected one argument: the object URI or ID")
		return 1
	}
	client, err := c.Client()
	if err != nil {
		return c.Fail("%v", err)
	}
	svc := md.NewService(client)
	ctx, cancel := c.Context()
	defer cancel()

	var obj *md.Object
	if arg := f.Arg(0); strings.HasPrefix(arg, "/gdc/") {
		obj, err = svc.GetObjByURI(ctx, arg)
	} else {
		projectID, perr := c.ProjectID()
		if perr != nil {
			return c.Fail("%v", perr)
		}
		obj, err = svc.GetObjByID(ctx, projectID, arg)
	}
	if err != nil {
		return c.Fail("error getting object: %v", err)
	}
	if err := c.Output(obj); err != nil {
		return c.Fail("%v", err)
	}
	return 0
}

type FindCommand struct {
	*base.Command

	flagTitle string
}

func (c *FindCommand) Synopsis() string {
	return "List the metadata objects of a category"
}

func (c *FindCommand) Help() string {
	return `Usage: gdc md find [options] <category>

  Lists objects of a category, for example "metric", "report" or
  "attribute".` + c.Flags().Help()
}

func (c *FindCommand) Flags() *base.FlagSet {
	f := c.NewFlagSet("md find")
	f.StringVar(&c.flagTitle, "title", "", "Only list objects whose title contains this text.")
	return f
}

func (c *FindCommand) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		return c.Fail("error parsing flags: %v", err)
	}
	if f.NArg() != 1 {
		c.UI.Error("expected one argument: the category")
		return 1
	}
	projectID, err := c.ProjectID()
	if err != nil {
		return c.Fail("%v", err)
	}
	client, err := c.Client()
	if err != nil {
		return c.Fail("%v", err)
	}
	ctx, cancel := c.Context()
	defer cancel()

	entries, err := md.NewService(client).Find(ctx, projectID, f.Arg(0))
	if err != nil {
		return c.Fail("error querying metadata: %v", err)
	}
	matched := make([]md.Entry, 0, len(entries))
	for _, e := range entries {
		if strings.Contains(e.Title, c.flagTitle) {
			matched = append(matched, e)
		}
	}
	if err := c.Output(matched); err != nil {
		return c.Fail("%v", err)
	}
	return 0
}

type UsedByCommand struct {
	*base.Command

	flagNearest bool
	flagTypes   string
}

func (c *UsedByCommand) Synopsis() string {
	return "List the objects using a metadata object"
}

func (c *UsedByCommand) Help() string {
	return `Usage: gdc md used-by [options] <uri>...` + c.Flags().Help()
}

func (c *UsedByCommand) Flags() *base.FlagSet {
	f := c.NewFlagSet("md used-by")
	f.BoolVar(&c.flagNearest, "nearest", false, "Only list direct dependents.")
	f.StringVar(&c.flagTypes, "types", "", "Comma separated categories to list, for example \"report,metric\".")
	return f
}

func (c *UsedByCommand) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		return c.Fail("error parsing flags: %v", err)
	}
	if f.NArg() == 0 {
		c.UI.Error("expected at least one object URI")
		return 1
	}
	projectID, err := c.ProjectID()
	if err != nil {
		return c.Fail("%v", err)
	}
	client, err := c.Client()
	if err != nil {
		return c.Fail("%v", err)
	}
	ctx, cancel := c.Context()
	defer cancel()

	var types []string
	if c.flagTypes != "" {
		types = strings.Split(c.flagTypes, ",")
	}
	usages, err := md.NewService(client).UsedBy(ctx, projectID, f.Args(), c.flagNearest, types...)
	if err != nil {
		return c.Fail("error querying usages: %v", err)
	}
	if err := c.Output(usages); err != nil {
		return c.Fail("%v", err)
	}
	return 0
}
