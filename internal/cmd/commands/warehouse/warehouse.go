package warehouse

import (
	"github.com/mitchellh/cli"

	"github.com/hashicorp-forge/gdc/internal/cmd/base"
	"github.com/hashicorp-forge/gdc/pkg/warehouse"
)

type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Manage warehouses"
}

func (c *Command) Help() string {
	return `Usage: gdc warehouse <subcommand> [options] [args]

  This command groups subcommands for warehouse instances.`
}

func (c *Command) Run(args []string) int {
	return cli.RunResultHelp
}

// setup parses args and returns a warehouse service and the positional
// arguments.
func setup(c *base.Command, f *base.FlagSet, args []string) (*warehouse.Service, []string, int) {
	if err := f.Parse(args); err != nil {
		return nil, nil, c.Fail("error parsing flags: %v", err)
	}
	client, err := c.Client()
	if err != nil {
		return nil, nil, c.Fail("%v", err)
	}
	return warehouse.NewService(client), f.Args(), 0
}

type ListCommand struct {
	*base.Command
}

func (c *ListCommand) Synopsis() string {
	return "List warehouses"
}

func (c *ListCommand) Help() string {
	return `Usage: gdc warehouse list [options]` + c.Flags().Help()
}

func (c *ListCommand) Flags() *base.FlagSet {
	return c.NewFlagSet("warehouse list")
}

func (c *ListCommand) Run(args []string) int {
	svc, _, code := setup(c.Command, c.Flags(), args)
	if svc == nil {
		return code
	}
	ctx, cancel := c.Context()
	defer cancel()

	warehouses, err := svc.ListAllWarehouses(ctx)
	if err != nil {
		return c.Fail("error listing warehouses: %v", err)
	}

	type row struct {
		ID          string                `json:"id"`
		Title       string                `json:"title"`
		Environment warehouse.Environment `json:"environment,omitempty"`
		Status      string                `json:"status,omitempty"`
	}
	rows := make([]row, 0, len(warehouses))
	for i := range warehouses {
		w := &warehouses[i]
		rows = append(rows, row{ID: w.ID(), Title: w.Title, Environment: w.Environment, Status: w.Status})
	}
	if err := c.Output(rows); err != nil {
		return c.Fail("%v", err)
	}
	return 0
}

type GetCommand struct {
	*base.Command
}

func (c *GetCommand) Synopsis() string {
	return "Show a warehouse with its users and schemas"
}

func (c *GetCommand) Help() string {
	return `Usage: gdc warehouse get [options] <warehouse-id>` + c.Flags().Help()
}

func (c *GetCommand) Flags() *base.FlagSet {
	return c.NewFlagSet("warehouse get")
}

func (c *GetCommand) Run(args []string) int {
	svc, rest, code := setup(c.Command, c.Flags(), args)
	if svc == nil {
		return code
	}
	if len(rest) != 1 {
		c.UI.Error("expected one argument: the warehouse ID")
		return 1
	}
	ctx, cancel := c.Context()
	defer cancel()

	w, err := svc.GetWarehouseByID(ctx, rest[0])
	if err != nil {
		return c.Fail("error getting warehouse: %v", err)
	}
	users, err := svc.ListAllUsers(ctx, w)
	if err != nil {
		return c.Fail("error listing warehouse users: %v", err)
	}
	schemas, err := svc.ListSchemas(ctx, w)
	if err != nil {
		return c.Fail("error listing warehouse schemas: %v", err)
	}

	out := struct {
		Warehouse *warehouse.Warehouse `json:"warehouse"`
		JDBC      string               `json:"jdbc"`
		Users     []warehouse.User     `json:"users"`
		Schemas   []warehouse.Schema   `json:"schemas"`
	}{w, w.JDBCConnectionString(), users, schemas}
	if err := c.Output(out); err != nil {
		return c.Fail("%v", err)
	}
	return 0
}
