package project

import (
	"fmt"
	"strings"

	"github.com/mitchellh/cli"
	"github.com/pkg/browser"

	"github.com/hashicorp-forge/gdc/internal/cmd/base"
	"github.com/hashicorp-forge/gdc/pkg/project"
)

type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Manage projects"
}

func (c *Command) Help() string {
	return `Usage: gdc project <subcommand> [options] [args]

  This command groups subcommands for projects (workspaces).`
}

func (c *Command) Run(args []string) int {
	return cli.RunResultHelp
}

type ListCommand struct {
	*base.Command
}

func (c *ListCommand) Synopsis() string {
	return "List the projects of the current user"
}

func (c *ListCommand) Help() string {
	return `Usage: gdc project list [options]` + c.Flags().Help()
}

func (c *ListCommand) Flags() *base.FlagSet {
	return c.NewFlagSet("project list")
}

func (c *ListCommand) Run(args []string) int {
	if err := c.Flags().Parse(args); err != nil {
		return c.Fail("error parsing flags: %v", err)
	}
	client, err := c.Client()
	if err != nil {
		return c.Fail("%v", err)
	}
	ctx, cancel := c.Context()
	defer cancel()

	projects, err := project.NewService(client).ListAllProjects(ctx)
	if err != nil {
		return c.Fail("error listing projects: %v", err)
	}

	type row struct {
		ID    string        `json:"id"`
		Title string        `json:"title"`
		State project.State `json:"state"`
	}
	rows := make([]row, 0, len(projects))
	for i := range projects {
		p := &projects[i]
		rows = append(rows, row{ID: p.ID(), Title: p.Title(), State: p.State()})
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
	return "Show a project"
}

func (c *GetCommand) Help() string {
	return `Usage: gdc project get [options]

  Shows the project selected with -project.` + c.Flags().Help()
}

func (c *GetCommand) Flags() *base.FlagSet {
	return c.NewFlagSet("project get")
}

func (c *GetCommand) Run(args []string) int {
	if err := c.Flags().Parse(args); err != nil {
		return c.Fail("error parsing flags: %v", err)
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

	p, err := project.NewService(client).GetProjectByID(ctx, projectID)
	if err != nil {
		return c.Fail("error getting project: %v", err)
	}
	if err := c.Output(p); err != nil {
		return c.Fail("%v", err)
	}
	return 0
}

type ValidateCommand struct {
	*base.Command

	flagTypes string
}

func (c *ValidateCommand) Synopsis() string {
	return "Validate a project"
}

func (c *ValidateCommand) Help() string {
	return `Usage: gdc project validate [options]

  Runs the project validations and prints their findings. Exits with 2 when
  errors were found.` + c.Flags().Help()
}

func (c *ValidateCommand) Flags() *base.FlagSet {
	f := c.NewFlagSet("project validate")
	f.StringVar(&c.flagTypes, "types", "",
		"Comma separated validations to run, for example \"pdm,ldm\". Default: all available.")
	return f
}

func (c *ValidateCommand) Run(args []string) int {
	if err := c.Flags().Parse(args); err != nil {
		return c.Fail("error parsing flags: %v", err)
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

	svc := project.NewService(client)
	p, err := svc.GetProjectByID(ctx, projectID)
	if err != nil {
		return c.Fail("error getting project: %v", err)
	}

	var types []project.ValidationType
	for _, t := range strings.Split(c.flagTypes, ",") {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, project.ValidationType(t))
		}
	}

	future, err := svc.ValidateProject(ctx, p, types...)
	if err != nil {
		return c.Fail("error starting validation: %v", err)
	}
	c.Log.Info("waiting for validation", "poll", future.PollingURI())
	results, err := future.Get(ctx)
	if err != nil {
		return c.Fail("error validating project: %v", err)
	}

	for _, item := range results.Items {
		c.UI.Output(fmt.Sprintf("[%s] %s: %s", item.Level, item.Validation, item.Text()))
	}
	c.UI.Info(fmt.Sprintf("%d errors, %d warnings", results.ErrorCount(), results.WarningCount()))
	if results.HasErrors() {
		return 2
	}
	return 0
}

type UsersCommand struct {
	*base.Command
}

func (c *UsersCommand) Synopsis() string {
	return "List the users of a project"
}

func (c *UsersCommand) Help() string {
	return `Usage: gdc project users [options]` + c.Flags().Help()
}

func (c *UsersCommand) Flags() *base.FlagSet {
	return c.NewFlagSet("project users")
}

func (c *UsersCommand) Run(args []string) int {
	if err := c.Flags().Parse(args); err != nil {
		return c.Fail("error parsing flags: %v", err)
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

	svc := project.NewService(client)
	p, err := svc.GetProjectByID(ctx, projectID)
	if err != nil {
		return c.Fail("error getting project: %v", err)
	}
	users, err := svc.ListAllUsers(ctx, p)
	if err != nil {
		return c.Fail("error listing users: %v", err)
	}
	if err := c.Output(users); err != nil {
		return c.Fail("%v", err)
	}
	return 0
}

type OpenCommand struct {
	*base.Command
}

func (c *OpenCommand) Synopsis() string {
	return "Open a project in the browser"
}

func (c *OpenCommand) Help() string {
	return `Usage: gdc project open [options]` + c.Flags().Help()
}

func (c *OpenCommand) Flags() *base.FlagSet {
	return c.NewFlagSet("project open")
}

func (c *OpenCommand) Run(args []string) int {
	if err := c.Flags().Parse(args); err != nil {
		return c.Fail("error parsing flags: %v", err)
	}
	projectID, err := c.ProjectID()
	if err != nil {
		return c.Fail("%v", err)
	}
	client, err := c.Client()
	if err != nil {
		return c.Fail("%v", err)
	}

	url := DashboardURL(client.Endpoint(), projectID)
	c.UI.Info("Opening " + url)
	if err := browser.OpenURL(url); err != nil {
		return c.Fail("error opening browser: %v", err)
	}
	return 0
}

// DashboardURL returns the web UI address of project projectID.
func DashboardURL(endpoint, projectID string) string {
	return strings.TrimRight(endpoint, "/") + "/#s=/gdc/projects/" + projectID
}

type RolesCommand struct {
	*base.Command
}

func (c *RolesCommand) Synopsis() string {
	return "List the roles of a project"
}

func (c *RolesCommand) Help() string {
	return `Usage: gdc project roles [options]` + c.Flags().Help()
}

func (c *RolesCommand) Flags() *base.FlagSet {
	return c.NewFlagSet("project roles")
}

func (c *RolesCommand) Run(args []string) int {
	if err := c.Flags().Parse(args); err != nil {
		return c.Fail("error parsing flags: %v", err)
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

	svc := project.NewService(client)
	p, err := svc.GetProjectByID(ctx, projectID)
	if err != nil {
		return c.Fail("error getting project: %v", err)
	}
	roles, err := svc.GetRoles(ctx, p)
	if err != nil {
		return c.Fail("error listing roles: %v", err)
	}

	type row struct {
		Identifier string `json:"identifier"`
		Title      string `json:"title"`
		URI        string `json:"uri"`
	}
	rows := make([]row, 0, len(roles))
	for _, r := range roles {
		rows = append(rows, row{Identifier: r.Identifier(), Title: r.Meta.Title, URI: r.URI})
	}
	if err := c.Output(rows); err != nil {
		return c.Fail("%v", err)
	}
	return 0
}
