package cmd

import (
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/hashicorp-forge/gdc/internal/cmd/base"
	"github.com/hashicorp-forge/gdc/internal/cmd/commands/connector"
	"github.com/hashicorp-forge/gdc/internal/cmd/commands/dataset"
	"github.com/hashicorp-forge/gdc/internal/cmd/commands/md"
	"github.com/hashicorp-forge/gdc/internal/cmd/commands/process"
	"github.com/hashicorp-forge/gdc/internal/cmd/commands/project"
	"github.com/hashicorp-forge/gdc/internal/cmd/commands/report"
	"github.com/hashicorp-forge/gdc/internal/cmd/commands/version"
	"github.com/hashicorp-forge/gdc/internal/cmd/commands/warehouse"
)

// commands returns the command factories of the CLI.
func commands(log hclog.Logger, ui cli.Ui) map[string]cli.CommandFactory {
	return commandsWith(base.NewCommand(log, ui))
}

func commandsWith(b *base.Command) map[string]cli.CommandFactory {
	return map[string]cli.CommandFactory{
		"connector": func() (cli.Command, error) {
			return &connector.Command{Command: b}, nil
		},
		"connector execute": func() (cli.Command, error) {
			return &connector.ExecuteCommand{Command: b}, nil
		},
		"connector get": func() (cli.Command, error) {
			return &connector.GetCommand{Command: b}, nil
		},
		"connector reload": func() (cli.Command, error) {
			return &connector.ReloadCommand{Command: b}, nil
		},
		"connector settings": func() (cli.Command, error) {
			return &connector.SettingsCommand{Command: b}, nil
		},
		"dataset": func() (cli.Command, error) {
			return &dataset.Command{Command: b}, nil
		},
		"dataset load": func() (cli.Command, error) {
			return &dataset.LoadCommand{Command: b}, nil
		},
		"dataset manifest": func() (cli.Command, error) {
			return &dataset.ManifestCommand{Command: b}, nil
		},
		"dataset stats": func() (cli.Command, error) {
			return &dataset.StatsCommand{Command: b}, nil
		},
		"dataset uploads": func() (cli.Command, error) {
			return &dataset.UploadsCommand{Command: b}, nil
		},
		"md": func() (cli.Command, error) {
			return &md.Command{Command: b}, nil
		},
		"md find": func() (cli.Command, error) {
			return &md.FindCommand{Command: b}, nil
		},
		"md get": func() (cli.Command, error) {
			return &md.GetCommand{Command: b}, nil
		},
		"md used-by": func() (cli.Command, error) {
			return &md.UsedByCommand{Command: b}, nil
		},
		"process": func() (cli.Command, error) {
			return &process.Command{Command: b}, nil
		},
		"process deploy": func() (cli.Command, error) {
			return &process.DeployCommand{Command: b}, nil
		},
		"process execute": func() (cli.Command, error) {
			return &process.ExecuteCommand{Command: b}, nil
		},
		"process list": func() (cli.Command, error) {
			return &process.ListCommand{Command: b}, nil
		},
		"process schedules": func() (cli.Command, error) {
			return &process.SchedulesCommand{Command: b}, nil
		},
		"project": func() (cli.Command, error) {
			return &project.Command{Command: b}, nil
		},
		"project get": func() (cli.Command, error) {
			return &project.GetCommand{Command: b}, nil
		},
		"project list": func() (cli.Command, error) {
			return &project.ListCommand{Command: b}, nil
		},
		"project open": func() (cli.Command, error) {
			return &project.OpenCommand{Command: b}, nil
		},
		"project roles": func() (cli.Command, error) {
			return &project.RolesCommand{Command: b}, nil
		},
		"project users": func() (cli.Command, error) {
			return &project.UsersCommand{Command: b}, nil
		},
		"project validate": func() (cli.Command, error) {
			return &project.ValidateCommand{Command: b}, nil
		},
		"report": func() (cli.Command, error) {
			return &report.Command{Command: b}, nil
		},
		"report export": func() (cli.Command, error) {
			return &report.ExportCommand{Command: b}, nil
		},
		"version": func() (cli.Command, error) {
			return &version.Command{Command: b}, nil
		},
		"warehouse": func() (cli.Command, error) {
			return &warehouse.Command{Command: b}, nil
		},
		"warehouse get": func() (cli.Command, error) {
			return &warehouse.GetCommand{Command: b}, nil
		},
		"warehouse list": func() (cli.Command, error) {
			return &warehouse.ListCommand{Command: b}, nil
		},
	}
}
