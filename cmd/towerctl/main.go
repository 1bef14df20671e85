package main

import (
	"context"

	"github.com/alecthomas/kong"

	"github.com/wolfeidau/towerctl/cmd/towerctl/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Accounts   commands.AccountsCmd   `cmd:"" help:"Manage accounts"`
		Ous        commands.OUsCmd        `cmd:"" name:"ous" help:"Manage organizational units"`
		Policies   commands.PoliciesCmd   `cmd:"" help:"List service control policies"`
		Guardrails commands.GuardrailsCmd `cmd:"" help:"Inspect guardrails"`
		Status     commands.StatusCmd     `cmd:"" help:"Show landing zone status"`
		Config     string                 `help:"Path to a towerctl config file." type:"path"`
		Debug      bool                   `help:"Enable debug mode."`
		Version    kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, ConfigPath: cli.Config, Version: version})
	cmd.FatalIfErrorf(err)
}
