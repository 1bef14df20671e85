package commands

import (
	"context"
	"fmt"
)

type OUsCmd struct {
	List     OUsListCmd    `cmd:"" help:"List organizational units"`
	Create   OUCreateCmd   `cmd:"" help:"Create and register an organizational unit"`
	Register OURegisterCmd `cmd:"" help:"Register an existing Organizations OU"`
	Delete   OUDeleteCmd   `cmd:"" help:"Deregister and delete an organizational unit"`
}

type OUsListCmd struct {
	Directory bool `help:"List the native Organizations OUs instead of the managed ones." default:"false"`
}

func (c *OUsListCmd) Run(ctx context.Context, globals *Globals) error {
	t, err := buildTower(ctx, globals)
	if err != nil {
		return err
	}
	if c.Directory {
		ous, err := t.OrganizationsOUs(ctx)
		if err != nil {
			return err
		}
		for _, ou := range ous {
			fmt.Printf("%s\t%s\n", ou.ID, ou.Name)
		}
		return nil
	}
	pages, err := t.OrganizationalUnits(ctx)
	if err != nil {
		return err
	}
	for pages.Next(ctx) {
		ou := pages.Current()
		fmt.Printf("%s\t%s\t%s\n", ou.ID(), ou.Name(), ou.Type())
	}
	return pages.Err()
}

type OUCreateCmd struct {
	Name string `arg:"" help:"OU name."`
}

func (c *OUCreateCmd) Run(ctx context.Context, globals *Globals) error {
	t, err := buildTower(ctx, globals)
	if err != nil {
		return err
	}
	return t.CreateOrganizationalUnit(ctx, c.Name)
}

type OURegisterCmd struct {
	Name string `arg:"" help:"OU name."`
}

func (c *OURegisterCmd) Run(ctx context.Context, globals *Globals) error {
	t, err := buildTower(ctx, globals)
	if err != nil {
		return err
	}
	return t.RegisterOrganizationsOU(ctx, c.Name)
}

type OUDeleteCmd struct {
	Name string `arg:"" help:"OU name."`
}

func (c *OUDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	t, err := buildTower(ctx, globals)
	if err != nil {
		return err
	}
	return t.DeleteOrganizationalUnit(ctx, c.Name)
}
