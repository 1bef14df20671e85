package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/towerctl/internal/tower"
)

type AccountsCmd struct {
	List         AccountsListCmd  `cmd:"" help:"List managed accounts"`
	Show         AccountShowCmd   `cmd:"" help:"Show one account with its catalog and workflow data"`
	Create       AccountCreateCmd `cmd:"" help:"Provision a managed account"`
	Update       AccountUpdateCmd `cmd:"" help:"Update an account to the current landing zone version"`
	Decommission AccountDeleteCmd `cmd:"" help:"Decommission a managed account"`
}

type AccountsListCmd struct {
	Changing bool `help:"Only accounts currently under change." default:"false"`
}

func (c *AccountsListCmd) Run(ctx context.Context, globals *Globals) error {
	t, err := buildTower(ctx, globals)
	if err != nil {
		return err
	}
	if c.Changing {
		accounts, err := t.ChangingAccounts(ctx)
		if err != nil {
			return err
		}
		for _, account := range accounts {
			fmt.Printf("%s\tUNDER_CHANGE\n", account.ID())
		}
		return nil
	}
	pages, err := t.Accounts(ctx)
	if err != nil {
		return err
	}
	for pages.Next(ctx) {
		account := pages.Current()
		fmt.Printf("%s\t%s\t%s\t%s\n", account.ID(), account.Name(), account.Email(), account.Status())
	}
	return pages.Err()
}

type AccountShowCmd struct {
	ID string `arg:"" help:"Account id."`
}

func (c *AccountShowCmd) Run(ctx context.Context, globals *Globals) error {
	t, err := buildTower(ctx, globals)
	if err != nil {
		return err
	}
	account, err := t.AccountByID(ctx, c.ID)
	if err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("no account with id %s", c.ID)
	}
	catalogStatus, err := account.ServiceCatalogStatus(ctx)
	if err != nil {
		return err
	}
	portal, err := account.SSOUserPortal(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("id:\t%s\nname:\t%s\nemail:\t%s\nstate:\t%s\nstatus:\t%s\ncatalog:\t%s\nportal:\t%s\n",
		account.ID(), account.Name(), account.Email(), account.ProvisionState(), account.Status(), catalogStatus, portal)
	return nil
}

type AccountCreateCmd struct {
	Name  string `arg:"" help:"Account name."`
	Email string `arg:"" help:"Account email."`
	OU    string `arg:"" help:"Target organizational unit."`

	SSOFirstName string `help:"SSO user first name." default:""`
	SSOLastName  string `help:"SSO user last name." default:""`
	SSOEmail     string `help:"SSO user email." default:""`
}

func (c *AccountCreateCmd) Run(ctx context.Context, globals *Globals) error {
	t, err := buildTower(ctx, globals)
	if err != nil {
		return err
	}
	return t.CreateAccount(ctx, tower.CreateAccountInput{
		AccountName:        c.Name,
		AccountEmail:       c.Email,
		OrganizationalUnit: c.OU,
		SSOFirstName:       c.SSOFirstName,
		SSOLastName:        c.SSOLastName,
		SSOUserEmail:       c.SSOEmail,
	})
}

type AccountUpdateCmd struct {
	ID string `arg:"" help:"Account id."`
}

func (c *AccountUpdateCmd) Run(ctx context.Context, globals *Globals) error {
	t, err := buildTower(ctx, globals)
	if err != nil {
		return err
	}
	account, err := t.AccountByID(ctx, c.ID)
	if err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("no account with id %s", c.ID)
	}
	return account.Update(ctx)
}

type AccountDeleteCmd struct {
	ID string `arg:"" help:"Account id."`
}

func (c *AccountDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	t, err := buildTower(ctx, globals)
	if err != nil {
		return err
	}
	account, err := t.AccountByID(ctx, c.ID)
	if err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("no account with id %s", c.ID)
	}
	result, err := account.Decommission(ctx)
	fmt.Printf("terminated:\t%v\nmoved:\t%v\nsuspended policy:\t%v\nfull access detached:\t%v\n",
		result.Terminated, result.Moved, result.SuspendedPolicyAttached, result.FullAccessDetached)
	return err
}
