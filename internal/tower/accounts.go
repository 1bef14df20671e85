package tower

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	sctypes "github.com/aws/aws-sdk-go-v2/service/servicecatalog/types"

	"github.com/wolfeidau/towerctl/internal/console"
)

// AccountPages is a lazy stream of managed accounts. Each page is fetched
// on demand; each yielded account resolves its extended tiers only when
// asked.
type AccountPages struct {
	tower *ControlTower
	pages *console.Pages[accountData]
}

func (p *AccountPages) Next(ctx context.Context) bool { return p.pages.Next(ctx) }
func (p *AccountPages) Err() error                    { return p.pages.Err() }

func (p *AccountPages) Current() *Account {
	return newAccount(p.tower, p.pages.Current())
}

// Accounts enumerates the accounts under the control plane. Gated.
func (t *ControlTower) Accounts(ctx context.Context) (*AccountPages, error) {
	if err := t.gate(ctx); err != nil {
		return nil, err
	}
	return t.accounts(), nil
}

func (t *ControlTower) accounts() *AccountPages {
	return &AccountPages{
		tower: t,
		pages: paginate[accountData](t, "listManagedAccounts", map[string]any{}, "ManagedAccountList"),
	}
}

// accountBy returns the first account matching the predicate, or nil on a
// clean miss.
func (t *ControlTower) accountBy(ctx context.Context, match func(*Account) bool) (*Account, error) {
	if err := t.gate(ctx); err != nil {
		return nil, err
	}
	pages := t.accounts()
	for pages.Next(ctx) {
		if account := pages.Current(); match(account) {
			return account, nil
		}
	}
	return nil, pages.Err()
}

// AccountByName retrieves an account by name; nil when absent.
func (t *ControlTower) AccountByName(ctx context.Context, name string) (*Account, error) {
	return t.accountBy(ctx, func(a *Account) bool { return a.Name() == name })
}

// AccountByID retrieves an account by id; nil when absent.
func (t *ControlTower) AccountByID(ctx context.Context, id string) (*Account, error) {
	return t.accountBy(ctx, func(a *Account) bool { return a.ID() == id })
}

// AccountByArn retrieves an account by ARN; nil when absent.
func (t *ControlTower) AccountByArn(ctx context.Context, arn string) (*Account, error) {
	return t.accountBy(ctx, func(a *Account) bool { return a.Arn() == arn })
}

// accountsWithCatalogStatus materializes the accounts whose catalog record
// carries the given status. One catalog round trip per account.
func (t *ControlTower) accountsWithCatalogStatus(ctx context.Context, status string) ([]*Account, error) {
	if err := t.gate(ctx); err != nil {
		return nil, err
	}
	var matched []*Account
	pages := t.accounts()
	for pages.Next(ctx) {
		account := pages.Current()
		catalogStatus, err := account.ServiceCatalogStatus(ctx)
		if err != nil {
			return nil, err
		}
		if catalogStatus == status {
			matched = append(matched, account)
		}
	}
	return matched, pages.Err()
}

// AvailableAccounts returns the accounts whose catalog record is AVAILABLE.
func (t *ControlTower) AvailableAccounts(ctx context.Context) ([]*Account, error) {
	return t.accountsWithCatalogStatus(ctx, string(sctypes.ProvisionedProductStatusAvailable))
}

// ErroringAccounts returns the accounts whose catalog record is ERROR.
func (t *ControlTower) ErroringAccounts(ctx context.Context) ([]*Account, error) {
	return t.accountsWithCatalogStatus(ctx, string(sctypes.ProvisionedProductStatusError))
}

// ChangingAccounts returns the accounts currently under change, identified
// from the catalog side so mid-creation accounts are included.
func (t *ControlTower) ChangingAccounts(ctx context.Context) ([]*Account, error) {
	// Busy does not block here: listing the accounts under change is most
	// useful while the control plane is mid-operation.
	if err := t.gate(ctx); err != nil && !errors.Is(err, ErrBusy) {
		return nil, err
	}
	products, err := t.catalogAccounts(ctx)
	if err != nil {
		return nil, err
	}
	var changing []*Account
	for _, product := range products {
		if product.Status == sctypes.ProvisionedProductStatusUnderChange {
			changing = append(changing, newAccount(t, accountData{AccountID: aws.ToString(product.PhysicalId)}))
		}
	}
	return changing, nil
}

// AccountsWithAvailableUpdates returns the accounts behind the landing zone
// version.
func (t *ControlTower) AccountsWithAvailableUpdates(ctx context.Context) ([]*Account, error) {
	return t.accountsByUpdate(ctx, true)
}

// UpdatedAccounts returns the accounts at the landing zone version.
func (t *ControlTower) UpdatedAccounts(ctx context.Context) ([]*Account, error) {
	return t.accountsByUpdate(ctx, false)
}

func (t *ControlTower) accountsByUpdate(ctx context.Context, pending bool) ([]*Account, error) {
	if err := t.gate(ctx); err != nil {
		return nil, err
	}
	var matched []*Account
	pages := t.accounts()
	for pages.Next(ctx) {
		account := pages.Current()
		hasUpdate, err := account.HasAvailableUpdate(ctx)
		if err != nil {
			return nil, err
		}
		if hasUpdate == pending {
			matched = append(matched, account)
		}
	}
	return matched, pages.Err()
}
