package tower

import (
	"context"
	"fmt"
)

// CoreAccountType labels the three accounts making up the control plane's
// own foundation.
type CoreAccountType string

const (
	CoreAccountPrimary  CoreAccountType = "PRIMARY"
	CoreAccountLogging  CoreAccountType = "LOGGING"
	CoreAccountSecurity CoreAccountType = "SECURITY"
)

// CoreAccount is one of the control plane's foundation accounts. Fetched
// per label, never paginated.
type CoreAccount struct {
	Type  CoreAccountType `json:"AccountType"`
	ID    string          `json:"AccountId"`
	Name  string          `json:"AccountName"`
	Email string          `json:"AccountEmail"`
	Arn   string          `json:"Arn"`
}

// CoreAccount fetches the foundation account with the given label.
func (t *ControlTower) CoreAccount(ctx context.Context, label CoreAccountType) (*CoreAccount, error) {
	switch label {
	case CoreAccountPrimary, CoreAccountLogging, CoreAccountSecurity:
	default:
		return nil, fmt.Errorf("unknown core account type %q", label)
	}
	if err := t.gate(ctx); err != nil {
		return nil, err
	}
	var out struct {
		AccountInfo CoreAccount `json:"AccountInfo"`
	}
	if err := t.console.Call(ctx, "getAccountInfo", map[string]any{"AccountType": string(label)}, &out); err != nil {
		return nil, err
	}
	return &out.AccountInfo, nil
}

// CoreAccounts fetches all three foundation accounts.
func (t *ControlTower) CoreAccounts(ctx context.Context) ([]*CoreAccount, error) {
	labels := []CoreAccountType{CoreAccountPrimary, CoreAccountLogging, CoreAccountSecurity}
	accounts := make([]*CoreAccount, 0, len(labels))
	for _, label := range labels {
		account, err := t.CoreAccount(ctx, label)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}
