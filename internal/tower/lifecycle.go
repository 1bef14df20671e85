package tower

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/servicecatalog"
	sctypes "github.com/aws/aws-sdk-go-v2/service/servicecatalog/types"
	"github.com/aws/smithy-go"
	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CreateAccountInput names a new managed account. ProductName defaults to
// the account name, SSO first/last name to "Control"/"Tower", and the SSO
// email to the account email.
type CreateAccountInput struct {
	AccountName        string
	AccountEmail       string
	OrganizationalUnit string
	ProductName        string
	SSOFirstName       string
	SSOLastName        string
	SSOUserEmail       string
}

func (in CreateAccountInput) withDefaults() CreateAccountInput {
	if in.ProductName == "" {
		in.ProductName = in.AccountName
	}
	if in.SSOFirstName == "" {
		in.SSOFirstName = "Control"
	}
	if in.SSOLastName == "" {
		in.SSOLastName = "Tower"
	}
	if in.SSOUserEmail == "" {
		in.SSOUserEmail = in.AccountEmail
	}
	return in
}

// CreateAccount provisions a managed account under the given OU, creating
// and registering the OU first when the control plane does not manage it
// yet. The provisioning call is retried, bounded, while the OU's catalog
// package is still materializing; any other failure surfaces immediately.
func (t *ControlTower) CreateAccount(ctx context.Context, in CreateAccountInput) error {
	if err := t.gate(ctx); err != nil {
		return err
	}
	in = in.withDefaults()

	managed, err := t.OUByName(ctx, in.OrganizationalUnit)
	if err != nil {
		return err
	}
	if managed == nil {
		if err := t.CreateOrganizationalUnit(ctx, in.OrganizationalUnit); err != nil {
			return fmt.Errorf("set up organizational unit %q: %w", in.OrganizationalUnit, err)
		}
	}

	interval := t.cfg.OUCreateRetryWindow / time.Duration(t.cfg.OUCreateMaxTries)
	operation := func() (struct{}, error) {
		err := t.provisionAccount(ctx, in)
		if err == nil {
			return struct{}{}, nil
		}
		if errors.Is(err, ErrOUCreating) {
			log.Debug().Str("ou", in.OrganizationalUnit).Msg("OU package still creating, will retry")
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}
	_, err = backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(interval)),
		backoff.WithMaxTries(uint(t.cfg.OUCreateMaxTries)),
	)
	return err
}

// provisionAccount submits the provisioning request for a new account.
func (t *ControlTower) provisionAccount(ctx context.Context, in CreateAccountInput) error {
	artifact, err := t.activeArtifact(ctx)
	if err != nil {
		return err
	}
	params := []sctypes.ProvisioningParameter{
		{Key: aws.String("AccountName"), Value: aws.String(in.AccountName)},
		{Key: aws.String("AccountEmail"), Value: aws.String(in.AccountEmail)},
		{Key: aws.String("SSOUserFirstName"), Value: aws.String(in.SSOFirstName)},
		{Key: aws.String("SSOUserLastName"), Value: aws.String(in.SSOLastName)},
		{Key: aws.String("SSOUserEmail"), Value: aws.String(in.SSOUserEmail)},
		{Key: aws.String("ManagedOrganizationalUnit"), Value: aws.String(in.OrganizationalUnit)},
	}
	_, err = t.catalog.ProvisionProduct(ctx, &servicecatalog.ProvisionProductInput{
		ProductId:              aws.String(t.factory.ProductID),
		ProvisionedProductName: aws.String(in.ProductName),
		ProvisioningArtifactId: artifact.Id,
		ProvisioningParameters: params,
		ProvisionToken:         aws.String(uuid.NewString()),
	})
	if err != nil {
		if isOUCreating(err) {
			return fmt.Errorf("%w: %s", ErrOUCreating, in.OrganizationalUnit)
		}
		return fmt.Errorf("provision account %q: %w", in.AccountName, err)
	}
	log.Info().Str("account", in.AccountName).Str("ou", in.OrganizationalUnit).Msg("account provisioning submitted")
	return nil
}

// isOUCreating matches the documented catalog race: the target OU's package
// has not finished materializing.
func isOUCreating(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return strings.Contains(apiErr.ErrorMessage(), creatingAccountErrorMessage)
	}
	return strings.Contains(err.Error(), creatingAccountErrorMessage)
}

// Update advances the account to the current landing zone artifact version
// by resubmitting the provisioning artifact with every parameter marked
// use-previous-value. A current account is a no-op success.
func (a *Account) Update(ctx context.Context) error {
	hasUpdate, err := a.HasAvailableUpdate(ctx)
	if err != nil {
		return err
	}
	if !hasUpdate {
		return nil
	}
	if err := a.tower.gate(ctx); err != nil {
		return err
	}
	artifact, err := a.tower.activeArtifact(ctx)
	if err != nil {
		return err
	}
	ou, err := a.OrganizationalUnit(ctx)
	if err != nil {
		return err
	}
	if ou == nil {
		return fmt.Errorf("account %s has no managed organizational unit", a.data.AccountID)
	}
	reuse := func(key, value string) sctypes.UpdateProvisioningParameter {
		return sctypes.UpdateProvisioningParameter{
			Key:              aws.String(key),
			Value:            aws.String(value),
			UsePreviousValue: true,
		}
	}
	_, err = a.tower.catalog.UpdateProvisionedProduct(ctx, &servicecatalog.UpdateProvisionedProductInput{
		ProductId:              aws.String(a.tower.factory.ProductID),
		ProvisionedProductName: aws.String(a.data.AccountName),
		ProvisioningArtifactId: artifact.Id,
		ProvisioningParameters: []sctypes.UpdateProvisioningParameter{
			reuse("AccountName", a.data.AccountName),
			reuse("AccountEmail", a.data.AccountEmail),
			reuse("SSOUserFirstName", "Control"),
			reuse("SSOUserLastName", "Tower"),
			reuse("SSOUserEmail", a.data.AccountEmail),
			reuse("ManagedOrganizationalUnit", ou.Name()),
		},
		UpdateToken: aws.String(uuid.NewString()),
	})
	if err != nil {
		return fmt.Errorf("update account %q: %w", a.data.AccountName, err)
	}
	log.Info().Str("account", a.data.AccountName).Msg("account update submitted")
	return nil
}

// DecommissionResult records which decommission steps completed. The policy
// swap has no compensating rollback, so a partial result is reachable and
// the caller needs to see it.
type DecommissionResult struct {
	Terminated              bool
	Moved                   bool
	SuspendedPolicyAttached bool
	FullAccessDetached      bool
}

// Decommission terminates the account's provisioned product, waits for the
// control plane to go idle, parks the account in the suspended OU, and
// swaps its policy attachment. Steps run in that exact order; the returned
// result reports how far it got.
func (a *Account) Decommission(ctx context.Context) (DecommissionResult, error) {
	var result DecommissionResult
	t := a.tower

	if err := t.gate(ctx); err != nil {
		return result, err
	}
	suspended, err := t.OUByName(ctx, t.cfg.SuspendedOUName)
	if err != nil {
		return result, err
	}
	if suspended == nil {
		return result, fmt.Errorf("%w: %s", ErrNoSuspendedOU, t.cfg.SuspendedOUName)
	}

	if err := a.terminate(ctx); err != nil {
		return result, err
	}
	result.Terminated = true

	if err := t.waitUntilIdle(ctx); err != nil {
		return result, err
	}

	root, err := t.RootOU(ctx)
	if err != nil {
		return result, err
	}
	_, err = t.orgs.MoveAccount(ctx, &organizations.MoveAccountInput{
		AccountId:           aws.String(a.data.AccountID),
		SourceParentId:      aws.String(root.ID()),
		DestinationParentId: aws.String(suspended.ID()),
	})
	if err != nil {
		return result, fmt.Errorf("move account %s to %q: %w", a.data.AccountID, t.cfg.SuspendedOUName, err)
	}
	result.Moved = true

	if err := a.AttachServiceControlPolicy(ctx, t.cfg.SuspendedOUName); err != nil {
		return result, err
	}
	result.SuspendedPolicyAttached = true

	if err := a.DetachServiceControlPolicy(ctx, fullAccessPolicy); err != nil {
		return result, err
	}
	result.FullAccessDetached = true

	log.Info().Str("account", a.data.AccountID).Msg("account decommissioned")
	return result, nil
}

// terminate ends the account's provisioned product in the catalog.
func (a *Account) terminate(ctx context.Context) error {
	catalogID, err := a.ServiceCatalogID(ctx)
	if err != nil {
		return err
	}
	if catalogID == "" {
		return fmt.Errorf("account %s has no catalog record to terminate", a.data.AccountID)
	}
	_, err = a.tower.catalog.TerminateProvisionedProduct(ctx, &servicecatalog.TerminateProvisionedProductInput{
		ProvisionedProductId: aws.String(catalogID),
		TerminateToken:       aws.String(uuid.NewString()),
	})
	if err != nil {
		return fmt.Errorf("terminate provisioned product %s: %w", catalogID, err)
	}
	log.Debug().Str("account", a.data.AccountID).Msg("provisioned product termination submitted")
	return nil
}
