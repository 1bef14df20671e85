// Package tower models the Control Tower control plane by composing Service
// Catalog, Organizations, and the internal console API. All operations are
// synchronous and caller-driven; the only wait behaviour is the explicit
// busy poll during decommissioning.
package tower

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/servicecatalog"
	sctypes "github.com/aws/aws-sdk-go-v2/service/servicecatalog/types"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/towerctl/internal/console"
)

const (
	accountFactoryOwner = "AWS Control Tower"
	controlTowerProduct = "CONTROL_TOWER_ACCOUNT"
	rootOUName          = "Root"
	fullAccessPolicy    = "FullAWSAccess"
)

// CatalogAPI is the slice of the Service Catalog client the control plane
// uses. *servicecatalog.Client satisfies it.
type CatalogAPI interface {
	SearchProducts(ctx context.Context, params *servicecatalog.SearchProductsInput, optFns ...func(*servicecatalog.Options)) (*servicecatalog.SearchProductsOutput, error)
	SearchProvisionedProducts(ctx context.Context, params *servicecatalog.SearchProvisionedProductsInput, optFns ...func(*servicecatalog.Options)) (*servicecatalog.SearchProvisionedProductsOutput, error)
	DescribeRecord(ctx context.Context, params *servicecatalog.DescribeRecordInput, optFns ...func(*servicecatalog.Options)) (*servicecatalog.DescribeRecordOutput, error)
	ListProvisioningArtifacts(ctx context.Context, params *servicecatalog.ListProvisioningArtifactsInput, optFns ...func(*servicecatalog.Options)) (*servicecatalog.ListProvisioningArtifactsOutput, error)
	ProvisionProduct(ctx context.Context, params *servicecatalog.ProvisionProductInput, optFns ...func(*servicecatalog.Options)) (*servicecatalog.ProvisionProductOutput, error)
	UpdateProvisionedProduct(ctx context.Context, params *servicecatalog.UpdateProvisionedProductInput, optFns ...func(*servicecatalog.Options)) (*servicecatalog.UpdateProvisionedProductOutput, error)
	TerminateProvisionedProduct(ctx context.Context, params *servicecatalog.TerminateProvisionedProductInput, optFns ...func(*servicecatalog.Options)) (*servicecatalog.TerminateProvisionedProductOutput, error)
}

// OrganizationsAPI is the slice of the Organizations client the control
// plane uses. *organizations.Client satisfies it.
type OrganizationsAPI interface {
	CreateOrganizationalUnit(ctx context.Context, params *organizations.CreateOrganizationalUnitInput, optFns ...func(*organizations.Options)) (*organizations.CreateOrganizationalUnitOutput, error)
	DeleteOrganizationalUnit(ctx context.Context, params *organizations.DeleteOrganizationalUnitInput, optFns ...func(*organizations.Options)) (*organizations.DeleteOrganizationalUnitOutput, error)
	ListOrganizationalUnitsForParent(ctx context.Context, params *organizations.ListOrganizationalUnitsForParentInput, optFns ...func(*organizations.Options)) (*organizations.ListOrganizationalUnitsForParentOutput, error)
	MoveAccount(ctx context.Context, params *organizations.MoveAccountInput, optFns ...func(*organizations.Options)) (*organizations.MoveAccountOutput, error)
	ListPolicies(ctx context.Context, params *organizations.ListPoliciesInput, optFns ...func(*organizations.Options)) (*organizations.ListPoliciesOutput, error)
	AttachPolicy(ctx context.Context, params *organizations.AttachPolicyInput, optFns ...func(*organizations.Options)) (*organizations.AttachPolicyOutput, error)
	DetachPolicy(ctx context.Context, params *organizations.DetachPolicyInput, optFns ...func(*organizations.Options)) (*organizations.DetachPolicyOutput, error)
}

// Config holds the control plane tunables. The zero value of every field is
// replaced by the documented default.
type Config struct {
	// SettlingTime is how long to wait after registering an OU for the
	// guardrails to propagate.
	SettlingTime time.Duration

	// SuspendedOUName is the OU accounts are parked in when decommissioned.
	SuspendedOUName string

	// StatusCacheTTL bounds how stale the landing-zone status snapshot used
	// by the busy predicate may be. Zero re-polls on every check.
	StatusCacheTTL time.Duration

	// BusyPollInterval is the recheck interval of the decommission wait.
	BusyPollInterval time.Duration

	// OUCreateMaxTries bounds the creation-race retry.
	OUCreateMaxTries int

	// OUCreateRetryWindow spreads the retries; attempts are issued no more
	// than once per window/OUCreateMaxTries.
	OUCreateRetryWindow time.Duration
}

func (c Config) withDefaults() Config {
	if c.SettlingTime == 0 {
		c.SettlingTime = 60 * time.Second
	}
	if c.SuspendedOUName == "" {
		c.SuspendedOUName = "Suspended"
	}
	if c.BusyPollInterval == 0 {
		c.BusyPollInterval = 10 * time.Second
	}
	if c.OUCreateMaxTries == 0 {
		c.OUCreateMaxTries = 7
	}
	if c.OUCreateRetryWindow == 0 {
		c.OUCreateRetryWindow = 60 * time.Second
	}
	return c
}

// AccountFactory is the Service Catalog product accounts are provisioned
// from.
type AccountFactory struct {
	ID               string
	Name             string
	Owner            string
	ProductID        string
	ShortDescription string
	Type             string
	HasDefaultPath   bool
}

// ControlTower composes the three backing services. It is not safe for
// concurrent use: the availability gate is a guard, not a lock, and the
// control plane itself is the only serialization point.
type ControlTower struct {
	catalog CatalogAPI
	orgs    OrganizationsAPI
	console *console.Client
	cfg     Config

	factory AccountFactory

	// Caches. deployed holds for the instance lifetime; status honours
	// cfg.StatusCacheTTL; rootOU and updates hold until first use only.
	deployed      *bool
	status        *LandingZoneStatus
	statusFetched time.Time
	rootOU        *ControlTowerOU
	updates       *AvailableUpdates
}

// New builds a ControlTower from pre-built service clients. It resolves the
// account factory product immediately; a delegated role that cannot see it
// fails here with ErrNoCatalogAccess.
func New(ctx context.Context, catalog CatalogAPI, orgs OrganizationsAPI, consoleClient *console.Client, cfg Config) (*ControlTower, error) {
	t := &ControlTower{
		catalog: catalog,
		orgs:    orgs,
		console: consoleClient,
		cfg:     cfg.withDefaults(),
	}
	factory, err := t.findAccountFactory(ctx)
	if err != nil {
		return nil, err
	}
	t.factory = factory
	log.Debug().Str("product_id", factory.ProductID).Msg("resolved account factory")
	return t, nil
}

// AccountFactory returns the resolved account factory product.
func (t *ControlTower) AccountFactory() AccountFactory {
	return t.factory
}

func (t *ControlTower) findAccountFactory(ctx context.Context) (AccountFactory, error) {
	out, err := t.catalog.SearchProducts(ctx, &servicecatalog.SearchProductsInput{
		Filters: map[string][]string{"Owner": {accountFactoryOwner}},
	})
	if err != nil {
		return AccountFactory{}, fmt.Errorf("search account factory product: %w", err)
	}
	if len(out.ProductViewSummaries) == 0 {
		return AccountFactory{}, fmt.Errorf("%w: grant the role access to the %q portfolio", ErrNoCatalogAccess, accountFactoryOwner)
	}
	summary := out.ProductViewSummaries[0]
	return AccountFactory{
		ID:               aws.ToString(summary.Id),
		Name:             aws.ToString(summary.Name),
		Owner:            aws.ToString(summary.Owner),
		ProductID:        aws.ToString(summary.ProductId),
		ShortDescription: aws.ToString(summary.ShortDescription),
		Type:             string(summary.Type),
		HasDefaultPath:   summary.HasDefaultPath,
	}, nil
}

// activeArtifact finds the currently active provisioning artifact of the
// account factory product.
func (t *ControlTower) activeArtifact(ctx context.Context) (sctypes.ProvisioningArtifactDetail, error) {
	out, err := t.catalog.ListProvisioningArtifacts(ctx, &servicecatalog.ListProvisioningArtifactsInput{
		ProductId: aws.String(t.factory.ProductID),
	})
	if err != nil {
		return sctypes.ProvisioningArtifactDetail{}, fmt.Errorf("list provisioning artifacts: %w", err)
	}
	for _, artifact := range out.ProvisioningArtifactDetails {
		if aws.ToBool(artifact.Active) {
			return artifact, nil
		}
	}
	return sctypes.ProvisioningArtifactDetail{}, errors.New("no active provisioning artifact for the account factory")
}

// catalogAccounts returns the raw provisioned products of account type.
func (t *ControlTower) catalogAccounts(ctx context.Context) ([]sctypes.ProvisionedProductAttribute, error) {
	out, err := t.catalog.SearchProvisionedProducts(ctx, &servicecatalog.SearchProvisionedProductsInput{})
	if err != nil {
		return nil, fmt.Errorf("search provisioned products: %w", err)
	}
	var products []sctypes.ProvisionedProductAttribute
	for _, product := range out.ProvisionedProducts {
		if aws.ToString(product.Type) == controlTowerProduct {
			products = append(products, product)
		}
	}
	return products, nil
}
