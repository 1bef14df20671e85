package tower

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	orgtypes "github.com/aws/aws-sdk-go-v2/service/organizations/types"
	"github.com/aws/aws-sdk-go-v2/service/servicecatalog"
	sctypes "github.com/aws/aws-sdk-go-v2/service/servicecatalog/types"
	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/towerctl/internal/console"
)

// callLog records every backing-service call in order so tests can assert
// call ordering and counts.
type callLog struct {
	names []string
}

func (l *callLog) add(name string) {
	l.names = append(l.names, name)
}

func (l *callLog) count(name string) int {
	n := 0
	for _, entry := range l.names {
		if entry == name {
			n++
		}
	}
	return n
}

func (l *callLog) reset() {
	l.names = nil
}

// filtered returns the log entries matching any of the given names, in
// order.
func (l *callLog) filtered(names ...string) []string {
	keep := map[string]struct{}{}
	for _, name := range names {
		keep[name] = struct{}{}
	}
	var out []string
	for _, entry := range l.names {
		if _, ok := keep[entry]; ok {
			out = append(out, entry)
		}
	}
	return out
}

// indexOf returns the position of the nth occurrence of name, or -1.
func (l *callLog) indexOf(name string, nth int) int {
	seen := 0
	for i, entry := range l.names {
		if entry == name {
			seen++
			if seen > nth {
				return i
			}
		}
	}
	return -1
}

func jsonHandler(v any) func(console.Payload) (console.Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return func(console.Payload) (console.Response, error) {
		return console.Response{StatusCode: 200, Body: body}, nil
	}
}

// fakeDoer routes console calls to per-target handlers.
type fakeDoer struct {
	log      *callLog
	handlers map[string]func(console.Payload) (console.Response, error)
}

func (d *fakeDoer) Do(_ context.Context, payload console.Payload) (console.Response, error) {
	d.log.add("console:" + payload.Operation)
	if handler, ok := d.handlers[payload.Operation]; ok {
		return handler(payload)
	}
	return console.Response{StatusCode: 200, Body: []byte(`{}`)}, nil
}

// fakeCatalog is a scriptable CatalogAPI. Unset hooks fall back to benign
// defaults.
type fakeCatalog struct {
	log *callLog

	searchProducts    func(*servicecatalog.SearchProductsInput) (*servicecatalog.SearchProductsOutput, error)
	searchProvisioned func(*servicecatalog.SearchProvisionedProductsInput) (*servicecatalog.SearchProvisionedProductsOutput, error)
	describeRecord    func(*servicecatalog.DescribeRecordInput) (*servicecatalog.DescribeRecordOutput, error)
	listArtifacts     func(*servicecatalog.ListProvisioningArtifactsInput) (*servicecatalog.ListProvisioningArtifactsOutput, error)
	provision         func(*servicecatalog.ProvisionProductInput) (*servicecatalog.ProvisionProductOutput, error)
	updateProvisioned func(*servicecatalog.UpdateProvisionedProductInput) (*servicecatalog.UpdateProvisionedProductOutput, error)
	terminate         func(*servicecatalog.TerminateProvisionedProductInput) (*servicecatalog.TerminateProvisionedProductOutput, error)
}

func (c *fakeCatalog) SearchProducts(_ context.Context, params *servicecatalog.SearchProductsInput, _ ...func(*servicecatalog.Options)) (*servicecatalog.SearchProductsOutput, error) {
	c.log.add("catalog:SearchProducts")
	if c.searchProducts != nil {
		return c.searchProducts(params)
	}
	return &servicecatalog.SearchProductsOutput{
		ProductViewSummaries: []sctypes.ProductViewSummary{{
			Id:        aws.String("prodview-1"),
			ProductId: aws.String("prod-factory"),
			Name:      aws.String("AWS Control Tower Account Factory"),
			Owner:     aws.String(accountFactoryOwner),
		}},
	}, nil
}

func (c *fakeCatalog) SearchProvisionedProducts(_ context.Context, params *servicecatalog.SearchProvisionedProductsInput, _ ...func(*servicecatalog.Options)) (*servicecatalog.SearchProvisionedProductsOutput, error) {
	if params.Filters != nil {
		c.log.add("catalog:SearchProvisionedProducts:query")
	} else {
		c.log.add("catalog:SearchProvisionedProducts")
	}
	if c.searchProvisioned != nil {
		return c.searchProvisioned(params)
	}
	return &servicecatalog.SearchProvisionedProductsOutput{}, nil
}

func (c *fakeCatalog) DescribeRecord(_ context.Context, params *servicecatalog.DescribeRecordInput, _ ...func(*servicecatalog.Options)) (*servicecatalog.DescribeRecordOutput, error) {
	c.log.add("catalog:DescribeRecord")
	if c.describeRecord != nil {
		return c.describeRecord(params)
	}
	return &servicecatalog.DescribeRecordOutput{}, nil
}

func (c *fakeCatalog) ListProvisioningArtifacts(_ context.Context, params *servicecatalog.ListProvisioningArtifactsInput, _ ...func(*servicecatalog.Options)) (*servicecatalog.ListProvisioningArtifactsOutput, error) {
	c.log.add("catalog:ListProvisioningArtifacts")
	if c.listArtifacts != nil {
		return c.listArtifacts(params)
	}
	return &servicecatalog.ListProvisioningArtifactsOutput{
		ProvisioningArtifactDetails: []sctypes.ProvisioningArtifactDetail{
			{Id: aws.String("pa-old"), Active: aws.Bool(false)},
			{Id: aws.String("pa-current"), Active: aws.Bool(true)},
		},
	}, nil
}

func (c *fakeCatalog) ProvisionProduct(_ context.Context, params *servicecatalog.ProvisionProductInput, _ ...func(*servicecatalog.Options)) (*servicecatalog.ProvisionProductOutput, error) {
	c.log.add("catalog:ProvisionProduct")
	if c.provision != nil {
		return c.provision(params)
	}
	return &servicecatalog.ProvisionProductOutput{}, nil
}

func (c *fakeCatalog) UpdateProvisionedProduct(_ context.Context, params *servicecatalog.UpdateProvisionedProductInput, _ ...func(*servicecatalog.Options)) (*servicecatalog.UpdateProvisionedProductOutput, error) {
	c.log.add("catalog:UpdateProvisionedProduct")
	if c.updateProvisioned != nil {
		return c.updateProvisioned(params)
	}
	return &servicecatalog.UpdateProvisionedProductOutput{}, nil
}

func (c *fakeCatalog) TerminateProvisionedProduct(_ context.Context, params *servicecatalog.TerminateProvisionedProductInput, _ ...func(*servicecatalog.Options)) (*servicecatalog.TerminateProvisionedProductOutput, error) {
	c.log.add("catalog:TerminateProvisionedProduct")
	if c.terminate != nil {
		return c.terminate(params)
	}
	return &servicecatalog.TerminateProvisionedProductOutput{}, nil
}

// fakeOrgs is a scriptable OrganizationsAPI recording its inputs.
type fakeOrgs struct {
	log *callLog

	createOU     func(*organizations.CreateOrganizationalUnitInput) (*organizations.CreateOrganizationalUnitOutput, error)
	listPolicies func(*organizations.ListPoliciesInput) (*organizations.ListPoliciesOutput, error)

	moveInputs   []*organizations.MoveAccountInput
	attachInputs []*organizations.AttachPolicyInput
	detachInputs []*organizations.DetachPolicyInput
}

func (o *fakeOrgs) CreateOrganizationalUnit(_ context.Context, params *organizations.CreateOrganizationalUnitInput, _ ...func(*organizations.Options)) (*organizations.CreateOrganizationalUnitOutput, error) {
	o.log.add("orgs:CreateOrganizationalUnit")
	if o.createOU != nil {
		return o.createOU(params)
	}
	return &organizations.CreateOrganizationalUnitOutput{
		OrganizationalUnit: &orgtypes.OrganizationalUnit{
			Id:   aws.String("ou-new"),
			Name: params.Name,
			Arn:  aws.String("arn:aws:organizations::111111111111:ou/o-1/ou-new"),
		},
	}, nil
}

func (o *fakeOrgs) DeleteOrganizationalUnit(_ context.Context, _ *organizations.DeleteOrganizationalUnitInput, _ ...func(*organizations.Options)) (*organizations.DeleteOrganizationalUnitOutput, error) {
	o.log.add("orgs:DeleteOrganizationalUnit")
	return &organizations.DeleteOrganizationalUnitOutput{}, nil
}

func (o *fakeOrgs) ListOrganizationalUnitsForParent(_ context.Context, _ *organizations.ListOrganizationalUnitsForParentInput, _ ...func(*organizations.Options)) (*organizations.ListOrganizationalUnitsForParentOutput, error) {
	o.log.add("orgs:ListOrganizationalUnitsForParent")
	return &organizations.ListOrganizationalUnitsForParentOutput{
		OrganizationalUnits: []orgtypes.OrganizationalUnit{
			{Id: aws.String("ou-unmanaged"), Name: aws.String("Sandbox"), Arn: aws.String("arn:aws:organizations::111111111111:ou/o-1/ou-unmanaged")},
		},
	}, nil
}

func (o *fakeOrgs) MoveAccount(_ context.Context, params *organizations.MoveAccountInput, _ ...func(*organizations.Options)) (*organizations.MoveAccountOutput, error) {
	o.log.add("orgs:MoveAccount")
	o.moveInputs = append(o.moveInputs, params)
	return &organizations.MoveAccountOutput{}, nil
}

func (o *fakeOrgs) ListPolicies(_ context.Context, params *organizations.ListPoliciesInput, _ ...func(*organizations.Options)) (*organizations.ListPoliciesOutput, error) {
	o.log.add("orgs:ListPolicies")
	if o.listPolicies != nil {
		return o.listPolicies(params)
	}
	return &organizations.ListPoliciesOutput{
		Policies: []orgtypes.PolicySummary{
			{Id: aws.String("p-full"), Name: aws.String("FullAWSAccess"), AwsManaged: true, Type: orgtypes.PolicyTypeServiceControlPolicy},
			{Id: aws.String("p-susp"), Name: aws.String("Suspended"), Type: orgtypes.PolicyTypeServiceControlPolicy},
		},
	}, nil
}

func (o *fakeOrgs) AttachPolicy(_ context.Context, params *organizations.AttachPolicyInput, _ ...func(*organizations.Options)) (*organizations.AttachPolicyOutput, error) {
	o.log.add("orgs:AttachPolicy")
	o.attachInputs = append(o.attachInputs, params)
	return &organizations.AttachPolicyOutput{}, nil
}

func (o *fakeOrgs) DetachPolicy(_ context.Context, params *organizations.DetachPolicyInput, _ ...func(*organizations.Options)) (*organizations.DetachPolicyOutput, error) {
	o.log.add("orgs:DetachPolicy")
	o.detachInputs = append(o.detachInputs, params)
	return &organizations.DetachPolicyOutput{}, nil
}

type testEnv struct {
	log     *callLog
	doer    *fakeDoer
	catalog *fakeCatalog
	orgs    *fakeOrgs
	tower   *ControlTower
}

// managedOU builds a listManagedOrganizationalUnits entry.
func managedOU(id, name string) map[string]any {
	return map[string]any{
		"OrganizationalUnitId":   id,
		"OrganizationalUnitName": name,
		"OrganizationalUnitType": "CUSTOM",
	}
}

// managedAccount builds a listManagedAccounts entry.
func managedAccount(id, name, version string) map[string]any {
	return map[string]any{
		"AccountId":                  id,
		"AccountName":                name,
		"AccountEmail":               name + "@example.com",
		"Arn":                        "arn:aws:organizations::111111111111:account/o-1/" + id,
		"Owner":                      "owner@example.com",
		"ProvisionState":             "PROVISIONED",
		"Status":                     "ACTIVE",
		"DeployedLandingZoneVersion": version,
		"ParentOrganizationalUnitId": "ou-work",
	}
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	log := &callLog{}
	doer := &fakeDoer{log: log, handlers: map[string]func(console.Payload) (console.Response, error){}}
	doer.handlers["getLandingZoneStatus"] = jsonHandler(map[string]any{
		"Status": "ACTIVE", "PercentageComplete": 100,
	})
	doer.handlers["getAvailableUpdates"] = jsonHandler(map[string]any{
		"UserLandingZoneVersion":    "3.1",
		"ServiceLandingZoneVersion": "3.1",
	})
	doer.handlers["listManagedOrganizationalUnits"] = jsonHandler(map[string]any{
		"ManagedOrganizationalUnitList": []map[string]any{
			managedOU("ou-root", "Root"),
			managedOU("ou-susp", "Suspended"),
			managedOU("ou-work", "Workloads"),
		},
	})
	doer.handlers["listManagedAccounts"] = jsonHandler(map[string]any{
		"ManagedAccountList": []map[string]any{
			managedAccount("111111111111", "dev", "3.0"),
		},
	})

	catalog := &fakeCatalog{log: log}
	orgs := &fakeOrgs{log: log}

	if cfg.SettlingTime == 0 {
		cfg.SettlingTime = time.Millisecond
	}
	if cfg.BusyPollInterval == 0 {
		cfg.BusyPollInterval = time.Millisecond
	}
	if cfg.OUCreateRetryWindow == 0 {
		cfg.OUCreateRetryWindow = 7 * time.Millisecond
	}

	tw, err := New(context.Background(), catalog, orgs, console.New(doer, "eu-west-1"), cfg)
	require.NoError(t, err)
	log.reset()

	return &testEnv{log: log, doer: doer, catalog: catalog, orgs: orgs, tower: tw}
}

func TestNewWithoutCatalogAccess(t *testing.T) {
	log := &callLog{}
	catalog := &fakeCatalog{
		log: log,
		searchProducts: func(*servicecatalog.SearchProductsInput) (*servicecatalog.SearchProductsOutput, error) {
			return &servicecatalog.SearchProductsOutput{}, nil
		},
	}
	doer := &fakeDoer{log: log, handlers: map[string]func(console.Payload) (console.Response, error){}}

	_, err := New(context.Background(), catalog, &fakeOrgs{log: log}, console.New(doer, "eu-west-1"), Config{})
	require.ErrorIs(t, err, ErrNoCatalogAccess)
}

func TestAccountFactoryResolvedAtConstruction(t *testing.T) {
	env := newTestEnv(t, Config{})
	require.Equal(t, "prod-factory", env.tower.AccountFactory().ProductID)
}

func TestSCPByName(t *testing.T) {
	env := newTestEnv(t, Config{})

	scp, err := env.tower.SCPByName(context.Background(), "FullAWSAccess")
	require.NoError(t, err)
	require.NotNil(t, scp)
	require.Equal(t, "p-full", scp.ID)
	require.True(t, scp.AwsManaged)

	missing, err := env.tower.SCPByName(context.Background(), "NoSuchPolicy")
	require.NoError(t, err)
	require.Nil(t, missing)
}
