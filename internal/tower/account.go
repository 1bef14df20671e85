package tower

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/servicecatalog"
	sctypes "github.com/aws/aws-sdk-go-v2/service/servicecatalog/types"
	"github.com/rs/zerolog/log"
)

// accountData is the core identity tier, as listManagedAccounts returns it.
type accountData struct {
	AccountID                  string `json:"AccountId"`
	AccountName                string `json:"AccountName"`
	AccountEmail               string `json:"AccountEmail"`
	Arn                        string `json:"Arn"`
	Owner                      string `json:"Owner"`
	ProvisionState             string `json:"ProvisionState"`
	Status                     string `json:"Status"`
	DeployedLandingZoneVersion string `json:"DeployedLandingZoneVersion"`
	ParentOrganizationalUnitID string `json:"ParentOrganizationalUnitId"`
}

// Account is a managed account reconstructed from three eventually
// consistent sources. The core identity comes from the enumerating call;
// the catalog record and the workflow record are fetched on first access
// and memoized until Refresh. Any tier may legitimately be empty.
type Account struct {
	tower *ControlTower
	data  accountData

	catalogRecord   sctypes.ProvisionedProductAttribute
	catalogResolved bool

	recordOutputs  map[string]string
	recordResolved bool
}

func newAccount(t *ControlTower, data accountData) *Account {
	return &Account{tower: t, data: data}
}

// Core identity accessors. Supplied at construction, never refetched.

func (a *Account) ID() string             { return a.data.AccountID }
func (a *Account) Name() string           { return a.data.AccountName }
func (a *Account) Email() string          { return a.data.AccountEmail }
func (a *Account) Arn() string            { return a.data.Arn }
func (a *Account) Owner() string          { return a.data.Owner }
func (a *Account) ProvisionState() string { return a.data.ProvisionState }
func (a *Account) Status() string         { return a.data.Status }

// LandingZoneVersion is the landing zone version the account was deployed
// against.
func (a *Account) LandingZoneVersion() string { return a.data.DeployedLandingZoneVersion }

// HasAvailableUpdate reports whether the account is behind the landing
// zone, comparing the two versions as floating point values.
func (a *Account) HasAvailableUpdate(ctx context.Context) (bool, error) {
	current, err := a.tower.LandingZoneVersion(ctx)
	if err != nil {
		return false, err
	}
	mine, err := strconv.ParseFloat(a.data.DeployedLandingZoneVersion, 64)
	if err != nil {
		return false, fmt.Errorf("parse account landing zone version %q: %w", a.data.DeployedLandingZoneVersion, err)
	}
	latest, err := strconv.ParseFloat(current, 64)
	if err != nil {
		return false, fmt.Errorf("parse landing zone version %q: %w", current, err)
	}
	return mine < latest, nil
}

// OrganizationalUnit resolves the OU the account lives in.
func (a *Account) OrganizationalUnit(ctx context.Context) (*ControlTowerOU, error) {
	return a.tower.OUByID(ctx, a.data.ParentOrganizationalUnitID)
}

// GuardrailComplianceStatus queries the account's compliance state.
func (a *Account) GuardrailComplianceStatus(ctx context.Context) (string, error) {
	var out struct {
		ComplianceStatus string `json:"ComplianceStatus"`
	}
	err := a.tower.console.Call(ctx, "getGuardrailComplianceStatus",
		map[string]any{"AccountId": a.data.AccountID}, &out)
	if err != nil {
		return "", err
	}
	return out.ComplianceStatus, nil
}

// catalogData resolves the catalog tier: the provisioned product whose
// physical id is this account id. A miss is not an error; accounts that are
// not catalog-visible yet (mid-creation) resolve to an empty record.
func (a *Account) catalogData(ctx context.Context) (sctypes.ProvisionedProductAttribute, error) {
	if a.catalogResolved {
		return a.catalogRecord, nil
	}
	out, err := a.tower.catalog.SearchProvisionedProducts(ctx, &servicecatalog.SearchProvisionedProductsInput{
		Filters: map[string][]string{
			"SearchQuery": {fmt.Sprintf("physicalId:%s", a.data.AccountID)},
		},
	})
	if err != nil {
		return sctypes.ProvisionedProductAttribute{}, fmt.Errorf("search catalog record for account %s: %w", a.data.AccountID, err)
	}
	if len(out.ProvisionedProducts) > 0 {
		a.catalogRecord = out.ProvisionedProducts[len(out.ProvisionedProducts)-1]
	}
	a.catalogResolved = true
	return a.catalogRecord, nil
}

// recordData resolves the workflow tier from the catalog's record store,
// keyed by the last record id. Empty when the catalog tier has no record id.
func (a *Account) recordData(ctx context.Context) (map[string]string, error) {
	if a.recordResolved {
		return a.recordOutputs, nil
	}
	lastRecordID, err := a.LastRecordID(ctx)
	if err != nil {
		return nil, err
	}
	outputs := map[string]string{}
	if lastRecordID != "" {
		out, err := a.tower.catalog.DescribeRecord(ctx, &servicecatalog.DescribeRecordInput{
			Id: aws.String(lastRecordID),
		})
		if err != nil {
			return nil, fmt.Errorf("describe record %s: %w", lastRecordID, err)
		}
		for _, output := range out.RecordOutputs {
			outputs[aws.ToString(output.OutputKey)] = aws.ToString(output.OutputValue)
		}
	}
	a.recordOutputs = outputs
	a.recordResolved = true
	return a.recordOutputs, nil
}

// Catalog tier accessors.

func (a *Account) StackArn(ctx context.Context) (string, error) {
	record, err := a.catalogData(ctx)
	return aws.ToString(record.Arn), err
}

func (a *Account) CreatedTime(ctx context.Context) (time.Time, error) {
	record, err := a.catalogData(ctx)
	return aws.ToTime(record.CreatedTime), err
}

func (a *Account) ServiceCatalogID(ctx context.Context) (string, error) {
	record, err := a.catalogData(ctx)
	return aws.ToString(record.Id), err
}

func (a *Account) IdempotencyToken(ctx context.Context) (string, error) {
	record, err := a.catalogData(ctx)
	return aws.ToString(record.IdempotencyToken), err
}

func (a *Account) LastRecordID(ctx context.Context) (string, error) {
	record, err := a.catalogData(ctx)
	return aws.ToString(record.LastRecordId), err
}

func (a *Account) PhysicalID(ctx context.Context) (string, error) {
	record, err := a.catalogData(ctx)
	return aws.ToString(record.PhysicalId), err
}

func (a *Account) ServiceCatalogProductID(ctx context.Context) (string, error) {
	record, err := a.catalogData(ctx)
	return aws.ToString(record.ProductId), err
}

func (a *Account) ProvisioningArtifactID(ctx context.Context) (string, error) {
	record, err := a.catalogData(ctx)
	return aws.ToString(record.ProvisioningArtifactId), err
}

func (a *Account) ServiceCatalogStatus(ctx context.Context) (string, error) {
	record, err := a.catalogData(ctx)
	return string(record.Status), err
}

func (a *Account) ServiceCatalogType(ctx context.Context) (string, error) {
	record, err := a.catalogData(ctx)
	return aws.ToString(record.Type), err
}

func (a *Account) ServiceCatalogTags(ctx context.Context) (map[string]string, error) {
	record, err := a.catalogData(ctx)
	if err != nil {
		return nil, err
	}
	tags := make(map[string]string, len(record.Tags))
	for _, tag := range record.Tags {
		tags[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}
	return tags, nil
}

func (a *Account) UserArn(ctx context.Context) (string, error) {
	record, err := a.catalogData(ctx)
	return aws.ToString(record.UserArn), err
}

func (a *Account) UserArnSession(ctx context.Context) (string, error) {
	record, err := a.catalogData(ctx)
	return aws.ToString(record.UserArnSession), err
}

// Workflow tier accessors.

func (a *Account) SSOUserEmail(ctx context.Context) (string, error) {
	outputs, err := a.recordData(ctx)
	return outputs["SSOUserEmail"], err
}

func (a *Account) SSOUserPortal(ctx context.Context) (string, error) {
	outputs, err := a.recordData(ctx)
	return outputs["SSOUserPortal"], err
}

// Refresh re-resolves the core identity by account id and drops the catalog
// and workflow tiers. It is the only way to observe a state change after
// construction; accessors never refresh on their own.
func (a *Account) Refresh(ctx context.Context) error {
	fresh, err := a.tower.AccountByID(ctx, a.data.AccountID)
	if err != nil {
		return err
	}
	if fresh == nil {
		return fmt.Errorf("account %s no longer listed by the control plane", a.data.AccountID)
	}
	a.data = fresh.data
	a.catalogRecord = sctypes.ProvisionedProductAttribute{}
	a.catalogResolved = false
	a.recordOutputs = nil
	a.recordResolved = false
	return nil
}

// policyAction is the explicit attach/detach variant; each maps to its own
// Organizations call.
type policyAction int

const (
	attachPolicy policyAction = iota
	detachPolicy
)

func (p policyAction) String() string {
	if p == attachPolicy {
		return "attach"
	}
	return "detach"
}

// AttachServiceControlPolicy attaches the named SCP to the account.
func (a *Account) AttachServiceControlPolicy(ctx context.Context, name string) error {
	return a.actionServiceControlPolicy(ctx, attachPolicy, name)
}

// DetachServiceControlPolicy detaches the named SCP from the account.
func (a *Account) DetachServiceControlPolicy(ctx context.Context, name string) error {
	return a.actionServiceControlPolicy(ctx, detachPolicy, name)
}

func (a *Account) actionServiceControlPolicy(ctx context.Context, action policyAction, name string) error {
	scp, err := a.tower.SCPByName(ctx, name)
	if err != nil {
		return err
	}
	if scp == nil {
		return fmt.Errorf("%w: %s", ErrNonExistentSCP, name)
	}
	switch action {
	case attachPolicy:
		_, err = a.tower.orgs.AttachPolicy(ctx, &organizations.AttachPolicyInput{
			PolicyId: aws.String(scp.ID),
			TargetId: aws.String(a.data.AccountID),
		})
	case detachPolicy:
		_, err = a.tower.orgs.DetachPolicy(ctx, &organizations.DetachPolicyInput{
			PolicyId: aws.String(scp.ID),
			TargetId: aws.String(a.data.AccountID),
		})
	}
	if err != nil {
		return fmt.Errorf("%s policy %q on account %s: %w", action, name, a.data.AccountID, err)
	}
	log.Debug().
		Str("account_id", a.data.AccountID).
		Str("policy", name).
		Str("action", action.String()).
		Msg("service control policy updated")
	return nil
}
