package tower

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/towerctl/internal/console"
)

// OrganizationsOU is the native Organizations record of an OU. It exists
// independently of the control plane.
type OrganizationsOU struct {
	ID       string
	Name     string
	Arn      string
	ParentID string
}

// ouData is the wire shape of a control-plane-registered OU.
type ouData struct {
	OrganizationalUnitID         string `json:"OrganizationalUnitId"`
	OrganizationalUnitName       string `json:"OrganizationalUnitName"`
	OrganizationalUnitType       string `json:"OrganizationalUnitType"`
	ParentOrganizationalUnitID   string `json:"ParentOrganizationalUnitId"`
	ParentOrganizationalUnitName string `json:"ParentOrganizationalUnitName"`
	CreateDate                   int64  `json:"CreateDate"`
}

// ControlTowerOU is an OU registered with the control plane. Every
// ControlTowerOU has a corresponding OrganizationsOU; not vice versa.
type ControlTowerOU struct {
	tower *ControlTower
	data  ouData
}

func (o *ControlTowerOU) ID() string         { return o.data.OrganizationalUnitID }
func (o *ControlTowerOU) Name() string       { return o.data.OrganizationalUnitName }
func (o *ControlTowerOU) Type() string       { return o.data.OrganizationalUnitType }
func (o *ControlTowerOU) ParentID() string   { return o.data.ParentOrganizationalUnitID }
func (o *ControlTowerOU) ParentName() string { return o.data.ParentOrganizationalUnitName }

// CreateDate returns when the OU was registered.
func (o *ControlTowerOU) CreateDate() time.Time {
	return time.Unix(o.data.CreateDate, 0)
}

// Delete deregisters the OU from the control plane and removes it from
// Organizations.
func (o *ControlTowerOU) Delete(ctx context.Context) error {
	return o.tower.DeleteOrganizationalUnit(ctx, o.data.OrganizationalUnitName)
}

// OUPages is a lazy stream of control-plane-registered OUs.
type OUPages struct {
	tower *ControlTower
	pages *console.Pages[ouData]
}

func (p *OUPages) Next(ctx context.Context) bool { return p.pages.Next(ctx) }
func (p *OUPages) Err() error                    { return p.pages.Err() }

func (p *OUPages) Current() *ControlTowerOU {
	return &ControlTowerOU{tower: p.tower, data: p.pages.Current()}
}

// OrganizationalUnits enumerates the OUs registered with the control plane.
// Gated.
func (t *ControlTower) OrganizationalUnits(ctx context.Context) (*OUPages, error) {
	if err := t.gate(ctx); err != nil {
		return nil, err
	}
	return t.organizationalUnits(), nil
}

func (t *ControlTower) organizationalUnits() *OUPages {
	return &OUPages{
		tower: t,
		pages: paginate[ouData](t, "listManagedOrganizationalUnits",
			map[string]any{"MaxResults": 20}, "ManagedOrganizationalUnitList"),
	}
}

func (t *ControlTower) ouBy(ctx context.Context, match func(*ControlTowerOU) bool) (*ControlTowerOU, error) {
	pages := t.organizationalUnits()
	for pages.Next(ctx) {
		if ou := pages.Current(); match(ou) {
			return ou, nil
		}
	}
	return nil, pages.Err()
}

// OUByName retrieves a control-plane-registered OU by name; nil when absent.
func (t *ControlTower) OUByName(ctx context.Context, name string) (*ControlTowerOU, error) {
	return t.ouBy(ctx, func(ou *ControlTowerOU) bool { return ou.Name() == name })
}

// OUByID retrieves a control-plane-registered OU by id; nil when absent.
func (t *ControlTower) OUByID(ctx context.Context, id string) (*ControlTowerOU, error) {
	return t.ouBy(ctx, func(ou *ControlTowerOU) bool { return ou.ID() == id })
}

// RootOU returns the organization root. Resolved once per instance.
func (t *ControlTower) RootOU(ctx context.Context) (*ControlTowerOU, error) {
	if t.rootOU != nil {
		return t.rootOU, nil
	}
	root, err := t.OUByName(ctx, rootOUName)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, fmt.Errorf("control plane did not list a %q organizational unit", rootOUName)
	}
	t.rootOU = root
	return t.rootOU, nil
}

// OrganizationsOUs lists the OUs directly under the organization root in
// Organizations, managed or not.
func (t *ControlTower) OrganizationsOUs(ctx context.Context) ([]OrganizationsOU, error) {
	root, err := t.RootOU(ctx)
	if err != nil {
		return nil, err
	}
	var ous []OrganizationsOU
	input := &organizations.ListOrganizationalUnitsForParentInput{ParentId: aws.String(root.ID())}
	for {
		out, err := t.orgs.ListOrganizationalUnitsForParent(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("list organizations OUs: %w", err)
		}
		for _, ou := range out.OrganizationalUnits {
			ous = append(ous, OrganizationsOU{
				ID:       aws.ToString(ou.Id),
				Name:     aws.ToString(ou.Name),
				Arn:      aws.ToString(ou.Arn),
				ParentID: root.ID(),
			})
		}
		if aws.ToString(out.NextToken) == "" {
			return ous, nil
		}
		input.NextToken = out.NextToken
	}
}

// OrganizationsOUByName retrieves a directory OU by name; nil when absent.
func (t *ControlTower) OrganizationsOUByName(ctx context.Context, name string) (*OrganizationsOU, error) {
	return t.organizationsOUBy(ctx, func(ou OrganizationsOU) bool { return ou.Name == name })
}

// OrganizationsOUByID retrieves a directory OU by id; nil when absent.
func (t *ControlTower) OrganizationsOUByID(ctx context.Context, id string) (*OrganizationsOU, error) {
	return t.organizationsOUBy(ctx, func(ou OrganizationsOU) bool { return ou.ID == id })
}

// OrganizationsOUByArn retrieves a directory OU by ARN; nil when absent.
func (t *ControlTower) OrganizationsOUByArn(ctx context.Context, arn string) (*OrganizationsOU, error) {
	return t.organizationsOUBy(ctx, func(ou OrganizationsOU) bool { return ou.Arn == arn })
}

func (t *ControlTower) organizationsOUBy(ctx context.Context, match func(OrganizationsOU) bool) (*OrganizationsOU, error) {
	ous, err := t.OrganizationsOUs(ctx)
	if err != nil {
		return nil, err
	}
	for _, ou := range ous {
		if match(ou) {
			return &ou, nil
		}
	}
	return nil, nil
}

// RegisterOrganizationsOU registers an existing directory OU with the
// control plane. Registering an already-managed OU is a no-op success.
func (t *ControlTower) RegisterOrganizationsOU(ctx context.Context, name string) error {
	if err := t.gate(ctx); err != nil {
		return err
	}
	managed, err := t.OUByName(ctx, name)
	if err != nil {
		return err
	}
	if managed != nil {
		log.Info().Str("ou", name).Msg("OU is already registered with the control plane")
		return nil
	}
	orgOU, err := t.OrganizationsOUByName(ctx, name)
	if err != nil {
		return err
	}
	if orgOU == nil {
		return fmt.Errorf("organizational unit %q does not exist under organizations", name)
	}
	return t.registerOU(ctx, *orgOU)
}

// registerOU moves management of a directory OU under the control plane and
// waits the settling time for the guardrails to apply.
func (t *ControlTower) registerOU(ctx context.Context, orgOU OrganizationsOU) error {
	root, err := t.RootOU(ctx)
	if err != nil {
		return err
	}
	content := map[string]any{
		"OrganizationalUnitId":         orgOU.ID,
		"OrganizationalUnitName":       orgOU.Name,
		"ParentOrganizationalUnitId":   root.ID(),
		"ParentOrganizationalUnitName": root.Name(),
		"OrganizationalUnitType":       "CUSTOM",
	}
	if err := t.console.Call(ctx, "manageOrganizationalUnit", content, nil); err != nil {
		return fmt.Errorf("register OU %q with the control plane: %w", orgOU.Name, err)
	}
	log.Debug().
		Str("ou", orgOU.Name).
		Dur("settling_time", t.cfg.SettlingTime).
		Msg("waiting for guardrails to apply")
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(t.cfg.SettlingTime):
	}
	log.Debug().Str("ou", orgOU.Name).Msg("OU registered with the control plane")
	return nil
}

// CreateOrganizationalUnit creates an OU under the organization root and
// registers it with the control plane.
func (t *ControlTower) CreateOrganizationalUnit(ctx context.Context, name string) error {
	if err := t.gate(ctx); err != nil {
		return err
	}
	root, err := t.RootOU(ctx)
	if err != nil {
		return err
	}
	log.Debug().Str("ou", name).Msg("creating OU under the organization root")
	out, err := t.orgs.CreateOrganizationalUnit(ctx, &organizations.CreateOrganizationalUnitInput{
		ParentId: aws.String(root.ID()),
		Name:     aws.String(name),
	})
	if err != nil {
		return fmt.Errorf("create OU %q in organizations: %w", name, err)
	}
	created := OrganizationsOU{
		ID:       aws.ToString(out.OrganizationalUnit.Id),
		Name:     aws.ToString(out.OrganizationalUnit.Name),
		Arn:      aws.ToString(out.OrganizationalUnit.Arn),
		ParentID: root.ID(),
	}
	return t.registerOU(ctx, created)
}

// DeleteOrganizationalUnit deregisters the named OU from the control plane
// and deletes it from Organizations, in that order.
func (t *ControlTower) DeleteOrganizationalUnit(ctx context.Context, name string) error {
	if err := t.gate(ctx); err != nil {
		return err
	}
	ou, err := t.OUByName(ctx, name)
	if err != nil {
		return err
	}
	if ou == nil {
		return fmt.Errorf("no organizational unit named %q is registered with the control plane", name)
	}
	content := map[string]any{"OrganizationalUnitId": ou.ID()}
	if err := t.console.Call(ctx, "deregisterOrganizationalUnit", content, nil); err != nil {
		return fmt.Errorf("deregister OU %q: %w", name, err)
	}
	log.Debug().Str("ou", name).Msg("OU deregistered from the control plane")
	_, err = t.orgs.DeleteOrganizationalUnit(ctx, &organizations.DeleteOrganizationalUnitInput{
		OrganizationalUnitId: aws.String(ou.ID()),
	})
	if err != nil {
		return fmt.Errorf("delete OU %q from organizations: %w", name, err)
	}
	return nil
}
