package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/towerctl/internal/tower"
)

type StatusCmd struct {
	Drift bool `help:"Show drift details instead of the status summary." default:"false"`
}

func (c *StatusCmd) Run(ctx context.Context, globals *Globals) error {
	t, err := buildTower(ctx, globals)
	if err != nil {
		return err
	}
	if c.Drift {
		details, err := t.DriftDetails(ctx)
		if err != nil {
			return err
		}
		for _, detail := range details {
			fmt.Printf("%s\t%s\t%s\n", detail.DriftType, detail.ResourceID, detail.Description)
		}
		return nil
	}
	status, err := t.LandingZoneStatus(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("status:\t%s\ncomplete:\t%d%%\n", status.Status, status.PercentageComplete)
	for _, message := range status.Messages {
		fmt.Printf("message:\t%s\n", message)
	}
	updates, err := t.AvailableUpdates(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("version:\t%s (latest %s)\n", updates.UserLandingZoneVersion, updates.ServiceLandingZoneVersion)
	return nil
}

type PoliciesCmd struct{}

func (c *PoliciesCmd) Run(ctx context.Context, globals *Globals) error {
	t, err := buildTower(ctx, globals)
	if err != nil {
		return err
	}
	policies, err := t.ServiceControlPolicies(ctx)
	if err != nil {
		return err
	}
	for _, policy := range policies {
		managed := ""
		if policy.AwsManaged {
			managed = "aws-managed"
		}
		fmt.Printf("%s\t%s\t%s\n", policy.ID, policy.Name, managed)
	}
	return nil
}

type GuardrailsCmd struct {
	Target string `help:"List guardrails for an account or OU id." default:""`
}

func (c *GuardrailsCmd) Run(ctx context.Context, globals *Globals) error {
	t, err := buildTower(ctx, globals)
	if err != nil {
		return err
	}
	list := t.Guardrails
	if c.Target != "" {
		list = func(ctx context.Context) ([]tower.Guardrail, error) {
			return t.GuardrailsForTarget(ctx, c.Target)
		}
	}
	guardrails, err := list(ctx)
	if err != nil {
		return err
	}
	for _, g := range guardrails {
		fmt.Printf("%s\t%s\t%s\n", g.Name, g.Behavior, g.Category)
	}
	return nil
}
