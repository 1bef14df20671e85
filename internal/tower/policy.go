package tower

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	orgtypes "github.com/aws/aws-sdk-go-v2/service/organizations/types"
)

// ServiceControlPolicy is an attachable permission-boundary policy.
type ServiceControlPolicy struct {
	ID          string
	Name        string
	Arn         string
	Description string
	Type        string
	AwsManaged  bool
}

// ServiceControlPolicies lists the SCPs of the organization.
func (t *ControlTower) ServiceControlPolicies(ctx context.Context) ([]ServiceControlPolicy, error) {
	var policies []ServiceControlPolicy
	input := &organizations.ListPoliciesInput{Filter: orgtypes.PolicyTypeServiceControlPolicy}
	for {
		out, err := t.orgs.ListPolicies(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("list service control policies: %w", err)
		}
		for _, policy := range out.Policies {
			policies = append(policies, ServiceControlPolicy{
				ID:          aws.ToString(policy.Id),
				Name:        aws.ToString(policy.Name),
				Arn:         aws.ToString(policy.Arn),
				Description: aws.ToString(policy.Description),
				Type:        string(policy.Type),
				AwsManaged:  policy.AwsManaged,
			})
		}
		if aws.ToString(out.NextToken) == "" {
			return policies, nil
		}
		input.NextToken = out.NextToken
	}
}

// SCPByName retrieves a service control policy by name; nil when absent.
func (t *ControlTower) SCPByName(ctx context.Context, name string) (*ServiceControlPolicy, error) {
	policies, err := t.ServiceControlPolicies(ctx)
	if err != nil {
		return nil, err
	}
	for _, policy := range policies {
		if policy.Name == name {
			return &policy, nil
		}
	}
	return nil, nil
}
