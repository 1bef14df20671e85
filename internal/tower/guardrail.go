package tower

import (
	"context"
)

// Guardrail is a named compliance rule evaluated against accounts and OUs.
type Guardrail struct {
	tower *ControlTower

	Name        string `json:"Name"`
	DisplayName string `json:"DisplayName"`
	Description string `json:"Description"`
	Category    string `json:"Category"`
	Behavior    string `json:"Behavior"`
	Provider    string `json:"Provider"`
	Regional    bool   `json:"RegionalPreference"`
}

// ComplianceStatus evaluates the guardrail against a target account or OU.
func (g *Guardrail) ComplianceStatus(ctx context.Context, targetID string) (string, error) {
	if err := g.tower.gate(ctx); err != nil {
		return "", err
	}
	var out struct {
		ComplianceStatus string `json:"ComplianceStatus"`
	}
	content := map[string]any{
		"GuardrailName": g.Name,
		"TargetId":      targetID,
	}
	if err := g.tower.console.Call(ctx, "getGuardrailComplianceStatus", content, &out); err != nil {
		return "", err
	}
	return out.ComplianceStatus, nil
}

// Guardrails enumerates every guardrail the control plane knows. Gated.
func (t *ControlTower) Guardrails(ctx context.Context) ([]Guardrail, error) {
	return t.guardrails(ctx, "listGuardrails", map[string]any{})
}

// GuardrailsForTarget enumerates the guardrails applied to an account or
// OU. Gated.
func (t *ControlTower) GuardrailsForTarget(ctx context.Context, targetID string) ([]Guardrail, error) {
	return t.guardrails(ctx, "listGuardrailsForTarget", map[string]any{"TargetId": targetID})
}

// EnabledGuardrails enumerates the guardrails currently enabled anywhere in
// the organization. Gated.
func (t *ControlTower) EnabledGuardrails(ctx context.Context) ([]Guardrail, error) {
	return t.guardrails(ctx, "listEnabledGuardrails", map[string]any{})
}

func (t *ControlTower) guardrails(ctx context.Context, target string, content map[string]any) ([]Guardrail, error) {
	if err := t.gate(ctx); err != nil {
		return nil, err
	}
	pages := paginate[Guardrail](t, target, content, "GuardrailList")
	guardrails, err := pages.Collect(ctx)
	if err != nil {
		return nil, err
	}
	for i := range guardrails {
		guardrails[i].tower = t
	}
	return guardrails, nil
}
