package console

// Operation targets accepted by the internal console API. Anything not on
// this list is rejected locally before a request is built.
var supportedTargets = map[string]struct{}{
	"listManagedOrganizationalUnits":    {},
	"manageOrganizationalUnit":          {},
	"deregisterOrganizationalUnit":      {},
	"describeManagedOrganizationalUnit": {},
	"listManagedAccounts":               {},
	"listManagedAccountsForParent":      {},
	"describeManagedAccount":            {},
	"deregisterManagedAccount":          {},
	"getGuardrailComplianceStatus":      {},
	"listGuardrailsForTarget":           {},
	"listEnabledGuardrails":             {},
	"listGuardrails":                    {},
	"listGuardrailViolations":           {},
	"getAvailableUpdates":               {},
	"getLandingZoneStatus":              {},
	"getHomeRegion":                     {},
	"listDriftDetails":                  {},
	"getAccountInfo":                    {},
	"setupLandingZone":                  {},
	"performPreLaunchChecks":            {},
	"listExternalConfigRuleCompliance":  {},
}

// SupportedTargets returns the operation names the client will accept.
func SupportedTargets() []string {
	targets := make([]string, 0, len(supportedTargets))
	for target := range supportedTargets {
		targets = append(targets, target)
	}
	return targets
}
