package tower

import (
	"context"
	"time"
)

// Landing zone status values the gate cares about.
const (
	StatusNotStarted = "NOT_STARTED"
	StatusInProgress = "IN_PROGRESS"
)

// RegionMetadata is the per-region slice of the landing zone status.
type RegionMetadata struct {
	Region       string `json:"Region"`
	RegionStatus string `json:"RegionStatus"`
}

// LandingZoneStatus is the control plane's deployment snapshot.
type LandingZoneStatus struct {
	Status             string           `json:"Status"`
	PercentageComplete int              `json:"PercentageComplete"`
	Messages           []string         `json:"Messages"`
	Regions            []RegionMetadata `json:"RegionMetadataList"`
}

// AvailableUpdates reports the pending landing-zone updates. Cached after
// first fetch for the instance lifetime.
type AvailableUpdates struct {
	BaselineUpdateAvailable    bool   `json:"BaselineUpdateAvailable"`
	GuardrailUpdateAvailable   bool   `json:"GuardrailUpdateAvailable"`
	LandingZoneUpdateAvailable bool   `json:"LandingZoneUpdateAvailable"`
	ServiceLandingZoneVersion  string `json:"ServiceLandingZoneVersion"`
	UserLandingZoneVersion     string `json:"UserLandingZoneVersion"`
}

// LandingZoneStatus returns the deployment snapshot, re-fetching it when the
// cached one is older than Config.StatusCacheTTL. A zero TTL fetches every
// time, which is what the busy predicate needs to observe a busy-to-idle
// transition.
func (t *ControlTower) LandingZoneStatus(ctx context.Context) (*LandingZoneStatus, error) {
	if t.status != nil && t.cfg.StatusCacheTTL > 0 && time.Since(t.statusFetched) < t.cfg.StatusCacheTTL {
		return t.status, nil
	}
	var status LandingZoneStatus
	if err := t.console.Call(ctx, "getLandingZoneStatus", map[string]any{}, &status); err != nil {
		return nil, err
	}
	t.status = &status
	t.statusFetched = time.Now()
	return t.status, nil
}

// AvailableUpdates returns the pending update summary.
func (t *ControlTower) AvailableUpdates(ctx context.Context) (*AvailableUpdates, error) {
	if t.updates != nil {
		return t.updates, nil
	}
	var updates AvailableUpdates
	if err := t.console.Call(ctx, "getAvailableUpdates", map[string]any{}, &updates); err != nil {
		return nil, err
	}
	t.updates = &updates
	return t.updates, nil
}

// LandingZoneVersion returns the version the landing zone currently runs.
func (t *ControlTower) LandingZoneVersion(ctx context.Context) (string, error) {
	updates, err := t.AvailableUpdates(ctx)
	if err != nil {
		return "", err
	}
	return updates.UserLandingZoneVersion, nil
}

// DriftDetail is one detected divergence between the expected and actual
// landing zone configuration.
type DriftDetail struct {
	DriftType    string `json:"DriftType"`
	ResourceType string `json:"ResourceType"`
	ResourceID   string `json:"ResourceId"`
	TargetID     string `json:"TargetId"`
	Description  string `json:"Description"`
}

// DriftDetails enumerates detected drift. Gated.
func (t *ControlTower) DriftDetails(ctx context.Context) ([]DriftDetail, error) {
	if err := t.gate(ctx); err != nil {
		return nil, err
	}
	pages := paginate[DriftDetail](t, "listDriftDetails", map[string]any{}, "DriftDetails")
	return pages.Collect(ctx)
}
