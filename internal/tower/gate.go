package tower

import (
	"context"
	"fmt"
	"time"

	sctypes "github.com/aws/aws-sdk-go-v2/service/servicecatalog/types"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/towerctl/internal/console"
)

// paginate builds a console stream with the package defaults.
func paginate[T any](t *ControlTower, target string, content map[string]any, itemsKey string) *console.Pages[T] {
	return console.Paginate[T](t.console, console.PageSpec{
		Target:   target,
		Content:  content,
		ItemsKey: itemsKey,
	})
}

// IsDeployed reports whether Control Tower has ever been set up. The answer
// cannot change within a process lifetime, so it is resolved once.
func (t *ControlTower) IsDeployed(ctx context.Context) (bool, error) {
	if t.deployed != nil {
		return *t.deployed, nil
	}
	status, err := t.LandingZoneStatus(ctx)
	if err != nil {
		return false, err
	}
	deployed := status.Status != StatusNotStarted
	t.deployed = &deployed
	return deployed, nil
}

// Busy reports whether the control plane is mid-operation: the landing zone
// reports IN_PROGRESS, or any account product is under change. Never cached
// beyond Config.StatusCacheTTL.
func (t *ControlTower) Busy(ctx context.Context) (bool, error) {
	status, err := t.LandingZoneStatus(ctx)
	if err != nil {
		return false, err
	}
	if status.Status == StatusInProgress {
		return true, nil
	}
	products, err := t.catalogAccounts(ctx)
	if err != nil {
		return false, err
	}
	for _, product := range products {
		if product.Status == sctypes.ProvisionedProductStatusUnderChange {
			return true, nil
		}
	}
	return false, nil
}

// gate guards every operation that talks to the control plane. It rejects
// obviously invalid calls; it provides no mutual exclusion between callers.
func (t *ControlTower) gate(ctx context.Context) error {
	deployed, err := t.IsDeployed(ctx)
	if err != nil {
		return fmt.Errorf("resolve deployment state: %w", err)
	}
	if !deployed {
		return ErrNotDeployed
	}
	busy, err := t.Busy(ctx)
	if err != nil {
		return fmt.Errorf("resolve busy state: %w", err)
	}
	if busy {
		return ErrBusy
	}
	return nil
}

// waitUntilIdle blocks, rechecking the busy predicate at the configured
// interval, until the control plane is idle or ctx is cancelled. There is no
// other timeout: a control plane that never settles blocks forever.
func (t *ControlTower) waitUntilIdle(ctx context.Context) error {
	for {
		busy, err := t.Busy(ctx)
		if err != nil {
			return fmt.Errorf("poll busy state: %w", err)
		}
		if !busy {
			return nil
		}
		log.Debug().Dur("interval", t.cfg.BusyPollInterval).Msg("control plane busy, waiting")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.cfg.BusyPollInterval):
		}
	}
}
