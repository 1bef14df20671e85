package tower

import "errors"

// Sentinel errors for the conditions callers are expected to branch on.
var (
	// ErrNotDeployed means Control Tower has never been set up in this
	// organization; no gated call is attempted.
	ErrNotDeployed = errors.New("control tower is not deployed")

	// ErrBusy means the landing zone is mid-operation or an account is under
	// change. Callers should retry later; nothing is retried internally.
	ErrBusy = errors.New("control tower is busy")

	// ErrNoCatalogAccess means the delegated role cannot see the account
	// factory product in Service Catalog. Fatal at construction.
	ErrNoCatalogAccess = errors.New("no access to the account factory portfolio in service catalog")

	// ErrOUCreating is the documented creation race: the target OU's catalog
	// package is still materializing. Retried internally, bounded.
	ErrOUCreating = errors.New("organizational unit is still being created")

	// ErrNonExistentSCP means a named service control policy lookup failed.
	ErrNonExistentSCP = errors.New("no service control policy with that name")

	// ErrNoSuspendedOU means the configured suspended OU does not exist, so
	// decommissioning cannot start.
	ErrNoSuspendedOU = errors.New("suspended organizational unit does not exist")
)

// creatingAccountErrorMessage is the exact Service Catalog error emitted
// while the target OU's provisioning package is still materializing.
const creatingAccountErrorMessage = "Package is in state CREATING, but must be in state AVAILABLE"
