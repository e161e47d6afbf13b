package ping

import "context"

// TargetStore persists monitoring targets.
//
// Remarks:
//   - Implementation should be thread-safe.
type TargetStore interface {
	// Create persists a new target.
	//
	// Remarks:
	//  - Implementation should return status.StatusConflict if the target already exists.
	Create(ctx context.Context, target Target) error

	// Get returns the target for the device.
	//
	// Remarks:
	//  - Implementation should return status.StatusNoData if the target doesn't exist.
	Get(ctx context.Context, deviceID string) (Target, error)

	// Update replaces the target if the stored version matches target.Version.
	//
	// Remarks:
	//  - Implementation should return status.StatusStale on version mismatch and
	//    status.StatusNoData if the target doesn't exist.
	//  - The returned target carries the incremented version.
	Update(ctx context.Context, target Target) (Target, error)

	// Delete removes the target.
	//
	// Remarks:
	//  - Implementation should return nil if the target doesn't exist.
	Delete(ctx context.Context, deviceID string) error

	// List returns all targets.
	List(ctx context.Context) ([]Target, error)
}

// ResultStore persists probe results.
type ResultStore interface {
	// Append adds a single result.
	Append(ctx context.Context, result Result) error

	// List returns up to limit most recent results for the device, newest first.
	List(ctx context.Context, deviceID string, limit int) ([]Result, error)

	// DeleteDevice removes all results of the device.
	DeleteDevice(ctx context.Context, deviceID string) error
}

// AlertStateStore persists per-device alert state.
type AlertStateStore interface {
	// Get returns the alert state for the device.
	//
	// Remarks:
	//  - Implementation should return status.StatusNoData if the state doesn't exist.
	Get(ctx context.Context, deviceID string) (AlertState, error)

	// Save upserts the state.
	//
	// Remarks:
	//  - state.Version == 0 inserts a new state, status.StatusStale is returned if one exists.
	//  - Otherwise the state is replaced only if the stored version matches.
	//  - The returned state carries the incremented version.
	Save(ctx context.Context, state AlertState) (AlertState, error)

	// Delete removes the state.
	//
	// Remarks:
	//  - Implementation should return nil if the state doesn't exist.
	Delete(ctx context.Context, deviceID string) error
}
