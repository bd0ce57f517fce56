package policy

import "context"

// Repository - data access for policies, item_policies, item_policy_targets
// and batch_policy_snapshots.
type Repository interface {
	Create(ctx context.Context, p Policy) (Policy, error)
	GetByID(ctx context.Context, id string) (Policy, error) // items, targets and configs loaded
	List(ctx context.Context) ([]Policy, error)
	Update(ctx context.Context, p Policy) error
	UpdateStatus(ctx context.Context, id string, status Status, active bool) error
	Delete(ctx context.Context, id string) error

	// GetActiveForMonth resolves the ACTIVE policy whose window covers the
	// salary month, with items and targets loaded. ErrNoActivePolicy if none.
	GetActiveForMonth(ctx context.Context, salaryMonth string) (Policy, error)
	// ListActiveOverlapping returns ACTIVE policies whose windows intersect
	// [monthFrom, monthTo], excluding excludeID.
	ListActiveOverlapping(ctx context.Context, monthFrom, monthTo, excludeID string) ([]Policy, error)

	CreateItem(ctx context.Context, item ItemPolicy) (ItemPolicy, error)
	GetItem(ctx context.Context, id string) (ItemPolicy, error)
	UpdateItem(ctx context.Context, item ItemPolicy) error
	DeleteItem(ctx context.Context, id string) error
	// ReplaceItemTargets swaps the full target set of an item as one unit.
	ReplaceItemTargets(ctx context.Context, itemPolicyID string, targets []Target) error

	// CreateSnapshot freezes the resolved rules for a batch. Inserting a
	// second snapshot for the same batch is a no-op.
	CreateSnapshot(ctx context.Context, s BatchSnapshot) error
	GetSnapshotByBatch(ctx context.Context, batchID string) (BatchSnapshot, error)
}
