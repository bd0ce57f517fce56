package policy

import "context"

type Service interface {
	// Policy lifecycle
	CreatePolicy(ctx context.Context, req CreatePolicyRequest) (PolicyResponse, error)
	UpdatePolicy(ctx context.Context, req UpdatePolicyRequest) (PolicyResponse, error)
	ActivatePolicy(ctx context.Context, id string) (PolicyResponse, error)
	ExpirePolicy(ctx context.Context, id string) (PolicyResponse, error)
	CopyPolicy(ctx context.Context, id string) (PolicyResponse, error)
	DeletePolicy(ctx context.Context, id string) error
	GetPolicy(ctx context.Context, id string) (PolicyResponse, error)
	ListPolicies(ctx context.Context) ([]PolicyResponse, error)

	// Item rules
	CreateItemPolicy(ctx context.Context, req CreateItemPolicyRequest) (ItemPolicy, error)
	UpdateItemPolicy(ctx context.Context, req UpdateItemPolicyRequest) (ItemPolicy, error)
	DeleteItemPolicy(ctx context.Context, id string) error
	ReplaceItemPolicyTargets(ctx context.Context, itemPolicyID string, req ReplaceTargetsRequest) (ItemPolicy, error)
}
