package policy

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/payroll-batch-go/internal/domain/policy"
	"github.com/cmlabs-hris/payroll-batch-go/internal/pkg/validator"
)

// passthroughTx runs the function without a real transaction. Unit tests
// exercise service semantics; commit/rollback mechanics are the database's.
type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// rollbackTx restores repository state when the wrapped function fails, the
// way a real transaction discards partial writes.
type rollbackTx struct {
	repo *fakePolicyRepo
}

func (r rollbackTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.repo.mu.Lock()
	saved := make(map[string]policy.Policy, len(r.repo.policies))
	for id, p := range r.repo.policies {
		saved[id] = p
	}
	r.repo.mu.Unlock()

	if err := fn(ctx); err != nil {
		r.repo.mu.Lock()
		r.repo.policies = saved
		r.repo.mu.Unlock()
		return err
	}
	return nil
}

type fakePolicyRepo struct {
	mu        sync.Mutex
	policies  map[string]policy.Policy
	snapshots map[string]policy.BatchSnapshot

	// when set, Create/CreateItem land their row first and then fail, the
	// way a later statement in the same multi-row write would
	createErr     error
	createItemErr error
}

func newFakePolicyRepo() *fakePolicyRepo {
	return &fakePolicyRepo{
		policies:  make(map[string]policy.Policy),
		snapshots: make(map[string]policy.BatchSnapshot),
	}
}

func (f *fakePolicyRepo) Create(ctx context.Context, p policy.Policy) (policy.Policy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.policies[p.ID] = p
	if f.createErr != nil {
		return policy.Policy{}, f.createErr
	}
	return p, nil
}

func (f *fakePolicyRepo) GetByID(ctx context.Context, id string) (policy.Policy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.policies[id]
	if !ok {
		return policy.Policy{}, policy.ErrPolicyNotFound
	}
	return p, nil
}

func (f *fakePolicyRepo) List(ctx context.Context) ([]policy.Policy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]policy.Policy, 0, len(f.policies))
	for _, p := range f.policies {
		result = append(result, p)
	}
	return result, nil
}

func (f *fakePolicyRepo) Update(ctx context.Context, p policy.Policy) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.policies[p.ID]
	if !ok {
		return policy.ErrPolicyNotFound
	}
	p.Items = current.Items
	f.policies[p.ID] = p
	return nil
}

func (f *fakePolicyRepo) UpdateStatus(ctx context.Context, id string, status policy.Status, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.policies[id]
	if !ok {
		return policy.ErrPolicyNotFound
	}
	p.Status = status
	p.Active = active
	f.policies[id] = p
	return nil
}

func (f *fakePolicyRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.policies[id]; !ok {
		return policy.ErrPolicyNotFound
	}
	delete(f.policies, id)
	return nil
}

func (f *fakePolicyRepo) GetActiveForMonth(ctx context.Context, salaryMonth string) (policy.Policy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.policies {
		if p.Status == policy.StatusActive && p.Active && p.CoversMonth(salaryMonth) {
			return p, nil
		}
	}
	return policy.Policy{}, policy.ErrNoActivePolicy
}

func (f *fakePolicyRepo) ListActiveOverlapping(ctx context.Context, monthFrom, monthTo, excludeID string) ([]policy.Policy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []policy.Policy
	for _, p := range f.policies {
		if p.ID == excludeID || p.Status != policy.StatusActive {
			continue
		}
		if p.SalaryMonthFrom <= monthTo && monthFrom <= p.SalaryMonthTo {
			result = append(result, p)
		}
	}
	return result, nil
}

func (f *fakePolicyRepo) CreateItem(ctx context.Context, item policy.ItemPolicy) (policy.ItemPolicy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.policies[item.PolicyID]
	if !ok {
		return policy.ItemPolicy{}, policy.ErrPolicyNotFound
	}
	p.Items = append(p.Items, item)
	f.policies[item.PolicyID] = p
	if f.createItemErr != nil {
		return policy.ItemPolicy{}, f.createItemErr
	}
	return item, nil
}

func (f *fakePolicyRepo) GetItem(ctx context.Context, id string) (policy.ItemPolicy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.policies {
		for _, item := range p.Items {
			if item.ID == id {
				return item, nil
			}
		}
	}
	return policy.ItemPolicy{}, policy.ErrItemPolicyNotFound
}

func (f *fakePolicyRepo) UpdateItem(ctx context.Context, item policy.ItemPolicy) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.policies[item.PolicyID]
	if !ok {
		return policy.ErrItemPolicyNotFound
	}
	for i := range p.Items {
		if p.Items[i].ID == item.ID {
			p.Items[i] = item
			f.policies[item.PolicyID] = p
			return nil
		}
	}
	return policy.ErrItemPolicyNotFound
}

func (f *fakePolicyRepo) DeleteItem(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for pid, p := range f.policies {
		for i := range p.Items {
			if p.Items[i].ID == id {
				p.Items = append(p.Items[:i], p.Items[i+1:]...)
				f.policies[pid] = p
				return nil
			}
		}
	}
	return policy.ErrItemPolicyNotFound
}

func (f *fakePolicyRepo) ReplaceItemTargets(ctx context.Context, itemPolicyID string, targets []policy.Target) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for pid, p := range f.policies {
		for i := range p.Items {
			if p.Items[i].ID == itemPolicyID {
				p.Items[i].Targets = targets
				f.policies[pid] = p
				return nil
			}
		}
	}
	return policy.ErrItemPolicyNotFound
}

func (f *fakePolicyRepo) CreateSnapshot(ctx context.Context, s policy.BatchSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.snapshots[s.BatchID]; ok {
		return nil // write-once, second insert is a no-op
	}
	f.snapshots[s.BatchID] = s
	return nil
}

func (f *fakePolicyRepo) GetSnapshotByBatch(ctx context.Context, batchID string) (policy.BatchSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.snapshots[batchID]
	if !ok {
		return policy.BatchSnapshot{}, policy.ErrSnapshotNotFound
	}
	return s, nil
}

func newTestPolicyService() (policy.Service, *fakePolicyRepo) {
	repo := newFakePolicyRepo()
	return NewPolicyService(passthroughTx{}, repo), repo
}

func createDraft(t *testing.T, svc policy.Service) policy.PolicyResponse {
	t.Helper()
	created, err := svc.CreatePolicy(context.Background(), policy.CreatePolicyRequest{
		PolicyName:      "Standard payroll",
		SalaryMonthFrom: "2025-01",
		SalaryMonthTo:   "2025-12",
	})
	require.NoError(t, err)
	return created
}

func TestPolicyService_CreatePolicy_StartsDraft(t *testing.T) {
	svc, _ := newTestPolicyService()

	created := createDraft(t, svc)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, string(policy.StatusDraft), created.Status)
	assert.False(t, created.Active)
}

func TestPolicyService_CreatePolicy_RejectsInvertedWindow(t *testing.T) {
	svc, _ := newTestPolicyService()

	_, err := svc.CreatePolicy(context.Background(), policy.CreatePolicyRequest{
		PolicyName:      "Backwards",
		SalaryMonthFrom: "2025-12",
		SalaryMonthTo:   "2025-01",
	})

	var validationErrs validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)
}

func TestPolicyService_CreatePolicy_RollsBackOnFailedWrite(t *testing.T) {
	repo := newFakePolicyRepo()
	svc := NewPolicyService(rollbackTx{repo: repo}, repo)

	repo.createErr = errors.New("config insert failed")
	_, err := svc.CreatePolicy(context.Background(), policy.CreatePolicyRequest{
		PolicyName:      "Standard payroll",
		SalaryMonthFrom: "2025-01",
		SalaryMonthTo:   "2025-12",
	})
	require.Error(t, err)

	policies, err := svc.ListPolicies(context.Background())
	require.NoError(t, err)
	assert.Empty(t, policies)
}

func TestPolicyService_CreateItemPolicy_RollsBackOnFailedWrite(t *testing.T) {
	repo := newFakePolicyRepo()
	svc := NewPolicyService(rollbackTx{repo: repo}, repo)
	ctx := context.Background()

	created := createDraft(t, svc)

	repo.createItemErr = errors.New("target insert failed")
	_, err := svc.CreateItemPolicy(ctx, policy.CreateItemPolicyRequest{
		PolicyID:     created.ID,
		ItemType:     "DEDUCTION",
		ItemCode:     "UNION_FEE",
		ItemName:     "Union fee",
		CalcMethod:   "FIXED",
		FixedAmount:  decPtr("25000"),
		RoundingUnit: 1,
		RoundingMode: "HALF_UP",
		MonthFrom:    "2025-01",
		MonthTo:      "2025-12",
		Targets: []policy.TargetRequest{
			{TargetType: "EMPLOYEE", TargetValue: "emp-1"},
		},
	})
	require.Error(t, err)

	// A rule left behind without its targets would apply universally; the
	// failed create must leave no item at all.
	fetched, err := svc.GetPolicy(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, fetched.Items)
}

func TestPolicyService_UpdatePolicy_DraftOnly(t *testing.T) {
	svc, _ := newTestPolicyService()
	ctx := context.Background()

	created := createDraft(t, svc)
	_, err := svc.ActivatePolicy(ctx, created.ID)
	require.NoError(t, err)

	name := "Renamed"
	_, err = svc.UpdatePolicy(ctx, policy.UpdatePolicyRequest{ID: created.ID, PolicyName: &name})
	assert.ErrorIs(t, err, policy.ErrPolicyNotEditable)
}

func TestPolicyService_ActivatePolicy_RejectsOverlap(t *testing.T) {
	svc, _ := newTestPolicyService()
	ctx := context.Background()

	first := createDraft(t, svc)
	_, err := svc.ActivatePolicy(ctx, first.ID)
	require.NoError(t, err)

	second, err := svc.CreatePolicy(ctx, policy.CreatePolicyRequest{
		PolicyName:      "Overlapping",
		SalaryMonthFrom: "2025-06",
		SalaryMonthTo:   "2026-06",
	})
	require.NoError(t, err)

	_, err = svc.ActivatePolicy(ctx, second.ID)
	assert.ErrorIs(t, err, policy.ErrActivePolicyOverlap)

	// A disjoint window activates fine
	third, err := svc.CreatePolicy(ctx, policy.CreatePolicyRequest{
		PolicyName:      "Next year",
		SalaryMonthFrom: "2026-01",
		SalaryMonthTo:   "2026-12",
	})
	require.NoError(t, err)
	activated, err := svc.ActivatePolicy(ctx, third.ID)
	require.NoError(t, err)
	assert.Equal(t, string(policy.StatusActive), activated.Status)
	assert.True(t, activated.Active)
}

func TestPolicyService_ActivatePolicy_RequiresDraft(t *testing.T) {
	svc, _ := newTestPolicyService()
	ctx := context.Background()

	created := createDraft(t, svc)
	_, err := svc.ExpirePolicy(ctx, created.ID)
	require.NoError(t, err)

	_, err = svc.ActivatePolicy(ctx, created.ID)
	assert.ErrorIs(t, err, policy.ErrPolicyNotDraft)
}

func TestPolicyService_ExpirePolicy_OneWay(t *testing.T) {
	svc, _ := newTestPolicyService()
	ctx := context.Background()

	created := createDraft(t, svc)
	_, err := svc.ActivatePolicy(ctx, created.ID)
	require.NoError(t, err)

	expired, err := svc.ExpirePolicy(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, string(policy.StatusExpired), expired.Status)
	assert.False(t, expired.Active)

	_, err = svc.ExpirePolicy(ctx, created.ID)
	assert.ErrorIs(t, err, policy.ErrPolicyExpired)
}

func TestPolicyService_DeletePolicy_DraftOnly(t *testing.T) {
	svc, _ := newTestPolicyService()
	ctx := context.Background()

	created := createDraft(t, svc)
	_, err := svc.ActivatePolicy(ctx, created.ID)
	require.NoError(t, err)

	err = svc.DeletePolicy(ctx, created.ID)
	assert.ErrorIs(t, err, policy.ErrPolicyNotEditable)
}

func TestPolicyService_ItemPolicy_CreateRequiresDraftParent(t *testing.T) {
	svc, _ := newTestPolicyService()
	ctx := context.Background()

	created := createDraft(t, svc)
	_, err := svc.ActivatePolicy(ctx, created.ID)
	require.NoError(t, err)

	_, err = svc.CreateItemPolicy(ctx, policy.CreateItemPolicyRequest{
		PolicyID:     created.ID,
		ItemType:     "ALLOWANCE",
		ItemCode:     "MEAL",
		ItemName:     "Meal allowance",
		CalcMethod:   "FIXED",
		FixedAmount:  decPtr("250000"),
		RoundingUnit: 1,
		RoundingMode: "HALF_UP",
		MonthFrom:    "2025-01",
		MonthTo:      "2025-12",
	})
	assert.ErrorIs(t, err, policy.ErrPolicyNotEditable)
}

func TestPolicyService_ItemPolicy_Lifecycle(t *testing.T) {
	svc, _ := newTestPolicyService()
	ctx := context.Background()

	created := createDraft(t, svc)

	base := "BASE_SALARY"
	item, err := svc.CreateItemPolicy(ctx, policy.CreateItemPolicyRequest{
		PolicyID:       created.ID,
		ItemType:       "DEDUCTION",
		ItemCode:       "PENSION",
		ItemName:       "Pension",
		CalcMethod:     "RATE",
		Rate:           decPtr("0.1"),
		BaseAmountType: &base,
		RoundingUnit:   1000,
		RoundingMode:   "HALF_UP",
		MonthFrom:      "2025-01",
		MonthTo:        "2025-12",
		Priority:       10,
	})
	require.NoError(t, err)
	assert.True(t, item.Active)

	name := "Pension fund"
	priority := 5
	updated, err := svc.UpdateItemPolicy(ctx, policy.UpdateItemPolicyRequest{
		ID:       item.ID,
		ItemName: &name,
		Priority: &priority,
	})
	require.NoError(t, err)
	assert.Equal(t, "Pension fund", updated.ItemName)
	assert.Equal(t, 5, updated.Priority)

	withTargets, err := svc.ReplaceItemPolicyTargets(ctx, item.ID, policy.ReplaceTargetsRequest{
		Targets: []policy.TargetRequest{
			{TargetType: "DEPARTMENT", TargetValue: "dept-eng"},
		},
	})
	require.NoError(t, err)
	require.Len(t, withTargets.Targets, 1)
	assert.Equal(t, policy.TargetTypeDepartment, withTargets.Targets[0].TargetType)

	err = svc.DeleteItemPolicy(ctx, item.ID)
	require.NoError(t, err)

	fetched, err := svc.GetPolicy(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, fetched.Items)
}

func TestPolicyService_ItemPolicy_ValidatesCalcMethodFields(t *testing.T) {
	svc, _ := newTestPolicyService()
	ctx := context.Background()

	created := createDraft(t, svc)

	// RATE without a rate or base type
	_, err := svc.CreateItemPolicy(ctx, policy.CreateItemPolicyRequest{
		PolicyID:     created.ID,
		ItemType:     "DEDUCTION",
		ItemCode:     "PENSION",
		ItemName:     "Pension",
		CalcMethod:   "RATE",
		RoundingUnit: 1,
		RoundingMode: "HALF_UP",
		MonthFrom:    "2025-01",
		MonthTo:      "2025-12",
	})
	var validationErrs validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)
	details := validationErrs.ToMap()
	assert.Contains(t, details, "rate")
	assert.Contains(t, details, "base_amount_type")

	// FIXED without an amount
	_, err = svc.CreateItemPolicy(ctx, policy.CreateItemPolicyRequest{
		PolicyID:     created.ID,
		ItemType:     "ALLOWANCE",
		ItemCode:     "MEAL",
		ItemName:     "Meal",
		CalcMethod:   "FIXED",
		RoundingUnit: 1,
		RoundingMode: "HALF_UP",
		MonthFrom:    "2025-01",
		MonthTo:      "2025-12",
	})
	require.ErrorAs(t, err, &validationErrs)
	assert.Contains(t, validationErrs.ToMap(), "fixed_amount")
}

func TestPolicyService_CopyPolicy_DeepClone(t *testing.T) {
	svc, repo := newTestPolicyService()
	ctx := context.Background()

	source := createDraft(t, svc)
	item, err := svc.CreateItemPolicy(ctx, policy.CreateItemPolicyRequest{
		PolicyID:     source.ID,
		ItemType:     "ALLOWANCE",
		ItemCode:     "MEAL",
		ItemName:     "Meal allowance",
		CalcMethod:   "FIXED",
		FixedAmount:  decPtr("250000"),
		RoundingUnit: 1,
		RoundingMode: "HALF_UP",
		MonthFrom:    "2025-01",
		MonthTo:      "2025-12",
		Targets: []policy.TargetRequest{
			{TargetType: "GRADE", TargetValue: "grade-3"},
		},
	})
	require.NoError(t, err)

	_, err = svc.ActivatePolicy(ctx, source.ID)
	require.NoError(t, err)

	clone, err := svc.CopyPolicy(ctx, source.ID)
	require.NoError(t, err)

	assert.NotEqual(t, source.ID, clone.ID)
	assert.Equal(t, "Standard payroll (copy)", clone.PolicyName)
	assert.Equal(t, string(policy.StatusDraft), clone.Status)
	assert.False(t, clone.Active)
	require.Len(t, clone.Items, 1)
	assert.NotEqual(t, item.ID, clone.Items[0].ID)
	assert.Equal(t, clone.ID, clone.Items[0].PolicyID)
	require.Len(t, clone.Items[0].Targets, 1)
	assert.Equal(t, "grade-3", clone.Items[0].Targets[0].TargetValue)

	// Source untouched
	stored, err := repo.GetByID(ctx, source.ID)
	require.NoError(t, err)
	assert.Equal(t, policy.StatusActive, stored.Status)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, item.ID, stored.Items[0].ID)
}
