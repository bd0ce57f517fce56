package policy

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/cmlabs-hris/payroll-batch-go/internal/domain/policy"
	"github.com/cmlabs-hris/payroll-batch-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-batch-go/internal/pkg/validator"
)

type PolicyServiceImpl struct {
	db   database.TxRunner
	repo policy.Repository
}

func NewPolicyService(db database.TxRunner, repo policy.Repository) policy.Service {
	return &PolicyServiceImpl{db: db, repo: repo}
}

// ========== POLICY LIFECYCLE ==========

func (s *PolicyServiceImpl) CreatePolicy(ctx context.Context, req policy.CreatePolicyRequest) (policy.PolicyResponse, error) {
	if err := req.Validate(); err != nil {
		return policy.PolicyResponse{}, err
	}

	p := policy.Policy{
		ID:              uuid.NewString(),
		PolicyName:      req.PolicyName,
		Status:          policy.StatusDraft,
		SalaryMonthFrom: req.SalaryMonthFrom,
		SalaryMonthTo:   req.SalaryMonthTo,
		Active:          false,
		Configs:         req.Configs,
	}

	var created policy.Policy
	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		var txErr error
		created, txErr = s.repo.Create(ctx, p)
		return txErr
	})
	if err != nil {
		return policy.PolicyResponse{}, err
	}

	return mapToPolicyResponse(created), nil
}

func (s *PolicyServiceImpl) UpdatePolicy(ctx context.Context, req policy.UpdatePolicyRequest) (policy.PolicyResponse, error) {
	if err := req.Validate(); err != nil {
		return policy.PolicyResponse{}, err
	}

	current, err := s.repo.GetByID(ctx, req.ID)
	if err != nil {
		return policy.PolicyResponse{}, err
	}
	if current.Status != policy.StatusDraft {
		return policy.PolicyResponse{}, policy.ErrPolicyNotEditable
	}

	if req.PolicyName != nil {
		current.PolicyName = *req.PolicyName
	}
	if req.SalaryMonthFrom != nil {
		current.SalaryMonthFrom = *req.SalaryMonthFrom
	}
	if req.SalaryMonthTo != nil {
		current.SalaryMonthTo = *req.SalaryMonthTo
	}
	if current.SalaryMonthFrom > current.SalaryMonthTo {
		return policy.PolicyResponse{}, validator.ValidationErrors{
			{Field: "salary_month_from", Message: "window start must not be after window end"},
		}
	}
	if req.Configs != nil {
		current.Configs = req.Configs
	}

	if err := s.repo.Update(ctx, current); err != nil {
		return policy.PolicyResponse{}, err
	}

	return s.GetPolicy(ctx, req.ID)
}

// ActivatePolicy moves a DRAFT policy to ACTIVE and fixes its window. It
// refuses when another ACTIVE policy overlaps the window; the caller fixes
// the overlap, nothing is deactivated automatically.
func (s *PolicyServiceImpl) ActivatePolicy(ctx context.Context, id string) (policy.PolicyResponse, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return policy.PolicyResponse{}, err
	}
	if current.Status != policy.StatusDraft {
		return policy.PolicyResponse{}, policy.ErrPolicyNotDraft
	}

	overlapping, err := s.repo.ListActiveOverlapping(ctx, current.SalaryMonthFrom, current.SalaryMonthTo, id)
	if err != nil {
		return policy.PolicyResponse{}, err
	}
	if len(overlapping) > 0 {
		return policy.PolicyResponse{}, policy.ErrActivePolicyOverlap
	}

	if err := s.repo.UpdateStatus(ctx, id, policy.StatusActive, true); err != nil {
		return policy.PolicyResponse{}, err
	}

	return s.GetPolicy(ctx, id)
}

// ExpirePolicy retires a DRAFT or ACTIVE policy. One-way.
func (s *PolicyServiceImpl) ExpirePolicy(ctx context.Context, id string) (policy.PolicyResponse, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return policy.PolicyResponse{}, err
	}
	if current.Status == policy.StatusExpired {
		return policy.PolicyResponse{}, policy.ErrPolicyExpired
	}

	if err := s.repo.UpdateStatus(ctx, id, policy.StatusExpired, false); err != nil {
		return policy.PolicyResponse{}, err
	}

	return s.GetPolicy(ctx, id)
}

// CopyPolicy clones a policy's items, targets and configs into a brand-new
// DRAFT. The source is never mutated.
func (s *PolicyServiceImpl) CopyPolicy(ctx context.Context, id string) (policy.PolicyResponse, error) {
	source, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return policy.PolicyResponse{}, err
	}

	clone := policy.Policy{
		ID:              uuid.NewString(),
		PolicyName:      source.PolicyName + " (copy)",
		Status:          policy.StatusDraft,
		SalaryMonthFrom: source.SalaryMonthFrom,
		SalaryMonthTo:   source.SalaryMonthTo,
		Active:          false,
	}
	if source.Configs != nil {
		clone.Configs = make(map[string]string, len(source.Configs))
		for k, v := range source.Configs {
			clone.Configs[k] = v
		}
	}
	for _, item := range source.Items {
		copied := item
		copied.ID = uuid.NewString()
		copied.PolicyID = clone.ID
		copied.CreatedAt = time.Time{}
		copied.Targets = nil
		for _, tg := range item.Targets {
			copied.Targets = append(copied.Targets, policy.Target{
				ID:           uuid.NewString(),
				ItemPolicyID: copied.ID,
				TargetType:   tg.TargetType,
				TargetValue:  tg.TargetValue,
			})
		}
		clone.Items = append(clone.Items, copied)
	}

	var created policy.Policy
	err = s.db.WithTx(ctx, func(ctx context.Context) error {
		created, err = s.repo.Create(ctx, clone)
		return err
	})
	if err != nil {
		return policy.PolicyResponse{}, err
	}

	return mapToPolicyResponse(created), nil
}

func (s *PolicyServiceImpl) DeletePolicy(ctx context.Context, id string) error {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current.Status != policy.StatusDraft {
		return policy.ErrPolicyNotEditable
	}

	return s.repo.Delete(ctx, id)
}

func (s *PolicyServiceImpl) GetPolicy(ctx context.Context, id string) (policy.PolicyResponse, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return policy.PolicyResponse{}, err
	}
	return mapToPolicyResponse(p), nil
}

func (s *PolicyServiceImpl) ListPolicies(ctx context.Context) ([]policy.PolicyResponse, error) {
	policies, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]policy.PolicyResponse, 0, len(policies))
	for _, p := range policies {
		result = append(result, mapToPolicyResponse(p))
	}
	return result, nil
}

// ========== ITEM RULES ==========

func (s *PolicyServiceImpl) CreateItemPolicy(ctx context.Context, req policy.CreateItemPolicyRequest) (policy.ItemPolicy, error) {
	if err := req.Validate(); err != nil {
		return policy.ItemPolicy{}, err
	}

	parent, err := s.repo.GetByID(ctx, req.PolicyID)
	if err != nil {
		return policy.ItemPolicy{}, err
	}
	if parent.Status != policy.StatusDraft {
		return policy.ItemPolicy{}, policy.ErrPolicyNotEditable
	}

	item := policy.ItemPolicy{
		ID:           uuid.NewString(),
		PolicyID:     req.PolicyID,
		ItemType:     policy.ItemTypeFromString(req.ItemType),
		ItemCode:     req.ItemCode,
		ItemName:     req.ItemName,
		CalcMethod:   policy.CalcMethod(req.CalcMethod),
		FixedAmount:  req.FixedAmount,
		Rate:         req.Rate,
		RoundingUnit: req.RoundingUnit,
		RoundingMode: policy.RoundingMode(req.RoundingMode),
		MonthFrom:    req.MonthFrom,
		MonthTo:      req.MonthTo,
		Priority:     req.Priority,
		Taxable:      req.Taxable,
		Active:       true,
	}
	if req.BaseAmountType != nil {
		bat := policy.BaseAmountType(*req.BaseAmountType)
		item.BaseAmountType = &bat
	}
	for _, tg := range req.Targets {
		item.Targets = append(item.Targets, policy.Target{
			ID:           uuid.NewString(),
			ItemPolicyID: item.ID,
			TargetType:   policy.TargetType(tg.TargetType),
			TargetValue:  tg.TargetValue,
		})
	}

	var created policy.ItemPolicy
	err = s.db.WithTx(ctx, func(ctx context.Context) error {
		var txErr error
		created, txErr = s.repo.CreateItem(ctx, item)
		return txErr
	})
	if err != nil {
		return policy.ItemPolicy{}, err
	}

	return created, nil
}

func (s *PolicyServiceImpl) UpdateItemPolicy(ctx context.Context, req policy.UpdateItemPolicyRequest) (policy.ItemPolicy, error) {
	if err := req.Validate(); err != nil {
		return policy.ItemPolicy{}, err
	}

	item, err := s.repo.GetItem(ctx, req.ID)
	if err != nil {
		return policy.ItemPolicy{}, err
	}
	if err := s.requireDraftParent(ctx, item.PolicyID); err != nil {
		return policy.ItemPolicy{}, err
	}

	if req.ItemName != nil {
		item.ItemName = *req.ItemName
	}
	if req.FixedAmount != nil {
		item.FixedAmount = req.FixedAmount
	}
	if req.Rate != nil {
		item.Rate = req.Rate
	}
	if req.BaseAmountType != nil {
		bat := policy.BaseAmountType(*req.BaseAmountType)
		item.BaseAmountType = &bat
	}
	if req.RoundingUnit != nil {
		item.RoundingUnit = *req.RoundingUnit
	}
	if req.RoundingMode != nil {
		item.RoundingMode = policy.RoundingMode(*req.RoundingMode)
	}
	if req.MonthFrom != nil {
		item.MonthFrom = *req.MonthFrom
	}
	if req.MonthTo != nil {
		item.MonthTo = *req.MonthTo
	}
	if req.Priority != nil {
		item.Priority = *req.Priority
	}
	if req.Taxable != nil {
		item.Taxable = *req.Taxable
	}
	if req.Active != nil {
		item.Active = *req.Active
	}

	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return policy.ItemPolicy{}, err
	}

	return s.repo.GetItem(ctx, req.ID)
}

func (s *PolicyServiceImpl) DeleteItemPolicy(ctx context.Context, id string) error {
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireDraftParent(ctx, item.PolicyID); err != nil {
		return err
	}

	return s.repo.DeleteItem(ctx, id)
}

// ReplaceItemPolicyTargets swaps the full target set as one unit.
func (s *PolicyServiceImpl) ReplaceItemPolicyTargets(ctx context.Context, itemPolicyID string, req policy.ReplaceTargetsRequest) (policy.ItemPolicy, error) {
	if err := req.Validate(); err != nil {
		return policy.ItemPolicy{}, err
	}

	item, err := s.repo.GetItem(ctx, itemPolicyID)
	if err != nil {
		return policy.ItemPolicy{}, err
	}
	if err := s.requireDraftParent(ctx, item.PolicyID); err != nil {
		return policy.ItemPolicy{}, err
	}

	targets := make([]policy.Target, 0, len(req.Targets))
	for _, tg := range req.Targets {
		targets = append(targets, policy.Target{
			ID:           uuid.NewString(),
			ItemPolicyID: itemPolicyID,
			TargetType:   policy.TargetType(tg.TargetType),
			TargetValue:  tg.TargetValue,
		})
	}

	err = s.db.WithTx(ctx, func(ctx context.Context) error {
		return s.repo.ReplaceItemTargets(ctx, itemPolicyID, targets)
	})
	if err != nil {
		return policy.ItemPolicy{}, err
	}

	return s.repo.GetItem(ctx, itemPolicyID)
}

func (s *PolicyServiceImpl) requireDraftParent(ctx context.Context, policyID string) error {
	parent, err := s.repo.GetByID(ctx, policyID)
	if err != nil {
		if errors.Is(err, policy.ErrPolicyNotFound) {
			return policy.ErrItemPolicyNotFound
		}
		return err
	}
	if parent.Status != policy.StatusDraft {
		return policy.ErrPolicyNotEditable
	}
	return nil
}

// ========== HELPERS ==========

func mapToPolicyResponse(p policy.Policy) policy.PolicyResponse {
	items := p.Items
	if items == nil {
		items = []policy.ItemPolicy{}
	}
	return policy.PolicyResponse{
		ID:              p.ID,
		PolicyName:      p.PolicyName,
		Status:          string(p.Status),
		SalaryMonthFrom: p.SalaryMonthFrom,
		SalaryMonthTo:   p.SalaryMonthTo,
		Active:          p.Active,
		Items:           items,
		Configs:         p.Configs,
	}
}
