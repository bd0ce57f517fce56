package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cmlabs-hris/payroll-batch-go/internal/domain/batch"
	"github.com/cmlabs-hris/payroll-batch-go/internal/domain/hr"
	"github.com/cmlabs-hris/payroll-batch-go/internal/domain/paymenthist"
	"github.com/cmlabs-hris/payroll-batch-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-batch-go/internal/domain/policy"
	"github.com/cmlabs-hris/payroll-batch-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-batch-go/internal/pkg/jwt"
)

type BatchServiceImpl struct {
	db         database.TxRunner
	batches    batch.Repository
	payrolls   payroll.Repository
	policies   policy.Repository
	payments   paymenthist.Repository
	roster     hr.Roster
	calculator *Calculator
	workers    int
	logger     *slog.Logger
}

func NewBatchService(
	db database.TxRunner,
	batches batch.Repository,
	payrolls payroll.Repository,
	policies policy.Repository,
	payments paymenthist.Repository,
	roster hr.Roster,
	calculator *Calculator,
	workers int,
	logger *slog.Logger,
) batch.Service {
	if workers < 1 {
		workers = 1
	}
	return &BatchServiceImpl{
		db:         db,
		batches:    batches,
		payrolls:   payrolls,
		policies:   policies,
		payments:   payments,
		roster:     roster,
		calculator: calculator,
		workers:    workers,
		logger:     logger,
	}
}

// ========== STAGE TRANSITIONS ==========

func (s *BatchServiceImpl) CreateBatch(ctx context.Context, req batch.CreateBatchRequest) (batch.BatchResponse, error) {
	if err := req.Validate(); err != nil {
		return batch.BatchResponse{}, err
	}

	actorID, err := jwt.ActorID(ctx)
	if err != nil {
		return batch.BatchResponse{}, err
	}

	_, err = s.batches.GetByMonth(ctx, req.SalaryMonth)
	if err == nil {
		return batch.BatchResponse{}, batch.ErrDuplicateBatch
	}
	if !errors.Is(err, batch.ErrBatchNotFound) {
		return batch.BatchResponse{}, err
	}

	created, err := s.batches.Create(ctx, batch.PayrollBatch{
		ID:          uuid.NewString(),
		SalaryMonth: req.SalaryMonth,
		Status:      batch.StatusReady,
		CreatedBy:   actorID,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		return batch.BatchResponse{}, err
	}

	return mapToBatchResponse(created), nil
}

// Calculate fans the per-employee calculation out over a bounded worker pool.
// Each employee commits independently; the batch-level READY to CALCULATED
// transition is applied once, after every unit has resolved.
func (s *BatchServiceImpl) Calculate(ctx context.Context, batchID string, req batch.CalculateRequest) (batch.CalculationResultResponse, error) {
	if err := req.Validate(); err != nil {
		return batch.CalculationResultResponse{}, err
	}

	b, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		return batch.CalculationResultResponse{}, err
	}
	if b.Status.Locked() {
		return batch.CalculationResultResponse{}, batch.ErrBatchLocked
	}

	employeeIDs := req.EmployeeIDs
	if len(employeeIDs) == 0 {
		employeeIDs, err = s.roster.EligibleEmployeeIDs(ctx)
		if err != nil {
			return batch.CalculationResultResponse{}, err
		}
	}
	if len(employeeIDs) == 0 {
		return batch.CalculationResultResponse{}, batch.ErrNoTargets
	}

	rules, err := s.resolveRules(ctx, b)
	if err != nil {
		return batch.CalculationResultResponse{}, err
	}

	var (
		mu        sync.Mutex
		succeeded int
		failed    int
	)
	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for _, employeeID := range employeeIDs {
		employeeID := employeeID
		g.Go(func() error {
			ok := s.calculator.CalculateOne(ctx, b, rules, employeeID)
			mu.Lock()
			if ok {
				succeeded++
			} else {
				failed++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // workers never return errors, failures land on payroll rows

	// Implicit READY to CALCULATED once at least one employee succeeded. The
	// guard in the repository keeps already-calculated batches where they are.
	if succeeded > 0 {
		if err := s.batches.MarkCalculated(ctx, b.ID); err != nil {
			return batch.CalculationResultResponse{}, err
		}
	}

	refreshed, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		return batch.CalculationResultResponse{}, err
	}

	return batch.CalculationResultResponse{
		BatchID:     refreshed.ID,
		SalaryMonth: refreshed.SalaryMonth,
		Status:      string(refreshed.Status),
		Total:       len(employeeIDs),
		Succeeded:   succeeded,
		Failed:      failed,
	}, nil
}

// resolveRules freezes the active policy into the batch snapshot on first
// use, and evaluates every later recalculation against the frozen copy so
// policy edits cannot change what this batch pays.
func (s *BatchServiceImpl) resolveRules(ctx context.Context, b batch.PayrollBatch) ([]policy.ItemPolicy, error) {
	snapshot, err := s.policies.GetSnapshotByBatch(ctx, b.ID)
	if err == nil {
		var rules []policy.ItemPolicy
		if err := json.Unmarshal(snapshot.Rules, &rules); err != nil {
			return nil, fmt.Errorf("failed to decode batch policy snapshot: %w", err)
		}
		return rules, nil
	}
	if !errors.Is(err, policy.ErrSnapshotNotFound) {
		return nil, err
	}

	active, err := s.policies.GetActiveForMonth(ctx, b.SalaryMonth)
	if err != nil {
		return nil, err
	}

	serialized, err := json.Marshal(active.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize policy rules: %w", err)
	}
	err = s.policies.CreateSnapshot(ctx, policy.BatchSnapshot{
		ID:          uuid.NewString(),
		BatchID:     b.ID,
		PolicyID:    active.ID,
		SalaryMonth: b.SalaryMonth,
		Rules:       serialized,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		return nil, err
	}

	// The insert is write-once, so a concurrent calculation may have frozen
	// its own copy first. Read the snapshot back and evaluate whatever won.
	snapshot, err = s.policies.GetSnapshotByBatch(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	var rules []policy.ItemPolicy
	if err := json.Unmarshal(snapshot.Rules, &rules); err != nil {
		return nil, fmt.Errorf("failed to decode batch policy snapshot: %w", err)
	}
	return rules, nil
}

func (s *BatchServiceImpl) Confirm(ctx context.Context, batchID string) (batch.BatchResponse, error) {
	actorID, err := jwt.ActorID(ctx)
	if err != nil {
		return batch.BatchResponse{}, err
	}

	b, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		return batch.BatchResponse{}, err
	}
	if b.Status != batch.StatusCalculated {
		return batch.BatchResponse{}, batch.ErrNotCalculated
	}

	total, failedCount, err := s.payrolls.CountByBatch(ctx, batchID)
	if err != nil {
		return batch.BatchResponse{}, err
	}
	if failedCount > 0 {
		return batch.BatchResponse{}, batch.ErrHasFailedEmployees
	}
	if total == 0 {
		return batch.BatchResponse{}, batch.ErrNothingToConfirm
	}

	err = s.db.WithTx(ctx, func(ctx context.Context) error {
		applied, err := s.batches.Confirm(ctx, batchID, actorID, time.Now())
		if err != nil {
			return err
		}
		if !applied {
			// A concurrent confirm advanced the batch first.
			return batch.ErrInvalidTransition
		}
		return s.payrolls.ConfirmByBatch(ctx, batchID)
	})
	if err != nil {
		return batch.BatchResponse{}, err
	}

	return s.GetBatch(ctx, batchID)
}

func (s *BatchServiceImpl) Pay(ctx context.Context, batchID string) (batch.BatchResponse, error) {
	actorID, err := jwt.ActorID(ctx)
	if err != nil {
		return batch.BatchResponse{}, err
	}

	b, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		return batch.BatchResponse{}, err
	}
	if b.Status != batch.StatusConfirmed {
		return batch.BatchResponse{}, batch.ErrInvalidTransition
	}

	total, failedCount, err := s.payrolls.CountByBatch(ctx, batchID)
	if err != nil {
		return batch.BatchResponse{}, err
	}
	if failedCount > 0 {
		// A confirmed batch should not have failed rows; guard anyway.
		return batch.BatchResponse{}, batch.ErrHasFailedEmployees
	}
	if total == 0 {
		return batch.BatchResponse{}, batch.ErrNothingToPay
	}

	rows, err := s.payrolls.ListByBatch(ctx, batchID)
	if err != nil {
		return batch.BatchResponse{}, err
	}

	paidAt := time.Now()
	err = s.db.WithTx(ctx, func(ctx context.Context) error {
		applied, err := s.batches.Pay(ctx, batchID, actorID, paidAt)
		if err != nil {
			return err
		}
		if !applied {
			return batch.ErrInvalidTransition
		}

		for _, p := range rows {
			exists, err := s.payments.ExistsForPayroll(ctx, p.ID)
			if err != nil {
				return err
			}
			if exists {
				// Skip, not error: re-running pay must not duplicate rows.
				continue
			}
			err = s.payments.Create(ctx, paymenthist.PaymentHistory{
				ID:         uuid.NewString(),
				PayrollID:  p.ID,
				BatchID:    batchID,
				EmployeeID: p.EmployeeID,
				Amount:     p.TotalPay,
				PaidBy:     actorID,
				PaidAt:     paidAt,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return batch.BatchResponse{}, err
	}

	return s.GetBatch(ctx, batchID)
}

// ========== READ MODELS ==========

func (s *BatchServiceImpl) GetBatch(ctx context.Context, batchID string) (batch.BatchResponse, error) {
	b, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		return batch.BatchResponse{}, err
	}
	return mapToBatchResponse(b), nil
}

func (s *BatchServiceImpl) ListBatches(ctx context.Context) ([]batch.BatchResponse, error) {
	batches, err := s.batches.List(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]batch.BatchResponse, 0, len(batches))
	for _, b := range batches {
		result = append(result, mapToBatchResponse(b))
	}
	return result, nil
}

func (s *BatchServiceImpl) ListBatchPayrolls(ctx context.Context, batchID string) ([]payroll.RecordResponse, error) {
	if _, err := s.batches.GetByID(ctx, batchID); err != nil {
		return nil, err
	}

	rows, err := s.payrolls.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	result := make([]payroll.RecordResponse, 0, len(rows))
	for _, p := range rows {
		items, err := s.payrolls.ListItems(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		result = append(result, mapToRecordResponse(p, items))
	}
	return result, nil
}

func (s *BatchServiceImpl) GetSnapshot(ctx context.Context, batchID string) (batch.SnapshotResponse, error) {
	if _, err := s.batches.GetByID(ctx, batchID); err != nil {
		return batch.SnapshotResponse{}, err
	}

	snapshot, err := s.policies.GetSnapshotByBatch(ctx, batchID)
	if err != nil {
		return batch.SnapshotResponse{}, err
	}

	return batch.SnapshotResponse{
		BatchID:     snapshot.BatchID,
		PolicyID:    snapshot.PolicyID,
		SalaryMonth: snapshot.SalaryMonth,
		Rules:       json.RawMessage(snapshot.Rules),
		CreatedAt:   snapshot.CreatedAt.Format(time.RFC3339),
	}, nil
}

// ========== HELPERS ==========

func mapToBatchResponse(b batch.PayrollBatch) batch.BatchResponse {
	return batch.BatchResponse{
		ID:          b.ID,
		SalaryMonth: b.SalaryMonth,
		Status:      string(b.Status),
		CreatedBy:   b.CreatedBy,
		CreatedAt:   b.CreatedAt.Format(time.RFC3339),
		ApprovedBy:  b.ApprovedBy,
		ApprovedAt:  formatTimePtr(b.ApprovedAt),
		PaidBy:      b.PaidBy,
		PaidAt:      formatTimePtr(b.PaidAt),
		ClosedAt:    formatTimePtr(b.ClosedAt),
	}
}

func mapToRecordResponse(p payroll.Payroll, items []payroll.Item) payroll.RecordResponse {
	itemResponses := make([]payroll.ItemResponse, 0, len(items))
	for _, item := range items {
		itemResponses = append(itemResponses, payroll.ItemResponse{
			ID:       item.ID,
			ItemType: string(item.ItemType),
			ItemCode: item.ItemCode,
			ItemName: item.ItemName,
			Amount:   item.Amount,
			Taxable:  item.Taxable,
		})
	}

	return payroll.RecordResponse{
		ID:             p.ID,
		BatchID:        p.BatchID,
		EmployeeID:     p.EmployeeID,
		SalaryMonth:    p.SalaryMonth,
		BaseSalary:     p.BaseSalary,
		OvertimePay:    p.OvertimePay,
		AllowanceTotal: p.AllowanceTotal,
		DeductionTotal: p.DeductionTotal,
		TotalPay:       p.TotalPay,
		Status:         string(p.Status),
		ErrorMessage:   p.ErrorMessage,
		Items:          itemResponses,
	}
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	str := t.Format(time.RFC3339)
	return &str
}
