package batch

import (
	"context"

	"github.com/cmlabs-hris/payroll-batch-go/internal/domain/payroll"
)

type Service interface {
	CreateBatch(ctx context.Context, req CreateBatchRequest) (BatchResponse, error)
	Calculate(ctx context.Context, batchID string, req CalculateRequest) (CalculationResultResponse, error)
	Confirm(ctx context.Context, batchID string) (BatchResponse, error)
	Pay(ctx context.Context, batchID string) (BatchResponse, error)

	GetBatch(ctx context.Context, batchID string) (BatchResponse, error)
	ListBatches(ctx context.Context) ([]BatchResponse, error)
	ListBatchPayrolls(ctx context.Context, batchID string) ([]payroll.RecordResponse, error)
	GetSnapshot(ctx context.Context, batchID string) (SnapshotResponse, error)
}
