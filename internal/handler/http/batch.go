package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cmlabs-hris/payroll-batch-go/internal/domain/batch"
	"github.com/cmlabs-hris/payroll-batch-go/internal/handler/http/response"
)

type BatchHandler interface {
	// Lifecycle
	Create(w http.ResponseWriter, r *http.Request)
	Calculate(w http.ResponseWriter, r *http.Request)
	Confirm(w http.ResponseWriter, r *http.Request)
	Pay(w http.ResponseWriter, r *http.Request)

	// Reads
	Get(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	ListPayrolls(w http.ResponseWriter, r *http.Request)
	GetSnapshot(w http.ResponseWriter, r *http.Request)
}

type batchHandlerImpl struct {
	batchService batch.Service
}

func NewBatchHandler(batchService batch.Service) BatchHandler {
	return &batchHandlerImpl{batchService: batchService}
}

// ========== LIFECYCLE ==========

func (h *batchHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	var req batch.CreateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.batchService.CreateBatch(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Payroll batch created", result)
}

func (h *batchHandlerImpl) Calculate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Batch ID is required", nil)
		return
	}

	// An empty body means a full-roster run.
	var req batch.CalculateRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "Invalid request body", nil)
			return
		}
	}

	result, err := h.batchService.Calculate(r.Context(), id, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll batch calculated", result)
}

func (h *batchHandlerImpl) Confirm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Batch ID is required", nil)
		return
	}

	result, err := h.batchService.Confirm(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll batch confirmed", result)
}

func (h *batchHandlerImpl) Pay(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Batch ID is required", nil)
		return
	}

	result, err := h.batchService.Pay(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll batch paid", result)
}

// ========== READS ==========

func (h *batchHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Batch ID is required", nil)
		return
	}

	result, err := h.batchService.GetBatch(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *batchHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	result, err := h.batchService.ListBatches(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *batchHandlerImpl) ListPayrolls(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Batch ID is required", nil)
		return
	}

	result, err := h.batchService.ListBatchPayrolls(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *batchHandlerImpl) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Batch ID is required", nil)
		return
	}

	result, err := h.batchService.GetSnapshot(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
