package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cmlabs-hris/payroll-batch-go/internal/domain/policy"
	"github.com/cmlabs-hris/payroll-batch-go/internal/handler/http/response"
)

type PolicyHandler interface {
	// Policy lifecycle
	Create(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Activate(w http.ResponseWriter, r *http.Request)
	Expire(w http.ResponseWriter, r *http.Request)
	Copy(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)

	// Item rules
	CreateItem(w http.ResponseWriter, r *http.Request)
	UpdateItem(w http.ResponseWriter, r *http.Request)
	DeleteItem(w http.ResponseWriter, r *http.Request)
	ReplaceItemTargets(w http.ResponseWriter, r *http.Request)
}

type policyHandlerImpl struct {
	policyService policy.Service
}

func NewPolicyHandler(policyService policy.Service) PolicyHandler {
	return &policyHandlerImpl{policyService: policyService}
}

// ========== POLICY LIFECYCLE ==========

func (h *policyHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	var req policy.CreatePolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.policyService.CreatePolicy(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Payroll policy created", result)
}

func (h *policyHandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Policy ID is required", nil)
		return
	}

	var req policy.UpdatePolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.ID = id

	result, err := h.policyService.UpdatePolicy(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *policyHandlerImpl) Activate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Policy ID is required", nil)
		return
	}

	result, err := h.policyService.ActivatePolicy(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll policy activated", result)
}

func (h *policyHandlerImpl) Expire(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Policy ID is required", nil)
		return
	}

	result, err := h.policyService.ExpirePolicy(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll policy expired", result)
}

func (h *policyHandlerImpl) Copy(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Policy ID is required", nil)
		return
	}

	result, err := h.policyService.CopyPolicy(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Payroll policy copied", result)
}

func (h *policyHandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Policy ID is required", nil)
		return
	}

	if err := h.policyService.DeletePolicy(r.Context(), id); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll policy deleted successfully", nil)
}

func (h *policyHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Policy ID is required", nil)
		return
	}

	result, err := h.policyService.GetPolicy(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *policyHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	result, err := h.policyService.ListPolicies(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ========== ITEM RULES ==========

func (h *policyHandlerImpl) CreateItem(w http.ResponseWriter, r *http.Request) {
	policyID := chi.URLParam(r, "id")
	if policyID == "" {
		response.BadRequest(w, "Policy ID is required", nil)
		return
	}

	var req policy.CreateItemPolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.PolicyID = policyID

	result, err := h.policyService.CreateItemPolicy(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Item policy created", result)
}

func (h *policyHandlerImpl) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "itemId")
	if id == "" {
		response.BadRequest(w, "Item policy ID is required", nil)
		return
	}

	var req policy.UpdateItemPolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.ID = id

	result, err := h.policyService.UpdateItemPolicy(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *policyHandlerImpl) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "itemId")
	if id == "" {
		response.BadRequest(w, "Item policy ID is required", nil)
		return
	}

	if err := h.policyService.DeleteItemPolicy(r.Context(), id); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Item policy deleted successfully", nil)
}

func (h *policyHandlerImpl) ReplaceItemTargets(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "itemId")
	if id == "" {
		response.BadRequest(w, "Item policy ID is required", nil)
		return
	}

	var req policy.ReplaceTargetsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.policyService.ReplaceItemPolicyTargets(r.Context(), id, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
