package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/arena/internal/capital"
	"github.com/wonny/arena/pkg/logger"
)

// CapitalHandler exposes read-only views of pools, allocations, and the
// transaction audit trail
// ⭐ SSOT: 자본 API 핸들러는 이 구조체에서만
type CapitalHandler struct {
	allocator *capital.Allocator
	logger    *logger.Logger
}

// NewCapitalHandler creates a new capital handler
func NewCapitalHandler(allocator *capital.Allocator, log *logger.Logger) *CapitalHandler {
	return &CapitalHandler{
		allocator: allocator,
		logger:    log,
	}
}

// GetPools returns every capital pool
// GET /api/capital/pools
func (h *CapitalHandler) GetPools(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.allocator.Pools())
}

// GetPool returns one pool by id
// GET /api/capital/pools/{id}
func (h *CapitalHandler) GetPool(w http.ResponseWriter, r *http.Request) {
	pool, err := h.allocator.Pool(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, pool)
}

// GetAllocations returns active allocations, optionally for one pool
// GET /api/capital/allocations?pool=research
func (h *CapitalHandler) GetAllocations(w http.ResponseWriter, r *http.Request) {
	poolID := r.URL.Query().Get("pool")
	if poolID != "" {
		respondJSON(w, http.StatusOK, h.allocator.ActiveAllocations(poolID))
		return
	}

	all := make([]*capital.Allocation, 0)
	for _, pool := range h.allocator.Pools() {
		all = append(all, h.allocator.ActiveAllocations(pool.ID)...)
	}
	respondJSON(w, http.StatusOK, all)
}

// GetTransactions returns the in-memory transaction audit trail
// GET /api/capital/transactions
func (h *CapitalHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.allocator.Transactions())
}
