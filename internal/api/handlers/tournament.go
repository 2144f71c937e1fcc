package handlers

import (
	"net/http"

	"github.com/wonny/arena/internal/strategy"
	"github.com/wonny/arena/internal/tournament"
	"github.com/wonny/arena/pkg/logger"
)

// TournamentHandler exposes tournament state and the manual cycle trigger
// ⭐ SSOT: 토너먼트 API 핸들러는 이 구조체에서만
type TournamentHandler struct {
	controller *tournament.Controller
	allocator  *strategy.Allocator
	logger     *logger.Logger
}

// NewTournamentHandler creates a new tournament handler
func NewTournamentHandler(controller *tournament.Controller, allocator *strategy.Allocator, log *logger.Logger) *TournamentHandler {
	return &TournamentHandler{
		controller: controller,
		allocator:  allocator,
		logger:     log,
	}
}

// GetStats returns promotion/demotion counts per stage
// GET /api/tournament/stats
func (h *TournamentHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.controller.Stats())
}

// GetAllocation returns the latest strategy weight allocation
// GET /api/tournament/allocation
func (h *TournamentHandler) GetAllocation(w http.ResponseWriter, r *http.Request) {
	current := h.allocator.CurrentAllocation()
	if current == nil {
		respondError(w, http.StatusNotFound, "no allocation computed yet")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"allocation": current,
		"stability":  h.allocator.Stability(),
	})
}

// RunCycle triggers one tournament cycle immediately
// POST /api/tournament/cycle
func (h *TournamentHandler) RunCycle(w http.ResponseWriter, r *http.Request) {
	records, err := h.controller.RunCycle(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Manual tournament cycle failed")
		respondError(w, http.StatusInternalServerError, "tournament cycle failed")
		return
	}
	respondJSON(w, http.StatusOK, records)
}
