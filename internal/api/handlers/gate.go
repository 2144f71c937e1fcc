package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/wonny/arena/internal/contracts"
	"github.com/wonny/arena/internal/gate"
	"github.com/wonny/arena/pkg/logger"
)

// GateHandler exposes the risk gate's audit surface and validation probes
// ⭐ SSOT: 게이트 API 핸들러는 이 구조체에서만
type GateHandler struct {
	gate      *gate.RiskGate
	validator *gate.SignalValidator // optional
	logger    *logger.Logger
}

// NewGateHandler creates a new gate handler. validator may be nil when
// signal validation is not wired.
func NewGateHandler(g *gate.RiskGate, validator *gate.SignalValidator, log *logger.Logger) *GateHandler {
	return &GateHandler{
		gate:      g,
		validator: validator,
		logger:    log,
	}
}

// GetRejections returns the bounded rejection history
// GET /api/gate/rejections
func (h *GateHandler) GetRejections(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.gate.RejectionHistory())
}

// GetStats returns rejection counts aggregated by reason
// GET /api/gate/stats
func (h *GateHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.gate.RejectionStats())
}

// ValidateRequest pairs a trade intent with its gate context
type ValidateRequest struct {
	Intent  contracts.TradeIntent `json:"intent"`
	Context contracts.GateContext `json:"context"`
}

// Validate runs one intent through the gate without side effects beyond
// the rejection history. Intended as an operator probe.
// POST /api/gate/validate
func (h *GateHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Intent.Symbol == "" || req.Intent.Quantity <= 0 {
		respondError(w, http.StatusBadRequest, "intent requires symbol and positive quantity")
		return
	}

	decision := h.gate.ValidateTrade(&req.Intent, &req.Context)
	respondJSON(w, http.StatusOK, decision)
}

// ValidateSignal runs one buy/sell signal through the signal validator
// POST /api/gate/signal
func (h *GateHandler) ValidateSignal(w http.ResponseWriter, r *http.Request) {
	if h.validator == nil {
		respondError(w, http.StatusServiceUnavailable, "signal validation not wired")
		return
	}

	var sig contracts.Signal
	if err := json.NewDecoder(r.Body).Decode(&sig); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if sig.Symbol == "" || sig.Quantity <= 0 {
		respondError(w, http.StatusBadRequest, "signal requires symbol and positive quantity")
		return
	}

	respondJSON(w, http.StatusOK, h.validator.ValidateSignal(r.Context(), &sig))
}
