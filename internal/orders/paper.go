package orders

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/wonny/arena/internal/contracts"
)

// PaperAdapter fills every order immediately at its limit price. Used when
// no execution venue is wired (development, probes, dry runs).
type PaperAdapter struct {
	seq atomic.Int64
}

// NewPaperAdapter creates a simulated execution adapter
func NewPaperAdapter() *PaperAdapter {
	return &PaperAdapter{}
}

// PlaceOrder records an immediate full fill
func (a *PaperAdapter) PlaceOrder(ctx context.Context, req contracts.OrderRequest) (*contracts.OrderResult, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("paper order: invalid quantity %v", req.Quantity)
	}

	return &contracts.OrderResult{
		ID:        fmt.Sprintf("paper_%06d", a.seq.Add(1)),
		Status:    "filled",
		AvgPrice:  req.LimitPrice,
		FilledQty: req.Quantity,
	}, nil
}
