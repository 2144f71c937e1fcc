package capital

import "errors"

// 자본 계층 오류는 타입화된 sentinel로 노출, 호출자가 명시적으로 처리
var (
	ErrPoolNotFound        = errors.New("capital pool not found")
	ErrPoolExists          = errors.New("capital pool already exists")
	ErrAllocationNotFound  = errors.New("capital allocation not found")
	ErrAllocationNotActive = errors.New("capital allocation is not active")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrRiskCapExceeded     = errors.New("amount exceeds risk-level cap")
	ErrInsufficientCapital = errors.New("insufficient available capital")
	ErrTooManyExperiments  = errors.New("pool has too many active allocations")
)
