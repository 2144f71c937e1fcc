package capital

import (
	"context"
	"fmt"

	"github.com/wonny/arena/pkg/database"
)

// Repository persists capital transactions for offline audit
// ⭐ 선택적: DB가 없으면 allocator는 인메모리 링버퍼만 사용
type Repository struct {
	db *database.DB
}

// NewRepository creates a new capital repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the transactions table if missing
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS capital_transactions (
			id          BIGSERIAL PRIMARY KEY,
			tx_type     TEXT NOT NULL,
			pool_id     TEXT NOT NULL,
			strategy_id TEXT,
			amount      DOUBLE PRECISION NOT NULL,
			description TEXT,
			created_at  TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure capital schema failed: %w", err)
	}
	return nil
}

// SaveTransaction appends one audit record
func (r *Repository) SaveTransaction(ctx context.Context, tx *Transaction) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO capital_transactions (tx_type, pool_id, strategy_id, amount, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, tx.Type, tx.PoolID, tx.StrategyID, tx.Amount, tx.Description, tx.Timestamp)
	if err != nil {
		return fmt.Errorf("save transaction failed: %w", err)
	}
	return nil
}

// RecentTransactions loads the most recent audit records
func (r *Repository) RecentTransactions(ctx context.Context, limit int) ([]Transaction, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT tx_type, pool_id, COALESCE(strategy_id, ''), amount, COALESCE(description, ''), created_at
		FROM capital_transactions
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query transactions failed: %w", err)
	}
	defer rows.Close()

	result := make([]Transaction, 0, limit)
	for rows.Next() {
		var tx Transaction
		if err := rows.Scan(&tx.Type, &tx.PoolID, &tx.StrategyID, &tx.Amount, &tx.Description, &tx.Timestamp); err != nil {
			return nil, fmt.Errorf("scan transaction failed: %w", err)
		}
		result = append(result, tx)
	}
	return result, rows.Err()
}
