package tournament

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wonny/arena/pkg/database"
)

// Repository persists promotion/demotion decisions for offline review
// ⭐ 선택적: DB가 없으면 결정 기록은 이벤트 버스로만 나간다
type Repository struct {
	db *database.DB
}

// NewRepository creates a new tournament repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the decisions table if missing
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tournament_decisions (
			id          BIGSERIAL PRIMARY KEY,
			strategy_id TEXT NOT NULL,
			decision    TEXT NOT NULL,
			from_stage  TEXT NOT NULL,
			to_stage    TEXT NOT NULL,
			reason      TEXT,
			metrics     JSONB,
			created_at  TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure tournament schema failed: %w", err)
	}
	return nil
}

// SaveDecision appends one decision record
func (r *Repository) SaveDecision(ctx context.Context, record DecisionRecord) error {
	metrics, err := json.Marshal(record.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics failed: %w", err)
	}

	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO tournament_decisions (strategy_id, decision, from_stage, to_stage, reason, metrics, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, record.StrategyID, record.Decision, record.FromStage, record.ToStage, record.Reason, metrics, record.At)
	if err != nil {
		return fmt.Errorf("save decision failed: %w", err)
	}
	return nil
}

// RecentDecisions loads the most recent decision records
func (r *Repository) RecentDecisions(ctx context.Context, limit int) ([]DecisionRecord, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT strategy_id, decision, from_stage, to_stage, COALESCE(reason, ''), metrics, created_at
		FROM tournament_decisions
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query decisions failed: %w", err)
	}
	defer rows.Close()

	result := make([]DecisionRecord, 0, limit)
	for rows.Next() {
		var record DecisionRecord
		var metrics []byte
		if err := rows.Scan(&record.StrategyID, &record.Decision, &record.FromStage, &record.ToStage, &record.Reason, &metrics, &record.At); err != nil {
			return nil, fmt.Errorf("scan decision failed: %w", err)
		}
		if len(metrics) > 0 {
			if err := json.Unmarshal(metrics, &record.Metrics); err != nil {
				return nil, fmt.Errorf("decode metrics failed: %w", err)
			}
		}
		result = append(result, record)
	}
	return result, rows.Err()
}
