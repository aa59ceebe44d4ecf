package repository

import (
	"context"

	"github.com/procon/attendance-service/internal/domain"
)

// PauseRepository stores append-only pause audit entries.
type PauseRepository interface {
	Create(ctx context.Context, pause *domain.Pause) error
	ListByOperation(ctx context.Context, operationID string) ([]domain.Pause, error)
}

type pauseRepository struct {
	db DBTX
}

// NewPauseRepository builds repository.
func NewPauseRepository(db DBTX) PauseRepository {
	return &pauseRepository{db: db}
}

func (r *pauseRepository) Create(ctx context.Context, pause *domain.Pause) error {
	const query = `
        INSERT INTO pauses (operation_id, reason)
        VALUES ($1,$2)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query, pause.OperationID, pause.Reason).Scan(&pause.ID, &pause.CreatedAt)
}

func (r *pauseRepository) ListByOperation(ctx context.Context, operationID string) ([]domain.Pause, error) {
	const query = `
        SELECT id, operation_id, reason, created_at
        FROM pauses WHERE operation_id=$1 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, operationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Pause
	for rows.Next() {
		var pause domain.Pause
		if err := rows.Scan(&pause.ID, &pause.OperationID, &pause.Reason, &pause.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, pause)
	}
	return result, rows.Err()
}
