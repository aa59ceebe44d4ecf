package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/procon/attendance-service/internal/domain"
)

// OperationRepository manages shift persistence.
type OperationRepository interface {
	// Create inserts an operating shift. ErrConflict means the user or the
	// service point already has one.
	Create(ctx context.Context, op *domain.Operation) error
	GetByID(ctx context.Context, id string) (*domain.Operation, error)
	LockByID(ctx context.Context, id string) (*domain.Operation, error)
	GetActiveByUser(ctx context.Context, userID string) (*domain.Operation, error)
	// LockActiveByUser serializes concurrent dispatches for the same shift.
	LockActiveByUser(ctx context.Context, userID string) (*domain.Operation, error)
	UpdateStatus(ctx context.Context, id string, status domain.OperationStatus) error
}

type operationRepository struct {
	db DBTX
}

// NewOperationRepository builds the repository.
func NewOperationRepository(db DBTX) OperationRepository {
	return &operationRepository{db: db}
}

const operationColumns = `id, user_id, COALESCE(service_point_id::text, ''), status, started_at, updated_at`

func (r *operationRepository) Create(ctx context.Context, op *domain.Operation) error {
	if op.Status == "" {
		op.Status = domain.OperationStatusOperating
	}
	const query = `
        INSERT INTO operations (user_id, service_point_id, status)
        VALUES ($1,$2,$3)
        RETURNING id, started_at, updated_at`
	err := r.db.QueryRow(ctx, query, op.UserID, op.ServicePointID, op.Status).
		Scan(&op.ID, &op.StartedAt, &op.UpdatedAt)
	return mapWriteError(err)
}

func (r *operationRepository) GetByID(ctx context.Context, id string) (*domain.Operation, error) {
	return r.fetchSingle(ctx, `SELECT `+operationColumns+` FROM operations WHERE id=$1`, id)
}

func (r *operationRepository) LockByID(ctx context.Context, id string) (*domain.Operation, error) {
	return r.fetchSingle(ctx, `SELECT `+operationColumns+` FROM operations WHERE id=$1 FOR UPDATE`, id)
}

func (r *operationRepository) GetActiveByUser(ctx context.Context, userID string) (*domain.Operation, error) {
	return r.fetchSingle(ctx, `
        SELECT `+operationColumns+` FROM operations
        WHERE user_id=$1 AND status='operating'
        ORDER BY started_at DESC LIMIT 1`, userID)
}

func (r *operationRepository) LockActiveByUser(ctx context.Context, userID string) (*domain.Operation, error) {
	return r.fetchSingle(ctx, `
        SELECT `+operationColumns+` FROM operations
        WHERE user_id=$1 AND status='operating'
        ORDER BY started_at DESC LIMIT 1
        FOR UPDATE`, userID)
}

func (r *operationRepository) UpdateStatus(ctx context.Context, id string, status domain.OperationStatus) error {
	cmd, err := r.db.Exec(ctx, `UPDATE operations SET status=$1, updated_at=NOW() WHERE id=$2`, status, id)
	if err != nil {
		return mapWriteError(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *operationRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Operation, error) {
	var op domain.Operation
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&op.ID,
		&op.UserID,
		&op.ServicePointID,
		&op.Status,
		&op.StartedAt,
		&op.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &op, nil
}
