package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/procon/attendance-service/internal/domain"
)

// TreatmentRepository stores claims of tickets by operations.
type TreatmentRepository interface {
	// Create inserts an in_service treatment. ErrConflict means the operation
	// or the ticket already has an open one.
	Create(ctx context.Context, treatment *domain.Treatment) error
	GetByID(ctx context.Context, id string) (*domain.Treatment, error)
	LockByID(ctx context.Context, id string) (*domain.Treatment, error)
	GetInServiceByOperation(ctx context.Context, operationID string) (*domain.Treatment, error)
	Close(ctx context.Context, id string, status domain.TreatmentStatus, durationMinutes int) error
	// ListRecentCalls resolves the latest treatments, newest first.
	ListRecentCalls(ctx context.Context, limit int) ([]domain.Call, error)
}

type treatmentRepository struct {
	db DBTX
}

// NewTreatmentRepository builds the repository.
func NewTreatmentRepository(db DBTX) TreatmentRepository {
	return &treatmentRepository{db: db}
}

const treatmentColumns = `id, ticket_id, operation_id, status, duration_minutes, created_at, updated_at`

func (r *treatmentRepository) Create(ctx context.Context, treatment *domain.Treatment) error {
	treatment.Status = domain.TreatmentStatusInService
	const query = `
        INSERT INTO treatments (ticket_id, operation_id, status, created_at, updated_at)
        VALUES ($1,$2,$3, clock_timestamp(), clock_timestamp())
        RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query, treatment.TicketID, treatment.OperationID, treatment.Status).
		Scan(&treatment.ID, &treatment.CreatedAt, &treatment.UpdatedAt)
	return mapWriteError(err)
}

func (r *treatmentRepository) GetByID(ctx context.Context, id string) (*domain.Treatment, error) {
	return r.fetchSingle(ctx, `SELECT `+treatmentColumns+` FROM treatments WHERE id=$1`, id)
}

func (r *treatmentRepository) LockByID(ctx context.Context, id string) (*domain.Treatment, error) {
	return r.fetchSingle(ctx, `SELECT `+treatmentColumns+` FROM treatments WHERE id=$1 FOR UPDATE`, id)
}

func (r *treatmentRepository) GetInServiceByOperation(ctx context.Context, operationID string) (*domain.Treatment, error) {
	return r.fetchSingle(ctx, `
        SELECT `+treatmentColumns+` FROM treatments
        WHERE operation_id=$1 AND status='in_service'
        LIMIT 1`, operationID)
}

func (r *treatmentRepository) Close(ctx context.Context, id string, status domain.TreatmentStatus, durationMinutes int) error {
	cmd, err := r.db.Exec(ctx, `
        UPDATE treatments SET status=$1, duration_minutes=$2, updated_at=NOW()
        WHERE id=$3 AND status='in_service'`, status, durationMinutes, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *treatmentRepository) ListRecentCalls(ctx context.Context, limit int) ([]domain.Call, error) {
	const query = `
        SELECT tr.id, tr.ticket_id, COALESCE(c.name, ''), COALESCE(sp.name, ''), COALESCE(s.name, ''),
               COALESCE(t.priority, 0), tr.created_at
        FROM treatments tr
        LEFT JOIN tickets t ON t.id = tr.ticket_id
        LEFT JOIN clients c ON c.id = t.client_id
        LEFT JOIN operations o ON o.id = tr.operation_id
        LEFT JOIN service_points sp ON sp.id = o.service_point_id
        LEFT JOIN sectors s ON s.id = sp.sector_id
        ORDER BY tr.created_at DESC
        LIMIT $1`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Call
	for rows.Next() {
		var call domain.Call
		if err := rows.Scan(
			&call.TreatmentID,
			&call.TicketID,
			&call.ClientName,
			&call.ServicePointName,
			&call.SectorName,
			&call.Priority,
			&call.CalledAt,
		); err != nil {
			return nil, err
		}
		result = append(result, call)
	}
	return result, rows.Err()
}

func (r *treatmentRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Treatment, error) {
	var treatment domain.Treatment
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&treatment.ID,
		&treatment.TicketID,
		&treatment.OperationID,
		&treatment.Status,
		&treatment.DurationMinutes,
		&treatment.CreatedAt,
		&treatment.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &treatment, nil
}
