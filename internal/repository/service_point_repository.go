package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/procon/attendance-service/internal/domain"
)

// ServicePointRepository manages service points and their availability flag.
type ServicePointRepository interface {
	Create(ctx context.Context, point *domain.ServicePoint) error
	GetByID(ctx context.Context, id string) (*domain.ServicePoint, error)
	List(ctx context.Context) ([]domain.ServicePoint, error)
	// Claim flips a free point to operating. ErrConflict means it was not free.
	Claim(ctx context.Context, id string) error
	SetAvailability(ctx context.Context, id string, availability domain.Availability) error
}

type servicePointRepository struct {
	db DBTX
}

// NewServicePointRepository builds repository.
func NewServicePointRepository(db DBTX) ServicePointRepository {
	return &servicePointRepository{db: db}
}

const servicePointColumns = `id, name, COALESCE(sector_id::text, ''), availability, created_at, updated_at`

func (r *servicePointRepository) Create(ctx context.Context, point *domain.ServicePoint) error {
	if point.Availability == "" {
		point.Availability = domain.AvailabilityFree
	}
	const query = `
        INSERT INTO service_points (name, sector_id, availability)
        VALUES ($1, NULLIF($2,'')::uuid, $3)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query, point.Name, point.SectorID, point.Availability).
		Scan(&point.ID, &point.CreatedAt, &point.UpdatedAt)
}

func (r *servicePointRepository) GetByID(ctx context.Context, id string) (*domain.ServicePoint, error) {
	var point domain.ServicePoint
	if err := r.db.QueryRow(ctx, `SELECT `+servicePointColumns+` FROM service_points WHERE id=$1`, id).Scan(
		&point.ID,
		&point.Name,
		&point.SectorID,
		&point.Availability,
		&point.CreatedAt,
		&point.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &point, nil
}

func (r *servicePointRepository) List(ctx context.Context) ([]domain.ServicePoint, error) {
	rows, err := r.db.Query(ctx, `SELECT `+servicePointColumns+` FROM service_points ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ServicePoint
	for rows.Next() {
		var point domain.ServicePoint
		if err := rows.Scan(&point.ID, &point.Name, &point.SectorID, &point.Availability, &point.CreatedAt, &point.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, point)
	}
	return result, rows.Err()
}

func (r *servicePointRepository) Claim(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `
        UPDATE service_points SET availability='operating', updated_at=NOW()
        WHERE id=$1 AND availability='free'`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 1 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrConflict
}

func (r *servicePointRepository) SetAvailability(ctx context.Context, id string, availability domain.Availability) error {
	cmd, err := r.db.Exec(ctx, `UPDATE service_points SET availability=$1, updated_at=NOW() WHERE id=$2`, availability, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
