package repository

import (
	"context"

	"github.com/procon/attendance-service/internal/domain"
)

// SectorRepository manages sector persistence.
type SectorRepository interface {
	Create(ctx context.Context, sector *domain.Sector) error
	GetByID(ctx context.Context, id string) (*domain.Sector, error)
}

type sectorRepository struct {
	db DBTX
}

// NewSectorRepository builds the repository.
func NewSectorRepository(db DBTX) SectorRepository {
	return &sectorRepository{db: db}
}

func (r *sectorRepository) Create(ctx context.Context, sector *domain.Sector) error {
	const query = `INSERT INTO sectors (name) VALUES ($1) RETURNING id, created_at`
	return r.db.QueryRow(ctx, query, sector.Name).Scan(&sector.ID, &sector.CreatedAt)
}

func (r *sectorRepository) GetByID(ctx context.Context, id string) (*domain.Sector, error) {
	var sector domain.Sector
	if err := r.db.QueryRow(ctx, `SELECT id, name, created_at FROM sectors WHERE id=$1`, id).
		Scan(&sector.ID, &sector.Name, &sector.CreatedAt); err != nil {
		return nil, err
	}
	return &sector, nil
}
