package repository

import (
	"context"
	"fmt"

	"github.com/procon/attendance-service/internal/domain"
)

// ResolutionRepository stores the outcome records of finished treatments.
// Each kind lives in its own table.
type ResolutionRepository interface {
	Create(ctx context.Context, resolution *domain.Resolution) error
	// GetByTreatment searches every kind and returns pgx.ErrNoRows when none exists.
	GetByTreatment(ctx context.Context, treatmentID string) (*domain.Resolution, error)
}

type resolutionRepository struct {
	db DBTX
}

// NewResolutionRepository builds the repository.
func NewResolutionRepository(db DBTX) ResolutionRepository {
	return &resolutionRepository{db: db}
}

func resolutionTable(kind domain.ResolutionKind) (string, error) {
	switch kind {
	case domain.ResolutionComplaint:
		return "complaints", nil
	case domain.ResolutionDenunciation:
		return "denunciations", nil
	case domain.ResolutionConsultation:
		return "consultations", nil
	}
	return "", fmt.Errorf("unknown resolution kind %q", kind)
}

func (r *resolutionRepository) Create(ctx context.Context, resolution *domain.Resolution) error {
	table, err := resolutionTable(resolution.Kind)
	if err != nil {
		return err
	}
	query := `
        INSERT INTO ` + table + ` (treatment_id, case_number, authorization_file)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	err = r.db.QueryRow(ctx, query,
		resolution.TreatmentID,
		resolution.CaseNumber,
		resolution.AuthorizationFile,
	).Scan(&resolution.ID, &resolution.CreatedAt)
	return mapWriteError(err)
}

func (r *resolutionRepository) GetByTreatment(ctx context.Context, treatmentID string) (*domain.Resolution, error) {
	const query = `
        SELECT id, treatment_id, kind, case_number, authorization_file, created_at FROM (
            SELECT id, treatment_id, 'complaint' AS kind, case_number, authorization_file, created_at FROM complaints
            UNION ALL
            SELECT id, treatment_id, 'denunciation', case_number, authorization_file, created_at FROM denunciations
            UNION ALL
            SELECT id, treatment_id, 'consultation', case_number, authorization_file, created_at FROM consultations
        ) r WHERE treatment_id=$1
        LIMIT 1`
	var resolution domain.Resolution
	if err := r.db.QueryRow(ctx, query, treatmentID).Scan(
		&resolution.ID,
		&resolution.TreatmentID,
		&resolution.Kind,
		&resolution.CaseNumber,
		&resolution.AuthorizationFile,
		&resolution.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &resolution, nil
}
