package main

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/procon/attendance-service/internal/config"
	"github.com/procon/attendance-service/internal/domain"
	"github.com/procon/attendance-service/internal/repository/memory"
	"github.com/procon/attendance-service/internal/service"
	apperrors "github.com/procon/attendance-service/pkg/util"
)

// seedAdmin creates the bootstrap admin account when credentials are set.
func seedAdmin(ctx context.Context, authService *service.AuthService, cfg config.AuthConfig, logger *zap.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}
	_, err := authService.RegisterStaff(ctx, "Administrador", cfg.AdminEmail, cfg.AdminPassword, domain.StaffRoleAdmin)
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) && domainErr.Type == apperrors.TypeConflict {
		logger.Debug("admin account already present", zap.String("email", cfg.AdminEmail))
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("admin account created", zap.String("email", cfg.AdminEmail))
	return nil
}

// seedMemoryStore gives the in-memory store one sector with two points so
// the queue is usable without a database.
func seedMemoryStore(ctx context.Context, store *memory.Store) error {
	repos := store.Repositories()
	sector := &domain.Sector{Name: "Atendimento"}
	if err := repos.Sectors.Create(ctx, sector); err != nil {
		return err
	}
	for _, name := range []string{"Guichê 1", "Guichê 2"} {
		if err := repos.ServicePoints.Create(ctx, &domain.ServicePoint{Name: name, SectorID: sector.ID}); err != nil {
			return err
		}
	}
	return nil
}
