package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procon/attendance-service/internal/config"
	"github.com/procon/attendance-service/internal/domain"
	apperrors "github.com/procon/attendance-service/pkg/util"
)

func TestLoginStaff(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAuthService(config.AuthConfig{JWTSecret: "secret", AccessTokenTTLMinutes: 5, BcryptCost: 4}, env.repos.Staff)

	staff, err := svc.RegisterStaff(env.ctx, "Ana", "ana@procon.test", "s3cret", domain.StaffRoleAttendant)
	require.NoError(t, err)

	_, err = svc.RegisterStaff(env.ctx, "Ana", "ANA@procon.test", "x", domain.StaffRoleAttendant)
	assert.True(t, apperrors.IsType(err, apperrors.TypeConflict))
	_, err = svc.RegisterStaff(env.ctx, "Bob", "bob@procon.test", "x", "JANITOR")
	assert.True(t, apperrors.IsType(err, apperrors.TypeValidation))

	logged, token, _, err := svc.LoginStaff(env.ctx, "Ana@Procon.test", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, staff.ID, logged.ID)

	claims, err := svc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, staff.ID, claims.StaffID())
	assert.Equal(t, domain.StaffRoleAttendant, claims.Role)

	_, _, _, err = svc.LoginStaff(env.ctx, "ana@procon.test", "wrong")
	assert.True(t, apperrors.IsType(err, apperrors.TypeUnauthorized))
	_, _, _, err = svc.LoginStaff(env.ctx, "nobody@procon.test", "s3cret")
	assert.True(t, apperrors.IsType(err, apperrors.TypeUnauthorized))
}
