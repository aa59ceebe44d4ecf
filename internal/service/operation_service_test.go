package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procon/attendance-service/internal/domain"
	apperrors "github.com/procon/attendance-service/pkg/util"
)

func availability(t *testing.T, env *testEnv, pointID string) domain.Availability {
	t.Helper()
	point, err := env.repos.ServicePoints.GetByID(env.ctx, pointID)
	require.NoError(t, err)
	return point.Availability
}

func TestOperationLifecycleMirrorsAvailability(t *testing.T) {
	env := newTestEnv(t)
	sector := env.sector(t, "Atendimento")
	point := env.servicePoint(t, "Guichê 1", sector.ID)
	untouched := env.servicePoint(t, "Guichê 2", sector.ID)
	caller := env.staff(t, "ana@procon.test", domain.StaffRoleAttendant)
	assert.Equal(t, domain.AvailabilityFree, availability(t, env, point.ID))

	op, err := env.operations.Start(env.ctx, caller, point.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OperationStatusOperating, op.Status)
	assert.Equal(t, domain.AvailabilityOperating, availability(t, env, point.ID))

	active, err := env.operations.Active(env.ctx, caller)
	require.NoError(t, err)
	assert.Equal(t, op.ID, active.ID)

	finished, err := env.operations.Finish(env.ctx, caller, op.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OperationStatusFinished, finished.Status)
	assert.Equal(t, domain.AvailabilityFree, availability(t, env, point.ID))
	assert.Equal(t, domain.AvailabilityFree, availability(t, env, untouched.ID))

	_, err = env.operations.Active(env.ctx, caller)
	assert.True(t, apperrors.IsType(err, apperrors.TypeNoActiveOperation))
	_, err = env.operations.Finish(env.ctx, caller, op.ID)
	assert.True(t, apperrors.IsType(err, apperrors.TypeOperationNotActive))
}

func TestStartRejectsDoubleBooking(t *testing.T) {
	env := newTestEnv(t)
	s := env.openShift(t, "Atendimento", "ana@procon.test")
	other := env.servicePoint(t, "Guichê 2", s.sector.ID)
	colleague := env.staff(t, "bia@procon.test", domain.StaffRoleAttendant)

	_, err := env.operations.Start(env.ctx, s.caller, other.ID)
	assert.True(t, apperrors.IsType(err, apperrors.TypeOperationAlreadyActive))
	assert.Equal(t, domain.AvailabilityFree, availability(t, env, other.ID))

	_, err = env.operations.Start(env.ctx, colleague, s.point.ID)
	assert.True(t, apperrors.IsType(err, apperrors.TypeServicePointOccupied))

	_, err = env.operations.Start(env.ctx, colleague, "missing")
	assert.True(t, apperrors.IsType(err, apperrors.TypeServicePointNotFound))

	_, err = env.operations.Start(env.ctx, colleague, "")
	assert.True(t, apperrors.IsType(err, apperrors.TypeValidation))
}

func TestFinishRejectsOpenTreatmentByDefault(t *testing.T) {
	env := newTestEnv(t)
	s, treatment := claimOne(t, env)

	_, err := env.operations.Finish(env.ctx, s.caller, s.op.ID)
	assert.True(t, apperrors.IsType(err, apperrors.TypeTreatmentInProgress))
	assert.Equal(t, domain.AvailabilityOperating, availability(t, env, s.point.ID))

	stored, err := env.repos.Treatments.GetByID(env.ctx, treatment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TreatmentStatusInService, stored.Status)
}

func TestFinishCancelPolicyCascades(t *testing.T) {
	env := newTestEnv(t, withFinishPolicy(domain.FinishPolicyCancel))
	s, treatment := claimOne(t, env)

	_, err := env.operations.Finish(env.ctx, s.caller, s.op.ID)
	require.NoError(t, err)

	stored, err := env.repos.Treatments.GetByID(env.ctx, treatment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TreatmentStatusCancelled, stored.Status)
	assert.Equal(t, domain.TicketStatusCanceled, env.ticketStatus(t, treatment.TicketID))
	assert.Equal(t, domain.AvailabilityFree, availability(t, env, s.point.ID))

	pauses, err := env.repos.Pauses.ListByOperation(env.ctx, s.op.ID)
	require.NoError(t, err)
	require.Len(t, pauses, 1)
	assert.Equal(t, domain.PauseReasonCancelledService, pauses[0].Reason)
}

func TestFinishRequiresOwnerOrAdmin(t *testing.T) {
	env := newTestEnv(t)
	s := env.openShift(t, "Atendimento", "ana@procon.test")
	stranger := env.staff(t, "bia@procon.test", domain.StaffRoleAttendant)
	admin := env.staff(t, "admin@procon.test", domain.StaffRoleAdmin)

	_, err := env.operations.Finish(env.ctx, stranger, s.op.ID)
	assert.True(t, apperrors.IsType(err, apperrors.TypeForbidden))

	_, err = env.operations.Finish(env.ctx, admin, s.op.ID)
	assert.NoError(t, err)
}

func TestRecordPause(t *testing.T) {
	env := newTestEnv(t)
	s := env.openShift(t, "Atendimento", "ana@procon.test")

	_, err := env.operations.RecordPause(env.ctx, s.caller, s.op.ID, "  ")
	assert.True(t, apperrors.IsType(err, apperrors.TypeValidation))

	pause, err := env.operations.RecordPause(env.ctx, s.caller, s.op.ID, "coffee")
	require.NoError(t, err)
	assert.Equal(t, "coffee", pause.Reason)

	pauses, err := env.operations.ListPauses(env.ctx, s.caller, s.op.ID)
	require.NoError(t, err)
	assert.Len(t, pauses, 1)

	_, err = env.operations.Finish(env.ctx, s.caller, s.op.ID)
	require.NoError(t, err)
	_, err = env.operations.RecordPause(env.ctx, s.caller, s.op.ID, "late")
	assert.True(t, apperrors.IsType(err, apperrors.TypeOperationNotActive))
}
