package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procon/attendance-service/internal/domain"
	apperrors "github.com/procon/attendance-service/pkg/util"
)

func claimOne(t *testing.T, env *testEnv) (shift, *domain.Treatment) {
	t.Helper()
	s := env.openShift(t, "Atendimento", "ana@procon.test")
	client := env.client(t, "Maria")
	env.ticket(t, client.ID, s.sector.ID, domain.TicketPriorityNormal, env.at(8, 0))
	treatment, err := env.dispatch.CallNext(env.ctx, s.caller)
	require.NoError(t, err)
	return s, treatment
}

func TestFinishComputesFlooredDuration(t *testing.T) {
	env := newTestEnv(t)
	s, treatment := claimOne(t, env)
	env.clock.Advance(125 * time.Second)

	outcome, err := env.treatments.Finish(env.ctx, s.caller, treatment.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, outcome.Treatment.DurationMinutes)
	assert.Equal(t, 2, *outcome.Treatment.DurationMinutes)
	assert.Equal(t, domain.TreatmentStatusFinished, outcome.Treatment.Status)
	assert.Nil(t, outcome.Resolution)

	stored, err := env.repos.Treatments.GetByID(env.ctx, treatment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TreatmentStatusFinished, stored.Status)
	require.NotNil(t, stored.DurationMinutes)
	assert.Equal(t, 2, *stored.DurationMinutes)
	assert.Equal(t, domain.TicketStatusFinished, env.ticketStatus(t, treatment.TicketID))
}

func TestFinishFilesResolutionWithClosure(t *testing.T) {
	env := newTestEnv(t)
	s, treatment := claimOne(t, env)
	file := "uploads/auth-123.pdf"

	outcome, err := env.treatments.Finish(env.ctx, s.caller, treatment.ID, &ResolutionInput{
		Kind:              domain.ResolutionComplaint,
		CaseNumber:        " 2024-001 ",
		AuthorizationFile: &file,
	})
	require.NoError(t, err)
	require.NotNil(t, outcome.Resolution)
	assert.Equal(t, "2024-001", outcome.Resolution.CaseNumber)

	stored, err := env.repos.Resolutions.GetByTreatment(env.ctx, treatment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ResolutionComplaint, stored.Kind)
	require.NotNil(t, stored.AuthorizationFile)
	assert.Equal(t, file, *stored.AuthorizationFile)
}

func TestFinishRejectsSecondResolutionAndKeepsTreatmentOpen(t *testing.T) {
	env := newTestEnv(t)
	s, treatment := claimOne(t, env)
	require.NoError(t, env.repos.Resolutions.Create(env.ctx, &domain.Resolution{
		TreatmentID: treatment.ID, Kind: domain.ResolutionConsultation, CaseNumber: "x",
	}))

	_, err := env.treatments.Finish(env.ctx, s.caller, treatment.ID, &ResolutionInput{
		Kind: domain.ResolutionDenunciation, CaseNumber: "y",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.TypeResolutionExists))

	stored, err := env.repos.Treatments.GetByID(env.ctx, treatment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TreatmentStatusInService, stored.Status)
}

func TestFinishValidatesResolution(t *testing.T) {
	env := newTestEnv(t)
	s, treatment := claimOne(t, env)

	_, err := env.treatments.Finish(env.ctx, s.caller, treatment.ID, &ResolutionInput{Kind: "appeal", CaseNumber: "1"})
	assert.True(t, apperrors.IsType(err, apperrors.TypeValidation))

	_, err = env.treatments.Finish(env.ctx, s.caller, treatment.ID, &ResolutionInput{Kind: domain.ResolutionComplaint})
	assert.True(t, apperrors.IsType(err, apperrors.TypeValidation))
}

func TestFinishTwiceIsNotInService(t *testing.T) {
	env := newTestEnv(t)
	s, treatment := claimOne(t, env)

	_, err := env.treatments.Finish(env.ctx, s.caller, treatment.ID, nil)
	require.NoError(t, err)

	_, err = env.treatments.Finish(env.ctx, s.caller, treatment.ID, nil)
	assert.True(t, apperrors.IsType(err, apperrors.TypeTreatmentNotInService))
	_, err = env.treatments.Cancel(env.ctx, s.caller, treatment.ID)
	assert.True(t, apperrors.IsType(err, apperrors.TypeTreatmentNotInService))
}

func TestCancelMirrorsTicketAndLogsPause(t *testing.T) {
	env := newTestEnv(t)
	s, treatment := claimOne(t, env)
	env.clock.Advance(5 * time.Minute)

	cancelled, err := env.treatments.Cancel(env.ctx, s.caller, treatment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TreatmentStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.DurationMinutes)
	assert.Equal(t, 5, *cancelled.DurationMinutes)
	assert.Equal(t, domain.TicketStatusCanceled, env.ticketStatus(t, treatment.TicketID))

	pauses, err := env.repos.Pauses.ListByOperation(env.ctx, s.op.ID)
	require.NoError(t, err)
	require.Len(t, pauses, 1)
	assert.Equal(t, domain.PauseReasonCancelledService, pauses[0].Reason)

	_, err = env.repos.Resolutions.GetByTreatment(env.ctx, treatment.ID)
	assert.Error(t, err)
}

func TestTreatmentActionsRequireOwnership(t *testing.T) {
	env := newTestEnv(t)
	_, treatment := claimOne(t, env)
	stranger := env.staff(t, "other@procon.test", domain.StaffRoleAttendant)
	admin := env.staff(t, "admin@procon.test", domain.StaffRoleAdmin)

	_, err := env.treatments.Cancel(env.ctx, stranger, treatment.ID)
	assert.True(t, apperrors.IsType(err, apperrors.TypeForbidden))

	_, err = env.treatments.Finish(env.ctx, admin, treatment.ID, nil)
	assert.NoError(t, err)
}

func TestCloseUnknownTreatment(t *testing.T) {
	env := newTestEnv(t)
	caller := env.staff(t, "ana@procon.test", domain.StaffRoleAttendant)

	_, err := env.treatments.Finish(env.ctx, caller, "missing", nil)
	assert.True(t, apperrors.IsType(err, apperrors.TypeNotFound))
}

func TestTreatmentWithMissingOperationIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	caller := env.staff(t, "ana@procon.test", domain.StaffRoleAdmin)
	orphan := &domain.Treatment{TicketID: "ticket-gone", OperationID: "operation-gone"}
	require.NoError(t, env.repos.Treatments.Create(env.ctx, orphan))

	_, err := env.treatments.Get(env.ctx, caller, orphan.ID)
	require.True(t, apperrors.IsType(err, apperrors.TypeNotFound), "got %v", err)
	assert.Equal(t, "operation-gone", apperrors.ToDomainError(err).Details["operation_id"])

	_, err = env.treatments.Cancel(env.ctx, caller, orphan.ID)
	assert.True(t, apperrors.IsType(err, apperrors.TypeNotFound), "got %v", err)
}
