package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/procon/attendance-service/internal/domain"
	"github.com/procon/attendance-service/internal/events"
	"github.com/procon/attendance-service/internal/observability"
	"github.com/procon/attendance-service/internal/repository"
	apperrors "github.com/procon/attendance-service/pkg/util"
)

// Caller identifies the staff member performing an action.
type Caller struct {
	StaffID string
	Role    domain.StaffRole
}

// IsAdmin reports whether the caller may act on other staff's resources.
func (c Caller) IsAdmin() bool {
	return c.Role == domain.StaffRoleAdmin
}

func (c Caller) actor() events.Actor {
	return events.Actor{StaffID: c.StaffID, Role: c.Role}
}

// owns enforces that only the shift owner or an admin touches a shift.
func (c Caller) owns(op *domain.Operation) error {
	if op.UserID == c.StaffID || c.IsAdmin() {
		return nil
	}
	return apperrors.NewForbidden("operation belongs to another staff member")
}

func tracer() trace.Tracer {
	return otel.Tracer(observability.TracerName)
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func isConflict(err error) bool {
	return errors.Is(err, repository.ErrConflict)
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, now func() time.Time, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = now()
	}
	_ = dispatcher.Publish(ctx, event)
}

func clockOrNow(clock func() time.Time) func() time.Time {
	if clock == nil {
		return time.Now
	}
	return clock
}
