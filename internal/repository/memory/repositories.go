package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/procon/attendance-service/internal/domain"
	"github.com/procon/attendance-service/internal/repository"
)

type ticketRepo struct{ binding }

func (r ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	return r.run(func(st *state, now time.Time) error {
		if ticket.Status == "" {
			ticket.Status = domain.TicketStatusPending
		}
		ticket.ID = newID()
		if ticket.CreatedAt.IsZero() {
			ticket.CreatedAt = now
		}
		ticket.UpdatedAt = now
		st.tickets[ticket.ID] = *ticket
		return nil
	})
}

func (r ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	var out *domain.Ticket
	err := r.run(func(st *state, _ time.Time) error {
		ticket, ok := st.tickets[id]
		if !ok {
			return pgx.ErrNoRows
		}
		out = &ticket
		return nil
	})
	return out, err
}

func (r ticketRepo) Lock(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r ticketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := r.run(func(st *state, _ time.Time) error {
		for _, ticket := range st.tickets {
			if filter.SectorID != nil && ticket.SectorID != *filter.SectorID {
				continue
			}
			if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
				continue
			}
			out = append(out, ticket)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return paginate(out, filter.Limit, filter.Offset), nil
}

func (r ticketRepo) NextPending(_ context.Context, sectorID string, policy domain.OrderingPolicy) (*domain.Ticket, error) {
	var out *domain.Ticket
	err := r.run(func(st *state, _ time.Time) error {
		for _, ticket := range st.tickets {
			if ticket.Status != domain.TicketStatusPending || ticket.SectorID != sectorID {
				continue
			}
			if out == nil || ticketBefore(ticket, *out, policy) {
				candidate := ticket
				out = &candidate
			}
		}
		if out == nil {
			return pgx.ErrNoRows
		}
		return nil
	})
	return out, err
}

func ticketBefore(a, b domain.Ticket, policy domain.OrderingPolicy) bool {
	if policy == domain.OrderingPriority && a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func (r ticketRepo) UpdateStatus(_ context.Context, id string, status domain.TicketStatus) error {
	return r.run(func(st *state, now time.Time) error {
		ticket, ok := st.tickets[id]
		if !ok {
			return pgx.ErrNoRows
		}
		ticket.Status = status
		ticket.UpdatedAt = now
		st.tickets[id] = ticket
		return nil
	})
}

type operationRepo struct{ binding }

func (r operationRepo) Create(_ context.Context, op *domain.Operation) error {
	return r.run(func(st *state, now time.Time) error {
		if op.Status == "" {
			op.Status = domain.OperationStatusOperating
		}
		if op.Status == domain.OperationStatusOperating {
			for _, existing := range st.operations {
				if existing.Status != domain.OperationStatusOperating {
					continue
				}
				if existing.UserID == op.UserID {
					return fmt.Errorf("%w: operations_one_active_per_user", repository.ErrConflict)
				}
				if existing.ServicePointID == op.ServicePointID {
					return fmt.Errorf("%w: operations_one_active_per_point", repository.ErrConflict)
				}
			}
		}
		op.ID = newID()
		op.StartedAt = now
		op.UpdatedAt = now
		st.operations[op.ID] = *op
		return nil
	})
}

func (r operationRepo) GetByID(_ context.Context, id string) (*domain.Operation, error) {
	var out *domain.Operation
	err := r.run(func(st *state, _ time.Time) error {
		op, ok := st.operations[id]
		if !ok {
			return pgx.ErrNoRows
		}
		out = &op
		return nil
	})
	return out, err
}

func (r operationRepo) LockByID(ctx context.Context, id string) (*domain.Operation, error) {
	return r.GetByID(ctx, id)
}

func (r operationRepo) GetActiveByUser(_ context.Context, userID string) (*domain.Operation, error) {
	var out *domain.Operation
	err := r.run(func(st *state, _ time.Time) error {
		for _, op := range st.operations {
			if op.UserID != userID || op.Status != domain.OperationStatusOperating {
				continue
			}
			if out == nil || op.StartedAt.After(out.StartedAt) {
				candidate := op
				out = &candidate
			}
		}
		if out == nil {
			return pgx.ErrNoRows
		}
		return nil
	})
	return out, err
}

func (r operationRepo) LockActiveByUser(ctx context.Context, userID string) (*domain.Operation, error) {
	return r.GetActiveByUser(ctx, userID)
}

func (r operationRepo) UpdateStatus(_ context.Context, id string, status domain.OperationStatus) error {
	return r.run(func(st *state, now time.Time) error {
		op, ok := st.operations[id]
		if !ok {
			return pgx.ErrNoRows
		}
		op.Status = status
		op.UpdatedAt = now
		st.operations[id] = op
		return nil
	})
}

type treatmentRepo struct{ binding }

func (r treatmentRepo) Create(_ context.Context, treatment *domain.Treatment) error {
	return r.run(func(st *state, now time.Time) error {
		for _, existing := range st.treatments {
			if existing.Status != domain.TreatmentStatusInService {
				continue
			}
			if existing.OperationID == treatment.OperationID {
				return fmt.Errorf("%w: treatments_one_open_per_operation", repository.ErrConflict)
			}
			if existing.TicketID == treatment.TicketID {
				return fmt.Errorf("%w: treatments_one_open_per_ticket", repository.ErrConflict)
			}
		}
		treatment.ID = newID()
		treatment.Status = domain.TreatmentStatusInService
		treatment.CreatedAt = now
		treatment.UpdatedAt = now
		st.treatments[treatment.ID] = *treatment
		st.treatmentOrder = append(st.treatmentOrder, treatment.ID)
		return nil
	})
}

func (r treatmentRepo) GetByID(_ context.Context, id string) (*domain.Treatment, error) {
	var out *domain.Treatment
	err := r.run(func(st *state, _ time.Time) error {
		treatment, ok := st.treatments[id]
		if !ok {
			return pgx.ErrNoRows
		}
		out = &treatment
		return nil
	})
	return out, err
}

func (r treatmentRepo) LockByID(ctx context.Context, id string) (*domain.Treatment, error) {
	return r.GetByID(ctx, id)
}

func (r treatmentRepo) GetInServiceByOperation(_ context.Context, operationID string) (*domain.Treatment, error) {
	var out *domain.Treatment
	err := r.run(func(st *state, _ time.Time) error {
		for _, treatment := range st.treatments {
			if treatment.OperationID == operationID && treatment.Status == domain.TreatmentStatusInService {
				found := treatment
				out = &found
				return nil
			}
		}
		return pgx.ErrNoRows
	})
	return out, err
}

func (r treatmentRepo) Close(_ context.Context, id string, status domain.TreatmentStatus, durationMinutes int) error {
	return r.run(func(st *state, now time.Time) error {
		treatment, ok := st.treatments[id]
		if !ok || treatment.Status != domain.TreatmentStatusInService {
			return pgx.ErrNoRows
		}
		treatment.Status = status
		treatment.DurationMinutes = &durationMinutes
		treatment.UpdatedAt = now
		st.treatments[id] = treatment
		return nil
	})
}

func (r treatmentRepo) ListRecentCalls(_ context.Context, limit int) ([]domain.Call, error) {
	var out []domain.Call
	err := r.run(func(st *state, _ time.Time) error {
		ordered := make([]domain.Treatment, 0, len(st.treatmentOrder))
		for i := len(st.treatmentOrder) - 1; i >= 0; i-- {
			ordered = append(ordered, st.treatments[st.treatmentOrder[i]])
		}
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
		})
		if limit > 0 && len(ordered) > limit {
			ordered = ordered[:limit]
		}
		for _, treatment := range ordered {
			call := domain.Call{
				TreatmentID: treatment.ID,
				TicketID:    treatment.TicketID,
				CalledAt:    treatment.CreatedAt,
			}
			if ticket, ok := st.tickets[treatment.TicketID]; ok {
				call.Priority = ticket.Priority
				call.ClientName = st.clients[ticket.ClientID].Name
			}
			if op, ok := st.operations[treatment.OperationID]; ok {
				if point, ok := st.servicePoints[op.ServicePointID]; ok {
					call.ServicePointName = point.Name
					call.SectorName = st.sectors[point.SectorID].Name
				}
			}
			out = append(out, call)
		}
		return nil
	})
	return out, err
}

type resolutionRepo struct{ binding }

func (r resolutionRepo) Create(_ context.Context, resolution *domain.Resolution) error {
	if !resolution.Kind.Valid() {
		return fmt.Errorf("unknown resolution kind %q", resolution.Kind)
	}
	return r.run(func(st *state, now time.Time) error {
		for _, existing := range st.resolutions {
			if existing.TreatmentID == resolution.TreatmentID && existing.Kind == resolution.Kind {
				return fmt.Errorf("%w: %s treatment_id", repository.ErrConflict, resolution.Kind)
			}
		}
		resolution.ID = newID()
		resolution.CreatedAt = now
		st.resolutions[resolution.ID] = *resolution
		return nil
	})
}

func (r resolutionRepo) GetByTreatment(_ context.Context, treatmentID string) (*domain.Resolution, error) {
	var out *domain.Resolution
	err := r.run(func(st *state, _ time.Time) error {
		for _, resolution := range st.resolutions {
			if resolution.TreatmentID == treatmentID {
				found := resolution
				out = &found
				return nil
			}
		}
		return pgx.ErrNoRows
	})
	return out, err
}

type pauseRepo struct{ binding }

func (r pauseRepo) Create(_ context.Context, pause *domain.Pause) error {
	return r.run(func(st *state, now time.Time) error {
		pause.ID = newID()
		pause.CreatedAt = now
		st.pauses = append(st.pauses, *pause)
		return nil
	})
}

func (r pauseRepo) ListByOperation(_ context.Context, operationID string) ([]domain.Pause, error) {
	var out []domain.Pause
	err := r.run(func(st *state, _ time.Time) error {
		for _, pause := range st.pauses {
			if pause.OperationID == operationID {
				out = append(out, pause)
			}
		}
		return nil
	})
	return out, err
}

type servicePointRepo struct{ binding }

func (r servicePointRepo) Create(_ context.Context, point *domain.ServicePoint) error {
	return r.run(func(st *state, now time.Time) error {
		if point.Availability == "" {
			point.Availability = domain.AvailabilityFree
		}
		point.ID = newID()
		point.CreatedAt = now
		point.UpdatedAt = now
		st.servicePoints[point.ID] = *point
		return nil
	})
}

func (r servicePointRepo) GetByID(_ context.Context, id string) (*domain.ServicePoint, error) {
	var out *domain.ServicePoint
	err := r.run(func(st *state, _ time.Time) error {
		point, ok := st.servicePoints[id]
		if !ok {
			return pgx.ErrNoRows
		}
		out = &point
		return nil
	})
	return out, err
}

func (r servicePointRepo) List(_ context.Context) ([]domain.ServicePoint, error) {
	var out []domain.ServicePoint
	err := r.run(func(st *state, _ time.Time) error {
		for _, point := range st.servicePoints {
			out = append(out, point)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return strings.Compare(out[i].Name, out[j].Name) < 0 })
	return out, err
}

func (r servicePointRepo) Claim(_ context.Context, id string) error {
	return r.run(func(st *state, now time.Time) error {
		point, ok := st.servicePoints[id]
		if !ok {
			return pgx.ErrNoRows
		}
		if point.Availability != domain.AvailabilityFree {
			return repository.ErrConflict
		}
		point.Availability = domain.AvailabilityOperating
		point.UpdatedAt = now
		st.servicePoints[id] = point
		return nil
	})
}

func (r servicePointRepo) SetAvailability(_ context.Context, id string, availability domain.Availability) error {
	return r.run(func(st *state, now time.Time) error {
		point, ok := st.servicePoints[id]
		if !ok {
			return pgx.ErrNoRows
		}
		point.Availability = availability
		point.UpdatedAt = now
		st.servicePoints[id] = point
		return nil
	})
}

type sectorRepo struct{ binding }

func (r sectorRepo) Create(_ context.Context, sector *domain.Sector) error {
	return r.run(func(st *state, now time.Time) error {
		sector.ID = newID()
		sector.CreatedAt = now
		st.sectors[sector.ID] = *sector
		return nil
	})
}

func (r sectorRepo) GetByID(_ context.Context, id string) (*domain.Sector, error) {
	var out *domain.Sector
	err := r.run(func(st *state, _ time.Time) error {
		sector, ok := st.sectors[id]
		if !ok {
			return pgx.ErrNoRows
		}
		out = &sector
		return nil
	})
	return out, err
}

type clientRepo struct{ binding }

func (r clientRepo) Create(_ context.Context, client *domain.Client) error {
	return r.run(func(st *state, now time.Time) error {
		client.ID = newID()
		client.CreatedAt = now
		st.clients[client.ID] = *client
		return nil
	})
}

func (r clientRepo) GetByID(_ context.Context, id string) (*domain.Client, error) {
	var out *domain.Client
	err := r.run(func(st *state, _ time.Time) error {
		client, ok := st.clients[id]
		if !ok {
			return pgx.ErrNoRows
		}
		out = &client
		return nil
	})
	return out, err
}

func (r clientRepo) List(_ context.Context, limit, offset int) ([]domain.Client, error) {
	var out []domain.Client
	err := r.run(func(st *state, _ time.Time) error {
		for _, client := range st.clients {
			out = append(out, client)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, limit, offset), nil
}

type staffRepo struct{ binding }

func (r staffRepo) Create(_ context.Context, staff *domain.StaffMember) error {
	return r.run(func(st *state, now time.Time) error {
		for _, existing := range st.staff {
			if strings.EqualFold(existing.Email, staff.Email) {
				return fmt.Errorf("%w: staff_members_email_key", repository.ErrConflict)
			}
		}
		staff.ID = newID()
		staff.CreatedAt = now
		staff.UpdatedAt = now
		st.staff[staff.ID] = *staff
		return nil
	})
}

func (r staffRepo) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	var out *domain.StaffMember
	err := r.run(func(st *state, _ time.Time) error {
		staff, ok := st.staff[id]
		if !ok {
			return pgx.ErrNoRows
		}
		out = &staff
		return nil
	})
	return out, err
}

func (r staffRepo) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	var out *domain.StaffMember
	err := r.run(func(st *state, _ time.Time) error {
		for _, staff := range st.staff {
			if strings.EqualFold(staff.Email, email) {
				found := staff
				out = &found
				return nil
			}
		}
		return pgx.ErrNoRows
	})
	return out, err
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
