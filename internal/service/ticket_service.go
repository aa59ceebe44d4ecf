package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/procon/attendance-service/internal/domain"
	"github.com/procon/attendance-service/internal/events"
	"github.com/procon/attendance-service/internal/repository"
	apperrors "github.com/procon/attendance-service/pkg/util"
)

// TicketService coordinates ticket intake at the reception desk.
type TicketService struct {
	store      repository.Store
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for ticket intake.
type TicketDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
}

// TicketIssueInput describes a new ticket.
type TicketIssueInput struct {
	ClientID string
	SectorID string
	Priority domain.TicketPriority
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	Statuses []domain.TicketStatus
	SectorID *string
	Limit    int
	Offset   int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        clockOrNow(deps.Clock),
	}
}

// Issue creates a pending ticket for a client in a sector.
func (s *TicketService) Issue(ctx context.Context, caller Caller, input TicketIssueInput) (*domain.Ticket, error) {
	if !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("priority must be 0 or 1", map[string]any{"priority": input.Priority})
	}

	repos := s.store.Repositories()
	if _, err := repos.Sectors.GetByID(ctx, input.SectorID); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NewSectorNotFound(map[string]any{"sector_id": input.SectorID})
		}
		return nil, err
	}
	if _, err := repos.Clients.GetByID(ctx, input.ClientID); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NewNotFound("client", map[string]any{"client_id": input.ClientID})
		}
		return nil, err
	}

	ticket := &domain.Ticket{
		ClientID: input.ClientID,
		SectorID: input.SectorID,
		Status:   domain.TicketStatusPending,
		Priority: input.Priority,
	}
	if err := repos.Tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.logger.Info("ticket issued", zap.String("ticket_id", ticket.ID), zap.String("sector_id", ticket.SectorID))
	publishEvent(ctx, s.dispatcher, s.now, events.Event{
		Type:     events.EventTicketIssued,
		TicketID: ticket.ID,
		Actor:    caller.actor(),
		Payload: events.TicketIssuedPayload{
			ClientID: ticket.ClientID,
			SectorID: ticket.SectorID,
			Priority: ticket.Priority,
		},
	})
	return ticket, nil
}

// Cancel withdraws a pending ticket. Tickets already being served are
// cancelled through their treatment.
func (s *TicketService) Cancel(ctx context.Context, caller Caller, ticketID string) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		ticket, err = repos.Tickets.Lock(ctx, ticketID)
		if err != nil {
			if isNoRows(err) {
				return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
			}
			return err
		}
		if ticket.Status != domain.TicketStatusPending {
			return apperrors.NewTicketNotPending(map[string]any{"ticket_id": ticket.ID, "status": ticket.Status})
		}
		if err := repos.Tickets.UpdateStatus(ctx, ticket.ID, domain.TicketStatusCanceled); err != nil {
			return err
		}
		ticket.Status = domain.TicketStatusCanceled
		return nil
	})
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.dispatcher, s.now, events.Event{
		Type:     events.EventTicketCanceled,
		TicketID: ticket.ID,
		Actor:    caller.actor(),
	})
	return ticket, nil
}

// List returns tickets matching filter, oldest first.
func (s *TicketService) List(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	return s.store.Repositories().Tickets.List(ctx, repository.TicketFilter{
		Statuses: filter.Statuses,
		SectorID: filter.SectorID,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	})
}

// RegisterClient records a consumer at the reception desk.
func (s *TicketService) RegisterClient(ctx context.Context, name, document string) (*domain.Client, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	client := &domain.Client{Name: name, Document: strings.TrimSpace(document)}
	if err := s.store.Repositories().Clients.Create(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

// ListClients returns registered clients ordered by name.
func (s *TicketService) ListClients(ctx context.Context, limit, offset int) ([]domain.Client, error) {
	return s.store.Repositories().Clients.List(ctx, limit, offset)
}
