package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/procon/attendance-service/internal/domain"
	"github.com/procon/attendance-service/internal/events"
	"github.com/procon/attendance-service/internal/panel"
	"github.com/procon/attendance-service/internal/repository"
)

// RosterCache serves the last published roster without touching the store.
type RosterCache interface {
	Cached(ctx context.Context) ([]panel.Entry, bool, error)
}

// PanelService recomputes the "last called" roster from durable state and
// hands it to the panel publisher.
type PanelService struct {
	store       repository.Store
	publisher   *panel.Publisher
	cache       RosterCache
	dispatcher  events.Dispatcher
	rosterSize  int
	historySize int
	logger      *zap.Logger
}

// PanelDependencies bundles collaborators for the panel service.
type PanelDependencies struct {
	Store       repository.Store
	Publisher   *panel.Publisher
	Cache       RosterCache
	Dispatcher  events.Dispatcher
	RosterSize  int
	HistorySize int
	Logger      *zap.Logger
}

// NewPanelService creates the service.
func NewPanelService(deps PanelDependencies) *PanelService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rosterSize := deps.RosterSize
	if rosterSize <= 0 {
		rosterSize = 5
	}
	historySize := deps.HistorySize
	if historySize < rosterSize {
		historySize = rosterSize
	}
	return &PanelService{
		store:       deps.Store,
		publisher:   deps.Publisher,
		cache:       deps.Cache,
		dispatcher:  deps.Dispatcher,
		rosterSize:  rosterSize,
		historySize: historySize,
		logger:      logger,
	}
}

// RegisterHandlers subscribes to events.
func (p *PanelService) RegisterHandlers() {
	if p.dispatcher == nil {
		return
	}
	p.dispatcher.Subscribe(events.EventTicketCalled, p.handleTicketCalled)
}

func (p *PanelService) handleTicketCalled(ctx context.Context, event events.Event) error {
	p.logger.Debug("TicketCalled", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	payload, ok := event.Payload.(events.TicketCalledPayload)
	if !ok {
		p.logger.Warn("ticket called event without call payload", zap.String("ticket_id", event.TicketID))
		p.Refresh(ctx)
		return nil
	}
	p.PublishCall(ctx, domain.Call{
		TreatmentID:      payload.TreatmentID,
		TicketID:         event.TicketID,
		ClientName:       payload.ClientName,
		ServicePointName: payload.ServicePointName,
		SectorName:       payload.SectorName,
	})
	return nil
}

// BuildRoster reads the latest calls and renders the roster, newest first.
func (p *PanelService) BuildRoster(ctx context.Context) ([]panel.Entry, error) {
	calls, err := p.store.Repositories().Treatments.ListRecentCalls(ctx, p.historySize)
	if err != nil {
		return nil, err
	}
	return panel.BuildRoster(calls, p.rosterSize), nil
}

// PublishCall pushes the roster plus the device payload for call, the
// claim just committed. Failures are logged, never returned.
func (p *PanelService) PublishCall(ctx context.Context, call domain.Call) []panel.Entry {
	return p.publish(ctx, panel.DeviceCallFrom(call))
}

// Refresh re-pushes the roster alone; the device only hears real calls.
func (p *PanelService) Refresh(ctx context.Context) []panel.Entry {
	return p.publish(ctx, nil)
}

func (p *PanelService) publish(ctx context.Context, latest *panel.DeviceCall) []panel.Entry {
	ctx, span := tracer().Start(ctx, "PanelService.Publish")
	defer span.End()
	span.SetAttributes(attribute.Bool("panel.with_device", latest != nil))

	roster, err := p.BuildRoster(ctx)
	if err != nil {
		span.RecordError(err)
		p.logger.Error("unable to build panel roster", zap.Error(err))
		return nil
	}

	update := panel.Update{Roster: roster, Latest: latest}
	if p.publisher != nil {
		p.publisher.Publish(ctx, update)
	}
	return roster
}

// LastCalled serves the roster for the public endpoint, preferring the cache.
func (p *PanelService) LastCalled(ctx context.Context) ([]panel.Entry, error) {
	if p.cache != nil {
		roster, ok, err := p.cache.Cached(ctx)
		if err != nil {
			p.logger.Warn("panel cache read failed; recomputing", zap.Error(err))
		} else if ok {
			return roster, nil
		}
	}
	return p.BuildRoster(ctx)
}
