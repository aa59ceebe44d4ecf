package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/procon/attendance-service/internal/domain"
	"github.com/procon/attendance-service/internal/events"
	"github.com/procon/attendance-service/internal/repository"
	"github.com/procon/attendance-service/internal/repository/memory"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	ctx        context.Context
	clock      *testClock
	store      *memory.Store
	repos      repository.Repositories
	dispatcher events.Dispatcher

	dispatch   *DispatchService
	operations *OperationService
	treatments *TreatmentService
	tickets    *TicketService
}

type envOptions struct {
	ordering     domain.OrderingPolicy
	finishPolicy domain.FinishPolicy
}

type envOption func(*envOptions)

func withOrdering(policy domain.OrderingPolicy) envOption {
	return func(o *envOptions) { o.ordering = policy }
}

func withFinishPolicy(policy domain.FinishPolicy) envOption {
	return func(o *envOptions) { o.finishPolicy = policy }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	options := envOptions{ordering: domain.OrderingFIFO, finishPolicy: domain.FinishPolicyReject}
	for _, opt := range opts {
		opt(&options)
	}

	clock := &testClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := memory.New(memory.WithClock(clock.Now))
	dispatcher := events.NewInMemoryDispatcher(nil)

	return &testEnv{
		ctx:        context.Background(),
		clock:      clock,
		store:      store,
		repos:      store.Repositories(),
		dispatcher: dispatcher,
		dispatch: NewDispatchService(DispatchDependencies{
			Store: store, Dispatcher: dispatcher, Ordering: options.ordering, Clock: clock.Now,
		}),
		operations: NewOperationService(OperationDependencies{
			Store: store, Dispatcher: dispatcher, FinishPolicy: options.finishPolicy, Clock: clock.Now,
		}),
		treatments: NewTreatmentService(TreatmentDependencies{
			Store: store, Dispatcher: dispatcher, Clock: clock.Now,
		}),
		tickets: NewTicketService(TicketDependencies{
			Store: store, Dispatcher: dispatcher, Clock: clock.Now,
		}),
	}
}

func (e *testEnv) sector(t *testing.T, name string) *domain.Sector {
	t.Helper()
	sector := &domain.Sector{Name: name}
	require.NoError(t, e.repos.Sectors.Create(e.ctx, sector))
	return sector
}

func (e *testEnv) servicePoint(t *testing.T, name, sectorID string) *domain.ServicePoint {
	t.Helper()
	point := &domain.ServicePoint{Name: name, SectorID: sectorID}
	require.NoError(t, e.repos.ServicePoints.Create(e.ctx, point))
	return point
}

func (e *testEnv) client(t *testing.T, name string) *domain.Client {
	t.Helper()
	client := &domain.Client{Name: name}
	require.NoError(t, e.repos.Clients.Create(e.ctx, client))
	return client
}

func (e *testEnv) staff(t *testing.T, email string, role domain.StaffRole) Caller {
	t.Helper()
	staff := &domain.StaffMember{Name: email, Email: email, Role: role, Active: true}
	require.NoError(t, e.repos.Staff.Create(e.ctx, staff))
	return Caller{StaffID: staff.ID, Role: staff.Role}
}

func (e *testEnv) ticket(t *testing.T, clientID, sectorID string, priority domain.TicketPriority, createdAt time.Time) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{ClientID: clientID, SectorID: sectorID, Priority: priority, CreatedAt: createdAt}
	require.NoError(t, e.repos.Tickets.Create(e.ctx, ticket))
	return ticket
}

func (e *testEnv) ticketStatus(t *testing.T, id string) domain.TicketStatus {
	t.Helper()
	ticket, err := e.repos.Tickets.GetByID(e.ctx, id)
	require.NoError(t, err)
	return ticket.Status
}

func (e *testEnv) at(hour, minute int) time.Time {
	return time.Date(2024, 3, 1, hour, minute, 0, 0, time.UTC)
}

// shift seeds a sector with one service point and an attendant operating it.
type shift struct {
	sector *domain.Sector
	point  *domain.ServicePoint
	caller Caller
	op     *domain.Operation
}

func (e *testEnv) openShift(t *testing.T, sectorName, email string) shift {
	t.Helper()
	sector := e.sector(t, sectorName)
	point := e.servicePoint(t, "Guichê "+sectorName, sector.ID)
	caller := e.staff(t, email, domain.StaffRoleAttendant)
	op, err := e.operations.Start(e.ctx, caller, point.ID)
	require.NoError(t, err)
	return shift{sector: sector, point: point, caller: caller, op: op}
}
