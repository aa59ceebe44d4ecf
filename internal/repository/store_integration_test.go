package repository_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/procon/attendance-service/internal/domain"
	"github.com/procon/attendance-service/internal/persistence"
	"github.com/procon/attendance-service/internal/repository"
	"github.com/procon/attendance-service/internal/service"
	apperrors "github.com/procon/attendance-service/pkg/util"
)

// pgEnv runs against a throwaway schema of the database in TEST_DB_DSN.
type pgEnv struct {
	ctx   context.Context
	pool  *pgxpool.Pool
	store repository.Store
	repos repository.Repositories
}

func newPgEnv(t *testing.T) *pgEnv {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN is required for postgres integration tests")
	}
	ctx := context.Background()

	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	admin, err := pgx.Connect(ctx, dsn)
	require.NoError(t, err)
	_, err = admin.Exec(ctx, "CREATE SCHEMA "+schema)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = admin.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
		_ = admin.Close(context.Background())
	})

	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["search_path"] = schema + ",public"
	cfg.MaxConns = 16
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, persistence.RunMigrations(ctx, pool, "../../migrations", zap.NewNop()))

	store := repository.NewPostgresStore(pool)
	return &pgEnv{ctx: ctx, pool: pool, store: store, repos: store.Repositories()}
}

func (e *pgEnv) sector(t *testing.T, name string) *domain.Sector {
	t.Helper()
	sector := &domain.Sector{Name: name}
	require.NoError(t, e.repos.Sectors.Create(e.ctx, sector))
	return sector
}

func (e *pgEnv) point(t *testing.T, name, sectorID string) *domain.ServicePoint {
	t.Helper()
	point := &domain.ServicePoint{Name: name, SectorID: sectorID}
	require.NoError(t, e.repos.ServicePoints.Create(e.ctx, point))
	return point
}

func (e *pgEnv) client(t *testing.T, name string) *domain.Client {
	t.Helper()
	client := &domain.Client{Name: name}
	require.NoError(t, e.repos.Clients.Create(e.ctx, client))
	return client
}

func (e *pgEnv) attendant(t *testing.T) service.Caller {
	t.Helper()
	staff := &domain.StaffMember{
		Name:         "Atendente",
		Email:        uuid.NewString() + "@procon.test",
		PasswordHash: "x",
		Role:         domain.StaffRoleAttendant,
		Active:       true,
	}
	require.NoError(t, e.repos.Staff.Create(e.ctx, staff))
	return service.Caller{StaffID: staff.ID, Role: staff.Role}
}

func (e *pgEnv) ticket(t *testing.T, clientID, sectorID string, priority domain.TicketPriority, createdAt time.Time) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{ClientID: clientID, SectorID: sectorID, Priority: priority, CreatedAt: createdAt}
	require.NoError(t, e.repos.Tickets.Create(e.ctx, ticket))
	return ticket
}

func (e *pgEnv) nextPending(t *testing.T, sectorID string, policy domain.OrderingPolicy) (*domain.Ticket, error) {
	t.Helper()
	var ticket *domain.Ticket
	err := e.store.WithinTx(e.ctx, func(repos repository.Repositories) error {
		var err error
		ticket, err = repos.Tickets.NextPending(e.ctx, sectorID, policy)
		return err
	})
	return ticket, err
}

func TestPostgresCallNextSameOperationClaimsOnce(t *testing.T) {
	env := newPgEnv(t)
	sector := env.sector(t, "Atendimento")
	point := env.point(t, "Guichê 1", sector.ID)
	client := env.client(t, "Maria")
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		env.ticket(t, client.ID, sector.ID, domain.TicketPriorityNormal, base.Add(time.Duration(i)*time.Minute))
	}

	caller := env.attendant(t)
	operations := service.NewOperationService(service.OperationDependencies{Store: env.store})
	_, err := operations.Start(env.ctx, caller, point.ID)
	require.NoError(t, err)
	dispatch := service.NewDispatchService(service.DispatchDependencies{Store: env.store})

	const callers = 6
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		claimed []*domain.Treatment
		errs    []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			treatment, err := dispatch.CallNext(env.ctx, caller)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			claimed = append(claimed, treatment)
		}()
	}
	wg.Wait()

	require.Len(t, claimed, 1)
	require.Len(t, errs, callers-1)
	for _, err := range errs {
		assert.True(t, apperrors.IsType(err, apperrors.TypeTreatmentInProgress), "got %v", err)
	}

	pending, err := env.repos.Tickets.List(env.ctx, repository.TicketFilter{Statuses: []domain.TicketStatus{domain.TicketStatusPending}})
	require.NoError(t, err)
	assert.Len(t, pending, 3)
}

func TestPostgresCallNextAcrossCountersTakesDistinctTickets(t *testing.T) {
	env := newPgEnv(t)
	sector := env.sector(t, "Atendimento")
	client := env.client(t, "Maria")
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	const counters = 4
	operations := service.NewOperationService(service.OperationDependencies{Store: env.store})
	dispatch := service.NewDispatchService(service.DispatchDependencies{Store: env.store})
	callers := make([]service.Caller, 0, counters)
	for i := 0; i < counters; i++ {
		env.ticket(t, client.ID, sector.ID, domain.TicketPriorityNormal, base.Add(time.Duration(i)*time.Minute))
		point := env.point(t, "Guichê", sector.ID)
		caller := env.attendant(t)
		_, err := operations.Start(env.ctx, caller, point.ID)
		require.NoError(t, err)
		callers = append(callers, caller)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		tickets = map[string]bool{}
	)
	for _, caller := range callers {
		wg.Add(1)
		go func(caller service.Caller) {
			defer wg.Done()
			treatment, err := dispatch.CallNext(env.ctx, caller)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			tickets[treatment.TicketID] = true
			mu.Unlock()
		}(caller)
	}
	wg.Wait()

	assert.Len(t, tickets, counters)
	_, err := env.nextPending(t, sector.ID, domain.OrderingFIFO)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestPostgresNextPendingOrdering(t *testing.T) {
	env := newPgEnv(t)
	sector := env.sector(t, "Atendimento")
	client := env.client(t, "Maria")
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	oldest := env.ticket(t, client.ID, sector.ID, domain.TicketPriorityNormal, base)
	urgent := env.ticket(t, client.ID, sector.ID, domain.TicketPriorityPriority, base.Add(5*time.Minute))

	fifo, err := env.nextPending(t, sector.ID, domain.OrderingFIFO)
	require.NoError(t, err)
	assert.Equal(t, oldest.ID, fifo.ID)

	prioritized, err := env.nextPending(t, sector.ID, domain.OrderingPriority)
	require.NoError(t, err)
	assert.Equal(t, urgent.ID, prioritized.ID)
}

func TestPostgresNextPendingStaysInSector(t *testing.T) {
	env := newPgEnv(t)
	own := env.sector(t, "Atendimento")
	other := env.sector(t, "Fiscalização")
	client := env.client(t, "Maria")
	env.ticket(t, client.ID, other.ID, domain.TicketPriorityPriority, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))

	_, err := env.nextPending(t, own.ID, domain.OrderingPriority)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestPostgresClaimAndUniqueIndexes(t *testing.T) {
	env := newPgEnv(t)
	sector := env.sector(t, "Atendimento")
	point := env.point(t, "Guichê 1", sector.ID)
	other := env.point(t, "Guichê 2", sector.ID)

	require.NoError(t, env.repos.ServicePoints.Claim(env.ctx, point.ID))
	assert.ErrorIs(t, env.repos.ServicePoints.Claim(env.ctx, point.ID), repository.ErrConflict)
	assert.ErrorIs(t, env.repos.ServicePoints.Claim(env.ctx, uuid.NewString()), pgx.ErrNoRows)

	caller := env.attendant(t)
	require.NoError(t, env.repos.Operations.Create(env.ctx, &domain.Operation{UserID: caller.StaffID, ServicePointID: point.ID}))
	err := env.repos.Operations.Create(env.ctx, &domain.Operation{UserID: caller.StaffID, ServicePointID: other.ID})
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestPostgresListRecentCallsResolvesNames(t *testing.T) {
	env := newPgEnv(t)
	sector := env.sector(t, "Atendimento")
	point := env.point(t, "Guichê 1", sector.ID)
	maria := env.client(t, "Maria")
	joao := env.client(t, "Joao")
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	env.ticket(t, maria.ID, sector.ID, domain.TicketPriorityNormal, base)
	env.ticket(t, joao.ID, sector.ID, domain.TicketPriorityPriority, base.Add(time.Minute))

	caller := env.attendant(t)
	operations := service.NewOperationService(service.OperationDependencies{Store: env.store})
	_, err := operations.Start(env.ctx, caller, point.ID)
	require.NoError(t, err)
	dispatch := service.NewDispatchService(service.DispatchDependencies{Store: env.store})
	treatments := service.NewTreatmentService(service.TreatmentDependencies{Store: env.store})

	for i := 0; i < 2; i++ {
		treatment, err := dispatch.CallNext(env.ctx, caller)
		require.NoError(t, err)
		_, err = treatments.Finish(env.ctx, caller, treatment.ID, nil)
		require.NoError(t, err)
	}

	calls, err := env.repos.Treatments.ListRecentCalls(env.ctx, 5)
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, "Joao", calls[0].ClientName)
	assert.Equal(t, domain.TicketPriorityPriority, calls[0].Priority)
	assert.Equal(t, "Maria", calls[1].ClientName)
	assert.Equal(t, "Guichê 1 - Atendimento", calls[0].CounterLabel())
	assert.False(t, calls[0].CalledAt.Before(calls[1].CalledAt))
}

func TestPostgresWithinTxRollsBack(t *testing.T) {
	env := newPgEnv(t)
	boom := errors.New("boom")

	err := env.store.WithinTx(env.ctx, func(repos repository.Repositories) error {
		if err := repos.Sectors.Create(env.ctx, &domain.Sector{Name: "Temporário"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, env.pool.QueryRow(env.ctx, `SELECT COUNT(*) FROM sectors`).Scan(&count))
	assert.Zero(t, count)
}
