// Package memory is an in-process implementation of the repository layer.
// It backs local runs without POSTGRES_DSN and the service tests. A
// transaction holds the store lock for its whole duration and restores a
// snapshot when it fails, so units of work are serialized and all-or-nothing.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/procon/attendance-service/internal/domain"
	"github.com/procon/attendance-service/internal/repository"
)

type state struct {
	tickets        map[string]domain.Ticket
	operations     map[string]domain.Operation
	treatments     map[string]domain.Treatment
	treatmentOrder []string
	resolutions    map[string]domain.Resolution
	pauses         []domain.Pause
	servicePoints  map[string]domain.ServicePoint
	sectors        map[string]domain.Sector
	clients        map[string]domain.Client
	staff          map[string]domain.StaffMember
}

func newState() *state {
	return &state{
		tickets:       map[string]domain.Ticket{},
		operations:    map[string]domain.Operation{},
		treatments:    map[string]domain.Treatment{},
		resolutions:   map[string]domain.Resolution{},
		servicePoints: map[string]domain.ServicePoint{},
		sectors:       map[string]domain.Sector{},
		clients:       map[string]domain.Client{},
		staff:         map[string]domain.StaffMember{},
	}
}

func (st *state) clone() *state {
	cp := newState()
	for k, v := range st.tickets {
		cp.tickets[k] = v
	}
	for k, v := range st.operations {
		cp.operations[k] = v
	}
	for k, v := range st.treatments {
		cp.treatments[k] = v
	}
	cp.treatmentOrder = append([]string(nil), st.treatmentOrder...)
	for k, v := range st.resolutions {
		cp.resolutions[k] = v
	}
	cp.pauses = append([]domain.Pause(nil), st.pauses...)
	for k, v := range st.servicePoints {
		cp.servicePoints[k] = v
	}
	for k, v := range st.sectors {
		cp.sectors[k] = v
	}
	for k, v := range st.clients {
		cp.clients[k] = v
	}
	for k, v := range st.staff {
		cp.staff[k] = v
	}
	return cp
}

// Store is a repository.Store kept in memory.
type Store struct {
	mu    sync.Mutex
	clock func() time.Time
	data  *state

	repos   repository.Repositories
	txRepos repository.Repositories
}

// Option customizes a Store.
type Option func(*Store)

// WithClock sets the time source used for created/updated timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{clock: time.Now, data: newState()}
	for _, opt := range opts {
		opt(s)
	}
	s.repos = s.bind(false)
	s.txRepos = s.bind(true)
	return s
}

// SetClock replaces the time source.
func (s *Store) SetClock(clock func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
}

func (s *Store) bind(inTx bool) repository.Repositories {
	b := binding{s: s, inTx: inTx}
	return repository.Repositories{
		Tickets:       ticketRepo{b},
		Operations:    operationRepo{b},
		Treatments:    treatmentRepo{b},
		Resolutions:   resolutionRepo{b},
		Pauses:        pauseRepo{b},
		ServicePoints: servicePointRepo{b},
		Sectors:       sectorRepo{b},
		Clients:       clientRepo{b},
		Staff:         staffRepo{b},
	}
}

// Repositories returns repositories that each lock the store per call.
func (s *Store) Repositories() repository.Repositories {
	return s.repos
}

// WithinTx runs fn with exclusive access to the store.
func (s *Store) WithinTx(ctx context.Context, fn func(repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(s.txRepos); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

type binding struct {
	s    *Store
	inTx bool
}

func (b binding) run(fn func(st *state, now time.Time) error) error {
	if !b.inTx {
		b.s.mu.Lock()
		defer b.s.mu.Unlock()
	}
	return fn(b.s.data, b.s.clock())
}

func newID() string {
	return uuid.NewString()
}
