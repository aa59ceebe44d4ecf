package panel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procon/attendance-service/internal/domain"
)

func call(name string, at time.Time, priority domain.TicketPriority) domain.Call {
	return domain.Call{
		ClientName:       name,
		ServicePointName: "Guichê 1",
		SectorName:       "Atendimento",
		Priority:         priority,
		CalledAt:         at,
	}
}

func TestBuildRosterSortsAndTruncates(t *testing.T) {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	var calls []domain.Call
	for i, name := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		calls = append(calls, call(name, base.Add(time.Duration(i)*time.Minute), domain.TicketPriorityNormal))
	}

	roster := BuildRoster(calls, 5)

	require.Len(t, roster, 5)
	names := make([]string, 0, len(roster))
	for _, e := range roster {
		names = append(names, e.Nome)
	}
	assert.Equal(t, []string{"g", "f", "e", "d", "c"}, names)
}

func TestEntryFromCall(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 30, 5, 123_000_000, time.FixedZone("BRT", -3*3600))

	entry := EntryFromCall(call("Maria", at, domain.TicketPriorityPriority))

	assert.Equal(t, Entry{
		Nome:       "Maria",
		Guiche:     "Guichê 1 - Atendimento",
		ChamadoEm:  "2024-03-01T15:30:05.123Z",
		Prioridade: "Prioritário",
	}, entry)
	assert.Equal(t, "Comum", EntryFromCall(call("João", at, domain.TicketPriorityNormal)).Prioridade)
}

func TestBuildRosterIsIdempotent(t *testing.T) {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	calls := []domain.Call{
		call("x", base.Add(2*time.Minute), domain.TicketPriorityNormal),
		call("y", base.Add(2*time.Minute), domain.TicketPriorityNormal),
		call("z", base, domain.TicketPriorityPriority),
	}

	first := BuildRoster(calls, 5)
	second := BuildRoster(calls, 5)

	assert.Equal(t, first, second)
	assert.Equal(t, "x", first[0].Nome)
}

func TestDeviceCallFrom(t *testing.T) {
	latest := DeviceCallFrom(domain.Call{ClientName: "Ana", ServicePointName: "G2", SectorName: "S"})
	require.NotNil(t, latest)
	assert.Equal(t, DeviceCall{Nome: "Ana", Guiche: "G2 - S"}, *latest)
}
