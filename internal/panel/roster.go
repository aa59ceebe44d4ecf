// Package panel fans the "now calling" state out to the public display
// panel: an HTTP webhook, a single physical device, the WebSocket hub and
// the Redis cache/channel shared by replicas.
package panel

import (
	"sort"
	"time"

	"github.com/procon/attendance-service/internal/domain"
)

// TimestampLayout is the ISO-8601 form the panel expects for chamadoEm.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Entry is one roster line as rendered by the panel.
type Entry struct {
	Nome       string `json:"nome"`
	Guiche     string `json:"guiche"`
	ChamadoEm  string `json:"chamadoEm"`
	Prioridade string `json:"prioridade"`
}

// DeviceCall is the minimal payload for the single physical device.
type DeviceCall struct {
	Nome   string `json:"nome"`
	Guiche string `json:"guiche"`
}

// Update is what a sink receives. Latest is only set when a ticket was
// actually called; periodic refreshes carry the roster alone.
type Update struct {
	Roster []Entry
	Latest *DeviceCall
}

type rosterItem struct {
	entry    Entry
	calledAt time.Time
}

// BuildRoster resolves calls into entries, re-sorts them newest first and
// keeps at most size of them. The input order breaks timestamp ties.
func BuildRoster(calls []domain.Call, size int) []Entry {
	items := make([]rosterItem, 0, len(calls))
	for _, call := range calls {
		items = append(items, rosterItem{entry: EntryFromCall(call), calledAt: call.CalledAt})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].calledAt.After(items[j].calledAt)
	})
	if size > 0 && len(items) > size {
		items = items[:size]
	}

	roster := make([]Entry, 0, len(items))
	for _, item := range items {
		roster = append(roster, item.entry)
	}
	return roster
}

// EntryFromCall renders a single call.
func EntryFromCall(call domain.Call) Entry {
	return Entry{
		Nome:       call.ClientName,
		Guiche:     call.CounterLabel(),
		ChamadoEm:  call.CalledAt.UTC().Format(TimestampLayout),
		Prioridade: call.Priority.Label(),
	}
}

// DeviceCallFrom renders the single-call device payload for one claim.
func DeviceCallFrom(call domain.Call) *DeviceCall {
	return &DeviceCall{Nome: call.ClientName, Guiche: call.CounterLabel()}
}
