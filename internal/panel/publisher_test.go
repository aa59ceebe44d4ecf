package panel

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/procon/attendance-service/internal/observability"
)

type fakeSink struct {
	name    string
	err     error
	updates []Update
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Push(_ context.Context, update Update) error {
	f.updates = append(f.updates, update)
	return f.err
}

func TestPublisherDeliversToEverySinkDespiteFailures(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	metrics := observability.NewMetrics()
	broken := &fakeSink{name: "webhook", err: errors.New("connection refused")}
	healthy := &fakeSink{name: "websocket"}
	disabled := &fakeSink{name: "device", err: ErrSinkDisabled}

	p := NewPublisher(zap.New(core), metrics, broken, disabled, healthy)
	p.Publish(context.Background(), Update{Roster: []Entry{{Nome: "Ana"}}})

	assert.Len(t, broken.updates, 1)
	assert.Len(t, disabled.updates, 1)
	require.Len(t, healthy.updates, 1)
	assert.Equal(t, "Ana", healthy.updates[0].Roster[0].Nome)

	assert.Equal(t, 1, logs.FilterMessage("panel push failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("panel push skipped; endpoint not configured").Len())

	count, err := testutil.GatherAndCount(metrics.Registry(), "panel_push_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
