package panel

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/procon/attendance-service/internal/observability"
)

// Publisher pushes an update to every sink. It never fails: panel
// connectivity must not affect the caller.
type Publisher struct {
	sinks   []Sink
	logger  *zap.Logger
	metrics *observability.Metrics
}

func NewPublisher(logger *zap.Logger, metrics *observability.Metrics, sinks ...Sink) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{sinks: sinks, logger: logger, metrics: metrics}
}

// Publish delivers update to each sink once, without retry.
func (p *Publisher) Publish(ctx context.Context, update Update) {
	ctx, span := otel.Tracer(observability.TracerName).Start(ctx, "panel.Publish")
	defer span.End()
	span.SetAttributes(
		attribute.Int("panel.roster_size", len(update.Roster)),
		attribute.Bool("panel.has_latest", update.Latest != nil),
	)

	for _, sink := range p.sinks {
		err := sink.Push(ctx, update)
		switch {
		case errors.Is(err, ErrNothingToSend):
		case errors.Is(err, ErrSinkDisabled):
			p.logger.Debug("panel push skipped; endpoint not configured", zap.String("sink", sink.Name()))
		case err != nil:
			p.metrics.RecordPanelPush(sink.Name(), err)
			p.logger.Error("panel push failed", zap.String("sink", sink.Name()), zap.Error(err))
		default:
			p.metrics.RecordPanelPush(sink.Name(), nil)
		}
	}
}
