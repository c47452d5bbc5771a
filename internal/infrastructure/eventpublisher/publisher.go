package eventpublisher

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/iho/folio/internal/domain"
	"github.com/iho/folio/internal/infrastructure/eventbus"
	"github.com/iho/folio/internal/infrastructure/metrics"
)

// Relay forwards recalculation requests from the in-process broadcaster to
// external publishers. It is one more subscriber, so it inherits the
// broadcaster's at-most-once semantics: a failed publish is logged and not
// retried.
type Relay struct {
	source     Source
	publishers []Publisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// Source is where the relay reads requests from.
type Source interface {
	Subscribe(ctx context.Context) (eventbus.SubscriptionID, <-chan domain.RecalculationRequest)
}

// Publisher defines the interface for publishing events to external systems.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, req domain.RecalculationRequest) error
}

// Config for Relay.
type Config struct {
	Source     Source
	Publishers []Publisher
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

// NewRelay creates a new Relay.
func NewRelay(cfg Config) *Relay {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Relay{
		source:     cfg.Source,
		publishers: cfg.Publishers,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
}

// Start subscribes and forwards requests until ctx is cancelled or the
// source closes the subscription.
func (r *Relay) Start(ctx context.Context) error {
	_, requests := r.source.Subscribe(ctx)

	r.logger.Info("recalculation relay started",
		slog.Int("publishers", len(r.publishers)))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("recalculation relay shutting down")
			return ctx.Err()
		case req, ok := <-requests:
			if !ok {
				r.logger.Info("recalculation source closed")
				return nil
			}
			r.forward(ctx, req)
		}
	}
}

// forward hands req to every publisher. One failing publisher does not stop
// the others.
func (r *Relay) forward(ctx context.Context, req domain.RecalculationRequest) {
	for _, pub := range r.publishers {
		err := pub.Publish(ctx, req)
		r.metrics.RelayPublish(pub.Name(), err)
		if err != nil {
			r.logger.Error("failed to publish recalculation request",
				slog.String("publisher", pub.Name()),
				slog.String("error", err.Error()))
			continue
		}

		r.logger.Debug("recalculation request published",
			slog.String("publisher", pub.Name()),
			slog.Int("accounts", len(req.AccountIDs)),
			slog.Int("symbols", len(req.Symbols)))
	}
}

// LogPublisher is a simple publisher that logs events.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

// Name implements Publisher.
func (p *LogPublisher) Name() string { return "log" }

// Publish logs the request as JSON.
func (p *LogPublisher) Publish(ctx context.Context, req domain.RecalculationRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}

	p.logger.InfoContext(ctx, "EVENT PUBLISHED",
		slog.String("event_type", domain.EventTypePortfolioRecalculate),
		slog.String("payload", string(payload)))

	return nil
}
