// Package feed mirrors hub events onto NATS subjects so external consumers
// (analytics, the snapshot worker, other agencies) can follow the fleet
// without holding a websocket open.
package feed

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/bucarabus/fleethub/internal/hub"
)

// Publisher implements hub.Publisher over a NATS connection. Publishes are
// fire-and-forget: a broker hiccup must never slow the broadcast path.
type Publisher struct {
	logger  *zap.Logger
	nc      *nats.Conn
	subject string
}

// NewPublisher connects to NATS.
func NewPublisher(url, subject string, logger *zap.Logger) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("fleethub-server"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	return &Publisher{
		logger:  logger,
		nc:      nc,
		subject: subject,
	}, nil
}

// PublishLocation mirrors one authoritative location update.
func (p *Publisher) PublishLocation(update hub.LocationUpdate) {
	data, err := json.Marshal(update)
	if err != nil {
		p.logger.Error("marshal location update", zap.Error(err))
		return
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		p.logger.Warn("publish location update",
			zap.String("subject", p.subject), zap.Error(err))
	}
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if err := p.nc.Drain(); err != nil {
		p.logger.Warn("drain nats connection", zap.Error(err))
	}
}
