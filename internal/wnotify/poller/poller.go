package poller

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wnotify/internal/validator"
	"wnotify/internal/wnotify"
)

// Poller issues watch requests through a wnotify.Transport.
type Poller struct {
	transport wnotify.Transport
	logger    *zap.Logger
	clientID  string
}

// NewPoller creates a poller. The client id lets the service recognise the
// parallel requests of one client; a random one is generated when empty.
func NewPoller(transport wnotify.Transport, logger *zap.Logger, clientID string) (*Poller, error) {
	p := Poller{
		transport: transport,
		logger:    logger,
		clientID:  clientID,
	}

	if err := validator.Validate("poller", p.transport, p.logger); err != nil {
		return nil, fmt.Errorf("failed to validate poller deps: %w", err)
	}

	if p.clientID == "" {
		p.clientID = uuid.NewString()
	}
	p.logger = p.logger.Named("poller").With(zap.String("clientId", p.clientID))

	return &p, nil
}

// ClientID returns the id sent with every watch request.
func (p *Poller) ClientID() string {
	return p.clientID
}

// Poll implements wnotify.Poller.Poll.
func (p *Poller) Poll(ctx context.Context, endpoint string) (wnotify.Payload, error) {
	q := url.Values{}
	q.Set("client_id", p.clientID)

	body, err := p.transport.Get(ctx, endpoint, q)
	if err != nil {
		return nil, fmt.Errorf("failed to poll watch endpoint: %w", err)
	}

	payload, err := wnotify.DecodePayload(body)
	if err != nil {
		return nil, err
	}

	if payload == nil {
		p.logger.Debug("watch request returned no event")
		return nil, nil
	}

	p.logger.Debug("received payload", zap.String("event", payload.Event()))

	return payload, nil
}
