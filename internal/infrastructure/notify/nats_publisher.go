package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mosaicpm/mosaic/internal/errs"
	"github.com/mosaicpm/mosaic/internal/ports"
)

const subjectPrefix = "mosaic.events."

// NATSPublisher pushes completion events onto a NATS subject per event type,
// for UIs or sidecars subscribed outside this process.
type NATSPublisher struct {
	conn *nats.Conn
}

var _ ports.Notifier = (*NATSPublisher)(nil)

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	if url == "" {
		return nil, errors.New("nats url is required")
	}

	conn, err := nats.Connect(url,
		nats.Timeout(5*time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, errs.Wrap(err, "connect nats")
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, event ports.NotifyEvent) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	data, err := json.Marshal(Envelope{
		Type:      event.Type,
		Payload:   mustRaw(event.Payload),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return errs.Wrap(err, "marshal notify envelope")
	}

	if err := p.conn.Publish(subjectPrefix+event.Type, data); err != nil {
		return errs.Wrap(err, "publish nats event")
	}
	return nil
}

func (p *NATSPublisher) Close() {
	p.conn.Close()
}

func mustRaw(payload any) json.RawMessage {
	raw, err := json.Marshal(payload)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return raw
}
