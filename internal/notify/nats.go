package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/scopebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/scopebuild/internal/logfields"
)

const connectTimeout = 5 * time.Second

// NATSPublisher publishes build events as core NATS messages.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher connects to url. Events are published on subject.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	if subject == "" {
		return nil, errors.ConfigError("notify subject is required").Build()
	}

	conn, err := nats.Connect(url,
		nats.Name("scopebuild"),
		nats.Timeout(connectTimeout),
	)
	if err != nil {
		return nil, errors.NetworkError("failed to connect to NATS").
			WithCause(err).
			WithContext("url", url).
			Build()
	}

	slog.Debug("NATS publisher connected",
		slog.String("url", conn.ConnectedUrlRedacted()),
		slog.String("subject", subject))

	return &NATSPublisher{conn: conn, subject: subject}, nil
}

// Publish sends event and waits for the server to acknowledge the flush.
func (p *NATSPublisher) Publish(ctx context.Context, event BuildEvent) error {
	data, err := event.Encode()
	if err != nil {
		return err
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		return errors.NetworkError("failed to publish build event").
			WithCause(err).
			WithContext("subject", p.subject).
			Build()
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, connectTimeout)
		defer cancel()
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return errors.WrapError(err, errors.CategoryNetwork, "failed to flush build event").
			WithContext("subject", p.subject).
			Build()
	}

	slog.Debug("Published build event",
		logfields.BuildID(event.BuildID),
		logfields.Status(event.Status),
		slog.String("subject", p.subject))
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return errors.WrapError(err, errors.CategoryNetwork, "failed to drain NATS connection").Build()
	}
	return nil
}

// New returns a NATS publisher when url is set and a no-op publisher otherwise.
func New(url, subject string) (Publisher, error) {
	if url == "" {
		return NoopPublisher{}, nil
	}
	return NewNATSPublisher(url, subject)
}
