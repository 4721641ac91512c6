// Package notify delivers thanks notifications to the notification
// subsystem. The log emitter records events through zerolog; the NATS
// emitter publishes them as JSON on a subject that the notification service
// consumes.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-thanks-backend/internal/domain"
)

// LogEmitter writes notifications to a zerolog logger. It never fails and is
// the default when no broker is configured.
type LogEmitter struct {
	Logger *zerolog.Logger
}

// Emit logs n at info level, through the request logger in ctx when
// Logger is nil.
func (e *LogEmitter) Emit(ctx context.Context, n domain.Notification) error {
	lg := e.Logger
	if lg == nil {
		lg = zerolog.Ctx(ctx)
	}
	if lg.GetLevel() == zerolog.Disabled {
		lg = &log.Logger
	}
	ev := lg.Info().
		Str("type", n.Type).
		Str("title", n.Title).
		Int64("agent", n.Agent).
		Int64("thanked_user_id", n.Extra.ThankedUserID).
		Str("source", n.Extra.Source).
		Bool("revcreation", n.Extra.RevCreation)
	if n.Extra.RevID != nil {
		ev = ev.Int64("revid", *n.Extra.RevID)
	}
	if n.Extra.LogID != nil {
		ev = ev.Int64("logid", *n.Extra.LogID)
	}
	ev.Msg("notification emitted")
	return nil
}

// publisher captures the subset of *nats.Conn the emitter relies on.
type publisher interface {
	PublishMsg(m *nats.Msg) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATSEmitter publishes notifications on Subject. Emit waits for the server
// to acknowledge the flush so a broker outage surfaces as an error.
type NATSEmitter struct {
	conn    publisher
	subject string
	timeout time.Duration
}

// NewNATSEmitter connects to url.
func NewNATSEmitter(url, subject string) (*NATSEmitter, error) {
	if subject == "" {
		return nil, errors.New("nats subject not configured")
	}
	nc, err := nats.Connect(url, nats.Name("go-thanks-backend"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return newNATSEmitter(nc, subject), nil
}

func newNATSEmitter(conn publisher, subject string) *NATSEmitter {
	return &NATSEmitter{conn: conn, subject: subject, timeout: 5 * time.Second}
}

// Emit publishes n as JSON.
func (e *NATSEmitter) Emit(ctx context.Context, n domain.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	msg := nats.NewMsg(e.subject)
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, uuid.NewString())
	msg.Header.Set("Content-Type", "application/json")
	msg.Header.Set("Event-Type", n.Type)
	msg.Header.Set("Agent", strconv.FormatInt(n.Agent, 10))

	if err := e.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	if err := e.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}
	return nil
}

// Close closes the connection.
func (e *NATSEmitter) Close() error {
	e.conn.Close()
	return nil
}
