package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stwalsh4118/estatedesk/internal/logger"
	"github.com/stwalsh4118/estatedesk/internal/models"
)

// DefaultChannel is the NOTIFY channel written by the table triggers.
const DefaultChannel = "estate_changes"

// ErrInvalidPayload is returned for notifications that are not change events.
var ErrInvalidPayload = errors.New("invalid change payload")

// PGListener relays Postgres NOTIFY payloads into a Hub.
type PGListener struct {
	pool    *pgxpool.Pool
	hub     *Hub
	log     *logger.Logger
	channel string
	backoff time.Duration
}

// NewPGListener creates a listener on channel. An empty channel uses
// DefaultChannel; a non-positive backoff uses five seconds.
func NewPGListener(pool *pgxpool.Pool, hub *Hub, channel string, backoff time.Duration, log *logger.Logger) *PGListener {
	if channel == "" {
		channel = DefaultChannel
	}
	if backoff <= 0 {
		backoff = 5 * time.Second
	}
	return &PGListener{
		pool:    pool,
		hub:     hub,
		log:     log.WithComponent("pg_listener"),
		channel: channel,
		backoff: backoff,
	}
}

// Run listens until ctx is cancelled, reconnecting after the backoff when the
// connection is lost. It always returns nil once ctx is done.
func (l *PGListener) Run(ctx context.Context) error {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			l.log.Info("Change listener stopped", map[string]interface{}{"channel": l.channel})
			return nil
		}

		l.log.Warn("Change listener disconnected, retrying", map[string]interface{}{
			"channel": l.channel,
			"error":   fmt.Sprint(err),
			"backoff": l.backoff.String(),
		})

		timer := time.NewTimer(l.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (l *PGListener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire listener connection: %w", err)
	}
	defer func() {
		// A connection still subscribed must not go back to the pool
		cleanupCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if _, err := conn.Exec(cleanupCtx, "UNLISTEN *"); err != nil {
			_ = conn.Hijack().Close(cleanupCtx)
			return
		}
		conn.Release()
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.channel, err)
	}
	l.log.Info("Listening for changes", map[string]interface{}{"channel": l.channel})

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		ev, err := DecodePayload(n.Payload)
		if err != nil {
			l.log.Warn("Ignoring malformed change notification", map[string]interface{}{
				"payload": n.Payload,
				"error":   err.Error(),
			})
			continue
		}

		delivered := l.hub.Publish(ev)
		l.log.Debug("Change published", map[string]interface{}{
			"table":     ev.Table,
			"op":        string(ev.Op),
			"id":        ev.ID,
			"delivered": delivered,
		})
	}
}

// DecodePayload parses a trigger payload. Events without a timestamp are
// stamped with the current time.
func DecodePayload(payload string) (models.ChangeEvent, error) {
	var ev models.ChangeEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return models.ChangeEvent{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if ev.Table == "" {
		return models.ChangeEvent{}, fmt.Errorf("%w: missing table", ErrInvalidPayload)
	}
	switch ev.Op {
	case models.ChangeInsert, models.ChangeUpdate, models.ChangeDelete:
	default:
		return models.ChangeEvent{}, fmt.Errorf("%w: unknown op %q", ErrInvalidPayload, ev.Op)
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	return ev, nil
}
