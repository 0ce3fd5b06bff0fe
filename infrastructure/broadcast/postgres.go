package broadcast

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/fixora/sessionkit/application/port/outbound"
	"github.com/fixora/sessionkit/infrastructure/service/logger"
)

// PostgresBroadcast carries session envelopes over NOTIFY/LISTEN. Like the
// redis backend, notifications are transient: nothing is stored, only live
// listeners hear them. pq.Listener reconnects on its own; a notification
// missed during a reconnect window is recovered at the next scheduled
// renewal.
type PostgresBroadcast struct {
	db       *sql.DB
	listener *pq.Listener
	channel  string
	logger   logger.Logger
	done     chan struct{}
}

func NewPostgresBroadcast(databaseURL, channel string, log logger.Logger) (*PostgresBroadcast, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	listener := pq.NewListener(databaseURL, 10*time.Second, time.Minute, func(event pq.ListenerEventType, err error) {
		if err != nil {
			log.Warn(context.Background(), "Postgres listener event", map[string]interface{}{
				"event": int(event),
				"error": err.Error(),
			})
		}
	})

	if err := listener.Listen(channel); err != nil {
		listener.Close()
		db.Close()
		return nil, fmt.Errorf("failed to listen on channel %s: %w", channel, err)
	}

	log.Info(context.Background(), "Postgres broadcast initialized", map[string]interface{}{
		"channel": channel,
	})

	return &PostgresBroadcast{
		db:       db,
		listener: listener,
		channel:  channel,
		logger:   log,
		done:     make(chan struct{}),
	}, nil
}

func (b *PostgresBroadcast) Publish(ctx context.Context, env outbound.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode broadcast envelope: %w", err)
	}
	if _, err := b.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", b.channel, string(data)); err != nil {
		return fmt.Errorf("failed to notify channel %s: %w", b.channel, err)
	}
	return nil
}

func (b *PostgresBroadcast) Subscribe(handler func(outbound.Envelope)) {
	go func() {
		for {
			select {
			case <-b.done:
				return
			case n, ok := <-b.listener.Notify:
				if !ok {
					return
				}
				// nil notification signals a reconnect, not a message
				if n == nil {
					continue
				}
				var env outbound.Envelope
				if err := json.Unmarshal([]byte(n.Extra), &env); err != nil {
					b.logger.Warn(context.Background(), "Dropping malformed broadcast notification", map[string]interface{}{
						"error": err.Error(),
					})
					continue
				}
				handler(env)
			}
		}
	}()
}

func (b *PostgresBroadcast) Close() error {
	close(b.done)
	if err := b.listener.Close(); err != nil {
		b.logger.Warn(context.Background(), "Failed to close Postgres listener", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return b.db.Close()
}
