package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/ministry-roster-api/internal/models"
	"github.com/rs/zerolog"
)

// ChangeChannel is the NOTIFY channel the collection triggers publish on.
// The payload is the table name.
const ChangeChannel = "ministry_changes"

// changeListener delivers NOTIFY events through a dedicated pq.Listener
type changeListener struct {
	dsn string
	log zerolog.Logger
}

// NewChangeListener creates a Subscriber backed by Postgres LISTEN/NOTIFY
func NewChangeListener(dsn string, log zerolog.Logger) Subscriber {
	return &changeListener{
		dsn: dsn,
		log: log.With().Str("component", "listener").Logger(),
	}
}

// Subscribe starts listening and returns a channel that is closed when ctx
// is done. A reconnect is reported as a roster change, since notifications
// may have been lost while disconnected.
func (l *changeListener) Subscribe(ctx context.Context) (<-chan models.ChangeEvent, error) {
	listener := pq.NewListener(l.dsn, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			l.log.Warn().Err(err).Int("event", int(ev)).Msg("Listener connection event")
		}
	})
	if err := listener.Listen(ChangeChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("listen %s: %w", ChangeChannel, err)
	}

	events := make(chan models.ChangeEvent, 16)
	go func() {
		defer close(events)
		defer listener.Close()

		ping := time.NewTicker(90 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case n := <-listener.Notify:
				ev := models.ChangeEvent{ReceivedAt: time.Now()}
				if n == nil {
					// nil notification: connection was re-established
					ev.Collection = models.CollectionRoster
				} else {
					ev.Collection = models.Collection(n.Extra)
				}
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			case <-ping.C:
				if err := listener.Ping(); err != nil {
					l.log.Warn().Err(err).Msg("Listener ping failed")
				}
			}
		}
	}()

	l.log.Info().Str("channel", ChangeChannel).Msg("Listening for collection changes")
	return events, nil
}
