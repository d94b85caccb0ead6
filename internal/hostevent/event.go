// Package hostevent carries lifecycle notifications from the review
// application to the reminder process over a local socket, one JSON object
// per line.
package hostevent

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"
)

type Kind string

const (
	ProfileOpened     Kind = "profile_opened"
	CollectionLoaded  Kind = "collection_loaded"
	ReviewStarted     Kind = "review_started"
	ReviewEnded       Kind = "review_ended"
	CardAnswered      Kind = "card_answered"
	SyncFinished      Kind = "sync_finished"
	StateChanged      Kind = "state_changed"
	SettingsChanged   Kind = "settings_changed"
	ShowNotification  Kind = "show_notification"
	CloseNotification Kind = "close_notification"
)

var knownKinds = map[Kind]bool{
	ProfileOpened: true, CollectionLoaded: true, ReviewStarted: true,
	ReviewEnded: true, CardAnswered: true, SyncFinished: true,
	StateChanged: true, SettingsChanged: true, ShowNotification: true,
	CloseNotification: true,
}

// Event is one host notification. Category is the deck the review session
// belongs to and is only meaningful for review events.
type Event struct {
	Kind     Kind   `json:"kind"`
	Category string `json:"category,omitempty"`
}

// ParseKind validates a kind given on the command line.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !knownKinds[k] {
		return "", fmt.Errorf("unknown event kind %q", s)
	}
	return k, nil
}

// Listener accepts connections on a Unix socket and forwards decoded events.
type Listener struct {
	path   string
	logger *slog.Logger
	ln     net.Listener
	events chan Event
}

// Listen binds path, removing a stale socket left by a previous run.
func Listen(path string, logger *slog.Logger) (*Listener, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("removing stale socket: %w", err)
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", path, err)
	}

	return &Listener{
		path:   path,
		logger: logger,
		ln:     ln,
		events: make(chan Event, 16),
	}, nil
}

// Events is closed once Serve returns.
func (l *Listener) Events() <-chan Event {
	return l.events
}

// Serve accepts connections until ctx is cancelled.
func (l *Listener) Serve(ctx context.Context) error {
	defer close(l.events)
	defer os.Remove(l.path)

	go func() {
		<-ctx.Done()
		l.ln.Close()
	}()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accepting host connection: %w", err)
		}
		l.handle(ctx, conn)
	}
}

func (l *Listener) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			l.logger.Warn("skipping malformed host event", "error", err)
			continue
		}
		if !knownKinds[ev.Kind] {
			l.logger.Warn("skipping unknown host event", "kind", ev.Kind)
			continue
		}
		select {
		case l.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// Send delivers a single event to the listener at path.
func Send(ctx context.Context, path string, ev Event) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", path, err)
	}
	defer conn.Close()

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("sending event: %w", err)
	}
	return nil
}
