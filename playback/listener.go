package playback

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// observed properties, keyed by observer id
var observed = []string{"time-pos", "duration", "pause", "eof-reached"}

// listener turns mpv property changes into Events. Observers belong to the connection
// that registered them, so registration and reading share one persistent connection.
type listener struct {
	socketPath string
	conn       net.Conn
	events     chan<- Event
	logger     logrus.FieldLogger
	stop       chan struct{}
	done       chan struct{}
	once       sync.Once
}

func newListener(socketPath string, events chan<- Event, logger logrus.FieldLogger) *listener {
	return &listener{
		socketPath: socketPath,
		events:     events,
		logger:     logger,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (l *listener) Start() error {
	conn, err := net.Dial("unix", l.socketPath)
	if err != nil {
		return fmt.Errorf("event listener connect: %w", err)
	}

	for i, name := range observed {
		payload, err := json.Marshal(ipcCommand{Command: []any{"observe_property", i + 1, name}, RequestID: requestIDs.Add(1)})
		if err != nil {
			conn.Close()
			return err
		}
		if _, err := conn.Write(append(payload, '\n')); err != nil {
			conn.Close()
			return fmt.Errorf("observe %s: %w", name, err)
		}
	}

	l.conn = conn
	go l.readLoop()

	l.logger.Infof("mpv event listener started on %s", l.socketPath)
	return nil
}

// Stop closes the connection and waits for the read loop to return.
func (l *listener) Stop() {
	l.once.Do(func() {
		close(l.stop)
		if l.conn != nil {
			l.conn.Close()
			<-l.done
		}
	})
}

func (l *listener) readLoop() {
	defer close(l.done)

	scanner := bufio.NewScanner(l.conn)
	for scanner.Scan() {
		if event, ok := parseEvent(scanner.Bytes()); ok {
			l.emit(event)
		}
	}

	select {
	case <-l.stop:
	default:
		err := scanner.Err()
		if err == nil || errors.Is(err, net.ErrClosed) {
			err = errors.New("player exited")
		}
		l.logger.WithError(err).Warn("event listener stopped")
		l.emit(Event{Kind: ErrorOccurred, Message: err.Error()})
	}
}

// emit drops position updates when the consumer is behind; everything else waits.
func (l *listener) emit(event Event) {
	if event.Kind == PositionChanged {
		select {
		case l.events <- event:
		default:
		}
		return
	}

	select {
	case l.events <- event:
	case <-l.stop:
	}
}

type mpvEvent struct {
	Event  string `json:"event"`
	Name   string `json:"name"`
	Data   any    `json:"data"`
	Reason string `json:"reason"`
	Error  string `json:"file_error"`
}

func parseEvent(line []byte) (Event, bool) {
	var raw mpvEvent
	if err := json.Unmarshal(line, &raw); err != nil || raw.Event == "" {
		return Event{}, false
	}

	switch raw.Event {
	case "property-change":
		return propertyEvent(raw.Name, raw.Data)
	case "end-file":
		if raw.Reason == "error" {
			message := raw.Error
			if message == "" {
				message = "playback failed"
			}
			return Event{Kind: ErrorOccurred, Message: message}, true
		}
	}

	return Event{}, false
}

func propertyEvent(name string, data any) (Event, bool) {
	switch name {
	case "time-pos":
		if seconds, ok := data.(float64); ok {
			return Event{Kind: PositionChanged, Position: seconds2duration(seconds)}, true
		}
	case "duration":
		if seconds, ok := data.(float64); ok {
			return Event{Kind: DurationChanged, Duration: seconds2duration(seconds)}, true
		}
	case "pause":
		if paused, ok := data.(bool); ok {
			return Event{Kind: PauseChanged, Paused: paused}, true
		}
	case "eof-reached":
		if eof, ok := data.(bool); ok && eof {
			return Event{Kind: EndOfMedia}, true
		}
	}

	return Event{}, false
}

func seconds2duration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
