package exec

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/loomworks/loom/internal/types"
)

// streamBuffer is the channel depth between the websocket read loop and
// the consumer.
const streamBuffer = 64

// WSDialer opens websocket event streams against a runtime service.
// The zero value is not usable; construct with NewWSDialer.
type WSDialer struct {
	baseURL string
	header  http.Header
	dialer  *websocket.Dialer
	logger  *slog.Logger
}

// WSDialerOption configures a WSDialer.
type WSDialerOption func(*WSDialer)

// WithWSHeader sets extra headers sent on the upgrade request.
func WithWSHeader(h http.Header) WSDialerOption {
	return func(d *WSDialer) {
		d.header = h
	}
}

// WithWSDialer replaces the underlying websocket dialer.
func WithWSDialer(wd *websocket.Dialer) WSDialerOption {
	return func(d *WSDialer) {
		if wd != nil {
			d.dialer = wd
		}
	}
}

// WithWSLogger sets the logger used by streams this dialer opens.
func WithWSLogger(l *slog.Logger) WSDialerOption {
	return func(d *WSDialer) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewWSDialer returns a dialer rooted at baseURL, which must use a ws
// or wss scheme, for example "ws://localhost:7071/api".
func NewWSDialer(baseURL string, opts ...WSDialerOption) *WSDialer {
	d := &WSDialer{
		baseURL: strings.TrimRight(baseURL, "/"),
		dialer:  websocket.DefaultDialer,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dial opens the event stream for one execution and starts its read
// loop. Cancelling ctx closes the stream.
func (d *WSDialer) Dial(ctx context.Context, executionID string) (Stream, error) {
	if executionID == "" {
		return nil, types.NewError(types.EXEC_STREAM_FAILED, "execution id must not be empty")
	}
	endpoint := fmt.Sprintf("%s/executions/%s/events", d.baseURL, url.PathEscape(executionID))
	conn, resp, err := d.dialer.DialContext(ctx, endpoint, d.header)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, types.WrapError(types.EXEC_STREAM_FAILED,
			fmt.Sprintf("failed to open event stream for execution %s", executionID), err)
	}
	s := &wsStream{
		conn:   conn,
		events: make(chan Event, streamBuffer),
		logger: d.logger,
	}
	go s.readLoop(ctx)
	return s, nil
}

// wsStream adapts one websocket connection to the Stream interface.
type wsStream struct {
	conn   *websocket.Conn
	events chan Event
	logger *slog.Logger

	mu  sync.Mutex
	err error

	closeOnce sync.Once
}

func (s *wsStream) Events() <-chan Event {
	return s.events
}

func (s *wsStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *wsStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.conn.Close()
	})
	return err
}

func (s *wsStream) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// readLoop decodes frames until the connection ends. Undecodable frames
// are skipped so one bad message cannot kill a live stream.
func (s *wsStream) readLoop(ctx context.Context) {
	defer close(s.events)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.setErr(ctx.Err())
			s.Close()
		case <-done:
		}
	}()

	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.setErr(err)
			}
			s.Close()
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			s.logger.Warn("discarding undecodable stream frame", "error", err)
			continue
		}
		select {
		case s.events <- ev:
		case <-ctx.Done():
			s.setErr(ctx.Err())
			s.Close()
			return
		}
	}
}
