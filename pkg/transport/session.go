package transport

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/resume-chat/pkg/protocol"
)

var (
	ErrNotOpen          = errors.New("websocket session is not open")
	ErrListenerAttached = errors.New("a frame listener is already attached")
)

// FrameHandler receives the payload of one inbound frame.
type FrameHandler func(payload string)

// Listener is the handle returned by Attach. Detach is idempotent and only
// removes the listener it was returned for.
type Listener interface {
	Detach()
}

// Conn is the subset of *websocket.Conn a Session needs.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type options struct {
	logger           zerolog.Logger
	handshakeTimeout time.Duration
	header           http.Header
	url              string
}

type Option func(*options)

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *options) { o.handshakeTimeout = d }
}

func WithHeader(h http.Header) Option {
	return func(o *options) { o.header = h }
}

func newOptions(opts []Option) options {
	o := options{
		logger:           log.With().Str("component", "transport").Logger(),
		handshakeTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Session owns a single websocket connection. Inbound frames are read by one
// goroutine and handed, in order, to the one attached listener. Frames that
// arrive while nothing is attached are dropped.
type Session struct {
	conn   Conn
	url    string
	logger zerolog.Logger

	writeMu sync.Mutex

	mu       sync.Mutex
	open     bool
	closing  bool
	listener *listener
	nextID   uint64
	err      error

	done chan struct{}
}

type listener struct {
	s       *Session
	id      uint64
	handler FrameHandler
}

func (l *listener) Detach() {
	if l == nil || l.s == nil {
		return
	}
	l.s.detach(l.id)
}

// Dial connects to endpoint and starts reading. The connection stays open
// until Close is called or the peer goes away; there is no reconnect.
func Dial(ctx context.Context, endpoint string, opts ...Option) (*Session, error) {
	o := newOptions(opts)
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: o.handshakeTimeout,
	}

	o.logger.Debug().Str("url", endpoint).Msg("dialing websocket")
	conn, resp, err := dialer.DialContext(ctx, endpoint, o.header)
	if err != nil {
		if resp != nil {
			return nil, errors.Wrapf(err, "dial %s (http status %d)", endpoint, resp.StatusCode)
		}
		return nil, errors.Wrapf(err, "dial %s", endpoint)
	}
	o.url = endpoint
	s := newSession(conn, o)
	o.logger.Info().Str("url", endpoint).Msg("websocket connected")
	return s, nil
}

// NewSession wraps an already established connection and starts reading.
func NewSession(conn Conn, opts ...Option) *Session {
	return newSession(conn, newOptions(opts))
}

func newSession(conn Conn, o options) *Session {
	s := &Session{
		conn:   conn,
		url:    o.url,
		logger: o.logger,
		open:   true,
		done:   make(chan struct{}),
	}
	go s.readLoop()
	return s
}

func (s *Session) URL() string {
	return s.url
}

func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Done is closed once the read loop has stopped.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err reports why the session ended. It is nil while the session is open and
// after a local Close.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Send writes {"message": text} as a single text frame.
func (s *Session) Send(text string) error {
	if !s.IsOpen() {
		return ErrNotOpen
	}
	b, err := protocol.EncodeOutbound(text)
	if err != nil {
		return errors.Wrap(err, "encode outbound frame")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return errors.Wrap(err, "write frame")
	}
	return nil
}

// Attach installs handler as the only frame listener.
func (s *Session) Attach(handler FrameHandler) (Listener, error) {
	if handler == nil {
		return nil, errors.New("frame handler is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil, ErrNotOpen
	}
	if s.listener != nil {
		return nil, ErrListenerAttached
	}
	s.nextID++
	l := &listener{s: s, id: s.nextID, handler: handler}
	s.listener = l
	return l, nil
}

func (s *Session) HasListener() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener != nil
}

func (s *Session) detach(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil && s.listener.id == id {
		s.listener = nil
	}
}

// Close sends a normal closure frame, closes the connection and waits for the
// read loop to stop. It must not be called from a FrameHandler.
func (s *Session) Close() error {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return nil
	}
	s.open = false
	s.closing = true
	s.listener = nil
	s.mu.Unlock()

	s.writeMu.Lock()
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.writeMu.Unlock()

	err := s.conn.Close()
	<-s.done
	return err
}

func (s *Session) readLoop() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.finish(err)
			return
		}
		s.dispatch(string(data))
	}
}

func (s *Session) dispatch(payload string) {
	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()
	if l == nil {
		s.logger.Debug().Int("bytes", len(payload)).Msg("dropping frame, no listener attached")
		return
	}
	l.handler(payload)
}

func (s *Session) finish(err error) {
	s.mu.Lock()
	closing := s.closing
	s.open = false
	s.listener = nil
	if !closing {
		s.err = err
	}
	s.mu.Unlock()

	switch {
	case closing:
		s.logger.Debug().Msg("websocket closed locally")
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		s.logger.Info().Msg("websocket closed by peer")
	case strings.Contains(err.Error(), "use of closed network connection"):
		s.logger.Debug().Err(err).Msg("websocket read loop end")
	default:
		s.logger.Warn().Err(err).Msg("websocket read failed")
	}

	if !closing {
		_ = s.conn.Close()
	}
	close(s.done)
}
