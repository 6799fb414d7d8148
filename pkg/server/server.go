// Package server is a development WebSocket server speaking the chat wire
// protocol. Each connection keeps its own history; replies are produced by a
// Responder and always end with the sentinel frame.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/resume-chat/pkg/chat"
	"github.com/go-go-golems/resume-chat/pkg/protocol"
)

type Server struct {
	settings  Settings
	responder Responder
	upgrader  websocket.Upgrader
	conns     *connTracker
	mux       *http.ServeMux
}

func New(s Settings, r Responder) (*Server, error) {
	if r == nil {
		return nil, errors.New("server responder is nil")
	}
	s.Mode = strings.ToLower(strings.TrimSpace(s.Mode))
	if s.Mode == "" {
		s.Mode = ModeStructured
	}
	if s.Responder == "" {
		s.Responder = ResponderEcho
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	srv := &Server{
		settings:  s,
		responder: r,
		upgrader:  websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		conns:     newConnTracker(),
		mux:       http.NewServeMux(),
	}
	srv.mux.HandleFunc("/healthz", srv.handleHealth)
	srv.mux.HandleFunc("/", srv.handleWS)
	return srv, nil
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// ActiveConnections reports how many clients are connected.
func (s *Server) ActiveConnections() int {
	return s.conns.Count()
}

// Run serves on the configured address until ctx is done, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:              s.settings.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Info().Str("addr", s.settings.Addr).Str("mode", s.settings.Mode).Msg("starting chat server")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		log.Info().Int("connections", s.conns.Count()).Msg("shutting down chat server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// hijacked websocket connections are not closed by Shutdown
		s.conns.CloseAll()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
			return err
		}
		return nil
	})
	return eg.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"connections": s.conns.Count(),
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}
	s.conns.Add(conn)
	defer s.conns.Remove(conn)

	c := &clientConn{
		id:      uuid.NewString(),
		conn:    conn,
		server:  s,
		history: newHistory(s.settings.HistoryLimit),
	}
	c.logger = log.With().
		Str("component", "chat-server").
		Str("client_id", c.id).
		Str("remote", conn.RemoteAddr().String()).
		Logger()
	c.run(r.Context())
}

type clientConn struct {
	id      string
	conn    *websocket.Conn
	server  *Server
	history *history
	logger  zerolog.Logger

	writeMu sync.Mutex
}

func (c *clientConn) run(ctx context.Context) {
	c.logger.Info().Msg("client connected")
	defer c.logger.Info().Msg("client disconnected")

	if greeting := c.server.settings.Greeting; greeting != "" {
		if err := c.writeResponse(greeting); err != nil {
			c.logger.Debug().Err(err).Msg("failed to send greeting")
			return
		}
		if err := c.writeText(protocol.Sentinel); err != nil {
			return
		}
	}

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn().Err(err).Msg("read failed")
			}
			return
		}
		if err := c.handle(ctx, data); err != nil {
			c.logger.Debug().Err(err).Msg("write failed, dropping client")
			return
		}
	}
}

// handle answers one inbound frame. It returns an error only when the
// connection is no longer writable.
func (c *clientConn) handle(ctx context.Context, data []byte) error {
	var in protocol.Outbound
	if err := json.Unmarshal(data, &in); err != nil {
		c.logger.Debug().Err(err).Msg("invalid inbound frame")
		return c.finishWithError(msgInvalidJSON)
	}
	msg := strings.TrimSpace(in.Message)
	if msg == "" {
		return c.finishWithError(msgEmptyMessage)
	}

	req := Request{History: c.history.snapshot(), Message: msg}
	start := time.Now()

	var reply string
	var err error
	sr, streaming := c.server.responder.(StreamResponder)
	switch {
	case c.server.settings.Mode == ModeStream && streaming:
		var writeErr error
		reply, err = sr.RespondStream(ctx, req, func(delta string) error {
			if delta == "" {
				return nil
			}
			writeErr = c.writeText(delta)
			return writeErr
		})
		if writeErr != nil {
			return writeErr
		}
	case c.server.settings.Mode == ModeStream:
		reply, err = c.server.responder.Respond(ctx, req)
		if err == nil && reply != "" {
			if werr := c.writeText(reply); werr != nil {
				return werr
			}
		}
	default:
		reply, err = c.server.responder.Respond(ctx, req)
		if err == nil {
			if werr := c.writeResponse(reply); werr != nil {
				return werr
			}
		}
	}
	if err != nil {
		c.logger.Error().Err(err).Msg("responder failed")
		return c.finishWithError(msgProcessFailed)
	}

	c.history.add(chat.RoleUser, msg)
	c.history.add(chat.RoleAssistant, reply)
	c.logger.Debug().
		Dur("elapsed", time.Since(start)).
		Int("reply_length", len(reply)).
		Msg("replied")
	return c.writeText(protocol.Sentinel)
}

func (c *clientConn) finishWithError(text string) error {
	b, err := protocol.EncodeError(text)
	if err != nil {
		return err
	}
	if err := c.write(b); err != nil {
		return err
	}
	return c.writeText(protocol.Sentinel)
}

func (c *clientConn) writeResponse(text string) error {
	b, err := protocol.EncodeChatResponse(text)
	if err != nil {
		return err
	}
	return c.write(b)
}

func (c *clientConn) writeText(text string) error {
	return c.write([]byte(text))
}

func (c *clientConn) write(b []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if d := c.server.settings.WriteTimeout; d > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(d))
	}
	return c.conn.WriteMessage(websocket.TextMessage, b)
}
