package api

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dd0wney/cluso-topology/pkg/logging"
	"github.com/dd0wney/cluso-topology/pkg/topology"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
)

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 16 * 1024,
		CheckOrigin:     s.checkOrigin,
	}
}

// checkOrigin admits same-origin connections and origins the CORS policy
// allows.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	return s.corsConfig.Allows(origin)
}

// parseEventTypes reads ?types=created,removed.
func parseEventTypes(raw string) []topology.EventType {
	var types []topology.EventType
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			types = append(types, topology.EventType(part))
		}
	}
	return types
}

// handleStream upgrades to a websocket, sends the current snapshot, then
// forwards every matching change event until either side goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	sub, err := s.bus.Subscribe(r.Context(), parseEventTypes(r.URL.Query().Get("types"))...)
	if err != nil {
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	defer sub.Unsubscribe()

	ws, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied
		s.logger.Warn("websocket upgrade failed", logging.Error(err))
		return
	}
	defer ws.Close()

	logger := s.logger.With(logging.String("remote", r.RemoteAddr))
	logger.Debug("stream client connected")

	// The reader only services control frames; it ends on close or error.
	closed := make(chan struct{})
	ws.SetReadLimit(512)
	ws.SetReadDeadline(time.Now().Add(streamPongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.NextReader(); err != nil {
				return
			}
		}
	}()

	snap := s.engine.Topology().Topology
	if err := s.writeFrame(ws, StreamFrame{Kind: FrameSnapshot, Topology: snap}); err != nil {
		return
	}

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()

	for {
		select {
		case msg, ok := <-sub.Channel():
			if !ok {
				ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "event stream closed"),
					time.Now().Add(streamWriteWait))
				return
			}
			if err := s.writeFrame(ws, StreamFrame{Kind: FrameEvent, Event: &msg}); err != nil {
				return
			}
		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		case <-closed:
			logger.Debug("stream client disconnected", logging.Uint64("dropped", sub.Dropped()))
			return
		}
	}
}

func (s *Server) writeFrame(ws *websocket.Conn, frame StreamFrame) error {
	ws.SetWriteDeadline(time.Now().Add(streamWriteWait))
	if err := ws.WriteJSON(frame); err != nil {
		s.logger.Debug("stream write failed", logging.Error(err))
		return err
	}
	return nil
}
