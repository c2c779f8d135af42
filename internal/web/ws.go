package web

import (
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// handleSessionSocket attaches a dashboard tab to the session-event
// hub. The socket carries server pushes only; when the session is
// revoked elsewhere the tab receives a signed_out event and returns to
// the sign-in page.
func (s *Server) handleSessionSocket(w http.ResponseWriter, r *http.Request) {
	session := s.currentSession(r)
	if session == nil {
		AuthDeniedTotal.WithLabelValues(ReasonNoSession).Inc()
		http.Error(w, "unauthorized", http.StatusUnauthorized)

		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug().Err(err).Msg("websocket upgrade failed")

		return
	}

	s.hub.AddWS(session.ID, conn)
	SessionSocketsGauge.Inc()

	defer func() {
		s.hub.RemoveWS(session.ID, conn)
		SessionSocketsGauge.Dec()
	}()

	// Drain client frames until the peer goes away; inbound payloads
	// are ignored.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
