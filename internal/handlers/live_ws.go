// internal/handlers/live_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/dlevitt/radar/internal/geo"
	"github.com/dlevitt/radar/internal/middleware"
	"github.com/dlevitt/radar/internal/tracker"
)

// liveFrame is one outbound message on the live stream.
type liveFrame struct {
	Type string `json:"type"`
	tracker.Update
}

// clientMessage is an inbound message on the live stream. Only
// recenter is understood.
type clientMessage struct {
	Type      string  `json:"type"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LiveWSHandler upgrades to WebSocket and streams the signed-in
// user's friend positions and proximity alerts. The session and its
// subscriptions are torn down when the socket closes.
func (s *Server) LiveWSHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, err := s.authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.Log.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")
	middleware.LogWebSocketConnect(s.Log, r.RemoteAddr, r.URL.Path)

	// Sessions are shared across sockets for the same account, so
	// they get process lifetime rather than this request's. The last
	// socket to detach reaps the session.
	sess, err := s.Tracker.GetOrCreate(context.Background(), ownerID, s.Deps)
	if err != nil {
		s.Log.WithError(err).WithField("owner", ownerID).Warn("failed to start session")
		c.Close(websocket.StatusInternalError, "session start failed")
		return
	}

	updates, cancel := sess.Subscribe()
	defer func() {
		cancel()
		s.Tracker.DeleteIfIdle(ownerID)
	}()

	ctx, stop := context.WithCancel(r.Context())
	defer stop()

	go s.writePump(ctx, c, ownerID, sess, updates)
	err = s.readPump(ctx, c, sess)
	middleware.LogWebSocketDisconnect(s.Log, r.RemoteAddr, r.URL.Path, err)
}

// writePump sends the initial snapshot, then every session update.
func (s *Server) writePump(ctx context.Context, c *websocket.Conn, ownerID uuid.UUID, sess *tracker.Session, updates <-chan tracker.Update) {
	send := func(u tracker.Update) error {
		data, err := json.Marshal(liveFrame{Type: "update", Update: u})
		if err != nil {
			return err
		}
		return c.Write(ctx, websocket.MessageText, data)
	}

	if err := send(sess.Snapshot()); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if err := send(u); err != nil {
				if ctx.Err() == nil {
					s.Log.WithError(err).WithField("owner", ownerID).Debug("live stream write failed")
				}
				return
			}
		}
	}
}

// readPump handles inbound client messages until the socket closes.
func (s *Server) readPump(ctx context.Context, c *websocket.Conn, sess *tracker.Session) error {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			continue
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.Log.WithError(err).Debug("ignoring malformed live message")
			continue
		}
		switch msg.Type {
		case "recenter":
			sess.Recenter(geo.Point{Latitude: msg.Latitude, Longitude: msg.Longitude})
		default:
			s.Log.WithField("type", msg.Type).Debug("ignoring unknown live message")
		}
	}
}
