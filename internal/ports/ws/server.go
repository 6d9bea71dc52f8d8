package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"finnie/internal/app"
	"finnie/internal/domain"
	"finnie/internal/room"
)

// Server exposes the room registry over websocket. One connection maps to at
// most one seated session; the seat dies with the socket.
type Server struct {
	registry     *room.Registry
	log          *zap.Logger
	writeTimeout time.Duration
}

func NewServer(registry *room.Registry, log *zap.Logger, writeTimeout time.Duration) *Server {
	return &Server{registry: registry, log: log, writeTimeout: writeTimeout}
}

// Handler returns the HTTP surface: the websocket endpoint plus a health
// probe.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/ws", s.handleSocket)

	return r
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Browser clients are served from arbitrary origins in a friendly
		// game; there is nothing privileged behind this socket.
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.log.Warn("websocket accept failed", zap.Error(err))
		return
	}

	log := s.log.With(zap.String("remote", r.RemoteAddr))
	log.Info("client connected")

	c := newClient(conn, s.writeTimeout)
	var sess *room.Session

	defer func() {
		if sess != nil {
			s.registry.Leave(sess)
		}
		conn.Close(websocket.StatusNormalClosure, "")
		log.Info("client disconnected")
	}()

	ctx := r.Context()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			c.deliverError("Invalid message format")
			continue
		}

		switch msg.Type {
		case "joinRoom":
			if sess != nil {
				c.deliverError("Invalid message format")
				continue
			}
			if msg.RoomID == "" || msg.Seat == nil {
				c.deliverError("Invalid message format")
				continue
			}
			mode := msg.Mode
			if mode == "" {
				mode = domain.ModeTeams
			}
			joined, err := s.registry.Join(msg.RoomID, *msg.Seat, mode, c)
			if err != nil {
				c.deliverError(app.ErrorMessage(err))
				continue
			}
			sess = joined
			log.Info("client seated", zap.String("room", sess.RoomID), zap.Int("seat", sess.Seat))

		case "playerAction":
			if sess == nil {
				c.deliverError("Player not found in any room")
				continue
			}
			action, err := app.DecodeAction(msg.Action)
			if err != nil {
				c.deliverError(app.ErrorMessage(err))
				continue
			}
			if err := s.registry.Act(sess, action); err != nil {
				c.deliverError(app.ErrorMessage(err))
			}

		default:
			c.deliverError("Invalid message format")
		}
	}
}
