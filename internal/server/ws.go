package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/trivia-api/internal/config"
	httperrors "github.com/gokatarajesh/trivia-api/pkg/http/errors"
	ws "github.com/gokatarajesh/trivia-api/pkg/http/ws"
)

// NewUpgrader builds a WebSocket upgrader whose origin check follows the CORS allow-list.
func NewUpgrader(cfg config.CORS) *websocket.Upgrader {
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowedOrigin(cfg.AllowedOrigins, origin) != ""
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// QuestionFeedHandler upgrades GET /ws/questions and subscribes the client to
// question create/delete events until it disconnects.
func QuestionFeedHandler(hub *ws.Hub, upgrader *websocket.Upgrader, logger zerolog.Logger) http.HandlerFunc {
	logger = logger.With().Str("component", "question_feed").Logger()

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httperrors.RespondMethodNotAllowed(w)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn().Err(err).Msg("WebSocket upgrade failed")
			return
		}

		id := uuid.New()
		c := ws.NewConnection(conn, logger.With().Str("conn_id", id.String()).Logger())
		hub.Register(id, c)
		defer hub.Unregister(id)

		go c.WritePump()
		c.ReadPump(func(msg ws.Message) error {
			var reply ws.Message
			var err error
			switch msg.Type {
			case ws.TypePing:
				reply, err = ws.NewMessage(ws.TypePong, struct{}{})
			default:
				reply, err = ws.NewMessage(ws.TypeError, ws.ErrorPayload{
					Code:    "unsupported_type",
					Message: "the question feed only accepts ping messages",
				})
			}
			if err != nil {
				return err
			}
			reply.RequestID = msg.RequestID
			return c.Send(reply)
		})
	}
}
