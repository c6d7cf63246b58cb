package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Same-origin policy is enforced by the app frontends; the API
	// itself is identity-scoped by X-User-ID.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsInbound is a client frame: either free text or a quick reply
// selection.
type wsInbound struct {
	Type    string `json:"type"` // "message" or "quickreply"
	Message string `json:"message,omitempty"`
	Persona string `json:"persona,omitempty"`
	ReplyID string `json:"reply_id,omitempty"`
}

// wsOutbound is a server frame: a committed turn or an error.
type wsOutbound struct {
	Type  string        `json:"type"` // "turn" or "error"
	Turn  *TurnResponse `json:"turn,omitempty"`
	Error string        `json:"error,omitempty"`
}

// handleWebSocket runs the chat over a socket. Frames from one client
// are processed in arrival order; the engine serializes turns per
// user, so a second device sending concurrently just queues behind
// the first.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(w, r)
	if userID == "" {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "user", userID, "error", err)
		return
	}
	defer conn.Close()
	s.logger.Info("websocket connected", "user", userID)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read failed", "user", userID, "error", err)
			}
			return
		}

		var in wsInbound
		if err := json.Unmarshal(data, &in); err != nil {
			s.writeWS(conn, wsOutbound{Type: "error", Error: "invalid frame"})
			continue
		}

		var out wsOutbound
		switch in.Type {
		case "message":
			turn, err := s.engine.SendMessage(r.Context(), userID, in.Persona, in.Message)
			if err != nil {
				out = wsOutbound{Type: "error", Error: "conversation error"}
			} else {
				rendered := s.renderTurn(turn)
				out = wsOutbound{Type: "turn", Turn: &rendered}
			}
		case "quickreply":
			turn, err := s.engine.SelectQuickReply(r.Context(), userID, in.ReplyID)
			if err != nil {
				out = wsOutbound{Type: "error", Error: "conversation error"}
			} else {
				rendered := s.renderTurn(turn)
				out = wsOutbound{Type: "turn", Turn: &rendered}
			}
		default:
			out = wsOutbound{Type: "error", Error: "unknown frame type"}
		}

		if err := s.writeWS(conn, out); err != nil {
			s.logger.Debug("websocket write failed", "user", userID, "error", err)
			return
		}
	}
}

func (s *Server) writeWS(conn *websocket.Conn, out wsOutbound) error {
	conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
	return conn.WriteJSON(out)
}
