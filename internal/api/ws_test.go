package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

func dialWS(t *testing.T, url, userID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(url, "http") + "/v1/chat/ws"
	header := http.Header{}
	if userID != "" {
		header.Set("X-User-ID", userID)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial %s: %v (resp=%v)", wsURL, err, resp)
	}
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) wsOutbound {
	t.Helper()
	var out wsOutbound
	if err := conn.ReadJSON(&out); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return out
}

func TestWebSocketRoundTrip(t *testing.T) {
	ts := testServer(t)
	conn := dialWS(t, ts.URL, "u1")

	if err := conn.WriteJSON(wsInbound{Type: "message", Message: "I want a training plan"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := readFrame(t, conn)
	if out.Type != "turn" || out.Turn == nil {
		t.Fatalf("frame = %+v, want a turn", out)
	}
	if out.Turn.State != "plan_confirm" {
		t.Errorf("state = %q", out.Turn.State)
	}
	if len(out.Turn.QuickReplies) == 0 {
		t.Fatalf("no quick replies in %+v", out.Turn)
	}

	// Quick reply selection over the same socket advances the flow.
	if err := conn.WriteJSON(wsInbound{Type: "quickreply", ReplyID: "confirm-yes"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	out = readFrame(t, conn)
	if out.Type != "turn" || out.Turn == nil || out.Turn.State != "plan_info_gather" {
		t.Fatalf("frame = %+v, want plan_info_gather turn", out)
	}
	for _, m := range out.Turn.Messages {
		if m.Sender == "assistant" && m.ContentHTML == "" {
			t.Errorf("assistant frame without rendered HTML: %+v", m)
		}
	}
}

func TestWebSocketBadFrames(t *testing.T) {
	ts := testServer(t)
	conn := dialWS(t, ts.URL, "u1")

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := readFrame(t, conn)
	if out.Type != "error" || out.Error != "invalid frame" {
		t.Errorf("frame = %+v, want invalid frame error", out)
	}

	if err := conn.WriteJSON(wsInbound{Type: "ping"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	out = readFrame(t, conn)
	if out.Type != "error" || out.Error != "unknown frame type" {
		t.Errorf("frame = %+v, want unknown frame type error", out)
	}

	// The socket survives bad frames.
	if err := conn.WriteJSON(wsInbound{Type: "message", Message: "hello"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if out = readFrame(t, conn); out.Type != "turn" {
		t.Errorf("frame = %+v, want a turn after recovery", out)
	}
}

func TestWebSocketRequiresUserID(t *testing.T) {
	ts := testServer(t)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/chat/ws"

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		conn.Close()
		t.Fatal("dial without identity succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("handshake response = %+v, want 401", resp)
	}
	if resp != nil {
		resp.Body.Close()
	}
}
