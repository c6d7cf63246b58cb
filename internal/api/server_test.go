package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/davekern/repcoach/internal/apply"
	"github.com/davekern/repcoach/internal/conversation"
	"github.com/davekern/repcoach/internal/generator"
	"github.com/davekern/repcoach/internal/history"
	"github.com/davekern/repcoach/internal/intent"
	"github.com/davekern/repcoach/internal/slots"
	"github.com/davekern/repcoach/internal/store"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()

	recordsDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open records db: %v", err)
	}
	recordsDB.SetMaxOpenConns(1)
	t.Cleanup(func() { recordsDB.Close() })

	records, err := store.New(recordsDB)
	if err != nil {
		t.Fatalf("create record store: %v", err)
	}

	historyDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open history db: %v", err)
	}
	historyDB.SetMaxOpenConns(1)
	t.Cleanup(func() { historyDB.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := conversation.New(
		intent.NewClassifier(nil, logger),
		slots.NewExtractor(nil, logger),
		generator.New(nil, generator.Options{}, logger),
		history.NewStore(historyDB, logger),
		apply.New(records, records, records, logger),
		records,
		logger,
	)

	srv := NewServer("127.0.0.1", 0, engine, logger)
	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, ts *httptest.Server, method, path, userID string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func TestMessageRequiresUserID(t *testing.T) {
	ts := testServer(t)

	resp, data := doJSON(t, ts, "POST", "/v1/chat/message", "", MessageRequest{Message: "hi"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	var errBody struct {
		Error struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &errBody); err != nil {
		t.Fatalf("error body: %v", err)
	}
	if errBody.Error.Code != 401 || !strings.Contains(errBody.Error.Message, "X-User-ID") {
		t.Errorf("error = %+v", errBody.Error)
	}
}

func TestMessageRoundTrip(t *testing.T) {
	ts := testServer(t)

	resp, data := doJSON(t, ts, "POST", "/v1/chat/message", "u1",
		MessageRequest{Message: "I want a training plan"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, data)
	}

	var turn TurnResponse
	if err := json.Unmarshal(data, &turn); err != nil {
		t.Fatalf("decode turn: %v", err)
	}
	if turn.State != "plan_confirm" {
		t.Errorf("state = %q", turn.State)
	}
	if len(turn.QuickReplies) == 0 {
		t.Errorf("no quick replies offered")
	}
	var assistant *TurnMessage
	for i := range turn.Messages {
		if turn.Messages[i].Sender == "assistant" {
			assistant = &turn.Messages[i]
		}
	}
	if assistant == nil {
		t.Fatalf("no assistant message in %s", data)
	}
	if assistant.ContentHTML == "" || !strings.Contains(assistant.ContentHTML, "<p>") {
		t.Errorf("content_html = %q, want rendered markdown", assistant.ContentHTML)
	}
}

func TestMessageValidation(t *testing.T) {
	ts := testServer(t)

	resp, _ := doJSON(t, ts, "POST", "/v1/chat/message", "u1", MessageRequest{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty message: status = %d, want 400", resp.StatusCode)
	}

	req, _ := http.NewRequest("POST", ts.URL+"/v1/chat/message", strings.NewReader("{not json"))
	req.Header.Set("X-User-ID", "u1")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d, want 400", resp2.StatusCode)
	}
}

func TestQuickReplyEndpoint(t *testing.T) {
	ts := testServer(t)

	doJSON(t, ts, "POST", "/v1/chat/message", "u1", MessageRequest{Message: "make me a plan"})
	resp, data := doJSON(t, ts, "POST", "/v1/chat/quickreply", "u1", QuickReplyRequest{ReplyID: "confirm-yes"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, data)
	}
	var turn TurnResponse
	if err := json.Unmarshal(data, &turn); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if turn.State != "plan_info_gather" {
		t.Errorf("state = %q", turn.State)
	}

	resp, _ = doJSON(t, ts, "POST", "/v1/chat/quickreply", "u1", QuickReplyRequest{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty reply_id: status = %d, want 400", resp.StatusCode)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	ts := testServer(t)

	doJSON(t, ts, "POST", "/v1/chat/message", "u1", MessageRequest{Message: "hello"})

	resp, data := doJSON(t, ts, "GET", "/v1/chat/history?days=7", "u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Messages []TurnMessage `json:"messages"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Messages) < 2 {
		t.Errorf("history = %d messages, want user + assistant", len(body.Messages))
	}

	resp, _ = doJSON(t, ts, "GET", "/v1/chat/history?days=zero", "u1", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad days: status = %d, want 400", resp.StatusCode)
	}
	resp, _ = doJSON(t, ts, "GET", "/v1/chat/history?days=-3", "u1", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("negative days: status = %d, want 400", resp.StatusCode)
	}
}

func TestStateAndRestart(t *testing.T) {
	ts := testServer(t)

	doJSON(t, ts, "POST", "/v1/chat/message", "u1", MessageRequest{Message: "make me a plan"})

	_, data := doJSON(t, ts, "GET", "/v1/chat/state", "u1", nil)
	var state struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal(data, &state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.State != "plan_confirm" {
		t.Errorf("state = %q", state.State)
	}

	resp, _ := doJSON(t, ts, "POST", "/v1/chat/restart", "u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("restart status = %d", resp.StatusCode)
	}
	_, data = doJSON(t, ts, "GET", "/v1/chat/state", "u1", nil)
	if err := json.Unmarshal(data, &state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.State != "idle" {
		t.Errorf("state after restart = %q", state.State)
	}
}

func TestClearEndpoint(t *testing.T) {
	ts := testServer(t)

	doJSON(t, ts, "POST", "/v1/chat/message", "u1", MessageRequest{Message: "hello"})
	resp, _ := doJSON(t, ts, "POST", "/v1/chat/clear", "u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("clear status = %d", resp.StatusCode)
	}

	_, data := doJSON(t, ts, "GET", "/v1/chat/history", "u1", nil)
	var body struct {
		Messages []TurnMessage `json:"messages"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Messages) != 0 {
		t.Errorf("history after clear = %d messages", len(body.Messages))
	}
}

func TestPersonasEndpoint(t *testing.T) {
	ts := testServer(t)

	resp, data := doJSON(t, ts, "GET", "/v1/personas", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Personas []struct {
			Key  string `json:"key"`
			Name string `json:"name"`
		} `json:"personas"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	keys := make(map[string]bool)
	for _, p := range body.Personas {
		keys[p.Key] = true
	}
	if !keys["calm"] {
		t.Errorf("personas = %+v, want the default calm persona present", body.Personas)
	}
}

func TestHealthAndVersion(t *testing.T) {
	ts := testServer(t)

	resp, data := doJSON(t, ts, "GET", "/health", "", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(data), "healthy") {
		t.Errorf("health = %d %s", resp.StatusCode, data)
	}

	resp, data = doJSON(t, ts, "GET", "/v1/version", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("version status = %d", resp.StatusCode)
	}
	var info map[string]any
	if err := json.Unmarshal(data, &info); err != nil {
		t.Fatalf("decode version: %v", err)
	}
	if _, ok := info["version"]; !ok {
		t.Errorf("version payload = %v", info)
	}
}
