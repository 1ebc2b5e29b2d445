package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"scoreboard/internal/config"

	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	return ts
}

func startServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(nil, config.Default())
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

// storedGame reads a game from the in-memory store backing srv.
func storedGame(t *testing.T, srv *Server, id uint) Game {
	t.Helper()
	store, ok := srv.games.(*Store)
	if !ok {
		t.Fatalf("expected in-memory store, got %T", srv.games)
	}
	game, err := store.GetGame(context.Background(), id)
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	return game
}

func doRequest(t *testing.T, client *http.Client, ts *httptest.Server, method, path string, payload any) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() {
		_ = resp.Body.Close()
	})
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func decodeList(t *testing.T, resp *http.Response) []map[string]any {
	t.Helper()
	var body []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func dialCable(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/cable"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

func sendCommand(t *testing.T, conn *websocket.Conn, command string, data any) {
	t.Helper()
	msg := map[string]any{"command": command}
	if data != nil {
		msg["data"] = data
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write websocket message: %v", err)
	}
}

func readWSJSON(t *testing.T, conn *websocket.Conn, timeout time.Duration) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read websocket message: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("decode websocket message %q: %v", payload, err)
	}
	return decoded
}

func expectNoWSMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	if _, payload, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected no websocket message within %s, got %s", timeout, payload)
	} else {
		netErr, ok := err.(net.Error)
		if !ok || !netErr.Timeout() {
			t.Fatalf("expected websocket timeout, got %v", err)
		}
	}
}

func subscribe(t *testing.T, conn *websocket.Conn) uint {
	t.Helper()
	sendCommand(t, conn, commandSubscribe, nil)
	reply := readWSJSON(t, conn, 5*time.Second)
	if reply["type"] != replyConfirmSubscription {
		t.Fatalf("expected %s, got %#v", replyConfirmSubscription, reply)
	}
	gameID, ok := reply["game_id"].(float64)
	if !ok || gameID <= 0 {
		t.Fatalf("expected game_id in confirmation, got %#v", reply)
	}
	return uint(gameID)
}

func expectScore(t *testing.T, conn *websocket.Conn, want int) {
	t.Helper()
	msg := readWSJSON(t, conn, 5*time.Second)
	score, ok := msg["score"].(float64)
	if !ok {
		t.Fatalf("expected score broadcast, got %#v", msg)
	}
	if int(score) != want {
		t.Fatalf("expected score %d, got %v", want, score)
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %s", timeout)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// recordingListener captures delivered payloads for relay tests.
type recordingListener struct {
	mu       sync.Mutex
	payloads [][]byte
	reject   bool
}

func (l *recordingListener) Deliver(payload []byte) bool {
	if l.reject {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.payloads = append(l.payloads, payload)
	return true
}

func (l *recordingListener) Scores(t *testing.T) []int {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	scores := make([]int, 0, len(l.payloads))
	for _, payload := range l.payloads {
		var msg scoreBroadcast
		if err := json.Unmarshal(payload, &msg); err != nil {
			t.Fatalf("decode broadcast %q: %v", payload, err)
		}
		scores = append(scores, msg.Score)
	}
	return scores
}
