package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

type wsHub struct {
	mu     sync.Mutex
	groups map[uint]map[Listener]struct{}
}

func newWSHub() *wsHub {
	return &wsHub{
		groups: make(map[uint]map[Listener]struct{}),
	}
}

// Add reports whether listener was newly registered under gameID.
func (h *wsHub) Add(gameID uint, listener Listener) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[gameID]
	if group == nil {
		group = make(map[Listener]struct{})
		h.groups[gameID] = group
	}
	if _, ok := group[listener]; ok {
		return false
	}
	group[listener] = struct{}{}
	return true
}

// Remove reports whether listener was registered under gameID.
func (h *wsHub) Remove(gameID uint, listener Listener) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[gameID]
	if group == nil {
		return false
	}
	if _, ok := group[listener]; !ok {
		return false
	}
	delete(group, listener)
	if len(group) == 0 {
		delete(h.groups, gameID)
	}
	return true
}

func (h *wsHub) Count(gameID uint) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.groups[gameID])
}

// Broadcast delivers payload to every listener of gameID and returns how many
// accepted it. Delivery is best effort.
func (h *wsHub) Broadcast(gameID uint, payload any) int {
	h.mu.Lock()
	group := h.groups[gameID]
	listeners := make([]Listener, 0, len(group))
	for listener := range group {
		listeners = append(listeners, listener)
	}
	h.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("broadcast marshal failed game_id=%d error=%v", gameID, err)
		return 0
	}
	delivered := 0
	for _, listener := range listeners {
		if listener.Deliver(data) {
			delivered++
		}
	}
	return delivered
}

type inboundMessage struct {
	Command string          `json:"command"`
	Data    json.RawMessage `json:"data"`
}

type wsReply struct {
	Type    string `json:"type"`
	GameID  uint   `json:"game_id,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// wsConn is one websocket connection. Outbound frames go through a bounded
// buffer drained by writePump, the only goroutine that writes to conn.
type wsConn struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newWSConn(conn *websocket.Conn, buffer int) *wsConn {
	if buffer <= 0 {
		buffer = 1
	}
	return &wsConn{
		conn: conn,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

func (c *wsConn) Deliver(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *wsConn) reply(payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if !c.Deliver(data) {
		log.Printf("ws reply dropped remote=%s", c.conn.RemoteAddr())
	}
}

func (c *wsConn) replyError(err error) {
	c.reply(wsReply{
		Type:    replyError,
		Error:   errorCode(err),
		Message: err.Error(),
	})
}

func (c *wsConn) stop() {
	c.once.Do(func() {
		close(c.done)
	})
}

func (c *wsConn) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteWait),
			)
			return
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (s *Server) handleWebsocket(c *gin.Context) {
	user, ok := currentUserFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not resolved"})
		return
	}
	// The upgrade response is written by gorilla, so any identity cookie set
	// by the middleware has to travel in the response header explicitly.
	header := http.Header{}
	for _, value := range c.Writer.Header().Values("Set-Cookie") {
		header.Add("Set-Cookie", value)
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, header)
	if err != nil {
		log.Printf("ws upgrade failed user_id=%d error=%v", user.ID, err)
		return
	}
	log.Printf("ws connected user_id=%d remote=%s", user.ID, c.Request.RemoteAddr)
	client := newWSConn(conn, s.cfg.WSSendBuffer)
	go client.writePump()
	go s.readWS(client, user)
}

// readWS runs the per-connection subscription state machine. Whatever ends
// the loop, the subscription is released before returning.
func (s *Server) readWS(client *wsConn, user User) {
	var subscribedGameID uint
	defer func() {
		if subscribedGameID != 0 {
			s.relay.Unsubscribe(context.Background(), subscribedGameID, user, client)
		}
		client.stop()
	}()

	client.conn.SetReadLimit(4096)
	_ = client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws read error user_id=%d error=%v", user.ID, err)
			}
			log.Printf("ws disconnected user_id=%d game_id=%d", user.ID, subscribedGameID)
			return
		}
		_ = client.conn.SetReadDeadline(time.Now().Add(wsPongWait))

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			client.replyError(ErrInvalidPayload)
			continue
		}
		ctx := context.Background()
		switch msg.Command {
		case commandSubscribe:
			game, err := s.relay.Subscribe(ctx, user, client)
			if err != nil {
				log.Printf("subscribe failed user_id=%d error=%v", user.ID, err)
				client.replyError(err)
				continue
			}
			if subscribedGameID != 0 && subscribedGameID != game.ID {
				s.relay.Unsubscribe(ctx, subscribedGameID, user, client)
			}
			subscribedGameID = game.ID
			client.reply(wsReply{Type: replyConfirmSubscription, GameID: game.ID})
		case commandUnsubscribe:
			if subscribedGameID != 0 {
				s.relay.Unsubscribe(ctx, subscribedGameID, user, client)
				subscribedGameID = 0
			}
			client.reply(wsReply{Type: replyConfirmUnsubscription})
		case commandScoreUpdate:
			if subscribedGameID == 0 {
				client.replyError(ErrNotSubscribed)
				continue
			}
			if _, err := s.relay.ScoreUpdate(ctx, subscribedGameID, msg.Data); err != nil {
				log.Printf("score update rejected user_id=%d game_id=%d error=%v", user.ID, subscribedGameID, err)
				client.replyError(err)
			}
		case commandPing:
			client.reply(wsReply{Type: replyPong})
		default:
			client.reply(wsReply{
				Type:    replyError,
				Error:   codeUnknownCommand,
				Message: "unknown command " + msg.Command,
			})
		}
	}
}
