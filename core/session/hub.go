package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"BeatStudio/logger"

	"github.com/gorilla/websocket"
)

const (
	sendBufferSize = 256
	readLimit      = 1 << 20 // imports can arrive over the socket
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	writeWait      = 10 * time.Second
)

// WSMessage WebSocket 消息结构
type WSMessage struct {
	Type      MessageType     `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Client WebSocket 客户端
type Client struct {
	Hub     *Hub
	Conn    *websocket.Conn
	Send    chan []byte
	Session *Session

	ready chan struct{}
}

// NewClient 创建客户端
func NewClient(hub *Hub, conn *websocket.Conn, s *Session) *Client {
	return &Client{
		Hub:     hub,
		Conn:    conn,
		Send:    make(chan []byte, sendBufferSize),
		Session: s,
		ready:   make(chan struct{}),
	}
}

// Hub 编辑会话 WebSocket 管理中心。每个会话在有客户端连接时订阅一次
// 会话事件，并将事件扇出到所有客户端。
type Hub struct {
	// 会话 -> 客户端集合
	sessions map[string]map[*Client]bool
	// 会话 -> 取消订阅
	unsubscribe map[string]func()

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage

	// 在线状态，可为 nil
	presence Presence

	mu   sync.RWMutex
	done chan struct{}
	once sync.Once
}

// Presence records client heartbeats outside the process.
type Presence interface {
	Touch(ctx context.Context, sessionID string) error
	Remove(ctx context.Context, sessionID string) error
}

// SetPresence 设置在线状态存储
func (h *Hub) SetPresence(p Presence) {
	h.presence = p
}

// BroadcastMessage 广播消息
type BroadcastMessage struct {
	SessionID string
	Message   []byte
}

// NewHub 创建 Hub
func NewHub() *Hub {
	return &Hub{
		sessions:    make(map[string]map[*Client]bool),
		unsubscribe: make(map[string]func()),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *BroadcastMessage, sendBufferSize),
		done:        make(chan struct{}),
	}
}

// Run 启动 Hub 主循环
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.broadcastToSession(msg.SessionID, msg.Message)

		case <-h.done:
			h.cleanup()
			return
		}
	}
}

// Stop 停止 Hub
func (h *Hub) Stop() {
	h.once.Do(func() { close(h.done) })
}

// Register attaches client and returns once its session is subscribed.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		return
	}
	select {
	case <-client.ready:
	case <-h.done:
	}
}

// Unregister 注销客户端
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast 广播消息到会话的所有客户端
func (h *Hub) Broadcast(sessionID string, msg *WSMessage) error {
	msg.Timestamp = time.Now().UnixMilli()
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- &BroadcastMessage{SessionID: sessionID, Message: data}:
	case <-h.done:
	}
	return nil
}

// ClientCount 获取会话客户端数量
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	id := client.Session.ID
	if h.sessions[id] == nil {
		h.sessions[id] = make(map[*Client]bool)
	}
	h.sessions[id][client] = true
	first := len(h.sessions[id]) == 1
	h.mu.Unlock()

	if first {
		cancel := client.Session.Subscribe(h.fanout(id))
		h.mu.Lock()
		h.unsubscribe[id] = cancel
		h.mu.Unlock()
	}
	close(client.ready)

	logger.Info("客户端已连接", logger.String("sessionId", id), logger.Int("clients", h.ClientCount(id)))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	id := client.Session.ID
	var cancel func()
	if clients, ok := h.sessions[id]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.Send)
			if len(clients) == 0 {
				delete(h.sessions, id)
				cancel = h.unsubscribe[id]
				delete(h.unsubscribe, id)
			}
		}
	}
	h.mu.Unlock()

	if cancel != nil {
		cancel()
		if h.presence != nil {
			if err := h.presence.Remove(context.Background(), id); err != nil {
				logger.Warn("移除会话在线状态失败", logger.String("sessionId", id), logger.ErrorField(err))
			}
		}
	}
	logger.Info("客户端已断开", logger.String("sessionId", id))
}

// fanout converts session events to WSMessages. It runs on the session loop
// and never blocks: a client whose buffer is full is dropped.
func (h *Hub) fanout(sessionID string) func(Event) {
	return func(ev Event) {
		data, err := json.Marshal(ev.Data)
		if err != nil {
			logger.Warn("事件序列化失败", logger.String("type", string(ev.Type)), logger.ErrorField(err))
			return
		}
		msg, err := json.Marshal(&WSMessage{
			Type:      ev.Type,
			SessionID: sessionID,
			Data:      data,
			Timestamp: time.Now().UnixMilli(),
		})
		if err != nil {
			return
		}
		h.broadcastToSession(sessionID, msg)
	}
}

// broadcastToSession sends under the read lock so a concurrent unregister
// cannot close a channel mid-send.
func (h *Hub) broadcastToSession(sessionID string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.sessions[sessionID] {
		select {
		case client.Send <- message:
		default:
			// 发送缓冲区满，移除客户端
			go h.Unregister(client)
		}
	}
}

func (h *Hub) sendTo(client *Client, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.sessions[client.Session.ID][client] {
		return
	}
	select {
	case client.Send <- message:
	default:
	}
}

func (h *Hub) cleanup() {
	h.mu.Lock()
	cancels := make([]func(), 0, len(h.unsubscribe))
	for _, clients := range h.sessions {
		for client := range clients {
			close(client.Send)
		}
	}
	for _, cancel := range h.unsubscribe {
		cancels = append(cancels, cancel)
	}
	h.sessions = make(map[string]map[*Client]bool)
	h.unsubscribe = make(map[string]func())
	h.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// ========== Client 方法 ==========

// ReadPump 读取消息循环
func (c *Client) ReadPump(ctx context.Context, handler func(ctx context.Context, client *Client, msg *WSMessage)) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(readLimit)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read error",
					logger.ErrorField(err),
					logger.String("sessionId", c.Session.ID))
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			logger.Warn("invalid message format",
				logger.ErrorField(err),
				logger.String("sessionId", c.Session.ID))
			continue
		}

		if msg.Type == MsgTypePing {
			if p := c.Hub.presence; p != nil {
				if err := p.Touch(ctx, c.Session.ID); err != nil {
					logger.Warn("failed to update session presence",
						logger.ErrorField(err),
						logger.String("sessionId", c.Session.ID))
				}
			}
			c.SendMessage(&WSMessage{Type: MsgTypePong})
			continue
		}

		handler(ctx, c, &msg)
	}
}

// WritePump 写入消息循环
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 关闭了通道
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// 合并发送队列中的消息
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage 发送消息给客户端，缓冲区满时丢弃
func (c *Client) SendMessage(msg *WSMessage) {
	msg.Timestamp = time.Now().UnixMilli()
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.Hub.sendTo(c, data)
}
