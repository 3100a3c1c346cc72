package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512
	// DefaultSendBuffer 每个客户端待发送消息的缓冲条数，写满即视为慢客户端并断开。
	DefaultSendBuffer = 256
)

// checkSameOrigin 允许同源与本地开发环境的连接。
func checkSameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}

	requestHost := r.Host
	originHost := u.Host
	if h, _, err := net.SplitHostPort(requestHost); err == nil {
		requestHost = h
	}
	if h, _, err := net.SplitHostPort(originHost); err == nil {
		originHost = h
	}

	if strings.EqualFold(requestHost, originHost) {
		return true
	}
	return originHost == "localhost" || originHost == "127.0.0.1"
}

// Message 是推送给客户端的消息信封。
type Message struct {
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

// Client 表示一个 WebSocket 客户端连接。
type Client struct {
	conn    *websocket.Conn
	send    chan []byte
	manager *WSManager
	topics  map[string]struct{}
	mu      sync.Mutex
}

func (c *Client) subscribed(topic string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.topics[topic]
	return ok
}

type broadcastMessage struct {
	topic   string
	payload []byte
}

// WSManager 管理所有活跃的 WebSocket 连接，按主题向订阅者广播。
// 注册、注销与广播都在 Run 协程中串行处理。
type WSManager struct {
	clients    map[*Client]struct{}
	broadcast  chan broadcastMessage
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	upgrader   websocket.Upgrader
	sendBuffer int
	logger     *slog.Logger
	mu         sync.RWMutex
}

// WSOption 调整 WSManager 参数。
type WSOption func(*WSManager)

// WithSendBuffer 设置每个客户端的发送缓冲条数，应不小于一次突发推送的消息数。
func WithSendBuffer(n int) WSOption {
	return func(m *WSManager) {
		if n > 0 {
			m.sendBuffer = n
		}
	}
}

// NewWSManager 创建连接管理器，需调用 Run 后才开始分发消息。
func NewWSManager(logger *slog.Logger, opts ...WSOption) *WSManager {
	m := &WSManager{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan broadcastMessage),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkSameOrigin,
		},
		sendBuffer: DefaultSendBuffer,
		logger:     logger.With("module", "websocket_manager"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Done 在 Run 返回后关闭。
func (m *WSManager) Done() <-chan struct{} {
	return m.done
}

// Run 分发循环，ctx 取消后关闭全部连接并返回。
func (m *WSManager) Run(ctx context.Context) {
	defer close(m.done)

	for {
		select {
		case <-ctx.Done():
			m.mu.Lock()
			for client := range m.clients {
				delete(m.clients, client)
				close(client.send)
			}
			m.mu.Unlock()
			return
		case client := <-m.register:
			m.mu.Lock()
			m.clients[client] = struct{}{}
			m.mu.Unlock()
			m.logger.Debug("client registered", "addr", client.conn.RemoteAddr())
		case client := <-m.unregister:
			m.remove(client)
			m.logger.Debug("client unregistered", "addr", client.conn.RemoteAddr())
		case message := <-m.broadcast:
			m.mu.Lock()
			for client := range m.clients {
				if !client.subscribed(message.topic) {
					continue
				}
				select {
				case client.send <- message.payload:
				default:
					// 缓冲区已满的慢客户端直接断开，避免阻塞整个广播。
					m.logger.Warn("client buffer full, dropping", "addr", client.conn.RemoteAddr())
					delete(m.clients, client)
					close(client.send)
				}
			}
			m.mu.Unlock()
		}
	}
}

func (m *WSManager) remove(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[client]; ok {
		delete(m.clients, client)
		close(client.send)
	}
}

// Subscribers 返回订阅了 topic 的在线客户端数量。
func (m *WSManager) Subscribers(topic string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for client := range m.clients {
		if client.subscribed(topic) {
			n++
		}
	}
	return n
}

// Broadcast 序列化 payload 并以 Message 信封广播到 topic。
func (m *WSManager) Broadcast(topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		m.logger.Error("failed to marshal broadcast data", "error", err)
		return
	}
	raw, err := json.Marshal(Message{Topic: topic, Data: data})
	if err != nil {
		m.logger.Error("failed to marshal broadcast envelope", "error", err)
		return
	}
	m.BroadcastRaw(topic, raw)
}

// BroadcastRaw 广播已编码的字节数据；管理器停止后直接丢弃。
func (m *WSManager) BroadcastRaw(topic string, payload []byte) {
	select {
	case m.broadcast <- broadcastMessage{topic: topic, payload: payload}:
	case <-m.done:
	}
}

// Handler 返回用于挂载到 Gin 路由的升级处理器。
// 查询参数 topic 可在建连时直接完成订阅。
func (m *WSManager) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.ServeHTTP(c.Writer, c.Request)
	}
}

// ServeHTTP 处理 WebSocket 升级请求。
func (m *WSManager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		conn:    conn,
		send:    make(chan []byte, m.sendBuffer),
		manager: m,
		topics:  make(map[string]struct{}),
	}
	if topic := r.URL.Query().Get("topic"); topic != "" {
		client.topics[topic] = struct{}{}
	}

	select {
	case m.register <- client:
	case <-m.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.manager.unregister <- c:
		case <-c.manager.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		// 客户端命令：{"op": "subscribe", "topic": "runs"}
		var cmd struct {
			Op    string `json:"op"`
			Topic string `json:"topic"`
		}
		if err := json.Unmarshal(message, &cmd); err != nil || cmd.Topic == "" {
			continue
		}
		c.mu.Lock()
		switch cmd.Op {
		case "subscribe":
			c.topics[cmd.Topic] = struct{}{}
		case "unsubscribe":
			delete(c.topics, cmd.Topic)
		}
		c.mu.Unlock()
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.manager.logger.Debug("failed to write close message", "error", err)
				}
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
