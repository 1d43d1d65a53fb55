package service

import (
	"context"
	"encoding/json"
	"net/http"
	"quiz_arena_backend/pkg/logger"
	"quiz_arena_backend/pkg/monitoring"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 8

	resultsChannel = "quiz_arena:results"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type pubSubMessage struct {
	QuizID  string          `json:"quizId"`
	Payload json.RawMessage `json:"payload"`
}

type ResultsClient struct {
	Hub     *ResultsHub
	Conn    *websocket.Conn
	Send    chan []byte
	QuizID  string
	AdminID uint
}

// readPump 仅用于保持连接，管理端不会发送消息
func (c *ResultsClient) readPump() {
	defer func() {
		c.Hub.unregister(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Warn("Live results socket closed unexpectedly", zap.Error(err), zap.Uint("adminId", c.AdminID))
			}
			return
		}
	}
}

func (c *ResultsClient) writePump() {
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
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

// ResultsHub 向正在查看测验的管理员推送最新报告，配置 redis 时通过 pub/sub 分发到所有实例
type ResultsHub struct {
	Redis *redis.Client

	mu      sync.RWMutex
	clients map[string]map[*ResultsClient]struct{}
}

func NewResultsHub(rdb *redis.Client) *ResultsHub {
	return &ResultsHub{
		Redis:   rdb,
		clients: make(map[string]map[*ResultsClient]struct{}),
	}
}

// Run 将 pub/sub 消息转发给本地客户端直到 ctx 结束，未配置 redis 时立即返回
func (h *ResultsHub) Run(ctx context.Context) {
	if h.Redis == nil {
		return
	}
	pubsub := h.Redis.Subscribe(ctx, resultsChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ps pubSubMessage
			if err := json.Unmarshal([]byte(msg.Payload), &ps); err != nil {
				logger.Log.Error("Live results pub/sub unmarshal error", zap.Error(err))
				continue
			}
			h.deliver(ps.QuizID, ps.Payload)
		}
	}
}

func (h *ResultsHub) register(c *ResultsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.QuizID]
	if !ok {
		set = make(map[*ResultsClient]struct{})
		h.clients[c.QuizID] = set
	}
	set[c] = struct{}{}
	monitoring.LiveReportClients.Inc()
}

func (h *ResultsHub) unregister(c *ResultsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.QuizID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.Send)
	if len(set) == 0 {
		delete(h.clients, c.QuizID)
	}
	monitoring.LiveReportClients.Dec()
}

// HasSubscribers 判断推送是否可能有接收者，使用 pub/sub 时假定其他实例在监听
func (h *ResultsHub) HasSubscribers(quizID string) bool {
	if h.Redis != nil {
		return true
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[quizID]) > 0
}

func (h *ResultsHub) Publish(quizID string, report *Report) {
	payload, err := json.Marshal(WSMessage{Type: "REPORT", Data: report})
	if err != nil {
		logger.Log.Error("Failed to encode live report", zap.Error(err))
		return
	}
	if h.Redis != nil {
		msg, err := json.Marshal(pubSubMessage{QuizID: quizID, Payload: payload})
		if err != nil {
			logger.Log.Error("Failed to encode live report envelope", zap.String("quizId", quizID), zap.Error(err))
			return
		}
		err = h.Redis.Publish(context.Background(), resultsChannel, msg).Err()
		if err == nil {
			return
		}
		logger.Log.Warn("Live results publish failed, delivering locally", zap.Error(err))
	}
	h.deliver(quizID, payload)
}

// deliver 发送给本地客户端，过慢的客户端会被断开
func (h *ResultsHub) deliver(quizID string, payload []byte) {
	h.mu.RLock()
	var slow []*ResultsClient
	for c := range h.clients[quizID] {
		select {
		case c.Send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.unregister(c)
	}
}

// Stop 关闭所有连接
func (h *ResultsHub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for quizID, set := range h.clients {
		for c := range set {
			close(c.Send)
			n++
		}
		delete(h.clients, quizID)
	}
	monitoring.LiveReportClients.Set(0)
	logger.Log.Info("Live results hub stopped", zap.Int("closedConnections", n))
}

// ServeWs 升级为 WebSocket 并订阅 quizID，initial 不为空时先发送
func ServeWs(hub *ResultsHub, w http.ResponseWriter, r *http.Request, quizID string, adminID uint, initial *Report) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("Live results upgrade failed", zap.Error(err))
		return
	}
	client := &ResultsClient{
		Hub:     hub,
		Conn:    conn,
		Send:    make(chan []byte, sendBuffer),
		QuizID:  quizID,
		AdminID: adminID,
	}
	if initial != nil {
		if payload, err := json.Marshal(WSMessage{Type: "REPORT", Data: initial}); err == nil {
			client.Send <- payload
		}
	}
	hub.register(client)

	go client.writePump()
	go client.readPump()
}
