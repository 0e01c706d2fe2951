package service

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"edu_portal_backend/internal/model"
	"edu_portal_backend/pkg/logger"
	"edu_portal_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	chatChannel    = "portal:chat:events"
	snapshotBuffer = 8
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

// Subscription 某任务会话的一路快照订阅。Cancel 后通道关闭且不可复用。
type Subscription struct {
	C chan *model.ChatSnapshot

	hub          *ChatHub
	assignmentID string
	id           uint64
	once         sync.Once
}

func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.hub.unsubscribe(s.assignmentID, s.id)
	})
}

// ChatHub 快照广播中心：维护本进程的订阅表，Redis pub/sub 打通多实例。
// 没有 Redis 时退化为纯本地投递（单实例部署与测试场景）。
type ChatHub struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]*Subscription
	nextID uint64

	Redis *redis.Client
	ctx   context.Context
	stop  context.CancelFunc
}

func NewChatHub(rdb *redis.Client) *ChatHub {
	ctx, cancel := context.WithCancel(context.Background())
	return &ChatHub{
		subs:  make(map[string]map[uint64]*Subscription),
		Redis: rdb,
		ctx:   ctx,
		stop:  cancel,
	}
}

// Subscribe 注册一路订阅；慢消费者会丢中间快照，只保证收到较新的一份
func (h *ChatHub) Subscribe(assignmentID string) *Subscription {
	sub := &Subscription{
		C:            make(chan *model.ChatSnapshot, snapshotBuffer),
		hub:          h,
		assignmentID: assignmentID,
		id:           atomic.AddUint64(&h.nextID, 1),
	}

	h.mu.Lock()
	if h.subs[assignmentID] == nil {
		h.subs[assignmentID] = make(map[uint64]*Subscription)
	}
	h.subs[assignmentID][sub.id] = sub
	h.mu.Unlock()

	monitoring.ChatSubscribers.Inc()
	return sub
}

func (h *ChatHub) unsubscribe(assignmentID string, id uint64) {
	h.mu.Lock()
	if m, ok := h.subs[assignmentID]; ok {
		if sub, ok := m[id]; ok {
			delete(m, id)
			close(sub.C)
			monitoring.ChatSubscribers.Dec()
		}
		if len(m) == 0 {
			delete(h.subs, assignmentID)
		}
	}
	h.mu.Unlock()
}

// Publish 广播一份全量快照。有 Redis 时经 pub/sub 绕行，
// 本实例同样通过订阅回路收到投递，多实例行为一致。
func (h *ChatHub) Publish(snap *model.ChatSnapshot) {
	monitoring.ChatMessageCounter.WithLabelValues("snapshot", "out").Inc()

	if h.Redis == nil {
		h.deliverLocal(snap)
		return
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		logger.Log.Error("chat snapshot marshal failed", zap.Error(err))
		return
	}
	if err := h.Redis.Publish(h.ctx, chatChannel, payload).Err(); err != nil {
		logger.Log.Error("chat snapshot publish failed", zap.Error(err))
		// Redis 不可用时降级为本地投递
		h.deliverLocal(snap)
	}
}

func (h *ChatHub) deliverLocal(snap *model.ChatSnapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs[snap.AssignmentID] {
		select {
		case sub.C <- snap:
		default:
			// 慢消费者：腾出最旧的一份再放新快照
			select {
			case <-sub.C:
			default:
			}
			select {
			case sub.C <- snap:
			default:
			}
		}
	}
}

// Run 消费 Redis pub/sub 并投递到本地订阅，直到 Stop
func (h *ChatHub) Run() {
	if h.Redis == nil {
		<-h.ctx.Done()
		return
	}

	pubsub := h.Redis.Subscribe(h.ctx, chatChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var snap model.ChatSnapshot
			if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
				logger.Log.Error("chat snapshot unmarshal failed", zap.Error(err))
				continue
			}
			monitoring.ChatMessageCounter.WithLabelValues("snapshot", "in").Inc()
			h.deliverLocal(&snap)
		case <-h.ctx.Done():
			return
		}
	}
}

// Stop 关闭全部订阅并结束 pub/sub 消费
func (h *ChatHub) Stop() {
	h.stop()

	h.mu.Lock()
	count := 0
	for assignmentID, m := range h.subs {
		for id, sub := range m {
			delete(m, id)
			close(sub.C)
			count++
		}
		delete(h.subs, assignmentID)
	}
	h.mu.Unlock()

	if count > 0 {
		monitoring.ChatSubscribers.Sub(float64(count))
	}
	logger.Log.Info("ChatHub stopped", zap.Int("closedSubscriptions", count))
}

// Client 一条 websocket 连接。同一连接上打开新任务的会话时，
// 先释放旧订阅再建新订阅，避免泄漏绑定到过期视图的监听。
type Client struct {
	hub     *ChatHub
	svc     *ChatService
	conn    *websocket.Conn
	send    chan []byte
	userID  string
	role    model.ChatRole
	limiter *rate.Limiter

	handle *ChatHandle
	fwdEnd chan struct{}
}

type wsOpenPayload struct {
	AssignmentID string `json:"assignmentId"`
	TeacherID    string `json:"teacherId"`
	StudentID    string `json:"studentId"`
}

func (c *Client) readPump() {
	defer func() {
		c.detach()
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Error("WebSocket unexpected close", zap.Error(err), zap.String("userId", c.userID))
			}
			break
		}

		if !c.limiter.Allow() {
			continue
		}

		var msg WSMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		monitoring.ChatMessageCounter.WithLabelValues(msg.Type, "in").Inc()

		switch msg.Type {
		case "OPEN_CHAT":
			c.handleOpen(msg.Data)
		case "SEND_MESSAGE":
			c.handleSend(msg.Data)
		case "CLOSE_CHAT":
			c.detach()
		}
	}
}

func (c *Client) handleOpen(data interface{}) {
	payload, err := decodePayload[wsOpenPayload](data)
	if err != nil || payload.AssignmentID == "" {
		return
	}

	// 切换任务前先释放旧订阅（并触发关闭方的已读清零）
	c.detach()

	handle, snap, err := c.svc.Open(payload.AssignmentID, c.userID, c.role, model.Participants{
		TeacherID: payload.TeacherID,
		StudentID: payload.StudentID,
	})
	if err != nil {
		c.pushJSON(WSMessage{Type: "CHAT_ERROR", Data: err.Error()})
		return
	}

	c.handle = handle
	c.fwdEnd = make(chan struct{})
	go c.forwardSnapshots(handle, c.fwdEnd)

	c.pushJSON(WSMessage{Type: "CHAT_SNAPSHOT", Data: snap})
}

type wsSendPayload struct {
	AssignmentID string `json:"assignmentId"`
	Content      string `json:"content"`
}

func (c *Client) handleSend(data interface{}) {
	payload, err := decodePayload[wsSendPayload](data)
	if err != nil || payload.AssignmentID == "" {
		return
	}
	if _, err := c.svc.Send(payload.AssignmentID, c.userID, c.role, payload.Content); err != nil {
		c.pushJSON(WSMessage{Type: "CHAT_ERROR", Data: err.Error()})
	}
}

func (c *Client) forwardSnapshots(handle *ChatHandle, done chan struct{}) {
	for {
		select {
		case snap, ok := <-handle.Observe():
			if !ok {
				return
			}
			c.pushJSON(WSMessage{Type: "CHAT_SNAPSHOT", Data: snap})
		case <-done:
			return
		}
	}
}

func (c *Client) detach() {
	if c.handle == nil {
		return
	}
	close(c.fwdEnd)
	c.svc.Close(c.handle)
	c.handle = nil
	c.fwdEnd = nil
}

func (c *Client) pushJSON(msg WSMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
		monitoring.ChatMessageCounter.WithLabelValues(msg.Type, "out").Inc()
	default:
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
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if n := len(c.send); n > 0 {
				for i := 0; i < n; i++ {
					w.Write(<-c.send)
				}
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func decodePayload[T any](data interface{}) (*T, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ServeChatWs 升级 websocket 并挂上读写泵
func ServeChatWs(hub *ChatHub, svc *ChatService, w http.ResponseWriter, r *http.Request, userID string, role model.ChatRole) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed", zap.Error(err), zap.String("userId", userID))
		return
	}
	client := &Client{
		hub:     hub,
		svc:     svc,
		conn:    conn,
		send:    make(chan []byte, 256),
		userID:  userID,
		role:    role,
		limiter: rate.NewLimiter(rate.Limit(30), 50), // 每秒30条，允许突发50条
	}

	go client.writePump()
	go client.readPump()
}
