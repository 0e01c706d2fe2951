package service

import (
	"strings"

	"edu_portal_backend/internal/model"
	"edu_portal_backend/internal/util"
	"edu_portal_backend/pkg/logger"

	"go.uber.org/zap"
)

// ChatStore 聊天同步器需要的最小存储面
type ChatStore interface {
	GetOrCreate(assignmentID string, participants model.Participants) (*model.Chat, error)
	Get(assignmentID string) (*model.Chat, error)
	AppendMessage(assignmentID string, msg model.ChatMessage) (*model.Chat, error)
	ResetUnread(assignmentID string, role model.ChatRole) error
}

// ChatService 按任务维度的两方消息通道：消息只追加、不改不删，
// 每方各有独立未读计数；打开（和关闭）会话视图即视为已读。
type ChatService struct {
	Store ChatStore
	Hub   *ChatHub
}

func NewChatService(store ChatStore, hub *ChatHub) *ChatService {
	return &ChatService{Store: store, Hub: hub}
}

// ChatHandle 一次 Open 的订阅句柄，生命周期即订阅生命周期。
// 必须显式 Close 释放；重新订阅需要再次 Open。
type ChatHandle struct {
	AssignmentID string
	UserID       string
	Role         model.ChatRole
	sub          *Subscription
}

// Observe 全量快照推送流。每次底层变更推一份完整快照，非增量；
// 订阅取消后通道关闭，不可重启。
func (h *ChatHandle) Observe() <-chan *model.ChatSnapshot {
	return h.sub.C
}

// Open 打开某任务的会话。不存在则幂等创建空文档；会话非空时立即把
// 开启方角色的未读数清零（打开即已读）。失败时不建立订阅。
func (s *ChatService) Open(assignmentID, userID string, role model.ChatRole, participants model.Participants) (*ChatHandle, *model.ChatSnapshot, error) {
	if assignmentID == "" || userID == "" {
		return nil, nil, util.ErrChatUnavailable
	}
	if !role.Valid() {
		return nil, nil, util.ErrInvalidRole
	}

	chat, err := s.Store.GetOrCreate(assignmentID, participants)
	if err != nil {
		logger.Log.Error("chat init failed",
			zap.String("assignmentId", assignmentID), zap.Error(err))
		return nil, nil, util.ErrChatUnavailable
	}

	if len(chat.Messages) > 0 && chat.Unread.ByRole(role) > 0 {
		if err := s.Store.ResetUnread(assignmentID, role); err != nil {
			logger.Log.Error("chat unread reset failed",
				zap.String("assignmentId", assignmentID), zap.Error(err))
			return nil, nil, util.ErrChatUnavailable
		}
		chat, err = s.Store.Get(assignmentID)
		if err != nil {
			return nil, nil, util.ErrChatUnavailable
		}
	}

	handle := &ChatHandle{
		AssignmentID: assignmentID,
		UserID:       userID,
		Role:         role,
		sub:          s.Hub.Subscribe(assignmentID),
	}
	return handle, snapshotOf(chat), nil
}

// Send 追加一条消息。内容去空白后为空直接拒绝，不触存储；
// 对端未读数由存储层原子自增。写失败不改动任何本地状态。
func (s *ChatService) Send(assignmentID, senderID string, role model.ChatRole, content string) (*model.ChatSnapshot, error) {
	if strings.TrimSpace(content) == "" {
		return nil, util.ErrEmptyMessage
	}
	if assignmentID == "" || senderID == "" {
		return nil, util.ErrChatUnavailable
	}
	if !role.Valid() {
		return nil, util.ErrInvalidRole
	}

	msg := model.ChatMessage{
		Content:    strings.TrimSpace(content),
		SenderID:   senderID,
		SenderRole: role,
		Timestamp:  model.NowISO(),
		IsRead:     false,
	}

	chat, err := s.Store.AppendMessage(assignmentID, msg)
	if err != nil {
		logger.Log.Error("chat send failed",
			zap.String("assignmentId", assignmentID), zap.Error(err))
		return nil, err
	}

	snap := snapshotOf(chat)
	s.Hub.Publish(snap)
	return snap, nil
}

// Close 释放订阅并把关闭方角色的未读数清零：
// 会话内容在视图里展示过，计数器就必须归零。
func (s *ChatService) Close(handle *ChatHandle) error {
	if handle == nil {
		return nil
	}
	handle.sub.Cancel()

	if err := s.Store.ResetUnread(handle.AssignmentID, handle.Role); err != nil {
		logger.Log.Error("chat unread reset on close failed",
			zap.String("assignmentId", handle.AssignmentID), zap.Error(err))
		return err
	}

	if chat, err := s.Store.Get(handle.AssignmentID); err == nil {
		s.Hub.Publish(snapshotOf(chat))
	}
	return nil
}

// MarkRead 视图保持打开期间收到新消息后的显式已读
func (s *ChatService) MarkRead(assignmentID string, role model.ChatRole) error {
	if !role.Valid() {
		return util.ErrInvalidRole
	}
	return s.Store.ResetUnread(assignmentID, role)
}

// Snapshot 当前会话状态，无副作用读取
func (s *ChatService) Snapshot(assignmentID string) (*model.ChatSnapshot, error) {
	chat, err := s.Store.Get(assignmentID)
	if err != nil {
		return nil, err
	}
	return snapshotOf(chat), nil
}

func snapshotOf(chat *model.Chat) *model.ChatSnapshot {
	return &model.ChatSnapshot{
		AssignmentID: chat.AssignmentID,
		Messages:     chat.Messages,
		Unread:       chat.Unread,
		LastMessage:  chat.LastMessage,
	}
}
