package service

import (
	"fmt"
	"os"
	"testing"
	"time"

	"edu_portal_backend/internal/model"
	"edu_portal_backend/internal/util"
	"edu_portal_backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

// fakeChatStore 复刻存储层语义:消息整体追加,未读计数按角色独立增减
type fakeChatStore struct {
	chats map[string]*model.Chat
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{chats: map[string]*model.Chat{}}
}

func (f *fakeChatStore) GetOrCreate(assignmentID string, participants model.Participants) (*model.Chat, error) {
	if chat, ok := f.chats[assignmentID]; ok {
		chat.SyncUnread()
		return chat, nil
	}
	chat := &model.Chat{
		AssignmentID: assignmentID,
		Messages:     []model.ChatMessage{},
		Participants: participants,
	}
	f.chats[assignmentID] = chat
	chat.SyncUnread()
	return chat, nil
}

func (f *fakeChatStore) Get(assignmentID string) (*model.Chat, error) {
	chat, ok := f.chats[assignmentID]
	if !ok {
		return nil, fmt.Errorf("chat %s not found", assignmentID)
	}
	chat.SyncUnread()
	return chat, nil
}

func (f *fakeChatStore) AppendMessage(assignmentID string, msg model.ChatMessage) (*model.Chat, error) {
	chat, ok := f.chats[assignmentID]
	if !ok {
		return nil, fmt.Errorf("chat %s not found", assignmentID)
	}
	chat.Messages = append(chat.Messages, msg)
	chat.LastMessage = &model.LastMessage{
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
		SenderID:  msg.SenderID,
	}
	if msg.SenderRole == model.RoleTeacher {
		chat.UnreadStudent++
	} else {
		chat.UnreadTeacher++
	}
	chat.SyncUnread()
	return chat, nil
}

func (f *fakeChatStore) ResetUnread(assignmentID string, role model.ChatRole) error {
	chat, ok := f.chats[assignmentID]
	if !ok {
		return fmt.Errorf("chat %s not found", assignmentID)
	}
	if role == model.RoleTeacher {
		chat.UnreadTeacher = 0
	} else {
		chat.UnreadStudent = 0
	}
	chat.SyncUnread()
	return nil
}

func newChatFixture() (*ChatService, *fakeChatStore) {
	store := newFakeChatStore()
	return NewChatService(store, NewChatHub(nil)), store
}

var testParticipants = model.Participants{TeacherID: "t1", StudentID: "s1"}

func TestOpenCreatesEmptyChat(t *testing.T) {
	svc, store := newChatFixture()

	handle, snap, err := svc.Open("a1", "s1", model.RoleStudent, testParticipants)
	require.NoError(t, err)
	defer svc.Close(handle)

	assert.Empty(t, snap.Messages)
	assert.Zero(t, snap.Unread.Teacher)
	assert.Zero(t, snap.Unread.Student)
	assert.Equal(t, testParticipants, store.chats["a1"].Participants)

	// 再次打开是幂等的,不重建文档
	handle2, snap2, err := svc.Open("a1", "t1", model.RoleTeacher, testParticipants)
	require.NoError(t, err)
	defer svc.Close(handle2)
	assert.Empty(t, snap2.Messages)
	assert.Len(t, store.chats, 1)
}

func TestOpenRejectsInvalidInput(t *testing.T) {
	svc, _ := newChatFixture()

	_, _, err := svc.Open("", "u1", model.RoleStudent, testParticipants)
	assert.ErrorIs(t, err, util.ErrChatUnavailable)

	_, _, err = svc.Open("a1", "u1", model.ChatRole("admin"), testParticipants)
	assert.ErrorIs(t, err, util.ErrInvalidRole)
}

func TestSendIncrementsRecipientUnread(t *testing.T) {
	svc, store := newChatFixture()
	_, _, err := svc.Open("a1", "t1", model.RoleTeacher, testParticipants)
	require.NoError(t, err)

	const n = 5
	for i := 0; i < n; i++ {
		_, err := svc.Send("a1", "t1", model.RoleTeacher, fmt.Sprintf("消息 %d", i))
		require.NoError(t, err)
	}

	chat := store.chats["a1"]
	assert.Equal(t, n, chat.UnreadStudent) // 对端累加
	assert.Zero(t, chat.UnreadTeacher)     // 发送方不变
	assert.Len(t, chat.Messages, n)
	require.NotNil(t, chat.LastMessage)
	assert.Equal(t, "消息 4", chat.LastMessage.Content)
}

func TestSendRejectsEmptyContent(t *testing.T) {
	svc, store := newChatFixture()
	svc.Open("a1", "t1", model.RoleTeacher, testParticipants)

	_, err := svc.Send("a1", "t1", model.RoleTeacher, "   \n ")
	assert.ErrorIs(t, err, util.ErrEmptyMessage)
	assert.Empty(t, store.chats["a1"].Messages)
}

func TestOpenResetsOwnUnreadOnly(t *testing.T) {
	svc, store := newChatFixture()
	svc.Open("a1", "t1", model.RoleTeacher, testParticipants)

	// 双向各发消息,两侧都有未读
	svc.Send("a1", "t1", model.RoleTeacher, "老师的消息")
	svc.Send("a1", "s1", model.RoleStudent, "学生的消息")
	require.Equal(t, 1, store.chats["a1"].UnreadTeacher)
	require.Equal(t, 1, store.chats["a1"].UnreadStudent)

	handle, snap, err := svc.Open("a1", "s1", model.RoleStudent, testParticipants)
	require.NoError(t, err)
	defer svc.Close(handle)

	assert.Zero(t, snap.Unread.Student)
	assert.Equal(t, 1, snap.Unread.Teacher)
}

func TestCloseResetsUnread(t *testing.T) {
	svc, store := newChatFixture()
	handle, _, err := svc.Open("a1", "s1", model.RoleStudent, testParticipants)
	require.NoError(t, err)

	// 视图打开期间对端发来消息
	svc.Send("a1", "t1", model.RoleTeacher, "批改完了")
	require.Equal(t, 1, store.chats["a1"].UnreadStudent)

	require.NoError(t, svc.Close(handle))
	assert.Zero(t, store.chats["a1"].UnreadStudent)
}

func TestObserveReceivesSnapshots(t *testing.T) {
	svc, _ := newChatFixture()
	handle, _, err := svc.Open("a1", "s1", model.RoleStudent, testParticipants)
	require.NoError(t, err)
	defer svc.Close(handle)

	_, err = svc.Send("a1", "t1", model.RoleTeacher, "在吗")
	require.NoError(t, err)

	select {
	case snap := <-handle.Observe():
		require.Len(t, snap.Messages, 1)
		assert.Equal(t, "在吗", snap.Messages[0].Content)
		assert.Equal(t, 1, snap.Unread.Student)
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}
}

func TestObserveClosedAfterCancel(t *testing.T) {
	svc, _ := newChatFixture()
	handle, _, err := svc.Open("a1", "s1", model.RoleStudent, testParticipants)
	require.NoError(t, err)

	require.NoError(t, svc.Close(handle))

	select {
	case _, ok := <-handle.Observe():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
}

func TestMarkRead(t *testing.T) {
	svc, store := newChatFixture()
	svc.Open("a1", "s1", model.RoleStudent, testParticipants)
	svc.Send("a1", "t1", model.RoleTeacher, "hello")
	require.Equal(t, 1, store.chats["a1"].UnreadStudent)

	require.NoError(t, svc.MarkRead("a1", model.RoleStudent))
	assert.Zero(t, store.chats["a1"].UnreadStudent)

	assert.ErrorIs(t, svc.MarkRead("a1", model.ChatRole("bogus")), util.ErrInvalidRole)
}
