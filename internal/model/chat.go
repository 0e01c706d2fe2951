package model

import (
	"time"
)

// ChatRole 会话的两个固定参与方
type ChatRole string

const (
	RoleTeacher ChatRole = "teacher"
	RoleStudent ChatRole = "student"
)

// Valid 角色合法性
func (r ChatRole) Valid() bool {
	return r == RoleTeacher || r == RoleStudent
}

// Other 对端角色
func (r ChatRole) Other() ChatRole {
	if r == RoleTeacher {
		return RoleStudent
	}
	return RoleTeacher
}

// ChatMessage 一条聊天消息，追加后不可变
type ChatMessage struct {
	Content    string   `json:"content"`
	SenderID   string   `json:"senderId"`
	SenderRole ChatRole `json:"senderRole"`
	Timestamp  string   `json:"timestamp"`
	IsRead     bool     `json:"isRead"` // 保留的历史字段，已由未读计数器取代
}

// LastMessage 会话列表预览用的冗余指针
type LastMessage struct {
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	SenderID  string `json:"senderId"`
}

// Participants 会话双方
type Participants struct {
	TeacherID string `json:"teacherId"`
	StudentID string `json:"studentId"`
}

// UnreadCount 双槽未读计数，按角色各一槽
type UnreadCount struct {
	Teacher int `json:"teacher"`
	Student int `json:"student"`
}

// ByRole 取指定角色的未读数
func (u UnreadCount) ByRole(r ChatRole) int {
	if r == RoleTeacher {
		return u.Teacher
	}
	return u.Student
}

// Chat 与任务 1:1 的消息线程。消息数组整体读写；
// 未读计数单独落列，由存储层做原子自增/清零。
type Chat struct {
	AssignmentID  string        `gorm:"primaryKey;type:varchar(36)" json:"assignmentId"`
	Messages      []ChatMessage `gorm:"serializer:json;type:json" json:"messages"`
	Participants  Participants  `gorm:"serializer:json;type:json" json:"participants"`
	LastMessage   *LastMessage  `gorm:"serializer:json;type:json" json:"lastMessage"`
	UnreadTeacher int           `gorm:"default:0" json:"-"`
	UnreadStudent int           `gorm:"default:0" json:"-"`
	Unread        UnreadCount   `gorm:"-" json:"unreadCount"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

func (Chat) TableName() string {
	return "chats"
}

// SyncUnread 把计数列同步到对外结构
func (c *Chat) SyncUnread() {
	c.Unread = UnreadCount{Teacher: c.UnreadTeacher, Student: c.UnreadStudent}
}

// ChatSnapshot 推送给订阅方的全量快照（非增量）
type ChatSnapshot struct {
	AssignmentID string        `json:"assignmentId"`
	Messages     []ChatMessage `json:"messages"`
	Unread       UnreadCount   `json:"unreadCount"`
	LastMessage  *LastMessage  `json:"lastMessage"`
}
