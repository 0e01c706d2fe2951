package repository

import (
	"errors"

	"edu_portal_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatRepository 聊天文档的持久化。消息数组整体读写（文档级 last-write-wins），
// 未读计数走独立列，自增/清零由数据库端原子完成，规避读-改-写丢失更新。
type ChatRepository struct {
	DB *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{DB: db}
}

// GetOrCreate 按任务 ID 幂等创建聊天文档
func (r *ChatRepository) GetOrCreate(assignmentID string, participants model.Participants) (*model.Chat, error) {
	chat := model.Chat{
		AssignmentID: assignmentID,
		Messages:     []model.ChatMessage{},
		Participants: participants,
	}
	err := r.DB.Where("assignment_id = ?", assignmentID).
		Attrs(chat).
		FirstOrCreate(&chat).Error
	if err != nil {
		return nil, err
	}
	chat.SyncUnread()
	return &chat, nil
}

func (r *ChatRepository) Get(assignmentID string) (*model.Chat, error) {
	var chat model.Chat
	err := r.DB.First(&chat, "assignment_id = ?", assignmentID).Error
	if err != nil {
		return nil, err
	}
	chat.SyncUnread()
	return &chat, nil
}

// AppendMessage 追加一条消息并原子递增对端角色的未读数。
// 行锁内读出数组再整体写回，保证单写方观察到的追加顺序。
func (r *ChatRepository) AppendMessage(assignmentID string, msg model.ChatMessage) (*model.Chat, error) {
	var chat model.Chat
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&chat, "assignment_id = ?", assignmentID).Error; err != nil {
			return err
		}

		chat.Messages = append(chat.Messages, msg)
		last := &model.LastMessage{
			Content:   msg.Content,
			Timestamp: msg.Timestamp,
			SenderID:  msg.SenderID,
		}

		counterCol := "unread_teacher"
		if msg.SenderRole == model.RoleTeacher {
			counterCol = "unread_student"
		}

		return tx.Model(&model.Chat{}).
			Where("assignment_id = ?", assignmentID).
			Updates(map[string]interface{}{
				"messages":     chat.Messages,
				"last_message": last,
				counterCol:     gorm.Expr(counterCol+" + ?", 1),
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return r.Get(assignmentID)
}

// ResetUnread 将指定角色的未读数清零（打开或关闭会话视图时调用）
func (r *ChatRepository) ResetUnread(assignmentID string, role model.ChatRole) error {
	if !role.Valid() {
		return errors.New("invalid role")
	}
	counterCol := "unread_teacher"
	if role == model.RoleStudent {
		counterCol = "unread_student"
	}
	return r.DB.Model(&model.Chat{}).
		Where("assignment_id = ?", assignmentID).
		Update(counterCol, 0).Error
}
