package model

import (
	"time"
)

// ReviewState 批改生命周期的规范状态。
// 对外暴露的是两个投影字段：status（学生视角）与 teacherStatus（教师视角）。
type ReviewState string

const (
	StateDraft             ReviewState = "draft"
	StateSubmitted         ReviewState = "submitted"
	StateUnderReview       ReviewState = "under_review"
	StateRevisionRequested ReviewState = "revision_requested"
	StateResubmitted       ReviewState = "resubmitted"
	StateCompleted         ReviewState = "completed"
)

// StudentStatus 学生端投影
func (s ReviewState) StudentStatus() string {
	switch s {
	case StateDraft:
		return "pending"
	case StateSubmitted:
		return "submitted"
	case StateUnderReview:
		return "review"
	case StateRevisionRequested, StateCompleted:
		return "feedback"
	case StateResubmitted:
		return "resubmitted"
	}
	return "pending"
}

// TeacherStatus 教师端投影
func (s ReviewState) TeacherStatus() string {
	switch s {
	case StateDraft:
		return "new"
	case StateSubmitted:
		return "submitted"
	case StateUnderReview:
		return "review"
	case StateRevisionRequested:
		return "revision"
	case StateCompleted:
		return "completed"
	case StateResubmitted:
		return "resubmitted"
	}
	return "new"
}

// CanStudentEdit 学生是否可修改提交内容：仅草稿与返修两个状态可编辑
func (s ReviewState) CanStudentEdit() bool {
	return s == StateDraft || s == StateRevisionRequested
}

// NextOnSubmit 学生提交动作的迁移；从返修状态提交视为重新提交
func (s ReviewState) NextOnSubmit() (ReviewState, bool) {
	switch s {
	case StateDraft:
		return StateSubmitted, true
	case StateRevisionRequested:
		return StateResubmitted, true
	}
	return s, false
}

// NextOnTeacherAction 教师批改动作的迁移。
// action ∈ {review, completed, revision}；仅在已提交/审阅中/重新提交状态下有效。
func (s ReviewState) NextOnTeacherAction(action string) (ReviewState, bool) {
	if s != StateSubmitted && s != StateUnderReview && s != StateResubmitted {
		return s, false
	}
	switch action {
	case "review":
		return StateUnderReview, true
	case "completed":
		return StateCompleted, true
	case "revision":
		return StateRevisionRequested, true
	}
	return s, false
}

// AssignmentContent 模板（教师下发后不可变）与学生作答正文
type AssignmentContent struct {
	Template       string `json:"template"`
	StudentContent string `json:"studentContent"`
}

// HistoryEntry 编辑历史记录
type HistoryEntry struct {
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
}

// Position 批注弹层的锚点坐标，仅用于前端定位，不参与文本重匹配
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Feedback 一条批阅批注。spanned 批注的 Text 为创建时选中的原文片段；
// general 批注 Text 为空、Position 为 nil。
type Feedback struct {
	ID        int64     `json:"id"` // 创建时刻毫秒时间戳，集合内唯一
	Text      string    `json:"text"`
	Comment   string    `json:"comment"`
	Position  *Position `json:"position"`
	Timestamp string    `json:"timestamp"`
	IsGeneral bool      `json:"isGeneral"`
}

// Assignment 学员在某课程下的任务实例，批注集合整体随文档读写
type Assignment struct {
	UUIDBase
	LessonID      string            `gorm:"type:varchar(36);index;not null" json:"lessonId"`
	CycleID       string            `gorm:"type:varchar(36);index;not null" json:"cycleId"`
	StudentID     uint              `gorm:"index;not null" json:"studentId"`
	Student       *User             `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Title         string            `gorm:"size:200" json:"title"`
	Description   string            `gorm:"type:text" json:"description"`
	DueDate       *time.Time        `json:"dueDate"`
	Content       AssignmentContent `gorm:"serializer:json;type:json" json:"content"`
	Status        string            `gorm:"size:20;default:'pending';index" json:"status"`
	TeacherStatus string            `gorm:"size:20;default:'new'" json:"teacherStatus"`
	Feedbacks     []Feedback        `gorm:"serializer:json;type:json" json:"feedbacks"`
	EditHistory   []HistoryEntry    `gorm:"serializer:json;type:json" json:"editHistory"`
}

func (Assignment) TableName() string {
	return "assignments"
}

// ReviewStateOf 由两个投影字段还原规范状态
func ReviewStateOf(status, teacherStatus string) ReviewState {
	switch status {
	case "submitted":
		return StateSubmitted
	case "review":
		return StateUnderReview
	case "resubmitted":
		return StateResubmitted
	case "feedback":
		if teacherStatus == "completed" {
			return StateCompleted
		}
		return StateRevisionRequested
	}
	return StateDraft
}

// State 当前规范状态
func (a *Assignment) State() ReviewState {
	return ReviewStateOf(a.Status, a.TeacherStatus)
}

// SetState 同步写入两个投影字段
func (a *Assignment) SetState(s ReviewState) {
	a.Status = s.StudentStatus()
	a.TeacherStatus = s.TeacherStatus()
}
