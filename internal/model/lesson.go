package model

import (
	"time"
)

// Lesson 课程单元，归属一个学习周期
type Lesson struct {
	UUIDBase
	CycleID     string           `gorm:"type:varchar(36);index;not null" json:"cycleId"`
	Title       string           `gorm:"size:200;not null" json:"title"`
	Description string           `gorm:"type:text" json:"description"`
	Content     string           `gorm:"type:longtext" json:"content"` // 课程正文（富文本）
	OrderIndex  int              `gorm:"default:0" json:"orderIndex"`
	PublishedAt *time.Time       `json:"publishedAt"`
	Materials   []LessonMaterial `gorm:"serializer:json;type:json" json:"materials"`
}

func (Lesson) TableName() string {
	return "lessons"
}

// LessonMaterial 课程附件（文件/视频），URL 指向对象存储
type LessonMaterial struct {
	Name        string  `json:"name"`
	URL         string  `json:"url"`
	ContentType string  `json:"contentType"`
	Size        int64   `json:"size"`
	Duration    float64 `json:"duration,omitempty"` // 视频时长（秒）
}
