package model

import (
	"time"
)

// Cycle 学习周期：一批学员共同经历的课程期次
type Cycle struct {
	UUIDBase
	Name        string     `gorm:"size:100;not null" json:"name"`
	Description string     `gorm:"type:text" json:"description"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	IsActive    bool       `gorm:"default:true" json:"isActive"`
	Lessons     []Lesson   `gorm:"foreignKey:CycleID" json:"lessons,omitempty"`
}

func (Cycle) TableName() string {
	return "cycles"
}
