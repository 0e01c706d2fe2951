package repository

import (
	"edu_portal_backend/internal/model"

	"gorm.io/gorm"
)

type AssignmentRepository struct {
	DB *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{DB: db}
}

func (r *AssignmentRepository) Create(assignment *model.Assignment) error {
	return r.DB.Create(assignment).Error
}

func (r *AssignmentRepository) CreateBatch(assignments []model.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}
	return r.DB.Create(&assignments).Error
}

func (r *AssignmentRepository) FindByID(id string) (*model.Assignment, error) {
	var assignment model.Assignment
	err := r.DB.Preload("Student").First(&assignment, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *AssignmentRepository) ListByLesson(lessonID string) ([]model.Assignment, error) {
	var assignments []model.Assignment
	err := r.DB.Preload("Student").
		Where("lesson_id = ?", lessonID).
		Order("created_at ASC").
		Find(&assignments).Error
	return assignments, err
}

func (r *AssignmentRepository) ListByStudent(studentID uint) ([]model.Assignment, error) {
	var assignments []model.Assignment
	err := r.DB.Where("student_id = ?", studentID).
		Order("created_at DESC").
		Find(&assignments).Error
	return assignments, err
}

func (r *AssignmentRepository) FindByLessonAndStudent(lessonID string, studentID uint) (*model.Assignment, error) {
	var assignment model.Assignment
	err := r.DB.Where("lesson_id = ? AND student_id = ?", lessonID, studentID).
		First(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *AssignmentRepository) Update(assignment *model.Assignment) error {
	return r.DB.Save(assignment).Error
}

// UpdateFeedbacks 批注集合整体写回（文档级 last-write-wins，不做并发合并）
func (r *AssignmentRepository) UpdateFeedbacks(id string, feedbacks []model.Feedback) error {
	return r.DB.Model(&model.Assignment{}).
		Where("id = ?", id).
		Update("feedbacks", feedbacks).Error
}

// UpdateStatus 同步写两个投影字段并追加编辑历史
func (r *AssignmentRepository) UpdateStatus(id string, state model.ReviewState, history []model.HistoryEntry) error {
	return r.DB.Model(&model.Assignment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":         state.StudentStatus(),
			"teacher_status": state.TeacherStatus(),
			"edit_history":   history,
		}).Error
}

// UpdateStudentContent 保存学生作答并追加编辑历史
func (r *AssignmentRepository) UpdateStudentContent(id string, content model.AssignmentContent, history []model.HistoryEntry) error {
	return r.DB.Model(&model.Assignment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"content":      content,
			"edit_history": history,
		}).Error
}
