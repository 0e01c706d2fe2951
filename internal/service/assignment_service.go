package service

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"edu_portal_backend/internal/model"
	"edu_portal_backend/internal/util"
	"edu_portal_backend/pkg/logger"

	"go.uber.org/zap"
)

// AssignmentStore 作业流转需要的存储面
type AssignmentStore interface {
	CreateBatch(assignments []model.Assignment) error
	FindByID(id string) (*model.Assignment, error)
	ListByLesson(lessonID string) ([]model.Assignment, error)
	ListByStudent(studentID uint) ([]model.Assignment, error)
	UpdateStatus(id string, state model.ReviewState, history []model.HistoryEntry) error
	UpdateStudentContent(id string, content model.AssignmentContent, history []model.HistoryEntry) error
}

// StudentDirectory 下发与通知用到的用户查询面
type StudentDirectory interface {
	FindByID(id uint) (*model.User, error)
	ListActiveStudentsByCycle(cycleID string) ([]model.User, error)
}

type AssignmentService struct {
	AssignmentRepo AssignmentStore
	UserRepo       StudentDirectory
	Email          EmailService
}

func NewAssignmentService(assignmentRepo AssignmentStore, userRepo StudentDirectory, email EmailService) *AssignmentService {
	return &AssignmentService{
		AssignmentRepo: assignmentRepo,
		UserRepo:       userRepo,
		Email:          email,
	}
}

// DistributeInput 按课时给周期内学生批量下发作业
type DistributeInput struct {
	LessonID    string
	CycleID     string
	Title       string
	Description string
	DueDate     *time.Time
	Template    string
}

// Distribute 给周期内所有激活学生创建作业,已有作业的学生跳过。
// 学生名单和已有作业并发查询,结果按学生 ID 连接。
func (s *AssignmentService) Distribute(input DistributeInput) (int, error) {
	var (
		wg       sync.WaitGroup
		students []model.User
		existing []model.Assignment
		errStu   error
		errAsg   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		students, errStu = s.UserRepo.ListActiveStudentsByCycle(input.CycleID)
	}()
	go func() {
		defer wg.Done()
		existing, errAsg = s.AssignmentRepo.ListByLesson(input.LessonID)
	}()
	wg.Wait()

	if errStu != nil {
		return 0, errStu
	}
	if errAsg != nil {
		return 0, errAsg
	}

	has := make(map[uint]bool, len(existing))
	for _, a := range existing {
		has[a.StudentID] = true
	}

	batch := make([]model.Assignment, 0, len(students))
	for _, stu := range students {
		if has[stu.ID] {
			continue
		}
		a := model.Assignment{
			LessonID:    input.LessonID,
			CycleID:     input.CycleID,
			StudentID:   stu.ID,
			Title:       input.Title,
			Description: input.Description,
			DueDate:     input.DueDate,
			Content: model.AssignmentContent{
				Template:       input.Template,
				StudentContent: input.Template,
			},
			EditHistory: []model.HistoryEntry{},
			Feedbacks:   []model.Feedback{},
		}
		a.SetState(model.StateDraft)
		batch = append(batch, a)
	}

	if len(batch) == 0 {
		return 0, nil
	}
	if err := s.AssignmentRepo.CreateBatch(batch); err != nil {
		return 0, err
	}
	logger.Log.Info("作业下发完成",
		zap.String("lessonID", input.LessonID),
		zap.Int("created", len(batch)))
	return len(batch), nil
}

func (s *AssignmentService) Get(id string) (*model.Assignment, error) {
	a, err := s.AssignmentRepo.FindByID(id)
	if err != nil {
		return nil, util.ErrAssignmentNotFound
	}
	return a, nil
}

// GetForStudent 校验归属后返回,防止学生越权读取他人作业
func (s *AssignmentService) GetForStudent(id string, studentID uint) (*model.Assignment, error) {
	a, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if a.StudentID != studentID {
		return nil, util.ErrPermissionDenied
	}
	return a, nil
}

func (s *AssignmentService) ListByLesson(lessonID string) ([]model.Assignment, error) {
	return s.AssignmentRepo.ListByLesson(lessonID)
}

func (s *AssignmentService) ListByStudent(studentID uint) ([]model.Assignment, error) {
	return s.AssignmentRepo.ListByStudent(studentID)
}

// SaveContent 学生保存作业内容。仅草稿和待修改状态可写。
func (s *AssignmentService) SaveContent(id string, studentID uint, content string) (*model.Assignment, error) {
	a, err := s.GetForStudent(id, studentID)
	if err != nil {
		return nil, err
	}
	if !a.State().CanStudentEdit() {
		return nil, util.ErrContentLocked
	}

	a.Content.StudentContent = content
	a.EditHistory = append(a.EditHistory, model.HistoryEntry{
		Timestamp: model.NowISO(),
		Status:    a.Status,
	})
	if err := s.AssignmentRepo.UpdateStudentContent(id, a.Content, a.EditHistory); err != nil {
		return nil, err
	}
	return a, nil
}

// Submit 学生提交或重新提交
func (s *AssignmentService) Submit(id string, studentID uint) (*model.Assignment, error) {
	a, err := s.GetForStudent(id, studentID)
	if err != nil {
		return nil, err
	}

	next, ok := a.State().NextOnSubmit()
	if !ok {
		return nil, util.ErrInvalidTransition
	}

	a.SetState(next)
	a.EditHistory = append(a.EditHistory, model.HistoryEntry{
		Timestamp: model.NowISO(),
		Status:    a.Status,
	})
	if err := s.AssignmentRepo.UpdateStatus(id, next, a.EditHistory); err != nil {
		return nil, err
	}
	return a, nil
}

// TeacherAction 教师批改动作:review / revision / completed。
// 终态动作触发学生邮件通知,发送失败不阻塞。
func (s *AssignmentService) TeacherAction(id, action string) (*model.Assignment, error) {
	a, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	next, ok := a.State().NextOnTeacherAction(action)
	if !ok {
		return nil, fmt.Errorf("%w: %s -> %s", util.ErrInvalidTransition, a.State(), action)
	}

	a.SetState(next)
	a.EditHistory = append(a.EditHistory, model.HistoryEntry{
		Timestamp: model.NowISO(),
		Status:    a.Status,
	})
	if err := s.AssignmentRepo.UpdateStatus(id, next, a.EditHistory); err != nil {
		return nil, err
	}

	s.notifyStudent(a, next)
	return a, nil
}

func (s *AssignmentService) notifyStudent(a *model.Assignment, state model.ReviewState) {
	if s.Email == nil {
		return
	}
	student := a.Student
	if student == nil {
		u, err := s.UserRepo.FindByID(a.StudentID)
		if err != nil {
			logger.Log.Warn("通知学生失败,找不到用户",
				zap.String("assignmentID", a.ID),
				zap.String("studentID", strconv.FormatUint(uint64(a.StudentID), 10)))
			return
		}
		student = u
	}
	go func() {
		if err := s.Email.SendStatusChange(student, a.Title, state); err != nil {
			logger.Log.Warn("状态变更邮件发送失败",
				zap.String("assignmentID", a.ID),
				zap.Error(err))
		}
	}()
}
