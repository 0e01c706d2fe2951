package service

import (
	"edu_portal_backend/internal/model"
	"edu_portal_backend/internal/repository"
	"edu_portal_backend/internal/util"
)

type UserService struct {
	UserRepo *repository.UserRepository
}

func NewUserService(userRepo *repository.UserRepository) *UserService {
	return &UserService{UserRepo: userRepo}
}

func (s *UserService) GetByID(id uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(id)
	if err != nil {
		return nil, util.ErrUserNotFound
	}
	return user, nil
}

func (s *UserService) List(query string, page, limit int) ([]model.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.UserRepo.List(query, page, limit)
}

func (s *UserService) ListStudentsByCycle(cycleID string) ([]model.User, error) {
	return s.UserRepo.ListActiveStudentsByCycle(cycleID)
}

// UpdateProfile 学生只能改自己的资料,姓名和头像以外的字段不开放
func (s *UserService) UpdateProfile(id uint, fullName, avatar string) (*model.User, error) {
	user, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if fullName != "" {
		user.FullName = fullName
	}
	if avatar != "" {
		user.Avatar = avatar
	}
	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetRole 管理端操作
func (s *UserService) SetRole(id uint, role model.UserRole) (*model.User, error) {
	switch role {
	case model.Student, model.Teacher, model.Admin:
	default:
		return nil, util.ErrInvalidUserRole
	}

	user, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	user.Role = role
	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// AssignCycle 把学生划入某个学习周期
func (s *UserService) AssignCycle(id uint, cycleID string) (*model.User, error) {
	user, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	user.CycleID = cycleID
	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) TouchLastSeen(id uint) {
	s.UserRepo.UpdateLastSeen(id)
}
