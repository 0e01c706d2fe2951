package service

import (
	"context"
	"mime/multipart"
	"time"

	"edu_portal_backend/internal/model"
	"edu_portal_backend/internal/repository"
)

type LessonService struct {
	LessonRepo *repository.LessonRepository
	Storage    *StorageService
}

func NewLessonService(lessonRepo *repository.LessonRepository, storage *StorageService) *LessonService {
	return &LessonService{LessonRepo: lessonRepo, Storage: storage}
}

func (s *LessonService) Create(lesson *model.Lesson) error {
	if lesson.Materials == nil {
		lesson.Materials = []model.LessonMaterial{}
	}
	return s.LessonRepo.Create(lesson)
}

func (s *LessonService) Get(id string) (*model.Lesson, error) {
	return s.LessonRepo.FindByID(id)
}

func (s *LessonService) ListByCycle(cycleID string) ([]model.Lesson, error) {
	return s.LessonRepo.ListByCycle(cycleID)
}

func (s *LessonService) Update(lesson *model.Lesson) error {
	return s.LessonRepo.Update(lesson)
}

func (s *LessonService) Delete(id string) error {
	return s.LessonRepo.Delete(id)
}

func (s *LessonService) Publish(id string) (*model.Lesson, error) {
	lesson, err := s.LessonRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	lesson.PublishedAt = &now
	if err := s.LessonRepo.Update(lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

// AttachMaterial 上传课件并追加到素材列表
func (s *LessonService) AttachMaterial(ctx context.Context, lessonID string, file *multipart.FileHeader) (*model.Lesson, error) {
	lesson, err := s.LessonRepo.FindByID(lessonID)
	if err != nil {
		return nil, err
	}

	material, err := s.Storage.UploadMaterial(ctx, lessonID, file)
	if err != nil {
		return nil, err
	}

	lesson.Materials = append(lesson.Materials, *material)
	if err := s.LessonRepo.Update(lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}
