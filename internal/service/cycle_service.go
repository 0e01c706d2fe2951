package service

import (
	"edu_portal_backend/internal/model"
	"edu_portal_backend/internal/repository"
)

type CycleService struct {
	CycleRepo *repository.CycleRepository
}

func NewCycleService(cycleRepo *repository.CycleRepository) *CycleService {
	return &CycleService{CycleRepo: cycleRepo}
}

func (s *CycleService) Create(cycle *model.Cycle) error {
	return s.CycleRepo.Create(cycle)
}

func (s *CycleService) Get(id string) (*model.Cycle, error) {
	return s.CycleRepo.FindByID(id)
}

func (s *CycleService) List(page, limit int) ([]model.Cycle, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.CycleRepo.List(page, limit)
}

func (s *CycleService) Update(cycle *model.Cycle) error {
	return s.CycleRepo.Update(cycle)
}

func (s *CycleService) Delete(id string) error {
	return s.CycleRepo.Delete(id)
}
