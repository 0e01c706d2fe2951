package repository

import (
	"edu_portal_backend/internal/model"

	"gorm.io/gorm"
)

type CycleRepository struct {
	DB *gorm.DB
}

func NewCycleRepository(db *gorm.DB) *CycleRepository {
	return &CycleRepository{DB: db}
}

func (r *CycleRepository) Create(cycle *model.Cycle) error {
	return r.DB.Create(cycle).Error
}

func (r *CycleRepository) FindByID(id string) (*model.Cycle, error) {
	var cycle model.Cycle
	err := r.DB.Preload("Lessons", func(db *gorm.DB) *gorm.DB {
		return db.Order("lessons.order_index ASC")
	}).First(&cycle, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &cycle, nil
}

func (r *CycleRepository) List(page, limit int) ([]model.Cycle, int64, error) {
	var cycles []model.Cycle
	var total int64

	db := r.DB.Model(&model.Cycle{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&cycles).Error
	return cycles, total, err
}

func (r *CycleRepository) Update(cycle *model.Cycle) error {
	return r.DB.Save(cycle).Error
}

func (r *CycleRepository) Delete(id string) error {
	return r.DB.Delete(&model.Cycle{}, "id = ?", id).Error
}
