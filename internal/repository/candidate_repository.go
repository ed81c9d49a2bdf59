package repository

import (
	"github.com/arkanata/talentsift/internal/model"
	"gorm.io/gorm"
)

type CandidateRepository struct {
	db *gorm.DB
}

func NewCandidateRepository(db *gorm.DB) *CandidateRepository {
	return &CandidateRepository{db}
}

func (r *CandidateRepository) Create(candidate *model.Candidate) error {
	return r.db.Create(candidate).Error
}

func (r *CandidateRepository) Update(candidate *model.Candidate) error {
	return r.db.Save(candidate).Error
}

func (r *CandidateRepository) Delete(id string) error {
	return r.db.Delete(&model.Candidate{}, "id = ?", id).Error
}

func (r *CandidateRepository) FindByID(id string) (*model.Candidate, error) {
	var c model.Candidate
	err := r.db.First(&c, "id = ?", id).Error
	return &c, err
}

func (r *CandidateRepository) List(offset, limit int) ([]model.Candidate, int64, error) {
	var (
		candidates []model.Candidate
		total      int64
	)
	if err := r.db.Model(&model.Candidate{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&candidates).Error
	return candidates, total, err
}
