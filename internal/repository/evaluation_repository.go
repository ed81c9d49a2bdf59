package repository

import (
	"github.com/arkanata/talentsift/internal/model"
	"gorm.io/gorm"
)

type EvaluationRepository struct {
	db *gorm.DB
}

func NewEvaluationRepository(db *gorm.DB) *EvaluationRepository {
	return &EvaluationRepository{db}
}

func (r *EvaluationRepository) Create(ev *model.Evaluation) error {
	return r.db.Create(ev).Error
}

func (r *EvaluationRepository) Update(ev *model.Evaluation) error {
	return r.db.Save(ev).Error
}

func (r *EvaluationRepository) Delete(id string) error {
	return r.db.Delete(&model.Evaluation{}, "id = ?", id).Error
}

func (r *EvaluationRepository) FindByID(id string) (*model.Evaluation, error) {
	var ev model.Evaluation
	err := r.db.First(&ev, "id = ?", id).Error
	return &ev, err
}

// ListByJob pages evaluations for one job posting, newest first, with a
// total count for pagination.
func (r *EvaluationRepository) ListByJob(jobID string, offset, limit int) ([]model.Evaluation, int64, error) {
	var (
		evals []model.Evaluation
		total int64
	)
	q := r.db.Model(&model.Evaluation{}).Where("job_posting_id = ?", jobID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&evals).Error
	return evals, total, err
}
