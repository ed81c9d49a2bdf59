package repository

import (
	"github.com/arkanata/talentsift/internal/model"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type JobPostingRepository struct {
	db *gorm.DB
}

func NewJobPostingRepository(db *gorm.DB) *JobPostingRepository {
	return &JobPostingRepository{db}
}

func (r *JobPostingRepository) Create(job *model.JobPosting) error {
	return r.db.Create(job).Error
}

func (r *JobPostingRepository) Update(job *model.JobPosting) error {
	return r.db.Save(job).Error
}

func (r *JobPostingRepository) Delete(id string) error {
	return r.db.Delete(&model.JobPosting{}, "id = ?", id).Error
}

func (r *JobPostingRepository) FindByID(id string) (*model.JobPosting, error) {
	var j model.JobPosting
	err := r.db.First(&j, "id = ?", id).Error
	return &j, err
}

func (r *JobPostingRepository) List(offset, limit int) ([]model.JobPosting, int64, error) {
	var (
		jobs  []model.JobPosting
		total int64
	)
	if err := r.db.Model(&model.JobPosting{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&jobs).Error
	return jobs, total, err
}

// SearchByEmbedding returns the topK postings nearest to the given embedding.
func (r *JobPostingRepository) SearchByEmbedding(embedding pgvector.Vector, topK int) ([]model.JobPosting, error) {
	var jobs []model.JobPosting
	err := r.db.Raw(`
        SELECT *, embedding <-> ? AS distance
        FROM job_postings
        ORDER BY embedding <-> ?
        LIMIT ?
    `, embedding, embedding, topK).Scan(&jobs).Error
	return jobs, err
}
