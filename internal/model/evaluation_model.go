package model

import (
	"time"

	"github.com/google/uuid"
)

// Evaluation holds the persisted outcome of scoring one candidate against
// one job posting. A re-evaluation inserts a new row; rows are never mutated
// after Status reaches "completed".
type Evaluation struct {
	ID              uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CandidateID     uuid.UUID `gorm:"type:uuid;index" json:"candidate_id"`
	JobPostingID    uuid.UUID `gorm:"type:uuid;index" json:"job_posting_id"`
	Status          string    `gorm:"type:varchar(50)" json:"status"` // "processing", "completed", "failed"
	OverallScore    float64   `gorm:"type:float" json:"overall_score"`
	SkillScore      float64   `gorm:"type:float" json:"skill_score"`
	ExperienceScore float64   `gorm:"type:float" json:"experience_score"`
	EducationScore  float64   `gorm:"type:float" json:"education_score"`
	Narrative       string    `gorm:"type:text" json:"narrative"`
	MatchDetails    string    `gorm:"type:jsonb" json:"match_details"`
	Fallback        bool      `json:"fallback"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (e *Evaluation) TableName() string {
	return "evaluations"
}
