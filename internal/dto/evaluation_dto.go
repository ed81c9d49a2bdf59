package dto

import (
	"time"

	"github.com/arkanata/talentsift/internal/model"
	"github.com/google/uuid"
)

type EvaluationDTO struct {
	ID              uuid.UUID `json:"id"`
	CandidateID     uuid.UUID `json:"candidate_id"`
	JobPostingID    uuid.UUID `json:"job_posting_id"`
	Status          string    `json:"status"`
	OverallScore    float64   `json:"overall_score"`
	SkillScore      float64   `json:"skill_score"`
	ExperienceScore float64   `json:"experience_score"`
	EducationScore  float64   `json:"education_score"`
	Narrative       string    `json:"narrative"`
	MatchDetails    string    `json:"match_details"`
	Fallback        bool      `json:"fallback"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func EvaluationFromModel(ev *model.Evaluation) EvaluationDTO {
	return EvaluationDTO{
		ID:              ev.ID,
		CandidateID:     ev.CandidateID,
		JobPostingID:    ev.JobPostingID,
		Status:          ev.Status,
		OverallScore:    ev.OverallScore,
		SkillScore:      ev.SkillScore,
		ExperienceScore: ev.ExperienceScore,
		EducationScore:  ev.EducationScore,
		Narrative:       ev.Narrative,
		MatchDetails:    ev.MatchDetails,
		Fallback:        ev.Fallback,
		CreatedAt:       ev.CreatedAt,
		UpdatedAt:       ev.UpdatedAt,
	}
}
