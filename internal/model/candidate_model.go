package model

import (
	"time"

	"github.com/google/uuid"
)

type Candidate struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	FullName   string    `gorm:"type:varchar(255)" json:"full_name"`
	Email      string    `gorm:"type:varchar(255);index" json:"email"`
	ResumeText string    `gorm:"type:text" json:"resume_text"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (c *Candidate) TableName() string {
	return "candidates"
}
