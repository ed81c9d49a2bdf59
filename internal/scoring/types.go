// Package scoring talks to the external ML scoring service and carries a
// local deterministic fallback for when that service is unreachable.
package scoring

// Experience is one work-history entry of a structured resume.
type Experience struct {
	JobTitle       string   `json:"job_title,omitempty"`
	Company        string   `json:"company,omitempty"`
	DurationMonths int      `json:"duration_months,omitempty"`
	Technologies   []string `json:"technologies,omitempty"`
}

// Education is one education entry of a structured resume.
type Education struct {
	Degree       string `json:"degree,omitempty"`
	FieldOfStudy string `json:"field_of_study,omitempty"`
	Institution  string `json:"institution,omitempty"`
}

// ResumeData is the structured-resume shape the scoring service expects.
type ResumeData struct {
	Name                 string       `json:"name,omitempty"`
	Email                string       `json:"email,omitempty"`
	Skills               []string     `json:"skills"`
	Experience           []Experience `json:"experience"`
	Education            []Education  `json:"education"`
	Certifications       []string     `json:"certifications,omitempty"`
	Summary              string       `json:"summary,omitempty"`
	TotalExperienceYears float64      `json:"total_experience_years"`
}

// JobRequirements is the structured-job-description shape the scoring
// service expects.
type JobRequirements struct {
	Title                   string   `json:"title,omitempty"`
	Company                 string   `json:"company,omitempty"`
	RequiredSkills          []string `json:"required_skills"`
	PreferredSkills         []string `json:"preferred_skills,omitempty"`
	RequiredExperienceYears float64  `json:"required_experience_years"`
	RequiredEducation       []string `json:"required_education,omitempty"`
	Description             string   `json:"description,omitempty"`
}

// Subscores breaks the overall score down per criterion, each on a 0-100 scale.
type Subscores struct {
	Skill      float64 `json:"skill"`
	Experience float64 `json:"experience"`
	Education  float64 `json:"education"`
}

// Weights controls how subscores are combined into the overall score.
type Weights struct {
	Skill      float64 `json:"skill"`
	Experience float64 `json:"experience"`
	Education  float64 `json:"education"`
}

// DefaultWeights returns the standard subscore weighting.
func DefaultWeights() Weights {
	return Weights{Skill: 0.4, Experience: 0.4, Education: 0.2}
}

// ScoreResult is the immutable outcome of one evaluation. Fallback is true
// when the result was computed locally rather than by the scoring service;
// consumers apply reduced confidence to fallback results.
type ScoreResult struct {
	OverallScore float64           `json:"overall_score"`
	Subscores    Subscores         `json:"subscores"`
	MatchDetails map[string]string `json:"match_details,omitempty"`
	Narrative    string            `json:"narrative"`
	Fallback     bool              `json:"fallback"`
}
