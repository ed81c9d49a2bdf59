package scoring

import (
	"fmt"
	"math"
	"strings"
)

const (
	educationBaseScore  = 50.0
	educationBonusScore = 25.0
)

// FallbackEvaluator computes an approximate score locally. It is pure and
// deterministic: no I/O, no randomness, same inputs always produce the same
// result. Used only when the scoring service is out of reach.
type FallbackEvaluator struct{}

func NewFallbackEvaluator() *FallbackEvaluator {
	return &FallbackEvaluator{}
}

// Score evaluates resume against job. A zero-value weights argument means
// DefaultWeights.
func (f *FallbackEvaluator) Score(resume ResumeData, job JobRequirements, weights Weights) ScoreResult {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}

	skillScore, matched := f.skillScore(resume.Skills, job.RequiredSkills)
	expScore := f.experienceScore(resume.TotalExperienceYears, job.RequiredExperienceYears)
	eduScore := f.educationScore(resume.Education)

	overall := skillScore*weights.Skill + expScore*weights.Experience + eduScore*weights.Education

	details := map[string]string{
		"matched_skills": strings.Join(matched, ", "),
		"source":         "fallback",
	}

	return ScoreResult{
		OverallScore: round2(overall),
		Subscores: Subscores{
			Skill:      round2(skillScore),
			Experience: round2(expScore),
			Education:  round2(eduScore),
		},
		MatchDetails: details,
		Narrative: fmt.Sprintf(
			"Approximate score computed locally (scoring service unavailable): %d of %d required skills matched.",
			len(matched), len(job.RequiredSkills)),
		Fallback: true,
	}
}

// skillScore counts required skills that any candidate skill matches by
// case-insensitive substring, in either direction. 100 when nothing is required.
func (f *FallbackEvaluator) skillScore(candidate, required []string) (float64, []string) {
	if len(required) == 0 {
		return 100, nil
	}

	var matched []string
	for _, req := range required {
		reqLower := strings.ToLower(strings.TrimSpace(req))
		if reqLower == "" {
			continue
		}
		for _, skill := range candidate {
			skillLower := strings.ToLower(strings.TrimSpace(skill))
			if skillLower == "" {
				continue
			}
			if strings.Contains(skillLower, reqLower) || strings.Contains(reqLower, skillLower) {
				matched = append(matched, req)
				break
			}
		}
	}

	return float64(len(matched)) / float64(len(required)) * 100, matched
}

func (f *FallbackEvaluator) experienceScore(candidateYears, requiredYears float64) float64 {
	if requiredYears <= 0 {
		return 100
	}
	return math.Min(candidateYears/requiredYears, 1) * 100
}

func (f *FallbackEvaluator) educationScore(entries []Education) float64 {
	if len(entries) > 0 {
		return educationBaseScore + educationBonusScore
	}
	return educationBaseScore
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
