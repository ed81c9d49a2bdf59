package structurer

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/arkanata/talentsift/internal/scoring"
)

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	yearsRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\+?\s*(?:years?|yrs?)`)
)

// RebuildStrategy is the last-resort hop: a purely lexical reconstruction
// from the raw text. It never fails outright, so a chain ending with it
// always yields some record for the fallback evaluator to chew on.
type RebuildStrategy struct{}

func NewRebuildStrategy() *RebuildStrategy {
	return &RebuildStrategy{}
}

func (s *RebuildStrategy) Name() string { return "rebuild" }

func (s *RebuildStrategy) Structure(ctx context.Context, raw string, kind Kind) (*StructuredRecord, error) {
	lines := splitLines(raw)

	switch kind {
	case KindResume:
		data := &scoring.ResumeData{
			Email:                emailRe.FindString(raw),
			Skills:               extractSkills(lines),
			TotalExperienceYears: extractYears(raw),
			Summary:              firstParagraph(lines),
		}
		if len(lines) > 0 && len(lines[0]) < 80 {
			data.Name = lines[0]
		}
		return &StructuredRecord{Kind: kind, Resume: data}, nil
	case KindJob:
		data := &scoring.JobRequirements{
			RequiredSkills:          extractSkills(lines),
			RequiredExperienceYears: extractYears(raw),
			Description:             firstParagraph(lines),
		}
		if len(lines) > 0 && len(lines[0]) < 120 {
			data.Title = lines[0]
		}
		return &StructuredRecord{Kind: kind, Job: data}, nil
	}
	return nil, nil
}

func splitLines(raw string) []string {
	var lines []string
	for _, l := range strings.Split(raw, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// extractSkills looks for a "skills:"-style section and splits it on commas.
func extractSkills(lines []string) []string {
	for _, l := range lines {
		lower := strings.ToLower(l)
		for _, prefix := range []string{"skills:", "required skills:", "requirements:", "technologies:"} {
			if strings.HasPrefix(lower, prefix) {
				var skills []string
				for _, s := range strings.Split(l[len(prefix):], ",") {
					if s = strings.TrimSpace(s); s != "" {
						skills = append(skills, s)
					}
				}
				return skills
			}
		}
	}
	return nil
}

func extractYears(raw string) float64 {
	m := yearsRe.FindStringSubmatch(strings.ToLower(raw))
	if len(m) < 2 {
		return 0
	}
	years, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return years
}

func firstParagraph(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	limit := len(lines)
	if limit > 3 {
		limit = 3
	}
	return strings.Join(lines[:limit], " ")
}
