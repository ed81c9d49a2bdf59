package structurer

import (
	"context"
	"errors"
	"testing"

	"github.com/arkanata/talentsift/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubStrategy struct {
	name  string
	rec   *StructuredRecord
	err   error
	calls int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Structure(ctx context.Context, raw string, kind Kind) (*StructuredRecord, error) {
	s.calls++
	return s.rec, s.err
}

func resumeRecord(skills ...string) *StructuredRecord {
	return &StructuredRecord{
		Kind:   KindResume,
		Resume: &scoring.ResumeData{Skills: skills},
	}
}

func TestChainReturnsFirstSuccess(t *testing.T) {
	first := &stubStrategy{name: "first", rec: resumeRecord("Go")}
	second := &stubStrategy{name: "second", rec: resumeRecord("Python")}
	chain := NewChain(zap.NewNop(), first, second)

	rec, err := chain.Structure(context.Background(), "some resume", KindResume)

	require.NoError(t, err)
	assert.Equal(t, "first", rec.Source)
	assert.Equal(t, []string{"Go"}, rec.Resume.Skills)
	assert.Equal(t, 0, second.calls)
}

func TestChainFallsThroughOnError(t *testing.T) {
	first := &stubStrategy{name: "first", err: errors.New("service down")}
	second := &stubStrategy{name: "second", rec: resumeRecord("Python")}
	chain := NewChain(zap.NewNop(), first, second)

	rec, err := chain.Structure(context.Background(), "some resume", KindResume)

	require.NoError(t, err)
	assert.Equal(t, "second", rec.Source)
}

func TestChainFallsThroughOnMalformedOutput(t *testing.T) {
	// A record with no skills, experience or summary is malformed.
	first := &stubStrategy{name: "first", rec: &StructuredRecord{Kind: KindResume, Resume: &scoring.ResumeData{}}}
	second := &stubStrategy{name: "second", rec: resumeRecord("Python")}
	chain := NewChain(zap.NewNop(), first, second)

	rec, err := chain.Structure(context.Background(), "some resume", KindResume)

	require.NoError(t, err)
	assert.Equal(t, "second", rec.Source)
}

func TestChainFailsWhenAllStrategiesFail(t *testing.T) {
	first := &stubStrategy{name: "first", err: errors.New("down")}
	second := &stubStrategy{name: "second", err: errors.New("also down")}
	chain := NewChain(zap.NewNop(), first, second)

	_, err := chain.Structure(context.Background(), "some resume", KindResume)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "all structuring strategies failed")
}

func TestChainRejectsEmptyText(t *testing.T) {
	chain := NewChain(zap.NewNop(), NewRebuildStrategy())
	_, err := chain.Structure(context.Background(), "", KindResume)
	require.Error(t, err)
}

type stubGenerator struct {
	text string
	err  error
}

func (g *stubGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	return g.text, g.err
}

func TestGeminiStrategyParsesFencedJSON(t *testing.T) {
	gen := &stubGenerator{text: "Here you go:\n```json\n{\"skills\": [\"Go\", \"Redis\"], \"total_experience_years\": 4}\n```"}
	s := NewGeminiStrategy(gen)

	rec, err := s.Structure(context.Background(), "raw", KindResume)

	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "Redis"}, rec.Resume.Skills)
	assert.Equal(t, 4.0, rec.Resume.TotalExperienceYears)
}

func TestGeminiStrategyRejectsNonJSON(t *testing.T) {
	gen := &stubGenerator{text: "I cannot help with that."}
	s := NewGeminiStrategy(gen)

	_, err := s.Structure(context.Background(), "raw", KindResume)
	require.Error(t, err)
}

func TestRebuildResume(t *testing.T) {
	raw := "Jane Doe\njane@example.com\nSkills: Go, Kafka, PostgreSQL\n5 years of backend work"
	s := NewRebuildStrategy()

	rec, err := s.Structure(context.Background(), raw, KindResume)

	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", rec.Resume.Name)
	assert.Equal(t, "jane@example.com", rec.Resume.Email)
	assert.Equal(t, []string{"Go", "Kafka", "PostgreSQL"}, rec.Resume.Skills)
	assert.Equal(t, 5.0, rec.Resume.TotalExperienceYears)
}

func TestRebuildJob(t *testing.T) {
	raw := "Senior Backend Engineer\nRequired skills: Go, AWS\n3+ years experience"
	s := NewRebuildStrategy()

	rec, err := s.Structure(context.Background(), raw, KindJob)

	require.NoError(t, err)
	assert.Equal(t, "Senior Backend Engineer", rec.Job.Title)
	assert.Equal(t, []string{"Go", "AWS"}, rec.Job.RequiredSkills)
	assert.Equal(t, 3.0, rec.Job.RequiredExperienceYears)
}
