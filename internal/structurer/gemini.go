package structurer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/arkanata/talentsift/internal/scoring"
	"github.com/tidwall/gjson"
	"google.golang.org/genai"
)

const resumePrompt = `You are a resume parser. Extract structured data from the resume below.
Return STRICTLY a single JSON object with this schema and nothing else:
{
  "name": "<full name or empty>",
  "email": "<email or empty>",
  "skills": ["skill", ...],
  "experience": [{"job_title": "...", "company": "...", "duration_months": <int>, "technologies": ["..."]}],
  "education": [{"degree": "...", "field_of_study": "...", "institution": "..."}],
  "certifications": ["..."],
  "summary": "<one paragraph>",
  "total_experience_years": <float>
}

Resume:
%s`

const jobPrompt = `You are a job description parser. Extract structured requirements from the text below.
Return STRICTLY a single JSON object with this schema and nothing else:
{
  "title": "<job title or empty>",
  "company": "<company or empty>",
  "required_skills": ["skill", ...],
  "preferred_skills": ["skill", ...],
  "required_experience_years": <float>,
  "required_education": ["..."],
  "description": "<one paragraph summary>"
}

Job description:
%s`

// ContentGenerator is the slice of the Gemini client the strategy needs.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator adapts *genai.Client to ContentGenerator.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.1)),
	}
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", err
	}
	return result.Text(), nil
}

const embeddingModel = "gemini-embedding-001"

// GenerateEmbedding embeds text for vector search. Oversized inputs are
// truncated rather than rejected so a long resume still gets a vector.
func (g *GeminiGenerator) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("text for embedding cannot be empty")
	}
	if len(trimmed) > 10000 {
		trimmed = trimmed[:10000]
	}

	content := []*genai.Content{genai.NewContentFromText(trimmed, genai.RoleUser)}
	result, err := g.client.Models.EmbedContent(ctx, embeddingModel, content, nil)
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}
	return result.Embeddings[0].Values, nil
}

// GeminiStrategy structures text by prompting Gemini for strict JSON.
// It is the first hop of the chain: most capable, least dependable.
type GeminiStrategy struct {
	generator ContentGenerator
}

func NewGeminiStrategy(generator ContentGenerator) *GeminiStrategy {
	return &GeminiStrategy{generator: generator}
}

func (s *GeminiStrategy) Name() string { return "gemini" }

func (s *GeminiStrategy) Structure(ctx context.Context, raw string, kind Kind) (*StructuredRecord, error) {
	var prompt string
	switch kind {
	case KindResume:
		prompt = fmt.Sprintf(resumePrompt, raw)
	case KindJob:
		prompt = fmt.Sprintf(jobPrompt, raw)
	default:
		return nil, fmt.Errorf("unknown kind %q", kind)
	}

	text, err := s.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	payload := extractJSON(text)
	if payload == "" {
		return nil, fmt.Errorf("gemini returned no JSON object")
	}

	rec := &StructuredRecord{Kind: kind}
	switch kind {
	case KindResume:
		var data scoring.ResumeData
		if err := json.Unmarshal([]byte(payload), &data); err != nil {
			return nil, fmt.Errorf("decode gemini resume JSON: %w", err)
		}
		rec.Resume = &data
	case KindJob:
		var data scoring.JobRequirements
		if err := json.Unmarshal([]byte(payload), &data); err != nil {
			return nil, fmt.Errorf("decode gemini job JSON: %w", err)
		}
		rec.Job = &data
	}
	return rec, nil
}

// extractJSON pulls the first JSON object out of an LLM response, tolerating
// markdown code fences and surrounding prose.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if fenced := strings.Index(text, "```"); fenced >= 0 {
		text = strings.TrimPrefix(text[fenced:], "```json")
		text = strings.TrimPrefix(text, "```")
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	candidate := text[start : end+1]
	if !gjson.Valid(candidate) {
		return ""
	}
	return candidate
}
