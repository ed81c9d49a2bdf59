package structurer

import (
	"context"
	"fmt"

	"github.com/arkanata/talentsift/internal/scoring"
)

// RemoteParser is the slice of the scoring client the strategy needs: the
// scoring service ships its own rule-based text parser.
type RemoteParser interface {
	ParseResumeText(ctx context.Context, text string) (scoring.ResumeData, error)
	ParseJobText(ctx context.Context, text string) (scoring.JobRequirements, error)
}

// RemoteStrategy delegates to the scoring service's built-in parser. Second
// hop: less capable than Gemini but runs inside a dependency we already need.
type RemoteStrategy struct {
	parser RemoteParser
}

func NewRemoteStrategy(parser RemoteParser) *RemoteStrategy {
	return &RemoteStrategy{parser: parser}
}

func (s *RemoteStrategy) Name() string { return "scorer-parser" }

func (s *RemoteStrategy) Structure(ctx context.Context, raw string, kind Kind) (*StructuredRecord, error) {
	switch kind {
	case KindResume:
		data, err := s.parser.ParseResumeText(ctx, raw)
		if err != nil {
			return nil, err
		}
		return &StructuredRecord{Kind: kind, Resume: &data}, nil
	case KindJob:
		data, err := s.parser.ParseJobText(ctx, raw)
		if err != nil {
			return nil, err
		}
		return &StructuredRecord{Kind: kind, Job: &data}, nil
	default:
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
}
