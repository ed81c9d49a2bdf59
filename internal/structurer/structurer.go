// Package structurer turns raw resume or job-description text into the
// structured records the scoring service consumes. Several strategies are
// tried in a fixed order; each failed hop is logged and the next strategy
// gets its turn.
package structurer

import (
	"context"
	"errors"
	"fmt"

	"github.com/arkanata/talentsift/internal/scoring"
	"go.uber.org/zap"
)

// Kind selects which record shape a raw text maps to.
type Kind string

const (
	KindResume Kind = "resume"
	KindJob    Kind = "job"
)

// StructuredRecord is the outcome of structuring one raw text. Exactly one
// of Resume/Job is set, matching Kind.
type StructuredRecord struct {
	Kind   Kind                     `json:"kind"`
	Source string                   `json:"source"` // name of the strategy that produced it
	Resume *scoring.ResumeData      `json:"resume,omitempty"`
	Job    *scoring.JobRequirements `json:"job,omitempty"`
}

// Strategy is one way of structuring raw text. Strategies return an error
// both for transport failures and for malformed output; the chain treats
// them the same and moves on.
type Strategy interface {
	Name() string
	Structure(ctx context.Context, raw string, kind Kind) (*StructuredRecord, error)
}

// Chain tries its strategies in order and returns the first success.
type Chain struct {
	strategies []Strategy
	logger     *zap.Logger
}

func NewChain(logger *zap.Logger, strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies, logger: logger}
}

var errEmptyText = errors.New("text to structure is empty")

// Structure runs the chain. It fails only when every strategy fails.
func (c *Chain) Structure(ctx context.Context, raw string, kind Kind) (*StructuredRecord, error) {
	if raw == "" {
		return nil, errEmptyText
	}

	var lastErr error
	for _, s := range c.strategies {
		rec, err := s.Structure(ctx, raw, kind)
		if err == nil {
			err = validate(rec, kind)
			if err == nil {
				rec.Source = s.Name()
				c.logger.Debug("text structured",
					zap.String("kind", string(kind)),
					zap.String("strategy", s.Name()))
				return rec, nil
			}
			err = fmt.Errorf("malformed output: %w", err)
		}
		lastErr = err
		c.logger.Warn("structuring strategy failed, trying next",
			zap.String("kind", string(kind)),
			zap.String("strategy", s.Name()),
			zap.Error(lastErr))
	}

	return nil, fmt.Errorf("all structuring strategies failed for %s: %w", kind, lastErr)
}

// validate rejects records too empty to be worth scoring.
func validate(rec *StructuredRecord, kind Kind) error {
	if rec == nil {
		return errors.New("nil record")
	}
	switch kind {
	case KindResume:
		if rec.Resume == nil {
			return errors.New("missing resume data")
		}
		if len(rec.Resume.Skills) == 0 && len(rec.Resume.Experience) == 0 && rec.Resume.Summary == "" {
			return errors.New("resume has no skills, experience or summary")
		}
	case KindJob:
		if rec.Job == nil {
			return errors.New("missing job requirements")
		}
		if len(rec.Job.RequiredSkills) == 0 && rec.Job.Description == "" && rec.Job.Title == "" {
			return errors.New("job has no skills, description or title")
		}
	default:
		return fmt.Errorf("unknown kind %q", kind)
	}
	return nil
}
