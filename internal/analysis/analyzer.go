package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MikeSquared-Agency/intake/internal/interview"
)

// ErrNoTranscript is returned when the interview has no transcript text to analyse.
var ErrNoTranscript = errors.New("interview has no transcript")

const maxTokens = 8192

// Completer is an LLM that answers a system + user prompt with text.
type Completer interface {
	Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error)
}

type Analyzer struct {
	llm    Completer
	logger *slog.Logger
}

func New(llm Completer, logger *slog.Logger) *Analyzer {
	return &Analyzer{llm: llm, logger: logger}
}

// Analyze extracts a summary, key quotes and findings from an interview transcript.
func (a *Analyzer) Analyze(ctx context.Context, iv interview.Interview) (*Result, error) {
	transcript := strings.TrimSpace(iv.Transcript())
	if transcript == "" {
		return nil, ErrNoTranscript
	}

	stakeholder := "unknown"
	if s, ok := iv.Stakeholder.Get(); ok {
		stakeholder = s.Name
		if s.Role != nil && *s.Role != "" {
			stakeholder += " (" + *s.Role + ")"
		}
	}

	prompt := fmt.Sprintf(analysisUserPrompt, iv.ID.String(), stakeholder, transcript)

	a.logger.Info("analysing interview",
		"interview_id", iv.ID,
		"transcript_len", len(transcript),
	)

	raw, err := a.llm.Complete(ctx, systemPrompt, prompt, maxTokens)
	if err != nil {
		return nil, fmt.Errorf("llm analysis: %w", err)
	}

	var res Result
	if err := json.Unmarshal([]byte(extractJSON(raw)), &res); err != nil {
		a.logger.Error("failed to parse analysis response",
			"interview_id", iv.ID,
			"error", err,
			"raw", raw,
		)
		return nil, fmt.Errorf("parse analysis: %w", err)
	}

	res.Findings = a.normalize(iv, res.Findings)
	if res.KeyQuotes == nil {
		res.KeyQuotes = []KeyQuote{}
	}

	a.logger.Info("analysis complete",
		"interview_id", iv.ID,
		"key_quotes", len(res.KeyQuotes),
		"findings", len(res.Findings),
	)

	return &res, nil
}

func (a *Analyzer) normalize(iv interview.Interview, in []Finding) []Finding {
	out := make([]Finding, 0, len(in))
	for _, f := range in {
		if !f.FindingType.Valid() {
			a.logger.Warn("dropping finding with unknown type",
				"interview_id", iv.ID,
				"finding_type", f.FindingType,
				"title", f.Title,
			)
			continue
		}
		f.Title = strings.TrimSpace(f.Title)
		if f.Title == "" {
			continue
		}
		f.ImpactLevel = clamp(f.ImpactLevel, 1, 5)
		if f.Frequency < 1 {
			f.Frequency = 1
		}
		out = append(out, f)
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// extractJSON strips markdown fences and any prose around the outermost object.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}
