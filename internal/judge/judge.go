// Package judge decides, per game turn, whether the challenger concedes. A
// generative verdict is blended with deterministic signal overrides.
package judge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/advocate/internal/anthropic"
	"github.com/MikeSquared-Agency/advocate/internal/llmjson"
	"github.com/MikeSquared-Agency/advocate/internal/signals"
	"github.com/MikeSquared-Agency/advocate/internal/transcript"
)

const (
	contextWindow = 4
	maxTips       = 2
	maxTokens     = 400
)

type Verdict struct {
	Convinced  bool     `json:"convinced"`
	Confidence float64  `json:"confidence"`
	Rationale  string   `json:"why"`
	Tips       []string `json:"tips"`

	Signals         signals.Flags `json:"signals"`
	Rule            string        `json:"rule,omitempty"`
	ModelConvinced  bool          `json:"model_convinced"`
	ModelConfidence float64       `json:"model_confidence"`
}

// DefaultVerdict is used for any field the model did not supply.
func DefaultVerdict() Verdict {
	return Verdict{Rationale: "Parse error", Tips: []string{}}
}

type Judge struct {
	llm     anthropic.Completer
	profile Profile
	logger  *slog.Logger
}

func New(llm anthropic.Completer, profile Profile, logger *slog.Logger) *Judge {
	return &Judge{llm: llm, profile: profile, logger: logger}
}

func (j *Judge) Profile() Profile {
	return j.profile
}

// Judge issues one generative call over the last few transcript entries, then
// applies the profile's overrides using the signals of the latest user message.
func (j *Judge) Judge(ctx context.Context, tr transcript.Transcript) (Verdict, error) {
	prompt := fmt.Sprintf(verdictUserPrompt, tr.Last(contextWindow).Format())

	raw, err := j.llm.Complete(ctx, j.profile.System, []anthropic.Message{{Role: "user", Content: prompt}}, maxTokens)
	if err != nil {
		return Verdict{}, fmt.Errorf("judge turn: %w", err)
	}

	flags := signals.Extract(tr.LatestUser())
	v := Apply(j.profile, ParseVerdict(raw), flags)

	j.logger.Debug("turn judged",
		"profile", j.profile.Name,
		"model_convinced", v.ModelConvinced,
		"model_confidence", v.ModelConfidence,
		"convinced", v.Convinced,
		"confidence", v.Confidence,
		"rule", v.Rule,
		"signal_count", flags.Count(),
	)
	return v, nil
}

// ParseVerdict never fails: unrecoverable text yields DefaultVerdict and
// missing or mistyped fields fall back one by one.
func ParseVerdict(raw string) Verdict {
	v := DefaultVerdict()
	m, err := llmjson.Object(raw)
	if err != nil {
		return v
	}
	v.Convinced = llmjson.Bool(m, "convinced", v.Convinced)
	v.Confidence = clamp01(llmjson.Float(m, "confidence", v.Confidence))
	v.Rationale = llmjson.String(m, "why", v.Rationale)
	if tips := llmjson.Strings(m, "tips", maxTips); tips != nil {
		v.Tips = tips
	}
	return v
}

// Apply runs the profile's override rules, first match wins. The model's own
// verdict is kept in ModelConvinced/ModelConfidence.
func Apply(p Profile, v Verdict, flags signals.Flags) Verdict {
	v.Signals = flags
	v.ModelConvinced = v.Convinced
	v.ModelConfidence = v.Confidence
	v.Rule = ""

	for _, r := range p.Rules {
		if !r.Match(flags) || v.Confidence < r.MinConfidence {
			continue
		}
		v.Convinced = true
		if v.Confidence < r.Floor {
			v.Confidence = r.Floor
		}
		v.Rule = r.Name
		break
	}
	return v
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
