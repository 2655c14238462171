// Package evaluator produces post-hoc coach and critic feedback for a
// transcript. It never touches session state.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/advocate/internal/anthropic"
	"github.com/MikeSquared-Agency/advocate/internal/llmjson"
	"github.com/MikeSquared-Agency/advocate/internal/transcript"
)

var ErrNothingToEvaluate = errors.New("nothing to evaluate: transcript is empty")

// Dimensions are the fixed coach scorecard axes, in display order.
var Dimensions = []string{"Clarity", "Assertiveness", "Evidence", "Boundaries"}

const (
	maxTips       = 3
	maxExamples   = 2
	maxWeaknesses = 4
	maxRisks      = 4
	maxTokens     = 1024
)

// Coach is either a scorecard or, when the model output held no JSON
// object, only Raw.
type Coach struct {
	Scores   map[string]int `json:"scores,omitempty"`
	Tips     []string       `json:"tips,omitempty"`
	Examples []string       `json:"examples,omitempty"`
	Raw      string         `json:"raw,omitempty"`
}

type Counts struct {
	Apologies    int `json:"apologies"`
	Hedges       int `json:"hedges"`
	ExplicitAsks int `json:"explicit_asks"`
}

type Critic struct {
	Weaknesses []string `json:"weaknesses"`
	Risks      []string `json:"risks"`
	Counts     Counts   `json:"counts"`
	Raw        string   `json:"raw,omitempty"`
}

type Result struct {
	Coach  Coach  `json:"coach"`
	Critic Critic `json:"critic"`
}

type Evaluator struct {
	llm    anthropic.Completer
	logger *slog.Logger
}

func New(llm anthropic.Completer, logger *slog.Logger) *Evaluator {
	return &Evaluator{llm: llm, logger: logger}
}

// Evaluate runs the coach pass over the full transcript and the critic pass
// over the user's lines concurrently.
func (e *Evaluator) Evaluate(ctx context.Context, tr transcript.Transcript) (*Result, error) {
	if len(tr) == 0 {
		return nil, ErrNothingToEvaluate
	}

	var res Result
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		raw, err := e.llm.Complete(gctx, coachSystem, []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(coachUserPrompt, tr.Format())},
		}, maxTokens)
		if err != nil {
			return fmt.Errorf("coach pass: %w", err)
		}
		res.Coach = ParseCoach(raw)
		return nil
	})

	g.Go(func() error {
		raw, err := e.llm.Complete(gctx, criticSystem, []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(criticUserPrompt, tr.UserLines())},
		}, maxTokens)
		if err != nil {
			return fmt.Errorf("critic pass: %w", err)
		}
		res.Critic = ParseCritic(raw)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.logger.Info("transcript evaluated",
		"entries", len(tr),
		"coach_parsed", res.Coach.Raw == "",
		"critic_parsed", res.Critic.Raw == "",
	)
	return &res, nil
}

// ParseCoach returns only Raw when the text holds no JSON object.
func ParseCoach(raw string) Coach {
	m, err := llmjson.Object(raw)
	if err != nil {
		return Coach{Raw: raw}
	}

	c := Coach{Scores: make(map[string]int, len(Dimensions)), Tips: []string{}, Examples: []string{}}
	for _, d := range Dimensions {
		c.Scores[d] = 0
	}
	if scores := llmjson.Map(m, "scores"); scores != nil {
		for _, d := range Dimensions {
			c.Scores[d] = clampScore(llmjson.Int(scores, d, 0))
		}
	}
	if tips := llmjson.Strings(m, "tips", maxTips); tips != nil {
		c.Tips = tips
	}
	if examples := llmjson.Strings(m, "examples", maxExamples); examples != nil {
		c.Examples = examples
	}
	return c
}

func ParseCritic(raw string) Critic {
	c := Critic{Weaknesses: []string{}, Risks: []string{}}

	m, err := llmjson.Object(raw)
	if err != nil {
		c.Raw = raw
		return c
	}
	if w := llmjson.Strings(m, "weaknesses", maxWeaknesses); w != nil {
		c.Weaknesses = w
	}
	if r := llmjson.Strings(m, "risks", maxRisks); r != nil {
		c.Risks = r
	}
	if counts := llmjson.Map(m, "counts"); counts != nil {
		c.Counts = Counts{
			Apologies:    nonNegative(llmjson.Int(counts, "apologies", 0)),
			Hedges:       nonNegative(llmjson.Int(counts, "hedges", 0)),
			ExplicitAsks: nonNegative(llmjson.Int(counts, "explicit_asks", 0)),
		}
	}
	return c
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 10 {
		return 10
	}
	return n
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
