package evaluator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/MikeSquared-Agency/advocate/internal/anthropic"
	"github.com/MikeSquared-Agency/advocate/internal/transcript"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseCoach(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Coach
	}{
		{
			name: "full scorecard",
			raw: `{"scores": {"Clarity": 7, "Assertiveness": 12, "Evidence": -1, "Boundaries": 5.4},
				"tips": ["t1", "t2", "t3", "t4"], "examples": ["e1", "e2", "e3"]}`,
			want: Coach{
				Scores:   map[string]int{"Clarity": 7, "Assertiveness": 10, "Evidence": 0, "Boundaries": 5},
				Tips:     []string{"t1", "t2", "t3"},
				Examples: []string{"e1", "e2"},
			},
		},
		{
			name: "missing dimensions default to zero",
			raw:  "Sure:\n```json\n{\"scores\": {\"Clarity\": \"8\"}}\n```",
			want: Coach{
				Scores:   map[string]int{"Clarity": 8, "Assertiveness": 0, "Evidence": 0, "Boundaries": 0},
				Tips:     []string{},
				Examples: []string{},
			},
		},
		{
			name: "total failure keeps raw",
			raw:  "You did great!",
			want: Coach{Raw: "You did great!"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ParseCoach(tt.raw)); diff != "" {
				t.Errorf("ParseCoach mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCoachJSON_UnparsedCarriesOnlyRaw(t *testing.T) {
	data, err := json.Marshal(ParseCoach("You did great!"))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(data), `{"raw":"You did great!"}`; got != want {
		t.Errorf("json = %s, want %s", got, want)
	}
}

func TestParseCritic(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Critic
	}{
		{
			name: "full critique",
			raw: `{"weaknesses": ["w1","w2","w3","w4","w5"], "risks": ["r1"],
				"counts": {"apologies": 2, "hedges": -3, "explicit_asks": 1}}`,
			want: Critic{
				Weaknesses: []string{"w1", "w2", "w3", "w4"},
				Risks:      []string{"r1"},
				Counts:     Counts{Apologies: 2, Hedges: 0, ExplicitAsks: 1},
			},
		},
		{
			name: "total failure keeps raw",
			raw:  "no json here",
			want: Critic{Weaknesses: []string{}, Risks: []string{}, Raw: "no json here"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ParseCritic(tt.raw)); diff != "" {
				t.Errorf("ParseCritic mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEvaluate_EmptyTranscript(t *testing.T) {
	var calls atomic.Int32
	llm := anthropic.CompleterFunc(func(context.Context, string, []anthropic.Message, int) (string, error) {
		calls.Add(1)
		return "{}", nil
	})

	_, err := New(llm, testLogger()).Evaluate(context.Background(), nil)
	if !errors.Is(err, ErrNothingToEvaluate) {
		t.Fatalf("expected ErrNothingToEvaluate, got %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("expected no generative calls, got %d", calls.Load())
	}
}

func TestEvaluate_RunsBothPasses(t *testing.T) {
	tr := transcript.Transcript{
		{Speaker: transcript.User, Text: "Sorry, I kind of need a raise."},
		{Speaker: transcript.Challenger, Text: "Budgets are tight."},
		{Speaker: transcript.User, Text: "I want 5% by March."},
	}

	var mu sync.Mutex
	prompts := map[string]string{}
	llm := anthropic.CompleterFunc(func(_ context.Context, system string, msgs []anthropic.Message, _ int) (string, error) {
		mu.Lock()
		prompts[system] = msgs[0].Content
		mu.Unlock()
		if system == coachSystem {
			return `{"scores": {"Clarity": 6, "Assertiveness": 5, "Evidence": 3, "Boundaries": 4}, "tips": ["Lead with the number"], "examples": ["I am asking for 5%."]}`, nil
		}
		return `{"weaknesses": ["Opened with an apology"], "risks": ["Anchors low"], "counts": {"apologies": 1, "hedges": 1, "explicit_asks": 1}}`, nil
	})

	before := tr.Clone()
	res, err := New(llm, testLogger()).Evaluate(context.Background(), tr)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if res.Coach.Scores["Clarity"] != 6 || res.Coach.Tips[0] != "Lead with the number" {
		t.Errorf("unexpected coach result: %+v", res.Coach)
	}
	if res.Critic.Counts != (Counts{Apologies: 1, Hedges: 1, ExplicitAsks: 1}) {
		t.Errorf("unexpected critic counts: %+v", res.Critic.Counts)
	}

	if !strings.Contains(prompts[coachSystem], "Challenger: Budgets are tight.") {
		t.Error("coach must see the full transcript")
	}
	if strings.Contains(prompts[criticSystem], "Budgets are tight.") {
		t.Error("critic must only see user lines")
	}
	if !strings.Contains(prompts[criticSystem], "I want 5% by March.") {
		t.Error("critic missing user lines")
	}
	if diff := cmp.Diff(before, tr); diff != "" {
		t.Errorf("transcript mutated:\n%s", diff)
	}
}

func TestEvaluate_PropagatesFailure(t *testing.T) {
	llm := anthropic.CompleterFunc(func(_ context.Context, system string, _ []anthropic.Message, _ int) (string, error) {
		if system == criticSystem {
			return "", anthropic.ErrGeneration
		}
		return "{}", nil
	})
	tr := transcript.Transcript{{Speaker: transcript.User, Text: "hi"}}
	if _, err := New(llm, testLogger()).Evaluate(context.Background(), tr); !errors.Is(err, anthropic.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
}
