package judge

import (
	"fmt"
	"sort"

	"github.com/MikeSquared-Agency/advocate/internal/signals"
)

// Rule forces a concession when its signals are present and the model's own
// confidence has reached MinConfidence. Confidence is raised to at least Floor.
type Rule struct {
	Name          string
	Match         func(signals.Flags) bool
	MinConfidence float64
	Floor         float64
}

// Profile is a judge strictness setting: a referee prompt plus an ordered
// override table where the first matching rule wins.
type Profile struct {
	Name   string
	System string
	Rules  []Rule
}

var Balanced = Profile{
	Name:   "balanced",
	System: balancedSystem,
	Rules: []Rule{
		{
			Name:          "firm-boundary",
			Match:         func(f signals.Flags) bool { return f.FirmBoundary },
			MinConfidence: 0.58,
			Floor:         0.60,
		},
		{
			Name:          "ask-with-specifics",
			Match:         func(f signals.Flags) bool { return f.ExplicitAsk && (f.AmountOrPercent || f.Timeline) },
			MinConfidence: 0.63,
			Floor:         0.65,
		},
		{
			Name:          "ask-with-reason",
			Match:         func(f signals.Flags) bool { return f.ExplicitAsk && f.Reason },
			MinConfidence: 0.65,
			Floor:         0.67,
		},
		{
			Name:          "compound-signals",
			Match:         func(f signals.Flags) bool { return f.Count() >= 2 },
			MinConfidence: 0.62,
			Floor:         0.64,
		},
	},
}

var Lenient = Profile{
	Name:   "lenient",
	System: lenientSystem,
	Rules: []Rule{
		{
			Name:          "any-signal",
			Match:         func(f signals.Flags) bool { return f.ExplicitAsk || f.FirmBoundary || f.AmountOrPercent },
			MinConfidence: 0.30,
			Floor:         0.55,
		},
	},
}

var profiles = map[string]Profile{
	Balanced.Name: Balanced,
	Lenient.Name:  Lenient,
}

// ProfileByName looks up a judge profile. An empty name selects Balanced.
func ProfileByName(name string) (Profile, error) {
	if name == "" {
		return Balanced, nil
	}
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown judge profile %q (have %v)", name, ProfileNames())
	}
	return p, nil
}

func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
