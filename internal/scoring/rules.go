package scoring

import (
	"fmt"
	"sort"
)

// Rules is a game scoring rule set. Bonuses apply to non-winning game turns
// only; the win bonus applies once, on the turn the challenger concedes.
type Rules struct {
	Name                string
	WinBonus            int
	SignalBonus         int
	ConfidenceBonus     int
	ConfidenceThreshold float64
}

var (
	// Canonical awards signal and confidence bonuses on top of the win bonus.
	Canonical = Rules{
		Name:                "canonical",
		WinBonus:            10,
		SignalBonus:         1,
		ConfidenceBonus:     2,
		ConfidenceThreshold: 0.50,
	}
	ConfidenceOnly = Rules{
		Name:                "confidence-only",
		WinBonus:            10,
		ConfidenceBonus:     2,
		ConfidenceThreshold: 0.50,
	}
	WinOnly = Rules{
		Name:     "win-only",
		WinBonus: 10,
	}
)

var byName = map[string]Rules{
	Canonical.Name:      Canonical,
	ConfidenceOnly.Name: ConfidenceOnly,
	WinOnly.Name:        WinOnly,
}

// ByName looks up a rule set. An empty name selects Canonical.
func ByName(name string) (Rules, error) {
	if name == "" {
		return Canonical, nil
	}
	r, ok := byName[name]
	if !ok {
		return Rules{}, fmt.Errorf("unknown scoring rules %q (have %v)", name, Names())
	}
	return r, nil
}

func Names() []string {
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// TurnBonus is the score for a non-winning game turn.
//
// anySignal: at least one signal flag was present in the user's message.
// confidence: the judge's final confidence for the turn.
func (r Rules) TurnBonus(anySignal bool, confidence float64) int {
	bonus := 0
	if anySignal {
		bonus += r.SignalBonus
	}
	if r.ConfidenceBonus != 0 && confidence >= r.ConfidenceThreshold {
		bonus += r.ConfidenceBonus
	}
	return bonus
}

// Win is the score for the conceding turn.
func (r Rules) Win() int {
	return r.WinBonus
}
