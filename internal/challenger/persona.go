// Package challenger plays the counterpart the user is practising against.
package challenger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/advocate/internal/anthropic"
	"github.com/MikeSquared-Agency/advocate/internal/transcript"
)

const (
	contextWindow = 6
	maxTokens     = 300

	MinIntensity = 1
	MaxIntensity = 5
)

var (
	ErrInvalidIntensity = errors.New("intensity must be between 1 and 5")
	ErrEmptyRole        = errors.New("role must not be empty")
	// ErrEmptyReply marks a pushback call that returned only whitespace.
	ErrEmptyReply = errors.New("challenger produced an empty reply")
)

// Roles is the built-in catalogue offered to users. Any non-empty custom role
// is accepted as well.
var Roles = []string{
	"teenager", "spouse", "parent", "sibling", "peer", "boss",
	"customer service rep", "roommate", "friend", "teacher", "landlord",
}

// DefaultRole stands in for an empty custom role.
const DefaultRole = "peer"

type Persona struct {
	llm       anthropic.Completer
	role      string
	intensity int
	system    string
}

func New(llm anthropic.Completer, role string, intensity int) (*Persona, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return nil, ErrEmptyRole
	}
	if intensity < MinIntensity || intensity > MaxIntensity {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidIntensity, intensity)
	}
	return &Persona{
		llm:       llm,
		role:      role,
		intensity: intensity,
		system:    fmt.Sprintf(systemPrompt, role, intensity, Tone(intensity)),
	}, nil
}

func (p *Persona) Role() string   { return p.role }
func (p *Persona) Intensity() int { return p.intensity }

// Tone maps intensity to the descriptor used in the system instruction.
func Tone(intensity int) string {
	switch intensity {
	case 1:
		return "polite but firm"
	case 3:
		return "curt, slightly dismissive"
	case 5:
		return "sharply dismissive (still non-abusive)"
	default:
		return "curt"
	}
}

// PushbackReply asks for an in-character reply to the latest user message.
func (p *Persona) PushbackReply(ctx context.Context, tr transcript.Transcript) (string, error) {
	prompt := fmt.Sprintf(pushbackPrompt, tr.Last(contextWindow).Format(), tr.LatestUser())

	raw, err := p.llm.Complete(ctx, p.system, []anthropic.Message{{Role: "user", Content: prompt}}, maxTokens)
	if err != nil {
		return "", fmt.Errorf("pushback reply: %w", err)
	}
	reply := strings.TrimSpace(raw)
	if reply == "" {
		return "", fmt.Errorf("%w: %w", anthropic.ErrGeneration, ErrEmptyReply)
	}
	return reply, nil
}

func (p *Persona) ConcessionMessage() string {
	return Concession(p.role)
}

// Concession is the fixed line the challenger says when the judge is
// convinced. Service-style roles approve on the spot.
func Concession(role string) string {
	r := strings.ToLower(role)
	if strings.Contains(r, "customer service") || strings.Contains(r, "support") {
		return "You're right, consider it approved. I'll process this now."
	}
	return "Alright, you've presented a clear case. I agree to your request and will proceed."
}

const systemPrompt = `You are roleplaying as the USER's %s. Your pushback intensity is %d/5 and your tone is %s. Be realistic, never abusive, but you may be curt, dismissive, or subtly demeaning. Stay in character. Keep replies under 80 words.`

const pushbackPrompt = `Context so far:
%s

User's latest message:
%s

Reply IN CHARACTER as the assigned role with the specified pushback intensity. Keep your message under 80 words.`
