// Package committee runs a shadow investment-committee debate over a deal memo
// and turns it into a challenge checklist for the deal team.
package committee

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/advocate/internal/anthropic"
)

const (
	DefaultDealName = "Acme Industries"
	DefaultRounds   = 2
	MaxRounds       = 4

	memoLimit       = 12000
	discussionLimit = 12000
	commentWindow   = 16

	commentTokens   = 600
	checklistTokens = 4096
)

var (
	ErrEmptyMemo     = errors.New("memo is empty")
	ErrInvalidRounds = errors.New("rounds must be between 1 and 4")
)

type Role struct {
	Name        string `json:"name"`
	Perspective string `json:"perspective"`
}

// Roles speak in this order every round.
var Roles = []Role{
	{"Portfolio Manager", "Portfolio Manager focusing on risk/return, relative value, portfolio overlap, exposure sizing."},
	{"Credit Risk Officer", "Credit Risk Officer focusing on leverage, liquidity, coverage, asset quality and LGD dynamics."},
	{"Documentation Counsel", "Documentation Counsel focusing on covenants, baskets, leakage, remedies, and enforceability."},
	{"Macro & Sector Analyst", "Macro & Sector Analyst focusing on cycles, rate environment, commodity pricing, sector volatility and pass-through."},
}

type Request struct {
	Memo     string `json:"memo"`
	DealName string `json:"deal_name"`
	// Rounds defaults to DefaultRounds when zero.
	Rounds int `json:"rounds"`
	// Crossfire asks each role to react to earlier comments.
	Crossfire bool `json:"crossfire"`
}

type Comment struct {
	Round int    `json:"round"`
	Role  string `json:"role"`
	Text  string `json:"text"`
}

type Review struct {
	DealName  string    `json:"deal_name"`
	Rounds    int       `json:"rounds"`
	Comments  []Comment `json:"comments"`
	Checklist string    `json:"checklist"`
}

type Committee struct {
	llm    anthropic.Completer
	logger *slog.Logger
}

func New(llm anthropic.Completer, logger *slog.Logger) *Committee {
	return &Committee{llm: llm, logger: logger}
}

// Normalize applies defaults and validates the request.
func (r Request) Normalize() (Request, error) {
	if strings.TrimSpace(r.Memo) == "" {
		return r, ErrEmptyMemo
	}
	r.DealName = strings.TrimSpace(r.DealName)
	if r.DealName == "" {
		r.DealName = DefaultDealName
	}
	if r.Rounds == 0 {
		r.Rounds = DefaultRounds
	}
	if r.Rounds < 1 || r.Rounds > MaxRounds {
		return r, fmt.Errorf("%w: got %d", ErrInvalidRounds, r.Rounds)
	}
	return r, nil
}

// Run plays every round sequentially; each comment sees the ones before it.
func (c *Committee) Run(ctx context.Context, req Request) (*Review, error) {
	req, err := req.Normalize()
	if err != nil {
		return nil, err
	}

	memo := headRunes(req.Memo, memoLimit)
	instructions := crossfireOff
	if req.Crossfire {
		instructions = crossfireOn
	}

	review := &Review{DealName: req.DealName, Rounds: req.Rounds}
	var formatted []string

	c.logger.Info("shadow committee started", "deal", req.DealName, "rounds", req.Rounds, "crossfire", req.Crossfire)

	for round := 1; round <= req.Rounds; round++ {
		for _, role := range Roles {
			previous := "(none yet)"
			if n := len(formatted); n > 0 {
				previous = strings.Join(formatted[max(0, n-commentWindow):], "\n")
			}

			prompt := fmt.Sprintf(debatePrompt, role.Name, req.DealName, role.Perspective, memo, previous, instructions)
			raw, err := c.llm.Complete(ctx, debateSystem, []anthropic.Message{{Role: "user", Content: prompt}}, commentTokens)
			if err != nil {
				return nil, fmt.Errorf("round %d %s: %w", round, role.Name, err)
			}

			text := FormatComment(role.Name, raw)
			formatted = append(formatted, text)
			review.Comments = append(review.Comments, Comment{Round: round, Role: role.Name, Text: text})
		}
	}

	discussion := tailRunes(review.Discussion(), discussionLimit)
	prompt := fmt.Sprintf(checklistPrompt, req.DealName, memo, discussion)
	checklist, err := c.llm.Complete(ctx, checklistSystem, []anthropic.Message{{Role: "user", Content: prompt}}, checklistTokens)
	if err != nil {
		return nil, fmt.Errorf("checklist: %w", err)
	}
	review.Checklist = strings.TrimSpace(checklist)

	c.logger.Info("shadow committee complete", "deal", req.DealName, "comments", len(review.Comments))
	return review, nil
}

// FormatComment forces the "[Role]:" prefix and bolds it.
func FormatComment(role, raw string) string {
	out := strings.TrimSpace(raw)
	tag := "[" + role + "]"
	if !strings.HasPrefix(out, tag) {
		out = tag + ": " + out
	}
	return strings.Replace(out, tag+":", "**"+tag+":**", 1)
}

// Discussion joins the comments with blank lines between them.
func (r *Review) Discussion() string {
	parts := make([]string, len(r.Comments))
	for i, c := range r.Comments {
		parts[i] = c.Text
	}
	return strings.Join(parts, "\n\n")
}

func (r *Review) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Shadow IC Review - %s\n\n", r.DealName)
	b.WriteString("## Part 1 - Shadow IC Discussion\n\n")
	b.WriteString(r.Discussion())
	b.WriteString("\n\n## Part 2 - Shadow IC Challenge Checklist for the Deal Team\n\n")
	b.WriteString(r.Checklist)
	b.WriteString("\n")
	return b.String()
}

// FileName is the download name for the review, e.g.
// Acme_Industries_ShadowIC_2025-01-02_15-04-05.md. Characters outside
// [A-Za-z0-9_-] in the deal name become underscores, so the name never
// carries a path separator.
func (r *Review) FileName(now time.Time) string {
	deal := strings.Map(fileNameRune, r.DealName)
	if deal == "" {
		deal = "Deal"
	}
	return deal + "_ShadowIC_" + now.Format("2006-01-02_15-04-05") + ".md"
}

func fileNameRune(c rune) rune {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
		return c
	}
	return '_'
}

func headRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func tailRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}
