package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/advocate/internal/committee"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

// maxThreadText keeps a single threaded reply under Slack's message limit.
const maxThreadText = 39000

type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// PostCommitteeReview posts a summary of the shadow committee run, then the
// full discussion and the checklist as threaded replies. Returns the parent
// message timestamp.
func (p *Poster) PostCommitteeReview(ctx context.Context, review *committee.Review) (string, error) {
	text := formatReviewHeader(review)

	ts, err := p.post(ctx, map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": text,
				},
			},
			{
				"type": "context",
				"elements": []map[string]any{
					{
						"type": "mrkdwn",
						"text": "Discussion and challenge checklist in thread",
					},
				},
			},
		},
	})
	if err != nil {
		return "", err
	}

	if err := p.PostThread(ctx, ts, "*Shadow IC Discussion*\n\n"+review.Discussion()); err != nil {
		return ts, fmt.Errorf("post discussion: %w", err)
	}
	if err := p.PostThread(ctx, ts, "*Challenge Checklist*\n\n"+review.Checklist); err != nil {
		return ts, fmt.Errorf("post checklist: %w", err)
	}

	p.logger.Info("posted committee review to slack", "ts", ts, "deal", review.DealName)
	return ts, nil
}

// PostThread posts a threaded reply to a message.
func (p *Poster) PostThread(ctx context.Context, threadTS, text string) error {
	if r := []rune(text); len(r) > maxThreadText {
		text = string(r[:maxThreadText]) + "\n_(truncated)_"
	}
	_, err := p.post(ctx, map[string]any{
		"channel":   p.channel,
		"thread_ts": threadTS,
		"text":      text,
	})
	return err
}

func (p *Poster) post(ctx context.Context, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return "", fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return "", fmt.Errorf("slack error: %s", slackResp.Error)
	}
	return slackResp.TS, nil
}

func formatReviewHeader(review *committee.Review) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "*Shadow IC Review:* %s\n", review.DealName)
	fmt.Fprintf(&sb, "*Rounds:* %d | *Comments:* %d\n\n", review.Rounds, len(review.Comments))

	counts := make(map[string]int)
	for _, c := range review.Comments {
		counts[c.Role]++
	}
	for _, role := range committee.Roles {
		if n := counts[role.Name]; n > 0 {
			fmt.Fprintf(&sb, "- %s: %d comments\n", role.Name, n)
		}
	}

	if strings.TrimSpace(review.Checklist) == "" {
		sb.WriteString("\n_No checklist was produced for this review._")
	}

	return sb.String()
}
