package practice

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/advocate/internal/committee"
	"github.com/MikeSquared-Agency/advocate/internal/hermes"
)

// CommitteeOutcome is a finished committee run plus where it was shared.
type CommitteeOutcome struct {
	RequestID string            `json:"request_id"`
	Review    *committee.Review `json:"review"`
	Markdown  string            `json:"markdown"`
	FileName  string            `json:"file_name"`
	SlackTS   string            `json:"slack_ts,omitempty"`
}

// RunCommittee runs the shadow committee, posts the review to Slack when a
// poster is configured and announces completion on the bus. A Slack failure
// is logged and does not fail the run.
func (s *Service) RunCommittee(ctx context.Context, requestID string, req committee.Request) (*CommitteeOutcome, error) {
	if requestID == "" {
		requestID = uuid.New().String()
	}

	review, err := s.committee.Run(ctx, req)
	if err != nil {
		return nil, err
	}

	out := &CommitteeOutcome{
		RequestID: requestID,
		Review:    review,
		Markdown:  review.Markdown(),
		FileName:  review.FileName(s.now()),
	}

	if s.slack != nil {
		ts, err := s.slack.PostCommitteeReview(ctx, review)
		if err != nil {
			s.logger.Error("slack post failed", "request_id", requestID, "error", err)
		}
		out.SlackTS = ts
	}

	s.publish(hermes.SubjectCommitteeCompleted, hermes.CommitteeCompleted{
		RequestID: requestID,
		DealName:  review.DealName,
		Rounds:    review.Rounds,
		Comments:  len(review.Comments),
		FileName:  out.FileName,
		SlackTS:   out.SlackTS,
		Timestamp: s.now().UTC(),
	})
	return out, nil
}

// HandleCommitteeRequest is the NATS handler for advocate.committee.requested.
func (s *Service) HandleCommitteeRequest(subject string, data []byte) {
	ctx := context.Background()

	var evt hermes.CommitteeRequest
	if err := json.Unmarshal(data, &evt); err != nil {
		s.logger.Error("failed to parse committee request", "error", err)
		return
	}

	s.logger.Info("processing committee request",
		"request_id", evt.RequestID,
		"deal", evt.DealName,
		"rounds", evt.Rounds,
	)

	out, err := s.RunCommittee(ctx, evt.RequestID, committee.Request{
		Memo:      evt.Memo,
		DealName:  evt.DealName,
		Rounds:    evt.Rounds,
		Crossfire: evt.Crossfire,
	})
	if err != nil {
		s.logger.Error("committee request failed", "request_id", evt.RequestID, "error", err)
		return
	}

	s.logger.Info("committee request complete",
		"request_id", out.RequestID,
		"comments", len(out.Review.Comments),
		"slack_ts", out.SlackTS,
	)
}
