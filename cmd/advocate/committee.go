package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/advocate/internal/committee"
)

var (
	memoFile       string
	dealName       string
	committeeRound int
	crossfire      bool
	outDir         string
	postToSlack    bool
)

var committeeCmd = &cobra.Command{
	Use:   "committee",
	Short: "Run a shadow investment committee over a deal memo",
	Long: `Four committee members debate the memo for the given number of rounds,
then an IC chair writes a challenge checklist. The review is written as a
Markdown file. Reads the memo from stdin when --file is "-" or omitted.`,
	RunE: runCommittee,
}

func init() {
	f := committeeCmd.Flags()
	f.StringVarP(&memoFile, "file", "f", "-", "memo file, - for stdin")
	f.StringVar(&dealName, "deal", committee.DefaultDealName, "deal name")
	f.IntVar(&committeeRound, "rounds", committee.DefaultRounds, fmt.Sprintf("debate rounds, 1-%d", committee.MaxRounds))
	f.BoolVar(&crossfire, "crossfire", false, "have members react to each other")
	f.StringVarP(&outDir, "out", "o", ".", "directory for the Markdown review")
	f.BoolVar(&postToSlack, "slack", false, "also post the review to Slack")
}

func runCommittee(cmd *cobra.Command, _ []string) error {
	d, err := loadDeps()
	if err != nil {
		return err
	}

	memo, err := readMemo(cmd.InOrStdin(), memoFile)
	if err != nil {
		return err
	}

	svc := d.service(nil, nil)
	if postToSlack {
		poster := d.slackPoster()
		if poster == nil {
			return fmt.Errorf("--slack needs SLACK_BOT_TOKEN and SLACK_CHANNEL")
		}
		svc = d.service(nil, poster)
	}

	out, err := svc.RunCommittee(cmd.Context(), "", committee.Request{
		Memo:      memo,
		DealName:  dealName,
		Rounds:    committeeRound,
		Crossfire: crossfire,
	})
	if err != nil {
		return err
	}

	path := filepath.Join(outDir, out.FileName)
	if err := os.WriteFile(path, []byte(out.Markdown), 0o644); err != nil {
		return fmt.Errorf("write review: %w", err)
	}
	slog.Info("committee review written", "path", path, "comments", len(out.Review.Comments), "slack_ts", out.SlackTS)
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func readMemo(stdin io.Reader, path string) (string, error) {
	var data []byte
	var err error
	if path == "" || path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read memo: %w", err)
	}
	return string(data), nil
}
