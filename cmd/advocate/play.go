package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/advocate/internal/evaluator"
	"github.com/MikeSquared-Agency/advocate/internal/practice"
	"github.com/MikeSquared-Agency/advocate/internal/scenario"
	"github.com/MikeSquared-Agency/advocate/internal/session"
)

var (
	playRole      string
	playIntensity int
	playGame      bool
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Practice in the terminal",
	Long: `Starts an interactive session. Type your message and press enter.
Lines starting with '/' are commands; /help lists them.`,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().StringVar(&playRole, "role", "peer", "who the challenger plays")
	playCmd.Flags().IntVar(&playIntensity, "intensity", practice.DefaultIntensity, "pushback intensity, 1-5")
	playCmd.Flags().BoolVar(&playGame, "game", false, "start in game mode")
}

func runPlay(cmd *cobra.Command, _ []string) error {
	d, err := loadDeps()
	if err != nil {
		return err
	}
	svc := d.service(nil, nil)

	mode := session.Practice
	if playGame {
		mode = session.Game
	}
	sess, err := svc.Create(practice.CreateRequest{Role: playRole, Intensity: playIntensity, Mode: string(mode)})
	if err != nil {
		return err
	}

	r := &repl{svc: svc, id: sess.ID(), out: cmd.OutOrStdout()}
	return r.run(cmd.Context(), cmd.InOrStdin())
}

const playHelp = `Commands:
  /practice            switch to practice mode
  /game                switch to game mode (starts a new game)
  /role <role>         change the challenger's role
  /intensity <1-5>     change the pushback intensity
  /presets             list scenario presets
  /preset <name>       start a preset scenario
  /retry               re-run a turn that failed
  /eval                coach and critic feedback on this conversation
  /reset               new conversation, keep score
  /newgame             new conversation, zero score and streak
  /status              show role, mode and score
  /quit                leave`

// repl drives one session from line-oriented input.
type repl struct {
	svc *practice.Service
	id  string
	out io.Writer
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	r.printStatus()
	fmt.Fprintln(r.out, "Type /help for commands.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := r.command(ctx, line); quit {
				return nil
			}
			continue
		}
		res, err := r.svc.Submit(ctx, r.id, line)
		r.printTurn(res, err)
	}
}

func (r *repl) command(ctx context.Context, line string) (quit bool) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	var err error
	switch name {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(r.out, playHelp)
	case "/status":
		r.printStatus()
	case "/practice", "/game":
		if err = r.svc.SetMode(r.id, strings.TrimPrefix(name, "/")); err == nil {
			r.printStatus()
		}
	case "/role":
		if err = r.svc.Reconfigure(r.id, arg, r.config().Intensity); err == nil {
			r.printStatus()
		}
	case "/intensity":
		n, convErr := strconv.Atoi(arg)
		if convErr != nil {
			err = errors.New("intensity must be a number from 1 to 5")
			break
		}
		if err = r.svc.Reconfigure(r.id, r.config().Role, n); err == nil {
			r.printStatus()
		}
	case "/presets":
		for _, p := range r.svc.Presets() {
			fmt.Fprintf(r.out, "  %-20s %s: %q\n", scenario.Slug(p.Name), p.Role, p.Opening)
		}
	case "/preset":
		res, presetErr := r.svc.ApplyPreset(ctx, r.id, arg)
		if presetErr == nil {
			if sess, getErr := r.svc.Get(r.id); getErr == nil {
				if tr := sess.Transcript(); len(tr) > 0 {
					fmt.Fprintf(r.out, "You: %s\n", tr[0].Text)
				}
			}
		}
		r.printTurn(res, presetErr)
	case "/retry":
		res, retryErr := r.svc.Retry(ctx, r.id)
		r.printTurn(res, retryErr)
	case "/eval":
		var res *evaluator.Result
		if res, err = r.svc.Evaluate(ctx, r.id); err == nil {
			printEvaluation(r.out, res)
		}
	case "/reset":
		err = r.svc.Reset(r.id, "conversation")
		if err == nil {
			fmt.Fprintln(r.out, "New conversation.")
		}
	case "/newgame":
		err = r.svc.Reset(r.id, "game")
		if err == nil {
			fmt.Fprintln(r.out, "New game, score cleared.")
		}
	default:
		err = fmt.Errorf("unknown command %s, try /help", name)
	}
	if err != nil {
		fmt.Fprintf(r.out, "! %v\n", err)
	}
	return false
}

func (r *repl) printTurn(res session.TurnResult, err error) {
	switch {
	case errors.Is(err, session.ErrGameOver):
		fmt.Fprintln(r.out, "! The game is over. /reset for a new round or /practice to keep talking.")
		return
	case errors.Is(err, session.ErrGenerationFailed):
		fmt.Fprintf(r.out, "! %v\n  Your message was kept. /retry to try again.\n", err)
		return
	case err != nil:
		fmt.Fprintf(r.out, "! %v\n", err)
		return
	}

	fmt.Fprintf(r.out, "Challenger: %s\n", res.Reply)
	if res.Mode != session.Game {
		return
	}
	if v := res.Verdict; v != nil {
		fmt.Fprintf(r.out, "  [judge] convinced=%t confidence=%.2f %s\n", v.Convinced, v.Confidence, v.Rationale)
		for _, tip := range v.Tips {
			fmt.Fprintf(r.out, "  tip: %s\n", tip)
		}
	}
	g := res.Game
	switch g.Status {
	case session.Won:
		fmt.Fprintf(r.out, "*** You won! Score %d, streak %d ***\n", g.Score, g.Streak)
	case session.Exhausted:
		fmt.Fprintf(r.out, "Out of turns. Score %d.\n", g.Score)
	default:
		fmt.Fprintf(r.out, "  turn %d/%d, score %d\n", g.TurnsUsed, g.MaxTurns, g.Score)
	}
}

func (r *repl) config() session.Config {
	sess, err := r.svc.Get(r.id)
	if err != nil {
		return session.Config{}
	}
	return sess.Config()
}

func (r *repl) printStatus() {
	sess, err := r.svc.Get(r.id)
	if err != nil {
		fmt.Fprintf(r.out, "! %v\n", err)
		return
	}
	snap := sess.Snapshot()
	fmt.Fprintf(r.out, "[%s mode] challenger: %s, intensity %d", snap.Config.Mode, snap.Config.Role, snap.Config.Intensity)
	if snap.Config.Mode == session.Game {
		fmt.Fprintf(r.out, " | turn %d/%d, score %d, streak %d", snap.Game.TurnsUsed, snap.Game.MaxTurns, snap.Game.Score, snap.Game.Streak)
	}
	fmt.Fprintln(r.out)
}

func printEvaluation(w io.Writer, res *evaluator.Result) {
	fmt.Fprintln(w, "Coach:")
	if res.Coach.Raw != "" {
		fmt.Fprintf(w, "  %s\n", res.Coach.Raw)
	} else {
		for _, dim := range evaluator.Dimensions {
			fmt.Fprintf(w, "  %-14s %d/10\n", dim, res.Coach.Scores[dim])
		}
		for _, tip := range res.Coach.Tips {
			fmt.Fprintf(w, "  - %s\n", tip)
		}
		for _, ex := range res.Coach.Examples {
			fmt.Fprintf(w, "  > %s\n", ex)
		}
	}

	fmt.Fprintln(w, "Critic:")
	if res.Critic.Raw != "" {
		fmt.Fprintf(w, "  %s\n", res.Critic.Raw)
		return
	}
	c := res.Critic.Counts
	fmt.Fprintf(w, "  apologies %d, hedges %d, explicit asks %d\n", c.Apologies, c.Hedges, c.ExplicitAsks)
	for _, weak := range res.Critic.Weaknesses {
		fmt.Fprintf(w, "  weakness: %s\n", weak)
	}
	for _, risk := range res.Critic.Risks {
		fmt.Fprintf(w, "  risk: %s\n", risk)
	}
}
