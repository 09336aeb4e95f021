package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"studyhub/internal/domain"
	"studyhub/internal/quiz"
)

// NewQuizCmd takes a quiz in the terminal against the real countdown.
func NewQuizCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "quiz <quiz-id>",
		Short: "Take a timed quiz in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			b, err := openBackends(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer b.close()

			q, err := b.quizRepository(cfg).GetQuiz(ctx, args[0])
			if err != nil {
				return err
			}
			_, err = runQuiz(ctx, os.Stdin, cmd.OutOrStdout(), q)
			return err
		},
	}
}

var (
	bold    = color.New(color.Bold).SprintFunc()
	faint   = color.New(color.Faint).SprintFunc()
	chosen  = color.New(color.FgCyan, color.Bold).SprintFunc()
	good    = color.New(color.FgGreen, color.Bold).SprintFunc()
	warning = color.New(color.FgYellow).SprintFunc()
)

type quizInput struct {
	line string
	err  error
}

// runQuiz drives one attempt from line-oriented input:
// a number picks an option, n/p move between questions, s submits, q abandons.
func runQuiz(ctx context.Context, in io.Reader, out io.Writer, q domain.Quiz, opts ...quiz.Option) (domain.Result, error) {
	// countdown warnings are printed from the timer goroutine
	out = &lockedWriter{w: out}
	done := make(chan domain.Result, 1)
	opts = append([]quiz.Option{
		quiz.OnComplete(func(r domain.Result) { done <- r }),
		quiz.OnTick(func(s quiz.Snapshot) {
			if s.Phase == domain.PhaseActive && (s.RemainingSeconds%60 == 0 || s.RemainingSeconds == 10) {
				fmt.Fprintln(out, warning(fmt.Sprintf("%s left", clock(s.RemainingSeconds))))
			}
		}),
	}, opts...)
	ctrl := quiz.NewController(q, opts...)
	defer ctrl.Close()

	lines := make(chan quizInput)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- quizInput{line: strings.TrimSpace(scanner.Text())}
		}
		lines <- quizInput{err: io.EOF}
	}()

	fmt.Fprintf(out, "%s (%d questions, %d min)\n", bold(q.Title), len(q.Questions), q.DurationMinutes)
	if err := ctrl.Start(); err != nil {
		return domain.Result{}, err
	}
	if len(q.Questions) > 0 {
		printQuestion(out, q, ctrl.Snapshot())
	}

	for {
		select {
		case result := <-done:
			printResult(out, result)
			return result, nil
		case <-ctx.Done():
			return domain.Result{}, ctx.Err()
		case input := <-lines:
			if input.err != nil {
				// input closed: submit what we have
				result, err := ctrl.Submit()
				if err != nil {
					return domain.Result{}, err
				}
				<-done
				printResult(out, result)
				return result, nil
			}
			if handleQuizInput(out, ctrl, q, input.line) {
				result, err := ctrl.Submit()
				if err != nil {
					return domain.Result{}, err
				}
				<-done
				printResult(out, result)
				return result, nil
			}
		}
	}
}

// handleQuizInput applies one command and reports whether the user asked to finish.
func handleQuizInput(out io.Writer, ctrl *quiz.Controller, q domain.Quiz, line string) bool {
	snap := ctrl.Snapshot()
	switch line {
	case "":
		return false
	case "s", "q":
		return true
	case "n":
		printQuestion(out, q, snapAt(ctrl, snap.Cursor+1))
		return false
	case "p":
		printQuestion(out, q, snapAt(ctrl, snap.Cursor-1))
		return false
	}

	n, err := strconv.Atoi(line)
	if err != nil || len(q.Questions) == 0 {
		fmt.Fprintln(out, faint("commands: <option number>, n, p, s"))
		return false
	}
	question := q.Questions[snap.Cursor]
	if n < 1 || n > len(question.Options) {
		fmt.Fprintln(out, faint(fmt.Sprintf("pick 1-%d", len(question.Options))))
		return false
	}
	if err := ctrl.Answer(question.ID, question.Options[n-1].ID); err != nil {
		fmt.Fprintln(out, warning(err.Error()))
		return false
	}
	if snap.Cursor < len(q.Questions)-1 {
		printQuestion(out, q, snapAt(ctrl, snap.Cursor+1))
	} else {
		fmt.Fprintln(out, faint("last question answered; s to submit"))
	}
	return false
}

func snapAt(ctrl *quiz.Controller, index int) quiz.Snapshot {
	ctrl.Navigate(index)
	return ctrl.Snapshot()
}

func printQuestion(out io.Writer, q domain.Quiz, snap quiz.Snapshot) {
	question := q.Questions[snap.Cursor]
	fmt.Fprintf(out, "\n%s %s\n", faint(fmt.Sprintf("[%d/%d]", snap.Cursor+1, len(q.Questions))), bold(question.Prompt))
	for i, opt := range question.Options {
		label := fmt.Sprintf("  %d) %s", i+1, opt.Text)
		if snap.Answers[question.ID] == opt.ID {
			label = chosen(label + "  *")
		}
		fmt.Fprintln(out, label)
	}
}

func printResult(out io.Writer, r domain.Result) {
	headline := "Submitted"
	if r.AutoSubmitted {
		headline = "Time is up"
	}
	fmt.Fprintf(out, "\n%s: %s (%d/%d correct)\n", headline, good(fmt.Sprintf("%d%%", r.Score)), r.Correct, r.Total)
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func clock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
