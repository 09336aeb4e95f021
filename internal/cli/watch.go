package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"studyhub/internal/app"
	"studyhub/internal/auth"
	"studyhub/internal/config"
	"studyhub/internal/discussion"
	"studyhub/internal/domain"
)

// NewWatchCmd follows a course's discussion list on the live feed.
func NewWatchCmd(configPath *string) *cobra.Command {
	var (
		query domain.ThreadQuery
		token string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the live thread list for a course or topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if token == "" {
				token = os.Getenv("STUDYHUB_TOKEN")
			}
			// the feed and every list call are authenticated upstream with this token
			parse := auth.Unverified
			if cfg.Auth.Secret != "" {
				parse = auth.NewParser(cfg.Auth.Secret).Parse
			}
			sc, err := parse(token)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			b, err := openBackends(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer b.close()
			if b.client == nil || cfg.Upstream.FeedURL == "" {
				return errors.New("watch needs upstream.base_url and upstream.feed_url")
			}
			svc := app.NewDiscussionService(b.client, b.feedFactory(cfg, log),
				config.TTLDuration(cfg.Search.Debounce, 300*time.Millisecond), log)
			return watchThreads(ctx, svc, sc, query, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&query.CourseID, "course", "", "course id")
	cmd.Flags().StringVar(&query.TopicID, "topic", "", "topic id")
	cmd.Flags().StringVar(&query.Query, "q", "", "search text")
	cmd.Flags().IntVar(&query.Limit, "limit", 20, "threads per page")
	cmd.Flags().StringVar(&token, "token", "", "bearer token (default $STUDYHUB_TOKEN)")
	return cmd
}

// watchThreads prints the list on every change until ctx ends or the feed drops.
func watchThreads(ctx context.Context, svc *app.DiscussionService, sc domain.SessionContext, q domain.ThreadQuery, out io.Writer) error {
	var mu sync.Mutex
	failed := make(chan error, 1)
	view, err := svc.Open(ctx, sc, q, app.ViewHandlers{
		OnChange: func(ts []domain.Thread) {
			mu.Lock()
			defer mu.Unlock()
			printThreads(out, ts)
		},
		OnState: func(s discussion.ConnState) {
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintln(out, faint("feed: "+s.String()))
		},
		OnError: func(err error) {
			select {
			case failed <- err:
			default:
			}
		},
	})
	if err != nil {
		return err
	}
	defer view.Close()

	mu.Lock()
	printThreads(out, view.Threads())
	mu.Unlock()

	select {
	case <-ctx.Done():
		return nil
	case err := <-failed:
		return err
	}
}

var threadTitle = color.New(color.FgHiWhite, color.Bold).SprintFunc()

func printThreads(out io.Writer, threads []domain.Thread) {
	fmt.Fprintf(out, "\n%s\n", faint(fmt.Sprintf("%d threads", len(threads))))
	for _, t := range threads {
		activity := t.LastActivityAt
		if activity.IsZero() {
			activity = t.CreatedAt
		}
		line := fmt.Sprintf("%-10s %s  %s", t.ID, threadTitle(t.Title), faint(fmt.Sprintf("%d replies", t.ReplyCount)))
		if !activity.IsZero() {
			line += faint("  " + activity.Local().Format("Jan 2 15:04"))
		}
		fmt.Fprintln(out, line)
	}
}
