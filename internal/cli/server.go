package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"studyhub/internal/app"
	"studyhub/internal/auth"
	"studyhub/internal/config"
	transport "studyhub/internal/transport/http"
)

// quiz attempts and results are keyed by the token subject, so it must be verified locally
var errAuthSecretRequired = errors.New("auth.secret (or STUDYHUB_AUTH_SECRET) must be set to start the gateway")

// NewStartCmd builds the CLI subcommand to start the gateway.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the HTTP and websocket gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.Auth.Secret == "" {
		return errAuthSecretRequired
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.close()

	sink, history := b.resultSinks(cfg, log)
	quizService := app.NewQuizService(b.attemptRepository(), b.quizRepository(cfg), sink,
		app.WithLogger(log),
		app.WithLease(b.attemptLease(cfg)),
	)
	deps := transport.Deps{
		Quiz:    quizService,
		History: history,
		Auth:    auth.NewParser(cfg.Auth.Secret),
	}
	debounce := config.TTLDuration(cfg.Search.Debounce, 300*time.Millisecond)
	if b.client != nil {
		deps.Discussions = app.NewDiscussionService(b.client, b.feedFactory(cfg, log), debounce, log)
		deps.Knowledge = app.NewKnowledgeService(b.client)
		deps.Study = app.NewStudyService(b.client)
		deps.Catalog = b.client
	} else {
		log.Warn("upstream.base_url not set: discussion, knowledge and study routes disabled")
	}
	gateway := transport.NewServer(deps, transport.WithLogger(log), transport.WithSearchDebounce(debounce))

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           gateway.Routes(),
		ReadHeaderTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting studyhub gateway", "port", finalPort, "result_sinks", sink.Len())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down server")
	case err := <-errCh:
		log.Error("server failed", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	// let in-flight result writes land before the stores close
	quizService.Wait()
	return err
}
