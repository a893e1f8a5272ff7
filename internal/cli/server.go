package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"quiz-session-engine/internal/app"
	"quiz-session-engine/internal/config"
	"quiz-session-engine/internal/domain"
	transport "quiz-session-engine/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz session server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	config.ConfigureLogging(cfg)

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg); err != nil {
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

	d, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.close()

	opts := []app.Option{
		app.WithDefaultSettings(cfg.Defaults),
		app.WithTicker(config.TTLDuration(cfg.Timer.Tick, time.Second), nil),
	}
	if err := d.dialPublisher(cfg); err != nil {
		logrus.WithError(err).Warn("completion events disabled")
	} else if d.publisher != nil {
		opts = append(opts, app.WithNotifier(d.publisher))
	}

	service := app.NewQuizService(d.sessions, d.questions, app.NewHistoryRecorder(d.history), opts...)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewRouter(service),
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		logrus.WithFields(logrus.Fields{
			"port":    finalPort,
			"history": cfg.History.Backend,
		}).Info("starting quiz session engine")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logrus.Info("shutting down server...")
	case <-ctx.Done():
		logrus.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestionSets is served when no Postgres loader is configured.
func sampleQuestionSets() map[string]domain.QuestionSet {
	return map[string]domain.QuestionSet{
		"arith-1": {
			ID:      "arith-1",
			Subject: "math",
			Questions: []domain.Question{
				{
					ID:     "q1",
					Prompt: "What is 2 + 2?",
					Options: []domain.Option{
						{ID: "o1", Text: "3"},
						{ID: "o2", Text: "4", Correct: true},
						{ID: "o3", Text: "5"},
					},
					Explanation: "Two pairs make four.",
					Topic:       "addition",
					Points:      1,
				},
				{
					ID:     "q2",
					Prompt: "What is 3 x 3?",
					Options: []domain.Option{
						{ID: "o1", Text: "6"},
						{ID: "o2", Text: "9", Correct: true},
						{ID: "o3", Text: "12"},
					},
					Explanation: "Three groups of three.",
					Topic:       "multiplication",
					Points:      1,
				},
				{
					ID:     "q3",
					Prompt: "What is 10 - 7?",
					Options: []domain.Option{
						{ID: "o1", Text: "3", Correct: true},
						{ID: "o2", Text: "7"},
						{ID: "o3", Text: "17"},
					},
					Explanation: "Seven plus three is ten.",
					Topic:       "subtraction",
					Points:      1,
				},
			},
		},
	}
}
