// Package main is the entry point for the receptionist voice server.
//
// receptionist answers inbound calls on behalf of a small office,
// carries the conversation through Deepgram STT, an OpenAI tool-calling
// loop, and ElevenLabs TTS, and notifies staff of anything that needs a
// human. Wiring follows the teacher's cobra-rooted CLI shape.
//
//	export TWILIO_ACCOUNT_SID=...
//	export TWILIO_AUTH_TOKEN=...
//	export DEEPGRAM_API_KEY=...
//	export OPENAI_API_KEY=...
//	export ELEVENLABS_API_KEY=...
//	export DATABASE_URL=postgres://...
//	./receptionist serve
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agentplexus/receptionist/pkg/config"
	"github.com/agentplexus/receptionist/pkg/notify"
	"github.com/agentplexus/receptionist/pkg/orchestrator"
	"github.com/agentplexus/receptionist/pkg/providers/llm"
	"github.com/agentplexus/receptionist/pkg/providers/stt"
	"github.com/agentplexus/receptionist/pkg/providers/telephony"
	"github.com/agentplexus/receptionist/pkg/providers/tts"
	"github.com/agentplexus/receptionist/pkg/store"
	"github.com/agentplexus/receptionist/pkg/tools"
	"github.com/agentplexus/receptionist/pkg/webhook"
)

var yamlConfigPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "receptionist",
		Short: "Phone receptionist voice server",
	}
	root.PersistentFlags().StringVar(&yamlConfigPath, "config", "", "optional YAML config overlay path")
	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database schema to DATABASE_URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func runMigrate() error {
	cfg, err := config.Load(yamlConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for migrate")
	}
	pg, err := store.OpenPostgresStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := pg.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func runServe() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	cfg, err := config.Load(yamlConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logLevel, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).Level(logLevel).With().Timestamp().Logger()

	st, err := buildStore(cfg)
	if err != nil {
		return fmt.Errorf("build store: %w", err)
	}

	sttProvider, err := buildSTT(cfg)
	if err != nil {
		return fmt.Errorf("build stt provider: %w", err)
	}
	llmProvider := llm.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	ttsProvider := tts.NewElevenLabsProvider(cfg.ElevenLabsAPIKey, cfg.TTSModel)
	telephonyProvider := telephony.NewTwilioProvider(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.PublicBaseURL)

	notifier := buildNotifier(cfg)
	dispatcher := tools.NewDispatcher(st, telephonyProvider, notifier)

	orch := orchestrator.New(st, sttProvider, llmProvider, ttsProvider, dispatcher, orchestrator.DefaultSessionConfig(), logger)

	whCfg := webhook.Config{
		AuthToken:      cfg.TwilioAuthToken,
		DevMode:        cfg.IsDevMode(),
		SkipValidation: cfg.SkipTwilioValidation,
		PublicBaseURL:  cfg.PublicBaseURL,
	}
	handler := webhook.NewHandler(whCfg, st, orch, notifier, logger)

	mux := http.NewServeMux()
	webhook.Mount(mux, handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Int("port", cfg.Port).Msg("receptionist server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func buildStore(cfg *config.Config) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		return store.NewMemoryStore(), nil
	}
	return store.OpenPostgresStore(cfg.DatabaseURL)
}

func buildSTT(cfg *config.Config) (stt.Provider, error) {
	if cfg.DeepgramAPIKey == "" {
		return nil, nil
	}
	return stt.NewDeepgramProvider(cfg.DeepgramAPIKey, cfg.STTModel)
}

func buildNotifier(cfg *config.Config) *notify.Service {
	var emailProvider notify.EmailProvider
	switch cfg.EmailProvider {
	case "ses":
		if cfg.SESFromEmail != "" {
			ses, err := notify.NewSESProvider(context.Background(), cfg.SESFromEmail)
			if err == nil {
				emailProvider = ses
			}
		}
	default:
		if cfg.SendGridAPIKey != "" {
			emailProvider = notify.NewSendGridProvider(cfg.SendGridAPIKey, cfg.SendGridFromEmail)
		}
	}

	return notify.New(notify.Config{
		StaffPhone:        cfg.StaffPhone,
		StaffEmail:        cfg.StaffEmail,
		TwilioAccountSID:  cfg.TwilioAccountSID,
		TwilioAuthToken:   cfg.TwilioAuthToken,
		TwilioPhoneNumber: cfg.TwilioPhoneNumber,
		SMSRateLimit:      cfg.SMSRateLimit,
		TranscriptBaseURL: cfg.TranscriptBaseURL,
	}, emailProvider)
}
