package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	feedbackbot "github.com/Doe880/telegram-feedback-bot1"
	httpAdapter "github.com/Doe880/telegram-feedback-bot1/internal/adapters/http"
	"github.com/Doe880/telegram-feedback-bot1/internal/adapters/telegram"
	"github.com/Doe880/telegram-feedback-bot1/internal/cli"
	"github.com/Doe880/telegram-feedback-bot1/internal/config"
	"github.com/Doe880/telegram-feedback-bot1/internal/metrics"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot against Telegram and start the HTTP server",
	Long: `Connects to the Telegram Bot API, by long polling or through a webhook
served on the HTTP listener, and exposes health, metrics and the JSON API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd, map[string]string{
			"http.addr":     "addr",
			"telegram.mode": "mode",
		})
		if err != nil {
			return err
		}
		if err := cfg.ValidateServe(); err != nil {
			return err
		}
		debug, _ := cmd.Flags().GetBool("debug")

		api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			return fmt.Errorf("failed to connect to telegram: %w", err)
		}
		logger.Info("Authorized on Telegram", "bot", api.Self.UserName)

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		client := telegram.NewClient(api)
		recorder := metrics.NewRecorder()
		app, err := cli.Build(ctx, cfg, cli.Deps{
			Notifier: client,
			Fetcher:  client,
			Metrics:  recorder,
			Logger:   logger,
			Debug:    debug,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := app.Close(); err != nil {
				logger.Error("Failed to close storage", "err", err)
			}
		}()

		bot := telegram.New(api, app.Conversations, app.Desk, app.Prompts, telegram.WithLogger(logger))

		opts := []httpAdapter.Option{
			httpAdapter.WithConversations(app.Conversations),
			httpAdapter.WithRecords(app.Records),
			httpAdapter.WithMetrics(recorder.Handler()),
			httpAdapter.WithAPIToken(cfg.HTTP.APIToken),
			httpAdapter.WithVersion(feedbackbot.Version),
			httpAdapter.WithLogger(logger),
		}
		if cfg.Telegram.Mode == config.ModeWebhook {
			opts = append(opts, httpAdapter.WithWebhook(bot, cfg.Telegram.WebhookSecret))
		}
		handler, err := httpAdapter.NewHandler(ctx, opts...)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("HTTP server listening", "addr", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		switch cfg.Telegram.Mode {
		case config.ModeWebhook:
			if err := telegram.SetWebhook(api, cfg.Telegram.WebhookURL, cfg.Telegram.WebhookSecret); err != nil {
				return err
			}
			logger.Info("Webhook registered", "url", cfg.Telegram.WebhookURL)
		default:
			if err := telegram.DeleteWebhook(api); err != nil {
				return err
			}
			u := tgbotapi.NewUpdate(0)
			u.Timeout = telegram.PollTimeout
			updates := api.GetUpdatesChan(u)
			defer api.StopReceivingUpdates()
			go func() {
				if err := bot.Poll(ctx, updates); err != nil {
					logger.Error("Polling stopped", "err", err)
				}
			}()
			logger.Info("Polling for updates")
		}

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil

		case <-ctx.Done():
			logger.Info("Start shutdown", "signal", ctx.Signal())

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				if err := srv.Close(); err != nil {
					logger.Error("Error killing server", "err", err)
				}
			}
			logger.Info("Bot stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "HTTP listen address (default :8080)")
	serveCmd.Flags().String("mode", "", "Telegram delivery: polling or webhook")
}
