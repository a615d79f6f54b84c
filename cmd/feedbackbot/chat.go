package main

import (
	"os"

	"github.com/Doe880/telegram-feedback-bot1/internal/cli"
	"github.com/Doe880/telegram-feedback-bot1/internal/console"
	"github.com/Doe880/telegram-feedback-bot1/pkg/adapters/attachments"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the bot from the terminal",
	Long: `Runs the intake flow and the reply desk in the terminal against the
configured storage. Relayed messages are printed instead of sent; /file
attaches a local file. Pass one of the admin ids as --user to use /admin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd, nil)
		if err != nil {
			return err
		}
		userID, _ := cmd.Flags().GetInt64("user")
		debug, _ := cmd.Flags().GetBool("debug")

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		out := cmd.OutOrStdout()
		app, err := cli.Build(ctx, cfg, cli.Deps{
			Notifier: console.NewNotifier(out),
			Fetcher:  attachments.LocalFetcher{},
			Logger:   logger,
			Debug:    debug,
		})
		if err != nil {
			return err
		}
		defer app.Close()

		shell := console.New(app.Conversations, app.Desk, app.Prompts, userID, out)
		return shell.Run(ctx, os.Stdin)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().Int64("user", 1, "Telegram user id to act as")
}
