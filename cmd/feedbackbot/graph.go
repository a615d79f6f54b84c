package main

import (
	"fmt"
	"io"

	"github.com/Doe880/telegram-feedback-bot1/internal/adapters/telegram"
	"github.com/Doe880/telegram-feedback-bot1/internal/cli"
	"github.com/Doe880/telegram-feedback-bot1/internal/console"
	"github.com/Doe880/telegram-feedback-bot1/internal/flow"
	"github.com/Doe880/telegram-feedback-bot1/internal/presentation/graph"
	"github.com/Doe880/telegram-feedback-bot1/pkg/domain"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the conversation graph",
	Long: `Outputs a Mermaid diagram (graph TD) of the intake conversation. With
--chat the stored session of that Telegram chat is highlighted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		chat, _ := cmd.Flags().GetInt64("chat")
		var overlay *graph.GraphOverlay

		if chat != 0 {
			cfg, logger, err := loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			app, err := cli.Build(cmd.Context(), cfg, cli.Deps{
				Notifier: console.NewNotifier(io.Discard),
				Logger:   logger,
			})
			if err != nil {
				return err
			}
			defer app.Close()

			sess, err := app.Conversations.Current(cmd.Context(), telegram.UserSessionID(chat))
			if err != nil {
				return err
			}
			overlay = &graph.GraphOverlay{
				VisitedStates: append([]domain.State{sess.State}, sess.History...),
				CurrentState:  sess.State,
			}
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(flow.Graph(), overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().Int64("chat", 0, "Highlight the stored session of this chat id")
}
