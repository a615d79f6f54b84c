package main

import (
	"fmt"
	"strings"

	feedbackbot "github.com/Doe880/telegram-feedback-bot1"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of feedbackbot",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "feedbackbot version %s\n", strings.TrimSpace(feedbackbot.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
