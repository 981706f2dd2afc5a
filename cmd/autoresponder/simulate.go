package main

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/keshon/autoresponder/internal/transport"
)

var simulateSender string

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Chat with the pipeline over stdin/stdout",
	Long: `Reads one message per line from stdin and prints replies. Prefix a line
with "@id " to send it as another contact.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return a.serve(ctx, transport.NewConsole(cmd.InOrStdin(), cmd.OutOrStdout(), simulateSender))
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateSender, "as", "console", "default sender id")
}
