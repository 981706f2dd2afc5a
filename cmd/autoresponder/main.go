// cmd/autoresponder/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const appName = "autoresponder"

var policyPath string

var rootCmd = &cobra.Command{
	Use:           appName,
	Short:         "Persona-driven chat auto-responder",
	Long:          `Answers inbound chat messages with an AI persona chosen per contact, runs a truth-or-dare game and sends proactive check-ins.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&policyPath, "policy", "", "policy YAML file (overrides POLICY_PATH)")
	rootCmd.AddCommand(runCmd, checkCmd, simulateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "[ERR]", err)
		os.Exit(1)
	}
}
