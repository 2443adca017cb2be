package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var chatPhone string

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send a one-shot message through the orchestrator",
	Long: `Runs a single query through the full routing pipeline and prints the
final response, without starting the HTTP server.

Example:
  finguard chat "I spent 2000 on groceries"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := buildApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close()

		userID, err := a.store.GetOrCreateUser(chatPhone)
		if err != nil {
			return err
		}

		query := strings.Join(args, " ")
		result, err := a.engine.Process(ctx, userID, query)
		if err != nil {
			return err
		}

		fmt.Println(result.Response)
		fmt.Printf("\n[agents: %v]\n", result.AgentsUsed)
		return nil
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatPhone, "phone", "9876543210", "Phone number identifying the user")
}
