package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"todo-api/internal/domain"
	"todo-api/internal/service"
)

var statsCmd = &cobra.Command{
	Use:   "stats <email|username>",
	Short: "Print task statistics for an account",
	Long: `Stats looks the account up by email (when the argument contains "@")
or by username, and prints its task totals and completion rate as JSON.

Example:
  todoctl stats demo@example.com
  todoctl stats demo`,
	Args: cobra.ExactArgs(1),
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	users := newUserService()
	lookup := users.GetByUsername
	if strings.Contains(args[0], "@") {
		lookup = users.GetByEmail
	}
	user, err := lookup(ctx, args[0])
	if err != nil {
		return fmt.Errorf("find %q: %w", args[0], err)
	}

	stats, err := service.NewTaskService(logger, stores.Tasks).Stats(ctx, user.ID)
	if err != nil {
		return err
	}

	output, err := json.MarshalIndent(struct {
		User  string           `json:"user"`
		Stats domain.TaskStats `json:"stats"`
	}{User: user.Username, Stats: stats}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	fmt.Println(string(output))
	return nil
}
