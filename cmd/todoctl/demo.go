package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"todo-api/internal/service"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Manage the demo account",
}

var demoEnsureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Create the demo account if it does not exist",
	Long: `Ensure creates the account described by DEMO_USERNAME, DEMO_EMAIL and
DEMO_PASSWORD unless an account with that email already exists.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		user, created, err := newUserService().EnsureDemoUser(ctx, service.DemoAccount{
			Username: cfg.DemoUsername,
			Email:    cfg.DemoEmail,
			Password: cfg.DemoPassword,
		})
		if err != nil {
			return err
		}
		if created {
			fmt.Printf("created demo account %s (%s)\n", user.Username, user.ID)
		} else {
			fmt.Printf("demo account already exists: %s (%s)\n", user.Username, user.ID)
		}
		return nil
	},
}

func init() {
	demoCmd.AddCommand(demoEnsureCmd)
}
