package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Inspect registered accounts",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every registered account",
	Args:  cobra.NoArgs,
	RunE:  runUsersList,
}

func init() {
	usersCmd.AddCommand(usersListCmd)
}

func runUsersList(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	users, err := newUserService().ListAll(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tCREATED")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.Username, u.Email, u.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}
