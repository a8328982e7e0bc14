package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sweeney/entry-gate/internal/gate"
)

func newUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "Print the compiled-in allow-list and its warnings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printUsers(cmd.OutOrStdout(), gate.NewAllowList(gate.DefaultUsers...))
			return nil
		},
	}
}

func printUsers(w io.Writer, users *gate.AllowList) {
	for i, u := range users.Users() {
		fmt.Fprintf(w, "%d. %-20s %s\n", i+1, u.Name, u.UID)
	}
	for _, warn := range users.Validate() {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}
