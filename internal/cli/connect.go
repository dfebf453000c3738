package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect to the configured server and report success",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		r, err := dialRepo(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("connected to %s\n", cfg.Connection.URL)
		return r.Close(ctx)
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)
}
