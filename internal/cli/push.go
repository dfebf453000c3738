package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/latticedb/sync-core/internal/data"
)

var pushCmd = &cobra.Command{
	Use:   "push <path> <json-value>",
	Short: "Append value as a new push-id child of path and print its path",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		r, err := dialRepo(ctx)
		if err != nil {
			return err
		}

		var decoded interface{}
		if err := json.Unmarshal([]byte(args[1]), &decoded); err != nil {
			return fmt.Errorf("cli: parse value: %w", err)
		}

		child, err := r.Push(ctx, data.ParsePath(args[0]), data.FromWire(decoded))
		if err != nil {
			return err
		}
		fmt.Println(child.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pushCmd)
}
