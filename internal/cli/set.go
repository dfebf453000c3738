package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/latticedb/sync-core/internal/data"
)

var setCmd = &cobra.Command{
	Use:   "set <path> <json-value>",
	Short: "Overwrite the value at path with a JSON-encoded value",
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

		return r.Set(ctx, data.ParsePath(args[0]), data.FromWire(decoded))
	},
}

func init() {
	rootCmd.AddCommand(setCmd)
}
