package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/latticedb/sync-core/internal/data"
)

var transactCmd = &cobra.Command{
	Use:   "transact increment <path> <delta>",
	Short: "Run an optimistic compare-and-set transaction that adds delta to the numeric value at path",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if args[0] != "increment" {
			return fmt.Errorf("cli: unsupported transaction kind %q, only \"increment\" is supported", args[0])
		}
		delta, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("cli: parse delta: %w", err)
		}

		ctx := context.Background()
		r, err := dialRepo(ctx)
		if err != nil {
			return err
		}

		result, err := r.Transact(ctx, data.ParsePath(args[1]), func(current *data.TSD) (*data.TSD, error) {
			base := 0.0
			if n, ok := current.Value().(float64); ok {
				base = n
			}
			return data.Leaf(base + delta), nil
		}, true)
		if err != nil {
			return err
		}

		out, err := json.Marshal(data.ToWire(result))
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(transactCmd)
}
