package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/latticedb/sync-core/internal/data"
	"github.com/latticedb/sync-core/internal/query"
	"github.com/latticedb/sync-core/internal/synctree"
)

var getCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Read a value once and print it as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		r, err := dialRepo(ctx)
		if err != nil {
			return err
		}

		path := data.ParsePath(args[0])
		filter := query.Filter{}

		snapshotCh := make(chan *data.TSD, 1)
		sub, err := r.AddListener(ctx, path, filter, synctree.EventValue, func(ev synctree.Event) {
			select {
			case snapshotCh <- ev.Snapshot:
			default:
			}
		})
		if err != nil {
			return err
		}
		defer r.RemoveListener(ctx, path, filter, sub)

		select {
		case snapshot := <-snapshotCh:
			out, err := json.MarshalIndent(data.ToWire(snapshot), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
