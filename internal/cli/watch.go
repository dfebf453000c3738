package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/latticedb/sync-core/internal/data"
	"github.com/latticedb/sync-core/internal/query"
	"github.com/latticedb/sync-core/internal/synctree"
)

var watchCmd = &cobra.Command{
	Use:   "watch <path>",
	Short: "Stream value updates at path until interrupted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		r, err := dialRepo(ctx)
		if err != nil {
			return err
		}

		path := data.ParsePath(args[0])
		filter := query.Filter{}
		sub, err := r.AddListener(ctx, path, filter, synctree.EventValue, func(ev synctree.Event) {
			out, err := json.Marshal(data.ToWire(ev.Snapshot))
			if err != nil {
				fmt.Fprintf(os.Stderr, "cli: encode snapshot: %v\n", err)
				return
			}
			fmt.Println(string(out))
		})
		if err != nil {
			return err
		}

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt)
		<-sig

		return r.RemoveListener(ctx, path, filter, sub)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
