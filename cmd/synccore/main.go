// Command synccore is the CLI entrypoint: connect, get, set, push,
// watch, and transact against a sync-core server.
package main

import "github.com/latticedb/sync-core/internal/cli"

func main() {
	cli.Execute()
}
