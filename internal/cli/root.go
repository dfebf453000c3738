package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/latticedb/sync-core/internal/config"
	"github.com/latticedb/sync-core/internal/repo"
)

var (
	// Global flags
	configFile string
	debug      bool
	verbose    bool

	// cfg is the loaded configuration, populated by initConfig before
	// any subcommand's RunE runs.
	cfg *config.Config

	// registry holds every Repo this process has dialed, keyed by URL.
	// One process, one Registry: a module-level singleton registry is
	// exactly what this type exists to avoid.
	registry = repo.NewRegistry()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "synccore",
	Short: "synccore - a client for a Firebase-Realtime-Database-style sync core",
	Long: `synccore drives a SyncTree-backed client against an authoritative
server over a duplex websocket connection: one-shot reads, overwrites,
pushes, live watches, and optimistic compare-and-set transactions, the
same surface a Firebase Realtime Database client offers its host
application.`,
	Version: "0.1.0-dev",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configFile, "conf", "", "configuration file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "set debug in the loaded configuration")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "set verbose in the loaded configuration")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	loaded, err := config.LoadConfig(config.ConfigPaths{Main: configFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if debug {
		loaded.Debug = true
	}
	if verbose {
		loaded.Verbose = true
	}
	cfg = loaded
}
