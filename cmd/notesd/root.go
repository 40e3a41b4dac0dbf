package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "notesd",
	Short: "Note-taking service with owner-scoped storage and a realtime change feed",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// glog reads its settings from the flag package.
		_ = flag.Set("logtostderr", "true")
		if verbose {
			_ = flag.Set("v", "2")
		}
		flag.Parse()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}
