// navbake bakes navigation meshes for map blocks.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// VERSION is set at link time.
var VERSION = "dev"

func rootCmd() *cobra.Command {
	c := &cobra.Command{
		Use:          "navbake",
		Short:        "offline navmesh baker",
		Version:      VERSION,
		SilenceUsage: true,
	}
	c.AddCommand(BakeCmd(), InspectCmd(), PackCmd(), ConfigCmd())
	return c
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
