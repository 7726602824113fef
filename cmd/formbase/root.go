package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "formbase",
	Short: "Schema-driven CRUD backend with form introspection",
	Long: `Formbase is a schema-driven CRUD HTTP service.

Named data schemas are registered at startup; generic routes perform
create/read/update/delete for any registered schema and expose a
recursive form description that clients use to render forms.

Quick start:
  formbase serve       # Start the server
  formbase validate    # Validate configuration and schema files`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "formbase.yaml", "config file path")
}
