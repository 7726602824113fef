package main

import (
	"fmt"
	"os"

	"github.com/formbase/formbase/bootstrap"
	"github.com/formbase/formbase/config"
	"github.com/spf13/cobra"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the CRUD server",
	Long: `Start the formbase server.

The server will:
  - Load configuration from formbase.yaml (or --config)
  - Or load configuration from FORMBASE_* environment variables
  - Open the document store
  - Register the built-in schemas (plus any from schemas.dir)
  - Serve the generic CRUD and schema introspection API

Environment variables (for Docker deployments):
  FORMBASE_DATABASE_DSN     - Database path (default: formbase.db)
  FORMBASE_DATABASE_DRIVER  - sqlite or memory
  FORMBASE_SERVER_PORT      - Server port (default: 8080)
  FORMBASE_SCHEMAS_DIR      - Extra schema definition directory
  FORMBASE_LOG_LEVEL        - Log level: debug, info, warn, error

Examples:
  formbase serve
  formbase serve --config /etc/formbase/config.yaml
  formbase serve --hot-reload=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	hasConfigFile := false
	if _, err := os.Stat(cfgFile); err == nil {
		hasConfigFile = true
	}

	var app *bootstrap.App
	var err error

	if hasConfigFile && hotReload {
		// Hot reload only works with a config file
		app, err = bootstrap.NewWithHotReload(cfgFile)
	} else {
		cfg, loadErr := config.LoadWithFallback(cfgFile)
		if loadErr != nil {
			return fmt.Errorf("error loading config: %w", loadErr)
		}

		if !hasConfigFile {
			fmt.Println("Running with environment variables (no config file)")
		}

		app, err = bootstrap.New(cfg)
	}

	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}
