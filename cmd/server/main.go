package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/code-explorer/backend/internal/config"
	"github.com/spf13/cobra"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "code-explorer",
	Short: "Upload source files and browse them with syntax highlighting",
	Long: `Code Explorer serves a single screen where source files are uploaded,
listed and viewed with syntax highlighting. Running without a subcommand
starts the server.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context(), configPath)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "code-explorer %s (built %s)\n", Version, BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to the XML config file")
	rootCmd.AddCommand(versionCmd)
}

// defaultConfigPath places the config next to the executable
func defaultConfigPath() string {
	exePath, err := os.Executable()
	if err != nil {
		return config.DefaultFileName
	}
	return filepath.Join(filepath.Dir(exePath), config.DefaultFileName)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
