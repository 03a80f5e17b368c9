package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the maildeck application
var rootCmd = &cobra.Command{
	Use:   "maildeck",
	Short: "Server-side Gmail proxy for the maildeck dashboard",
	Long: `maildeck is the backend for a browser-based inbox dashboard. It holds the
user's delegated Gmail credential in a server-side session and proxies
list, read and archive operations to the Gmail API on the browser's behalf.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "maildeck version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}
