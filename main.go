package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Family photo gallery backed by Google Drive",
	Long: `Mirrors a Google Drive folder tree into a gallery record store and serves
it over HTTP. Without a subcommand the HTTP server is started.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if configFile != "" {
			os.Setenv("CONFIG_FILE", configFile)
		}
	},
	Run: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "TOML config file (overrides CONFIG_FILE)")
	rootCmd.AddCommand(serveCmd, syncCmd, rebuildIndexCmd, backupCmd, restoreCmd, purgeExpiredCmd)
}

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
