package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lightview/lightview/internal/config"
	"github.com/lightview/lightview/internal/logger"
)

var (
	// Version info set by main package
	Version = "0.1.0-dev"
	Commit  = "unknown"
	Date    = "unknown"

	configPath string

	rootCmd = &cobra.Command{
		Use:   "lightview",
		Short: "Lightview - game stream client runtime",
		Long: `Lightview is the client-side runtime of a Moonlight-style game
streaming protocol: it translates local input into host input packets and
presents decoded video through the best available renderer.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				config.SetConfigPath(configPath)
			}
			if err := config.Init(); err != nil {
				return err
			}
			if lvl := config.Get().Logging.LogLevel; lvl != "" {
				logger.SetLevel(lvl)
			}
			return nil
		},
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
}

// Exit with error message
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
