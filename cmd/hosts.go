package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lightview/lightview/internal/config"
	"github.com/lightview/lightview/internal/logger"
)

var hostApp string

var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "Manage known streaming hosts",
	Long:  `Manage the known-host book so stream can connect by name.`,
}

var hostsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known hosts",
	RunE: func(cmd *cobra.Command, args []string) error {
		hosts := config.ListHosts()
		if len(hosts) == 0 {
			logger.Info("No hosts configured. Add one with: lightview hosts add <name> <address>")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tADDRESS\tAPP")
		for _, h := range hosts {
			app := h.App
			if app == "" {
				app = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", h.Name, h.Address, app)
		}
		return w.Flush()
	},
}

var hostsAddCmd = &cobra.Command{
	Use:   "add <name> <address>",
	Short: "Add or update a known host",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		host := config.HostConfig{
			Name:    args[0],
			Address: args[1],
			App:     hostApp,
		}
		if err := config.AddHost(host); err != nil {
			return fmt.Errorf("failed to add host: %w", err)
		}
		logger.Infof("Added host %q (%s)", host.Name, host.Address)
		return nil
	},
}

var hostsRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a known host",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.RemoveHost(args[0]); err != nil {
			return err
		}
		logger.Infof("Removed host %q", args[0])
		return nil
	},
}

func init() {
	hostsAddCmd.Flags().StringVar(&hostApp, "app", "", "default app to launch on this host")

	hostsCmd.AddCommand(hostsListCmd)
	hostsCmd.AddCommand(hostsAddCmd)
	hostsCmd.AddCommand(hostsRemoveCmd)
	rootCmd.AddCommand(hostsCmd)
}
