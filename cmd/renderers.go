package cmd

import (
	"github.com/gogpu/gogpu/gpu"
	"github.com/spf13/cobra"

	"github.com/lightview/lightview/internal/logger"
)

var renderersCmd = &cobra.Command{
	Use:   "renderers",
	Short: "Probe and list available presentation backends",
	Run: func(cmd *cobra.Command, args []string) {
		backend := gpu.GetBackend()
		if backend == nil {
			if err := gpu.InitDefaultBackend(); err == nil {
				backend = gpu.GetBackend()
			}
		}
		if backend != nil {
			logger.Infof("gpu: available (%s)", backend.Name())
		} else {
			logger.Warn("gpu: no backend available")
		}
		logger.Info("software: available")
	},
}

func init() {
	rootCmd.AddCommand(renderersCmd)
}
