package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lightview/lightview/internal/config"
	"github.com/lightview/lightview/internal/logger"
	"github.com/lightview/lightview/internal/session"
	"github.com/lightview/lightview/internal/transport"
)

var (
	streamHost     string
	streamGen5     bool
	streamExtended bool

	streamCmd = &cobra.Command{
		Use:   "stream",
		Short: "Start a streaming session",
		Long: `Connects to a host agent and starts a streaming session: local input
is translated to host input packets, and host haptic events are routed back
to attached gamepads.`,
		RunE: runStream,
	}
)

func init() {
	streamCmd.Flags().StringVar(&streamHost, "host", "", "host address or configured host name")
	streamCmd.Flags().BoolVar(&streamGen5, "gen5", true, "host speaks the gen 5 protocol revision")
	streamCmd.Flags().BoolVar(&streamExtended, "extended", false, "host supports extended input packets")

	// Flag defaults mirror config defaults; an unchanged bound flag still
	// outranks viper's SetDefault.
	streamCmd.Flags().Int("width", config.DefaultConfig.Video.Width, "stream width")
	streamCmd.Flags().Int("height", config.DefaultConfig.Video.Height, "stream height")
	streamCmd.Flags().Bool("vsync", true, "enable vsync")
	streamCmd.Flags().Bool("absolute-mouse", false, "send absolute pointer positions")
	streamCmd.Flags().Bool("multi-controller", true, "expose all four gamepad slots")
	streamCmd.Flags().Bool("gamepad-as-mouse", false, "allow Start-hold mouse emulation")
	streamCmd.Flags().String("renderer", "", "force a presentation backend")

	mustBind("video.width", streamCmd, "width")
	mustBind("video.height", streamCmd, "height")
	mustBind("video.vsync", streamCmd, "vsync")
	mustBind("video.renderer", streamCmd, "renderer")
	mustBind("input.absolute_mouse", streamCmd, "absolute-mouse")
	mustBind("input.multi_controller", streamCmd, "multi-controller")
	mustBind("input.gamepad_as_mouse", streamCmd, "gamepad-as-mouse")

	rootCmd.AddCommand(streamCmd)
}

func mustBind(key string, cmd *cobra.Command, flag string) {
	if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func runStream(cmd *cobra.Command, args []string) error {
	if streamHost == "" {
		exitError("--host is required")
	}

	// Flag overrides arrive through viper after Init, so re-unmarshal.
	cfg := &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return err
	}

	address := streamHost
	if known, err := config.GetHost(streamHost); err == nil {
		address = known.Address
		logger.Infof("resolved host %q to %s", streamHost, address)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := transport.NewClient()

	win := &headlessWindow{
		width:  cfg.Video.Width,
		height: cfg.Video.Height,
		quit:   cancel,
	}
	sess, err := session.New(session.Options{
		Config: cfg,
		Sender: client,
		Window: win,
		Capabilities: session.HostCapabilities{
			Gen5:     streamGen5,
			Extended: streamExtended,
		},
	})
	if err != nil {
		return err
	}
	client.OnRumble(sess.HandleRumble)

	if err := client.Connect(ctx, address); err != nil {
		return err
	}
	defer client.Disconnect()

	if err := sess.Start(); err != nil {
		return err
	}
	defer sess.Stop()

	logger.Infof("streaming from %s, Ctrl+C to stop", address)
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

// headlessWindow is the control surface used when no windowing integration
// is linked in. Capture and cursor handling degrade to no-ops; quit still
// works so the gamepad chord can end the session.
type headlessWindow struct {
	width, height int
	quit          context.CancelFunc
}

func (w *headlessWindow) Size() (int, int) { return w.width, w.height }

func (w *headlessWindow) SetPointerCapture(active bool) error { return nil }
func (w *headlessWindow) ShowCursor(show bool)                {}
func (w *headlessWindow) ToggleFullscreen()                   {}

func (w *headlessWindow) ToggleStatsOverlay() {
	logger.Info("stats overlay has no headless rendering")
}

func (w *headlessWindow) NotifyMouseEmulation(active bool) {
	if active {
		logger.Info("gamepad mouse emulation active")
	} else {
		logger.Info("gamepad mouse emulation off")
	}
}

func (w *headlessWindow) RequestQuit() {
	logger.Info("quit requested")
	w.quit()
}
