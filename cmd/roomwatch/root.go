package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chronologos/roomwatch/internal/config"
	"github.com/chronologos/roomwatch/internal/version"
)

// globalFlags holds the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath  string
	host        string
	port        int
	uid         int64
	logLevel    string
	color       string
	metricsAddr string
}

// newRootCmd creates the root command with all subcommands attached.
func newRootCmd() *cobra.Command {
	var gf globalFlags

	cmd := &cobra.Command{
		Use:           "roomwatch",
		Short:         "Watch live rooms for gift opportunities",
		Long:          "roomwatch keeps a connection open to each watched room's message server\nand reports gift opportunities as they are announced.",
		Version:       fmt.Sprintf("roomwatch %s", version.String()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("{{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVarP(&gf.configPath, "config", "c", "", "config file (.toml, .yaml)")
	pf.StringVar(&gf.host, "host", config.DefaultHost, "message server host")
	pf.IntVar(&gf.port, "port", config.DefaultPort, "message server port")
	pf.Int64Var(&gf.uid, "uid", 0, "viewer uid sent in the handshake")
	pf.StringVar(&gf.logLevel, "log-level", "info", "debug, info, warn or error")
	pf.StringVar(&gf.color, "color", "auto", "colored logs: auto, always or never")
	pf.StringVar(&gf.metricsAddr, "metrics-addr", "", "serve /metrics, /healthz and /rooms on this address")

	cmd.AddCommand(
		newWatchCmd(&gf),
		newGuardCmd(&gf),
		newRaffleCmd(&gf),
		newVersionCmd(),
	)
	return cmd
}

// loadConfig reads the config file, if any, and applies explicitly set flags
// on top of it.
func loadConfig(cmd *cobra.Command, gf *globalFlags) (config.Config, error) {
	cfg := config.Default()
	if gf.configPath != "" {
		var err error
		if cfg, err = config.Load(gf.configPath); err != nil {
			return config.Config{}, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Server.Host = gf.host
	}
	if flags.Changed("port") {
		cfg.Server.Port = gf.port
	}
	if flags.Changed("uid") {
		cfg.UID = gf.uid
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = gf.logLevel
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = gf.metricsAddr
	}
	switch gf.color {
	case "auto":
	case "always", "never":
		on := gf.color == "always"
		cfg.Log.Color = &on
	default:
		return config.Config{}, fmt.Errorf("--color must be auto, always or never, got %q", gf.color)
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "roomwatch %s\n", version.String())
			return nil
		},
	}
}
