package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/chronologos/roomwatch/internal/config"
	"github.com/chronologos/roomwatch/internal/monitor"
)

// newWatchCmd creates "roomwatch watch", which runs every room in the config.
func newWatchCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the rooms listed in the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if gf.configPath == "" {
				return fmt.Errorf("watch needs --config")
			}
			cfg, err := loadConfig(cmd, gf)
			if err != nil {
				return err
			}
			return runMonitors(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

// newGuardCmd creates "roomwatch guard ROOM...".
func newGuardCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "guard ROOM...",
		Short: "Report guard purchases in the given rooms",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdHoc(cmd, gf, args, monitor.KindGuard, monitor.AnyArea)
		},
	}
}

// newRaffleCmd creates "roomwatch raffle ROOM... [--area N]".
func newRaffleCmd(gf *globalFlags) *cobra.Command {
	var area int
	cmd := &cobra.Command{
		Use:   "raffle ROOM...",
		Short: "Report platform raffles seen from the given rooms",
		Long:  "Report platform raffles seen from the given rooms.\nWith --area, a monitor stops once its room goes offline or leaves that parent area.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdHoc(cmd, gf, args, monitor.KindRaffle, area)
		},
	}
	cmd.Flags().IntVar(&area, "area", monitor.AnyArea, "target parent area id (0 = any)")
	return cmd
}

// runAdHoc replaces the configured rooms with rooms from the command line.
func runAdHoc(cmd *cobra.Command, gf *globalFlags, args []string, kind monitor.Kind, area int) error {
	cfg, err := loadConfig(cmd, gf)
	if err != nil {
		return err
	}
	rooms, err := parseRooms(args, kind, area)
	if err != nil {
		return err
	}
	cfg.Rooms = rooms
	return runMonitors(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

func parseRooms(args []string, kind monitor.Kind, area int) ([]config.Room, error) {
	rooms := make([]config.Room, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("room %q: not a number", arg)
		}
		rooms = append(rooms, config.Room{ID: id, Kind: kind, Area: area})
	}
	return rooms, nil
}
