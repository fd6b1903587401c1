package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meridian-launcher/meridian/internal/launch"
)

var launchCore string

var launchCmd = &cobra.Command{
	Use:   "launch <target> [rom]",
	Short: "Launch an installed emulator",
	Long: `Launch starts an installed emulator, synchronizing controller profiles
first when the target supports it. A rom may be passed to boot straight
into a game; composite targets take --core to pick the emulation core.

Examples:
  meridian launch cemu /roms/wiiu/game.wud
  meridian launch retroarch /roms/gba/game.gba --core mgba`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runLaunch,
}

func init() {
	launchCmd.Flags().StringVar(&launchCore, "core", "",
		"component core to load, for composite targets")
	rootCmd.AddCommand(launchCmd)
}

func runLaunch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.log.Sync() }()

	req := launch.Request{
		TargetID:    args[0],
		ComponentID: launchCore,
	}
	if len(args) > 1 {
		req.Game = args[1]
	}

	profiles, err := a.loadProfiles()
	if err != nil {
		a.log.Warn("could not load controller profiles", zap.Error(err))
	} else {
		req.Profiles = profiles
	}

	pid, err := a.launcher.Launch(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Launched %s (pid %d)\n", req.TargetID, pid)
	return nil
}
