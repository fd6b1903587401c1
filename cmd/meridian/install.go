package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var installComponent string

var installCmd = &cobra.Command{
	Use:   "install <target>",
	Short: "Install an emulator (or one of its cores)",
	Long: `Install downloads the latest stable release of a target, verifies it,
unpacks it under the emulators root, and runs the target's first-run
setup. Re-running install on a healthy target is a no-op.

Examples:
  # Install Cemu
  meridian install cemu

  # Install RetroArch, then its mGBA core
  meridian install retroarch
  meridian install retroarch --component mgba`,
	Args: cobra.ExactArgs(1),
	RunE: runInstall,
}

func init() {
	installCmd.Flags().StringVar(&installComponent, "component", "",
		"install a component of the target instead of the target itself")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.log.Sync() }()

	targetID := args[0]

	if installComponent != "" {
		rec, err := a.manager.InstallComponent(ctx, targetID, installComponent)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Installed %s (%s)\n", rec.TargetID, rec.Version)
		return nil
	}

	a.log.Info("installing target", zap.String("target", targetID))
	rec, err := a.manager.Install(ctx, targetID)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Installed %s %s at %s\n", rec.TargetID, rec.Version, rec.InstallRoot)
	if !rec.SetupComplete {
		fmt.Println("⚠  First-run setup is incomplete; run install again after providing the missing sources")
	}
	return nil
}
