package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var upgradeCmd = &cobra.Command{
	Use:   "upgrade <target>",
	Short: "Upgrade an installed emulator to the latest stable release",
	Long: `Upgrade resolves the latest stable release of an installed target and
replaces the install tree when a newer version is available. The previous
tree is kept until the new one is in place, so a failed upgrade leaves
the old version intact.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpgrade,
}

func init() {
	rootCmd.AddCommand(upgradeCmd)
}

func runUpgrade(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.log.Sync() }()

	before, _, err := a.store.Get(args[0])
	if err != nil {
		return err
	}

	rec, err := a.manager.Upgrade(ctx, args[0])
	if err != nil {
		return err
	}
	if before != nil && before.Version == rec.Version {
		fmt.Printf("✓ %s is already up to date (%s)\n", rec.TargetID, rec.Version)
		return nil
	}
	fmt.Printf("✓ Upgraded %s to %s\n", rec.TargetID, rec.Version)
	return nil
}
