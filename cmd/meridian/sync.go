package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meridian-launcher/meridian/internal/install"
)

var syncGame string

var syncCmd = &cobra.Command{
	Use:   "sync <target>",
	Short: "Push controller profiles into an emulator's native configuration",
	Long: `Sync translates the neutral controller profiles from the bindings file
into the target emulator's own configuration format. Targets without a
binding extension are left untouched.

The bindings file location comes from the bindings_file setting
(default ~/.meridian/bindings.json).`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncGame, "game", "",
		"game the sync applies to, for emulators with per-game profiles")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.log.Sync() }()

	targetID := args[0]
	if !a.bindings.Has(targetID) {
		fmt.Printf("%s has no controller-profile translation; nothing to do\n", targetID)
		return nil
	}

	rec, ok, err := a.store.Get(targetID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", targetID, install.ErrNotInstalled)
	}

	profiles, err := a.loadProfiles()
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		return errors.New("no controller profiles found; create the bindings file first")
	}

	written, err := a.bindings.Sync(ctx, targetID, profiles, rec.InstallRoot, syncGame)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Synchronized %d profile(s), wrote %d file(s)\n", len(profiles), len(written))
	return nil
}
