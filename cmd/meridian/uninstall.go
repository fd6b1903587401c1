package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <target>",
	Short: "Remove an installed emulator and its components",
	Args:  cobra.ExactArgs(1),
	RunE:  runUninstall,
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(cmd *cobra.Command, args []string) error {
	a, err := buildApp(context.Background())
	if err != nil {
		return err
	}
	defer func() { _ = a.log.Sync() }()

	if err := a.manager.Uninstall(args[0]); err != nil {
		return err
	}
	fmt.Printf("✓ Uninstalled %s\n", args[0])
	return nil
}
