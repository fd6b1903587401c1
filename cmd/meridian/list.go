package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/meridian-launcher/meridian/internal/store"
)

var listSystem string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available targets and their install state",
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listSystem, "system", "",
		"only list targets emulating the given system")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := buildApp(context.Background())
	if err != nil {
		return err
	}
	defer func() { _ = a.log.Sync() }()

	records, err := a.store.List()
	if err != nil {
		return err
	}
	installed := make(map[string]*store.Record, len(records))
	for _, rec := range records {
		installed[rec.TargetID] = rec
	}

	entries := a.catalog.All()
	if listSystem != "" {
		entries = a.catalog.ForSystem(listSystem)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TARGET\tNAME\tSTATUS\tVERSION")
	for _, e := range entries {
		status, version := "available", "-"
		if rec, ok := installed[e.ID]; ok {
			status, version = "installed", rec.Version
			if !rec.SetupComplete {
				status = "setup incomplete"
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.ID, e.Name, status, version)

		for _, comp := range e.Components {
			compStatus, compVersion := "available", "-"
			if rec, ok := installed[e.ID+"/"+comp.ID]; ok {
				compStatus, compVersion = "installed", rec.Version
			}
			fmt.Fprintf(w, "%s/%s\t%s\t%s\t%s\n", e.ID, comp.ID, comp.Name, compStatus, compVersion)
		}
	}
	return w.Flush()
}
