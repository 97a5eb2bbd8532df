package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sevabrata/campaignsync/internal/catalog"
	"github.com/sevabrata/campaignsync/internal/types"
	"github.com/spf13/cobra"
)

var (
	catalogPathOverride string
	catalogJSONOutput   bool
	catalogStatusFilter string
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the campaign catalog",
	Long:  "Query the SQLite catalog that convert keeps in step with the written buckets.",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalogued campaigns",
	Args:  cobra.NoArgs,
	RunE:  runCatalogList,
}

var catalogShowCmd = &cobra.Command{
	Use:   "show <campaign-id>",
	Short: "Show one catalogued campaign",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogShow,
}

func init() {
	catalogCmd.PersistentFlags().StringVar(&catalogPathOverride, "catalog", "",
		"Catalog database path (overrides catalog.path)")
	catalogCmd.PersistentFlags().BoolVar(&catalogJSONOutput, "json", false,
		"Output in JSON format")
	catalogListCmd.Flags().StringVar(&catalogStatusFilter, "status", "",
		"Only list campaigns with this status (active, ended, archived)")

	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogShowCmd)
}

// resolveCatalog opens the catalog named by --catalog or the configuration.
func resolveCatalog() (*catalog.Catalog, error) {
	path := catalogPathOverride
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		path = cfg.Catalog.Path
	}
	if path == "" {
		return nil, errors.New("catalog is not configured (set catalog.path or pass --catalog)")
	}
	return catalog.Open(path)
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	status := types.Status(strings.ToLower(catalogStatusFilter))
	if status != "" && !status.Valid() {
		return fmt.Errorf("unknown status %q (want active, ended or archived)", catalogStatusFilter)
	}

	cat, err := resolveCatalog()
	if err != nil {
		return err
	}
	defer cat.Close()

	entries, err := cat.List(ctx, status)
	if err != nil {
		return fmt.Errorf("list campaigns: %w", err)
	}

	if catalogJSONOutput {
		if entries == nil {
			entries = []catalog.Entry{}
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"campaigns": entries,
			"total":     len(entries),
		})
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No campaigns found.")
		return nil
	}

	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "ID\tSTATUS\tRAISED\tTARGET\tURGENCY\tUPDATED")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
			e.ID,
			e.Status,
			e.RaisedAmount,
			e.TargetAmount,
			e.Urgency,
			e.LastUpdated,
		)
	}
	w.Flush()

	return nil
}

func runCatalogShow(cmd *cobra.Command, args []string) error {
	id := args[0]
	ctx := context.Background()

	cat, err := resolveCatalog()
	if err != nil {
		return err
	}
	defer cat.Close()

	e, err := cat.Get(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return fmt.Errorf("campaign %q not found in catalog", id)
		}
		return err
	}

	out := cmd.OutOrStdout()

	if catalogJSONOutput {
		return printJSON(out, e)
	}

	fmt.Fprintf(out, "Campaign:      %s\n", e.ID)
	fmt.Fprintf(out, "Title:         %s\n", e.Title)
	fmt.Fprintf(out, "Status:        %s\n", e.Status)
	fmt.Fprintf(out, "File:          %s\n", e.File)
	fmt.Fprintf(out, "Raised:        %d / %d %s\n", e.RaisedAmount, e.TargetAmount, e.Currency)
	fmt.Fprintf(out, "Category:      %s\n", e.Category)
	fmt.Fprintf(out, "Urgency:       %s\n", e.Urgency)
	if len(e.Tags) > 0 {
		fmt.Fprintf(out, "Tags:          %s\n", strings.Join(e.Tags, ", "))
	}
	fmt.Fprintf(out, "Created:       %s\n", e.CreatedDate)
	fmt.Fprintf(out, "Last updated:  %s\n", e.LastUpdated)
	fmt.Fprintf(out, "Last run:      %s\n", e.LastRunID)
	fmt.Fprintf(out, "Synced:        %s\n", e.SyncedAt.Format("2006-01-02 15:04"))

	return nil
}
