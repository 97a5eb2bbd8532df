package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sevabrata/campaignsync/internal/bucket"
	"github.com/sevabrata/campaignsync/internal/catalog"
	"github.com/sevabrata/campaignsync/internal/ingest"
	"github.com/sevabrata/campaignsync/internal/pipeline"
	"github.com/sevabrata/campaignsync/internal/publish"
	"github.com/sevabrata/campaignsync/internal/reconcile"
	"github.com/sevabrata/campaignsync/internal/types"
	"github.com/spf13/cobra"
)

var (
	convertSource     string
	convertOutput     string
	convertCatalog    string
	convertDryRun     bool
	convertJSONOutput bool
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert the campaign sheet into bucket documents",
	Long: "Read the campaign sheet, merge every campaign with its published record and\n" +
		"write the active, ended and archived buckets with their manifests.",
	Args: cobra.NoArgs,
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVar(&convertSource, "source", "",
		"Campaign sheet path (overrides source.path)")
	convertCmd.Flags().StringVar(&convertOutput, "output", "",
		"Bucket root directory (overrides output.root)")
	convertCmd.Flags().StringVar(&convertCatalog, "catalog", "",
		"Catalog database path (overrides catalog.path)")
	convertCmd.Flags().BoolVar(&convertDryRun, "dry-run", false,
		"Reconcile and report without writing anything")
	convertCmd.Flags().BoolVar(&convertJSONOutput, "json", false,
		"Output the summary in JSON format")
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if convertSource != "" {
		cfg.Source.Path = convertSource
	}
	if convertOutput != "" {
		cfg.Output.Root = convertOutput
	}
	if convertCatalog != "" {
		cfg.Catalog.Path = convertCatalog
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg.Log, cmd.ErrOrStderr())

	store, err := bucket.NewStore(cfg.Output.Root, cfg.Output.ManifestName, logger)
	if err != nil {
		return err
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithReconcileOptions(reconcile.WithDefaults(cfg.Defaults.Currency, cfg.Defaults.Category)),
	}

	if cfg.Catalog.Path != "" && !convertDryRun {
		idx := &lazyCatalog{path: cfg.Catalog.Path}
		defer idx.Close()
		opts = append(opts, pipeline.WithIndexer(idx))
	}

	uploader, err := publish.NewUploader(cfg.Publish)
	if err != nil {
		return err
	}
	opts = append(opts, pipeline.WithUploader(uploader))

	p := pipeline.New(store, ingest.NewGrouper(cfg.Source.ImageColumn), opts...)

	summary, err := p.Run(ctx, pipeline.Options{
		SourcePath: cfg.Source.Path,
		DryRun:     convertDryRun,
	})
	if err != nil {
		return err
	}

	if convertJSONOutput {
		return printJSON(cmd.OutOrStdout(), summaryJSON(store, summary))
	}
	printSummary(cmd.OutOrStdout(), cfg.Source.Path, store, summary)
	return nil
}

// lazyCatalog opens the catalog on the first upsert, so a run that aborts
// before writing anything leaves no database behind.
type lazyCatalog struct {
	path string
	cat  *catalog.Catalog
}

func (l *lazyCatalog) Upsert(ctx context.Context, runID string, entries []catalog.Entry) error {
	if l.cat == nil {
		cat, err := catalog.Open(l.path)
		if err != nil {
			return err
		}
		l.cat = cat
	}
	return l.cat.Upsert(ctx, runID, entries)
}

func (l *lazyCatalog) Close() error {
	if l.cat == nil {
		return nil
	}
	return l.cat.Close()
}

func statusLabel(s types.Status) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

func printSummary(out io.Writer, source string, store *bucket.Store, s *pipeline.Summary) {
	fmt.Fprintf(out, "Converted %s (run %s)\n", source, s.RunID)
	fmt.Fprintln(out, strings.Repeat("-", 50))

	fmt.Fprintln(out, "Conversion Summary:")
	fmt.Fprintf(out, "Total campaigns: %d\n", s.Total)
	for _, status := range types.Statuses {
		fmt.Fprintf(out, "  %s: %d\n", statusLabel(status), s.Counts[status])
	}
	for _, r := range s.Rejected {
		fmt.Fprintf(out, "Rejected: %s: %v\n", r.Title, r.Err)
	}

	if s.Empty() {
		fmt.Fprintln(out, "No campaigns found to convert.")
		return
	}
	if s.DryRun {
		fmt.Fprintln(out, "Dry run: no files written.")
		return
	}

	fmt.Fprintln(out)
	for _, f := range s.Written {
		fmt.Fprintf(out, "Created: %s\n", f.Path)
	}
	for _, f := range s.Manifests {
		fmt.Fprintf(out, "Created manifest: %s\n", f.Path)
	}
	for _, f := range s.WriteErrors {
		fmt.Fprintf(out, "Error writing %s: %v\n", f.Path, f.Err)
	}

	if s.CatalogError != nil {
		fmt.Fprintf(out, "Catalog: %v\n", s.CatalogError)
	} else if s.Catalogued > 0 {
		fmt.Fprintf(out, "Catalog: %d entries updated\n", s.Catalogued)
	}
	if s.Uploaded > 0 || s.UploadErrors > 0 {
		fmt.Fprintf(out, "Published: %d files (%d failed)\n", s.Uploaded, s.UploadErrors)
	}

	fmt.Fprintf(out, "\nJSON files created in: %s/\n", store.Root())
	for _, status := range types.Statuses {
		fmt.Fprintf(out, "  - %s campaigns: %s/\n", statusLabel(status), store.Dir(status))
	}
}

func summaryJSON(store *bucket.Store, s *pipeline.Summary) map[string]any {
	counts := make(map[string]int, len(types.Statuses))
	for _, status := range types.Statuses {
		counts[string(status)] = s.Counts[status]
	}

	rejected := make([]map[string]any, len(s.Rejected))
	for i, r := range s.Rejected {
		rejected[i] = map[string]any{"title": r.Title, "error": r.Err.Error()}
	}

	files := make([]string, 0, len(s.Written)+len(s.Manifests))
	for _, f := range append(append([]bucket.WrittenFile{}, s.Written...), s.Manifests...) {
		files = append(files, f.Path)
	}

	failures := make([]map[string]any, len(s.WriteErrors))
	for i, f := range s.WriteErrors {
		failures[i] = map[string]any{"path": f.Path, "error": f.Err.Error()}
	}

	out := map[string]any{
		"run_id":        s.RunID,
		"dry_run":       s.DryRun,
		"output_root":   store.Root(),
		"total":         s.Total,
		"counts":        counts,
		"rejected":      rejected,
		"files":         files,
		"write_errors":  failures,
		"catalogued":    s.Catalogued,
		"uploaded":      s.Uploaded,
		"upload_errors": s.UploadErrors,
	}
	if s.CatalogError != nil {
		out["catalog_error"] = s.CatalogError.Error()
	}
	return out
}
