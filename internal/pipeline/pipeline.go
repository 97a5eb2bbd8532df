// Package pipeline runs one conversion: read the source sheet, load the
// published buckets, reconcile every campaign and write the results back,
// then mirror them into the catalog and publish them when those are enabled.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/sevabrata/campaignsync/internal/bucket"
	"github.com/sevabrata/campaignsync/internal/catalog"
	"github.com/sevabrata/campaignsync/internal/ingest"
	"github.com/sevabrata/campaignsync/internal/publish"
	"github.com/sevabrata/campaignsync/internal/reconcile"
	"github.com/sevabrata/campaignsync/internal/types"
	"github.com/sevabrata/campaignsync/internal/validation"
)

// Indexer receives the records written by a run.
// Implemented by *catalog.Catalog.
type Indexer interface {
	Upsert(ctx context.Context, runID string, entries []catalog.Entry) error
}

// Options controls a single Run.
type Options struct {
	SourcePath string
	DryRun     bool
}

// Rejection is a group that could not be turned into a record.
type Rejection struct {
	Title string
	Err   error
}

// Summary reports what a Run did.
type Summary struct {
	RunID    string
	DryRun   bool
	Total    int
	Counts   map[types.Status]int
	Rejected []Rejection

	// Loaded and Skipped count the stored documents read before reconciling.
	Loaded  int
	Skipped int

	Written     []bucket.WrittenFile
	Manifests   []bucket.WrittenFile
	WriteErrors []bucket.WriteFailure

	Catalogued   int
	CatalogError error

	Uploaded     int
	UploadErrors int
}

// Empty reports whether the run produced no campaigns.
func (s *Summary) Empty() bool {
	return s.Total == 0
}

// Pipeline wires the conversion stages together.
type Pipeline struct {
	store         *bucket.Store
	grouper       *ingest.Grouper
	reconcileOpts []reconcile.Option
	indexer       Indexer
	uploader      publish.Uploader
	logger        *slog.Logger
	now           func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithIndexer mirrors written records into idx after each run.
func WithIndexer(idx Indexer) Option {
	return func(p *Pipeline) {
		p.indexer = idx
	}
}

// WithUploader publishes written files through u.
func WithUploader(u publish.Uploader) Option {
	return func(p *Pipeline) {
		if u != nil {
			p.uploader = u
		}
	}
}

// WithReconcileOptions passes options through to the reconciler.
func WithReconcileOptions(opts ...reconcile.Option) Option {
	return func(p *Pipeline) {
		p.reconcileOpts = append(p.reconcileOpts, opts...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock sets the time source for record dates and manifest timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// New creates a Pipeline writing into store.
func New(store *bucket.Store, grouper *ingest.Grouper, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:    store,
		grouper:  grouper,
		uploader: &publish.NoopUploader{},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.grouper == nil {
		p.grouper = ingest.NewGrouper("")
	}
	return p
}

// Run performs one conversion.
//
// A missing or unreadable source aborts the run before anything is written.
// Every other failure is confined to the campaign or file it affects and is
// reported in the Summary.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Summary, error) {
	runID := ulid.Make().String()
	logger := p.logger.With("component", "pipeline", "run_id", runID)

	summary := &Summary{
		RunID:  runID,
		DryRun: opts.DryRun,
		Counts: make(map[types.Status]int, len(types.Statuses)),
	}

	rows, err := ingest.ReadFile(opts.SourcePath)
	if err != nil {
		return nil, err
	}

	snapshot, stats := p.store.Load()
	summary.Loaded, summary.Skipped = stats.Loaded, stats.Skipped
	logger.Info("existing campaigns loaded",
		"action", "store_loaded",
		"loaded", stats.Loaded,
		"skipped", stats.Skipped,
	)

	groups := p.grouper.Group(rows)
	recOpts := append([]reconcile.Option{reconcile.WithClock(p.now)}, p.reconcileOpts...)
	reconciler := reconcile.NewReconciler(snapshot, recOpts...)

	campaigns := p.reconcileAll(logger, reconciler, groups, summary)

	buckets := make(map[types.Status][]types.Campaign, len(types.Statuses))
	for _, c := range campaigns {
		buckets[c.Status] = append(buckets[c.Status], c)
		summary.Counts[c.Status]++
	}
	summary.Total = len(campaigns)

	if summary.Empty() {
		logger.Info("no campaigns to convert", "action", "run_empty", "rows", len(rows))
		return summary, nil
	}
	if opts.DryRun {
		logger.Info("dry run, nothing written", "action", "run_dry", "campaigns", summary.Total)
		return summary, nil
	}

	result := p.store.Write(buckets, p.now())
	summary.Written = result.Records
	summary.Manifests = result.Manifests
	summary.WriteErrors = result.Failures

	p.index(ctx, logger, runID, campaigns, result, summary)
	p.upload(ctx, logger, result, summary)

	logger.Info("run complete",
		"action", "run_complete",
		"campaigns", summary.Total,
		"rejected", len(summary.Rejected),
		"write_errors", len(summary.WriteErrors),
		"uploaded", summary.Uploaded,
	)
	return summary, nil
}

// reconcileAll merges and validates every group, collecting rejections. When two titles
// produce the same identifier the later group replaces the earlier one.
func (p *Pipeline) reconcileAll(logger *slog.Logger, r *reconcile.Reconciler, groups []ingest.Group, summary *Summary) []types.Campaign {
	campaigns := make([]types.Campaign, 0, len(groups))
	seen := make(map[string]int, len(groups))

	for _, g := range groups {
		c, err := r.Reconcile(g)
		if err == nil {
			err = validation.Campaign(c)
		}
		if err != nil {
			summary.Rejected = append(summary.Rejected, Rejection{Title: g.Title, Err: err})
			logger.Warn("campaign rejected",
				"action", "campaign_rejected",
				"title", g.Title,
				"error", err,
			)
			continue
		}

		if i, ok := seen[c.ID]; ok {
			logger.Warn("duplicate campaign id, keeping the later row group",
				"action", "campaign_replaced",
				"id", c.ID,
				"previous_title", campaigns[i].Title,
				"title", c.Title,
			)
			campaigns[i] = c
			continue
		}
		seen[c.ID] = len(campaigns)
		campaigns = append(campaigns, c)

		logger.Debug("campaign reconciled",
			"action", "campaign_reconciled",
			"id", c.ID,
			"status", c.Status,
		)
	}
	return campaigns
}

func (p *Pipeline) index(ctx context.Context, logger *slog.Logger, runID string, campaigns []types.Campaign, result *bucket.WriteResult, summary *Summary) {
	if p.indexer == nil || len(result.Records) == 0 {
		return
	}

	byID := make(map[string]types.Campaign, len(campaigns))
	for _, c := range campaigns {
		byID[c.ID] = c
	}

	entries := make([]catalog.Entry, 0, len(result.Records))
	for _, f := range result.Records {
		c, ok := byID[f.CampaignID]
		if !ok {
			continue
		}
		entries = append(entries, catalog.EntryFromCampaign(c, path.Join(string(f.Status), f.Name)))
	}

	if err := p.indexer.Upsert(ctx, runID, entries); err != nil {
		summary.CatalogError = fmt.Errorf("update catalog: %w", err)
		logger.Error("catalog update failed",
			"action", "catalog_failed",
			"error", err,
		)
		return
	}
	summary.Catalogued = len(entries)
	logger.Info("catalog updated", "action", "catalog_updated", "entries", len(entries))
}

func (p *Pipeline) upload(ctx context.Context, logger *slog.Logger, result *bucket.WriteResult, summary *Summary) {
	if !p.uploader.Enabled() {
		return
	}

	for _, f := range result.Files() {
		if err := ctx.Err(); err != nil {
			logger.Warn("upload interrupted", "action", "upload_cancelled", "error", err)
			return
		}
		if err := p.uploader.Upload(ctx, f.Status, f.Name, f.Path); err != nil {
			summary.UploadErrors++
			logger.Error("upload failed",
				"action", "upload_failed",
				"path", f.Path,
				"error", err,
			)
			continue
		}
		summary.Uploaded++
		logger.Debug("file uploaded", "action", "file_uploaded", "path", f.Path)
	}
}
