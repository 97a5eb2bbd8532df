// Package bucket persists campaign records into per-status directories,
// each indexed by a manifest document.
package bucket

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sevabrata/campaignsync/internal/reconcile"
	"github.com/sevabrata/campaignsync/internal/types"
)

// DefaultManifestName is the per-bucket index document.
const DefaultManifestName = "manifest.json"

// ErrUnknownStatus indicates a record whose status names no bucket.
var ErrUnknownStatus = errors.New("unknown campaign status")

// Store lays campaign documents out under a root directory,
// one subdirectory per status.
type Store struct {
	root         string
	manifestName string
	logger       *slog.Logger
}

// NewStore creates a Store rooted at root. A leading ~/ expands to the home directory.
func NewStore(root, manifestName string, logger *slog.Logger) (*Store, error) {
	if strings.HasPrefix(root, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		root = filepath.Join(home, root[2:])
	}
	if manifestName == "" {
		manifestName = DefaultManifestName
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		root:         root,
		manifestName: manifestName,
		logger:       logger.With("component", "bucket"),
	}, nil
}

// Root returns the resolved root directory.
func (s *Store) Root() string {
	return s.root
}

// Dir returns the directory holding records with the given status.
func (s *Store) Dir(status types.Status) string {
	return filepath.Join(s.root, string(status))
}

// ManifestPath returns the manifest location for a bucket.
func (s *Store) ManifestPath(status types.Status) string {
	return filepath.Join(s.Dir(status), s.manifestName)
}

// LoadStats summarises a Load call.
type LoadStats struct {
	Loaded  int
	Skipped int
}

// Load reads every stored record across all buckets into a snapshot keyed by id.
// Unreadable or malformed documents, and documents without an id, are skipped
// with a warning. When an id appears in more than one bucket the later bucket
// in types.Statuses order wins.
func (s *Store) Load() (reconcile.Snapshot, LoadStats) {
	snapshot := make(reconcile.Snapshot)
	var stats LoadStats

	for _, status := range types.Statuses {
		dir := s.Dir(status)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				s.logger.Warn("error scanning bucket directory",
					"path", dir, "error", err)
			}
			continue
		}

		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.HasSuffix(name, ".json") || name == s.manifestName {
				continue
			}

			path := filepath.Join(dir, name)
			campaign, err := readCampaign(path)
			if err != nil {
				stats.Skipped++
				s.logger.Warn("could not load stored campaign",
					"action", "campaign_skipped",
					"path", path,
					"error", err,
				)
				continue
			}
			if campaign.ID == "" {
				stats.Skipped++
				s.logger.Warn("stored campaign has no id",
					"action", "campaign_skipped",
					"path", path,
				)
				continue
			}

			if _, dup := snapshot[campaign.ID]; dup {
				s.logger.Warn("campaign stored in more than one bucket",
					"campaign_id", campaign.ID,
					"path", path,
				)
			} else {
				stats.Loaded++
			}
			snapshot[campaign.ID] = *campaign

			s.logger.Debug("loaded stored campaign",
				"action", "campaign_loaded",
				"campaign_id", campaign.ID,
				"title", campaign.Title,
			)
		}
	}

	s.logger.Info("stored campaigns loaded",
		"loaded", stats.Loaded,
		"skipped", stats.Skipped,
	)
	return snapshot, stats
}

// LoadManifest reads the manifest of a bucket.
func (s *Store) LoadManifest(status types.Status) (*types.Manifest, error) {
	data, err := os.ReadFile(s.ManifestPath(status))
	if err != nil {
		return nil, err
	}
	var m types.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// WrittenFile is a document written by Write.
type WrittenFile struct {
	Status     types.Status
	Name       string
	Path       string
	CampaignID string // empty for manifests
}

// WriteFailure is a document that could not be written.
type WriteFailure struct {
	Status types.Status
	Path   string
	Err    error
}

// WriteResult reports the outcome of Write.
type WriteResult struct {
	Records   []WrittenFile
	Manifests []WrittenFile
	Failures  []WriteFailure
}

// Files returns every written document, records first.
func (r *WriteResult) Files() []WrittenFile {
	files := make([]WrittenFile, 0, len(r.Records)+len(r.Manifests))
	files = append(files, r.Records...)
	return append(files, r.Manifests...)
}

// Write stores each non-empty bucket's records and regenerates its manifest.
//
// Records are written one file per id, replacing any previous document of the
// same name. A record that fails to write is reported and left out of the
// manifest; the rest of the bucket still proceeds. Files from earlier runs
// whose campaign moved bucket or changed id are left in place.
func (s *Store) Write(buckets map[types.Status][]types.Campaign, generatedAt time.Time) *WriteResult {
	result := &WriteResult{}
	stamp := FormatTimestamp(generatedAt)

	for status := range buckets {
		if !status.Valid() {
			for _, c := range buckets[status] {
				result.Failures = append(result.Failures, WriteFailure{
					Status: status,
					Path:   c.Filename(),
					Err:    fmt.Errorf("%w: %q", ErrUnknownStatus, status),
				})
			}
		}
	}

	for _, status := range types.Statuses {
		campaigns := buckets[status]
		if len(campaigns) == 0 {
			continue
		}

		dir := s.Dir(status)
		if err := os.MkdirAll(dir, 0755); err != nil {
			for _, c := range campaigns {
				result.Failures = append(result.Failures, WriteFailure{
					Status: status,
					Path:   filepath.Join(dir, c.Filename()),
					Err:    fmt.Errorf("create bucket directory: %w", err),
				})
			}
			s.logger.Error("could not create bucket directory", "path", dir, "error", err)
			continue
		}

		names := make(map[string]struct{}, len(campaigns))
		for i := range campaigns {
			c := &campaigns[i]
			path := filepath.Join(dir, c.Filename())
			if err := writeJSON(path, c); err != nil {
				result.Failures = append(result.Failures, WriteFailure{Status: status, Path: path, Err: err})
				s.logger.Error("could not write campaign",
					"action", "record_failed",
					"path", path,
					"error", err,
				)
				continue
			}
			names[c.Filename()] = struct{}{}
			result.Records = append(result.Records, WrittenFile{
				Status:     status,
				Name:       c.Filename(),
				Path:       path,
				CampaignID: c.ID,
			})
			s.logger.Info("campaign written",
				"action", "record_written",
				"path", path,
			)
		}

		if len(names) == 0 {
			continue
		}

		manifest := types.Manifest{
			Campaigns:   sortedNames(names),
			LastUpdated: stamp,
		}
		path := s.ManifestPath(status)
		if err := writeJSON(path, &manifest); err != nil {
			result.Failures = append(result.Failures, WriteFailure{Status: status, Path: path, Err: err})
			s.logger.Error("could not write manifest",
				"action", "manifest_failed",
				"path", path,
				"error", err,
			)
			continue
		}
		result.Manifests = append(result.Manifests, WrittenFile{
			Status: status,
			Name:   s.manifestName,
			Path:   path,
		})
		s.logger.Info("manifest written",
			"action", "manifest_written",
			"path", path,
			"campaigns", len(manifest.Campaigns),
		)
	}

	return result
}

// FormatTimestamp renders a manifest generation time as UTC ISO-8601 with a Z suffix.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000Z")
}

func sortedNames(set map[string]struct{}) []string {
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func readCampaign(path string) (*types.Campaign, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c types.Campaign
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse campaign: %w", err)
	}
	return &c, nil
}

// EncodeJSON renders v the way stored documents are laid out:
// two-space indentation, unescaped HTML and non-ASCII, trailing newline.
func EncodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeJSON replaces path with the encoding of v via a temporary file and rename.
func writeJSON(path string, v any) error {
	data, err := EncodeJSON(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
