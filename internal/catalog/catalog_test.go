package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/sevabrata/campaignsync/internal/types"
)

func setupTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "index", "catalog.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func sampleCampaign(id string, status types.Status) types.Campaign {
	return types.Campaign{
		ID:           id,
		Title:        "Campaign " + id,
		TargetAmount: 100000,
		RaisedAmount: 25000,
		Currency:     "INR",
		Status:       status,
		Urgency:      types.UrgencyHigh,
		Category:     "medical",
		Tags:         []string{"heart", "medical"},
		CreatedDate:  "2026-01-02",
		LastUpdated:  "2026-01-02",
	}
}

func TestOpen_RunsMigrations(t *testing.T) {
	c := setupTestCatalog(t)

	n, err := c.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Count() = %d, want 0", n)
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	first, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := first.Upsert(context.Background(), "run-1", []Entry{
		EntryFromCampaign(sampleCampaign("a", types.StatusActive), "active/a.json"),
	}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	first.Close()

	second, err := Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer second.Close()

	n, err := second.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Count() = %d, want 1 after reopen", n)
	}
}

func TestCatalog_UpsertAndGet(t *testing.T) {
	c := setupTestCatalog(t)
	ctx := context.Background()

	entry := EntryFromCampaign(sampleCampaign("help-raju", types.StatusActive), "active/help-raju.json")
	if err := c.Upsert(ctx, "run-1", []Entry{entry}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := c.Get(ctx, "help-raju")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	want := entry
	want.LastRunID = "run-1"
	if diff := cmp.Diff(want, *got, cmpopts.IgnoreFields(Entry{}, "SyncedAt")); diff != "" {
		t.Errorf("entry mismatch (-want +got):\n%s", diff)
	}
	if got.SyncedAt.IsZero() {
		t.Error("SyncedAt should be set")
	}
}

func TestCatalog_UpsertReplaces(t *testing.T) {
	c := setupTestCatalog(t)
	ctx := context.Background()

	camp := sampleCampaign("a", types.StatusActive)
	if err := c.Upsert(ctx, "run-1", []Entry{EntryFromCampaign(camp, "active/a.json")}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	camp.Status = types.StatusEnded
	camp.RaisedAmount = 100000
	if err := c.Upsert(ctx, "run-2", []Entry{EntryFromCampaign(camp, "ended/a.json")}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := c.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != types.StatusEnded || got.File != "ended/a.json" || got.LastRunID != "run-2" {
		t.Errorf("entry = %+v, want replaced by run-2", got)
	}
	n, _ := c.Count(ctx)
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestCatalog_List(t *testing.T) {
	c := setupTestCatalog(t)
	ctx := context.Background()

	entries := []Entry{
		EntryFromCampaign(sampleCampaign("b", types.StatusActive), "active/b.json"),
		EntryFromCampaign(sampleCampaign("a", types.StatusActive), "active/a.json"),
		EntryFromCampaign(sampleCampaign("c", types.StatusEnded), "ended/c.json"),
	}
	if err := c.Upsert(ctx, "run-1", entries); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	all, err := c.List(ctx, "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var ids []string
	for _, e := range all {
		ids = append(ids, e.ID)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, ids); diff != "" {
		t.Errorf("List ids mismatch (-want +got):\n%s", diff)
	}

	ended, err := c.List(ctx, types.StatusEnded)
	if err != nil {
		t.Fatalf("List(ended) error = %v", err)
	}
	if len(ended) != 1 || ended[0].ID != "c" {
		t.Errorf("List(ended) = %+v, want only c", ended)
	}
}

func TestCatalog_GetNotFound(t *testing.T) {
	c := setupTestCatalog(t)

	_, err := c.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestCatalog_UpsertEmpty(t *testing.T) {
	c := setupTestCatalog(t)
	if err := c.Upsert(context.Background(), "run-1", nil); err != nil {
		t.Errorf("Upsert(nil) error = %v", err)
	}
}

func TestCatalog_RejectsUnknownStatus(t *testing.T) {
	c := setupTestCatalog(t)

	err := c.Upsert(context.Background(), "run-1", []Entry{
		EntryFromCampaign(sampleCampaign("a", "paused"), "paused/a.json"),
	})
	if err == nil {
		t.Error("Upsert() should reject a status outside the three buckets")
	}
	n, _ := c.Count(context.Background())
	if n != 0 {
		t.Errorf("Count() = %d, want 0 after rolled back upsert", n)
	}
}

func TestEntryFromCampaign_NilTags(t *testing.T) {
	camp := sampleCampaign("a", types.StatusActive)
	camp.Tags = nil

	e := EntryFromCampaign(camp, "active/a.json")
	if e.Tags == nil {
		t.Error("Tags should be an empty slice, not nil")
	}
}
