package main

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

// convertWithCatalog runs convert against the shared sheet and returns the catalog path.
func convertWithCatalog(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "catalog.db")
	root := filepath.Join(t.TempDir(), "campaigns")

	if _, _, err := executeCmd(t, "convert",
		"--source", writeSheet(t, sheet),
		"--output", root,
		"--catalog", dbPath,
	); err != nil {
		t.Fatalf("convert error = %v", err)
	}
	return dbPath
}

func TestCatalogList(t *testing.T) {
	dbPath := convertWithCatalog(t)

	stdout, _, err := executeCmd(t, "catalog", "list", "--catalog", dbPath)
	if err != nil {
		t.Fatalf("catalog list error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got:\n%s", stdout)
	}
	if !strings.HasPrefix(lines[0], "ID") {
		t.Errorf("header = %q", lines[0])
	}
	// Ordered by status then id.
	if !strings.HasPrefix(lines[1], "help-raju") || !strings.HasPrefix(lines[2], "support-mina") {
		t.Errorf("rows out of order:\n%s", stdout)
	}
}

func TestCatalogList_StatusFilterJSON(t *testing.T) {
	dbPath := convertWithCatalog(t)

	stdout, _, err := executeCmd(t, "catalog", "list", "--catalog", dbPath, "--status", "ended", "--json")
	if err != nil {
		t.Fatalf("catalog list error = %v", err)
	}

	var got struct {
		Campaigns []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
			File   string `json:"file"`
		} `json:"campaigns"`
		Total int `json:"total"`
	}
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, stdout)
	}
	if got.Total != 1 || got.Campaigns[0].ID != "support-mina" || got.Campaigns[0].File != "ended/support-mina.json" {
		t.Errorf("list = %+v", got)
	}
}

func TestCatalogList_UnknownStatus(t *testing.T) {
	dbPath := convertWithCatalog(t)

	_, _, err := executeCmd(t, "catalog", "list", "--catalog", dbPath, "--status", "paused")
	if err == nil || !strings.Contains(err.Error(), "unknown status") {
		t.Errorf("error = %v, want unknown status", err)
	}
}

func TestCatalogList_Empty(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "catalog.db")

	stdout, _, err := executeCmd(t, "catalog", "list", "--catalog", dbPath)
	if err != nil {
		t.Fatalf("catalog list error = %v", err)
	}
	if !strings.Contains(stdout, "No campaigns found.") {
		t.Errorf("output = %q", stdout)
	}
}

func TestCatalogShow(t *testing.T) {
	dbPath := convertWithCatalog(t)

	stdout, _, err := executeCmd(t, "catalog", "show", "help-raju", "--catalog", dbPath)
	if err != nil {
		t.Fatalf("catalog show error = %v", err)
	}
	for _, want := range []string{
		"Campaign:      help-raju",
		"Status:        active",
		"Raised:        50000 / 100000 INR",
		"Tags:          heart, medical, surgery",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
}

func TestCatalogShow_NotFound(t *testing.T) {
	dbPath := convertWithCatalog(t)

	_, _, err := executeCmd(t, "catalog", "show", "nobody", "--catalog", dbPath)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v, want not found", err)
	}
}

func TestCatalog_NotConfigured(t *testing.T) {
	_, _, err := executeCmd(t, "catalog", "list")
	if err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Errorf("error = %v, want not configured", err)
	}
}
