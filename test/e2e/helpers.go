//go:build e2e

package e2e

import (
	"database/sql"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// workspace is an isolated directory holding a sheet, the bucket root and the catalog.
type workspace struct {
	dir     string
	source  string
	root    string
	catalog string
}

func newWorkspace(t *testing.T, sheet string) *workspace {
	t.Helper()
	if campaignsyncBin == "" {
		t.Skip("campaignsync binary not available (set CAMPAIGNSYNC_BIN or add to PATH)")
	}

	dir := t.TempDir()
	w := &workspace{
		dir:     dir,
		source:  filepath.Join(dir, "master_campaign_details.csv"),
		root:    filepath.Join(dir, "campaigns"),
		catalog: filepath.Join(dir, "catalog.db"),
	}
	w.writeSheet(t, sheet)
	return w
}

func (w *workspace) writeSheet(t *testing.T, sheet string) {
	t.Helper()
	if err := os.WriteFile(w.source, []byte(sheet), 0644); err != nil {
		t.Fatalf("write sheet: %v", err)
	}
}

// exec runs the binary inside the workspace. Configuration comes only from env.
func (w *workspace) exec(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(campaignsyncBin, args...)
	cmd.Dir = w.dir
	cmd.Env = append(os.Environ(),
		"CAMPAIGNSYNC_CONFIG_PATH="+filepath.Join(w.dir, "nonexistent.yaml"),
		"CAMPAIGNSYNC_SOURCE="+w.source,
		"CAMPAIGNSYNC_OUTPUT_ROOT="+w.root,
		"CAMPAIGNSYNC_CATALOG_PATH="+w.catalog,
		"CAMPAIGNSYNC_PUBLISH_BUCKET=",
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func (w *workspace) convert(t *testing.T, extra ...string) string {
	t.Helper()
	out, err := w.exec(t, append([]string{"convert"}, extra...)...)
	if err != nil {
		t.Fatalf("campaignsync convert: %v\noutput: %s", err, out)
	}
	return out
}

func (w *workspace) readFile(t *testing.T, rel string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(w.root, rel))
	if err != nil {
		t.Fatalf("read %s: %v", rel, err)
	}
	return data
}

func (w *workspace) readRecord(t *testing.T, rel string) map[string]any {
	t.Helper()
	var doc map[string]any
	if err := json.Unmarshal(w.readFile(t, rel), &doc); err != nil {
		t.Fatalf("decode %s: %v", rel, err)
	}
	return doc
}

func (w *workspace) catalogDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", w.catalog)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
