package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sheet = `title,targetAmount,raisedAmount,status,condition,date,event
Help Raju,100000,50000,,Heart Surgery,,
Help Raju,,,,,2026-01-05,Surgery scheduled
Support Mina,20000,20000,Completed,,,
`

// executeCmd runs the root command with captured output.
// Package-level flag variables are reset first since cobra parses into them.
func executeCmd(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	configPath = ""
	convertSource = ""
	convertOutput = ""
	convertCatalog = ""
	convertDryRun = false
	convertJSONOutput = false
	catalogPathOverride = ""
	catalogJSONOutput = false
	catalogStatusFilter = ""

	// Keep a stray config file in the working directory out of the test.
	t.Setenv("CAMPAIGNSYNC_CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))

	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)

	rootCmd.SetOut(outBuf)
	rootCmd.SetErr(errBuf)
	rootCmd.SetArgs(args)

	err = rootCmd.Execute()

	rootCmd.SetOut(nil)
	rootCmd.SetErr(nil)
	rootCmd.SetArgs(nil)

	return outBuf.String(), errBuf.String(), err
}

func writeSheet(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "master_campaign_details.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write sheet: %v", err)
	}
	return path
}

func TestConvert_WritesBuckets(t *testing.T) {
	source := writeSheet(t, sheet)
	root := filepath.Join(t.TempDir(), "campaigns")

	stdout, _, err := executeCmd(t, "convert", "--source", source, "--output", root)
	if err != nil {
		t.Fatalf("convert error = %v", err)
	}

	for _, want := range []string{
		"Total campaigns: 2",
		"  Active: 1",
		"  Ended: 1",
		"  Archived: 0",
		"Created: " + filepath.Join(root, "active", "help-raju.json"),
		"Created manifest: " + filepath.Join(root, "ended", "manifest.json"),
		"JSON files created in: " + root + "/",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}

	data, err := os.ReadFile(filepath.Join(root, "active", "help-raju.json"))
	if err != nil {
		t.Fatalf("read record: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("record is not JSON: %v", err)
	}
	if doc["status"] != "active" || doc["currency"] != "INR" {
		t.Errorf("record = %v", doc)
	}
}

func TestConvert_MissingSource(t *testing.T) {
	root := filepath.Join(t.TempDir(), "campaigns")

	_, _, err := executeCmd(t, "convert", "--source", filepath.Join(t.TempDir(), "nope.csv"), "--output", root)
	if err == nil {
		t.Fatal("convert should fail when the sheet is missing")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v, want not found diagnostic", err)
	}
	if _, statErr := os.Stat(root); !os.IsNotExist(statErr) {
		t.Errorf("output root should not be created, stat err = %v", statErr)
	}
}

func TestConvert_MissingSourceLeavesNoCatalog(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index", "catalog.db")

	_, _, err := executeCmd(t, "convert",
		"--source", filepath.Join(t.TempDir(), "nope.csv"),
		"--output", filepath.Join(t.TempDir(), "campaigns"),
		"--catalog", dbPath,
	)
	if err == nil {
		t.Fatal("convert should fail when the sheet is missing")
	}
	if _, statErr := os.Stat(filepath.Dir(dbPath)); !os.IsNotExist(statErr) {
		t.Errorf("catalog should not be created, stat err = %v", statErr)
	}
}

func TestConvert_NoCampaigns(t *testing.T) {
	source := writeSheet(t, "title,targetAmount\n")
	root := filepath.Join(t.TempDir(), "campaigns")

	stdout, _, err := executeCmd(t, "convert", "--source", source, "--output", root)
	if err != nil {
		t.Fatalf("convert error = %v", err)
	}
	if !strings.Contains(stdout, "No campaigns found to convert.") {
		t.Errorf("output = %q", stdout)
	}
}

func TestConvert_DryRun(t *testing.T) {
	source := writeSheet(t, sheet)
	root := filepath.Join(t.TempDir(), "campaigns")

	stdout, _, err := executeCmd(t, "convert", "--source", source, "--output", root, "--dry-run")
	if err != nil {
		t.Fatalf("convert error = %v", err)
	}
	if !strings.Contains(stdout, "Dry run: no files written.") {
		t.Errorf("output = %q", stdout)
	}
	if _, statErr := os.Stat(root); !os.IsNotExist(statErr) {
		t.Errorf("dry run should not create output, stat err = %v", statErr)
	}
}

func TestConvert_JSONSummary(t *testing.T) {
	source := writeSheet(t, sheet+"Broken,abc,0,,,,\n")
	root := filepath.Join(t.TempDir(), "campaigns")

	stdout, _, err := executeCmd(t, "convert", "--source", source, "--output", root, "--json")
	if err != nil {
		t.Fatalf("convert error = %v", err)
	}

	var got struct {
		RunID    string         `json:"run_id"`
		Total    int            `json:"total"`
		Counts   map[string]int `json:"counts"`
		Rejected []struct {
			Title string `json:"title"`
		} `json:"rejected"`
		Files []string `json:"files"`
	}
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("summary is not JSON: %v\n%s", err, stdout)
	}
	if got.RunID == "" || got.Total != 2 {
		t.Errorf("summary = %+v", got)
	}
	if got.Counts["active"] != 1 || got.Counts["ended"] != 1 || got.Counts["archived"] != 0 {
		t.Errorf("counts = %v", got.Counts)
	}
	if len(got.Rejected) != 1 || got.Rejected[0].Title != "Broken" {
		t.Errorf("rejected = %+v", got.Rejected)
	}
	if len(got.Files) != 4 {
		t.Errorf("files = %v, want 2 records and 2 manifests", got.Files)
	}
}

func TestConvert_ConfigFile(t *testing.T) {
	source := writeSheet(t, sheet)
	root := filepath.Join(t.TempDir(), "campaigns")
	cfgPath := filepath.Join(t.TempDir(), "campaignsync.yaml")
	cfg := "source:\n  path: " + source + "\noutput:\n  root: " + root + "\ndefaults:\n  currency: USD\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, err := executeCmd(t, "--config", cfgPath, "convert"); err != nil {
		t.Fatalf("convert error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "ended", "support-mina.json"))
	if err != nil {
		t.Fatalf("read record: %v", err)
	}
	if !strings.Contains(string(data), `"currency": "USD"`) {
		t.Errorf("record should use configured currency:\n%s", data)
	}
}

func TestVersion(t *testing.T) {
	stdout, _, err := executeCmd(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if strings.TrimSpace(stdout) != "campaignsync "+Version {
		t.Errorf("version output = %q", stdout)
	}
}
