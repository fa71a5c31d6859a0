package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ehr/registry/internal/config"
	"github.com/ehr/registry/internal/domain/patient"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSampleCmd_Stdout(t *testing.T) {
	out, err := execute(t, "sample", "--out", "-")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var records []map[string]interface{}
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("sample is not a JSON array: %v\n%s", err, out)
	}
	if len(records) != 1 || records[0]["mbi"] != "3AT9VX8RW56" {
		t.Errorf("unexpected sample: %v", records)
	}
}

func TestSampleCmd_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.yaml")
	if _, err := execute(t, "sample", "--format", "yaml", "--out", path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "first_name: Lydia") {
		t.Errorf("unexpected yaml sample:\n%s", data)
	}
}

func TestSampleCmd_UnknownFormat(t *testing.T) {
	if _, err := execute(t, "sample", "--format", "csv", "--out", "-"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestCheckCmd(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	payload := `[{"mbi":"A1","department":"Cardiology"},{"mbi":"A2","department":"Dermatology"}]`
	if err := os.WriteFile(good, []byte(payload), 0o600); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "check", good)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "2 record(s) would be staged") {
		t.Errorf("unexpected output: %s", out)
	}
	if !strings.Contains(out, "1 record(s) name a department") {
		t.Errorf("expected unknown department note, got: %s", out)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"mbi":"A1"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "check", bad); err == nil {
		t.Fatal("expected parse error for non-array payload")
	}
}

func TestBuildSeedSource(t *testing.T) {
	ctx := context.Background()

	src, cleanup, pool, err := buildSeedSource(ctx, &config.Config{SeedSource: config.SeedNone})
	if err != nil {
		t.Fatalf("none: %v", err)
	}
	cleanup()
	if pool != nil {
		t.Error("none: expected no pool")
	}
	if records, _ := src.Load(ctx); len(records) != 0 {
		t.Errorf("none: expected no records, got %d", len(records))
	}

	src, _, _, err = buildSeedSource(ctx, &config.Config{SeedSource: config.SeedFile, SeedFile: "x.json"})
	if err != nil {
		t.Fatalf("file: %v", err)
	}
	if fs, ok := src.(patient.FileSeed); !ok || fs.Path != "x.json" {
		t.Errorf("file: unexpected source %#v", src)
	}

	if _, _, _, err := buildSeedSource(ctx, &config.Config{SeedSource: "redis"}); err == nil {
		t.Error("expected error for unknown source")
	}
}

func TestSeedCmd_WritesSQLite(t *testing.T) {
	dir := t.TempDir()
	payload := filepath.Join(dir, "seed.json")
	if err := os.WriteFile(payload, []byte(`[{"mbi":"S1","first_name":"Ann","heart_rate":70}]`), 0o600); err != nil {
		t.Fatal(err)
	}
	dbPath := filepath.Join(dir, "seed.db")
	t.Setenv("SQLITE_PATH", dbPath)

	out, err := execute(t, "seed", "--from", payload, "--to", "sqlite")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "wrote 1 record(s)") {
		t.Errorf("unexpected output: %s", out)
	}

	s, err := patient.OpenSQLiteSeed(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	records, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 1 || records[0].FirstName != "Ann" {
		t.Errorf("unexpected records: %+v", records)
	}
}
