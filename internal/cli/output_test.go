package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/matzehuels/heapscope/pkg/heap"
	"github.com/matzehuels/heapscope/pkg/pipeline"
)

func sampleTypeStats() []heap.TypeStats {
	return []heap.TypeStats{
		{Name: "MyApp.Cache", DisplayName: "Cache", Count: 1, Shallow: 64, Retained: 2048},
		{Name: "System.String", DisplayName: "String", Count: 10, Shallow: 320, Retained: 320},
	}
}

func TestWriteTypeStatsJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := writeTypeStats(&buf, sampleTypeStats(), pipeline.OutputJSON); err != nil {
		t.Fatalf("writeTypeStats() error: %v", err)
	}

	var records []typeStatsRecord
	if err := json.Unmarshal(buf.Bytes(), &records); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Name != "MyApp.Cache" || records[0].Retained != 2048 {
		t.Errorf("records[0] = %+v, want MyApp.Cache with retained 2048", records[0])
	}
}

func TestWriteTypeStatsCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := writeTypeStats(&buf, sampleTypeStats(), pipeline.OutputCSV); err != nil {
		t.Fatalf("writeTypeStats() error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header plus 2 rows", len(lines))
	}
	if lines[0] != "name,display_name,count,shallow,retained" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "MyApp.Cache,") {
		t.Errorf("first row = %q, want MyApp.Cache first", lines[1])
	}
}

func TestWriteTypeStatsTable(t *testing.T) {
	var buf bytes.Buffer
	if err := writeTypeStats(&buf, sampleTypeStats(), pipeline.OutputTable); err != nil {
		t.Fatalf("writeTypeStats() error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Cache") || !strings.Contains(out, "2.0 KiB") {
		t.Errorf("table output missing expected cells:\n%s", out)
	}
}

func TestWriteComparisonTableHidesUnchanged(t *testing.T) {
	result := &heap.ComparisonResult{
		Types: []heap.TypeDelta{
			{Name: "MyApp.Cache", DisplayName: "Cache", Status: heap.StatusChanged, BaselineCount: 1, CurrentCount: 3, CountDelta: 2, RetainedDelta: 4096},
			{Name: "System.String", DisplayName: "String", Status: heap.StatusUnchanged},
		},
	}

	var buf bytes.Buffer
	if err := writeComparison(&buf, result, pipeline.OutputTable); err != nil {
		t.Fatalf("writeComparison() error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Cache") {
		t.Errorf("table should show the changed type:\n%s", out)
	}
	if strings.Contains(out, "String") {
		t.Errorf("table should hide unchanged types:\n%s", out)
	}
}

func TestFilterTypeStats(t *testing.T) {
	stats := sampleTypeStats()

	got := filterTypeStats(stats, "cache")
	if len(got) != 1 || got[0].Name != "MyApp.Cache" {
		t.Errorf("filterTypeStats(cache) = %v, want only MyApp.Cache", got)
	}

	if got := filterTypeStats(stats, "nomatch"); len(got) != 0 {
		t.Errorf("filterTypeStats(nomatch) = %v, want empty", got)
	}
}

func TestHumanBytes(t *testing.T) {
	tests := []struct {
		n    uint64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{3 * 1024 * 1024, "3.0 MiB"},
		{5 * 1024 * 1024 * 1024, "5.0 GiB"},
	}
	for _, tt := range tests {
		if got := humanBytes(tt.n); got != tt.want {
			t.Errorf("humanBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestSignedBytes(t *testing.T) {
	if got := signedBytes(2048); got != "+2.0 KiB" {
		t.Errorf("signedBytes(2048) = %q, want +2.0 KiB", got)
	}
	if got := signedBytes(-512); got != "-512 B" {
		t.Errorf("signedBytes(-512) = %q, want -512 B", got)
	}
}
