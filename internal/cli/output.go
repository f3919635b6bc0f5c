package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/matzehuels/heapscope/pkg/heap"
	"github.com/matzehuels/heapscope/pkg/pipeline"
)

// nopCloser wraps an io.Writer with a no-op Close method.
// It is used to make os.Stdout compatible with io.WriteCloser.
type nopCloser struct{ io.Writer }

// Close implements io.Closer with a no-op.
func (nopCloser) Close() error { return nil }

// openOutput returns a WriteCloser for the given path.
// If path is empty, it returns os.Stdout wrapped in nopCloser.
// Otherwise, it creates the file at path, overwriting if it exists.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

// =============================================================================
// Type Statistics
// =============================================================================

// typeStatsRecord is the JSON/CSV shape of one type aggregate.
type typeStatsRecord struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Count       int    `json:"count"`
	Shallow     uint64 `json:"shallow"`
	Retained    uint64 `json:"retained"`
}

// writeTypeStats writes type aggregates to w in the requested output format.
func writeTypeStats(w io.Writer, stats []heap.TypeStats, output string) error {
	switch output {
	case pipeline.OutputJSON:
		records := make([]typeStatsRecord, len(stats))
		for i, ts := range stats {
			records[i] = typeStatsRecord{
				Name:        ts.Name,
				DisplayName: ts.DisplayName,
				Count:       ts.Count,
				Shallow:     ts.Shallow,
				Retained:    ts.Retained,
			}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)

	case pipeline.OutputCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"name", "display_name", "count", "shallow", "retained"}); err != nil {
			return err
		}
		for _, ts := range stats {
			row := []string{
				ts.Name,
				ts.DisplayName,
				strconv.Itoa(ts.Count),
				strconv.FormatUint(ts.Shallow, 10),
				strconv.FormatUint(ts.Retained, 10),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()

	default:
		t := newTable("Type", "Count", "Shallow", "Retained")
		for _, ts := range stats {
			t.Row(ts.DisplayName, strconv.Itoa(ts.Count), humanBytes(ts.Shallow), humanBytes(ts.Retained))
		}
		_, err := fmt.Fprintln(w, t.Render())
		return err
	}
}

// =============================================================================
// Comparison
// =============================================================================

// typeDeltaRecord is the JSON/CSV shape of one comparison delta.
type typeDeltaRecord struct {
	Name          string `json:"name"`
	DisplayName   string `json:"display_name"`
	Status        string `json:"status"`
	BaselineCount int    `json:"baseline_count"`
	CurrentCount  int    `json:"current_count"`
	CountDelta    int    `json:"count_delta"`
	ShallowDelta  int64  `json:"shallow_delta"`
	RetainedDelta int64  `json:"retained_delta"`
}

// comparisonRecord is the JSON shape of a full comparison.
type comparisonRecord struct {
	ObjectCountDelta int               `json:"object_count_delta"`
	ShallowDelta     int64             `json:"shallow_delta"`
	RetainedDelta    int64             `json:"retained_delta"`
	Types            []typeDeltaRecord `json:"types"`
	NewTypes         []string          `json:"new_types"`
	RemovedTypes     []string          `json:"removed_types"`
}

func deltaRecords(result *heap.ComparisonResult) []typeDeltaRecord {
	records := make([]typeDeltaRecord, len(result.Types))
	for i, d := range result.Types {
		records[i] = typeDeltaRecord{
			Name:          d.Name,
			DisplayName:   d.DisplayName,
			Status:        string(d.Status),
			BaselineCount: d.BaselineCount,
			CurrentCount:  d.CurrentCount,
			CountDelta:    d.CountDelta,
			ShallowDelta:  d.ShallowDelta,
			RetainedDelta: d.RetainedDelta,
		}
	}
	return records
}

// writeComparison writes a snapshot comparison to w in the requested
// output format. Table output hides Unchanged rows; JSON and CSV carry
// every delta.
func writeComparison(w io.Writer, result *heap.ComparisonResult, output string) error {
	switch output {
	case pipeline.OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(comparisonRecord{
			ObjectCountDelta: result.ObjectCountDelta,
			ShallowDelta:     result.ShallowDelta,
			RetainedDelta:    result.RetainedDelta,
			Types:            deltaRecords(result),
			NewTypes:         result.NewTypes,
			RemovedTypes:     result.RemovedTypes,
		})

	case pipeline.OutputCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"name", "status", "baseline_count", "current_count", "count_delta", "shallow_delta", "retained_delta"}); err != nil {
			return err
		}
		for _, d := range result.Types {
			row := []string{
				d.Name,
				string(d.Status),
				strconv.Itoa(d.BaselineCount),
				strconv.Itoa(d.CurrentCount),
				strconv.Itoa(d.CountDelta),
				strconv.FormatInt(d.ShallowDelta, 10),
				strconv.FormatInt(d.RetainedDelta, 10),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()

	default:
		t := newTable("Type", "Status", "Count", "Δ Count", "Δ Retained")
		for _, d := range result.Types {
			if d.Status == heap.StatusUnchanged {
				continue
			}
			t.Row(
				d.DisplayName,
				string(d.Status),
				fmt.Sprintf("%d → %d", d.BaselineCount, d.CurrentCount),
				signedCount(d.CountDelta),
				signedBytes(d.RetainedDelta),
			)
		}
		_, err := fmt.Fprintln(w, t.Render())
		return err
	}
}

// instanceRecord is the JSON shape of one instance in a side-by-side
// comparison.
type instanceRecord struct {
	Node     int    `json:"node"`
	Address  string `json:"address"`
	Shallow  uint64 `json:"shallow"`
	Retained uint64 `json:"retained"`
}

func instanceRecords(details []heap.InstanceDetail) []instanceRecord {
	records := make([]instanceRecord, len(details))
	for i, d := range details {
		records[i] = instanceRecord{
			Node:     int(d.Node),
			Address:  fmt.Sprintf("0x%x", d.Address),
			Shallow:  d.Size,
			Retained: d.Retained,
		}
	}
	return records
}

// writeInstanceDetails writes both sides of an instance comparison as
// a single JSON document.
func writeInstanceDetails(w io.Writer, base, cur []heap.InstanceDetail) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Baseline []instanceRecord `json:"baseline"`
		Current  []instanceRecord `json:"current"`
	}{
		Baseline: instanceRecords(base),
		Current:  instanceRecords(cur),
	})
}

// =============================================================================
// Reference Paths
// =============================================================================

// writePaths writes rendered reference paths to w.
func writePaths(w io.Writer, paths []string, output string) error {
	if output == pipeline.OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(paths)
	}
	for _, p := range paths {
		if _, err := fmt.Fprintln(w, p); err != nil {
			return err
		}
	}
	return nil
}
