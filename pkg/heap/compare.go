package heap

import "sort"

// DeltaStatus classifies one type's change between two snapshots.
type DeltaStatus string

const (
	StatusUnchanged DeltaStatus = "Unchanged"
	StatusChanged   DeltaStatus = "Changed"
	StatusAdded     DeltaStatus = "Added"
	StatusRemoved   DeltaStatus = "Removed"
)

// TypeDelta is the per-type join record of a comparison. Counts and
// sizes are the summed figures of every type handle sharing the name
// within its snapshot.
type TypeDelta struct {
	Name        string
	DisplayName string

	BaselineCount    int
	CurrentCount     int
	BaselineShallow  uint64
	CurrentShallow   uint64
	BaselineRetained uint64
	CurrentRetained  uint64

	CountDelta    int
	ShallowDelta  int64
	RetainedDelta int64

	Status DeltaStatus
}

// ComparisonResult is the full outcome of comparing two snapshots:
// aggregate deltas, the per-type join sorted by retained delta
// descending (ties by name ascending), and the name lists of types
// present on only one side.
type ComparisonResult struct {
	ObjectCountDelta int
	ShallowDelta     int64
	RetainedDelta    int64

	Types        []TypeDelta
	NewTypes     []string
	RemovedTypes []string
}

// InstanceDetail describes one instance of a type for side-by-side
// inspection.
type InstanceDetail struct {
	Node     NodeID
	Address  uint64
	Size     uint64
	Retained uint64
}

// typeTotals is one side of the name join: the summed aggregation of
// every handle sharing a type name.
type typeTotals struct {
	count    int
	shallow  uint64
	retained uint64
}

// Compare joins the type aggregations of baseline and current by raw
// type name (outer union) and computes per-type and aggregate deltas.
// Any two snapshots are comparable; display names in the result come
// from the current snapshot's formatter so added and surviving types
// render consistently.
func Compare(baseline, current *Snapshot) *ComparisonResult {
	base := sumByName(baseline.TypeStatistics(0))
	cur := sumByName(current.TypeStatistics(0))

	names := make([]string, 0, len(base)+len(cur))
	for name := range base {
		names = append(names, name)
	}
	for name := range cur {
		if _, ok := base[name]; !ok {
			names = append(names, name)
		}
	}

	result := &ComparisonResult{
		Types: make([]TypeDelta, 0, len(names)),
	}
	for _, name := range names {
		b := base[name]
		c := cur[name]
		d := TypeDelta{
			Name:             name,
			DisplayName:      current.FormatTypeName(name),
			BaselineCount:    b.count,
			CurrentCount:     c.count,
			BaselineShallow:  b.shallow,
			CurrentShallow:   c.shallow,
			BaselineRetained: b.retained,
			CurrentRetained:  c.retained,
			CountDelta:       c.count - b.count,
			ShallowDelta:     int64(c.shallow) - int64(b.shallow),
			RetainedDelta:    int64(c.retained) - int64(b.retained),
		}
		switch {
		case b.count == 0 && c.count > 0:
			d.Status = StatusAdded
			result.NewTypes = append(result.NewTypes, name)
		case b.count > 0 && c.count == 0:
			d.Status = StatusRemoved
			result.RemovedTypes = append(result.RemovedTypes, name)
		case d.CountDelta != 0 || d.RetainedDelta != 0:
			d.Status = StatusChanged
		default:
			d.Status = StatusUnchanged
		}
		result.Types = append(result.Types, d)
	}

	sort.Slice(result.Types, func(i, j int) bool {
		if result.Types[i].RetainedDelta != result.Types[j].RetainedDelta {
			return result.Types[i].RetainedDelta > result.Types[j].RetainedDelta
		}
		return result.Types[i].Name < result.Types[j].Name
	})
	sort.Strings(result.NewTypes)
	sort.Strings(result.RemovedTypes)

	bStats := baseline.HeapStatistics()
	cStats := current.HeapStatistics()
	result.ObjectCountDelta = cStats.TotalObjects - bStats.TotalObjects
	result.ShallowDelta = int64(cStats.TotalShallow) - int64(bStats.TotalShallow)
	result.RetainedDelta = int64(cStats.TotalRetained) - int64(bStats.TotalRetained)

	return result
}

// CompareInstances returns up to max instance details per side for the
// named type, in ascending node-handle order. Handles sharing the name
// contribute their instances merged in handle order. max <= 0 returns
// all instances.
func CompareInstances(baseline, current *Snapshot, typeName string, max int) (base, cur []InstanceDetail) {
	return instancesByName(baseline, typeName, max), instancesByName(current, typeName, max)
}

func sumByName(stats []TypeStats) map[string]typeTotals {
	totals := make(map[string]typeTotals, len(stats))
	for _, st := range stats {
		t := totals[st.Name]
		t.count += st.Count
		t.shallow += st.Shallow
		t.retained += st.Retained
		totals[st.Name] = t
	}
	return totals
}

func instancesByName(s *Snapshot, typeName string, max int) []InstanceDetail {
	var nodes []NodeID
	for _, st := range s.TypeStatistics(0) {
		if st.Name == typeName {
			nodes = append(nodes, st.Instances...)
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
	if max > 0 && max < len(nodes) {
		nodes = nodes[:max]
	}

	details := make([]InstanceDetail, len(nodes))
	for i, n := range nodes {
		details[i] = InstanceDetail{
			Node:     n,
			Address:  s.graph.Address(n),
			Size:     s.graph.Size(n),
			Retained: s.retained[n],
		}
	}
	return details
}
