package heap

import "sort"

// TypeStats aggregates the live instances of one type handle.
//
// Aggregation keys on the type handle, so two handles sharing a name
// produce two records; the comparator merges by name when joining
// snapshots. Placeholder nodes (shallow size 0) represent synthetic
// roots, not user data, and are excluded.
type TypeStats struct {
	Type        TypeID
	Name        string // raw runtime name, the aggregation identity
	DisplayName string // formatted per the snapshot's name formatter
	Count       int
	Shallow     uint64 // sum of shallow sizes
	Retained    uint64 // sum of retained sizes
	Instances   []NodeID
}

// TypeStatistics returns per-type aggregates for every type with at
// least one reachable instance of non-zero shallow size, sorted by
// retained size descending with ties broken by raw name ascending.
// Instance lists are in ascending node-handle order.
//
// limit caps the number of records returned; limit <= 0 returns all.
// The aggregation (and the type-name formatter it feeds) is computed
// once on first call and cached on the snapshot.
func (s *Snapshot) TypeStatistics(limit int) []TypeStats {
	s.typesOnce.Do(s.buildTypeStats)
	stats := s.typeStats
	if limit > 0 && limit < len(stats) {
		stats = stats[:limit]
	}
	out := make([]TypeStats, len(stats))
	copy(out, stats)
	return out
}

// FormatTypeName returns the display form of a raw type name using the
// snapshot's cached formatter. Display names are for presentation only
// and must never be used as aggregation keys.
func (s *Snapshot) FormatTypeName(name string) string {
	s.typesOnce.Do(s.buildTypeStats)
	return s.names.Display(name)
}

// DisplayName returns the display form of node n's type name.
func (s *Snapshot) DisplayName(n NodeID) string {
	return s.FormatTypeName(s.graph.TypeName(s.graph.TypeOf(n)))
}

func (s *Snapshot) buildTypeStats() {
	g := s.graph
	t := g.NumTypes()

	counts := make([]int, t)
	shallow := make([]uint64, t)
	retained := make([]uint64, t)
	instances := make([][]NodeID, t)

	// Ascending handle order keeps instance lists stable.
	for v := NodeID(0); int(v) < g.NumNodes(); v++ {
		if !s.Reachable(v) || g.Size(v) == 0 {
			continue
		}
		ty := g.TypeOf(v)
		counts[ty]++
		shallow[ty] += g.Size(v)
		retained[ty] += s.retained[v]
		instances[ty] = append(instances[ty], v)
	}

	s.names = newNameFormatter(g.typeNames)

	stats := make([]TypeStats, 0, t)
	for ty := TypeID(0); int(ty) < t; ty++ {
		if counts[ty] == 0 {
			continue
		}
		name := g.TypeName(ty)
		stats = append(stats, TypeStats{
			Type:        ty,
			Name:        name,
			DisplayName: s.names.Display(name),
			Count:       counts[ty],
			Shallow:     shallow[ty],
			Retained:    retained[ty],
			Instances:   instances[ty],
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Retained != stats[j].Retained {
			return stats[i].Retained > stats[j].Retained
		}
		return stats[i].Name < stats[j].Name
	})

	s.typeStats = stats
}
