package extract

import (
	"sort"

	"github.com/mkessler/lohnjournal-tracker/internal/entity"
	"github.com/mkessler/lohnjournal-tracker/internal/layout"
)

// groupRows clusters a page's fragments into logical employee rows.
//
// Fragments whose Y0 lies within the layout's row tolerance of a cluster's
// anchor (its topmost fragment) share that cluster. Clusters come back in
// reading order, each sorted left to right, and clusters with no fragment
// assignable to the mandatory identifier band are dropped as structural
// noise (section headers, subtotal lines).
func groupRows(fragments []entity.Fragment, table *layout.Table) [][]entity.Fragment {
	if len(fragments) == 0 {
		return nil
	}

	sorted := make([]entity.Fragment, len(fragments))
	copy(sorted, fragments)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y0 != sorted[j].Y0 {
			return sorted[i].Y0 < sorted[j].Y0
		}
		return sorted[i].X0 < sorted[j].X0
	})

	tolerance := table.RowTolerance()
	var clusters [][]entity.Fragment
	var current []entity.Fragment
	anchor := sorted[0].Y0

	for _, f := range sorted {
		if current != nil && f.Y0-anchor > tolerance {
			clusters = append(clusters, current)
			current = nil
		}
		if current == nil {
			anchor = f.Y0
		}
		current = append(current, f)
	}
	clusters = append(clusters, current)

	rows := make([][]entity.Fragment, 0, len(clusters))
	for _, cluster := range clusters {
		if !hasIdentifier(cluster, table) {
			continue
		}
		sort.SliceStable(cluster, func(i, j int) bool { return cluster[i].X0 < cluster[j].X0 })
		rows = append(rows, cluster)
	}
	return rows
}

func hasIdentifier(cluster []entity.Fragment, table *layout.Table) bool {
	for _, f := range cluster {
		if spec := table.Assign(f); spec != nil && spec.Name == table.IDField() {
			return true
		}
	}
	return false
}
