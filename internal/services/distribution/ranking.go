package distribution

import (
	"sort"

	"github.com/berachain-tools/beradrop/internal/domain/entity"
)

// Rank orders entries by allocation descending; ties break by address
// ascending over the normalized lowercase hex form. The ordering is a
// total order, so repeated runs over the same data produce identical
// schedules.
func Rank(entries []entity.AllocationEntry) {
	sort.Slice(entries, func(i, j int) bool {
		cmp := entries[i].Allocation.Cmp(entries[j].Allocation)
		if cmp != 0 {
			return cmp > 0
		}
		return entries[i].Address < entries[j].Address
	})
}
