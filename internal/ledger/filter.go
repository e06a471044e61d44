package ledger

import (
	"sort"
	"strings"

	"github.com/hy4k/aurelius/internal/domain"
)

// FilterAll is the sentinel for "no category/type restriction". An empty
// string is treated the same way.
const FilterAll = "all"

// Query describes one view of the ledger: a mode partition plus optional
// search, category and type restrictions and a sort order.
type Query struct {
	Mode     domain.Mode `json:"mode"`
	Search   string      `json:"search"`
	Category string      `json:"category"`
	Type     string      `json:"type"`
	Sort     *SortSpec   `json:"sort,omitempty"`
}

// Apply selects and orders transactions for a query. The input slice is never
// mutated; an empty result is a valid outcome, not an error.
func Apply(txs []*domain.Transaction, q Query) []*domain.Transaction {
	search := strings.ToLower(strings.TrimSpace(q.Search))

	out := make([]*domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if !q.Mode.Matches(tx.IsBusiness) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(tx.Description), search) {
			continue
		}
		if !allFilter(q.Category) && tx.Category != q.Category {
			continue
		}
		if !allFilter(q.Type) && string(tx.Type) != q.Type {
			continue
		}
		out = append(out, tx)
	}

	spec := q.Sort
	if spec == nil {
		// Default view: most recent first.
		spec = &SortSpec{Key: SortByDate, Direction: Descending}
	}
	sortTransactions(out, *spec)
	return out
}

// Categories returns the distinct categories present in the mode-filtered
// list, sorted lexicographically. Search and type filters are deliberately
// not applied: the filter UI offers every category visible in the mode.
func Categories(txs []*domain.Transaction, mode domain.Mode) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, tx := range txs {
		if !mode.Matches(tx.IsBusiness) {
			continue
		}
		if _, ok := seen[tx.Category]; ok {
			continue
		}
		seen[tx.Category] = struct{}{}
		out = append(out, tx.Category)
	}
	sort.Strings(out)
	return out
}

// Anomalies returns the mode's transactions carrying an anomaly note, for the
// manual review list.
func Anomalies(txs []*domain.Transaction, mode domain.Mode) []*domain.Transaction {
	out := make([]*domain.Transaction, 0)
	for _, tx := range txs {
		if mode.Matches(tx.IsBusiness) && tx.Anomaly != "" {
			out = append(out, tx)
		}
	}
	return out
}

func allFilter(s string) bool {
	return s == "" || s == FilterAll
}
