package ledger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hy4k/aurelius/internal/domain"
)

// SortKey names a sortable transaction field.
type SortKey string

const (
	SortByDate        SortKey = "date"
	SortByDescription SortKey = "description"
	SortByAmount      SortKey = "amount"
	SortByCategory    SortKey = "category"
	SortByType        SortKey = "type"
)

// ParseSortKey validates a sort key string from the wire.
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(s) {
	case SortByDate, SortByDescription, SortByAmount, SortByCategory, SortByType:
		return SortKey(s), nil
	}
	return "", fmt.Errorf("invalid sort key %q", s)
}

// Direction is a sort direction.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ParseDirection validates a direction string from the wire.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Ascending, Descending:
		return Direction(s), nil
	}
	return "", fmt.Errorf("invalid sort direction %q", s)
}

// SortSpec is an explicit sort order for the ledger view.
type SortSpec struct {
	Key       SortKey   `json:"key"`
	Direction Direction `json:"direction"`
}

// NextSort implements the sort-header cycling rule: requesting the current key
// again flips the direction, requesting a new key resets to ascending.
func NextSort(current *SortSpec, key SortKey) *SortSpec {
	if current != nil && current.Key == key && current.Direction == Ascending {
		return &SortSpec{Key: key, Direction: Descending}
	}
	return &SortSpec{Key: key, Direction: Ascending}
}

func sortTransactions(txs []*domain.Transaction, spec SortSpec) {
	sort.Slice(txs, func(i, j int) bool {
		c := compare(txs[i], txs[j], spec.Key)
		if spec.Direction == Descending {
			return c > 0
		}
		return c < 0
	})
}

// compare is the three-way comparison backing every sort key.
func compare(a, b *domain.Transaction, key SortKey) int {
	switch key {
	case SortByDescription:
		return strings.Compare(a.Description, b.Description)
	case SortByAmount:
		return a.Amount.Cmp(b.Amount)
	case SortByCategory:
		return strings.Compare(a.Category, b.Category)
	case SortByType:
		return strings.Compare(string(a.Type), string(b.Type))
	default: // SortByDate
		switch {
		case a.Date.Before(b.Date.Time):
			return -1
		case a.Date.After(b.Date.Time):
			return 1
		default:
			return 0
		}
	}
}
