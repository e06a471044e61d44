// Package dataset owns the single in-memory ParseResult for the session.
// There is no persistence: a new upload replaces the dataset wholesale and a
// process restart loses it.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hy4k/aurelius/internal/ai"
	"github.com/hy4k/aurelius/internal/domain"
	"github.com/hy4k/aurelius/internal/ledger"
)

var (
	// ErrNoDataset is returned when an operation needs a loaded statement.
	ErrNoDataset = errors.New("no statement loaded")

	// ErrRecategorizeInFlight rejects a second recategorization while one is
	// still outstanding.
	ErrRecategorizeInFlight = errors.New("recategorization already in flight")

	// ErrLengthMismatch rejects a categorizer response that is not positionally
	// aligned with the request. The merge fails closed.
	ErrLengthMismatch = errors.New("categorizer response length does not match request")
)

// Holder is the single owner of the current dataset. All reads go through
// Snapshot; the only writers are Replace/Clear and the category merge at the
// end of a successful Recategorize, each atomic from the caller's view.
type Holder struct {
	mu       sync.RWMutex
	result   *domain.ParseResult
	inFlight bool

	categorizer ai.Categorizer
	log         zerolog.Logger
}

// NewHolder creates an empty holder using the given categorizer for
// recategorization calls.
func NewHolder(categorizer ai.Categorizer, log zerolog.Logger) *Holder {
	return &Holder{
		categorizer: categorizer,
		log:         log,
	}
}

// Replace swaps in a freshly extracted result, discarding any prior dataset.
func (h *Holder) Replace(result *domain.ParseResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.result = result
}

// Clear discards the dataset ("start over").
func (h *Holder) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.result = nil
}

// Snapshot returns a deep copy of the current dataset, or false when none is
// loaded. Consumers can filter and aggregate the copy without holding a lock.
func (h *Holder) Snapshot() (*domain.ParseResult, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.result == nil {
		return nil, false
	}
	return h.result.Clone(), true
}

// Recategorize re-runs category assignment over the transactions currently
// visible under the query and merges the returned labels back into the full
// dataset by transaction ID. Transactions outside the view are untouched.
//
// An empty view is a no-op and the collaborator is never called. On any
// collaborator failure the dataset is left exactly as it was. Returns the
// number of transactions whose category was overwritten.
func (h *Holder) Recategorize(ctx context.Context, q ledger.Query) (int, error) {
	h.mu.Lock()
	if h.result == nil {
		h.mu.Unlock()
		return 0, ErrNoDataset
	}
	if h.inFlight {
		h.mu.Unlock()
		return 0, ErrRecategorizeInFlight
	}
	h.inFlight = true

	visible := ledger.Apply(h.result.Transactions, q)
	ids := make([]string, len(visible))
	descriptions := make([]string, len(visible))
	for i, tx := range visible {
		ids[i] = tx.ID
		descriptions[i] = tx.Description
	}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		h.inFlight = false
		h.mu.Unlock()
	}()

	if len(descriptions) == 0 {
		return 0, nil
	}

	labels, err := h.categorizer.CategorizeDescriptions(ctx, descriptions)
	if err != nil {
		return 0, fmt.Errorf("recategorize: %w", err)
	}
	if len(labels) != len(descriptions) {
		return 0, fmt.Errorf("recategorize: %w: got %d labels for %d descriptions",
			ErrLengthMismatch, len(labels), len(descriptions))
	}

	labelByID := make(map[string]string, len(ids))
	for i, id := range ids {
		labelByID[id] = labels[i]
	}

	// Merge against whatever the dataset is now. If it was replaced while the
	// call was outstanding, the IDs simply no longer match and nothing is
	// overwritten.
	h.mu.Lock()
	updated := 0
	if h.result != nil {
		for _, tx := range h.result.Transactions {
			if label, ok := labelByID[tx.ID]; ok {
				tx.Category = label
				updated++
			}
		}
	}
	h.mu.Unlock()

	h.log.Info().Int("updated", updated).Int("requested", len(descriptions)).Msg("Recategorization merged")
	return updated, nil
}
