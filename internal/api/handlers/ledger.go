package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/hy4k/aurelius/internal/api/middleware"
	"github.com/hy4k/aurelius/internal/dataset"
	"github.com/hy4k/aurelius/internal/domain"
	"github.com/hy4k/aurelius/internal/ledger"
	"github.com/hy4k/aurelius/internal/palette"
	"github.com/hy4k/aurelius/internal/stats"
)

// LedgerHandler serves the derived views over the current dataset: the
// filtered/sorted ledger, statistics, categories, anomalies and
// recategorization.
type LedgerHandler struct {
	holder *dataset.Holder
	log    zerolog.Logger
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(holder *dataset.Holder, log zerolog.Logger) *LedgerHandler {
	return &LedgerHandler{holder: holder, log: log}
}

// queryFromRequest builds a ledger query from URL parameters. Mode defaults
// to personal; everything else is optional.
func queryFromRequest(r *http.Request) (ledger.Query, error) {
	params := r.URL.Query()

	mode := domain.ModePersonal
	if s := params.Get("mode"); s != "" {
		parsed, err := domain.ParseMode(s)
		if err != nil {
			return ledger.Query{}, err
		}
		mode = parsed
	}

	if s := params.Get("type"); s != "" && s != ledger.FilterAll {
		if _, err := domain.ParseTransactionType(s); err != nil {
			return ledger.Query{}, err
		}
	}

	q := ledger.Query{
		Mode:     mode,
		Search:   params.Get("search"),
		Category: params.Get("category"),
		Type:     params.Get("type"),
	}

	sortKey := params.Get("sort")
	dir := params.Get("dir")
	if sortKey != "" {
		key, err := ledger.ParseSortKey(sortKey)
		if err != nil {
			return ledger.Query{}, err
		}
		direction := ledger.Ascending
		if dir != "" {
			direction, err = ledger.ParseDirection(dir)
			if err != nil {
				return ledger.Query{}, err
			}
		}
		q.Sort = &ledger.SortSpec{Key: key, Direction: direction}
	} else if dir != "" {
		return ledger.Query{}, fmt.Errorf("dir requires a sort key")
	}

	return q, nil
}

// ListTransactions handles GET /api/transactions.
func (h *LedgerHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q, err := queryFromRequest(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, ok := h.holder.Snapshot()
	if !ok {
		middleware.WriteError(w, http.StatusNotFound, "No statement loaded")
		return
	}

	// An empty result is a valid view, not an error.
	middleware.WriteJSON(w, http.StatusOK, ledger.Apply(snap.Transactions, q))
}

// GetStats handles GET /api/stats.
func (h *LedgerHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	q, err := queryFromRequest(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, ok := h.holder.Snapshot()
	if !ok {
		middleware.WriteError(w, http.StatusNotFound, "No statement loaded")
		return
	}

	// Statistics are derived from the mode partition alone; search and other
	// filters never skew the KPIs.
	visible := ledger.Apply(snap.Transactions, ledger.Query{Mode: q.Mode})
	middleware.WriteJSON(w, http.StatusOK, stats.Compute(visible))
}

// categoryColor is one entry of the category filter list, with its palette
// assignment for the chart legend and badges.
type categoryColor struct {
	Name            string `json:"name"`
	BackgroundColor string `json:"background_color"`
	TextColor       string `json:"text_color"`
}

// ListCategories handles GET /api/categories.
func (h *LedgerHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	q, err := queryFromRequest(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, ok := h.holder.Snapshot()
	if !ok {
		middleware.WriteError(w, http.StatusNotFound, "No statement loaded")
		return
	}

	names := ledger.Categories(snap.Transactions, q.Mode)
	out := make([]categoryColor, 0, len(names))
	for _, name := range names {
		color := palette.ColorFor(name, names)
		out = append(out, categoryColor{
			Name:            name,
			BackgroundColor: color.Background,
			TextColor:       color.Text,
		})
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": out,
		"count":      len(out),
	})
}

// ListAnomalies handles GET /api/anomalies: the manual review list.
func (h *LedgerHandler) ListAnomalies(w http.ResponseWriter, r *http.Request) {
	q, err := queryFromRequest(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, ok := h.holder.Snapshot()
	if !ok {
		middleware.WriteError(w, http.StatusNotFound, "No statement loaded")
		return
	}

	flagged := ledger.Anomalies(snap.Transactions, q.Mode)
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"anomalies": flagged,
		"count":     len(flagged),
	})
}

// Recategorize handles POST /api/recategorize. The body carries the query
// describing the currently visible view; only those transactions are sent to
// the categorizer and merged back.
func (h *LedgerHandler) Recategorize(w http.ResponseWriter, r *http.Request) {
	var q ledger.Query
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if q.Mode == "" {
		q.Mode = domain.ModePersonal
	} else if _, err := domain.ParseMode(string(q.Mode)); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.holder.Recategorize(r.Context(), q)
	if err != nil {
		switch {
		case errors.Is(err, dataset.ErrNoDataset):
			middleware.WriteError(w, http.StatusNotFound, "No statement loaded")
		case errors.Is(err, dataset.ErrRecategorizeInFlight):
			middleware.WriteError(w, http.StatusConflict, "Recategorization already in progress")
		default:
			h.log.Error().Err(err).Msg("Recategorization failed")
			middleware.WriteError(w, http.StatusBadGateway, "Recategorization failed; transactions are unchanged")
		}
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]int{"updated": updated})
}
