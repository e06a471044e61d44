package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/hy4k/aurelius/internal/dataset"
	"github.com/hy4k/aurelius/internal/domain"
	"github.com/hy4k/aurelius/internal/jobs"
	"github.com/hy4k/aurelius/internal/logger"
)

type mockPublisher struct {
	calls int
	last  *jobs.ExtractStatementJob

	// mutate, when set, runs against the published job the way a worker
	// picking it up immediately would.
	mutate func(*jobs.ExtractStatementJob)
}

func (m *mockPublisher) PublishExtractStatement(ctx context.Context, job *jobs.ExtractStatementJob) error {
	m.calls++
	m.last = job
	if m.mutate != nil {
		m.mutate(job)
	}
	return nil
}

func (m *mockPublisher) Close() error { return nil }

type mockCategorizer struct {
	labels []string
	err    error
	calls  int
}

func (m *mockCategorizer) CategorizeDescriptions(ctx context.Context, descriptions []string) ([]string, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.labels, nil
}

func multipartUpload(t *testing.T, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	hdr.Set("Content-Type", contentType)

	part, err := w.CreatePart(hdr)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func loadedHolder(t *testing.T, categorizer *mockCategorizer) *dataset.Holder {
	t.Helper()
	mkDate := func(s string) domain.Date {
		d, err := domain.ParseDate(s)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", s, err)
		}
		return d
	}
	h := dataset.NewHolder(categorizer, logger.New())
	h.Replace(&domain.ParseResult{
		BankName:      "First National",
		AccountNumber: "****4821",
		Currency:      "USD",
		Transactions: []*domain.Transaction{
			{ID: "a", Date: mkDate("2024-01-02"), Description: "Coffee Shop", Amount: decimal.NewFromFloat(4.50), Type: domain.TypeDebit, Category: "Food"},
			{ID: "b", Date: mkDate("2024-01-05"), Description: "Salary", Amount: decimal.NewFromInt(2500), Type: domain.TypeCredit, Category: "Income"},
			{ID: "c", Date: mkDate("2024-01-03"), Description: "Server hosting", Amount: decimal.NewFromInt(40), Type: domain.TypeDebit, Category: "Hosting", IsBusiness: true, Anomaly: "duplicate charge"},
		},
	})
	return h
}

const testUploadLimit = 1024

func newStatementsHandler(t *testing.T, pub *mockPublisher) *StatementsHandler {
	t.Helper()
	holder := dataset.NewHolder(&mockCategorizer{}, logger.New())
	return NewStatementsHandler(holder, pub, testUploadLimit, logger.New())
}

func TestUpload_Accepted(t *testing.T) {
	pub := &mockPublisher{}
	h := newStatementsHandler(t, pub)

	body, contentType := multipartUpload(t, "january.pdf", "application/pdf", []byte("%PDF-1.4 fake"))
	req := httptest.NewRequest(http.MethodPost, "/api/statements", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.Upload(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202; body: %s", rec.Code, rec.Body.String())
	}
	if pub.calls != 1 {
		t.Errorf("publisher called %d times, want 1", pub.calls)
	}
	if pub.last.Filename != "january.pdf" || pub.last.MIMEType != "application/pdf" {
		t.Errorf("job = %+v", pub.last)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response JSON: %v", err)
	}
	if resp["job_id"] == "" {
		t.Error("expected a job_id in the response")
	}
	if resp["status"] != string(jobs.JobStatusPending) {
		t.Errorf("status = %q, want pending", resp["status"])
	}
}

func TestUpload_ResponseSnapshotsJobBeforeHandoff(t *testing.T) {
	// A worker may pick the job up and start mutating it the moment it is
	// published; the 202 body must reflect the job as enqueued.
	pub := &mockPublisher{mutate: func(job *jobs.ExtractStatementJob) {
		job.Status = jobs.JobStatusRunning
		job.Filename = "clobbered"
	}}
	h := newStatementsHandler(t, pub)

	body, contentType := multipartUpload(t, "january.pdf", "application/pdf", []byte("%PDF-1.4 fake"))
	req := httptest.NewRequest(http.MethodPost, "/api/statements", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.Upload(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202; body: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response JSON: %v", err)
	}
	if resp["status"] != string(jobs.JobStatusPending) {
		t.Errorf("status = %q, want the enqueued status", resp["status"])
	}
	if resp["filename"] != "january.pdf" {
		t.Errorf("filename = %q, want the uploaded name", resp["filename"])
	}
	if resp["job_id"] != pub.last.JobID {
		t.Errorf("job_id = %q, want the published job's ID %q", resp["job_id"], pub.last.JobID)
	}
}

func TestUpload_OversizeNeverReachesCollaborator(t *testing.T) {
	pub := &mockPublisher{}
	h := newStatementsHandler(t, pub)

	big := bytes.Repeat([]byte("x"), testUploadLimit*2)
	body, contentType := multipartUpload(t, "huge.pdf", "application/pdf", big)
	req := httptest.NewRequest(http.MethodPost, "/api/statements", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.Upload(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
	if pub.calls != 0 {
		t.Errorf("oversize upload must never be enqueued; publisher called %d times", pub.calls)
	}
	if !strings.Contains(rec.Body.String(), "upload limit") {
		t.Errorf("expected a user-facing limit message, got: %s", rec.Body.String())
	}
}

func TestUpload_UnsupportedType(t *testing.T) {
	pub := &mockPublisher{}
	h := newStatementsHandler(t, pub)

	body, contentType := multipartUpload(t, "statement.zip", "application/zip", []byte("PK"))
	req := httptest.NewRequest(http.MethodPost, "/api/statements", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.Upload(rec, req)

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415", rec.Code)
	}
	if pub.calls != 0 {
		t.Errorf("unsupported upload must never be enqueued; publisher called %d times", pub.calls)
	}
}

func TestUpload_MissingFileField(t *testing.T) {
	pub := &mockPublisher{}
	h := newStatementsHandler(t, pub)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("note", "no file here")
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/statements", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()

	h.Upload(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestStatementLifecycle(t *testing.T) {
	holder := loadedHolder(t, &mockCategorizer{})
	h := NewStatementsHandler(holder, &mockPublisher{}, testUploadLimit, logger.New())

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/statements", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Get status = %d, want 200", rec.Code)
	}

	var meta map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &meta); err != nil {
		t.Fatalf("bad response JSON: %v", err)
	}
	if meta["bank_name"] != "First National" || meta["transaction_count"] != float64(3) {
		t.Errorf("metadata = %v", meta)
	}

	// Start over discards the dataset.
	rec = httptest.NewRecorder()
	h.Delete(rec, httptest.NewRequest(http.MethodDelete, "/api/statements", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Delete status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/statements", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Get after Delete status = %d, want 404", rec.Code)
	}
}

func TestListTransactions(t *testing.T) {
	h := NewLedgerHandler(loadedHolder(t, &mockCategorizer{}), logger.New())

	tests := []struct {
		name    string
		url     string
		wantIDs []string
	}{
		{"personal default sort", "/api/transactions", []string{"b", "a"}},
		{"business mode", "/api/transactions?mode=business", []string{"c"}},
		{"search", "/api/transactions?search=COFFEE", []string{"a"}},
		{"type filter", "/api/transactions?type=credit", []string{"b"}},
		{"category filter", "/api/transactions?category=Food", []string{"a"}},
		{"explicit sort", "/api/transactions?sort=amount&dir=asc", []string{"a", "b"}},
		{"empty result is valid", "/api/transactions?search=nothing", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ListTransactions(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
			}

			var got []domain.Transaction
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("bad response JSON: %v", err)
			}
			ids := make([]string, len(got))
			for i, tx := range got {
				ids[i] = tx.ID
			}
			if len(ids) != len(tt.wantIDs) {
				t.Fatalf("ids = %v, want %v", ids, tt.wantIDs)
			}
			for i := range ids {
				if ids[i] != tt.wantIDs[i] {
					t.Fatalf("ids = %v, want %v", ids, tt.wantIDs)
				}
			}
		})
	}
}

func TestListTransactions_BadQuery(t *testing.T) {
	h := NewLedgerHandler(loadedHolder(t, &mockCategorizer{}), logger.New())

	for _, url := range []string{
		"/api/transactions?mode=corporate",
		"/api/transactions?type=transfer",
		"/api/transactions?sort=color",
		"/api/transactions?dir=desc",
	} {
		rec := httptest.NewRecorder()
		h.ListTransactions(rec, httptest.NewRequest(http.MethodGet, url, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", url, rec.Code)
		}
	}
}

func TestListTransactions_NoDataset(t *testing.T) {
	holder := dataset.NewHolder(&mockCategorizer{}, logger.New())
	h := NewLedgerHandler(holder, logger.New())

	rec := httptest.NewRecorder()
	h.ListTransactions(rec, httptest.NewRequest(http.MethodGet, "/api/transactions", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetStats(t *testing.T) {
	h := NewLedgerHandler(loadedHolder(t, &mockCategorizer{}), logger.New())

	rec := httptest.NewRecorder()
	h.GetStats(rec, httptest.NewRequest(http.MethodGet, "/api/stats?mode=personal", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var summary struct {
		TotalIncome  decimal.Decimal `json:"total_income"`
		TotalExpense decimal.Decimal `json:"total_expense"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("bad response JSON: %v", err)
	}
	if !summary.TotalIncome.Equal(decimal.NewFromInt(2500)) {
		t.Errorf("TotalIncome = %s", summary.TotalIncome)
	}
	if !summary.TotalExpense.Equal(decimal.NewFromFloat(4.50)) {
		t.Errorf("TotalExpense = %s", summary.TotalExpense)
	}
}

func TestListCategories(t *testing.T) {
	h := NewLedgerHandler(loadedHolder(t, &mockCategorizer{}), logger.New())

	rec := httptest.NewRecorder()
	h.ListCategories(rec, httptest.NewRequest(http.MethodGet, "/api/categories?mode=personal", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Categories []categoryColor `json:"categories"`
		Count      int             `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response JSON: %v", err)
	}
	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2", resp.Count)
	}
	// Lexicographic: Food, Income.
	if resp.Categories[0].Name != "Food" || resp.Categories[1].Name != "Income" {
		t.Errorf("categories = %v", resp.Categories)
	}
	for _, c := range resp.Categories {
		if c.BackgroundColor == "" || c.TextColor == "" {
			t.Errorf("category %s missing palette colors", c.Name)
		}
	}
}

func TestListAnomalies(t *testing.T) {
	h := NewLedgerHandler(loadedHolder(t, &mockCategorizer{}), logger.New())

	rec := httptest.NewRecorder()
	h.ListAnomalies(rec, httptest.NewRequest(http.MethodGet, "/api/anomalies?mode=business", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Anomalies []domain.Transaction `json:"anomalies"`
		Count     int                  `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response JSON: %v", err)
	}
	if resp.Count != 1 || resp.Anomalies[0].ID != "c" {
		t.Errorf("anomalies = %v", resp.Anomalies)
	}
}

func TestRecategorize(t *testing.T) {
	cat := &mockCategorizer{labels: []string{"Food"}}
	h := NewLedgerHandler(loadedHolder(t, cat), logger.New())

	body := strings.NewReader(`{"mode": "personal", "type": "debit"}`)
	rec := httptest.NewRecorder()
	h.Recategorize(rec, httptest.NewRequest(http.MethodPost, "/api/recategorize", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response JSON: %v", err)
	}
	if resp["updated"] != 1 {
		t.Errorf("updated = %d, want 1", resp["updated"])
	}
	if cat.calls != 1 {
		t.Errorf("categorizer called %d times, want 1", cat.calls)
	}
}

func TestRecategorize_CollaboratorFailure(t *testing.T) {
	cat := &mockCategorizer{err: fmt.Errorf("model unavailable")}
	h := NewLedgerHandler(loadedHolder(t, cat), logger.New())

	body := strings.NewReader(`{"mode": "personal"}`)
	rec := httptest.NewRecorder()
	h.Recategorize(rec, httptest.NewRequest(http.MethodPost, "/api/recategorize", body))

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestRecategorize_NoDataset(t *testing.T) {
	holder := dataset.NewHolder(&mockCategorizer{}, logger.New())
	h := NewLedgerHandler(holder, logger.New())

	body := strings.NewReader(`{"mode": "personal"}`)
	rec := httptest.NewRecorder()
	h.Recategorize(rec, httptest.NewRequest(http.MethodPost, "/api/recategorize", body))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
