package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian/internal/entries"
)

func testEntry() entries.Entry {
	return entries.Entry{
		ID:            11,
		Reference:     uuid.MustParse("7f9bd5a4-1f2e-4e76-9be1-2a4f0f6f9c01"),
		Description:   "December accrued utilities",
		DebitAccount:  "6400",
		CreditAccount: "2100",
		Amount:        decimal.RequireFromString("1250.00"),
		Currency:      "EUR",
	}
}

func TestPostEntrySendsEntryAndReturnsTransactionID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transactions", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "6400", body["debit_account"])
		assert.Equal(t, "2100", body["credit_account"])
		assert.Equal(t, "1250.00", body["amount"])
		assert.Equal(t, "EUR", body["currency"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"transaction_id":"TXN-2025-12-000314"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	txnID, err := client.PostEntry(context.Background(), testEntry())
	require.NoError(t, err)
	assert.Equal(t, "TXN-2025-12-000314", txnID)
}

func TestPostEntryRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unbalanced", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.PostEntry(context.Background(), testEntry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 422")
}

func TestPostEntryRejectsEmptyTransactionID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.PostEntry(context.Background(), testEntry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty transaction id")
}

func TestPingReportsUnhealthyService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	require.Error(t, client.Ping(context.Background()))
}
