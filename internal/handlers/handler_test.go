package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-matching-backend/internal/app"
	"ledger-matching-backend/internal/config"
	handler "ledger-matching-backend/internal/handlers"
	"ledger-matching-backend/internal/logger"
	"ledger-matching-backend/internal/models"
	"ledger-matching-backend/internal/repository"
	"ledger-matching-backend/internal/routes"
	"ledger-matching-backend/internal/testutil"
)

func newRouter(t *testing.T) (*gin.Engine, *repository.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	a := app.New(testutil.NewDB(t), config.Default().Matching, logger.Nop())
	r := gin.New()
	r.Use(logger.Middleware(logger.Nop()))
	routes.RegisterRoutes(r, handler.NewReconciliationHandler(a.Reconciler, a.Generator))
	return r, a.Store
}

func do(t *testing.T, r *gin.Engine, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	r, _ := newRouter(t)

	w := do(t, r, http.MethodGet, "/api/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(logger.RequestIDHeader))
}

func TestSuggestAndCommitFlow(t *testing.T) {
	r, store := newRouter(t)
	txn := testutil.Transaction(t, store, "-45.00", "2024-03-10", "Invoice INV-1042 payment")
	entry := testutil.LedgerEntry(t, store, "45.00", "2024-03-09", "INV-1042 supplier invoice", models.LedgerApproved)

	w := do(t, r, http.MethodGet, "/api/matches/suggestions?transaction_id="+txn.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	matches := decode(t, w)["matches"].([]interface{})
	require.Len(t, matches, 1)
	bundle := matches[0].(map[string]interface{})
	assert.Equal(t, txn.ID.String(), bundle["transaction_id"])
	suggestions := bundle["suggestions"].([]interface{})
	require.Len(t, suggestions, 1)
	top := suggestions[0].(map[string]interface{})
	assert.Equal(t, entry.ID.String(), top["ledger_entry_id"])
	assert.InDelta(t, 0.99, top["confidence"], 1e-9)

	w = do(t, r, http.MethodPost, "/api/matches", map[string]interface{}{
		"transaction_id":  txn.ID.String(),
		"ledger_entry_id": entry.ID.String(),
	}, handler.ActorHeader, "alice")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode(t, w)
	assert.Equal(t, "matched", res["status"])

	w = do(t, r, http.MethodGet, "/api/audit?entity_type=transaction_ledger_entry", nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decode(t, w)["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "alice", items[0].(map[string]interface{})["actor"])
}

func TestCommitMatchErrors(t *testing.T) {
	r, store := newRouter(t)
	txn := testutil.Transaction(t, store, "-10.00", "2024-03-10", "")

	tests := []struct {
		name   string
		body   interface{}
		status int
		code   string
	}{
		{"missing ids", map[string]interface{}{}, http.StatusBadRequest, "missing_transaction_id"},
		{"malformed body", "not an object", http.StatusBadRequest, "invalid_payload"},
		{"unknown entry", map[string]interface{}{
			"transaction_id":  txn.ID.String(),
			"ledger_entry_id": uuid.NewString(),
		}, http.StatusNotFound, "ledger_entry_not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, "/api/matches", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decode(t, w)["code"])
		})
	}
}

func TestRunAutoMatchAndFetchRun(t *testing.T) {
	r, store := newRouter(t)
	testutil.Transaction(t, store, "-45.00", "2024-03-10", "Invoice INV-1042 payment")
	testutil.LedgerEntry(t, store, "45.00", "2024-03-09", "INV-1042", models.LedgerApproved)

	w := do(t, r, http.MethodPost, "/api/matches/auto", map[string]int{"limit": 10})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode(t, w)
	assert.EqualValues(t, 1, res["scanned"])
	assert.EqualValues(t, 1, res["committed"])

	w = do(t, r, http.MethodGet, "/api/matches/auto/"+res["run_id"].(string), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RunStatusCompleted, decode(t, w)["status"])

	// no body at all uses the default limit
	w = do(t, r, http.MethodPost, "/api/matches/auto", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["scanned"])
}

func TestTransactionEndpoints(t *testing.T) {
	r, _ := newRouter(t)
	payload := map[string]interface{}{
		"source":                "Bank",
		"account_id":            "ACC-9",
		"source_transaction_id": "tx-1",
		"posted_at":             "2024-03-10",
		"amount":                "-12.50",
		"description":           "coffee beans",
	}

	w := do(t, r, http.MethodPost, "/api/transactions", payload)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)["transaction"].(map[string]interface{})
	assert.Equal(t, "bank:ACC-9:tx-1", created["source_ref"])

	w = do(t, r, http.MethodPost, "/api/transactions", payload)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created["id"], decode(t, w)["transaction"].(map[string]interface{})["id"])

	w = do(t, r, http.MethodGet, "/api/transactions?status=imported&search=coffee", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["items"], 1)

	w = do(t, r, http.MethodGet, "/api/transactions?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	id := created["id"].(string)
	w = do(t, r, http.MethodPost, "/api/transactions/"+id+"/reconcile", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "transaction_not_matched", decode(t, w)["code"])

	w = do(t, r, http.MethodPost, "/api/transactions/"+id+"/ignore", map[string]string{"reason": "duplicate"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodGet, "/api/transactions/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode(t, w)
	assert.EqualValues(t, 1, stats["total"])
	byStatus := stats["by_status"].(map[string]interface{})
	assert.Contains(t, byStatus, "ignored")
}

func TestCreateLedgerEntry(t *testing.T) {
	r, store := newRouter(t)

	w := do(t, r, http.MethodPost, "/api/ledger-entries", map[string]interface{}{
		"direction":    "expense",
		"gross_amount": "119.00",
		"net_amount":   "100.00",
		"entry_date":   "2024-03-09",
		"description":  "INV-2001",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "draft", body["status"])

	id, err := uuid.Parse(body["id"].(string))
	require.NoError(t, err)
	stored, err := store.LedgerEntries.GetByID(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, "19", stored.VATAmount.String())

	w = do(t, r, http.MethodPost, "/api/ledger-entries", map[string]interface{}{"direction": "sideways"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_direction", decode(t, w)["code"])
}

func TestRepairEndpoint(t *testing.T) {
	r, _ := newRouter(t)

	w := do(t, r, http.MethodPost, "/api/matches/repair", nil, handler.ActorHeader, "ops")

	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["examined"])
}
