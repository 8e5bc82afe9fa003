package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finledger/internal/analytics"
	"finledger/internal/services"
	"finledger/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	engine := services.NewAlertEngine(nil)
	budgets := services.NewBudgetService(repo, engine, 80)
	ledger := services.NewLedgerService(repo, budgets)
	reader := analytics.NewReader(repo)

	srv := NewServer(":0", ledger, budgets, repo, reader)
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return srv
}

func do(t *testing.T, srv *Server, method, target, owner string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if owner != "" {
		req.Header.Set(ownerHeader, owner)
	}
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateTransactionEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/transactions", "alice", map[string]any{
		"kind":        "expense",
		"category":    "Food & Dining",
		"amount":      "12.50",
		"occurred_at": "2025-03-10",
		"description": "lunch",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "12.50", resp["amount"])
	assert.Equal(t, "Food & Dining", resp["category"])
	assert.NotZero(t, resp["id"])
}

func TestCreateTransactionRejectsBadInput(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{
			name: "unknown category",
			body: map[string]any{"kind": "expense", "category": "Misc", "amount": "5.00", "description": "x"},
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "bad amount",
			body: map[string]any{"kind": "expense", "category": "Other", "amount": "-5", "description": "x"},
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "unknown field",
			body: map[string]any{"kind": "expense", "category": "Other", "amount": "5.00", "description": "x", "color": "red"},
			want: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/transactions", "alice", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	// Missing owner header
	rec := do(t, srv, http.MethodPost, "/transactions", "", map[string]any{
		"kind": "expense", "category": "Other", "amount": "5.00", "description": "x",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestBudgetFlowEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPut, "/budgets", "alice", map[string]any{
		"category": "Travel",
		"month":    3,
		"year":     2025,
		"limit":    "200.00",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	budget := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "200.00", budget["limit"])
	assert.Equal(t, "good", budget["status"])

	// Spend past the threshold
	rec = do(t, srv, http.MethodPost, "/transactions", "alice", map[string]any{
		"kind":        "expense",
		"category":    "Travel",
		"amount":      "170.00",
		"occurred_at": "2025-03-15",
		"description": "flights",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, srv, http.MethodGet, "/budgets?month=3&year=2025", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	budgets := decodeBody[[]map[string]any](t, rec)
	require.Len(t, budgets, 1)
	assert.Equal(t, "170.00", budgets[0]["spent"])
	assert.Equal(t, "warning", budgets[0]["status"])
	assert.Equal(t, float64(85), budgets[0]["percentage"])

	// The warning alert is visible
	rec = do(t, srv, http.MethodGet, "/alerts", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	alerts := decodeBody[[]map[string]any](t, rec)
	require.Len(t, alerts, 1)
	assert.Equal(t, "budget_warning", alerts[0]["type"])

	// Another owner sees nothing
	rec = do(t, srv, http.MethodGet, "/budgets?month=3&year=2025", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]map[string]any](t, rec))
}

func TestBudgetNotFoundAndValidation(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/budgets/999", "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodPut, "/budgets", "alice", map[string]any{
		"category": "Travel", "month": 13, "year": 2025, "limit": "10.00",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, srv, http.MethodPut, "/budgets", "alice", map[string]any{
		"category": "Travel", "month": 3, "year": 2025, "limit": "0",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAlertReadEndpoints(t *testing.T) {
	srv := newTestServer(t)

	// Produce one alert through the normal path
	rec := do(t, srv, http.MethodPut, "/budgets", "alice", map[string]any{
		"category": "Rent", "month": 3, "year": 2025, "limit": "100.00",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, srv, http.MethodPost, "/transactions", "alice", map[string]any{
		"kind": "expense", "category": "Rent", "amount": "95.00",
		"occurred_at": "2025-03-01", "description": "rent",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, srv, http.MethodGet, "/alerts/unread-count", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	count := decodeBody[map[string]int64](t, rec)
	require.Equal(t, int64(1), count["unread"])

	rec = do(t, srv, http.MethodGet, "/alerts", "alice", nil)
	alerts := decodeBody[[]map[string]any](t, rec)
	require.Len(t, alerts, 1)
	id := int64(alerts[0]["id"].(float64))

	rec = do(t, srv, http.MethodPost, "/alerts/read-all", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/alerts/unread-count", "alice", nil)
	count = decodeBody[map[string]int64](t, rec)
	assert.Equal(t, int64(0), count["unread"])

	// Single mark-read on an already read alert is still a 204
	rec = do(t, srv, http.MethodPost, "/alerts/"+strconv.FormatInt(id, 10)+"/read", "alice", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAnalyticsEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, tx := range []map[string]any{
		{"kind": "expense", "category": "Food & Dining", "amount": "30.00", "occurred_at": "2025-03-05", "description": "a"},
		{"kind": "expense", "category": "Travel", "amount": "70.00", "occurred_at": "2025-03-06", "description": "b"},
		{"kind": "income", "category": "Salary", "amount": "1000.00", "occurred_at": "2025-03-01", "description": "c"},
	} {
		rec := do(t, srv, http.MethodPost, "/transactions", "alice", tx)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := do(t, srv, http.MethodGet, "/analytics/categories?start=2025-03-01&end=2025-03-31", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	breakdown := decodeBody[[]map[string]any](t, rec)
	require.Len(t, breakdown, 2)
	assert.Equal(t, "Travel", breakdown[0]["category"])

	rec = do(t, srv, http.MethodGet, "/analytics/daily?year=2025&month=3", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	daily := decodeBody[[]map[string]any](t, rec)
	assert.Len(t, daily, 2)

	rec = do(t, srv, http.MethodGet, "/analytics/recent?limit=2", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	recent := decodeBody[[]map[string]any](t, rec)
	assert.Len(t, recent, 2)

	rec = do(t, srv, http.MethodGet, "/transactions/sum?kind=expense&start=2025-03-01&end=2025-03-31", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "100.00", sum["total"])
}

func TestCategoriesEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/categories", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	categories := decodeBody[[]string](t, rec)
	assert.Len(t, categories, 17)
	assert.Contains(t, categories, "Food & Dining")
}
