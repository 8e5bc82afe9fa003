package http

import (
	"net/http"
	"strings"
	"time"

	"finledger/internal/core"
	"finledger/internal/services"
)

type transactionRequest struct {
	Kind             string   `json:"kind"`
	Category         string   `json:"category"`
	Amount           string   `json:"amount"`
	OccurredAt       string   `json:"occurred_at"`
	PaymentMethod    string   `json:"payment_method"`
	Description      string   `json:"description"`
	Tags             []string `json:"tags"`
	Notes            string   `json:"notes"`
	Recurring        bool     `json:"recurring"`
	RecurrencePeriod string   `json:"recurrence_period"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := core.ParseMoney(strings.TrimSpace(req.Amount))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	occurredAt, err := parseOccurredAt(req.OccurredAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.ledger.Record(r.Context(), services.TransactionInput{
		Owner:            ownerFrom(r),
		Kind:             core.Kind(req.Kind),
		Category:         core.Category(req.Category),
		Amount:           amount,
		OccurredAt:       occurredAt,
		PaymentMethod:    core.PaymentMethod(req.PaymentMethod),
		Description:      strings.TrimSpace(req.Description),
		Tags:             req.Tags,
		Notes:            req.Notes,
		Recurring:        req.Recurring,
		RecurrencePeriod: core.RecurrencePeriod(req.RecurrencePeriod),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(created))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t, err := s.ledger.Get(r.Context(), id, ownerFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}

// updateTransactionRequest uses pointers so absent fields keep their
// stored values.
type updateTransactionRequest struct {
	Kind             *string   `json:"kind"`
	Category         *string   `json:"category"`
	Amount           *string   `json:"amount"`
	OccurredAt       *string   `json:"occurred_at"`
	PaymentMethod    *string   `json:"payment_method"`
	Description      *string   `json:"description"`
	Tags             *[]string `json:"tags"`
	Notes            *string   `json:"notes"`
	Recurring        *bool     `json:"recurring"`
	RecurrencePeriod *string   `json:"recurrence_period"`
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req updateTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var patch services.TransactionPatch
	if req.Kind != nil {
		kind := core.Kind(*req.Kind)
		patch.Kind = &kind
	}
	if req.Category != nil {
		category := core.Category(*req.Category)
		patch.Category = &category
	}
	if req.Amount != nil {
		amount, err := core.ParseMoney(strings.TrimSpace(*req.Amount))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		patch.Amount = &amount
	}
	if req.OccurredAt != nil {
		occurredAt, err := parseOccurredAt(*req.OccurredAt)
		if err != nil || occurredAt.IsZero() {
			writeError(w, http.StatusBadRequest, "invalid occurred_at")
			return
		}
		patch.OccurredAt = &occurredAt
	}
	if req.PaymentMethod != nil {
		method := core.PaymentMethod(*req.PaymentMethod)
		patch.PaymentMethod = &method
	}
	if req.Description != nil {
		desc := strings.TrimSpace(*req.Description)
		patch.Description = &desc
	}
	if req.Tags != nil {
		patch.Tags = req.Tags
	}
	if req.Notes != nil {
		patch.Notes = req.Notes
	}
	if req.Recurring != nil {
		patch.Recurring = req.Recurring
	}
	if req.RecurrencePeriod != nil {
		period := core.RecurrencePeriod(*req.RecurrencePeriod)
		patch.RecurrencePeriod = &period
	}

	updated, err := s.ledger.Amend(r.Context(), id, ownerFrom(r), patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(updated))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.ledger.Retract(r.Context(), id, ownerFrom(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := s.ledger.Query(r.Context(), services.QueryParams{
		Owner:    ownerFrom(r),
		Start:    start,
		End:      end,
		Category: core.Category(r.URL.Query().Get("category")),
		Kind:     core.Kind(r.URL.Query().Get("kind")),
		Limit:    queryInt64(r, "limit", 0),
		Offset:   queryInt64(r, "offset", 0),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponses(items))
}

func (s *Server) handleSumTransactions(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	kind := core.Kind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = core.KindExpense
	}
	total, err := s.ledger.SumByDateRange(r.Context(), ownerFrom(r), kind, start, end)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"kind":  string(kind),
		"total": total.Total.String(),
		"count": total.Count,
	})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, core.Categories)
}

// parseOccurredAt accepts RFC 3339 timestamps and bare YYYY-MM-DD
// dates. An empty value stays zero; the ledger defaults it to now.
func parseOccurredAt(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
