package http

import (
	"net/http"
	"strings"

	"finledger/internal/core"
	"finledger/internal/services"
)

type setBudgetRequest struct {
	Category       string `json:"category"`
	Month          int    `json:"month"`
	Year           int    `json:"year"`
	Limit          string `json:"limit"`
	AlertThreshold int    `json:"alert_threshold"`
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req setBudgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit, err := core.ParseMoney(strings.TrimSpace(req.Limit))
	if err != nil {
		writeServiceError(w, r, core.ErrInvalidLimit)
		return
	}

	budget, err := s.budgets.SetLimit(r.Context(), services.SetLimitInput{
		Owner:          ownerFrom(r),
		Category:       core.Category(req.Category),
		Month:          req.Month,
		Year:           req.Year,
		Limit:          limit,
		AlertThreshold: req.AlertThreshold,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetResponse(budget))
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)
	budgets, err := s.budgets.ListForMonth(r.Context(), ownerFrom(r), month, year)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]budgetResponse, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toBudgetResponse(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	budget, err := s.budgets.Get(r.Context(), id, ownerFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetResponse(budget))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.budgets.Delete(r.Context(), id, ownerFrom(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecomputeBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	budget, err := s.budgets.Get(r.Context(), id, ownerFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := s.budgets.RecomputeBucket(r.Context(), budget.Key()); err != nil {
		writeServiceError(w, r, err)
		return
	}
	refreshed, err := s.budgets.Get(r.Context(), id, ownerFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetResponse(refreshed))
}

func (s *Server) handleBudgetSummary(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)
	summary, err := s.budgets.Summary(r.Context(), ownerFrom(r), month, year)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budgetSummaryResponse{
		TotalBudgets:  summary.TotalBudgets,
		TotalLimit:    summary.TotalLimit.String(),
		TotalSpent:    summary.TotalSpent.String(),
		Remaining:     summary.Remaining.String(),
		Percentage:    summary.Percentage,
		ExceededCount: summary.ExceededCount,
		WarningCount:  summary.WarningCount,
		HealthyCount:  summary.HealthyCount,
	})
}
