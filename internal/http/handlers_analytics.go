package http

import (
	"net/http"
	"strconv"
	"time"
)

func (s *Server) handleCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	totals, err := s.reader.CategoryBreakdown(r.Context(), ownerFrom(r), start, end)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]categoryTotalResponse, 0, len(totals))
	for _, ct := range totals {
		out = append(out, categoryTotalResponse{
			Category: string(ct.Category),
			Total:    ct.Total.String(),
			Count:    ct.Count,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMonthlyTrend(w http.ResponseWriter, r *http.Request) {
	months := 6
	if v := r.URL.Query().Get("months"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 36 {
			months = n
		}
	}

	trend, err := s.reader.MonthlyTrend(r.Context(), ownerFrom(r), months, time.Now())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]monthlyTotalResponse, 0, len(trend))
	for _, mt := range trend {
		out = append(out, monthlyTotalResponse{
			Year:  mt.Year,
			Month: mt.Month,
			Kind:  string(mt.Kind),
			Total: mt.Total.String(),
			Count: mt.Count,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDailyTotals(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)
	totals, err := s.reader.DailyTotals(r.Context(), ownerFrom(r), year, month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]dailyTotalResponse, 0, len(totals))
	for _, dt := range totals {
		out = append(out, dailyTotalResponse{
			Day:   dt.Day,
			Total: dt.Total.String(),
			Count: dt.Count,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	items, err := s.reader.Recent(r.Context(), ownerFrom(r), queryInt64(r, "limit", 0))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponses(items))
}
