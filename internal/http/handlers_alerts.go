package http

import (
	"net/http"

	"finledger/internal/core"
	"finledger/internal/storage"
)

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if owner == "" {
		writeServiceError(w, r, core.ErrEmptyOwner)
		return
	}

	alerts, err := s.repo.ListAlerts(r.Context(), storage.ListAlertsParams{
		Owner:      owner,
		UnreadOnly: r.URL.Query().Get("unread") == "true",
		Limit:      queryInt64(r, "limit", 50),
		Offset:     queryInt64(r, "offset", 0),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]alertResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, toAlertResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if owner == "" {
		writeServiceError(w, r, core.ErrEmptyOwner)
		return
	}

	count, err := s.repo.CountUnreadAlerts(r.Context(), owner)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"unread": count})
}

func (s *Server) handleMarkAlertRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	owner := ownerFrom(r)
	if owner == "" {
		writeServiceError(w, r, core.ErrEmptyOwner)
		return
	}

	if err := s.repo.MarkAlertRead(r.Context(), id, owner); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if owner == "" {
		writeServiceError(w, r, core.ErrEmptyOwner)
		return
	}

	updated, err := s.repo.MarkAllAlertsRead(r.Context(), owner)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}
