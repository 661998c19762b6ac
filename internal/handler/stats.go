package handler

import (
	"net/http"
	"time"
)

func (h *Handler) adminStats(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "period", 30)
	since := time.Now().AddDate(0, 0, -days)

	stats, err := h.stats.Fetch(r.Context(), since)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, stats)
}
