package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"loxodon/internal/directory"
	"loxodon/internal/services"
)

func StatsOverview(svc *services.StatsService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ov, err := svc.Overview(r.Context())
		if err != nil {
			lg.Errorw("stats overview failed", "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to fetch stats")
			return
		}
		respondData(w, http.StatusOK, ov)
	}
}

func LoginStats(dir directory.Directory, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rng := r.URL.Query().Get("range")
		if !directory.ValidRange(rng) {
			respondError(w, http.StatusBadRequest, "range must be one of: today, last7days, lastmonth, lastyear")
			return
		}
		stats, err := dir.SignInStats(r.Context(), rng)
		if err != nil {
			lg.Errorw("login stats failed", "range", rng, "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to fetch login stats")
			return
		}
		respondData(w, http.StatusOK, stats)
	}
}
