package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"loxodon/internal/auth"
	"loxodon/internal/services"
	"loxodon/internal/store"
)

// scopeAuditFilter applies the caller's tenant boundary to an audit-log
// filter. A non-global caller querying another tenant's user gets a 403, not
// a silently narrowed filter.
func scopeAuditFilter(r *http.Request, users *services.UserService, f *store.AuditLogFilter) (int, string) {
	acc, _ := auth.AccessFrom(r.Context())
	if acc.Global {
		return 0, ""
	}
	if acc.TenantID == "" {
		return http.StatusForbidden, "Forbidden"
	}
	f.TenantID = acc.TenantID
	if f.UserID != "" {
		target, err := users.Get(r.Context(), f.UserID)
		if err == nil && target.TenantID != acc.TenantID {
			return http.StatusForbidden, "Forbidden"
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return http.StatusInternalServerError, "Failed to fetch audit logs"
		}
	}
	return 0, ""
}

func ListAuditLogs(logs *services.AuditLogService, users *services.UserService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if page < 1 {
			page = 1
		}
		if limit < 1 {
			limit = 20
		}
		f := store.AuditLogFilter{
			UserID: r.URL.Query().Get("userId"),
			Page:   page,
			Limit:  limit,
		}
		if status, msg := scopeAuditFilter(r, users, &f); status != 0 {
			respondError(w, status, msg)
			return
		}
		items, total, err := logs.List(r.Context(), f)
		if err != nil {
			lg.Errorw("list audit logs failed", "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to fetch audit logs")
			return
		}
		if len(items) > 0 {
			acc, _ := auth.AccessFrom(r.Context())
			desc := "Viewed audit logs"
			if f.UserID != "" {
				desc += " for user " + f.UserID
			}
			logs.Record(r.Context(), items[0].TenantID, acc.OID, "audit_logs.view", desc)
		}
		respondPaged(w, items, total, page, limit)
	}
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func ExportAuditLogs(logs *services.AuditLogService, users *services.UserService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := store.AuditLogFilter{UserID: r.URL.Query().Get("userId")}
		if s := r.URL.Query().Get("startDate"); s != "" {
			t, err := parseDate(s)
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid startDate")
				return
			}
			f.Start = &t
		}
		if s := r.URL.Query().Get("endDate"); s != "" {
			t, err := parseDate(s)
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid endDate")
				return
			}
			f.End = &t
		}
		if status, msg := scopeAuditFilter(r, users, &f); status != 0 {
			respondError(w, status, msg)
			return
		}
		items, err := logs.ByDateRange(r.Context(), f)
		if err != nil {
			lg.Errorw("export audit logs failed", "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to export audit logs")
			return
		}
		if len(items) > 0 {
			acc, _ := auth.AccessFrom(r.Context())
			desc := "Exported audit logs"
			if f.UserID != "" {
				desc += " for user " + f.UserID
			}
			logs.Record(r.Context(), items[0].TenantID, acc.OID, "audit_logs.export", desc)
		}

		// The description column is JSON-quoted; encoding/csv would quote it
		// differently, so rows are assembled by hand.
		lines := make([]string, 0, len(items)+1)
		lines = append(lines, "id,tenantId,userId,action,description,createdAt")
		for _, l := range items {
			desc, _ := json.Marshal(l.Description)
			lines = append(lines, strings.Join([]string{
				strconv.FormatInt(l.ID, 10),
				l.TenantID,
				l.UserID,
				l.Action,
				string(desc),
				l.CreatedAt.UTC().Format(time.RFC3339),
			}, ","))
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="audit-logs.csv"`)
		_, _ = w.Write([]byte(strings.Join(lines, "\n")))
	}
}

func GetAuditLog(logs *services.AuditLogService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid audit log id")
			return
		}
		l, err := logs.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(w, http.StatusNotFound, "Audit log not found")
				return
			}
			lg.Errorw("get audit log failed", "id", id, "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to fetch audit log")
			return
		}
		acc, _ := auth.AccessFrom(r.Context())
		if !acc.CanAccessTenant(l.TenantID) {
			respondError(w, http.StatusForbidden, "Forbidden")
			return
		}
		respondData(w, http.StatusOK, l)
	}
}

func CreateAuditLog(logs *services.AuditLogService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TenantID    string `json:"tenantId"`
			UserID      string `json:"userId"`
			Action      string `json:"action"`
			Description string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.TenantID == "" || req.UserID == "" || req.Action == "" || req.Description == "" {
			respondError(w, http.StatusBadRequest, "tenantId, userId, action, description are required")
			return
		}
		acc, _ := auth.AccessFrom(r.Context())
		if !acc.CanAccessTenant(req.TenantID) {
			respondError(w, http.StatusForbidden, "Forbidden")
			return
		}
		l, err := logs.Create(r.Context(), services.CreateAuditLogInput{
			TenantID:    req.TenantID,
			UserID:      req.UserID,
			Action:      req.Action,
			Description: req.Description,
		})
		if err != nil {
			if errors.Is(err, services.ErrActorNotFound) {
				respondError(w, http.StatusNotFound, "User not found")
				return
			}
			lg.Errorw("create audit log failed", "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to create audit log")
			return
		}
		respondData(w, http.StatusCreated, l)
	}
}
