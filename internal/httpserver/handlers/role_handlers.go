package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"loxodon/internal/auth"
	"loxodon/internal/models"
	"loxodon/internal/services"
	"loxodon/internal/store"
)

func ListRoles(svc *services.RoleService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		acc, _ := auth.AccessFrom(r.Context())
		tenantID := r.URL.Query().Get("tenantId")
		if !acc.Global {
			// A caller with no resolved tenant must never fall through to the
			// unscoped listing.
			if acc.TenantID == "" || (tenantID != "" && tenantID != acc.TenantID) {
				respondError(w, http.StatusForbidden, "Forbidden")
				return
			}
			tenantID = acc.TenantID
		}
		var (
			roles []models.Role
			err   error
		)
		if tenantID != "" {
			roles, err = svc.ListByTenant(r.Context(), tenantID)
		} else {
			roles, err = svc.List(r.Context())
		}
		if err != nil {
			lg.Errorw("list roles failed", "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to fetch roles")
			return
		}
		respondList(w, roles, int64(len(roles)))
	}
}

func roleID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	return uint(id), err
}

func GetRole(svc *services.RoleService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := roleID(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid role id")
			return
		}
		role, err := svc.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(w, http.StatusNotFound, "Role not found")
				return
			}
			lg.Errorw("get role failed", "id", id, "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to fetch role")
			return
		}
		acc, _ := auth.AccessFrom(r.Context())
		if !acc.CanAccessTenant(role.TenantID) {
			respondError(w, http.StatusForbidden, "Forbidden")
			return
		}
		respondData(w, http.StatusOK, role)
	}
}

func CreateRole(svc *services.RoleService, logs *services.AuditLogService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Title       string            `json:"title"`
			TenantID    string            `json:"tenantID"`
			Description *string           `json:"description"`
			Permissions models.StringList `json:"permissions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Title = strings.TrimSpace(req.Title)
		if req.Title == "" || req.TenantID == "" || len(req.Permissions) == 0 {
			respondError(w, http.StatusBadRequest, "title, tenantID, and permissions are required")
			return
		}
		acc, _ := auth.AccessFrom(r.Context())
		if !acc.CanAccessTenant(req.TenantID) {
			respondError(w, http.StatusForbidden, "Forbidden")
			return
		}
		role, err := svc.Create(r.Context(), services.CreateRoleInput{
			Title:       req.Title,
			TenantID:    req.TenantID,
			Description: req.Description,
			Permissions: req.Permissions,
		})
		if err != nil {
			lg.Errorw("create role failed", "tenantId", req.TenantID, "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to create role")
			return
		}
		logs.Record(r.Context(), role.TenantID, acc.OID, "roles.create", "Created role "+role.Title)
		respondData(w, http.StatusCreated, role)
	}
}

func UpdateRole(svc *services.RoleService, logs *services.AuditLogService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := roleID(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid role id")
			return
		}
		var req struct {
			Title       *string            `json:"title"`
			TenantID    *string            `json:"tenantID"`
			Description *string            `json:"description"`
			Permissions *models.StringList `json:"permissions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		existing, err := svc.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(w, http.StatusNotFound, "Role not found")
				return
			}
			lg.Errorw("get role failed", "id", id, "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to update role")
			return
		}
		acc, _ := auth.AccessFrom(r.Context())
		if !acc.CanAccessTenant(existing.TenantID) {
			respondError(w, http.StatusForbidden, "Forbidden")
			return
		}
		if req.TenantID != nil && !acc.CanAccessTenant(*req.TenantID) {
			respondError(w, http.StatusForbidden, "Forbidden")
			return
		}
		role, err := svc.Update(r.Context(), id, services.UpdateRoleInput{
			Title:       req.Title,
			TenantID:    req.TenantID,
			Description: req.Description,
			Permissions: req.Permissions,
		})
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(w, http.StatusNotFound, "Role not found")
				return
			}
			lg.Errorw("update role failed", "id", id, "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to update role")
			return
		}
		logs.Record(r.Context(), role.TenantID, acc.OID, "roles.update", "Updated role "+role.Title)
		respondData(w, http.StatusOK, role)
	}
}
