package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"loxodon/internal/auth"
	"loxodon/internal/models"
	"loxodon/internal/services"
	"loxodon/internal/store"
)

// userView is the wire shape for users: the roleId column is exposed as
// "role".
type userView struct {
	OID        string            `json:"oid"`
	Email      string            `json:"email"`
	TenantID   string            `json:"tenantId"`
	Role       *uint             `json:"role"`
	Status     models.UserStatus `json:"status"`
	FirstLogin *time.Time        `json:"firstLogin"`
	LastActive *time.Time        `json:"lastActive"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

func mapUser(u models.User) userView {
	return userView{
		OID:        u.OID,
		Email:      u.Email,
		TenantID:   u.TenantID,
		Role:       u.RoleID,
		Status:     u.Status,
		FirstLogin: u.FirstLogin,
		LastActive: u.LastActive,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

func mapUsers(us []models.User) []userView {
	views := make([]userView, 0, len(us))
	for _, u := range us {
		views = append(views, mapUser(u))
	}
	return views
}

// ListUsers syncs the customer's users from the directory (best-effort) and
// returns the current local state.
func ListUsers(users *services.UserService, customers *services.CustomerService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := r.URL.Query().Get("customerId")
		if customerID == "" {
			respondError(w, http.StatusBadRequest, "customerId is required")
			return
		}
		acc, _ := auth.AccessFrom(r.Context())
		if !acc.CanAccessTenant(customerID) {
			respondError(w, http.StatusForbidden, "Forbidden")
			return
		}
		customer, err := customers.Get(r.Context(), customerID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(w, http.StatusNotFound, "Customer not found")
				return
			}
			lg.Errorw("get customer failed", "tenantId", customerID, "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to fetch users")
			return
		}
		if err := users.Sync(r.Context(), customerID, customer.Domain); err != nil {
			lg.Errorw("directory sync failed", "tenantId", customerID, "error", err)
		}
		list, err := users.ListByTenant(r.Context(), customerID)
		if err != nil {
			lg.Errorw("list users failed", "tenantId", customerID, "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to fetch users")
			return
		}
		respondList(w, mapUsers(list), int64(len(list)))
	}
}

func GetUser(users *services.UserService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		oid := chi.URLParam(r, "oid")
		u, err := users.Get(r.Context(), oid)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(w, http.StatusNotFound, "User not found")
				return
			}
			lg.Errorw("get user failed", "oid", oid, "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to fetch user")
			return
		}
		acc, _ := auth.AccessFrom(r.Context())
		if acc.OID != u.OID && !acc.CanAccessTenant(u.TenantID) {
			respondError(w, http.StatusForbidden, "Forbidden")
			return
		}
		respondData(w, http.StatusOK, mapUser(*u))
	}
}

var jsonNull = []byte("null")

func UpdateUser(users *services.UserService, logs *services.AuditLogService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		oid := chi.URLParam(r, "oid")
		var req struct {
			Email  *string            `json:"email"`
			Role   json.RawMessage    `json:"role"`
			Status *models.UserStatus `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		acc, _ := auth.AccessFrom(r.Context())
		// A user may never change their own role, whatever their permissions.
		if acc.OID == oid && len(req.Role) > 0 {
			respondError(w, http.StatusForbidden, "Forbidden")
			return
		}
		if req.Status != nil {
			switch *req.Status {
			case models.UserStatusActive, models.UserStatusInactive, models.UserStatusDeleted:
			default:
				respondError(w, http.StatusBadRequest, "Invalid status")
				return
			}
		}
		existing, err := users.Get(r.Context(), oid)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(w, http.StatusNotFound, "User not found")
				return
			}
			lg.Errorw("get user failed", "oid", oid, "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to update user")
			return
		}
		if acc.OID != existing.OID && !acc.CanAccessTenant(existing.TenantID) {
			respondError(w, http.StatusForbidden, "Forbidden")
			return
		}

		input := services.UpdateUserInput{Email: req.Email, Status: req.Status}
		if len(req.Role) > 0 {
			input.SetRole = true
			if !bytes.Equal(bytes.TrimSpace(req.Role), jsonNull) {
				var roleID uint
				if err := json.Unmarshal(req.Role, &roleID); err != nil {
					respondError(w, http.StatusBadRequest, "Invalid role")
					return
				}
				input.RoleID = &roleID
			}
		}

		updated, err := users.Update(r.Context(), oid, input)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrRoleNotFound):
				respondError(w, http.StatusBadRequest, "Invalid role")
			case errors.Is(err, services.ErrRoleTenantMismatch):
				respondError(w, http.StatusForbidden, "Forbidden")
			case errors.Is(err, store.ErrNotFound):
				respondError(w, http.StatusNotFound, "User not found")
			default:
				lg.Errorw("update user failed", "oid", oid, "error", err)
				respondError(w, http.StatusInternalServerError, "Failed to update user")
			}
			return
		}
		logs.Record(r.Context(), updated.TenantID, acc.OID, "users.update", "Updated user "+oid)
		respondData(w, http.StatusOK, mapUser(*updated))
	}
}

// TouchActivity stamps lastActive and emits a first-login audit event exactly
// once per user lifetime.
func TouchActivity(users *services.UserService, logs *services.AuditLogService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		oid := chi.URLParam(r, "oid")
		acc, _ := auth.AccessFrom(r.Context())
		existing, err := users.Get(r.Context(), oid)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(w, http.StatusNotFound, "User not found")
				return
			}
			lg.Errorw("get user failed", "oid", oid, "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to update user activity")
			return
		}
		if acc.OID != existing.OID && !acc.CanAccessTenant(existing.TenantID) {
			respondError(w, http.StatusForbidden, "Forbidden")
			return
		}
		u, firstLoginSet, err := users.TouchActivity(r.Context(), oid)
		if err != nil {
			lg.Errorw("touch activity failed", "oid", oid, "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to update user activity")
			return
		}
		if firstLoginSet {
			logs.Record(r.Context(), u.TenantID, u.OID, "users.login", "First login")
		}
		respondData(w, http.StatusOK, map[string]interface{}{
			"user":          mapUser(*u),
			"firstLoginSet": firstLoginSet,
		})
	}
}
