package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"loxodon/internal/auth"
	"loxodon/internal/services"
	"loxodon/internal/store"
)

func ListCustomers(svc *services.CustomerService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customers, err := svc.List(r.Context())
		if err != nil {
			lg.Errorw("list customers failed", "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to fetch customers")
			return
		}
		respondList(w, customers, int64(len(customers)))
	}
}

func GetCustomer(svc *services.CustomerService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := chi.URLParam(r, "tenantId")
		acc, _ := auth.AccessFrom(r.Context())
		if !acc.CanAccessTenant(tenantID) {
			respondError(w, http.StatusForbidden, "Forbidden")
			return
		}
		customer, err := svc.Get(r.Context(), tenantID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(w, http.StatusNotFound, "Customer not found")
				return
			}
			lg.Errorw("get customer failed", "tenantId", tenantID, "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to fetch customer")
			return
		}
		respondData(w, http.StatusOK, customer)
	}
}

func CreateCustomer(svc *services.CustomerService, logs *services.AuditLogService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Domain             string `json:"domain"`
			TenantID           string `json:"tenantId"`
			AutoSync           bool   `json:"autoSync"`
			GeolocationEnabled *bool  `json:"geolocationEnabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Domain = strings.TrimSpace(req.Domain)
		req.TenantID = strings.TrimSpace(req.TenantID)
		if req.Domain == "" || req.TenantID == "" {
			respondError(w, http.StatusBadRequest, "domain and tenantId are required")
			return
		}
		customer, err := svc.Create(r.Context(), services.CreateCustomerInput{
			Domain:             req.Domain,
			TenantID:           req.TenantID,
			AutoSync:           req.AutoSync,
			GeolocationEnabled: req.GeolocationEnabled,
		})
		if err != nil {
			lg.Errorw("create customer failed", "tenantId", req.TenantID, "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to create customer")
			return
		}
		acc, _ := auth.AccessFrom(r.Context())
		logs.Record(r.Context(), customer.TenantID, acc.OID, "customers.create", "Created customer "+customer.Domain)
		respondData(w, http.StatusCreated, customer)
	}
}

func UpdateCustomer(svc *services.CustomerService, logs *services.AuditLogService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := chi.URLParam(r, "tenantId")
		var req struct {
			Domain             *string `json:"domain"`
			Active             *bool   `json:"active"`
			AutoSync           *bool   `json:"autoSync"`
			GeolocationEnabled *bool   `json:"geolocationEnabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		customer, err := svc.Update(r.Context(), tenantID, services.UpdateCustomerInput{
			Domain:             req.Domain,
			Active:             req.Active,
			AutoSync:           req.AutoSync,
			GeolocationEnabled: req.GeolocationEnabled,
		})
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(w, http.StatusNotFound, "Customer not found")
				return
			}
			lg.Errorw("update customer failed", "tenantId", tenantID, "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to update customer")
			return
		}
		acc, _ := auth.AccessFrom(r.Context())
		logs.Record(r.Context(), tenantID, acc.OID, "customers.update", "Updated customer "+customer.Domain)
		respondData(w, http.StatusOK, customer)
	}
}

func DeleteCustomer(svc *services.CustomerService, logs *services.AuditLogService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := chi.URLParam(r, "tenantId")
		if err := svc.Delete(r.Context(), tenantID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(w, http.StatusNotFound, "Customer not found")
				return
			}
			lg.Errorw("delete customer failed", "tenantId", tenantID, "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to delete customer")
			return
		}
		acc, _ := auth.AccessFrom(r.Context())
		logs.Record(r.Context(), tenantID, acc.OID, "customers.delete", "Deleted customer "+tenantID)
		respondData(w, http.StatusOK, map[string]interface{}{"deleted": true})
	}
}
