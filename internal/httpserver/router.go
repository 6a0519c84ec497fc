package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"loxodon/internal/auth"
	"loxodon/internal/directory"
	"loxodon/internal/httpserver/handlers"
	"loxodon/internal/services"
	"loxodon/internal/store"
)

func NewRouter(st store.Store, dir directory.Directory, verifier auth.Verifier, lg *zap.SugaredLogger) http.Handler {
	authz := auth.NewAuthorizer(st, lg)
	roles := services.NewRoleService(st, lg)
	users := services.NewUserService(st, dir, lg)
	customers := services.NewCustomerService(st, roles, users, lg)
	logs := services.NewAuditLogService(st, lg)
	stats := services.NewStatsService(st)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))
	r.Use(auth.Bearer(verifier, lg))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","timestamp":"` + time.Now().UTC().Format(time.RFC3339) + `"}`))
	})

	r.Route("/customers", func(r chi.Router) {
		r.With(authz.RequireGlobal()).Get("/", handlers.ListCustomers(customers, lg))
		r.With(authz.RequireGlobal()).Post("/", handlers.CreateCustomer(customers, logs, lg))
		r.With(authz.Attach()).Get("/{tenantId}", handlers.GetCustomer(customers, lg))
		r.With(authz.RequireGlobal()).Put("/{tenantId}", handlers.UpdateCustomer(customers, logs, lg))
		r.With(authz.RequireGlobal()).Delete("/{tenantId}", handlers.DeleteCustomer(customers, logs, lg))
	})

	r.Route("/users", func(r chi.Router) {
		r.With(authz.RequirePermissions("users.read")).Get("/", handlers.ListUsers(users, customers, lg))
		r.With(authz.RequireSelfOrPermission("users.read", "oid")).Get("/{oid}", handlers.GetUser(users, lg))
		r.With(authz.RequireSelfOrPermission("users.update", "oid")).Put("/{oid}", handlers.UpdateUser(users, logs, lg))
		r.With(authz.RequireSelfOrPermission("users.update", "oid")).Put("/{oid}/activity", handlers.TouchActivity(users, logs, lg))
	})

	r.Route("/roles", func(r chi.Router) {
		r.With(authz.RequirePermissions("roles.read")).Get("/", handlers.ListRoles(roles, lg))
		r.With(authz.RequirePermissions("roles.read")).Get("/{id}", handlers.GetRole(roles, lg))
		r.With(authz.RequirePermissions("roles.create")).Post("/", handlers.CreateRole(roles, logs, lg))
		r.With(authz.RequirePermissions("roles.update")).Put("/{id}", handlers.UpdateRole(roles, logs, lg))
	})

	r.Route("/audit-logs", func(r chi.Router) {
		r.With(authz.RequireAnyPermission("audit_logs.read", "logs.read")).Get("/", handlers.ListAuditLogs(logs, users, lg))
		r.With(authz.RequireAnyPermission("audit_logs.export", "logs.export")).Get("/export", handlers.ExportAuditLogs(logs, users, lg))
		r.With(authz.RequireAnyPermission("audit_logs.read", "logs.read")).Get("/{id}", handlers.GetAuditLog(logs, lg))
		r.With(authz.RequireAnyPermission("audit_logs.write", "logs.write")).Post("/", handlers.CreateAuditLog(logs, lg))
	})

	r.Route("/stats", func(r chi.Router) {
		r.With(authz.RequireAnyPermission("users.read", "users.update")).Get("/overview", handlers.StatsOverview(stats, lg))
		r.With(authz.RequireAnyPermission("logs.read", "audit_logs.read")).Get("/login-stats", handlers.LoginStats(dir, lg))
	})

	return r
}
