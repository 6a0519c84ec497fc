package services

import (
	"context"

	"go.uber.org/zap"

	"loxodon/internal/models"
	"loxodon/internal/store"
)

type CreateCustomerInput struct {
	Domain             string
	TenantID           string
	AutoSync           bool
	GeolocationEnabled *bool
}

type UpdateCustomerInput struct {
	Domain             *string
	Active             *bool
	AutoSync           *bool
	GeolocationEnabled *bool
}

type CustomerService struct {
	store store.Store
	roles *RoleService
	users *UserService
	lg    *zap.SugaredLogger
}

func NewCustomerService(st store.Store, roles *RoleService, users *UserService, lg *zap.SugaredLogger) *CustomerService {
	return &CustomerService{store: st, roles: roles, users: users, lg: lg}
}

func (s *CustomerService) List(ctx context.Context) ([]models.Customer, error) {
	return s.store.ListCustomers(ctx)
}

func (s *CustomerService) Get(ctx context.Context, tenantID string) (*models.Customer, error) {
	return s.store.GetCustomer(ctx, tenantID)
}

// Create inserts the customer and then runs the derived-state side effects:
// seeding the default roles, granting geolocation permissions, and the first
// directory sync. The create succeeds even when a side effect fails.
func (s *CustomerService) Create(ctx context.Context, input CreateCustomerInput) (*models.Customer, error) {
	c := models.Customer{
		TenantID: input.TenantID,
		Domain:   input.Domain,
		Active:   true,
		AutoSync: input.AutoSync,
	}
	if err := s.store.CreateCustomer(ctx, &c); err != nil {
		return nil, err
	}

	effects := []sideEffect{
		{"seed default roles", func(ctx context.Context) error {
			return s.roles.SeedDefaults(ctx, c.TenantID)
		}},
	}
	if input.GeolocationEnabled != nil && *input.GeolocationEnabled {
		effects = append(effects, sideEffect{"grant geolocation permissions", func(ctx context.Context) error {
			return s.roles.ToggleGeolocation(ctx, c.TenantID, true)
		}})
	}
	effects = append(effects, sideEffect{"sync directory users", func(ctx context.Context) error {
		return s.users.Sync(ctx, c.TenantID, c.Domain)
	}})
	runSideEffects(ctx, s.lg, effects)

	return &c, nil
}

func (s *CustomerService) Update(ctx context.Context, tenantID string, input UpdateCustomerInput) (*models.Customer, error) {
	c, err := s.store.UpdateCustomer(ctx, tenantID, store.CustomerUpdate{
		Domain:   input.Domain,
		Active:   input.Active,
		AutoSync: input.AutoSync,
	})
	if err != nil {
		return nil, err
	}
	if input.GeolocationEnabled != nil {
		enabled := *input.GeolocationEnabled
		runSideEffects(ctx, s.lg, []sideEffect{
			{"toggle geolocation permissions", func(ctx context.Context) error {
				return s.roles.ToggleGeolocation(ctx, tenantID, enabled)
			}},
		})
	}
	return c, nil
}

// Delete removes the customer's users, roles, and the customer row in one
// transaction.
func (s *CustomerService) Delete(ctx context.Context, tenantID string) error {
	return s.store.DeleteCustomerCascade(ctx, tenantID)
}
